package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/custodia-labs/annotate-cli/internal/adapters/driven/notify"
	"github.com/custodia-labs/annotate-cli/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/annotate-cli/internal/core/domain"
)

type coordinatorFixture struct {
	c       *SourceCoordinator
	shared  *memory.SharedTemplateStore
	notices *notify.Recorder
}

func newCoordinatorFixture(t *testing.T, poll time.Duration) coordinatorFixture {
	t.Helper()
	templates := NewTemplateService(memory.NewTemplateStore())
	require.NoError(t, templates.Save(context.Background(), "local", retractTemplate()))

	shared := memory.NewSharedTemplateStore()
	notices := notify.NewRecorder()
	c, err := NewSourceCoordinator(templates, shared, CoordinatorOptions{
		PollInterval: poll,
		Notifier:     notices,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return coordinatorFixture{c: c, shared: shared, notices: notices}
}

func sharedTemplate(name string) *domain.Template {
	t := cycleTemplate()
	t.Name = name
	return t
}

func TestSourceCoordinator_LocalMode(t *testing.T) {
	f := newCoordinatorFixture(t, -1)
	ctx := context.Background()

	assert.Equal(t, domain.SourceLocal, f.c.Mode())
	assert.Nil(t, f.c.Active())
	assert.True(t, f.c.Editable())

	require.NoError(t, f.c.UseLocal(ctx, "local"))
	assert.Equal(t, "Retract", f.c.Active().Name)
	assert.Equal(t, "local", f.c.LocalName())

	edited := f.c.Active()
	edited.Name = "Edited"
	require.NoError(t, f.c.Edit(ctx, edited))
	assert.Equal(t, "Edited", f.c.Active().Name)

	stored, err := f.c.templates.Load(ctx, "local")
	require.NoError(t, err)
	assert.Equal(t, "Edited", stored.Name, "local edits are persisted")
}

func TestSourceCoordinator_InvalidEditKeepsActive(t *testing.T) {
	f := newCoordinatorFixture(t, -1)
	ctx := context.Background()
	require.NoError(t, f.c.UseLocal(ctx, "local"))

	err := f.c.Edit(ctx, &domain.Template{Name: "broken"})
	assert.ErrorIs(t, err, domain.ErrInvalidTemplate)
	assert.Equal(t, "Retract", f.c.Active().Name)

	err = f.c.UseLocal(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, "Retract", f.c.Active().Name)
}

func TestSourceCoordinator_ConnectRequiresContext(t *testing.T) {
	f := newCoordinatorFixture(t, -1)

	_, err := f.c.Connect(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	c, err := NewSourceCoordinator(NewTemplateService(nil), nil, CoordinatorOptions{})
	require.NoError(t, err)
	_, err = c.Connect(context.Background(), "team")
	assert.ErrorIs(t, err, domain.ErrNotConnected)
}

func TestSourceCoordinator_UnmanagedThenPromoted(t *testing.T) {
	f := newCoordinatorFixture(t, -1)
	ctx := context.Background()
	require.NoError(t, f.c.UseLocal(ctx, "local"))

	mode, err := f.c.Connect(ctx, "team")
	require.NoError(t, err)
	assert.Equal(t, domain.SourceSharedUnmanaged, mode)
	assert.Equal(t, "team", f.c.ContextID())
	assert.Equal(t, "Retract", f.c.Active().Name, "local template stays active")
	assert.True(t, f.c.Editable())

	edited := f.c.Active()
	edited.Name = "Draft"
	require.NoError(t, f.c.Edit(ctx, edited))

	require.NoError(t, f.c.SaveShared(ctx))
	assert.Equal(t, domain.SourceSharedManaged, f.c.Mode())
	assert.False(t, f.c.Editable())

	remote, marker, err := f.shared.Get(ctx, "team")
	require.NoError(t, err)
	assert.Equal(t, "Draft", remote.Name)
	assert.Equal(t, "v1", marker)

	stored, err := f.c.templates.Load(ctx, "local")
	require.NoError(t, err)
	assert.Equal(t, "Retract", stored.Name, "unmanaged edits are not persisted locally")
}

func TestSourceCoordinator_ManagedGatesEdits(t *testing.T) {
	f := newCoordinatorFixture(t, -1)
	ctx := context.Background()
	_, err := f.shared.Save(ctx, "team", sharedTemplate("Team"))
	require.NoError(t, err)

	mode, err := f.c.Connect(ctx, "team")
	require.NoError(t, err)
	assert.Equal(t, domain.SourceSharedManaged, mode)
	assert.Equal(t, "Team", f.c.Active().Name)

	assert.ErrorIs(t, f.c.Edit(ctx, retractTemplate()), domain.ErrTemplateManaged)
	assert.ErrorIs(t, f.c.UseLocal(ctx, "local"), domain.ErrTemplateManaged)
	assert.ErrorIs(t, f.c.SaveShared(ctx), domain.ErrTemplateManaged)
	assert.Equal(t, "Team", f.c.Active().Name)

	// A local copy is always allowed and becomes the local template.
	require.NoError(t, f.c.SaveLocalCopy(ctx, "team_copy"))
	assert.Equal(t, "team_copy", f.c.LocalName())

	f.c.Disconnect()
	assert.Equal(t, domain.SourceLocal, f.c.Mode())
	assert.Empty(t, f.c.ContextID())
	assert.Equal(t, "Team", f.c.Active().Name)
}

func TestSourceCoordinator_DisconnectRestoresLocal(t *testing.T) {
	f := newCoordinatorFixture(t, -1)
	ctx := context.Background()
	require.NoError(t, f.c.UseLocal(ctx, "local"))
	_, err := f.shared.Save(ctx, "team", sharedTemplate("Team"))
	require.NoError(t, err)

	_, err = f.c.Connect(ctx, "team")
	require.NoError(t, err)
	assert.Equal(t, "Team", f.c.Active().Name)

	f.c.Disconnect()
	assert.Equal(t, domain.SourceLocal, f.c.Mode())
	assert.Equal(t, "Retract", f.c.Active().Name)
	assert.ErrorIs(t, f.c.SaveShared(ctx), domain.ErrNotConnected)
}

func TestSourceCoordinator_DisconnectKeepsUnmanagedEdits(t *testing.T) {
	f := newCoordinatorFixture(t, -1)
	ctx := context.Background()
	require.NoError(t, f.c.UseLocal(ctx, "local"))

	mode, err := f.c.Connect(ctx, "team")
	require.NoError(t, err)
	require.Equal(t, domain.SourceSharedUnmanaged, mode)

	edited := f.c.Active()
	edited.Name = "Draft"
	require.NoError(t, f.c.Edit(ctx, edited))

	f.c.Disconnect()
	assert.Equal(t, domain.SourceLocal, f.c.Mode())
	assert.Equal(t, "Draft", f.c.Active().Name)

	stored, err := f.c.templates.Load(ctx, "local")
	require.NoError(t, err)
	assert.Equal(t, "Retract", stored.Name, "kept edits are not written implicitly")

	require.NoError(t, f.c.Edit(ctx, f.c.Active()))
	stored, err = f.c.templates.Load(ctx, "local")
	require.NoError(t, err)
	assert.Equal(t, "Draft", stored.Name)
}

func TestSourceCoordinator_SaveSharedNeedsTemplate(t *testing.T) {
	f := newCoordinatorFixture(t, -1)
	ctx := context.Background()

	_, err := f.c.Connect(ctx, "team")
	require.NoError(t, err)
	assert.ErrorIs(t, f.c.SaveShared(ctx), domain.ErrNoActiveTemplate)
	assert.ErrorIs(t, f.c.SaveLocalCopy(ctx, "x"), domain.ErrNoActiveTemplate)
}

func TestSourceCoordinator_InvalidSharedTemplateIsAbsent(t *testing.T) {
	f := newCoordinatorFixture(t, -1)
	ctx := context.Background()
	_, err := f.shared.Save(ctx, "team", &domain.Template{Name: "empty"})
	require.NoError(t, err)

	mode, err := f.c.Connect(ctx, "team")
	require.NoError(t, err)
	assert.Equal(t, domain.SourceSharedUnmanaged, mode)
	assert.Equal(t, 1, f.notices.Count(domain.NoticeWarning))
}

func TestSourceCoordinator_CheckUpstreamNotifiesOnce(t *testing.T) {
	f := newCoordinatorFixture(t, -1)
	ctx := context.Background()

	_, err := f.c.CheckUpstream(ctx)
	assert.ErrorIs(t, err, domain.ErrNotConnected)

	_, err = f.shared.Save(ctx, "team", sharedTemplate("Team"))
	require.NoError(t, err)
	_, err = f.c.Connect(ctx, "team")
	require.NoError(t, err)

	stale, err := f.c.CheckUpstream(ctx)
	require.NoError(t, err)
	assert.False(t, stale)

	_, err = f.shared.Save(ctx, "team", sharedTemplate("Team v2"))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		stale, err = f.c.CheckUpstream(ctx)
		require.NoError(t, err)
		assert.True(t, stale)
	}
	assert.True(t, f.c.Stale())
	assert.Equal(t, 1, f.notices.Count(domain.NoticeTemplateChanged))
	assert.Equal(t, "Team", f.c.Active().Name, "never reloads on its own")

	require.NoError(t, f.c.Reload(ctx))
	assert.False(t, f.c.Stale())
	assert.Equal(t, "Team v2", f.c.Active().Name)

	stale, err = f.c.CheckUpstream(ctx)
	require.NoError(t, err)
	assert.False(t, stale)
}

func TestSourceCoordinator_CheckUpstreamUnmanaged(t *testing.T) {
	f := newCoordinatorFixture(t, -1)
	ctx := context.Background()

	_, err := f.c.Connect(ctx, "team")
	require.NoError(t, err)

	stale, err := f.c.CheckUpstream(ctx)
	require.NoError(t, err)
	assert.False(t, stale)
}

func TestSourceCoordinator_FetchFailureUsesCache(t *testing.T) {
	f := newCoordinatorFixture(t, -1)
	ctx := context.Background()
	_, err := f.shared.Save(ctx, "team", sharedTemplate("Team"))
	require.NoError(t, err)
	_, err = f.c.Connect(ctx, "team")
	require.NoError(t, err)
	f.c.Disconnect()

	f.shared.SetFailure(errors.New("connection refused"))

	mode, err := f.c.Connect(ctx, "team")
	require.NoError(t, err)
	assert.Equal(t, domain.SourceSharedManaged, mode)
	assert.Equal(t, "Team", f.c.Active().Name)
	assert.Equal(t, 1, f.notices.Count(domain.NoticeWarning))

	_, err = f.c.CheckUpstream(ctx)
	assert.Error(t, err)
	assert.False(t, f.c.Stale())
}

func TestSourceCoordinator_FetchFailureWithoutCache(t *testing.T) {
	f := newCoordinatorFixture(t, -1)
	ctx := context.Background()
	require.NoError(t, f.c.UseLocal(ctx, "local"))
	f.shared.SetFailure(errors.New("connection refused"))

	mode, err := f.c.Connect(ctx, "team")
	require.Error(t, err)
	assert.Equal(t, domain.SourceLocal, mode)
	assert.Empty(t, f.c.ContextID())
	assert.Equal(t, "Retract", f.c.Active().Name)
}

func TestSourceCoordinator_ReloadWhenRemoved(t *testing.T) {
	f := newCoordinatorFixture(t, -1)
	ctx := context.Background()

	assert.ErrorIs(t, f.c.Reload(ctx), domain.ErrNotConnected)

	_, err := f.c.Connect(ctx, "team")
	require.NoError(t, err)
	require.NoError(t, f.c.Reload(ctx))
	assert.Equal(t, domain.SourceSharedUnmanaged, f.c.Mode())
}

func TestSourceCoordinator_PollerFlagsStaleness(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newCoordinatorFixture(t, 5*time.Millisecond)
	ctx := context.Background()
	_, err := f.shared.Save(ctx, "team", sharedTemplate("Team"))
	require.NoError(t, err)
	_, err = f.c.Connect(ctx, "team")
	require.NoError(t, err)

	_, err = f.shared.Save(ctx, "team", sharedTemplate("Team v2"))
	require.NoError(t, err)

	require.Eventually(t, f.c.Stale, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, f.notices.Count(domain.NoticeTemplateChanged))

	require.NoError(t, f.c.Close())
}

func TestSourceCoordinator_CloseRacingConnectStopsPoller(t *testing.T) {
	defer goleak.VerifyNone(t)

	for i := 0; i < 50; i++ {
		f := newCoordinatorFixture(t, time.Millisecond)
		ctx := context.Background()
		_, err := f.shared.Save(ctx, "team", sharedTemplate("Team"))
		require.NoError(t, err)

		done := make(chan struct{})
		go func() {
			defer close(done)
			_, _ = f.c.Connect(ctx, "team")
		}()
		require.NoError(t, f.c.Close())
		<-done

		f.c.mu.Lock()
		p := f.c.poller
		f.c.mu.Unlock()
		assert.Nil(t, p, "no poller survives Close")
	}
}

func TestStalenessPoller_StopBeforeStart(t *testing.T) {
	defer goleak.VerifyNone(t)

	p := newStalenessPoller(time.Millisecond, func(context.Context) (bool, error) { return false, nil })
	p.Stop()
	p.Start()

	p.mu.Lock()
	running := p.running
	p.mu.Unlock()
	assert.False(t, running)
}
