package cli

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/annotate-cli/internal/adapters/driven/notify"
	"github.com/custodia-labs/annotate-cli/internal/core/domain"
)

func TestNewTUIApp_SubmitStoresAnnotation(t *testing.T) {
	env := setupTestEnv(t, nil)
	defer resetFlags()
	tuiDocument, tuiAnnotator = "paper.pdf", "ana"

	app, done, err := newTUIApp(context.Background(), "review")
	require.NoError(t, err)
	defer done()

	app.Update(tea.KeyMsg{Type: tea.KeyRight})
	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	require.NotNil(t, cmd)
	app.Update(cmd())
	require.NoError(t, app.Err())

	records, err := env.annotations.List(context.Background(), "review")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "paper.pdf", records[0].DocumentRef)
	assert.Equal(t, "ana", records[0].Annotator)
	assert.Equal(t, "rct", records[0].Annotation.Values["design"])
	assert.Equal(t, "true", records[0].Annotation.Values["randomized"])
}

func TestNewTUIApp_RedirectsNotices(t *testing.T) {
	setupTestEnv(t, nil)
	recorder := notify.NewRecorder()
	relay := notify.NewRelay(recorder)
	noticeRouter = relay

	app, done, err := newTUIApp(context.Background(), "review")
	require.NoError(t, err)

	relay.Notify(domain.Notice{Kind: domain.NoticeWarning, Message: "cache used"})
	assert.Equal(t, 0, recorder.Count(domain.NoticeWarning), "notices go to the form while it runs")

	done()
	relay.Notify(domain.Notice{Kind: domain.NoticeWarning, Message: "after"})
	assert.Equal(t, 1, recorder.Count(domain.NoticeWarning))
	assert.NotNil(t, app)
}

func TestNewTUIApp_Errors(t *testing.T) {
	setupTestEnv(t, nil)

	_, _, err := newTUIApp(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	defer resetFlags()
	tuiSeed = "/nonexistent/seed.json"
	_, _, err = newTUIApp(context.Background(), "review")
	assert.Error(t, err)
}

func TestAnnotatorName(t *testing.T) {
	defer resetFlags()

	tuiAnnotator = "ana"
	assert.Equal(t, "ana", annotatorName())

	tuiAnnotator = ""
	t.Setenv("USER", "")
	assert.Equal(t, "anonymous", annotatorName())

	t.Setenv("USER", "bo")
	assert.Equal(t, "bo", annotatorName())
}
