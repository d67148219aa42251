package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/annotate-cli/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/annotate-cli/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/annotate-cli/internal/core/domain"
	"github.com/custodia-labs/annotate-cli/internal/core/ports/driven"
	"github.com/custodia-labs/annotate-cli/internal/core/services"
)

func ptr(f float64) *float64 { return &f }

func reviewTemplate() *domain.Template {
	return &domain.Template{
		Name: "Review",
		Fields: []domain.Field{
			{
				ID:      "design",
				Label:   "Study design",
				Type:    domain.FieldTypeSelect,
				Options: []string{"rct", "cohort"},
				AutoFillRules: []domain.Rule{
					{TriggerValue: "rct", TargetID: "randomized", TargetValue: "true"},
				},
			},
			{ID: "randomized", Label: "Randomized", Type: domain.FieldTypeBoolean},
			{
				ID:    "quality",
				Label: "Quality",
				Type:  domain.FieldTypeChecklist,
				ChecklistItems: []domain.ChecklistItem{
					{ID: "A", Label: "Item A"},
					{ID: "B", Label: "Item B"},
				},
				ChecklistChoices: []domain.ChecklistChoice{
					{Value: "1", Label: "yes"},
					{Value: "0", Label: "no"},
				},
				ChecklistScoring: &domain.ChecklistScoring{
					Mode: domain.ScoringModeSum,
					Buckets: []domain.ScoreBucket{
						{Label: "Weak", Min: ptr(0), Max: ptr(1)},
						{Label: "Strong", Min: ptr(2)},
					},
				},
			},
		},
	}
}

type fakeSource struct {
	answer domain.Suggestions
	err    error
}

func (f *fakeSource) Suggest(context.Context, driven.SuggestionRequest) (domain.Suggestions, error) {
	return f.answer, f.err
}

func (f *fakeSource) Models(context.Context) ([]string, error) { return nil, nil }

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) Close() error { return nil }

func newTestApp(t *testing.T, source driven.SuggestionSource) (*App, *Ports) {
	t.Helper()
	svc := services.NewAnnotationService(services.RuntimeOptions{DebounceWindow: -1})
	rt, err := svc.Open(reviewTemplate(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close() })

	ports := &Ports{
		Runtime:     rt,
		Suggestions: services.NewSuggestionService(source),
		Scoring:     services.NewScoringService(),
		Document:    "paper.pdf",
	}
	app, err := NewApp(ports)
	require.NoError(t, err)
	app.SetDimensions(100, 40)
	return app, ports
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// press sends a key and runs the returned command once, feeding its
// message back like the event loop would.
func press(t *testing.T, app *App, msg tea.KeyMsg) {
	t.Helper()
	_, cmd := app.Update(msg)
	if cmd == nil {
		return
	}
	if out := cmd(); out != nil {
		if _, isQuit := out.(tea.QuitMsg); !isQuit {
			app.Update(out)
		}
	}
}

func TestNewApp_Validation(t *testing.T) {
	_, err := NewApp(&Ports{})
	assert.ErrorIs(t, err, ErrMissingRuntime)

	svc := services.NewAnnotationService(services.RuntimeOptions{DebounceWindow: -1})
	rt, err := svc.Open(&domain.Template{
		Name:   "Empty checklist",
		Fields: []domain.Field{{ID: "q", Type: domain.FieldTypeChecklist}},
	}, nil)
	require.NoError(t, err)
	defer rt.Close()

	_, err = NewApp(&Ports{Runtime: rt})
	assert.ErrorIs(t, err, ErrEmptyTemplate)
}

func TestApp_BuildsRowsPerItem(t *testing.T) {
	app, _ := newTestApp(t, nil)

	require.Len(t, app.rows, 4)
	assert.Nil(t, app.rows[0].item)
	assert.Equal(t, "A", app.rows[2].item.ID)
	assert.Equal(t, []string{"", "1", "0"}, app.rows[3].choices())
	assert.Equal(t, []string{"", "true", "false"}, app.rows[1].choices())
}

func TestApp_Navigation(t *testing.T) {
	app, _ := newTestApp(t, nil)

	press(t, app, tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 0, app.Cursor())

	press(t, app, runes("j"))
	press(t, app, tea.KeyMsg{Type: tea.KeyDown})
	press(t, app, runes("j"))
	press(t, app, runes("j"))
	assert.Equal(t, 3, app.Cursor(), "stops at the last row")

	press(t, app, runes("k"))
	assert.Equal(t, 2, app.Cursor())
}

func TestApp_CycleTriggersAutofill(t *testing.T) {
	app, ports := newTestApp(t, nil)

	press(t, app, runes("l"))
	assert.Equal(t, "rct", ports.Runtime.Value("design"))
	assert.Equal(t, "true", ports.Runtime.Value("randomized"))

	st, _ := ports.Runtime.State("randomized")
	assert.Equal(t, domain.ProvenanceAutofilled, st.Provenance.Kind)
	assert.Contains(t, app.lastChange, "randomized")

	press(t, app, runes("h"))
	assert.Equal(t, "", ports.Runtime.Value("design"), "wraps back to empty")

	press(t, app, runes("h"))
	assert.Equal(t, "cohort", ports.Runtime.Value("design"))

	press(t, app, runes("x"))
	assert.Equal(t, "", ports.Runtime.Value("design"))
}

func TestApp_ChecklistItemsAndScore(t *testing.T) {
	app, ports := newTestApp(t, nil)

	press(t, app, runes("j"))
	press(t, app, runes("j"))
	press(t, app, tea.KeyMsg{Type: tea.KeySpace})
	press(t, app, runes("j"))
	press(t, app, tea.KeyMsg{Type: tea.KeySpace})

	st, _ := ports.Runtime.State("quality")
	assert.Equal(t, map[string]string{"A": "1", "B": "1"}, st.Items)
	assert.Contains(t, app.View(), "score 2 -> Strong")
	assert.Contains(t, app.View(), "yes")
}

func TestApp_LockToggle(t *testing.T) {
	app, ports := newTestApp(t, nil)

	press(t, app, runes("j"))
	press(t, app, runes("L"))
	st, _ := ports.Runtime.State("randomized")
	assert.True(t, st.Locked)
	assert.Contains(t, app.View(), "[locked]")

	press(t, app, runes("k"))
	press(t, app, runes("l"))
	assert.Equal(t, "", ports.Runtime.Value("randomized"), "locked fields ignore rules")

	press(t, app, runes("j"))
	press(t, app, runes("L"))
	st, _ = ports.Runtime.State("randomized")
	assert.False(t, st.Locked)
}

func TestApp_ContextEditing(t *testing.T) {
	app, ports := newTestApp(t, nil)

	// Opening the editor returns a cursor blink command; it is not run here.
	app.Update(runes("e"))
	assert.True(t, app.editor.Focused())
	assert.Equal(t, status.StateEditing, app.status.State())

	press(t, app, runes("p. 4"))
	press(t, app, tea.KeyMsg{Type: tea.KeyEnter})
	assert.False(t, app.editor.Focused())

	st, _ := ports.Runtime.State("design")
	assert.Equal(t, "p. 4", st.Context)
	assert.Contains(t, app.View(), "p. 4")

	app.Update(runes("e"))
	press(t, app, runes(" more"))
	press(t, app, tea.KeyMsg{Type: tea.KeyEsc})
	st, _ = ports.Runtime.State("design")
	assert.Equal(t, "p. 4", st.Context, "cancel keeps the old text")
}

func TestApp_SuggestRevertAndReasoning(t *testing.T) {
	app, ports := newTestApp(t, &fakeSource{answer: domain.Suggestions{
		"design": {Value: "rct", Context: "methods", Reasoning: "allocation was random"},
	}})

	press(t, app, runes("s"))
	assert.Equal(t, "rct", ports.Runtime.Value("design"))
	assert.Equal(t, "true", ports.Runtime.Value("randomized"))
	assert.Equal(t, "Applied 1 suggestion(s)", app.status.Message())
	assert.Contains(t, app.View(), "[AI]")

	press(t, app, tea.KeyMsg{Type: tea.KeyTab})
	assert.Contains(t, app.View(), "why: allocation was random")

	press(t, app, runes("r"))
	assert.Equal(t, "", ports.Runtime.Value("design"))
	assert.Equal(t, "", ports.Runtime.Value("randomized"))

	press(t, app, runes("r"))
	assert.ErrorIs(t, app.Err(), domain.ErrNoSnapshot)
	assert.Equal(t, status.StateError, app.status.State())
}

func TestApp_SuggestErrors(t *testing.T) {
	app, ports := newTestApp(t, &fakeSource{err: errors.New("quota exhausted")})

	press(t, app, runes("s"))
	assert.ErrorContains(t, app.Err(), "quota exhausted")

	ports.Document = ""
	press(t, app, runes("s"))
	assert.Equal(t, status.StateWarning, app.status.State())

	app2, _ := newTestApp(t, nil)
	press(t, app2, runes("s"))
	assert.Equal(t, status.StateWarning, app2.status.State())
}

func TestApp_ClearSuggestion(t *testing.T) {
	app, ports := newTestApp(t, &fakeSource{answer: domain.Suggestions{
		"design": {Value: "cohort", Context: "methods"},
	}})

	press(t, app, runes("s"))
	press(t, app, runes("c"))

	st, _ := ports.Runtime.State("design")
	assert.Equal(t, "cohort", st.Value)
	assert.Empty(t, st.Context)
}

func TestApp_Submit(t *testing.T) {
	app, ports := newTestApp(t, nil)

	press(t, app, tea.KeyMsg{Type: tea.KeyCtrlS})
	assert.Equal(t, status.StateWarning, app.status.State(), "no submit func")

	var got domain.Annotation
	ports.Submit = func(_ context.Context, a domain.Annotation) error {
		got = a
		return nil
	}
	press(t, app, runes("l"))
	press(t, app, tea.KeyMsg{Type: tea.KeyCtrlS})

	assert.Equal(t, "rct", got.Values["design"])
	assert.Equal(t, 1, app.Submitted())
	assert.Equal(t, "", ports.Runtime.Value("design"), "form resets after submit")
	assert.Equal(t, "Submitted", app.status.Message())

	ports.Submit = func(context.Context, domain.Annotation) error { return errors.New("disk full") }
	press(t, app, tea.KeyMsg{Type: tea.KeyCtrlS})
	assert.Equal(t, 1, app.Submitted())
	assert.EqualError(t, app.Err(), "disk full")
}

func TestApp_Notices(t *testing.T) {
	app, _ := newTestApp(t, nil)

	app.Notifier().Notify(domain.Notice{Kind: domain.NoticeTemplateChanged, Message: "template changed upstream"})
	msg := app.waitForNotice()()
	require.IsType(t, messages.NoticeReceived{}, msg)

	_, cmd := app.Update(msg)
	assert.NotNil(t, cmd, "keeps listening")
	assert.Equal(t, status.StateWarning, app.status.State())
	assert.Equal(t, "template changed upstream", app.status.Message())

	app.Update(messages.NoticeReceived{Notice: domain.Notice{Kind: domain.NoticeFieldsUpdated, Message: "updated randomized"}})
	assert.Equal(t, status.StateNotice, app.status.State())
}

func TestApp_NotifierDropsWhenFull(t *testing.T) {
	app, _ := newTestApp(t, nil)
	n := app.Notifier()

	for i := 0; i < noticeBuffer+5; i++ {
		n.Notify(domain.Notice{Kind: domain.NoticeWarning})
	}
	assert.Len(t, app.notices, noticeBuffer)
}

func TestApp_QuitStopsNoticeWait(t *testing.T) {
	app, _ := newTestApp(t, nil)
	wait := app.waitForNotice()

	_, cmd := app.Update(runes("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Nil(t, wait())
}

func TestApp_HelpAndView(t *testing.T) {
	app, _ := newTestApp(t, nil)

	view := app.View()
	assert.Contains(t, view, "Review")
	assert.Contains(t, view, "paper.pdf")
	assert.Contains(t, view, "> Study design")
	assert.Contains(t, view, "Item B")

	press(t, app, runes("?"))
	assert.Contains(t, app.View(), "Keys")
	press(t, app, runes("?"))
	assert.NotContains(t, app.View(), "Keys")
}

func TestApp_WindowSize(t *testing.T) {
	svc := services.NewAnnotationService(services.RuntimeOptions{DebounceWindow: -1})
	rt, err := svc.Open(reviewTemplate(), nil)
	require.NoError(t, err)
	defer rt.Close()

	app, err := NewApp(&Ports{Runtime: rt})
	require.NoError(t, err)
	assert.False(t, app.Ready())
	assert.Equal(t, "Initialising...", app.View())

	app.Update(tea.WindowSizeMsg{Width: 120, Height: 30})
	assert.True(t, app.Ready())
	assert.Equal(t, 120, app.status.Width())
}
