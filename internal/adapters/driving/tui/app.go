package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/annotate-cli/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/annotate-cli/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/annotate-cli/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/annotate-cli/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/annotate-cli/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/annotate-cli/internal/core/domain"
	"github.com/custodia-labs/annotate-cli/internal/core/ports/driven"
)

// noticeBuffer bounds notices waiting for the event loop.
const noticeBuffer = 16

// row is one selectable line of the form: a field, or one checklist item.
type row struct {
	field *domain.Field
	item  *domain.ChecklistItem
}

// choices returns the values the row cycles through, starting with empty.
func (r row) choices() []string {
	out := []string{""}
	switch {
	case r.item != nil:
		for _, c := range r.field.ChoicesFor(r.item) {
			out = append(out, c.Value)
		}
	case r.field.Type == domain.FieldTypeBoolean:
		out = append(out, "true", "false")
	default:
		out = append(out, r.field.Options...)
	}
	return out
}

// App is the annotation form following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	ports  *Ports
	ctx    context.Context
	cancel context.CancelFunc

	styles *styles.Styles
	keymap *keymap.KeyMap
	status *status.Bar
	editor *input.ContextInput

	rows   []row
	cursor int

	notices     chan domain.Notice
	unsubscribe func()
	lastChange  string

	showHelp   bool
	suggesting bool
	submitted  int
	err        error

	width  int
	height int
	ready  bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates the form for the runtime in ports.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	rows := buildRows(ports.Runtime.Template())
	if len(rows) == 0 {
		return nil, fmt.Errorf("creating app: %w", ErrEmptyTemplate)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()
	ctx, cancel := context.WithCancel(context.Background())

	a := &App{
		ports:   ports,
		ctx:     ctx,
		cancel:  cancel,
		styles:  s,
		keymap:  km,
		status:  status.NewBar(s, km),
		editor:  input.NewContextInput(s),
		rows:    rows,
		notices: make(chan domain.Notice, noticeBuffer),
	}
	a.unsubscribe = ports.Runtime.Subscribe(a.recordChange)
	return a, nil
}

func buildRows(t *domain.Template) []row {
	var rows []row
	for i := range t.Fields {
		f := &t.Fields[i]
		if f.Type != domain.FieldTypeChecklist {
			rows = append(rows, row{field: f})
			continue
		}
		for j := range f.ChecklistItems {
			rows = append(rows, row{field: f, item: &f.ChecklistItems[j]})
		}
	}
	return rows
}

// WithContext sets the context for suggestion and submit calls.
func (a *App) WithContext(ctx context.Context) *App {
	a.cancel()
	a.ctx, a.cancel = context.WithCancel(ctx)
	return a
}

// Notifier returns a notifier delivering notices to the running form.
// Notices beyond the buffer are dropped rather than blocking the engine.
func (a *App) Notifier() driven.Notifier {
	return noticeSink(a.notices)
}

type noticeSink chan domain.Notice

func (s noticeSink) Notify(n domain.Notice) {
	select {
	case s <- n:
	default:
	}
}

func (a *App) waitForNotice() tea.Cmd {
	ctx, notices := a.ctx, a.notices
	return func() tea.Msg {
		select {
		case n := <-notices:
			return messages.NoticeReceived{Notice: n}
		case <-ctx.Done():
			return nil
		}
	}
}

func (a *App) recordChange(c domain.Change) {
	target := c.FieldID
	if c.ItemID != "" {
		target += "/" + c.ItemID
	}
	a.lastChange = fmt.Sprintf("%s: %s -> %s (%s)", target, display(c.Old), display(c.New), c.Provenance)
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		tea.SetWindowTitle("annotate - "+a.ports.Runtime.Template().Name),
		a.waitForNotice(),
	)
}

// Update implements tea.Model.
//
//nolint:gocyclo // central message handler
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		if a.editor.Focused() {
			return a, a.updateEditor(msg)
		}
		return a, a.handleKey(msg.String())

	case messages.NoticeReceived:
		a.showNotice(msg.Notice)
		return a, a.waitForNotice()

	case messages.SuggestionsLoaded:
		a.suggesting = false
		if msg.Err != nil {
			a.setError(msg.Err)
			return a, nil
		}
		applied, err := a.ports.Runtime.ApplySuggestions(msg.Suggestions)
		if err != nil {
			a.status.Set(status.StateWarning, fmt.Sprintf("Applied %d suggestion(s): %v", len(applied), err))
			return a, nil
		}
		a.status.Set(status.StateNotice, fmt.Sprintf("Applied %d suggestion(s)", len(applied)))
		return a, nil

	case messages.Submitted:
		if msg.Err != nil {
			a.setError(msg.Err)
			return a, nil
		}
		a.submitted++
		a.ports.Runtime.Reset()
		a.lastChange = ""
		a.status.Set(status.StateNotice, "Submitted")
		return a, nil

	case messages.ErrorOccurred:
		a.setError(msg.Err)
		return a, nil

	case messages.Quit:
		return a, a.quit()
	}
	return a, nil
}

func (a *App) updateEditor(msg tea.KeyMsg) tea.Cmd {
	switch {
	case keymap.Matches(msg.String(), a.keymap.Confirm):
		id := a.editor.FieldID()
		if err := a.ports.Runtime.SetContext(id, a.editor.Value()); err != nil {
			a.setError(err)
		} else {
			a.status.Clear()
		}
		a.editor.Close()
		return nil
	case keymap.Matches(msg.String(), a.keymap.Cancel):
		a.editor.Close()
		a.status.Clear()
		return nil
	}
	var cmd tea.Cmd
	a.editor, cmd = a.editor.Update(msg)
	return cmd
}

//nolint:gocyclo // one branch per binding
func (a *App) handleKey(k string) tea.Cmd {
	km := a.keymap
	current := a.rows[a.cursor]
	rt := a.ports.Runtime

	switch {
	case keymap.Matches(k, km.Quit):
		return a.quit()
	case keymap.Matches(k, km.Help):
		a.showHelp = !a.showHelp
	case keymap.Matches(k, km.Up):
		if a.cursor > 0 {
			a.cursor--
		}
	case keymap.Matches(k, km.Down):
		if a.cursor < len(a.rows)-1 {
			a.cursor++
		}
	case keymap.Matches(k, km.Next):
		a.step(current, 1)
	case keymap.Matches(k, km.Prev):
		a.step(current, -1)
	case keymap.Matches(k, km.Clear):
		a.write(current, "")
	case keymap.Matches(k, km.Lock):
		a.toggleLock(current.field.ID)
	case keymap.Matches(k, km.Context):
		st, _ := rt.State(current.field.ID)
		a.status.Set(status.StateEditing, "")
		return a.editor.Open(current.field.ID, st.Context)
	case keymap.Matches(k, km.Suggest):
		return a.suggest()
	case keymap.Matches(k, km.Revert):
		a.report(rt.Revert(current.field.ID))
	case keymap.Matches(k, km.ClearAI):
		a.report(rt.ClearSuggestion(current.field.ID))
	case keymap.Matches(k, km.Reasoning):
		_, err := rt.ToggleReasoning(current.field.ID)
		a.report(err)
	case keymap.Matches(k, km.Submit):
		return a.submit()
	}
	return nil
}

func (a *App) quit() tea.Cmd {
	a.cancel()
	if a.unsubscribe != nil {
		a.unsubscribe()
		a.unsubscribe = nil
	}
	return tea.Quit
}

// step moves the row's value dir places through its choices.
func (a *App) step(r row, dir int) {
	choices := r.choices()
	idx := 0
	cur := a.value(r)
	for i, c := range choices {
		if c == cur {
			idx = i
			break
		}
	}
	idx = (idx + dir + len(choices)) % len(choices)
	a.write(r, choices[idx])
}

func (a *App) write(r row, value string) {
	var err error
	if r.item != nil {
		_, err = a.ports.Runtime.SetItem(r.field.ID, r.item.ID, value)
	} else {
		_, err = a.ports.Runtime.SetValue(r.field.ID, value, domain.Manual())
	}
	a.report(err)
}

func (a *App) value(r row) string {
	st, _ := a.ports.Runtime.State(r.field.ID)
	if r.item != nil {
		return st.Items[r.item.ID]
	}
	return st.Value
}

func (a *App) toggleLock(fieldID string) {
	st, _ := a.ports.Runtime.State(fieldID)
	if st.Locked {
		a.report(a.ports.Runtime.Unlock(fieldID))
		return
	}
	a.report(a.ports.Runtime.Lock(fieldID))
}

func (a *App) suggest() tea.Cmd {
	if a.suggesting {
		return nil
	}
	if !a.ports.CanSuggest() {
		a.status.Set(status.StateWarning, "Suggestions unavailable: configure a provider and pass --document")
		return nil
	}
	a.suggesting = true
	a.status.Set(status.StateWorking, "Asking for suggestions...")

	ctx, p := a.ctx, a.ports
	tmpl := p.Runtime.Template()
	return func() tea.Msg {
		s, err := p.Suggestions.Suggest(ctx, p.Document, p.Model, tmpl)
		return messages.SuggestionsLoaded{Suggestions: s, Err: err}
	}
}

func (a *App) submit() tea.Cmd {
	if a.ports.Submit == nil {
		a.status.Set(status.StateWarning, "Submitting is not available here")
		return nil
	}
	ctx, submit := a.ctx, a.ports.Submit
	annotation := a.ports.Runtime.Export()
	return func() tea.Msg {
		return messages.Submitted{Err: submit(ctx, annotation)}
	}
}

func (a *App) showNotice(n domain.Notice) {
	switch n.Kind {
	case domain.NoticeFieldsUpdated:
		a.status.Set(status.StateNotice, n.Message)
	case domain.NoticeTemplateChanged, domain.NoticeWarning:
		a.status.Set(status.StateWarning, n.Message)
	}
}

func (a *App) report(err error) {
	if err != nil {
		a.setError(err)
		return
	}
	if a.status.State() == status.StateError {
		a.status.Clear()
	}
}

func (a *App) setError(err error) {
	a.err = err
	a.status.Set(status.StateError, err.Error())
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}

	var b strings.Builder
	tmpl := a.ports.Runtime.Template()
	b.WriteString(a.styles.Title.Render(tmpl.Name))
	if a.ports.Document != "" {
		b.WriteString(a.styles.Muted.Render("  " + a.ports.Document))
	}
	b.WriteString("\n\n")

	if a.showHelp {
		b.WriteString(a.viewHelp())
	} else {
		b.WriteString(a.viewForm())
	}

	if a.editor.Focused() {
		b.WriteString("\n" + a.editor.View() + "\n")
	}
	if a.lastChange != "" {
		b.WriteString("\n" + a.styles.Muted.Render("last: "+a.lastChange) + "\n")
	}

	return lipgloss.JoinVertical(lipgloss.Left, b.String(), a.status.View())
}

func (a *App) viewForm() string {
	var b strings.Builder
	labelWidth := a.labelWidth()
	var header *domain.Field

	for i, r := range a.rows {
		st, _ := a.ports.Runtime.State(r.field.ID)

		if r.item != nil && header != r.field {
			header = r.field
			b.WriteString(a.styles.Subtitle.Render(fieldLabel(r.field)))
			if score := a.scoreLine(r.field); score != "" {
				b.WriteString(a.styles.Muted.Render("  " + score))
			}
			b.WriteString("\n")
		}

		label := fieldLabel(r.field)
		value := st.Value
		if r.item != nil {
			label = "  " + itemLabel(r.item)
			value = choiceLabel(r.field.ChoicesFor(r.item), st.Items[r.item.ID])
		}
		label = padRight(label, labelWidth)

		valueStyle := a.styles.ForProvenance(st.Provenance)
		if r.item != nil {
			valueStyle = a.styles.Manual
		}
		cell := valueStyle.Render(display(value))
		if r.item == nil {
			cell += a.badges(st)
		}
		if i == a.cursor {
			b.WriteString(a.styles.Selected.Render("> "+label) + "  " + cell)
		} else {
			b.WriteString("  " + label + "  " + cell)
		}
		b.WriteString("\n")

		if r.item == nil {
			if st.Context != "" {
				b.WriteString(a.styles.Muted.Render(strings.Repeat(" ", labelWidth+4)+st.Context) + "\n")
			}
			if st.ReasoningVisible && st.Reasoning != "" {
				b.WriteString(a.styles.Suggested.Render(strings.Repeat(" ", labelWidth+4)+"why: "+st.Reasoning) + "\n")
			}
		}
	}
	return b.String()
}

func (a *App) badges(st domain.FieldState) string {
	var out []string
	if st.Locked {
		out = append(out, a.styles.Locked.Render("[locked]"))
	}
	if st.AIActive {
		out = append(out, a.styles.Suggested.Render("[AI]"))
	}
	if st.RevealReasoning && !st.ReasoningVisible {
		out = append(out, a.styles.Muted.Render("[tab: why]"))
	}
	if len(out) == 0 {
		return ""
	}
	return " " + strings.Join(out, " ")
}

func (a *App) scoreLine(f *domain.Field) string {
	if a.ports.Scoring == nil || f.ChecklistScoring == nil {
		return ""
	}
	st, _ := a.ports.Runtime.State(f.ID)
	res, err := a.ports.Scoring.Compute(*f, st.Items)
	if err != nil {
		return ""
	}
	line := fmt.Sprintf("score %g -> %s", res.Sum, res.BucketLabel)
	if res.Downgraded {
		line += " (downgraded)"
	}
	return line
}

func (a *App) labelWidth() int {
	w := 0
	for _, r := range a.rows {
		l := lipgloss.Width(fieldLabel(r.field))
		if r.item != nil {
			l = lipgloss.Width(itemLabel(r.item)) + 2
		}
		if l > w {
			w = l
		}
	}
	return w
}

func (a *App) viewHelp() string {
	var b strings.Builder
	b.WriteString(a.styles.Subtitle.Render("Keys") + "\n")
	for _, group := range a.keymap.FullHelp() {
		for _, binding := range group {
			h := binding.Help()
			b.WriteString(fmt.Sprintf("  %-10s %s\n", h.Key, h.Desc))
		}
		b.WriteString("\n")
	}
	b.WriteString(a.styles.Help.Render("Values written by rules are blue, AI suggestions pink.") + "\n")
	return b.String()
}

func fieldLabel(f *domain.Field) string {
	if f.Label != "" {
		return f.Label
	}
	return f.ID
}

func itemLabel(it *domain.ChecklistItem) string {
	if it.Label != "" {
		return it.Label
	}
	return it.ID
}

func choiceLabel(choices []domain.ChecklistChoice, value string) string {
	for _, c := range choices {
		if c.Value == value && c.Label != "" {
			return c.Label
		}
	}
	return value
}

func display(v string) string {
	if v == "" {
		return "(empty)"
	}
	return v
}

func padRight(s string, width int) string {
	if pad := width - lipgloss.Width(s); pad > 0 {
		return s + strings.Repeat(" ", pad)
	}
	return s
}

// Run starts the form and blocks until the user quits.
func (a *App) Run() error {
	defer a.cancel()
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx))
	_, err := p.Run()
	if a.ctx.Err() != nil {
		return nil
	}
	return err
}

// Cursor returns the selected row index.
func (a *App) Cursor() int {
	return a.cursor
}

// Submitted returns how many annotations were stored in this run.
func (a *App) Submitted() int {
	return a.submitted
}

// Err returns the last error that occurred.
func (a *App) Err() error {
	return a.err
}

// Ready returns whether the app has been initialised.
func (a *App) Ready() bool {
	return a.ready
}

// SetDimensions sets the terminal dimensions.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true
	a.status.SetWidth(width)
	a.editor.SetWidth(width)
}
