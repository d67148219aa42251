package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/annotate-cli/internal/core/domain"
	"github.com/custodia-labs/annotate-cli/internal/core/ports/driving"
)

var sessionCmd = &cobra.Command{
	Use:   "session [template]",
	Short: "Run a scripted annotation session",
	Long: `Opens a document against a template and applies commands read one per
line from --script (or stdin). Every committed change is printed, including
values auto-filled or retracted by rules.

Commands:
  set <field> <value>          write a value manually
  item <field> <item> <value>  select a checklist choice
  context <field> <text>       write the evidence text
  lock <field> | unlock <field>
  suggest [model]              apply AI suggestions for --document
  revert <field>               restore the value from before the suggestion
  clear <field>                blank the AI text, keep the value
  toggle <field>               show or hide the AI reasoning
  show                         print every field
  score                        print checklist scores
  export                       print the submission as JSON
  flat                         print the submission as a flat row
  submit <annotator>           store the submission
  reset                        clear all fields

Lines starting with # are ignored. A failing command is reported and the
session continues unless --strict is set.`,
	Args: cobra.ExactArgs(1),
	RunE: runSession,
}

// Session command flags.
var (
	sessionScript   string
	sessionDocument string
	sessionSeed     string
	sessionShared   string
	sessionStrict   bool
	sessionMetrics  bool
)

func init() {
	sessionCmd.Flags().StringVarP(&sessionScript, "script", "s", "-", "Command file (- for stdin)")
	sessionCmd.Flags().StringVarP(&sessionDocument, "document", "d", "", "Document path, used by suggest and submit")
	sessionCmd.Flags().StringVar(&sessionSeed, "seed", "", "Prior annotation JSON to reopen")
	sessionCmd.Flags().StringVar(&sessionShared, "shared", "", "Use the template of this shared context")
	sessionCmd.Flags().BoolVar(&sessionStrict, "strict", false, "Stop at the first failing command")
	sessionCmd.Flags().BoolVar(&sessionMetrics, "metrics", false, "Print engine counters when the session ends")
	rootCmd.AddCommand(sessionCmd)
}

// session holds one open runtime and its template.
type session struct {
	out      io.Writer
	rt       driving.FieldRuntime
	tmpl     *domain.Template
	document string
	name     string
}

func runSession(cmd *cobra.Command, args []string) error {
	if annotationService == nil {
		return errNotConfigured("annotation")
	}
	ctx := context.Background()

	tmpl, err := resolveTemplate(ctx, args[0], sessionShared)
	if err != nil {
		return err
	}

	var seed *domain.Annotation
	if sessionSeed != "" {
		if seed, err = readAnnotationFile(sessionSeed, tmpl); err != nil {
			return err
		}
	}

	rt, err := annotationService.Open(tmpl, seed)
	if err != nil {
		return err
	}
	defer rt.Close()

	s := &session{out: cmd.OutOrStdout(), rt: rt, tmpl: tmpl, document: sessionDocument, name: args[0]}
	unsubscribe := rt.Subscribe(s.printChange)
	defer unsubscribe()

	in := cmd.InOrStdin()
	if sessionScript != "-" {
		f, err := os.Open(sessionScript)
		if err != nil {
			return fmt.Errorf("opening script: %w", err)
		}
		defer f.Close()
		in = f
	}

	failed := 0
	scanner := bufio.NewScanner(in)
	for line := 1; scanner.Scan(); line++ {
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		if err := s.exec(ctx, text); err != nil {
			failed++
			cmd.PrintErrf("line %d: %s: %v\n", line, text, err)
			if sessionStrict {
				return fmt.Errorf("session stopped at line %d: %w", line, err)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading script: %w", err)
	}

	if sessionMetrics && engineMetrics != nil {
		if err := engineMetrics.WriteSummary(cmd.OutOrStdout()); err != nil {
			return err
		}
	}
	if failed > 0 {
		cmd.PrintErrf("%d command(s) failed\n", failed)
	}
	return nil
}

func (s *session) printChange(c domain.Change) {
	target := c.FieldID
	if c.ItemID != "" {
		target += "/" + c.ItemID
	}
	fmt.Fprintf(s.out, "  %s: %q -> %q (%s)\n", target, c.Old, c.New, c.Provenance)
}

func (s *session) exec(ctx context.Context, line string) error {
	parts := strings.Fields(line)
	verb, rest := parts[0], parts[1:]

	need := func(n int) error {
		if len(rest) < n {
			return fmt.Errorf("%w: %s needs %d argument(s)", domain.ErrInvalidInput, verb, n)
		}
		return nil
	}

	switch verb {
	case "set":
		if err := need(1); err != nil {
			return err
		}
		value := strings.Join(rest[1:], " ")
		_, err := s.rt.SetValue(rest[0], value, domain.Manual())
		return err

	case "item":
		if err := need(3); err != nil {
			return err
		}
		_, err := s.rt.SetItem(rest[0], rest[1], strings.Join(rest[2:], " "))
		return err

	case "context":
		if err := need(1); err != nil {
			return err
		}
		return s.rt.SetContext(rest[0], strings.Join(rest[1:], " "))

	case "lock", "unlock", "revert", "clear", "toggle":
		if err := need(1); err != nil {
			return err
		}
		return s.fieldAction(verb, rest[0])

	case "suggest":
		model := ""
		if len(rest) > 0 {
			model = rest[0]
		}
		return s.suggest(ctx, model)

	case "show":
		s.show()
		return nil

	case "score":
		return s.score()

	case "export":
		return writeJSON(s.out, s.rt.Export())

	case "flat":
		return writeJSON(s.out, s.rt.Export().Flatten())

	case "submit":
		if err := need(1); err != nil {
			return err
		}
		return s.submit(ctx, rest[0])

	case "reset":
		s.rt.Reset()
		fmt.Fprintln(s.out, "  (reset)")
		return nil

	default:
		return fmt.Errorf("%w: unknown command %q", domain.ErrInvalidInput, verb)
	}
}

func (s *session) fieldAction(verb, fieldID string) error {
	switch verb {
	case "lock":
		return s.rt.Lock(fieldID)
	case "unlock":
		return s.rt.Unlock(fieldID)
	case "revert":
		return s.rt.Revert(fieldID)
	case "clear":
		return s.rt.ClearSuggestion(fieldID)
	default:
		visible, err := s.rt.ToggleReasoning(fieldID)
		if err != nil {
			return err
		}
		if visible {
			st, _ := s.rt.State(fieldID)
			fmt.Fprintf(s.out, "  %s reasoning: %s\n", fieldID, st.Reasoning)
		}
		return nil
	}
}

func (s *session) suggest(ctx context.Context, model string) error {
	if suggestionService == nil || !suggestionService.Available() {
		return domain.ErrSuggestionsUnavailable
	}
	if s.document == "" {
		return fmt.Errorf("%w: suggest needs --document", domain.ErrInvalidInput)
	}
	suggestions, err := suggestionService.Suggest(ctx, s.document, model, s.tmpl)
	if err != nil {
		return err
	}
	written, err := s.rt.ApplySuggestions(suggestions)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "  applied %d suggestion(s)\n", len(written))
	return nil
}

func (s *session) show() {
	for _, f := range s.tmpl.Fields {
		st, _ := s.rt.State(f.ID)
		var flags []string
		if st.Locked {
			flags = append(flags, "locked")
		}
		if st.AIActive {
			flags = append(flags, "ai")
		}
		if st.Provenance.Kind != "" {
			flags = append(flags, st.Provenance.String())
		}

		value := st.Value
		if f.Type == domain.FieldTypeChecklist {
			value = formatItems(st.Items)
		}
		line := fmt.Sprintf("  %-24s %q", f.ID, value)
		if len(flags) > 0 {
			line += " [" + strings.Join(flags, ",") + "]"
		}
		fmt.Fprintln(s.out, line)
		if st.Context != "" {
			fmt.Fprintf(s.out, "  %-24s context: %s\n", "", st.Context)
		}
	}
}

func (s *session) score() error {
	if scoringService == nil {
		return errNotConfigured("scoring")
	}
	results := scoringService.ComputeAll(s.tmpl, s.rt.Export())
	if len(results) == 0 {
		fmt.Fprintln(s.out, "  no scored checklist fields")
		return nil
	}
	printScores(s.out, results)
	return nil
}

func (s *session) submit(ctx context.Context, annotator string) error {
	if annotationStore == nil {
		return errNotConfigured("annotation store")
	}
	ref := s.document
	if ref == "" {
		ref = s.rt.DocumentID()
	}
	rec := domain.AnnotationRecord{DocumentRef: ref, Annotator: annotator, Annotation: s.rt.Export()}
	if err := annotationStore.Save(ctx, s.name, rec); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "  submitted %s by %s\n", ref, annotator)
	s.rt.Reset()
	return nil
}

func formatItems(items map[string]string) string {
	keys := make([]string, 0, len(items))
	for k := range items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + items[k]
	}
	return strings.Join(parts, " ")
}

func printScores(w io.Writer, results map[string]domain.ChecklistResult) {
	ids := make([]string, 0, len(results))
	for id := range results {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		r := results[id]
		label := r.BucketLabel
		if r.Downgraded {
			label += fmt.Sprintf(" (downgraded from %s)", r.BaseLabel)
		}
		fmt.Fprintf(w, "  %s: sum %g, %d answered, %d unanswered, %d %s -> %s\n",
			id, r.Sum, r.Answered, r.Unanswered, r.NACount, naName(r.NALabel), label)
	}
}

func naName(label string) string {
	if label == "" {
		return "NA"
	}
	return label
}
