package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/annotate-cli/internal/core/domain"
	"github.com/custodia-labs/annotate-cli/internal/core/ports/driven"
	"github.com/custodia-labs/annotate-cli/internal/core/ports/driving"
	"github.com/custodia-labs/annotate-cli/internal/logger"
)

// Ensure TemplateService implements the interface.
var _ driving.TemplateService = (*TemplateService)(nil)

// templateNamePattern restricts stored template names to safe file-like names.
var templateNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// templateValidate is the validator instance for template documents.
// Initialised in init() with the struct-level field checks.
var templateValidate *validator.Validate

func init() {
	templateValidate = validator.New(validator.WithRequiredStructEnabled())

	// Report paths using the document's own key names (fields[2].id).
	templateValidate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	templateValidate.RegisterStructValidation(validateFieldLevel, domain.Field{})
}

// validateFieldLevel enforces the per-type requirements tags cannot express.
func validateFieldLevel(sl validator.StructLevel) {
	f, ok := sl.Current().Interface().(domain.Field)
	if !ok {
		return
	}
	if f.Type == domain.FieldTypeSelect && len(f.Options) == 0 {
		sl.ReportError(f.Options, "options", "Options", "selectoptions", "")
	}
}

// TemplateService parses, validates, normalises and stores templates.
type TemplateService struct {
	store driven.TemplateStore
}

// NewTemplateService creates a template service. store may be nil when only
// parsing and validation are needed.
func NewTemplateService(store driven.TemplateStore) *TemplateService {
	return &TemplateService{store: store}
}

// Parse decodes a JSON or YAML template document.
func (s *TemplateService) Parse(data []byte, format driving.TemplateFormat) (*domain.Template, error) {
	if format == driving.FormatAuto {
		format = DetectTemplateFormat(data)
	}

	var t domain.Template
	switch format {
	case driving.FormatJSON:
		if err := json.Unmarshal(data, &t); err != nil {
			return nil, fmt.Errorf("%w: parse json: %w", domain.ErrInvalidTemplate, err)
		}
	case driving.FormatYAML:
		if err := yaml.Unmarshal(data, &t); err != nil {
			return nil, fmt.Errorf("%w: parse yaml: %w", domain.ErrInvalidTemplate, err)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported template format %q", domain.ErrInvalidInput, format)
	}
	return &t, nil
}

// DetectTemplateFormat guesses the document format from its first non-space byte.
func DetectTemplateFormat(data []byte) driving.TemplateFormat {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		return driving.FormatJSON
	}
	return driving.FormatYAML
}

// FormatFromPath returns the template format implied by a file extension.
func FormatFromPath(path string) driving.TemplateFormat {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".json"):
		return driving.FormatJSON
	case strings.HasSuffix(lower, ".yaml"), strings.HasSuffix(lower, ".yml"):
		return driving.FormatYAML
	default:
		return driving.FormatAuto
	}
}

// Encode renders a template as indented JSON or YAML.
func (s *TemplateService) Encode(tmpl *domain.Template, format driving.TemplateFormat) ([]byte, error) {
	if tmpl == nil {
		return nil, domain.ErrInvalidInput
	}
	switch format {
	case driving.FormatJSON, driving.FormatAuto:
		data, err := json.MarshalIndent(tmpl, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode json: %w", err)
		}
		return append(data, '\n'), nil
	case driving.FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(tmpl); err != nil {
			return nil, fmt.Errorf("encode yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("encode yaml: %w", err)
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("%w: unsupported template format %q", domain.ErrInvalidInput, format)
	}
}

// Validate rejects templates with structural problems. All problems are
// reported at once in a *domain.ValidationError.
func (s *TemplateService) Validate(tmpl *domain.Template) error {
	if tmpl == nil {
		return &domain.ValidationError{Problems: []string{"template is empty"}}
	}

	err := templateValidate.Struct(tmpl)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %w", domain.ErrInvalidTemplate, err)
	}

	problems := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		problems = append(problems, describeFieldError(tmpl, fe))
	}
	return &domain.ValidationError{Problems: problems}
}

// describeFieldError turns a validator error into a readable problem.
func describeFieldError(tmpl *domain.Template, fe validator.FieldError) string {
	path := fe.Namespace()
	if i := strings.Index(path, "."); i >= 0 {
		path = path[i+1:]
	}

	var msg string
	switch fe.Tag() {
	case "required":
		msg = "is required"
	case "min":
		msg = "must contain at least " + fe.Param() + " entry"
	case "unique":
		msg = "contains duplicate field ids: " + strings.Join(duplicateFieldIDs(tmpl), ", ")
	case "oneof":
		msg = fmt.Sprintf("must be one of [%s], got %q", fe.Param(), fe.Value())
	case "selectoptions":
		msg = "select field needs at least one option"
	default:
		msg = "failed " + fe.Tag() + " check"
	}
	return path + " " + msg
}

func duplicateFieldIDs(tmpl *domain.Template) []string {
	seen := make(map[string]int, len(tmpl.Fields))
	var dups []string
	for _, f := range tmpl.Fields {
		seen[f.ID]++
		if seen[f.ID] == 2 {
			dups = append(dups, fmt.Sprintf("%q", f.ID))
		}
	}
	return dups
}

// Normalize returns a cleaned deep copy of tmpl and the non-fatal fixes
// applied. Invalid rules and scoring entries are dropped, never rejected.
func (s *TemplateService) Normalize(tmpl *domain.Template) (*domain.Template, []string) {
	if tmpl == nil {
		return nil, nil
	}
	out := tmpl.Clone()
	var warnings []string
	warn := func(format string, args ...any) {
		warnings = append(warnings, fmt.Sprintf(format, args...))
	}

	for i := range out.Fields {
		f := &out.Fields[i]
		if !f.AISummaryTarget.IsValid() {
			f.AISummaryTarget = domain.SummaryContext
		}
		if f.Type != domain.FieldTypeChecklist {
			if f.ChecklistScoring != nil {
				warn("field %q: scoring only applies to checklist fields; dropped", f.ID)
				f.ChecklistScoring = nil
			}
			continue
		}
		normalizeChecklist(f, warn)
	}

	for i := range out.Fields {
		normalizeRules(out, &out.Fields[i], warn)
	}

	return out, warnings
}

func normalizeChecklist(f *domain.Field, warn func(string, ...any)) {
	seen := make(map[string]bool, len(f.ChecklistItems))
	items := f.ChecklistItems[:0]
	for _, item := range f.ChecklistItems {
		if item.ID == "" || seen[item.ID] {
			warn("field %q: checklist item %q is empty or duplicated; dropped", f.ID, item.ID)
			continue
		}
		seen[item.ID] = true
		item.Choices = dedupeChoices(item.Choices)
		items = append(items, item)
	}
	f.ChecklistItems = items

	hadChoices := len(f.ChecklistChoices) > 0
	f.ChecklistChoices = dedupeChoices(f.ChecklistChoices)
	if len(f.ChecklistChoices) == 0 {
		if hadChoices {
			warn("field %q: checklist choices are malformed; using defaults", f.ID)
		}
		f.ChecklistChoices = domain.DefaultChecklistChoices()
	}

	if f.ChecklistScoring != nil {
		f.ChecklistScoring = normalizeScoring(f, warn)
	}
}

// dedupeChoices drops empty and repeated choice values, keeping the first.
func dedupeChoices(in []domain.ChecklistChoice) []domain.ChecklistChoice {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(in))
	out := make([]domain.ChecklistChoice, 0, len(in))
	for _, c := range in {
		c.Value = strings.TrimSpace(c.Value)
		if c.Value == "" || seen[c.Value] {
			continue
		}
		seen[c.Value] = true
		if c.Label == "" {
			c.Label = c.Value
		}
		out = append(out, c)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func normalizeScoring(f *domain.Field, warn func(string, ...any)) *domain.ChecklistScoring {
	sc := f.ChecklistScoring
	if sc.Mode == "" {
		sc.Mode = domain.ScoringModeSum
	}
	if sc.Mode != domain.ScoringModeSum {
		warn("field %q: unsupported scoring mode %q; scoring dropped", f.ID, sc.Mode)
		return nil
	}
	if sc.NALabel == "" {
		sc.NALabel = "N/A"
	}
	if len(sc.NAValues) == 0 {
		sc.NAValues = []string{"na"}
	}

	buckets := sc.Buckets[:0]
	for _, b := range sc.Buckets {
		if b.Label == "" {
			warn("field %q: scoring bucket without label; dropped", f.ID)
			continue
		}
		if b.Min != nil && b.Max != nil && *b.Min > *b.Max {
			warn("field %q: bucket %q has min above max; dropped", f.ID, b.Label)
			continue
		}
		buckets = append(buckets, b)
	}
	sc.Buckets = buckets

	rules := sc.DowngradeRules[:0]
	for _, r := range sc.DowngradeRules {
		if _, ok := f.Item(r.ItemID); !ok {
			warn("field %q: downgrade rule references unknown item %q; dropped", f.ID, r.ItemID)
			continue
		}
		if r.TargetLabel == "" || len(r.MatchValues) == 0 {
			warn("field %q: downgrade rule for item %q is incomplete; dropped", f.ID, r.ItemID)
			continue
		}
		rules = append(rules, r)
	}
	sc.DowngradeRules = rules

	if len(sc.Buckets) == 0 && len(sc.DowngradeRules) == 0 {
		warn("field %q: scoring has no buckets or downgrade rules; dropped", f.ID)
		return nil
	}
	return sc
}

// normalizeRules drops rules that could never apply cleanly.
func normalizeRules(t *domain.Template, owner *domain.Field, warn func(string, ...any)) {
	if len(owner.AutoFillRules) == 0 {
		return
	}
	rules := owner.AutoFillRules[:0]
	for _, r := range owner.AutoFillRules {
		target, ok := t.FieldByID(r.TargetID)
		switch {
		case !ok:
			warn("field %q: rule targets unknown field %q; dropped", owner.ID, r.TargetID)
			continue
		case r.TargetID == owner.ID:
			warn("field %q: rule targets itself; dropped", owner.ID)
			continue
		case owner.Type == domain.FieldTypeChecklist || target.Type == domain.FieldTypeChecklist:
			warn("field %q: rules cannot involve checklist fields; rule on %q dropped", owner.ID, r.TargetID)
			continue
		}

		trigger, ok := normalizeFieldValue(owner, r.TriggerValue)
		if !ok || trigger == "" {
			warn("field %q: rule trigger %q is not a valid value; dropped", owner.ID, r.TriggerValue)
			continue
		}
		value, ok := normalizeFieldValue(target, r.TargetValue)
		if !ok {
			warn("field %q: rule value %q is not valid for %q; dropped", owner.ID, r.TargetValue, target.ID)
			continue
		}
		r.TriggerValue = trigger
		r.TargetValue = value
		rules = append(rules, r)
	}
	owner.AutoFillRules = rules
}

// normalizeFieldValue canonicalises v for f. Booleans become "true" or
// "false"; select values must be one of the options. Empty clears.
func normalizeFieldValue(f *domain.Field, v string) (string, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", true
	}
	switch f.Type {
	case domain.FieldTypeBoolean:
		switch strings.ToLower(v) {
		case "true", "yes", "1", "on":
			return "true", true
		case "false", "no", "0", "off":
			return "false", true
		}
		return "", false
	case domain.FieldTypeSelect:
		return v, f.HasOption(v)
	default:
		return v, true
	}
}

// Prepare validates then normalises a template, logging the warnings.
func (s *TemplateService) Prepare(tmpl *domain.Template) (*domain.Template, []string, error) {
	if err := s.Validate(tmpl); err != nil {
		return nil, nil, err
	}
	out, warnings := s.Normalize(tmpl)
	for _, w := range warnings {
		logger.Warn("template %q: %s", tmpl.Name, w)
	}
	return out, warnings, nil
}

// Load retrieves, validates and normalises a stored template.
func (s *TemplateService) Load(ctx context.Context, name string) (*domain.Template, error) {
	if err := s.checkStore(name); err != nil {
		return nil, err
	}
	raw, err := s.store.Load(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("load template %q: %w", name, err)
	}
	out, _, err := s.Prepare(raw)
	if err != nil {
		return nil, fmt.Errorf("load template %q: %w", name, err)
	}
	return out, nil
}

// Save validates and stores the normalised form of a template.
func (s *TemplateService) Save(ctx context.Context, name string, tmpl *domain.Template) error {
	if err := s.checkStore(name); err != nil {
		return err
	}
	out, _, err := s.Prepare(tmpl)
	if err != nil {
		return err
	}
	if err := s.store.Save(ctx, name, out); err != nil {
		return fmt.Errorf("save template %q: %w", name, err)
	}
	logger.Debug("saved template %q (%d fields)", name, len(out.Fields))
	return nil
}

// List returns stored template names.
func (s *TemplateService) List(ctx context.Context) ([]string, error) {
	if s.store == nil {
		return nil, domain.ErrNotFound
	}
	return s.store.List(ctx)
}

// Delete removes a stored template.
func (s *TemplateService) Delete(ctx context.Context, name string) error {
	if err := s.checkStore(name); err != nil {
		return err
	}
	return s.store.Delete(ctx, name)
}

func (s *TemplateService) checkStore(name string) error {
	if err := ValidateTemplateName(name); err != nil {
		return err
	}
	if s.store == nil {
		return domain.ErrNotFound
	}
	return nil
}

// ValidateTemplateName checks a stored template name.
func ValidateTemplateName(name string) error {
	if !templateNamePattern.MatchString(name) {
		return fmt.Errorf("%w: %q (use letters, digits, '-' and '_')", domain.ErrInvalidTemplateName, name)
	}
	return nil
}
