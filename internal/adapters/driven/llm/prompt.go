// Package llm holds what the AI suggestion adapters share: the prompt and
// response contract derived from a template, and request rate limiting.
package llm

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/annotate-cli/internal/core/domain"
	"github.com/custodia-labs/annotate-cli/internal/core/ports/driven"
)

// Response key conventions. A field "x" is answered by "x", "x_context"
// and "x_reasoning", all wrapped in a single top-level object.
const (
	WrapperKey      = "GeminiResponse"
	ContextSuffix   = "_context"
	ReasoningSuffix = "_reasoning"
)

// DefaultPreamble opens every suggestion prompt unless the user overrides it.
const DefaultPreamble = `**ROLE AND GOAL:**
You are an expert research analyst AI. Your task is to meticulously analyze the document provided and fill out a JSON object based on the template below. You must base all your answers *only* on the text of the document.

**OUTPUT FORMAT:**
You MUST respond with a single, valid JSON object that strictly adheres to the schema provided. Do not add any explanatory text, markdown formatting, or comments before or after the JSON object.

---
**INSTRUCTIONS FOR FILLING THE JSON:**

For each field defined below, you MUST provide all three of the following pieces of information:

1.  **A value**: A ` + "`boolean`" + ` (` + "`true`/`false`" + `) for boolean fields, or a ` + "`string`" + ` from the allowed list for selection fields.
2.  **` + "`_context`" + `**: A **direct quote** from the text that provides the *best evidence* for your decision. If your decision is ` + "`false`" + ` or no evidence was found, this MUST be an empty string ` + "`\"\"`" + `.
3.  **` + "`_reasoning`" + `**: A concise explanation of *why* the provided context (or lack thereof) justifies your decision. This field is **mandatory**.

---
**DETAILED GUIDES FOR EACH FIELD:**

`

// SuggestableFields returns the fields an AI provider is asked about:
// booleans, and selects with at least one option.
func SuggestableFields(tmpl *domain.Template) []domain.Field {
	if tmpl == nil {
		return nil
	}
	out := make([]domain.Field, 0, len(tmpl.Fields))
	for _, f := range tmpl.Fields {
		switch {
		case f.ID == "":
		case f.Type == domain.FieldTypeBoolean:
			out = append(out, f)
		case f.Type == domain.FieldTypeSelect && len(f.Options) > 0:
			out = append(out, f)
		}
	}
	return out
}

// Preamble returns the prompt preamble from store, or DefaultPreamble when
// store is nil or has none.
func Preamble(store driven.PromptStore) string {
	if store == nil {
		return DefaultPreamble
	}
	p, err := store.Load(driven.PromptSuggestPreamble)
	if err != nil || strings.TrimSpace(p) == "" {
		return DefaultPreamble
	}
	return strings.TrimRight(p, "\n") + "\n\n"
}

// BuildPrompt renders the instruction prompt for a template with the
// default preamble.
func BuildPrompt(tmpl *domain.Template) string {
	return BuildPromptWith(DefaultPreamble, tmpl)
}

// BuildPromptWith renders the instruction prompt for a template after preamble.
func BuildPromptWith(preamble string, tmpl *domain.Template) string {
	var b strings.Builder
	b.WriteString(preamble)
	for _, f := range SuggestableFields(tmpl) {
		label := f.Label
		if label == "" {
			label = f.ID
		}
		fmt.Fprintf(&b, "### For %q:\n", f.ID)
		fmt.Fprintf(&b, "**Task**: Determine the value for %q.\n", label)

		def := strings.TrimSpace(f.Description)
		if f.Type == domain.FieldTypeSelect {
			opts := make([]string, len(f.Options))
			for i, o := range f.Options {
				opts[i] = "`" + o + "`"
			}
			def = strings.TrimSpace(def + " You MUST choose one of the following options: " + strings.Join(opts, ", ") + ".")
		}
		if def != "" {
			fmt.Fprintf(&b, "**Definition**: %s\n", def)
		}
		if f.HelperText != "" {
			fmt.Fprintf(&b, "**Guidance**: %s\n", f.HelperText)
		}
		b.WriteString("\n")
	}
	return b.String()
}
