package llm

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/custodia-labs/annotate-cli/internal/core/domain"
)

// ParseResponse decodes a model answer into per-field suggestions. The
// answer may or may not be wrapped in WrapperKey, and may be fenced in a
// markdown code block. Only fields of tmpl are read.
func ParseResponse(data []byte, tmpl *domain.Template) (domain.Suggestions, error) {
	raw := stripFence(strings.TrimSpace(string(data)))

	var top map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &top); err != nil {
		return nil, fmt.Errorf("%w: response is not a JSON object: %w", domain.ErrInvalidInput, err)
	}
	if inner, ok := top[WrapperKey]; ok {
		var unwrapped map[string]json.RawMessage
		if err := json.Unmarshal(inner, &unwrapped); err != nil {
			return nil, fmt.Errorf("%w: %s is not an object: %w", domain.ErrInvalidInput, WrapperKey, err)
		}
		top = unwrapped
	}

	out := make(domain.Suggestions)
	for _, f := range SuggestableFields(tmpl) {
		value, hasValue := scalar(top[f.ID])
		ctx, _ := scalar(top[f.ID+ContextSuffix])
		reasoning, _ := scalar(top[f.ID+ReasoningSuffix])
		if !hasValue && ctx == "" && reasoning == "" {
			continue
		}
		out[f.ID] = domain.Suggestion{Value: value, Context: ctx, Reasoning: reasoning}
	}
	return out, nil
}

// scalar renders a JSON string, bool or number as text. Null and absent
// values report false.
func scalar(msg json.RawMessage) (string, bool) {
	if len(msg) == 0 {
		return "", false
	}
	var v any
	if err := json.Unmarshal(msg, &v); err != nil {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return t, true
	case bool:
		return strconv.FormatBool(t), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	default:
		return "", false
	}
}

func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}
