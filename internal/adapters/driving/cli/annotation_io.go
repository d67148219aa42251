package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/custodia-labs/annotate-cli/internal/core/domain"
)

// resolveTemplate activates a local template, or the template of a shared
// context when sharedID is set, and returns the active template.
func resolveTemplate(ctx context.Context, name, sharedID string) (*domain.Template, error) {
	if coordinator == nil {
		if templateService == nil || sharedID != "" {
			return nil, errNotConfigured("coordinator")
		}
		return templateService.Load(ctx, name)
	}

	if sharedID != "" {
		if _, err := connectShared(ctx, sharedID, name); err != nil {
			return nil, err
		}
	} else {
		if coordinator.ContextID() != "" {
			coordinator.Disconnect()
		}
		if err := coordinator.UseLocal(ctx, name); err != nil {
			return nil, err
		}
	}

	tmpl := coordinator.Active()
	if tmpl == nil {
		return nil, domain.ErrNoActiveTemplate
	}
	return tmpl, nil
}

// readAnnotationFile reads an annotation as either the structured form
// ({"values": ...}) or a flat submission row ({"<id>": ..., "<id>_context": ...}).
func readAnnotationFile(path string, tmpl *domain.Template) (*domain.Annotation, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return parseAnnotation(data, tmpl)
}

func parseAnnotation(data []byte, tmpl *domain.Template) (*domain.Annotation, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("%w: annotation is not a JSON object: %w", domain.ErrInvalidInput, err)
	}

	if _, structured := probe["values"]; structured {
		a := domain.NewAnnotation()
		if err := json.Unmarshal(data, &a); err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
		}
		return &a, nil
	}

	row := make(map[string]string, len(probe))
	for k, raw := range probe {
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			continue
		}
		switch t := v.(type) {
		case string:
			row[k] = t
		case bool:
			row[k] = fmt.Sprint(t)
		case float64:
			row[k] = fmt.Sprint(t)
		}
	}
	a := domain.ParseFlatAnnotation(tmpl, row)
	return &a, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
