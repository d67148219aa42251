package tui

import "errors"

// ErrMissingRuntime is returned when no field runtime is provided.
var ErrMissingRuntime = errors.New("tui: field runtime is required")

// ErrEmptyTemplate is returned when the runtime's template has no fields.
var ErrEmptyTemplate = errors.New("tui: template has no fields")
