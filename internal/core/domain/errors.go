package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// Template Errors.

	// ErrInvalidTemplate indicates a template document failed validation.
	// The previously active template stays in effect.
	ErrInvalidTemplate = errors.New("invalid template")

	// ErrInvalidTemplateName indicates a template name with forbidden characters.
	ErrInvalidTemplateName = errors.New("invalid template name")

	// ErrTemplateManaged indicates the active template is owned by a shared
	// context and cannot be edited locally.
	ErrTemplateManaged = errors.New("template is managed by a shared context")

	// ErrNotConnected indicates an operation needs a shared context.
	ErrNotConnected = errors.New("no shared context connected")

	// ErrNoActiveTemplate indicates no template has been activated yet.
	ErrNoActiveTemplate = errors.New("no active template")

	// Runtime Errors.

	// ErrUnknownField indicates a field id that is not part of the template.
	ErrUnknownField = errors.New("unknown field")

	// ErrUnknownItem indicates a checklist item id that is not part of the field.
	ErrUnknownItem = errors.New("unknown checklist item")

	// ErrInvalidValue indicates a value that the field type does not accept.
	ErrInvalidValue = errors.New("invalid field value")

	// ErrCascadeLimit indicates rule propagation exceeded its bound,
	// usually because the template's rules form a cycle.
	ErrCascadeLimit = errors.New("rule cascade limit exceeded")

	// ErrRuntimeClosed indicates the runtime has been torn down.
	ErrRuntimeClosed = errors.New("runtime closed")

	// ErrNoSnapshot indicates there is no AI suggestion to revert.
	ErrNoSnapshot = errors.New("no AI suggestion to revert")

	// ErrNoScoring indicates a checklist field has no scoring configuration.
	ErrNoScoring = errors.New("field has no checklist scoring")

	// AI Errors.

	// ErrSuggestionsUnavailable indicates no AI suggestion source is configured.
	ErrSuggestionsUnavailable = errors.New("AI suggestion source unavailable")

	// ErrRateLimited indicates the AI provider rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")
)

// ValidationError lists every problem found in a template document.
type ValidationError struct {
	Problems []string
}

// Error implements error.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidTemplate, strings.Join(e.Problems, "; "))
}

// Unwrap lets errors.Is match ErrInvalidTemplate.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidTemplate
}

// CascadeError reports where rule propagation was stopped.
type CascadeError struct {
	// Path is the chain of field=value writes that led to the abort.
	Path []string

	// Reason is either "cycle" or "depth".
	Reason string
}

// Error implements error.
func (e *CascadeError) Error() string {
	return fmt.Sprintf("%s (%s): %s", ErrCascadeLimit, e.Reason, strings.Join(e.Path, " -> "))
}

// Unwrap lets errors.Is match ErrCascadeLimit.
func (e *CascadeError) Unwrap() error {
	return ErrCascadeLimit
}
