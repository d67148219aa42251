// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/annotate-cli/internal/core/domain"
)

// NoticeReceived carries an engine or coordinator notice to the model.
type NoticeReceived struct {
	Notice domain.Notice
}

// SuggestionsLoaded carries the AI answers for the open document.
type SuggestionsLoaded struct {
	Suggestions domain.Suggestions
	Err         error
}

// Submitted reports the result of storing the annotation.
type Submitted struct {
	Err error
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}

// Quit signals the application should exit.
type Quit struct{}
