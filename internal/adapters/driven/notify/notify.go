// Package notify provides driven.Notifier implementations.
package notify

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/custodia-labs/annotate-cli/internal/core/domain"
	"github.com/custodia-labs/annotate-cli/internal/core/ports/driven"
	"github.com/custodia-labs/annotate-cli/internal/logger"
)

var (
	_ driven.Notifier = (*Writer)(nil)
	_ driven.Notifier = (*Recorder)(nil)
	_ driven.Notifier = Multi(nil)
	_ driven.Notifier = (*Relay)(nil)
)

// Writer prints notices as single lines, e.g. for the CLI session.
type Writer struct {
	mu  sync.Mutex
	out io.Writer
}

// NewWriter creates a notifier printing to out.
func NewWriter(out io.Writer) *Writer {
	return &Writer{out: out}
}

// Notify prints the notice and mirrors it to the verbose log.
func (w *Writer) Notify(n domain.Notice) {
	logger.Debug("notice %s: %s", n.Kind, n.Message)

	var prefix string
	switch n.Kind {
	case domain.NoticeWarning:
		prefix = "warning"
	case domain.NoticeTemplateChanged:
		prefix = "template"
	default:
		prefix = "notice"
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintf(w.out, "[%s] %s\n", prefix, strings.TrimSpace(n.Message))
}

// Recorder keeps every notice in memory.
type Recorder struct {
	mu      sync.Mutex
	notices []domain.Notice
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Notify records the notice.
func (r *Recorder) Notify(n domain.Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

// Notices returns a copy of the recorded notices.
func (r *Recorder) Notices() []domain.Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Notice(nil), r.notices...)
}

// Count returns the number of recorded notices of kind.
func (r *Recorder) Count(kind domain.NoticeKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, notice := range r.notices {
		if notice.Kind == kind {
			n++
		}
	}
	return n
}

// Multi fans a notice out to several notifiers.
type Multi []driven.Notifier

// Notify forwards the notice to every non-nil notifier.
func (m Multi) Notify(n domain.Notice) {
	for _, target := range m {
		if target != nil {
			target.Notify(n)
		}
	}
}

// Relay forwards notices to a target that can be swapped at runtime, so a
// full-screen view can take over notices printed to the terminal otherwise.
type Relay struct {
	mu     sync.RWMutex
	target driven.Notifier
}

// NewRelay creates a relay forwarding to target.
func NewRelay(target driven.Notifier) *Relay {
	return &Relay{target: target}
}

// Notify forwards the notice to the current target.
func (r *Relay) Notify(n domain.Notice) {
	r.mu.RLock()
	target := r.target
	r.mu.RUnlock()
	if target != nil {
		target.Notify(n)
	}
}

// Redirect sends notices to target until the returned restore func is called.
func (r *Relay) Redirect(target driven.Notifier) (restore func()) {
	r.mu.Lock()
	prev := r.target
	r.target = target
	r.mu.Unlock()
	return func() {
		r.mu.Lock()
		r.target = prev
		r.mu.Unlock()
	}
}
