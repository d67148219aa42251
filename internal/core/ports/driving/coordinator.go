package driving

import (
	"context"

	"github.com/custodia-labs/annotate-cli/internal/core/domain"
)

// SourceCoordinator tracks whether the active template is local or shared
// and gates template edits accordingly.
type SourceCoordinator interface {
	// Mode returns the current source mode.
	Mode() domain.SourceMode

	// Active returns a copy of the active template, nil if none.
	Active() *domain.Template

	// Editable reports whether Edit is currently allowed.
	Editable() bool

	// ContextID returns the connected shared context, empty when local.
	ContextID() string

	// LocalName returns the name the local template is persisted under.
	LocalName() string

	// Stale reports whether the shared template changed upstream since it was loaded.
	Stale() bool

	// UseLocal activates a stored local template.
	UseLocal(ctx context.Context, name string) error

	// Edit replaces the active template with an edited version.
	Edit(ctx context.Context, tmpl *domain.Template) error

	// Connect joins a shared context.
	Connect(ctx context.Context, contextID string) (domain.SourceMode, error)

	// SaveShared promotes the active template to the connected context.
	SaveShared(ctx context.Context) error

	// SaveLocalCopy stores the active template locally under name.
	SaveLocalCopy(ctx context.Context, name string) error

	// Disconnect leaves the shared context.
	Disconnect()

	// CheckUpstream compares the remote marker with the loaded one.
	CheckUpstream(ctx context.Context) (bool, error)

	// Reload re-fetches the shared template and clears staleness.
	Reload(ctx context.Context) error

	// Close stops background polling.
	Close() error
}
