package domain

import "time"

// SourceMode describes who owns the active template.
type SourceMode string

// Available source modes.
const (
	// SourceLocal is a locally owned, editable template.
	SourceLocal SourceMode = "local"

	// SourceSharedUnmanaged is a shared context without a template of its own.
	// Editing is allowed and the template may be promoted to the context.
	SourceSharedUnmanaged SourceMode = "shared-unmanaged"

	// SourceSharedManaged is a shared context whose template is authoritative.
	// Local editing is disabled except for saving a local copy.
	SourceSharedManaged SourceMode = "shared-managed"
)

// String returns the string representation.
func (m SourceMode) String() string {
	return string(m)
}

// Editable reports whether the active template may be edited in this mode.
func (m SourceMode) Editable() bool {
	return m != SourceSharedManaged
}

// Description returns a human-readable description of the mode.
func (m SourceMode) Description() string {
	switch m {
	case SourceLocal:
		return "Local (editable)"
	case SourceSharedUnmanaged:
		return "Shared context, no shared template (editable, can be promoted)"
	case SourceSharedManaged:
		return "Shared template (read-only, save a local copy to edit)"
	default:
		return "Unknown"
	}
}

// NoticeKind identifies a user-visible notice.
type NoticeKind string

// Available notice kinds.
const (
	// NoticeFieldsUpdated is the coalesced "fields were updated" notice.
	NoticeFieldsUpdated NoticeKind = "fields-updated"

	// NoticeTemplateChanged is the passive "template changed upstream" banner.
	NoticeTemplateChanged NoticeKind = "template-changed-upstream"

	// NoticeWarning is a non-fatal warning.
	NoticeWarning NoticeKind = "warning"
)

// Notice is a message for the presentation layer.
type Notice struct {
	Kind NoticeKind

	// DocumentID identifies the runtime for field notices.
	DocumentID string

	// ContextID identifies the shared context for template notices.
	ContextID string

	// FieldIDs lists the fields written since the previous notice.
	FieldIDs []string

	Message string
	At      time.Time
}
