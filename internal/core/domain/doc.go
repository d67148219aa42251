// Package domain defines the core business entities for annotate.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Template: A declarative annotation form (fields, rules, scoring)
//   - Field: One annotatable attribute with optional auto-fill rules
//   - FieldState: The runtime value, provenance and AI overlay of a field
//   - Annotation: The submission payload exported from a runtime
//   - ChecklistResult: The derived score of a checklist field
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
