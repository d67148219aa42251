// Package services implements the driving port interfaces.
// Services contain the field engine and orchestrate calls to driven
// ports (adapters).
//
// The engine is split across runtime.go (field value store),
// propagation.go (auto-fill rules), overlay.go (AI suggestions),
// scoring.go (checklist scores) and coordinator.go (template source).
package services
