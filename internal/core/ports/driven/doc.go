// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - TemplateStore: Local template persistence
//   - AnnotationStore: Submitted annotations
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - SharedTemplateStore: Shared template transport. Without it, only local templates exist.
//   - SuggestionSource: AI suggestions. Without it, the AI overlay is never fed.
//   - Notifier: Presentation notices. Without it, notices are dropped.
//   - EngineMetrics: Field engine counters.
//   - PromptStore: User overrides of the suggestion prompt.
//   - NormaliserRegistry: Text extraction for providers that only read text.
//     Without it documents are sent as read.
//   - AIConfigValidator: Connectivity checks when AI settings change.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
