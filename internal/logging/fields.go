package logging

// Standardized attribute keys shared across components so log output stays
// greppable regardless of which package emitted it.
const (
	FieldComponent = "component"
	FieldAccount   = "account"
	FieldRunID     = "run_id"
	FieldEventType = "event_type"
	FieldErrorHint = "error_hint"
	FieldImpact    = "impact"
)
