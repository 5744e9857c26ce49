package types

// contextKey is the private type for context values this module sets.
type contextKey string

// Context keys for request metadata picked up by the telemetry handler.
const (
	ContextKeySessionID   contextKey = "session_id"
	ContextKeyProjectPath contextKey = "project_path"
	ContextKeySource      contextKey = "source"
)
