package ir

// Version constants for persisted choice logs and the runtime.
const (
	// TraceVersion is the choice-log format version.
	TraceVersion = "1"

	// RuntimeVersion is the runtime version recorded with stored runs.
	RuntimeVersion = "0.1.0"
)
