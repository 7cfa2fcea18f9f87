package core

// Version constants for the trace format and engine.
const (
	// TraceVersion is the persisted trace schema version.
	TraceVersion = "1"

	// EngineVersion is the understudy engine version.
	EngineVersion = "0.1.0"
)
