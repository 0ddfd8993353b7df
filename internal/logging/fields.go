package logging

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldJobID is the standardized structured logging key for queue job identifiers.
	FieldJobID = "job_id"
	// FieldSessionID is the standardized structured logging key for session identifiers.
	FieldSessionID = "session_id"
	// FieldStage is the standardized structured logging key for pipeline stage names.
	FieldStage = "stage"
	// FieldEventType tags log records with a machine-matchable event name.
	FieldEventType = "event_type"
)
