package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID = "request_id"
	FieldDataset   = "dataset"
	FieldComponent = "component"

	// Loader fields
	FieldRecords  = "records"
	FieldFiltered = "filtered"
	FieldSplit    = "split"
	FieldIndex    = "index"

	// Path / URL fields
	FieldPath    = "path"
	FieldBaseURL = "base_url"

	// Remote source fields
	FieldAttempt = "attempt"
	FieldStatus  = "status"
	FieldBackend = "backend"
)
