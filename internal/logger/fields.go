package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// ============================================
// Standard Tracing Fields (Context level)
// These fields are propagated through the call chain
// ============================================

const (
	// FieldRunID is the scan run ID (UUID)
	FieldRunID = "run_id"

	// FieldBatch is the current batch number within a run
	FieldBatch = "batch"

	// FieldOffset is the pagination offset into the source dataset
	FieldOffset = "offset"
)

// ============================================
// Standard Metric Fields (Entry level)
// These fields are used for aggregation and alerting
// ============================================

const (
	// FieldDurationMs is the execution duration in milliseconds
	FieldDurationMs = "duration_ms"

	// FieldCount is a generic count field
	FieldCount = "count"

	// FieldFlagged is the number of contracts flagged in an operation
	FieldFlagged = "flagged"

	// FieldStatus is the operation status
	FieldStatus = "status"
)
