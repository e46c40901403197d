package constants

// JobStatus is the canonical status for rows in the document index.
type JobStatus string

// Stable values (store these exact strings in DB).
const (
	JobStatusRunning   JobStatus = "RUNNING"   // scan in progress
	JobStatusArchived  JobStatus = "ARCHIVED"  // moved to Processed, link computed
	JobStatusWritten   JobStatus = "WRITTEN"   // row appended to the ledger
	JobStatusDuplicate JobStatus = "DUPLICATE" // link already present in the ledger
	JobStatusFailed    JobStatus = "FAILED"    // terminal failure
)
