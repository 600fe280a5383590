package domain

import "time"

// ProcessedFileStatus tracks the lifecycle of a (tenant, file) claim row.
type ProcessedFileStatus string

const (
	// ProcessedFileStatusProcessing marks an in-flight claim.
	ProcessedFileStatusProcessing ProcessedFileStatus = "processing"
	// ProcessedFileStatusCompleted marks a fully committed pipeline run.
	ProcessedFileStatusCompleted ProcessedFileStatus = "completed"
)

// ProcessedFileRecord is the idempotency guard for document ingestion. A
// completed record exists if and only if every downstream write for the
// (tenant, file) pair has committed.
type ProcessedFileRecord struct {
	TenantID    string
	FileID      string
	FileName    string
	Status      ProcessedFileStatus
	ClaimedAt   time.Time
	CompletedAt *time.Time
}

// IngestState is the coordinator's position in the pipeline for one file.
type IngestState string

const (
	StatePending          IngestState = "pending"
	StateParsing          IngestState = "parsing"
	StateExtractingImages IngestState = "extracting_images"
	StateDescribing       IngestState = "describing"
	StateChunking         IngestState = "chunking"
	StateEmbedding        IngestState = "embedding"
	StateWriting          IngestState = "writing"
	StateCompleted        IngestState = "completed"
	StateFailed           IngestState = "failed"
)

// IngestOutcome is the per-file result reported to the caller.
type IngestOutcome string

const (
	OutcomeCompleted IngestOutcome = "completed"
	OutcomeSkipped   IngestOutcome = "skipped"
	OutcomeFailed    IngestOutcome = "failed"
)
