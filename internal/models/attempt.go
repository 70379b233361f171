package models

import "time"

// Attempt is one recorded ingestion run, kept in the results journal.
type Attempt struct {
	ID        int64
	Scenario  string
	StableID  string
	User      string
	FileName  string
	Expected  []IngestionStatus
	Observed  IngestionStatus
	Passed    bool
	Elapsed   time.Duration
	Error     string
	CreatedAt time.Time
}

// FileRecord is the subset of a pipeline file row the harness reads back.
type FileRecord struct {
	FileName string
	Status   IngestionStatus
	StableID string
	// ArchivePath is the object key in the archive once the file is stored.
	ArchivePath string
	// ArchiveChecksum is the sha256 of the archived object.
	ArchiveChecksum string
}
