package scenario

import (
	"github.com/nbisweden/lega-e2e/internal/infra"
	"github.com/nbisweden/lega-e2e/internal/models"
)

var (
	expectIngested = []models.IngestionStatus{models.IngestionStatusCompleted, models.IngestionStatusArchived}
	expectError    = []models.IngestionStatus{models.IngestionStatusError}
)

// Builtin returns the standard ingestion scenarios.
func Builtin() []Scenario {
	return []Scenario{
		{
			ID:          "ingest-correct-checksums",
			Description: "file with both correct checksums is ingested and archived",
			Expected:    expectIngested,
			Steps:       []Step{CountArchiveBefore(), Ingest(), RetrieveRecord(), VerifyArchived(), VerifyArchivedChecksum()},
		},
		{
			ID:          "ingest-wrong-encrypted-checksum",
			Description: "file with a wrong encrypted checksum is rejected",
			Expected:    expectError,
			Steps:       []Step{CorruptEncryptedChecksum(), Ingest(), RetrieveRecord()},
		},
		{
			ID:          "ingest-wrong-raw-checksum",
			Description: "file with a wrong raw checksum is rejected",
			Expected:    expectError,
			Steps:       []Step{CorruptRawChecksum(), Ingest(), RetrieveRecord()},
		},
		{
			ID:          "ingest-without-raw-checksum",
			Description: "file without a raw checksum is rejected",
			Expected:    expectError,
			Steps:       []Step{WithoutRawChecksum(), Ingest(), RetrieveRecord()},
		},
		{
			ID:          "ingest-without-encrypted-checksum",
			Description: "file without an encrypted checksum is rejected",
			Expected:    expectError,
			Steps:       []Step{WithoutEncryptedChecksum(), Ingest(), RetrieveRecord()},
		},
		{
			ID:          "ingest-without-checksums",
			Description: "file without any checksum is rejected",
			Expected:    expectError,
			Steps:       []Step{WithoutRawChecksum(), WithoutEncryptedChecksum(), Ingest(), RetrieveRecord()},
		},
		{
			ID:          "ingest-missing-file",
			Description: "request for a file absent from the inbox is not ingested",
			Expected:    []models.IngestionStatus{models.IngestionStatusError, models.IngestionStatusNoEntry},
			Steps:       []Step{UseMissingFile(), Ingest(), RetrieveRecord()},
			UsesOwnFile: true,
		},
		{
			ID:          "ingest-with-keyserver-down",
			Description: "ingestion fails while the keyserver is stopped",
			Expected:    expectError,
			Steps:       []Step{StopComponent(infra.RoleKeys), Ingest(), RetrieveRecord()},
			Cleanup:     []Step{StartComponent(infra.RoleKeys)},
			NeedsInfra:  true,
		},
		{
			ID:          "ingest-after-restart",
			Description: "file is ingested after the whole system is restarted",
			Expected:    expectIngested,
			Steps:       []Step{RestartSystem(), CountArchiveBefore(), Ingest(), RetrieveRecord(), VerifyArchived(), VerifyArchivedChecksum()},
			NeedsInfra:  true,
		},
	}
}

// DefaultRegistry returns a registry holding the builtin scenarios.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, s := range Builtin() {
		if err := r.Register(s); err != nil {
			panic(err)
		}
	}
	return r
}
