package scenario

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nbisweden/lega-e2e/internal/infra"
	"github.com/nbisweden/lega-e2e/internal/models"
	srvErrors "github.com/nbisweden/lega-e2e/pkg/errors"
)

var errNoInfra = srvErrors.NewUnsupportedOperationError("container control", "no infra manager is configured")

// WithoutRawChecksum drops the checksum of the unencrypted content.
func WithoutRawChecksum() Step {
	return func(_ context.Context, sc *Context) error {
		sc.RawChecksum = ""
		return nil
	}
}

// WithoutEncryptedChecksum drops the checksum of the encrypted file.
func WithoutEncryptedChecksum() Step {
	return func(_ context.Context, sc *Context) error {
		sc.EncryptedChecksum = ""
		return nil
	}
}

// CorruptRawChecksum replaces the raw checksum with one that cannot match.
func CorruptRawChecksum() Step {
	return func(_ context.Context, sc *Context) error {
		sc.RawChecksum = corrupt(sc.RawChecksum, sc.Algorithm)
		return nil
	}
}

// CorruptEncryptedChecksum replaces the encrypted checksum with one that
// cannot match.
func CorruptEncryptedChecksum() Step {
	return func(_ context.Context, sc *Context) error {
		sc.EncryptedChecksum = corrupt(sc.EncryptedChecksum, sc.Algorithm)
		return nil
	}
}

// corrupt returns a well formed hex digest different from checksum.
func corrupt(checksum string, algorithm models.ChecksumAlgorithm) string {
	size := 32
	if algorithm.OrDefault() == models.ChecksumSHA256 {
		size = 64
	}
	wrong := strings.Repeat("0", size)
	if checksum == wrong {
		wrong = strings.Repeat("f", size)
	}
	return wrong
}

// UseMissingFile points the request at a file no inbox holds.
func UseMissingFile() Step {
	return func(_ context.Context, sc *Context) error {
		sc.FileName = "missing-" + uuid.NewString() + ".c4ga"
		return nil
	}
}

// Ingest publishes the request built from the current context and waits
// for a terminal status.
func Ingest() Step {
	return func(ctx context.Context, sc *Context) error {
		req := models.NewIngestionRequest(sc.User, sc.FileName,
			models.WithRawChecksum(sc.RawChecksum),
			models.WithEncryptedChecksum(sc.EncryptedChecksum),
			models.WithChecksumAlgorithm(sc.Algorithm),
		)
		sc.Request = &req

		status, err := sc.Deps.Ingester.Ingest(ctx, req, sc.Deps.MaxWait, sc.Deps.PollInterval)
		sc.Observed = status
		return err
	}
}

// RetrieveRecord reads back the ingestion information of the file.
func RetrieveRecord() Step {
	return func(ctx context.Context, sc *Context) error {
		if sc.Deps.Records == nil {
			return nil
		}
		rec, err := sc.Deps.Records.GetRecord(ctx, sc.FileName)
		if err != nil {
			return err
		}
		sc.Record = rec
		return nil
	}
}

// CountArchiveBefore remembers the archive size before ingestion.
func CountArchiveBefore() Step {
	return func(ctx context.Context, sc *Context) error {
		if sc.Deps.Archive == nil {
			return nil
		}
		n, err := sc.Deps.Archive.CountObjects(ctx)
		if err != nil {
			return err
		}
		sc.ArchiveBefore = n
		return nil
	}
}

// VerifyArchived checks the archive grew when the file was ingested.
func VerifyArchived() Step {
	return func(ctx context.Context, sc *Context) error {
		if sc.Deps.Archive == nil {
			return nil
		}
		if sc.Observed != models.IngestionStatusCompleted && sc.Observed != models.IngestionStatusArchived {
			return nil
		}
		n, err := sc.Deps.Archive.CountObjects(ctx)
		if err != nil {
			return err
		}
		sc.ArchiveAfter = n
		if n <= sc.ArchiveBefore {
			return fmt.Errorf("archive did not grow: %d objects before, %d after", sc.ArchiveBefore, n)
		}
		return nil
	}
}

// VerifyArchivedChecksum downloads the archived object of an ingested file
// and checks it against the checksum the pipeline recorded for it.
func VerifyArchivedChecksum() Step {
	return func(ctx context.Context, sc *Context) error {
		if sc.Deps.Archive == nil || sc.Record == nil || sc.Record.ArchivePath == "" {
			return nil
		}
		if sc.Record.Status != models.IngestionStatusCompleted && sc.Record.Status != models.IngestionStatusArchived {
			return nil
		}
		sum, err := sc.Deps.Archive.Checksum(ctx, sc.Record.ArchivePath, models.ChecksumSHA256)
		if err != nil {
			return err
		}
		sc.ArchivedChecksum = sum
		if sc.Record.ArchiveChecksum != "" && !strings.EqualFold(sum, sc.Record.ArchiveChecksum) {
			return fmt.Errorf("archived object %s has checksum %s, recorded %s", sc.Record.ArchivePath, sum, sc.Record.ArchiveChecksum)
		}
		return nil
	}
}

// StopComponent stops the container of role.
func StopComponent(role infra.Role) Step {
	return func(ctx context.Context, sc *Context) error {
		if sc.Deps.Infra == nil {
			return errNoInfra
		}
		return sc.Deps.Infra.Stop(ctx, role)
	}
}

// StartComponent starts the container of role.
func StartComponent(role infra.Role) Step {
	return func(ctx context.Context, sc *Context) error {
		if sc.Deps.Infra == nil {
			return errNoInfra
		}
		return sc.Deps.Infra.Start(ctx, role)
	}
}

// RestartSystem restarts every container and waits for the status source
// to answer again.
func RestartSystem() Step {
	return func(ctx context.Context, sc *Context) error {
		if sc.Deps.Infra == nil {
			return errNoInfra
		}
		if err := sc.Deps.Infra.RestartAll(ctx); err != nil {
			return err
		}
		return waitReady(ctx, sc)
	}
}

func waitReady(ctx context.Context, sc *Context) error {
	if sc.Deps.Ready == nil {
		return nil
	}
	zap.S().Named("scenario").Debugw("waiting for the deployment", "timeout", sc.Deps.ReadyTimeout)
	return infra.WaitReady(ctx, "deployment", sc.Deps.Ready, sc.Deps.PollInterval, sc.Deps.ReadyTimeout)
}
