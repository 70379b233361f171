package main

import (
	"flag"
	"log"
	"os"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/nbisweden/lega-e2e/internal/config"
	"github.com/nbisweden/lega-e2e/internal/infra"
	"github.com/nbisweden/lega-e2e/internal/models"
)

type input struct {
	File        string
	RawChecksum string
	EncChecksum string
	Algorithm   string
	KeepResults bool
}

var (
	cfg       *config.Configuration
	in        input
	algorithm models.ChecksumAlgorithm
)

func main() {
	var err error
	cfg, err = config.NewConfigurationWithDefaults()
	if err != nil {
		log.Fatalf("failed to build default configuration: %v", err)
	}

	flag.StringVar(&cfg.Infra.Mode, "infra-mode", infra.ModeContainer, "Infrastructure mode: 'container' (Podman) or 'external'")
	flag.StringVar(&cfg.Infra.PodmanSocket, "podman-socket", cfg.Infra.PodmanSocket, "Podman socket path")
	flag.StringVar(&cfg.Instance, "instance", cfg.Instance, "LocalEGA instance name")
	flag.StringVar(&cfg.User, "user", "dummy", "Submitting user")
	flag.StringVar(&cfg.Broker.URL, "broker-url", cfg.Broker.URL, "CentralEGA broker URL")
	flag.StringVar(&cfg.Database.DSN, "db-dsn", cfg.Database.DSN, "LocalEGA database DSN")
	flag.StringVar(&cfg.Database.FileColumn, "file-column", cfg.Database.FileColumn, "files column holding the inbox path")
	flag.StringVar(&cfg.Archive.Endpoint, "s3-endpoint", cfg.Archive.Endpoint, "Archive S3 endpoint, empty to skip archive checks")
	flag.StringVar(&cfg.Archive.AccessKey, "s3-access-key", cfg.Archive.AccessKey, "Archive access key, read from the trace when empty")
	flag.StringVar(&cfg.Archive.SecretKey, "s3-secret-key", cfg.Archive.SecretKey, "Archive secret key, read from the trace when empty")
	flag.BoolVar(&cfg.Ingest.ArchivedIsTransient, "archived-is-transient", cfg.Ingest.ArchivedIsTransient, "Keep polling while the status is Archived")
	flag.StringVar(&cfg.TraceFile, "trace-file", cfg.TraceFile, "Trace file holding generated credentials")
	flag.DurationVar(&cfg.Ingest.MaxTimeout, "max-timeout", cfg.Ingest.MaxTimeout, "Budget for reaching a terminal status")
	flag.DurationVar(&cfg.Ingest.PollInterval, "poll-interval", cfg.Ingest.PollInterval, "Sleep between status queries")
	flag.StringVar(&in.File, "file", "", "Inbox path of a correctly uploaded encrypted file")
	flag.StringVar(&in.RawChecksum, "raw-checksum", "", "Checksum of the unencrypted content")
	flag.StringVar(&in.EncChecksum, "enc-checksum", "", "Checksum of the encrypted file")
	flag.StringVar(&in.Algorithm, "algorithm", "md5", "Checksum algorithm: md5 or sha256")
	flag.BoolVar(&in.KeepResults, "keep-results", false, "Keep the results database after the run")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	zap.ReplaceGlobals(logger)
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		log.Fatalf("failed to validate configuration: %v", err)
	}
	if in.File == "" {
		log.Fatalf("failed to validate configuration: -file is required")
	}
	if algorithm, err = models.ParseChecksumAlgorithm(in.Algorithm); err != nil {
		log.Fatalf("failed to validate configuration: %v", err)
	}

	RegisterFailHandler(Fail)
	if !RunSpecs(&testing.T{}, "E2E Suite") {
		os.Exit(1)
	}
}
