package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/nbisweden/lega-e2e/internal/config"
	"github.com/nbisweden/lega-e2e/internal/infra"
	"github.com/nbisweden/lega-e2e/internal/models"
	"github.com/nbisweden/lega-e2e/internal/scenario"
	"github.com/nbisweden/lega-e2e/internal/services"
)

var _ = Describe("loadConfig", func() {
	var (
		v  *viper.Viper
		fs *pflag.FlagSet
	)

	BeforeEach(func() {
		v = viper.New()
		fs = pflag.NewFlagSet("test", pflag.ContinueOnError)
		d, err := config.NewConfigurationWithDefaults()
		Expect(err).NotTo(HaveOccurred())
		Expect(registerConfigFlags(fs, v, d)).To(Succeed())
	})

	It("should return the defaults without flags", func() {
		Expect(fs.Parse(nil)).To(Succeed())

		cfg, err := loadConfig(v, "")
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Broker.Exchange).To(Equal("localega.v1"))
		Expect(cfg.Ingest.MaxTimeout).To(Equal(60 * time.Second))
		Expect(cfg.Infra.Mode).To(Equal("external"))
	})

	It("should apply flags", func() {
		Expect(fs.Parse([]string{"--max-timeout=5s", "--workers=2", "--file-column=filename"})).To(Succeed())

		cfg, err := loadConfig(v, "")
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Ingest.MaxTimeout).To(Equal(5 * time.Second))
		Expect(cfg.Ingest.Workers).To(Equal(2))
		Expect(cfg.Database.FileColumn).To(Equal("filename"))
	})

	It("should read a config file", func() {
		path := filepath.Join(GinkgoT().TempDir(), "config.yaml")
		content := "instance: sweden\ningest:\n  poll-interval: 250ms\ninfra:\n  mode: container\n"
		Expect(os.WriteFile(path, []byte(content), 0o600)).To(Succeed())
		Expect(fs.Parse(nil)).To(Succeed())

		cfg, err := loadConfig(v, path)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Instance).To(Equal("sweden"))
		Expect(cfg.Ingest.PollInterval).To(Equal(250 * time.Millisecond))
		Expect(cfg.Infra.Mode).To(Equal("container"))
	})

	It("should reject invalid values", func() {
		Expect(fs.Parse([]string{"--infra-mode=cloud"})).To(Succeed())

		_, err := loadConfig(v, "")
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("root command", func() {
	var (
		out       *bytes.Buffer
		traceFile string
	)

	execute := func(args ...string) error {
		cmd, err := NewRootCommand()
		Expect(err).NotTo(HaveOccurred())
		out = &bytes.Buffer{}
		cmd.SetOut(out)
		cmd.SetErr(out)
		cmd.SetArgs(append(args, "--trace-file", traceFile, "--log-level", "error"))
		return cmd.ExecuteContext(context.Background())
	}

	BeforeEach(func() {
		traceFile = filepath.Join(GinkgoT().TempDir(), ".trace")
	})

	It("should list every built-in scenario", func() {
		Expect(execute("scenarios")).To(Succeed())

		for _, s := range scenario.DefaultRegistry().List() {
			Expect(out.String()).To(ContainSubstring(s.ID))
		}
	})

	// Given a value already in the trace
	// When it is set again
	// Then the first value is kept
	It("should set and get trace values", func() {
		Expect(execute("trace", "set", "DB_USER", "lega_in")).To(Succeed())
		Expect(execute("trace", "set", "DB_USER", "other")).To(Succeed())
		Expect(out.String()).To(ContainSubstring("already set"))

		Expect(execute("trace", "get", "DB_USER")).To(Succeed())
		Expect(strings.TrimSpace(out.String())).To(Equal("lega_in"))

		Expect(execute("trace", "get")).To(Succeed())
		Expect(out.String()).To(ContainSubstring("DB_USER=lega_in"))
	})

	It("should fail on a missing trace key", func() {
		Expect(execute("trace", "get", "S3_ACCESS_KEY")).NotTo(Succeed())
	})

	It("should refuse an unknown scenario before connecting anywhere", func() {
		Expect(execute("run", "--file", "f.c4gh", "no-such-scenario")).NotTo(Succeed())
	})
})

type fixedIngester struct {
	status models.IngestionStatus
}

func (f fixedIngester) Ingest(context.Context, models.IngestionRequest, time.Duration, time.Duration) (models.IngestionStatus, error) {
	return f.status, nil
}

var _ = Describe("runAll", func() {
	It("should keep the order of scenarios and report each outcome", func() {
		runner := scenario.NewRunner(scenario.Dependencies{
			Ingester:     fixedIngester{status: models.IngestionStatusCompleted},
			MaxWait:      time.Second,
			PollInterval: time.Millisecond,
		}, scenario.Input{User: "dummy", FileName: "dummy.c4gh", RawChecksum: "a", EncryptedChecksum: "b"})

		selected, err := scenario.DefaultRegistry().Select("ingest-correct-checksums", "ingest-wrong-raw-checksum")
		Expect(err).NotTo(HaveOccurred())

		results := runAll(context.Background(), runner, selected, 2)
		Expect(results).To(HaveLen(2))
		Expect(results[0].ID).To(Equal("ingest-correct-checksums"))
		Expect(results[0].Passed).To(BeTrue())
		Expect(results[1].ID).To(Equal("ingest-wrong-raw-checksum"))
		Expect(results[1].Passed).To(BeFalse())

		buf := &bytes.Buffer{}
		Expect(printSummary(buf, results)).To(Equal(1))
		Expect(buf.String()).To(ContainSubstring("1 passed, 1 failed"))
	})

	// Given a pipeline keeping one record per inbox path
	// When every scenario on that path runs with several workers
	// Then no two attempts on the path overlap and each sees its own outcome
	It("should not let scenarios on the same file interfere", func() {
		lega := newFakeLega("inbox/sample.c4ga", "raw", "enc")
		tracker := &overlapTracker{inner: services.NewIngestionWaiter(lega, lega, services.WithSettleDelay(time.Millisecond))}
		runner := scenario.NewRunner(scenario.Dependencies{
			Ingester:     tracker,
			Records:      lega,
			MaxWait:      2 * time.Second,
			PollInterval: 2 * time.Millisecond,
		}, scenario.Input{User: "dummy", FileName: "inbox/sample.c4ga", RawChecksum: "raw", EncryptedChecksum: "enc"})

		selected, err := scenario.DefaultRegistry().Select(
			"ingest-correct-checksums",
			"ingest-wrong-encrypted-checksum",
			"ingest-correct-checksums",
			"ingest-wrong-raw-checksum",
			"ingest-missing-file",
			"ingest-without-checksums",
		)
		Expect(err).NotTo(HaveOccurred())

		results := runAll(context.Background(), runner, selected, 4)

		Expect(results).To(HaveLen(len(selected)))
		for i, r := range results {
			Expect(r.ID).To(Equal(selected[i].ID))
			Expect(r.Err).NotTo(HaveOccurred(), r.ID)
			Expect(r.Passed).To(BeTrue(), "%s observed %s", r.ID, r.Observed)
		}
		Expect(tracker.overlapped()).To(BeFalse())
	})

	// Given a deployment managed externally
	// When every scenario runs
	// Then the container scenarios are skipped and the run does not fail
	It("should skip container scenarios under an external deployment", func() {
		runner := scenario.NewRunner(scenario.Dependencies{
			Ingester:     fixedIngester{status: models.IngestionStatusError},
			Infra:        infra.NewExternalManager(),
			MaxWait:      time.Second,
			PollInterval: time.Millisecond,
		}, scenario.Input{User: "dummy", FileName: "dummy.c4gh"})

		selected, err := scenario.DefaultRegistry().Select("ingest-wrong-raw-checksum", "ingest-with-keyserver-down", "ingest-after-restart")
		Expect(err).NotTo(HaveOccurred())

		results := runAll(context.Background(), runner, selected, 4)

		Expect(results[0].Passed).To(BeTrue())
		Expect(results[1].Skipped).To(BeTrue())
		Expect(results[2].Skipped).To(BeTrue())

		buf := &bytes.Buffer{}
		for _, r := range results {
			printResult(buf, r)
		}
		Expect(printSummary(buf, results)).To(Equal(0))
		Expect(buf.String()).To(ContainSubstring("SKIP"))
		Expect(buf.String()).To(ContainSubstring("managed externally"))
		Expect(buf.String()).To(ContainSubstring("1 passed, 0 failed, 2 skipped"))
	})

	It("should report scenarios not run after cancellation", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		runner := scenario.NewRunner(scenario.Dependencies{
			Ingester: fixedIngester{status: models.IngestionStatusCompleted},
			Infra:    infra.NewExternalManager(),
		}, scenario.Input{User: "dummy", FileName: "dummy.c4gh"})

		selected, err := scenario.DefaultRegistry().Select("ingest-after-restart")
		Expect(err).NotTo(HaveOccurred())

		results := runAll(ctx, runner, selected, 1)

		Expect(results[0].Passed).To(BeFalse())
		Expect(results[0].Err).To(MatchError(context.Canceled))
	})
})

// fakeLega keeps one row per inbox path, the newest request wins. A row
// stays in progress for a few polls.
type fakeLega struct {
	file, raw, enc string

	mu   sync.Mutex
	rows map[string]*legaRow
}

type legaRow struct {
	final   models.IngestionStatus
	pending int
}

func newFakeLega(file, raw, enc string) *fakeLega {
	return &fakeLega{file: file, raw: raw, enc: enc, rows: map[string]*legaRow{}}
}

func (l *fakeLega) Publish(_ context.Context, req models.IngestionRequest) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if req.FileName != l.file {
		return nil
	}
	row := &legaRow{final: models.IngestionStatusCompleted, pending: 3}
	if req.RawChecksum != l.raw || req.EncryptedChecksum != l.enc {
		row.final = models.IngestionStatusError
	}
	l.rows[req.FileName] = row
	return nil
}

func (l *fakeLega) GetStatus(_ context.Context, fileName string) (models.IngestionStatus, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	row, ok := l.rows[fileName]
	if !ok {
		return models.IngestionStatusNoEntry, nil
	}
	if row.pending > 0 {
		row.pending--
		return models.IngestionStatusInProgress, nil
	}
	return row.final, nil
}

func (l *fakeLega) GetRecord(_ context.Context, fileName string) (*models.FileRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec := &models.FileRecord{FileName: fileName, Status: models.IngestionStatusNoEntry}
	if row, ok := l.rows[fileName]; ok {
		rec.Status = row.final
		if row.pending > 0 {
			rec.Status = models.IngestionStatusInProgress
		}
	}
	return rec, nil
}

// overlapTracker notices two ingestions of one file running at once.
type overlapTracker struct {
	inner scenario.Ingester

	mu      sync.Mutex
	active  map[string]int
	overlap bool
}

func (t *overlapTracker) Ingest(ctx context.Context, req models.IngestionRequest, maxWait, pollInterval time.Duration) (models.IngestionStatus, error) {
	t.mu.Lock()
	if t.active == nil {
		t.active = map[string]int{}
	}
	t.active[req.FileName]++
	if t.active[req.FileName] > 1 {
		t.overlap = true
	}
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		t.active[req.FileName]--
		t.mu.Unlock()
	}()
	return t.inner.Ingest(ctx, req, maxWait, pollInterval)
}

func (t *overlapTracker) overlapped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.overlap
}
