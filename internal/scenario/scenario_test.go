package scenario_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nbisweden/lega-e2e/internal/infra"
	"github.com/nbisweden/lega-e2e/internal/models"
	"github.com/nbisweden/lega-e2e/internal/scenario"
	srvErrors "github.com/nbisweden/lega-e2e/pkg/errors"
)

// fakePipeline decides the status from the published request, the way
// the real pipeline validates checksums, and keeps the newest record per
// file.
type fakePipeline struct {
	mu         sync.Mutex
	requests   []models.IngestionRequest
	records    map[string]models.FileRecord
	objects    map[string]string
	keysDown   bool
	publishErr error
	// recordStatus replaces the status of every record read back.
	recordStatus models.IngestionStatus
	// tampered objects digest to something else than recorded.
	tampered bool
}

func newFakePipeline() *fakePipeline {
	return &fakePipeline{records: map[string]models.FileRecord{}, objects: map[string]string{}}
}

func (p *fakePipeline) Ingest(_ context.Context, req models.IngestionRequest, maxWait, pollInterval time.Duration) (models.IngestionStatus, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, req)

	if p.publishErr != nil {
		return models.IngestionStatusNoEntry, p.publishErr
	}
	if req.FileName != "sample1.c4ga" {
		return models.IngestionStatusNoEntry, nil
	}
	rec := models.FileRecord{FileName: req.FileName, StableID: req.StableID, Status: models.IngestionStatusError}
	if !p.keysDown && req.RawChecksum == "raw-ok" && req.EncryptedChecksum == "enc-ok" {
		rec.Status = models.IngestionStatusCompleted
		rec.ArchivePath = fmt.Sprintf("%012d", len(p.objects)+1)
		rec.ArchiveChecksum = "a1b2c3"
		p.objects[rec.ArchivePath] = rec.ArchiveChecksum
	}
	p.records[req.FileName] = rec
	return rec.Status, nil
}

func (p *fakePipeline) CountObjects(_ context.Context) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.objects), nil
}

func (p *fakePipeline) Checksum(_ context.Context, key string, _ models.ChecksumAlgorithm) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	sum, ok := p.objects[key]
	if !ok {
		return "", srvErrors.NewResourceNotFoundError("archived object", key)
	}
	if p.tampered {
		return "ffffff", nil
	}
	return sum, nil
}

func (p *fakePipeline) GetRecord(_ context.Context, fileName string) (*models.FileRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	rec, ok := p.records[fileName]
	if !ok {
		return &models.FileRecord{FileName: fileName, Status: models.IngestionStatusNoEntry}, nil
	}
	if p.recordStatus != "" {
		rec.Status = p.recordStatus
	}
	return &rec, nil
}

type fakeInfra struct {
	pipeline *fakePipeline
	mu       sync.Mutex
	calls    []string
}

func (f *fakeInfra) add(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeInfra) Stop(_ context.Context, role infra.Role) error {
	f.add("stop " + string(role))
	if role == infra.RoleKeys {
		f.pipeline.keysDown = true
	}
	return nil
}

func (f *fakeInfra) Start(_ context.Context, role infra.Role) error {
	f.add("start " + string(role))
	if role == infra.RoleKeys {
		f.pipeline.keysDown = false
	}
	return nil
}

func (f *fakeInfra) Restart(_ context.Context, role infra.Role) error {
	f.add("restart " + string(role))
	return nil
}

func (f *fakeInfra) RestartAll(_ context.Context) error {
	f.add("restart all")
	return nil
}

type memJournal struct {
	mu       sync.Mutex
	attempts []models.Attempt
}

func (j *memJournal) Save(_ context.Context, a *models.Attempt) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.attempts = append(j.attempts, *a)
	return nil
}

var _ = Describe("Registry", func() {
	It("should hold every builtin scenario in order", func() {
		r := scenario.DefaultRegistry()

		ids := []string{}
		for _, s := range r.List() {
			ids = append(ids, s.ID)
		}
		Expect(ids).To(Equal([]string{
			"ingest-correct-checksums",
			"ingest-wrong-encrypted-checksum",
			"ingest-wrong-raw-checksum",
			"ingest-without-raw-checksum",
			"ingest-without-encrypted-checksum",
			"ingest-without-checksums",
			"ingest-missing-file",
			"ingest-with-keyserver-down",
			"ingest-after-restart",
		}))
	})

	It("should reject duplicates and empty expectations", func() {
		r := scenario.NewRegistry()
		s := scenario.Scenario{ID: "a", Expected: []models.IngestionStatus{models.IngestionStatusError}}

		Expect(r.Register(s)).To(Succeed())
		Expect(srvErrors.IsInvalidArgumentError(r.Register(s))).To(BeTrue())
		Expect(srvErrors.IsInvalidArgumentError(r.Register(scenario.Scenario{ID: "b"}))).To(BeTrue())
	})

	It("should select by id and report unknown ids", func() {
		r := scenario.DefaultRegistry()

		selected, err := r.Select("ingest-missing-file")
		Expect(err).NotTo(HaveOccurred())
		Expect(selected).To(HaveLen(1))

		all, err := r.Select()
		Expect(err).NotTo(HaveOccurred())
		Expect(all).To(HaveLen(9))

		_, err = r.Select("ingest-missing-file", "nope")
		Expect(srvErrors.IsResourceNotFoundError(err)).To(BeTrue())
	})
})

var _ = Describe("Runner", func() {
	var (
		ctx      context.Context
		pipeline *fakePipeline
		control  *fakeInfra
		journal  *memJournal
		runner   *scenario.Runner
		registry *scenario.Registry
	)

	BeforeEach(func() {
		ctx = context.Background()
		pipeline = newFakePipeline()
		control = &fakeInfra{pipeline: pipeline}
		journal = &memJournal{}
		registry = scenario.DefaultRegistry()

		deps := scenario.Dependencies{
			Ingester:     pipeline,
			Records:      pipeline,
			Archive:      pipeline,
			Infra:        control,
			MaxWait:      time.Minute,
			PollInterval: time.Second,
		}
		input := scenario.Input{
			User:              "john",
			FileName:          "sample1.c4ga",
			RawChecksum:       "raw-ok",
			EncryptedChecksum: "enc-ok",
			Algorithm:         models.ChecksumMD5,
		}
		runner = scenario.NewRunner(deps, input, scenario.WithJournal(journal))
	})

	run := func(id string) scenario.Result {
		s, err := registry.Get(id)
		Expect(err).NotTo(HaveOccurred())
		return runner.Run(ctx, s)
	}

	DescribeTable("builtin scenarios against a healthy pipeline",
		func(id string, observed models.IngestionStatus) {
			res := run(id)

			Expect(res.Err).NotTo(HaveOccurred())
			Expect(res.Observed).To(Equal(observed))
			Expect(res.Passed).To(BeTrue())
			Expect(res.Failure()).NotTo(HaveOccurred())
			Expect(res.StableID).To(HavePrefix(models.StableIDPrefix))
		},
		Entry("correct checksums", "ingest-correct-checksums", models.IngestionStatusCompleted),
		Entry("wrong encrypted checksum", "ingest-wrong-encrypted-checksum", models.IngestionStatusError),
		Entry("wrong raw checksum", "ingest-wrong-raw-checksum", models.IngestionStatusError),
		Entry("without raw checksum", "ingest-without-raw-checksum", models.IngestionStatusError),
		Entry("without encrypted checksum", "ingest-without-encrypted-checksum", models.IngestionStatusError),
		Entry("without checksums", "ingest-without-checksums", models.IngestionStatusError),
		Entry("missing file", "ingest-missing-file", models.IngestionStatusNoEntry),
		Entry("keyserver down", "ingest-with-keyserver-down", models.IngestionStatusError),
		Entry("after restart", "ingest-after-restart", models.IngestionStatusCompleted),
	)

	It("should send the checksums the scenario asks for", func() {
		run("ingest-without-checksums")

		Expect(pipeline.requests).To(HaveLen(1))
		msg := pipeline.requests[0].Message()
		Expect(msg.UnencryptedIntegrity).To(BeNil())
		Expect(msg.EncryptedIntegrity).To(BeNil())
	})

	It("should corrupt a checksum into a well formed digest", func() {
		run("ingest-wrong-raw-checksum")

		Expect(pipeline.requests[0].RawChecksum).To(MatchRegexp(`^[0-9a-f]{32}$`))
		Expect(pipeline.requests[0].EncryptedChecksum).To(Equal("enc-ok"))
	})

	// Given the keyserver scenario
	// When it finishes
	// Then the keyserver is started again
	It("should restart the keyserver after the attempt", func() {
		run("ingest-with-keyserver-down")

		Expect(control.calls).To(Equal([]string{"stop keys", "start keys"}))
		Expect(pipeline.keysDown).To(BeFalse())
	})

	It("should restart everything before ingesting", func() {
		run("ingest-after-restart")

		Expect(control.calls).To(Equal([]string{"restart all"}))
	})

	It("should fail when the observed status is not expected", func() {
		pipeline.keysDown = true

		res := run("ingest-correct-checksums")

		Expect(res.Passed).To(BeFalse())
		Expect(res.Err).NotTo(HaveOccurred())
		Expect(srvErrors.IsScenarioFailedError(res.Failure())).To(BeTrue())
	})

	It("should report publish failures as step errors", func() {
		pipeline.publishErr = srvErrors.NewPublishError("EGAF_1", errors.New("connection refused"))

		res := run("ingest-correct-checksums")

		Expect(res.Passed).To(BeFalse())
		Expect(srvErrors.IsPublishError(res.Failure())).To(BeTrue())
	})

	It("should skip scenarios needing container control without it", func() {
		r := scenario.NewRunner(scenario.Dependencies{Ingester: pipeline}, scenario.Input{User: "john", FileName: "sample1.c4ga"})
		s, _ := registry.Get("ingest-after-restart")

		res := r.Run(ctx, s)

		Expect(res.Skipped).To(BeTrue())
		Expect(res.Passed).To(BeFalse())
		Expect(res.Failure()).NotTo(HaveOccurred())
		Expect(res.Err).To(MatchError(ContainSubstring("container control")))
		Expect(pipeline.requests).To(BeEmpty())
	})

	// Given a deployment managed externally
	// When the scenarios stopping or restarting containers run
	// Then they are skipped with the reason and nothing is ingested or journaled
	It("should skip container scenarios under an external deployment", func() {
		deps := scenario.Dependencies{
			Ingester: pipeline,
			Records:  pipeline,
			Archive:  pipeline,
			Infra:    infra.NewExternalManager(),
		}
		r := scenario.NewRunner(deps, scenario.Input{User: "john", FileName: "sample1.c4ga"}, scenario.WithJournal(journal))

		for _, id := range []string{"ingest-with-keyserver-down", "ingest-after-restart"} {
			s, err := registry.Get(id)
			Expect(err).NotTo(HaveOccurred())

			res := r.Run(ctx, s)

			Expect(res.Skipped).To(BeTrue(), id)
			Expect(res.Passed).To(BeFalse(), id)
			Expect(srvErrors.IsUnsupportedOperationError(res.Err)).To(BeTrue(), id)
			Expect(res.Err.Error()).To(ContainSubstring("managed externally"))
		}
		Expect(pipeline.requests).To(BeEmpty())
		Expect(journal.attempts).To(BeEmpty())
	})

	// Given the waiter saw Completed
	// When the record read back says Error
	// Then the verdict follows the record and both statuses are reported
	It("should judge the record read back over the polled status", func() {
		pipeline.recordStatus = models.IngestionStatusError

		res := run("ingest-correct-checksums")

		Expect(res.Polled).To(Equal(models.IngestionStatusCompleted))
		Expect(res.Observed).To(Equal(models.IngestionStatusError))
		Expect(res.Passed).To(BeFalse())
		Expect(srvErrors.IsScenarioFailedError(res.Failure())).To(BeTrue())
		Expect(journal.attempts).To(HaveLen(1))
		Expect(journal.attempts[0].Observed).To(Equal(models.IngestionStatusError))
	})

	It("should keep the polled status when no record is read", func() {
		r := scenario.NewRunner(scenario.Dependencies{Ingester: pipeline}, scenario.Input{
			User: "john", FileName: "sample1.c4ga", RawChecksum: "raw-ok", EncryptedChecksum: "enc-ok",
		})
		s, _ := registry.Get("ingest-correct-checksums")

		res := r.Run(ctx, s)

		Expect(res.Passed).To(BeTrue())
		Expect(res.Observed).To(Equal(res.Polled))
	})

	Context("archived object", func() {
		It("should download and compare the archived object", func() {
			res := run("ingest-correct-checksums")

			Expect(res.Passed).To(BeTrue())
			Expect(res.Err).NotTo(HaveOccurred())
		})

		It("should fail when the archived object does not match its record", func() {
			pipeline.tampered = true

			res := run("ingest-correct-checksums")

			Expect(res.Passed).To(BeFalse())
			Expect(res.Err).To(MatchError(ContainSubstring("recorded a1b2c3")))
		})

		It("should not download anything for rejected files", func() {
			pipeline.tampered = true

			res := run("ingest-wrong-raw-checksum")

			Expect(res.Passed).To(BeTrue())
		})
	})

	It("should journal every attempt", func() {
		run("ingest-correct-checksums")
		pipeline.keysDown = true
		run("ingest-correct-checksums")

		Expect(journal.attempts).To(HaveLen(2))
		Expect(journal.attempts[0].Passed).To(BeTrue())
		Expect(journal.attempts[0].Error).To(BeEmpty())
		Expect(journal.attempts[1].Passed).To(BeFalse())
		Expect(journal.attempts[1].Error).To(ContainSubstring("expected status in"))
		Expect(journal.attempts[1].User).To(Equal("john"))
	})

	It("should measure elapsed time with the injected clock", func() {
		t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		calls := 0
		now := func() time.Time {
			calls++
			return t0.Add(time.Duration(calls-1) * 3 * time.Second)
		}
		r := scenario.NewRunner(scenario.Dependencies{Ingester: pipeline}, scenario.Input{User: "john", FileName: "sample1.c4ga"}, scenario.WithNow(now))
		s, _ := registry.Get("ingest-missing-file")

		res := r.Run(ctx, s)

		Expect(res.Elapsed).To(Equal(3 * time.Second))
	})
})

var _ = Describe("Plan", func() {
	ids := func(scenarios []scenario.Scenario, idx []int) []string {
		out := []string{}
		for _, i := range idx {
			out = append(out, scenarios[i].ID)
		}
		return out
	}

	// Given the builtin scenarios
	// When they are planned
	// Then every run on the input file shares one lane and container scenarios run alone
	It("should serialize scenarios sharing the input file", func() {
		all := scenario.Builtin()

		plan := scenario.NewPlan(all)

		Expect(plan.Lanes).To(HaveLen(2))
		Expect(ids(all, plan.Lanes[0])).To(Equal([]string{
			"ingest-correct-checksums",
			"ingest-wrong-encrypted-checksum",
			"ingest-wrong-raw-checksum",
			"ingest-without-raw-checksum",
			"ingest-without-encrypted-checksum",
			"ingest-without-checksums",
		}))
		Expect(ids(all, plan.Lanes[1])).To(Equal([]string{"ingest-missing-file"}))
		Expect(ids(all, plan.Exclusive)).To(Equal([]string{"ingest-with-keyserver-down", "ingest-after-restart"}))
	})

	It("should give scenarios with their own file a lane each", func() {
		all := []scenario.Scenario{{ID: "a", UsesOwnFile: true}, {ID: "b", UsesOwnFile: true}}

		plan := scenario.NewPlan(all)

		Expect(plan.Lanes).To(Equal([][]int{{0}, {1}}))
		Expect(plan.Exclusive).To(BeEmpty())
	})

	It("should plan nothing for no scenarios", func() {
		plan := scenario.NewPlan(nil)

		Expect(plan.Lanes).To(BeEmpty())
		Expect(plan.Exclusive).To(BeEmpty())
	})
})
