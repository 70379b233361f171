// Package scenario holds the end-to-end ingestion scenarios: each one is
// an ordered list of steps ending with the status the pipeline should
// settle on.
package scenario

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nbisweden/lega-e2e/internal/infra"
	"github.com/nbisweden/lega-e2e/internal/models"
	srvErrors "github.com/nbisweden/lega-e2e/pkg/errors"
)

// Step is one action of a scenario. Steps share state through sc.
type Step func(ctx context.Context, sc *Context) error

type Scenario struct {
	ID          string
	Description string
	// Expected lists the statuses that make the scenario pass.
	Expected []models.IngestionStatus
	Steps    []Step
	// Cleanup steps always run, even when a step failed.
	Cleanup []Step
	// NeedsInfra marks scenarios that stop or restart containers. They
	// affect every other run and must run alone.
	NeedsInfra bool
	// UsesOwnFile marks scenarios that do not ingest the input file, so
	// they cannot observe records of other runs.
	UsesOwnFile bool
}

func (s Scenario) ExpectedNames() []string {
	names := make([]string, 0, len(s.Expected))
	for _, st := range s.Expected {
		names = append(names, st.String())
	}
	return names
}

// Accepts reports whether observed is one of the expected statuses.
func (s Scenario) Accepts(observed models.IngestionStatus) bool {
	for _, st := range s.Expected {
		if st == observed {
			return true
		}
	}
	return false
}

// Ingester drives one ingestion attempt to a terminal status.
type Ingester interface {
	Ingest(ctx context.Context, req models.IngestionRequest, maxWait, pollInterval time.Duration) (models.IngestionStatus, error)
}

// RecordReader reads back the file record written by the pipeline.
type RecordReader interface {
	GetRecord(ctx context.Context, fileName string) (*models.FileRecord, error)
}

// Archive inspects the archive the pipeline stores files in.
type Archive interface {
	CountObjects(ctx context.Context) (int, error)
	// Checksum downloads the object at key and digests it.
	Checksum(ctx context.Context, key string, algorithm models.ChecksumAlgorithm) (string, error)
}

// Dependencies are the collaborators steps use. Records, Archive and
// Ready are optional.
type Dependencies struct {
	Ingester     Ingester
	Records      RecordReader
	Archive      Archive
	Infra        infra.Manager
	Ready        infra.Probe
	MaxWait      time.Duration
	PollInterval time.Duration
	ReadyTimeout time.Duration
}

// Input is what a run starts from.
type Input struct {
	User              string
	FileName          string
	RawChecksum       string
	EncryptedChecksum string
	Algorithm         models.ChecksumAlgorithm
}

// Context is the state of one scenario run.
type Context struct {
	Input
	Deps Dependencies

	Request       *models.IngestionRequest
	Observed      models.IngestionStatus
	Record        *models.FileRecord
	ArchiveBefore int
	ArchiveAfter  int
	// ArchivedChecksum is the sha256 of the downloaded archived object.
	ArchivedChecksum string
}

func newContext(in Input, deps Dependencies) *Context {
	return &Context{
		Input:    in,
		Deps:     deps,
		Observed: models.IngestionStatusNoEntry,
	}
}

// Registry maps scenario ids to scenarios, keeping registration order.
type Registry struct {
	mu        sync.RWMutex
	scenarios map[string]Scenario
	order     []string
}

func NewRegistry() *Registry {
	return &Registry{scenarios: make(map[string]Scenario)}
}

func (r *Registry) Register(s Scenario) error {
	if s.ID == "" {
		return srvErrors.NewInvalidArgumentError("id", "scenario id is empty")
	}
	if len(s.Expected) == 0 {
		return srvErrors.NewInvalidArgumentError("expected", fmt.Sprintf("scenario %s has no expected status", s.ID))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.scenarios[s.ID]; ok {
		return srvErrors.NewInvalidArgumentError("id", fmt.Sprintf("scenario %s already registered", s.ID))
	}
	r.scenarios[s.ID] = s
	r.order = append(r.order, s.ID)
	return nil
}

func (r *Registry) Get(id string) (Scenario, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.scenarios[id]
	if !ok {
		return Scenario{}, srvErrors.NewScenarioNotFoundError(id)
	}
	return s, nil
}

// List returns all scenarios in registration order.
func (r *Registry) List() []Scenario {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Scenario, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.scenarios[id])
	}
	return out
}

// Select returns the scenarios named by ids, or all of them when ids is
// empty.
func (r *Registry) Select(ids ...string) ([]Scenario, error) {
	if len(ids) == 0 {
		return r.List(), nil
	}
	out := make([]Scenario, 0, len(ids))
	for _, id := range ids {
		s, err := r.Get(id)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
