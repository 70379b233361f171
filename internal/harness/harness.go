// Package harness builds the collaborators of a harness run from the
// configuration: the status query, the broker publisher, the results
// store, the archive checker and the infra manager. The CLI and the
// end-to-end suite share it so both talk to a deployment the same way.
package harness

import (
	"context"
	"errors"
	"net/url"

	"go.uber.org/zap"

	"github.com/nbisweden/lega-e2e/internal/archive"
	"github.com/nbisweden/lega-e2e/internal/broker"
	"github.com/nbisweden/lega-e2e/internal/config"
	"github.com/nbisweden/lega-e2e/internal/infra"
	"github.com/nbisweden/lega-e2e/internal/scenario"
	"github.com/nbisweden/lega-e2e/internal/services"
	"github.com/nbisweden/lega-e2e/internal/status"
	"github.com/nbisweden/lega-e2e/internal/store"
	"github.com/nbisweden/lega-e2e/internal/trace"
	srvErrors "github.com/nbisweden/lega-e2e/pkg/errors"
)

// Harness opens collaborators lazily, at most once each, and closes what it
// opened. It is not safe for concurrent use while building.
type Harness struct {
	cfg     *config.Configuration
	trace   trace.Store
	closers []func() error

	query   *status.PostgresQuery
	results *store.Store
	manager infra.Manager
}

func New(cfg *config.Configuration) *Harness {
	return NewWithTrace(cfg, trace.NewFileStore(cfg.TraceFile))
}

// NewWithTrace reads generated credentials from s instead of the trace
// file.
func NewWithTrace(cfg *config.Configuration, s trace.Store) *Harness {
	return &Harness{cfg: cfg, trace: s}
}

func (h *Harness) Close() error {
	var errs []error
	for i := len(h.closers) - 1; i >= 0; i-- {
		errs = append(errs, h.closers[i]())
	}
	h.closers = nil
	return errors.Join(errs...)
}

func (h *Harness) StatusQuery() (*status.PostgresQuery, error) {
	if h.query != nil {
		return h.query, nil
	}
	dsn, err := trace.WithURLCredentials(h.cfg.Database.DSN, h.trace, trace.KeyDBUser, trace.KeyDBPassword)
	if err != nil {
		return nil, err
	}
	db, err := status.NewDB(dsn)
	if err != nil {
		return nil, err
	}
	h.closers = append(h.closers, db.Close)
	if h.query, err = status.NewPostgresQuery(db, h.cfg.Database.FileColumn); err != nil {
		return nil, err
	}
	return h.query, nil
}

// BrokerURL returns the broker URL with credentials from the trace and the
// instance as vhost when the URL names none.
func (h *Harness) BrokerURL() (string, error) {
	u, err := trace.WithURLCredentials(h.cfg.Broker.URL, h.trace, trace.KeyCegaMQUser, trace.KeyCegaMQPassword)
	if err != nil {
		return "", err
	}
	return withVhost(u, h.cfg.Instance)
}

func (h *Harness) Publisher() (*broker.Publisher, error) {
	u, err := h.BrokerURL()
	if err != nil {
		return nil, err
	}
	return broker.NewPublisher(u,
		broker.WithExchange(h.cfg.Broker.Exchange),
		broker.WithRoutingKey(h.cfg.Broker.RoutingKey),
	), nil
}

// Waiter drives ingestion attempts with the configured settle delay and
// Archived handling.
func (h *Harness) Waiter() (*services.IngestionWaiter, error) {
	query, err := h.StatusQuery()
	if err != nil {
		return nil, err
	}
	pub, err := h.Publisher()
	if err != nil {
		return nil, err
	}
	return services.NewIngestionWaiter(pub, query,
		services.WithSettleDelay(h.cfg.Ingest.SettleDelay),
		services.WithArchivedTransient(h.cfg.Ingest.ArchivedIsTransient),
	), nil
}

// Results opens and migrates the results store at the configured path.
func (h *Harness) Results(ctx context.Context) (*store.Store, error) {
	if h.results != nil {
		return h.results, nil
	}
	db, err := store.NewDB(h.cfg.ResultsDB)
	if err != nil {
		return nil, err
	}
	s := store.NewStore(db)
	h.closers = append(h.closers, s.Close)
	if err := s.Migrate(ctx); err != nil {
		return nil, err
	}
	h.results = s
	return s, nil
}

// ArchiveOptions resolves the archive settings, taking credentials the
// configuration leaves empty from the trace.
func (h *Harness) ArchiveOptions() (archive.Options, error) {
	accessKey, err := traceOr(h.trace, h.cfg.Archive.AccessKey, trace.KeyS3AccessKey)
	if err != nil {
		return archive.Options{}, err
	}
	secretKey, err := traceOr(h.trace, h.cfg.Archive.SecretKey, trace.KeyS3SecretKey)
	if err != nil {
		return archive.Options{}, err
	}
	return archive.Options{
		Endpoint:  h.cfg.Archive.Endpoint,
		Region:    h.cfg.Archive.Region,
		Bucket:    h.cfg.Archive.Bucket,
		AccessKey: accessKey,
		SecretKey: secretKey,
	}, nil
}

// ArchiveChecker returns nil when no archive endpoint is configured.
func (h *Harness) ArchiveChecker(ctx context.Context) (*archive.Checker, error) {
	if h.cfg.Archive.Endpoint == "" {
		return nil, nil
	}
	opts, err := h.ArchiveOptions()
	if err != nil {
		return nil, err
	}
	return archive.NewChecker(ctx, opts)
}

func (h *Harness) InfraManager(ctx context.Context) (infra.Manager, error) {
	if h.manager != nil {
		return h.manager, nil
	}
	m, err := infra.NewManager(ctx, h.cfg.Infra.Mode, h.cfg.Infra.PodmanSocket, h.cfg.Infra.Containers.Map())
	if err != nil {
		return nil, err
	}
	h.manager = m
	return m, nil
}

// Dependencies wires everything a scenario step may use.
func (h *Harness) Dependencies(ctx context.Context) (scenario.Dependencies, error) {
	query, err := h.StatusQuery()
	if err != nil {
		return scenario.Dependencies{}, err
	}
	waiter, err := h.Waiter()
	if err != nil {
		return scenario.Dependencies{}, err
	}
	manager, err := h.InfraManager(ctx)
	if err != nil {
		return scenario.Dependencies{}, err
	}

	deps := scenario.Dependencies{
		Ingester:     waiter,
		Records:      query,
		Infra:        manager,
		Ready:        query.Ping,
		MaxWait:      h.cfg.Ingest.MaxTimeout,
		PollInterval: h.cfg.Ingest.PollInterval,
		ReadyTimeout: h.cfg.Ingest.ReadyTimeout,
	}
	checker, err := h.ArchiveChecker(ctx)
	if err != nil {
		return scenario.Dependencies{}, err
	}
	if checker != nil {
		deps.Archive = checker
	} else {
		zap.S().Named("harness").Debugw("no archive endpoint configured, archive checks disabled")
	}
	return deps, nil
}

// Runner wires a scenario runner journaling into the results store.
func (h *Harness) Runner(ctx context.Context, input scenario.Input) (*scenario.Runner, error) {
	deps, err := h.Dependencies(ctx)
	if err != nil {
		return nil, err
	}
	results, err := h.Results(ctx)
	if err != nil {
		return nil, err
	}
	if input.User == "" {
		input.User = h.cfg.User
	}
	return scenario.NewRunner(deps, input, scenario.WithJournal(results.Attempts())), nil
}

// withVhost sets the broker vhost to instance when the URL names none.
func withVhost(raw, instance string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if (u.Path == "" || u.Path == "/") && instance != "" {
		u.Path = "/" + instance
	}
	return u.String(), nil
}

// traceOr returns value, or the trace value of key when value is empty.
func traceOr(s trace.Store, value, key string) (string, error) {
	v, err := trace.Resolve(s, value, key)
	if srvErrors.IsResourceNotFoundError(err) {
		return "", nil
	}
	return v, err
}
