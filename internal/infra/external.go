package infra

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	srvErrors "github.com/nbisweden/lega-e2e/pkg/errors"
)

const externalReason = "the deployment is managed externally (infra.mode=external)"

// ExternalManager implements Manager for deployments managed elsewhere
// (e.g. docker compose or a Kubernetes cluster). It cannot touch any
// container, so every call returns an UnsupportedOperationError.
type ExternalManager struct{}

func NewExternalManager() *ExternalManager {
	return &ExternalManager{}
}

func (e *ExternalManager) Stop(_ context.Context, role Role) error {
	return e.unsupported(fmt.Sprintf("stop %s", role))
}

func (e *ExternalManager) Start(_ context.Context, role Role) error {
	return e.unsupported(fmt.Sprintf("start %s", role))
}

func (e *ExternalManager) Restart(_ context.Context, role Role) error {
	return e.unsupported(fmt.Sprintf("restart %s", role))
}

func (e *ExternalManager) RestartAll(_ context.Context) error {
	return e.unsupported("restart all")
}

func (e *ExternalManager) unsupported(op string) error {
	zap.S().Named("infra").Debugw("external infra, cannot control containers", "operation", op)
	return srvErrors.NewUnsupportedOperationError(op, externalReason)
}
