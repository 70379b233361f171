package infra

import (
	"context"
	"fmt"

	"github.com/containers/podman/v5/pkg/bindings"
	"github.com/containers/podman/v5/pkg/bindings/containers"
	"go.uber.org/zap"

	srvErrors "github.com/nbisweden/lega-e2e/pkg/errors"
)

const stopTimeoutSeconds = 10

// ContainerAPI is the part of the Podman API the manager uses.
type ContainerAPI interface {
	Exists(ctx context.Context, name string) (bool, error)
	Start(ctx context.Context, name string) error
	Stop(ctx context.Context, name string) error
	Restart(ctx context.Context, name string) error
}

// PodmanAPI talks to a Podman service socket. The bindings carry the
// connection in a context, so per-call contexts only gate the call.
type PodmanAPI struct {
	conn context.Context
}

// NewPodmanAPI connects to uri, e.g. unix:///run/user/1000/podman/podman.sock.
func NewPodmanAPI(ctx context.Context, uri string) (*PodmanAPI, error) {
	conn, err := bindings.NewConnection(ctx, uri)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to podman at %s: %w", uri, err)
	}
	return &PodmanAPI{conn: conn}, nil
}

func (p *PodmanAPI) Exists(ctx context.Context, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return containers.Exists(p.conn, name, nil)
}

func (p *PodmanAPI) Start(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return containers.Start(p.conn, name, nil)
}

func (p *PodmanAPI) Stop(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return containers.Stop(p.conn, name, new(containers.StopOptions).WithTimeout(stopTimeoutSeconds))
}

func (p *PodmanAPI) Restart(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return containers.Restart(p.conn, name, new(containers.RestartOptions).WithTimeout(stopTimeoutSeconds))
}

// PodmanManager implements Manager on top of a ContainerAPI.
type PodmanManager struct {
	api        ContainerAPI
	containers Containers
	logger     *zap.SugaredLogger
}

func NewPodmanManager(api ContainerAPI, c Containers) *PodmanManager {
	return &PodmanManager{api: api, containers: c, logger: zap.S().Named("infra")}
}

func (m *PodmanManager) resolve(ctx context.Context, role Role) (string, error) {
	name, err := m.containers.Name(role)
	if err != nil {
		return "", err
	}
	exists, err := m.api.Exists(ctx, name)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", srvErrors.NewContainerNotFoundError(name)
	}
	return name, nil
}

func (m *PodmanManager) Stop(ctx context.Context, role Role) error {
	name, err := m.resolve(ctx, role)
	if err != nil {
		return err
	}
	m.logger.Infow("stopping container", "role", role, "container", name)
	if err := m.api.Stop(ctx, name); err != nil {
		return fmt.Errorf("failed to stop %s: %w", name, err)
	}
	return nil
}

func (m *PodmanManager) Start(ctx context.Context, role Role) error {
	name, err := m.resolve(ctx, role)
	if err != nil {
		return err
	}
	m.logger.Infow("starting container", "role", role, "container", name)
	if err := m.api.Start(ctx, name); err != nil {
		return fmt.Errorf("failed to start %s: %w", name, err)
	}
	return nil
}

func (m *PodmanManager) Restart(ctx context.Context, role Role) error {
	name, err := m.resolve(ctx, role)
	if err != nil {
		return err
	}
	m.logger.Infow("restarting container", "role", role, "container", name)
	if err := m.api.Restart(ctx, name); err != nil {
		return fmt.Errorf("failed to restart %s: %w", name, err)
	}
	return nil
}

func (m *PodmanManager) RestartAll(ctx context.Context) error {
	return restartAll(ctx, m, m.containers.Roles())
}
