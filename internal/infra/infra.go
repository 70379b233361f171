// Package infra controls the containers of a LocalEGA deployment for
// scenarios that stop, start or restart parts of the pipeline.
package infra

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"
)

const (
	ModeContainer = "container"
	ModeExternal  = "external"
)

// Role names a LocalEGA component.
type Role string

const (
	RoleKeys   Role = "keys"
	RoleDB     Role = "db"
	RoleMQ     Role = "mq"
	RoleInbox  Role = "inbox"
	RoleIngest Role = "ingest"
	RoleVault  Role = "vault"
)

// Manager abstracts the lifecycle of the deployment containers.
// Container-based: talks to Podman.
// External: the deployment is managed elsewhere and container control is
// refused.
type Manager interface {
	Stop(ctx context.Context, role Role) error
	Start(ctx context.Context, role Role) error
	Restart(ctx context.Context, role Role) error
	// RestartAll restarts every known container concurrently.
	RestartAll(ctx context.Context) error
}

// Containers maps roles to container names.
type Containers map[Role]string

func (c Containers) Name(role Role) (string, error) {
	name, ok := c[role]
	if !ok || name == "" {
		return "", fmt.Errorf("no container configured for %q", role)
	}
	return name, nil
}

// Roles returns the configured roles in a stable order.
func (c Containers) Roles() []Role {
	roles := make([]Role, 0, len(c))
	for r, name := range c {
		if name != "" {
			roles = append(roles, r)
		}
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i] < roles[j] })
	return roles
}

func restartAll(ctx context.Context, m Manager, roles []Role) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, role := range roles {
		g.Go(func() error {
			return m.Restart(gctx, role)
		})
	}
	return g.Wait()
}

// NewManager selects the implementation for mode.
func NewManager(ctx context.Context, mode, podmanSocket string, containers Containers) (Manager, error) {
	switch mode {
	case ModeContainer:
		api, err := NewPodmanAPI(ctx, podmanSocket)
		if err != nil {
			return nil, err
		}
		return NewPodmanManager(api, containers), nil
	case ModeExternal, "":
		return NewExternalManager(), nil
	default:
		return nil, fmt.Errorf("invalid infra mode %q: must be %q or %q", mode, ModeContainer, ModeExternal)
	}
}
