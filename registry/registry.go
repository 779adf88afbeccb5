// Package registry registers and deactivates users.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/semanticallynull/sentra-backend/store"
	"github.com/semanticallynull/sentra-backend/user"
)

var ErrInvalidUser = errors.New("invalid user")

type Registry struct {
	st     *store.Store
	logger *slog.Logger
	now    func() time.Time
}

func New(st *store.Store, logger *slog.Logger) *Registry {
	return &Registry{st: st, logger: logger, now: time.Now}
}

// Registration describes a user to register. ID is optional; when empty an id
// of the form DRIVER-1a2b3c4d is allocated.
type Registration struct {
	ID      string
	Name    string
	Role    user.Role
	Contact string
}

// RegisterUser stores a new active user. A colliding id fails with
// store.ErrDuplicateID.
func (r *Registry) RegisterUser(ctx context.Context, reg Registration) (user.User, error) {
	if strings.TrimSpace(reg.Name) == "" {
		return user.User{}, fmt.Errorf("%w: name is required", ErrInvalidUser)
	}
	id := reg.ID
	if id == "" {
		id = strings.ToUpper(reg.Role.String()) + "-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	}

	u := user.User{
		ID:        id,
		Name:      reg.Name,
		Role:      reg.Role,
		Contact:   reg.Contact,
		Active:    true,
		CreatedAt: r.now().UTC(),
	}
	if err := r.st.CreateUser(u); err != nil {
		return user.User{}, fmt.Errorf("register %s: %w", id, err)
	}
	r.logger.InfoContext(ctx, "user registered", "userId", u.ID, "role", u.Role.String())
	return u, nil
}

func (r *Registry) GetUser(id string) (user.User, error) {
	u, ok := r.st.GetUser(id)
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return u, nil
}

// ListUsersByRole returns active users with the given role.
func (r *Registry) ListUsersByRole(role user.Role) []user.User {
	return r.st.UsersByRole(role)
}

// DeactivateUser clears the active flag. Requests already open are unaffected.
func (r *Registry) DeactivateUser(ctx context.Context, id string) (user.User, error) {
	u, err := r.st.SetUserActive(id, false)
	if err != nil {
		return user.User{}, err
	}
	r.logger.InfoContext(ctx, "user deactivated", "userId", id)
	return u, nil
}

var demoUsers = []Registration{
	{ID: "DRV-001", Name: "João Silva", Role: user.Driver, Contact: "joao@sentra.dev"},
	{ID: "DRV-002", Name: "Maria Santos", Role: user.Driver, Contact: "maria@sentra.dev"},
	{ID: "EMP-001", Name: "TransLog Empresa", Role: user.Enterprise, Contact: "contato@translog.dev"},
	{ID: "ADM-001", Name: "Sistema Admin", Role: user.Admin, Contact: "admin@sentra.dev"},
}

// SeedDemo registers the demo users. Users already present are skipped.
func (r *Registry) SeedDemo(ctx context.Context) error {
	for _, reg := range demoUsers {
		_, err := r.RegisterUser(ctx, reg)
		if err != nil && !errors.Is(err, store.ErrDuplicateID) {
			return err
		}
	}
	return nil
}
