// Package user holds the participants of a ride: drivers, enterprises and admins.
package user

import (
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

var (
	ErrNotFound    = errors.New("user not found")
	ErrUnknownRole = errors.New("unknown role")
)

type Role int

const (
	Driver Role = iota
	Enterprise
	Admin
)

func (r Role) String() string {
	return [...]string{"driver", "enterprise", "admin"}[r]
}

// ParseRole is the inverse of String.
func ParseRole(s string) (Role, error) {
	switch s {
	case "driver":
		return Driver, nil
	case "enterprise":
		return Enterprise, nil
	case "admin":
		return Admin, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownRole, s)
}

func (r Role) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

func (r *Role) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseRole(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// User is a registered participant. Users are never deleted, only deactivated.
type User struct {
	// ID is immutable once registered (e.g. "DRV-001").
	ID      string `json:"id"`
	Name    string `json:"name"`
	Role    Role   `json:"role"`
	Contact string `json:"contact"`
	// Active is cleared on deactivation. Inactive users cannot take part in new ride requests.
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
}

// Is reports whether u is an active user holding role r.
func (u User) Is(r Role) bool {
	return u.Active && u.Role == r
}
