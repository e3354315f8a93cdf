package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Role is what a user may do in the dashboard
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleCollector Role = "cobrador"
)

// User is an administrator or a field collector. Identity is owned by the
// external identity provider; AuthSubject links the two.
type User struct {
	ID          uuid.UUID `json:"id"`
	AuthSubject string    `json:"-"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	Role        Role      `json:"role"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"createdAt"`
}

// IsAdmin reports whether u has the admin role
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// UserRepository defines the interface for user persistence operations
type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByAuthSubject(ctx context.Context, subject string) (*User, error)
	ListByRole(ctx context.Context, role Role) ([]*User, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) (*User, error)
}
