package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/prestadiario/prestadiario-backend/internal/domain"
)

// UserRepository implements domain.UserRepository using PostgreSQL
type UserRepository struct {
	db DBTX
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, auth_subject, email, name, role, active, created_at`

// GetByID retrieves a user by their UUID
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, uuidToPg(id))
	user, err := scanUser(row)
	if err != nil {
		return nil, translateError(err, domain.ErrUserNotFound)
	}
	return user, nil
}

// GetByAuthSubject retrieves a user by the identity provider subject
func (r *UserRepository) GetByAuthSubject(ctx context.Context, subject string) (*domain.User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE auth_subject = $1`, subject)
	user, err := scanUser(row)
	if err != nil {
		return nil, translateError(err, domain.ErrUserNotFound)
	}
	return user, nil
}

// ListByRole returns users with role, ordered by name
func (r *UserRepository) ListByRole(ctx context.Context, role domain.Role) ([]*domain.User, error) {
	rows, err := r.db.Query(ctx, `SELECT `+userColumns+` FROM users WHERE role = $1 ORDER BY name, id`, string(role))
	if err != nil {
		return nil, translateError(err, nil)
	}
	defer rows.Close()

	users := make([]*domain.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, translateError(err, nil)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, translateError(err, nil)
	}
	return users, nil
}

// SetActive enables or disables a user
func (r *UserRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) (*domain.User, error) {
	row := r.db.QueryRow(ctx, `UPDATE users SET active = $2 WHERE id = $1 RETURNING `+userColumns, uuidToPg(id), active)
	user, err := scanUser(row)
	if err != nil {
		return nil, translateError(err, domain.ErrUserNotFound)
	}
	return user, nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var (
		id        pgtype.UUID
		role      string
		createdAt pgtype.Timestamptz
		u         domain.User
	)
	if err := row.Scan(&id, &u.AuthSubject, &u.Email, &u.Name, &role, &u.Active, &createdAt); err != nil {
		return nil, err
	}
	u.ID = pgToUUID(id)
	u.Role = domain.Role(role)
	u.CreatedAt = createdAt.Time
	return &u, nil
}
