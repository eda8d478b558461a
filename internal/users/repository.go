package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/virtuallab/virtuallab/internal/authz"
	"github.com/virtuallab/virtuallab/internal/platform/db"
	"github.com/virtuallab/virtuallab/internal/platform/httpx"
)

// RepositoryPort defines data access methods for user management.
type RepositoryPort interface {
	List(ctx context.Context, filter ListFilter) ([]User, int, error)
	Get(ctx context.Context, id string) (*User, error)
	Create(ctx context.Context, user *User, passwordHash string) error
	Update(ctx context.Context, id string, input UpdateInput) (*User, error)
	SetActive(ctx context.Context, id string, active bool) error
	AssignRole(ctx context.Context, userID string, role authz.Role, assignedBy string) error
	RevokeRole(ctx context.Context, userID string, role authz.Role) error
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const userColumns = `u.id, u.username, u.email, u.first_name, u.last_name, COALESCE(u.phone, ''), COALESCE(u.preferred_language, ''), u.is_active, u.last_login_at, u.created_at, u.updated_at`

// List returns users matching the filter plus the unpaginated total.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]User, int, error) {
	where := []string{"1=1"}
	args := []any{}

	if q := strings.TrimSpace(filter.Query); q != "" {
		args = append(args, "%"+strings.ToLower(q)+"%")
		where = append(where, fmt.Sprintf("(LOWER(u.username) LIKE $%d OR LOWER(u.email) LIKE $%d OR LOWER(u.first_name || ' ' || u.last_name) LIKE $%d)", len(args), len(args), len(args)))
	}
	if filter.Role != "" {
		args = append(args, string(filter.Role))
		where = append(where, fmt.Sprintf("EXISTS (SELECT 1 FROM user_roles ur JOIN roles ro ON ro.id = ur.role_id WHERE ur.user_id = u.id AND ur.is_active AND ro.name = $%d)", len(args)))
	}
	if filter.Active != nil {
		args = append(args, *filter.Active)
		where = append(where, fmt.Sprintf("u.is_active = $%d", len(args)))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users u WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	perPage := filter.PerPage
	if perPage <= 0 {
		perPage = 20
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	args = append(args, perPage, (page-1)*perPage)
	query := fmt.Sprintf(`SELECT %s FROM users u WHERE %s ORDER BY u.created_at DESC, u.id LIMIT $%d OFFSET $%d`, userColumns, cond, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, user)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	for i := range result {
		roles, err := r.userRoles(ctx, result[i].ID)
		if err != nil {
			return nil, 0, err
		}
		result[i].Roles = roles
	}
	return result, total, nil
}

// Get loads a single user with active role names.
func (r *Repository) Get(ctx context.Context, id string) (*User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users u WHERE u.id = $1`, id)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, httpx.ErrNotFound
		}
		return nil, err
	}
	roles, err := r.userRoles(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	user.Roles = roles
	return &user, nil
}

// Create inserts the account and its initial role grants in one
// transaction. Unique violations surface as ErrDuplicate.
func (r *Repository) Create(ctx context.Context, user *User, passwordHash string) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `INSERT INTO users (id, username, email, password_hash, first_name, last_name, phone, preferred_language, is_active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), NULLIF($8, ''), $9, NOW(), NOW())`,
			user.ID, user.Username, user.Email, passwordHash, user.FirstName, user.LastName, user.Phone, user.PreferredLanguage, user.IsActive)
		if err != nil {
			if uniqueViolation(err) {
				return httpx.ErrDuplicate
			}
			return err
		}

		for _, role := range user.Roles {
			if err := insertRole(ctx, tx, user.ID, role, user.ID); err != nil {
				return err
			}
		}
		return nil
	})
}

// Update applies the non-nil fields and returns the refreshed record.
func (r *Repository) Update(ctx context.Context, id string, input UpdateInput) (*User, error) {
	set := []string{"updated_at = NOW()"}
	args := []any{}

	appendSet := func(column string, value *string) {
		if value == nil {
			return
		}
		args = append(args, *value)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	appendSet("email", input.Email)
	appendSet("first_name", input.FirstName)
	appendSet("last_name", input.LastName)
	appendSet("phone", input.Phone)
	appendSet("preferred_language", input.PreferredLanguage)

	args = append(args, id)
	tag, err := r.pool.Exec(ctx, fmt.Sprintf(`UPDATE users SET %s WHERE id = $%d`, strings.Join(set, ", "), len(args)), args...)
	if err != nil {
		if uniqueViolation(err) {
			return nil, httpx.ErrDuplicate
		}
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, httpx.ErrNotFound
	}
	return r.Get(ctx, id)
}

// SetActive toggles the account flag.
func (r *Repository) SetActive(ctx context.Context, id string, active bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET is_active = $2, updated_at = NOW() WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

// AssignRole grants the role by name, reactivating a prior grant when
// one exists.
func (r *Repository) AssignRole(ctx context.Context, userID string, role authz.Role, assignedBy string) error {
	return insertRole(ctx, r.pool, userID, role, assignedBy)
}

// RevokeRole deactivates the role grant.
func (r *Repository) RevokeRole(ctx context.Context, userID string, role authz.Role) error {
	tag, err := r.pool.Exec(ctx, `UPDATE user_roles SET is_active = FALSE
		WHERE user_id = $1 AND role_id = (SELECT id FROM roles WHERE name = $2)`, userID, string(role))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

type pgExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// uniqueViolation reports whether the error is a Postgres 23505.
func uniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func insertRole(ctx context.Context, db pgExecutor, userID string, role authz.Role, assignedBy string) error {
	tag, err := db.Exec(ctx, `INSERT INTO user_roles (user_id, role_id, assigned_by, assigned_at, is_active)
		SELECT $1, id, $3, NOW(), TRUE FROM roles WHERE name = $2
		ON CONFLICT (user_id, role_id) DO UPDATE SET is_active = TRUE, assigned_by = EXCLUDED.assigned_by, assigned_at = NOW()`,
		userID, string(role), assignedBy)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

func (r *Repository) userRoles(ctx context.Context, userID string) ([]authz.Role, error) {
	rows, err := r.pool.Query(ctx, `SELECT ro.name FROM user_roles ur
		JOIN roles ro ON ro.id = ur.role_id
		WHERE ur.user_id = $1 AND ur.is_active AND ro.is_active
		ORDER BY ro.name`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var roles []authz.Role
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		roles = append(roles, authz.Role(name))
	}
	return roles, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (User, error) {
	var user User
	var lastLogin *time.Time
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.FirstName, &user.LastName, &user.Phone, &user.PreferredLanguage, &user.IsActive, &lastLogin, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return User{}, err
	}
	user.LastLoginAt = lastLogin
	return user, nil
}
