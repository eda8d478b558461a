package auth

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/virtuallab/virtuallab/internal/authz"
	"github.com/virtuallab/virtuallab/internal/shared"
)

// Repository defines persistence operations for the auth module.
type Repository interface {
	FindByUsername(ctx context.Context, username string) (*User, error)
	Principal(ctx context.Context, userID string) (*authz.Principal, error)
	CreateSession(ctx context.Context, id, userID string, expiresAt time.Time, ip, ua string) error
	DeleteSession(ctx context.Context, id string) error
	TouchLastLogin(ctx context.Context, userID string) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// FindByUsername fetches an active user by login identifier.
func (r *PGRepository) FindByUsername(ctx context.Context, username string) (*User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, username, email, first_name, last_name, phone, password_hash,
		       is_active, COALESCE(preferred_language, ''), created_at, updated_at
		FROM users
		WHERE username = $1 AND is_active = true`, username)

	var user User
	if err := row.Scan(&user.ID, &user.Username, &user.Email, &user.FirstName, &user.LastName,
		&user.Phone, &user.PasswordHash, &user.IsActive, &user.PreferredLanguage,
		&user.CreatedAt, &user.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// Principal hydrates the authorization principal for a user: identity,
// role set, role-derived permissions flattened into one set, active school
// grants and ownership context. The core never expands roles into
// permissions itself; that happens exactly once, here.
func (r *PGRepository) Principal(ctx context.Context, userID string) (*authz.Principal, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, username, email, first_name, last_name, COALESCE(preferred_language, '')
		FROM users
		WHERE id = $1 AND is_active = true`, userID)

	var (
		p         authz.Principal
		firstName string
		lastName  string
	)
	if err := row.Scan(&p.ID, &p.Username, &p.Email, &firstName, &lastName, &p.PreferredLanguage); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	p.Name = (&User{Username: p.Username, FirstName: firstName, LastName: lastName}).Name()

	roles, err := r.userRoles(ctx, userID)
	if err != nil {
		return nil, err
	}
	p.Roles = roles

	permissions, err := r.userPermissions(ctx, userID)
	if err != nil {
		return nil, err
	}
	p.Permissions = permissions

	grants, err := r.schoolGrants(ctx, userID)
	if err != nil {
		return nil, err
	}
	p.SchoolAccess = grants

	if err := r.ownershipContext(ctx, userID, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PGRepository) userRoles(ctx context.Context, userID string) ([]authz.Role, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT r.name
		FROM user_roles ur
		JOIN roles r ON r.id = ur.role_id AND r.is_active = true
		WHERE ur.user_id = $1 AND ur.is_active = true
		ORDER BY r.name`, userID)
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

func (r *PGRepository) userPermissions(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT p.resource || '.' || p.action
		FROM user_roles ur
		JOIN role_permissions rp ON rp.role_id = ur.role_id
		JOIN permissions p ON p.id = rp.permission_id
		WHERE ur.user_id = $1 AND ur.is_active = true
		ORDER BY 1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var permissions []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		permissions = append(permissions, name)
	}
	return permissions, rows.Err()
}

func (r *PGRepository) schoolGrants(ctx context.Context, userID string) ([]authz.SchoolGrant, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT school_id, access_type, COALESCE(subject, '')
		FROM user_school_access
		WHERE user_id = $1 AND is_active = true
		  AND (expires_at IS NULL OR expires_at > NOW())
		ORDER BY id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var grants []authz.SchoolGrant
	for rows.Next() {
		var grant authz.SchoolGrant
		if err := rows.Scan(&grant.SchoolID, &grant.Level, &grant.Subject); err != nil {
			return nil, err
		}
		grants = append(grants, grant)
	}
	return grants, rows.Err()
}

func (r *PGRepository) ownershipContext(ctx context.Context, userID string, p *authz.Principal) error {
	err := r.pool.QueryRow(ctx, `SELECT id FROM students WHERE user_id = $1`, userID).Scan(&p.StudentID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT student_id
		FROM student_guardians
		WHERE guardian_user_id = $1 AND is_active = true
		ORDER BY student_id`, userID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var childID string
		if err := rows.Scan(&childID); err != nil {
			return err
		}
		p.ChildrenIDs = append(p.ChildrenIDs, childID)
	}
	return rows.Err()
}

// CreateSession persists a new login session in the database for auditing.
func (r *PGRepository) CreateSession(ctx context.Context, id, userID string, expiresAt time.Time, ip, ua string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO user_sessions (id, user_id, expires_at, ip_address, user_agent, is_active, created_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), true, NOW())`,
		id, userID, expiresAt.UTC(), ip, ua)
	return err
}

// DeleteSession marks a session record inactive.
func (r *PGRepository) DeleteSession(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `UPDATE user_sessions SET is_active = false WHERE id = $1`, id)
	return err
}

// TouchLastLogin stamps the user's last successful login.
func (r *PGRepository) TouchLastLogin(ctx context.Context, userID string) error {
	_, err := r.pool.Exec(ctx, `UPDATE users SET last_login_at = NOW(), updated_at = NOW() WHERE id = $1`, userID)
	return err
}

var _ Repository = (*PGRepository)(nil)
