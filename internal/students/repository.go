package students

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/virtuallab/virtuallab/internal/platform/httpx"
)

// RepositoryPort defines data access methods for student records.
type RepositoryPort interface {
	ListBySchool(ctx context.Context, schoolID int64, filter ListFilter) ([]Student, int, error)
	Get(ctx context.Context, id string) (*Student, error)
	Create(ctx context.Context, student *Student) error
	Update(ctx context.Context, id string, input UpdateInput) (*Student, error)
	CountBySchool(ctx context.Context, schoolIDs []int64) (map[int64]int, error)
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const studentColumns = `id, COALESCE(user_id::text, ''), school_id, student_number, first_name, last_name, COALESCE(gender, ''), grade_level, COALESCE(class, ''), date_of_birth, is_active, created_at, updated_at`

// ListBySchool returns active students of one school ordered by name,
// plus the unpaginated total.
func (r *Repository) ListBySchool(ctx context.Context, schoolID int64, filter ListFilter) ([]Student, int, error) {
	where := []string{"school_id = $1", "is_active"}
	args := []any{schoolID}

	if q := strings.TrimSpace(filter.Query); q != "" {
		args = append(args, "%"+strings.ToLower(q)+"%")
		where = append(where, fmt.Sprintf("(LOWER(first_name || ' ' || last_name) LIKE $%d OR LOWER(student_number) LIKE $%d)", len(args), len(args)))
	}
	if filter.GradeLevel != "" {
		args = append(args, filter.GradeLevel)
		where = append(where, fmt.Sprintf("grade_level = $%d", len(args)))
	}
	if filter.Class != "" {
		args = append(args, filter.Class)
		where = append(where, fmt.Sprintf("class = $%d", len(args)))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM students WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	perPage := filter.PerPage
	if perPage <= 0 {
		perPage = 50
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	args = append(args, perPage, (page-1)*perPage)
	query := fmt.Sprintf(`SELECT %s FROM students WHERE %s ORDER BY first_name, last_name LIMIT $%d OFFSET $%d`, studentColumns, cond, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []Student
	for rows.Next() {
		var s Student
		if err := rows.Scan(&s.ID, &s.UserID, &s.SchoolID, &s.StudentNumber, &s.FirstName, &s.LastName, &s.Gender, &s.GradeLevel, &s.Class, &s.DateOfBirth, &s.IsActive, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, 0, err
		}
		result = append(result, s)
	}
	return result, total, rows.Err()
}

// Get loads a single record.
func (r *Repository) Get(ctx context.Context, id string) (*Student, error) {
	var s Student
	err := r.pool.QueryRow(ctx, `SELECT `+studentColumns+` FROM students WHERE id = $1`, id).
		Scan(&s.ID, &s.UserID, &s.SchoolID, &s.StudentNumber, &s.FirstName, &s.LastName, &s.Gender, &s.GradeLevel, &s.Class, &s.DateOfBirth, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, httpx.ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

// Create inserts the enrollment record.
func (r *Repository) Create(ctx context.Context, student *Student) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO students (id, user_id, school_id, student_number, first_name, last_name, gender, grade_level, class, date_of_birth, is_active, created_at, updated_at)
		VALUES ($1, NULLIF($2, '')::uuid, $3, $4, $5, $6, NULLIF($7, ''), $8, NULLIF($9, ''), $10, TRUE, NOW(), NOW())`,
		student.ID, student.UserID, student.SchoolID, student.StudentNumber, student.FirstName, student.LastName, student.Gender, student.GradeLevel, student.Class, student.DateOfBirth)
	return err
}

// Update applies the non-nil fields and returns the refreshed record.
func (r *Repository) Update(ctx context.Context, id string, input UpdateInput) (*Student, error) {
	set := []string{"updated_at = NOW()"}
	args := []any{}

	appendSet := func(column string, value *string) {
		if value == nil {
			return
		}
		args = append(args, *value)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	appendSet("first_name", input.FirstName)
	appendSet("last_name", input.LastName)
	appendSet("gender", input.Gender)
	appendSet("grade_level", input.GradeLevel)
	appendSet("class", input.Class)
	if input.DateOfBirth != nil {
		args = append(args, *input.DateOfBirth)
		set = append(set, fmt.Sprintf("date_of_birth = $%d", len(args)))
	}

	args = append(args, id)
	tag, err := r.pool.Exec(ctx, fmt.Sprintf(`UPDATE students SET %s WHERE id = $%d`, strings.Join(set, ", "), len(args)), args...)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, httpx.ErrNotFound
	}
	return r.Get(ctx, id)
}

// CountBySchool returns active enrollment counts for the given schools.
func (r *Repository) CountBySchool(ctx context.Context, schoolIDs []int64) (map[int64]int, error) {
	counts := make(map[int64]int, len(schoolIDs))
	if len(schoolIDs) == 0 {
		return counts, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT school_id, COUNT(*) FROM students WHERE is_active AND school_id = ANY($1) GROUP BY school_id`, schoolIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var schoolID int64
		var count int
		if err := rows.Scan(&schoolID, &count); err != nil {
			return nil, err
		}
		counts[schoolID] = count
	}
	return counts, rows.Err()
}
