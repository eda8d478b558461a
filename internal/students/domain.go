package students

import "time"

// Student represents an enrolled learner. UserID links to the account a
// student signs in with and may be empty for records created before the
// account exists.
type Student struct {
	ID            string     `json:"id"`
	UserID        string     `json:"user_id,omitempty"`
	SchoolID      int64      `json:"school_id"`
	StudentNumber string     `json:"student_number"`
	FirstName     string     `json:"first_name"`
	LastName      string     `json:"last_name"`
	Gender        string     `json:"gender,omitempty"`
	GradeLevel    string     `json:"grade_level"`
	Class         string     `json:"class,omitempty"`
	DateOfBirth   *time.Time `json:"date_of_birth,omitempty"`
	IsActive      bool       `json:"is_active"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Name renders the display name used across listings.
func (s Student) Name() string {
	if s.FirstName == "" {
		return s.LastName
	}
	if s.LastName == "" {
		return s.FirstName
	}
	return s.FirstName + " " + s.LastName
}

// CreateInput carries fields for a new enrollment.
type CreateInput struct {
	SchoolID      int64
	UserID        string
	StudentNumber string
	FirstName     string
	LastName      string
	Gender        string
	GradeLevel    string
	Class         string
	DateOfBirth   *time.Time
}

// UpdateInput carries mutable fields. Nil pointers leave the stored
// value untouched.
type UpdateInput struct {
	FirstName   *string
	LastName    *string
	Gender      *string
	GradeLevel  *string
	Class       *string
	DateOfBirth *time.Time
}

// ListFilter narrows school listings.
type ListFilter struct {
	Query      string
	GradeLevel string
	Class      string
	Page       int
	PerPage    int
}
