package users

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestUniqueViolation(t *testing.T) {
	dup := &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}
	assert.True(t, uniqueViolation(dup))
	assert.True(t, uniqueViolation(fmt.Errorf("insert user: %w", dup)))

	assert.False(t, uniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, uniqueViolation(errors.New("connection reset")))
	assert.False(t, uniqueViolation(nil))
}
