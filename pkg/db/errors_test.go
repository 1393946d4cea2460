package db

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestIsUniqueViolationPgconn(t *testing.T) {
	dup := &pgconn.PgError{Code: "23505", ConstraintName: "idx_ratings_user_store"}

	assert.True(t, IsUniqueViolation(dup, ""))
	assert.True(t, IsUniqueViolation(dup, "idx_ratings_user_store"))
	assert.False(t, IsUniqueViolation(dup, "users_email_key"))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}, ""))
}

func TestIsUniqueViolationMessageFallback(t *testing.T) {
	pgText := errors.New(`duplicate key value violates unique constraint "users_email_key"`)
	assert.True(t, IsUniqueViolation(pgText, ""))
	assert.True(t, IsUniqueViolation(pgText, "users_email_key"))
	assert.False(t, IsUniqueViolation(pgText, "stores_email_key"))

	assert.False(t, IsUniqueViolation(errors.New("connection refused"), ""))
	assert.False(t, IsUniqueViolation(nil, ""))
}

// sqlite reports duplicate columns instead of a constraint name, so a named
// check must still recognize its unique failures.
func TestIsUniqueViolationSQLite(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE ratings (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  store_id TEXT NOT NULL,
  rating INTEGER NOT NULL,
  UNIQUE (user_id, store_id)
);`
	require.NoError(t, conn.Exec(schema).Error)

	insert := `INSERT INTO ratings (id, user_id, store_id, rating) VALUES (?, ?, ?, ?)`
	require.NoError(t, conn.Exec(insert, "r1", "u1", "s1", 4).Error)

	dupErr := conn.Exec(insert, "r2", "u1", "s1", 5).Error
	require.Error(t, dupErr)

	assert.True(t, IsUniqueViolation(dupErr, ""))
	assert.True(t, IsUniqueViolation(dupErr, "idx_ratings_user_store"))
	assert.True(t, IsUniqueViolation(dupErr, "users_email_key"))
}
