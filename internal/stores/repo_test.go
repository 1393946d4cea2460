package stores

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupStoresTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	ratings := `
CREATE TABLE IF NOT EXISTS ratings (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  store_id TEXT NOT NULL,
  rating INTEGER NOT NULL,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (user_id, store_id)
);`
	users := `
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  email TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL DEFAULT '',
  address TEXT NOT NULL DEFAULT '',
  role TEXT NOT NULL DEFAULT 'user',
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, conn.Exec(ratings).Error)
	require.NoError(t, conn.Exec(users).Error)
	return conn
}

func TestRepositoryRatersForStoreOrdersByCreation(t *testing.T) {
	conn := setupStoresTestDB(t)
	repo := NewRepository(conn)
	storeID := uuid.New()

	firstRater := uuid.New()
	secondRater := uuid.New()
	insertUser := `INSERT INTO users (id, name, email) VALUES (?, ?, ?)`
	require.NoError(t, conn.Exec(insertUser, firstRater.String(), "Alice Example", "alice@example.com").Error)
	require.NoError(t, conn.Exec(insertUser, secondRater.String(), "Bob Example", "bob@example.com").Error)

	// The first rating was later edited, so its updated_at is the newest of
	// the two. The roster still lists the most recently created rating first.
	insertRating := `INSERT INTO ratings (id, user_id, store_id, rating, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`
	require.NoError(t, conn.Exec(insertRating, uuid.NewString(), firstRater.String(), storeID.String(), 2,
		"2025-09-01 10:00:00", "2025-09-05 10:00:00").Error)
	require.NoError(t, conn.Exec(insertRating, uuid.NewString(), secondRater.String(), storeID.String(), 5,
		"2025-09-02 10:00:00", "2025-09-02 10:00:00").Error)

	raters, err := repo.RatersForStore(context.Background(), storeID)
	require.NoError(t, err)
	require.Len(t, raters, 2)

	assert.Equal(t, "Bob Example", raters[0].Name)
	assert.Equal(t, 5, raters[0].Rating)
	assert.Equal(t, "Alice Example", raters[1].Name)
	assert.Equal(t, 2, raters[1].Rating)

	wantFirst := time.Date(2025, 9, 2, 10, 0, 0, 0, time.UTC)
	wantSecond := time.Date(2025, 9, 1, 10, 0, 0, 0, time.UTC)
	assert.True(t, raters[0].RatedAt.Equal(wantFirst), "rated_at %v", raters[0].RatedAt)
	assert.True(t, raters[1].RatedAt.Equal(wantSecond), "rated_at %v", raters[1].RatedAt)
}

func TestRepositoryRatersForStoreEmpty(t *testing.T) {
	repo := NewRepository(setupStoresTestDB(t))

	raters, err := repo.RatersForStore(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Empty(t, raters)
}
