package ratings

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/storepulse/storepulse-backend/pkg/db/models"
)

func setupRatingsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
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
	require.NoError(t, conn.Exec(schema).Error)
	require.NoError(t, conn.Exec(users).Error)
	return conn
}

func seedRating(t *testing.T, repo *Repository, userID, storeID uuid.UUID, value int) *models.Rating {
	t.Helper()

	rating := &models.Rating{
		ID:      uuid.New(),
		UserID:  userID,
		StoreID: storeID,
		Rating:  value,
	}
	require.NoError(t, repo.Create(context.Background(), rating))
	return rating
}

func TestRepositoryFindByUserAndStore(t *testing.T) {
	repo := NewRepository(setupRatingsTestDB(t))
	userID := uuid.New()
	storeID := uuid.New()
	seeded := seedRating(t, repo, userID, storeID, 4)

	found, err := repo.FindByUserAndStore(context.Background(), userID, storeID)
	require.NoError(t, err)
	assert.Equal(t, seeded.ID, found.ID)
	assert.Equal(t, 4, found.Rating)

	_, err = repo.FindByUserAndStore(context.Background(), uuid.New(), storeID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepositoryUpdateValue(t *testing.T) {
	repo := NewRepository(setupRatingsTestDB(t))
	userID := uuid.New()
	storeID := uuid.New()
	seeded := seedRating(t, repo, userID, storeID, 2)

	require.NoError(t, repo.UpdateValue(context.Background(), seeded.ID, 5))

	found, err := repo.FindByUserAndStore(context.Background(), userID, storeID)
	require.NoError(t, err)
	assert.Equal(t, 5, found.Rating)
}

func TestRepositoryStatsForStore(t *testing.T) {
	repo := NewRepository(setupRatingsTestDB(t))
	storeID := uuid.New()
	otherStore := uuid.New()

	seedRating(t, repo, uuid.New(), storeID, 3)
	seedRating(t, repo, uuid.New(), storeID, 5)
	seedRating(t, repo, uuid.New(), otherStore, 1)

	stats, err := repo.StatsForStore(context.Background(), storeID)
	require.NoError(t, err)
	assert.Equal(t, int64(8), stats.Sum)
	assert.Equal(t, int64(2), stats.Count)

	empty, err := repo.StatsForStore(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, int64(0), empty.Sum)
	assert.Equal(t, int64(0), empty.Count)

	total, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
}

func TestRepositoryListForStore(t *testing.T) {
	conn := setupRatingsTestDB(t)
	repo := NewRepository(conn)
	storeID := uuid.New()

	olderRater := uuid.New()
	newerRater := uuid.New()
	insertUser := `INSERT INTO users (id, name, email) VALUES (?, ?, ?)`
	require.NoError(t, conn.Exec(insertUser, olderRater.String(), "Alice Example", "alice@example.com").Error)
	require.NoError(t, conn.Exec(insertUser, newerRater.String(), "Bob Example", "bob@example.com").Error)

	insertRating := `INSERT INTO ratings (id, user_id, store_id, rating, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`
	require.NoError(t, conn.Exec(insertRating, uuid.NewString(), olderRater.String(), storeID.String(), 3,
		"2025-09-01 10:00:00", "2025-09-01 10:00:00").Error)
	require.NoError(t, conn.Exec(insertRating, uuid.NewString(), newerRater.String(), storeID.String(), 5,
		"2025-09-02 10:00:00", "2025-09-02 10:00:00").Error)

	rows, err := repo.ListForStore(context.Background(), storeID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Bob Example", rows[0].UserName)
	assert.Equal(t, "bob@example.com", rows[0].UserEmail)
	assert.Equal(t, 5, rows[0].Rating)
	assert.Equal(t, "Alice Example", rows[1].UserName)
	assert.Equal(t, 3, rows[1].Rating)
}

func TestRepositoryDuplicatePairRejected(t *testing.T) {
	repo := NewRepository(setupRatingsTestDB(t))
	userID := uuid.New()
	storeID := uuid.New()
	seedRating(t, repo, userID, storeID, 4)

	dup := &models.Rating{
		ID:      uuid.New(),
		UserID:  userID,
		StoreID: storeID,
		Rating:  1,
	}
	assert.Error(t, repo.Create(context.Background(), dup))
}
