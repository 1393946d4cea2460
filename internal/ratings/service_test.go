package ratings

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/storepulse/storepulse-backend/pkg/db/models"
	pkgerrors "github.com/storepulse/storepulse-backend/pkg/errors"
)

type stubRatingRepo struct {
	rows          map[string]*models.Rating
	createErr     error
	findErr       error
	missFirstFind bool
}

func newStubRatingRepo() *stubRatingRepo {
	return &stubRatingRepo{rows: map[string]*models.Rating{}}
}

func key(userID, storeID uuid.UUID) string {
	return userID.String() + "/" + storeID.String()
}

func (s *stubRatingRepo) FindByUserAndStore(ctx context.Context, userID, storeID uuid.UUID) (*models.Rating, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	if s.missFirstFind {
		s.missFirstFind = false
		return nil, gorm.ErrRecordNotFound
	}
	if row, ok := s.rows[key(userID, storeID)]; ok {
		copied := *row
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubRatingRepo) Create(ctx context.Context, rating *models.Rating) error {
	if s.createErr != nil {
		return s.createErr
	}
	rating.ID = uuid.New()
	copied := *rating
	s.rows[key(rating.UserID, rating.StoreID)] = &copied
	return nil
}

func (s *stubRatingRepo) UpdateValue(ctx context.Context, id uuid.UUID, value int) error {
	for _, row := range s.rows {
		if row.ID == id {
			row.Rating = value
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (s *stubRatingRepo) StatsForStore(ctx context.Context, storeID uuid.UUID) (RatingStats, error) {
	var stats RatingStats
	for _, row := range s.rows {
		if row.StoreID == storeID {
			stats.Sum += int64(row.Rating)
			stats.Count++
		}
	}
	return stats, nil
}

func (s *stubRatingRepo) ListForStore(ctx context.Context, storeID uuid.UUID) ([]StoreRatingDTO, error) {
	var rows []StoreRatingDTO
	for _, row := range s.rows {
		if row.StoreID == storeID {
			rows = append(rows, StoreRatingDTO{
				ID:     row.ID,
				Rating: row.Rating,
			})
		}
	}
	return rows, nil
}

type stubStoreFinder struct {
	exists bool
	err    error
}

func (s stubStoreFinder) Exists(ctx context.Context, storeID uuid.UUID) (bool, error) {
	return s.exists, s.err
}

func newTestService(t *testing.T, repo *stubRatingRepo, stores stubStoreFinder) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{RatingRepo: repo, StoreRepo: stores})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestSubmitRejectsOutOfRangeValue(t *testing.T) {
	svc := newTestService(t, newStubRatingRepo(), stubStoreFinder{exists: true})

	for _, value := range []int{0, 6, -1} {
		_, err := svc.SubmitOrUpdate(context.Background(), uuid.New(), uuid.New(), value)
		typed := pkgerrors.As(err)
		if typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("value %d: expected validation error, got %v", value, err)
		}
	}
}

func TestSubmitRejectsUnknownStore(t *testing.T) {
	svc := newTestService(t, newStubRatingRepo(), stubStoreFinder{exists: false})

	_, err := svc.SubmitOrUpdate(context.Background(), uuid.New(), uuid.New(), 4)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestSubmitAndResubmitRecomputesAverage(t *testing.T) {
	repo := newStubRatingRepo()
	svc := newTestService(t, repo, stubStoreFinder{exists: true})

	storeID := uuid.New()
	alice := uuid.New()
	bob := uuid.New()
	cara := uuid.New()

	mustAverage := func(result *SubmitResult, want string) {
		t.Helper()
		if result.Average == nil {
			t.Fatal("expected average, got nil")
		}
		if *result.Average != want {
			t.Fatalf("expected average %s, got %s", want, *result.Average)
		}
	}

	if _, err := svc.SubmitOrUpdate(context.Background(), alice, storeID, 3); err != nil {
		t.Fatalf("first submission: %v", err)
	}
	result, err := svc.SubmitOrUpdate(context.Background(), bob, storeID, 5)
	if err != nil {
		t.Fatalf("second submission: %v", err)
	}
	mustAverage(result, "4.00")

	result, err = svc.SubmitOrUpdate(context.Background(), cara, storeID, 4)
	if err != nil {
		t.Fatalf("third submission: %v", err)
	}
	mustAverage(result, "4.00")

	// resubmission overwrites, never duplicates
	result, err = svc.SubmitOrUpdate(context.Background(), alice, storeID, 5)
	if err != nil {
		t.Fatalf("resubmission: %v", err)
	}
	mustAverage(result, "4.67")

	stats, err := repo.StatsForStore(context.Background(), storeID)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Count != 3 {
		t.Fatalf("expected 3 ratings, got %d", stats.Count)
	}
}

func TestSubmitRetriesAsUpdateOnUniqueViolation(t *testing.T) {
	repo := newStubRatingRepo()
	storeID := uuid.New()
	userID := uuid.New()

	// simulate a concurrent insert winning the race: the first lookup misses,
	// the create fails on the composite unique index, and the retry lookup hits
	winner := &models.Rating{ID: uuid.New(), UserID: userID, StoreID: storeID, Rating: 2}
	repo.rows[key(userID, storeID)] = winner
	repo.missFirstFind = true
	repo.createErr = errors.New("duplicate key value violates unique constraint \"idx_ratings_user_store\"")

	svc := newTestService(t, repo, stubStoreFinder{exists: true})

	result, err := svc.SubmitOrUpdate(context.Background(), userID, storeID, 5)
	if err != nil {
		t.Fatalf("expected race to resolve as update, got %v", err)
	}
	if result.Rating.Rating != 5 {
		t.Fatalf("expected stored value 5, got %d", result.Rating.Rating)
	}
}

func TestListForStoreUnknownStore(t *testing.T) {
	svc := newTestService(t, newStubRatingRepo(), stubStoreFinder{exists: false})

	_, err := svc.ListForStore(context.Background(), uuid.New())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestListForStoreEmptyHasNilAverage(t *testing.T) {
	svc := newTestService(t, newStubRatingRepo(), stubStoreFinder{exists: true})

	feed, err := svc.ListForStore(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if feed.Average != nil {
		t.Fatalf("expected nil average for unrated store, got %v", *feed.Average)
	}
	if feed.RatingCount != 0 || len(feed.Ratings) != 0 {
		t.Fatalf("expected empty feed, got count=%d rows=%d", feed.RatingCount, len(feed.Ratings))
	}
}

func TestListForStoreAggregatesFeed(t *testing.T) {
	repo := newStubRatingRepo()
	svc := newTestService(t, repo, stubStoreFinder{exists: true})

	storeID := uuid.New()
	if _, err := svc.SubmitOrUpdate(context.Background(), uuid.New(), storeID, 3); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := svc.SubmitOrUpdate(context.Background(), uuid.New(), storeID, 5); err != nil {
		t.Fatalf("submit: %v", err)
	}

	feed, err := svc.ListForStore(context.Background(), storeID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if feed.RatingCount != 2 || len(feed.Ratings) != 2 {
		t.Fatalf("expected 2 ratings, got count=%d rows=%d", feed.RatingCount, len(feed.Ratings))
	}
	if feed.Average == nil || *feed.Average != "4.00" {
		t.Fatalf("expected average 4.00, got %v", feed.Average)
	}
}

func TestAverageOfRounding(t *testing.T) {
	cases := []struct {
		sum   int64
		count int64
		want  string
	}{
		{8, 2, "4.00"},
		{12, 3, "4.00"},
		{14, 3, "4.67"},
		{10, 3, "3.33"},
		{5, 1, "5.00"},
	}
	for _, tc := range cases {
		got := AverageOf(tc.sum, tc.count)
		if got == nil || *got != tc.want {
			t.Fatalf("AverageOf(%d, %d): expected %s, got %v", tc.sum, tc.count, tc.want, got)
		}
	}
	if AverageOf(0, 0) != nil {
		t.Fatal("expected nil for zero count")
	}
}
