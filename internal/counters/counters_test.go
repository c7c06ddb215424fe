package counters

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/coupradise/catalog/internal/database"
	"github.com/coupradise/catalog/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testOfferID = uuid.MustParse("e3f1a9c2-d401-4b3f-9a6e-1f2d3c4b5a69")

type MockCounterRepository struct {
	mock.Mock
}

func (r *MockCounterRepository) Increment(ctx context.Context, offerID uuid.UUID, field models.CounterField) (*models.CounterRecord, error) {
	args := r.Called(ctx, offerID, field)
	rec, _ := args.Get(0).(*models.CounterRecord)
	return rec, args.Error(1)
}

func (r *MockCounterRepository) Create(ctx context.Context, offerID uuid.UUID, field models.CounterField) (*models.CounterRecord, error) {
	args := r.Called(ctx, offerID, field)
	rec, _ := args.Get(0).(*models.CounterRecord)
	return rec, args.Error(1)
}

type MockOfferRepository struct {
	mock.Mock
}

func (r *MockOfferRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Offer, error) {
	args := r.Called(ctx, id)
	offer, _ := args.Get(0).(*models.Offer)
	return offer, args.Error(1)
}

// memCounterRepo mimics the store's atomicity: a mutex plays the role of
// the unique index and row-level locking.
type memCounterRepo struct {
	mu      sync.Mutex
	records map[uuid.UUID]*models.CounterRecord
}

func newMemCounterRepo() *memCounterRepo {
	return &memCounterRepo{records: make(map[uuid.UUID]*models.CounterRecord)}
}

func (r *memCounterRepo) bump(rec *models.CounterRecord, field models.CounterField) {
	switch field {
	case models.FieldViews:
		rec.Views++
		now := time.Now()
		rec.LastViewedAt = &now
	case models.FieldSaves:
		rec.Saves++
	case models.FieldCodeCopies:
		rec.CodeCopies++
	case models.FieldUses:
		rec.Uses++
	}
}

func (r *memCounterRepo) Increment(_ context.Context, offerID uuid.UUID, field models.CounterField) (*models.CounterRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[offerID]
	if !ok {
		return nil, database.ErrCounterNotFound
	}

	r.bump(rec, field)
	cp := *rec
	return &cp, nil
}

func (r *memCounterRepo) Create(_ context.Context, offerID uuid.UUID, field models.CounterField) (*models.CounterRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[offerID]; ok {
		return nil, database.ErrCounterExists
	}

	rec := &models.CounterRecord{OfferID: offerID}
	r.bump(rec, field)
	r.records[offerID] = rec

	cp := *rec
	return &cp, nil
}

type staticOfferRepo struct {
	offer *models.Offer
}

func (r *staticOfferRepo) GetByID(context.Context, uuid.UUID) (*models.Offer, error) {
	return r.offer, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func activeOffer() *models.Offer {
	return &models.Offer{
		ID:       testOfferID,
		Slug:     "big-sale-e3f1a9c2d401",
		Title:    "Big Sale",
		Source:   models.SourceDirect,
		Kind:     models.KindCode,
		IsActive: true,
	}
}

func TestAggregatorRecordView(t *testing.T) {
	t.Run("creates record lazily on first event", func(t *testing.T) {
		agg := New(newMemCounterRepo(), &staticOfferRepo{offer: activeOffer()}, discardLogger())

		rec, err := agg.RecordView(context.Background(), testOfferID)

		assert.NoError(t, err)
		assert.EqualValues(t, 1, rec.Views)
		assert.NotNil(t, rec.LastViewedAt)
	})

	t.Run("increments existing record", func(t *testing.T) {
		agg := New(newMemCounterRepo(), &staticOfferRepo{offer: activeOffer()}, discardLogger())

		for i := 0; i < 3; i++ {
			_, err := agg.RecordView(context.Background(), testOfferID)
			require.NoError(t, err)
		}
		rec, err := agg.RecordView(context.Background(), testOfferID)

		assert.NoError(t, err)
		assert.EqualValues(t, 4, rec.Views)
	})

	t.Run("falls back to increment when creation loses the race", func(t *testing.T) {
		counterRepo := new(MockCounterRepository)
		offerRepo := new(MockOfferRepository)
		agg := New(counterRepo, offerRepo, discardLogger())

		offerRepo.
			On("GetByID", mock.Anything, testOfferID).
			Once().
			Return(activeOffer(), nil)
		counterRepo.
			On("Increment", mock.Anything, testOfferID, models.FieldViews).
			Once().
			Return(nil, database.ErrCounterNotFound)
		counterRepo.
			On("Create", mock.Anything, testOfferID, models.FieldViews).
			Once().
			Return(nil, database.ErrCounterExists)
		counterRepo.
			On("Increment", mock.Anything, testOfferID, models.FieldViews).
			Once().
			Return(&models.CounterRecord{OfferID: testOfferID, Views: 2}, nil)

		rec, err := agg.RecordView(context.Background(), testOfferID)

		assert.NoError(t, err)
		assert.EqualValues(t, 2, rec.Views)
		counterRepo.AssertExpectations(t)
		offerRepo.AssertExpectations(t)
	})

	t.Run("unknown offer", func(t *testing.T) {
		offerRepo := new(MockOfferRepository)
		agg := New(newMemCounterRepo(), offerRepo, discardLogger())

		offerRepo.
			On("GetByID", mock.Anything, testOfferID).
			Once().
			Return(nil, database.ErrOfferNotFound)

		rec, err := agg.RecordView(context.Background(), testOfferID)

		assert.Error(t, err)
		assert.ErrorIs(t, err, database.ErrOfferNotFound)
		assert.Nil(t, rec)
	})
}

func TestAggregatorConcurrentFirstEvents(t *testing.T) {
	const n = 100

	repo := newMemCounterRepo()
	agg := New(repo, &staticOfferRepo{offer: activeOffer()}, discardLogger())

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := agg.RecordView(context.Background(), testOfferID)
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	require.Len(t, repo.records, 1)
	assert.EqualValues(t, n, repo.records[testOfferID].Views)
}

func TestAggregatorRecordSaveAndCopy(t *testing.T) {
	repo := newMemCounterRepo()
	agg := New(repo, &staticOfferRepo{offer: activeOffer()}, discardLogger())

	_, err := agg.RecordSave(context.Background(), testOfferID)
	require.NoError(t, err)
	rec, err := agg.RecordCodeCopy(context.Background(), testOfferID)
	require.NoError(t, err)

	assert.EqualValues(t, 1, rec.Saves)
	assert.EqualValues(t, 1, rec.CodeCopies)
	assert.Nil(t, rec.LastViewedAt)
}

func TestAggregatorRecordUse(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		repo := newMemCounterRepo()
		agg := New(repo, &staticOfferRepo{offer: activeOffer()}, discardLogger())

		rec, err := agg.RecordUse(context.Background(), testOfferID)

		assert.NoError(t, err)
		assert.EqualValues(t, 1, rec.Uses)
	})

	t.Run("expired offer is rejected without incrementing", func(t *testing.T) {
		offer := activeOffer()
		past := time.Now().Add(-time.Hour)
		offer.ExpiresAt = &past

		repo := newMemCounterRepo()
		agg := New(repo, &staticOfferRepo{offer: offer}, discardLogger())

		rec, err := agg.RecordUse(context.Background(), testOfferID)

		assert.Error(t, err)
		assert.ErrorIs(t, err, ErrOfferExpired)
		assert.Nil(t, rec)
		assert.Empty(t, repo.records)
	})

	t.Run("usage limit reached is rejected without incrementing", func(t *testing.T) {
		offer := activeOffer()
		limit := int64(10)
		offer.UsageLimit = &limit
		offer.UsageCount = 10

		repo := newMemCounterRepo()
		agg := New(repo, &staticOfferRepo{offer: offer}, discardLogger())

		rec, err := agg.RecordUse(context.Background(), testOfferID)

		assert.Error(t, err)
		assert.ErrorIs(t, err, ErrUsageLimitReached)
		assert.Nil(t, rec)
		assert.Empty(t, repo.records)
	})

	t.Run("limit not yet reached passes the gate", func(t *testing.T) {
		offer := activeOffer()
		limit := int64(10)
		offer.UsageLimit = &limit
		offer.UsageCount = 9

		agg := New(newMemCounterRepo(), &staticOfferRepo{offer: offer}, discardLogger())

		rec, err := agg.RecordUse(context.Background(), testOfferID)

		assert.NoError(t, err)
		assert.EqualValues(t, 1, rec.Uses)
	})
}
