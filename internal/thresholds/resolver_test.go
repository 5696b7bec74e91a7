package thresholds

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/equipsight/equipsight-engine/internal/cache"
	"github.com/equipsight/equipsight-engine/internal/models"
)

type fakeStore struct {
	mu   sync.Mutex
	rows map[uuid.UUID]models.ThresholdSettings
	err  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: make(map[uuid.UUID]models.ThresholdSettings)}
}

func (s *fakeStore) Get(_ context.Context, userID uuid.UUID) (*models.ThresholdSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	row, ok := s.rows[userID]
	if !ok {
		return nil, nil
	}
	return &row, nil
}

func (s *fakeStore) Upsert(_ context.Context, row models.ThresholdSettings, update models.ThresholdUpdate) (models.ThresholdSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return models.ThresholdSettings{}, s.err
	}
	existing, ok := s.rows[row.UserID]
	if !ok {
		s.rows[row.UserID] = row
		return row, nil
	}
	if update.WarningPercentile != nil {
		existing.WarningPercentile = *update.WarningPercentile
	}
	if update.OutlierIQRMultiplier != nil {
		existing.OutlierIQRMultiplier = *update.OutlierIQRMultiplier
	}
	s.rows[row.UserID] = existing
	return existing, nil
}

func (s *fakeStore) Delete(_ context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	delete(s.rows, userID)
	return nil
}

type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemCache() *memCache { return &memCache{data: make(map[string][]byte)} }

func (c *memCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	payload, ok := c.data[key]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return payload, nil
}

func (c *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *memCache) Del(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *memCache) Close() error { return nil }

func floatPtr(v float64) *float64 { return &v }

func TestResolveFallbackPerFieldIndependence(t *testing.T) {
	cases := []struct {
		name     string
		cfg      FallbackConfig
		wantWarn float64
		wantIQR  float64
	}{
		{"both empty", FallbackConfig{}, 0.75, 1.5},
		{"both valid", FallbackConfig{WarningPercentile: "0.90", OutlierIQRMultiplier: "2.0"}, 0.90, 2.0},
		{"bad warning keeps valid multiplier", FallbackConfig{WarningPercentile: "definitely-not-a-float", OutlierIQRMultiplier: "2.5"}, 0.75, 2.5},
		{"out-of-range multiplier keeps valid warning", FallbackConfig{WarningPercentile: "0.60", OutlierIQRMultiplier: "9.0"}, 0.60, 1.5},
		{"warning below range discarded", FallbackConfig{WarningPercentile: "0.10"}, 0.75, 1.5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ResolveFallback(tc.cfg, nil)
			if got.WarningPercentile != tc.wantWarn || got.OutlierIQRMultiplier != tc.wantIQR {
				t.Fatalf("got %+v, want {%.2f %.2f}", got, tc.wantWarn, tc.wantIQR)
			}
		})
	}
}

func TestResolveUserOverrideWins(t *testing.T) {
	store := newFakeStore()
	userID := uuid.New()
	store.rows[userID] = models.ThresholdSettings{UserID: userID, WarningPercentile: 0.55, OutlierIQRMultiplier: 2.5}

	resolver := NewResolver(store, FallbackConfig{WarningPercentile: "0.90"}, nil, 0, nil)

	got := resolver.Resolve(context.Background(), userID)
	if got.WarningPercentile != 0.55 || got.OutlierIQRMultiplier != 2.5 {
		t.Fatalf("expected user override, got %+v", got)
	}
}

func TestResolveFallsBackOnStoreError(t *testing.T) {
	store := newFakeStore()
	store.err = errors.New("db down")

	resolver := NewResolver(store, FallbackConfig{WarningPercentile: "0.80", OutlierIQRMultiplier: "2.0"}, nil, 0, nil)

	got := resolver.Resolve(context.Background(), uuid.New())
	if got.WarningPercentile != 0.80 || got.OutlierIQRMultiplier != 2.0 {
		t.Fatalf("expected fallback pair, got %+v", got)
	}
}

func TestSaveRejectsOutOfRange(t *testing.T) {
	store := newFakeStore()
	resolver := NewResolver(store, FallbackConfig{}, nil, 0, nil)
	userID := uuid.New()

	_, err := resolver.Save(context.Background(), userID, models.ThresholdUpdate{
		WarningPercentile: floatPtr(0.99),
	})

	var fieldErrs FieldErrors
	if !errors.As(err, &fieldErrs) {
		t.Fatalf("expected FieldErrors, got %v", err)
	}
	if _, ok := fieldErrs["warning_percentile"]; !ok {
		t.Fatalf("expected warning_percentile error, got %v", fieldErrs)
	}
	if len(store.rows) != 0 {
		t.Fatalf("rejected save must not write: %v", store.rows)
	}
}

func TestSaveCollectsMultipleFieldErrors(t *testing.T) {
	resolver := NewResolver(newFakeStore(), FallbackConfig{}, nil, 0, nil)

	_, err := resolver.Save(context.Background(), uuid.New(), models.ThresholdUpdate{
		WarningPercentile:    floatPtr(0.20),
		OutlierIQRMultiplier: floatPtr(5.0),
	})

	var fieldErrs FieldErrors
	if !errors.As(err, &fieldErrs) {
		t.Fatalf("expected FieldErrors, got %v", err)
	}
	if len(fieldErrs) != 2 {
		t.Fatalf("expected both fields rejected, got %v", fieldErrs)
	}
}

func TestSavePartialUpdateLeavesOtherFieldUnchanged(t *testing.T) {
	store := newFakeStore()
	resolver := NewResolver(store, FallbackConfig{}, nil, 0, nil)
	userID := uuid.New()

	if _, err := resolver.Save(context.Background(), userID, models.ThresholdUpdate{
		WarningPercentile:    floatPtr(0.60),
		OutlierIQRMultiplier: floatPtr(2.0),
	}); err != nil {
		t.Fatalf("initial save: %v", err)
	}

	if _, err := resolver.Save(context.Background(), userID, models.ThresholdUpdate{
		WarningPercentile: floatPtr(0.85),
	}); err != nil {
		t.Fatalf("partial save: %v", err)
	}

	got := resolver.Resolve(context.Background(), userID)
	if got.WarningPercentile != 0.85 || got.OutlierIQRMultiplier != 2.0 {
		t.Fatalf("partial update clobbered omitted field: %+v", got)
	}
}

func TestSaveFirstTimeSeedsOmittedFieldFromFallback(t *testing.T) {
	store := newFakeStore()
	resolver := NewResolver(store, FallbackConfig{OutlierIQRMultiplier: "2.5"}, nil, 0, nil)
	userID := uuid.New()

	if _, err := resolver.Save(context.Background(), userID, models.ThresholdUpdate{
		WarningPercentile: floatPtr(0.65),
	}); err != nil {
		t.Fatalf("save: %v", err)
	}

	row := store.rows[userID]
	if row.WarningPercentile != 0.65 || row.OutlierIQRMultiplier != 2.5 {
		t.Fatalf("first save must seed omitted field from fallback: %+v", row)
	}
}

func TestResetRevertsToFallback(t *testing.T) {
	store := newFakeStore()
	resolver := NewResolver(store, FallbackConfig{}, nil, 0, nil)
	userID := uuid.New()

	if _, err := resolver.Save(context.Background(), userID, models.ThresholdUpdate{
		WarningPercentile: floatPtr(0.60),
	}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := resolver.Reset(context.Background(), userID); err != nil {
		t.Fatalf("reset: %v", err)
	}

	got := resolver.Resolve(context.Background(), userID)
	if got.WarningPercentile != models.DefaultWarningPercentile {
		t.Fatalf("expected fallback after reset, got %+v", got)
	}
}

func TestResolveCacheInvalidatedOnSave(t *testing.T) {
	store := newFakeStore()
	mem := newMemCache()
	resolver := NewResolver(store, FallbackConfig{}, mem, time.Minute, nil)
	userID := uuid.New()

	first := resolver.Resolve(context.Background(), userID)
	if first.WarningPercentile != models.DefaultWarningPercentile {
		t.Fatalf("expected default resolution, got %+v", first)
	}

	if _, err := resolver.Save(context.Background(), userID, models.ThresholdUpdate{
		WarningPercentile: floatPtr(0.90),
	}); err != nil {
		t.Fatalf("save: %v", err)
	}

	got := resolver.Resolve(context.Background(), userID)
	if got.WarningPercentile != 0.90 {
		t.Fatalf("stale cached resolution served after save: %+v", got)
	}
}
