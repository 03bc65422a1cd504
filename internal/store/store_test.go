package store

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"sorti-backend/internal/model"
)

// newTestStore opens a named in-memory SQLite database so each test
// gets real constraint behavior, which the idempotency tests depend
// on.
func newTestStore(t *testing.T) Store {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&model.Bin{}, &model.Event{}, &model.PushSubscription{}))
	return NewGormStore(db)
}

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }

func TestRecordEventCreatesBinAndAccrues(t *testing.T) {
	s := newTestStore(t)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	res, err := s.RecordEvent(context.Background(), RecordEventParams{
		BinID:            "SORTI_001",
		Material:         "plastica",
		WeightG:          250,
		CO2SavedG:        375,
		IdempotencyKey:   strPtr("k1"),
		DefaultCapacityG: 10000,
	}, now)
	require.NoError(t, err)

	assert.False(t, res.Duplicate)
	assert.Equal(t, 250.0, res.Bin.CurrentWeightG)
	assert.Equal(t, 10000.0, res.Bin.CapacityG, "unknown bin gets the default capacity")
	assert.Equal(t, now.Unix(), res.Bin.LastSeen.Unix())
}

func TestRecordEventDuplicateKeyDoesNotAccrueTwice(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	params := RecordEventParams{
		BinID:            "B1",
		Material:         "plastica",
		WeightG:          250,
		CO2SavedG:        375,
		IdempotencyKey:   strPtr("retry-token"),
		DefaultCapacityG: 10000,
	}

	first, err := s.RecordEvent(ctx, params, now)
	require.NoError(t, err)
	require.False(t, first.Duplicate)
	require.Equal(t, 250.0, first.Bin.CurrentWeightG)

	later := now.Add(5 * time.Second)
	second, err := s.RecordEvent(ctx, params, later)
	require.NoError(t, err)

	assert.True(t, second.Duplicate)
	assert.Equal(t, 250.0, second.Bin.CurrentWeightG, "duplicate must not accrue again")
	assert.Equal(t, later.Unix(), second.Bin.LastSeen.Unix(), "duplicate still refreshes last-seen")

	var count int64
	require.NoError(t, s.DB().Model(&model.Event{}).Count(&count).Error)
	assert.Equal(t, int64(1), count, "only one event row stored")
}

func TestRecordEventDistinctKeysAccrueSum(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	weights := []float64{100, 200, 50, 175}
	var sum float64
	for i, w := range weights {
		res, err := s.RecordEvent(ctx, RecordEventParams{
			BinID:            "B1",
			Material:         "carta",
			WeightG:          w,
			CO2SavedG:        w * 0.9,
			IdempotencyKey:   strPtr(fmt.Sprintf("k%d", i)),
			DefaultCapacityG: 10000,
		}, now.Add(time.Duration(i)*time.Minute))
		require.NoError(t, err)
		sum += w
		assert.Equal(t, sum, res.Bin.CurrentWeightG)
	}
}

func TestRecordEventNilKeysNeverCollide(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		res, err := s.RecordEvent(ctx, RecordEventParams{
			BinID:            "B1",
			Material:         "vetro",
			WeightG:          10,
			CO2SavedG:        3,
			DefaultCapacityG: 10000,
		}, now)
		require.NoError(t, err)
		assert.False(t, res.Duplicate)
	}
}

func TestEmptyBin(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	_, err := s.RecordEvent(ctx, RecordEventParams{
		BinID: "B1", Material: "plastica", WeightG: 400, CO2SavedG: 600,
		IdempotencyKey: strPtr("k1"), DefaultCapacityG: 1000,
	}, now)
	require.NoError(t, err)

	emptiedAt := now.Add(time.Hour)
	bin, err := s.EmptyBin(ctx, "B1", emptiedAt)
	require.NoError(t, err)
	assert.Equal(t, 0.0, bin.CurrentWeightG)
	assert.Equal(t, 0.0, bin.FillPercent())
	assert.Equal(t, emptiedAt.Unix(), bin.LastSeen.Unix())

	_, err = s.EmptyBin(ctx, "missing", now)
	assert.ErrorIs(t, err, ErrBinNotFound)
}

func TestUpsertBin(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	bin, err := s.UpsertBin(ctx, "B1", floatPtr(1000), nil, 10000, now)
	require.NoError(t, err)
	assert.Equal(t, 1000.0, bin.CapacityG)
	assert.Equal(t, 0.0, bin.CurrentWeightG)

	// Accrue some weight, then reconfigure: capacity changes, the
	// accrued weight survives.
	_, err = s.RecordEvent(ctx, RecordEventParams{
		BinID: "B1", Material: "plastica", WeightG: 250, CO2SavedG: 375,
		IdempotencyKey: strPtr("k1"), DefaultCapacityG: 10000,
	}, now)
	require.NoError(t, err)

	bin, err = s.UpsertBin(ctx, "B1", floatPtr(2000), strPtr("bin-secret"), 10000, now.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 2000.0, bin.CapacityG)
	assert.Equal(t, 250.0, bin.CurrentWeightG)
	require.NotNil(t, bin.IngestKey)
	assert.Equal(t, "bin-secret", *bin.IngestKey)
}

func TestListBinsFillPercentClamped(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	_, err := s.UpsertBin(ctx, "overfull", floatPtr(100), nil, 10000, now)
	require.NoError(t, err)
	_, err = s.RecordEvent(ctx, RecordEventParams{
		BinID: "overfull", Material: "plastica", WeightG: 250, CO2SavedG: 375,
		IdempotencyKey: strPtr("k1"), DefaultCapacityG: 10000,
	}, now)
	require.NoError(t, err)

	bins, err := s.ListBins(ctx)
	require.NoError(t, err)
	require.Len(t, bins, 1)
	assert.Equal(t, 250.0, bins[0].CurrentWeightG)
	assert.Equal(t, 100.0, bins[0].FillPercent, "fill percent clamps at 100")
}

func TestTotalsAndByMaterial(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	seed := []struct {
		material string
		weight   float64
		co2      float64
	}{
		{"plastica", 100, 150},
		{"plastica", 50, 75},
		{"carta", 200, 180},
	}
	for i, e := range seed {
		_, err := s.RecordEvent(ctx, RecordEventParams{
			BinID: "B1", Material: e.material, WeightG: e.weight, CO2SavedG: e.co2,
			IdempotencyKey: strPtr(fmt.Sprintf("k%d", i)), DefaultCapacityG: 10000,
		}, now)
		require.NoError(t, err)
	}

	totals, err := s.Totals(ctx)
	require.NoError(t, err)
	assert.Equal(t, 350.0, totals.TotalWeightG)
	assert.Equal(t, 405.0, totals.TotalCO2SavedG)

	rows, err := s.ByMaterial(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, MaterialRow{Material: "carta", WeightG: 200, CO2SavedG: 180}, rows[0], "heaviest material first")
	assert.Equal(t, MaterialRow{Material: "plastica", WeightG: 150, CO2SavedG: 225}, rows[1])
}

func TestDailyWindowAndGrouping(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	seed := []struct {
		ts     time.Time
		weight float64
	}{
		{now.Add(-1 * time.Hour), 100}, // today
		{now.Add(-2 * time.Hour), 200}, // today
		{now.AddDate(0, 0, -2), 50},    // two days ago
		{now.AddDate(0, 0, -40), 999},  // outside any tested window
	}
	for i, e := range seed {
		_, err := s.RecordEvent(ctx, RecordEventParams{
			BinID: "B1", Material: "plastica", WeightG: e.weight, CO2SavedG: e.weight * 1.5,
			IdempotencyKey: strPtr(fmt.Sprintf("k%d", i)), DefaultCapacityG: 10000,
		}, e.ts)
		require.NoError(t, err)
	}

	t.Run("one day window collapses same-day events", func(t *testing.T) {
		rows, err := s.Daily(ctx, 1, now)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "2026-03-10", rows[0].Day)
		assert.Equal(t, 300.0, rows[0].WeightG)
		assert.Equal(t, 450.0, rows[0].CO2SavedG)
	})

	t.Run("seven day window includes older day, ascending", func(t *testing.T) {
		rows, err := s.Daily(ctx, 7, now)
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, "2026-03-08", rows[0].Day)
		assert.Equal(t, 50.0, rows[0].WeightG)
		assert.Equal(t, "2026-03-10", rows[1].Day)
	})

	t.Run("days clamp", func(t *testing.T) {
		assert.Equal(t, 1, ClampDays(0))
		assert.Equal(t, 1, ClampDays(-10))
		assert.Equal(t, 365, ClampDays(10000))
		assert.Equal(t, 30, ClampDays(30))

		rows, err := s.Daily(ctx, -5, now)
		require.NoError(t, err)
		require.Len(t, rows, 1, "negative days clamps to a one-day window")
	})
}

func TestRecentEventsOrderAndLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		_, err := s.RecordEvent(ctx, RecordEventParams{
			BinID: "B1", Material: "carta", WeightG: float64(i + 1), CO2SavedG: 1,
			IdempotencyKey: strPtr(fmt.Sprintf("k%d", i)), DefaultCapacityG: 10000,
		}, now.Add(time.Duration(i)*time.Minute))
		require.NoError(t, err)
	}

	events, err := s.RecentEvents(ctx, 3)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, 5.0, events[0].WeightG, "newest first")
	assert.Equal(t, 4.0, events[1].WeightG)

	all, err := s.RecentEvents(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 5, "non-positive limit falls back to the default")
}

func TestExportEventsAscending(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	for i := 2; i >= 0; i-- {
		_, err := s.RecordEvent(ctx, RecordEventParams{
			BinID: "B1", Material: "carta", WeightG: float64(i + 1), CO2SavedG: 1,
			IdempotencyKey: strPtr(fmt.Sprintf("k%d", i)), DefaultCapacityG: 10000,
		}, now.Add(time.Duration(i)*time.Hour))
		require.NoError(t, err)
	}

	events, err := s.ExportEvents(ctx)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.True(t, events[0].Ts.Before(events[1].Ts))
	assert.True(t, events[1].Ts.Before(events[2].Ts))
}
