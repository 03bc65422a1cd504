package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"sorti-backend/internal/model"
)

// Store defines the interface for all database operations.
type Store interface {
	// DB exposes the underlying handle for auxiliary queries
	// (push subscriptions, health checks).
	DB() *gorm.DB

	UpsertBin(ctx context.Context, binID string, capacityG *float64, ingestKey *string, defaultCapacityG float64, now time.Time) (model.Bin, error)
	GetBin(ctx context.Context, binID string) (model.Bin, error)
	RecordEvent(ctx context.Context, p RecordEventParams, now time.Time) (RecordResult, error)
	EmptyBin(ctx context.Context, binID string, now time.Time) (model.Bin, error)

	ListBins(ctx context.Context) ([]BinStatus, error)
	Totals(ctx context.Context) (TotalsRow, error)
	ByMaterial(ctx context.Context) ([]MaterialRow, error)
	Daily(ctx context.Context, days int, now time.Time) ([]DailyRow, error)
	RecentEvents(ctx context.Context, limit int) ([]model.Event, error)
	ExportEvents(ctx context.Context) ([]model.Event, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

// UpsertBin creates the bin with the default capacity if absent,
// otherwise updates whatever fields were given and refreshes
// last-seen. Idempotent; concurrent calls race harmlessly on the
// ON CONFLICT clause.
func (s *gormStore) UpsertBin(ctx context.Context, binID string, capacityG *float64, ingestKey *string, defaultCapacityG float64, now time.Time) (model.Bin, error) {
	bin := model.Bin{
		BinID:     binID,
		CapacityG: defaultCapacityG,
		LastSeen:  now,
		IngestKey: ingestKey,
	}
	if capacityG != nil {
		bin.CapacityG = *capacityG
	}

	assignments := map[string]any{"last_seen": now}
	if capacityG != nil {
		assignments["capacity_g"] = *capacityG
	}
	if ingestKey != nil {
		assignments["ingest_key"] = *ingestKey
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "bin_id"}},
		DoUpdates: clause.Assignments(assignments),
	}).Create(&bin).Error
	if err != nil {
		return model.Bin{}, fmt.Errorf("failed to upsert bin %s: %w", binID, err)
	}

	return s.GetBin(ctx, binID)
}

// GetBin fetches one bin, returning ErrBinNotFound when absent.
func (s *gormStore) GetBin(ctx context.Context, binID string) (model.Bin, error) {
	var bin model.Bin
	err := s.db.WithContext(ctx).First(&bin, "bin_id = ?", binID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Bin{}, ErrBinNotFound
	}
	if err != nil {
		return model.Bin{}, fmt.Errorf("failed to fetch bin %s: %w", binID, err)
	}
	return bin, nil
}

// RecordEvent inserts one disposal event and accrues its weight onto
// the bin as a single transaction: both happen or neither does.
//
// Idempotency-key uniqueness is enforced by the storage engine, not
// by a check-then-insert, so two concurrent submissions with the same
// key can never both accrue. The constraint violation is translated
// by GORM into ErrDuplicatedKey and converted here into the duplicate
// result path, which leaves everything but last-seen untouched.
func (s *gormStore) RecordEvent(ctx context.Context, p RecordEventParams, now time.Time) (RecordResult, error) {
	// Auto-create the bin and refresh last-seen up front. This also
	// covers the duplicate path, whose only permitted state change
	// is the last-seen refresh.
	bin := model.Bin{
		BinID:     p.BinID,
		CapacityG: p.DefaultCapacityG,
		LastSeen:  now,
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "bin_id"}},
		DoUpdates: clause.Assignments(map[string]any{"last_seen": now}),
	}).Create(&bin).Error
	if err != nil {
		return RecordResult{}, fmt.Errorf("failed to upsert bin %s: %w", p.BinID, err)
	}

	event := model.Event{
		Ts:             now,
		BinID:          p.BinID,
		Material:       p.Material,
		WeightG:        p.WeightG,
		CO2SavedG:      p.CO2SavedG,
		IdempotencyKey: p.IdempotencyKey,
		Source:         p.Source,
		Confidence:     p.Confidence,
		TopPredictions: p.TopPredictions,
		ImageRef:       p.ImageRef,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&event).Error; err != nil {
			return err
		}
		return tx.Model(&model.Bin{}).
			Where("bin_id = ?", p.BinID).
			Updates(map[string]any{
				"current_weight_g": gorm.Expr("current_weight_g + ?", p.WeightG),
				"last_seen":        now,
			}).Error
	})

	duplicate := false
	if err != nil {
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return RecordResult{}, fmt.Errorf("failed to record event for bin %s: %w", p.BinID, err)
		}
		// Same key already recorded: the transaction rolled back,
		// so no second accrual happened.
		duplicate = true
	}

	updated, err := s.GetBin(ctx, p.BinID)
	if err != nil {
		return RecordResult{}, err
	}

	return RecordResult{Event: event, Bin: updated, Duplicate: duplicate}, nil
}

// EmptyBin resets the bin's accrued weight to zero.
func (s *gormStore) EmptyBin(ctx context.Context, binID string, now time.Time) (model.Bin, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var bin model.Bin
		if err := tx.First(&bin, "bin_id = ?", binID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBinNotFound
			}
			return err
		}
		return tx.Model(&model.Bin{}).
			Where("bin_id = ?", binID).
			Updates(map[string]any{
				"current_weight_g": 0,
				"last_seen":        now,
			}).Error
	})
	if err != nil {
		if errors.Is(err, ErrBinNotFound) {
			return model.Bin{}, err
		}
		return model.Bin{}, fmt.Errorf("failed to empty bin %s: %w", binID, err)
	}

	return s.GetBin(ctx, binID)
}

// ListBins returns all bins ordered by id, with derived fill percent.
func (s *gormStore) ListBins(ctx context.Context) ([]BinStatus, error) {
	var bins []model.Bin
	if err := s.db.WithContext(ctx).Order("bin_id ASC").Find(&bins).Error; err != nil {
		return nil, fmt.Errorf("failed to list bins: %w", err)
	}

	statuses := make([]BinStatus, 0, len(bins))
	for _, b := range bins {
		statuses = append(statuses, BinStatus{
			BinID:          b.BinID,
			CapacityG:      b.CapacityG,
			CurrentWeightG: b.CurrentWeightG,
			FillPercent:    b.FillPercent(),
			LastSeen:       b.LastSeen,
		})
	}
	return statuses, nil
}

// Totals sums weight and CO2 saved across all events.
func (s *gormStore) Totals(ctx context.Context) (TotalsRow, error) {
	var row TotalsRow
	err := s.db.WithContext(ctx).Model(&model.Event{}).
		Select("COALESCE(SUM(weight_g), 0) AS total_weight_g, COALESCE(SUM(co2_saved_g), 0) AS total_co2_saved_g").
		Scan(&row).Error
	if err != nil {
		return TotalsRow{}, fmt.Errorf("failed to compute totals: %w", err)
	}
	return row, nil
}

// ByMaterial sums weight and CO2 saved grouped by canonical material,
// heaviest first.
func (s *gormStore) ByMaterial(ctx context.Context) ([]MaterialRow, error) {
	var rows []MaterialRow
	err := s.db.WithContext(ctx).Model(&model.Event{}).
		Select("material, COALESCE(SUM(weight_g), 0) AS weight_g, COALESCE(SUM(co2_saved_g), 0) AS co2_saved_g").
		Group("material").
		Order("weight_g DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to compute by-material stats: %w", err)
	}
	return rows, nil
}

// Daily sums weight and CO2 saved per calendar day for events newer
// than now minus days, days clamped to [1,365]. Grouping happens in
// Go over the UTC date portion of each timestamp, so both backends
// and both stored timestamp representations behave identically.
func (s *gormStore) Daily(ctx context.Context, days int, now time.Time) ([]DailyRow, error) {
	days = ClampDays(days)
	cutoff := now.UTC().AddDate(0, 0, -days)

	var events []model.Event
	err := s.db.WithContext(ctx).
		Select("ts", "weight_g", "co2_saved_g").
		Where("ts >= ?", cutoff).
		Order("ts ASC").
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to compute daily stats: %w", err)
	}

	agg := make(map[string]*DailyRow)
	for _, e := range events {
		day := e.Ts.UTC().Format("2006-01-02")
		row, ok := agg[day]
		if !ok {
			row = &DailyRow{Day: day}
			agg[day] = row
		}
		row.WeightG += e.WeightG
		row.CO2SavedG += e.CO2SavedG
	}

	out := make([]DailyRow, 0, len(agg))
	for _, row := range agg {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day < out[j].Day })
	return out, nil
}

// RecentEvents returns the newest events, limit clamped to [1,200].
func (s *gormStore) RecentEvents(ctx context.Context, limit int) ([]model.Event, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}

	var events []model.Event
	err := s.db.WithContext(ctx).
		Order("ts DESC, id DESC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list recent events: %w", err)
	}
	return events, nil
}

// ExportEvents returns every event in ascending timestamp order.
func (s *gormStore) ExportEvents(ctx context.Context) ([]model.Event, error) {
	var events []model.Event
	err := s.db.WithContext(ctx).
		Order("ts ASC, id ASC").
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to export events: %w", err)
	}
	return events, nil
}

// ClampDays bounds a daily-rollup window to [1,365].
func ClampDays(days int) int {
	if days < 1 {
		return 1
	}
	if days > 365 {
		return 365
	}
	return days
}
