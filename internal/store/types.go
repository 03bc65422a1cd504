package store

import (
	"errors"
	"time"

	"sorti-backend/internal/model"
)

// ErrBinNotFound is returned by operations targeting a bin id that
// does not exist.
var ErrBinNotFound = errors.New("bin not found")

// RecordEventParams carries one disposal submission into the store.
// The material must already be canonical and the CO2 figure computed;
// the store only persists and accrues.
type RecordEventParams struct {
	BinID     string
	Material  string
	WeightG   float64
	CO2SavedG float64

	// Optional idempotency key; uniqueness is enforced by the
	// storage engine over non-null values.
	IdempotencyKey *string

	// Optional provenance.
	Source         *string
	Confidence     *float64
	TopPredictions *string
	ImageRef       *string

	// Capacity applied when the event references an unknown bin.
	DefaultCapacityG float64
}

// RecordResult is the typed outcome of an event submission: either
// the event was inserted and the bin's weight accrued, or the
// idempotency key had already been seen and nothing but the bin's
// last-seen timestamp changed.
type RecordResult struct {
	Event     model.Event
	Bin       model.Bin
	Duplicate bool
}

// BinStatus is a bin row flattened for API responses.
type BinStatus struct {
	BinID          string    `json:"bin_id"`
	CapacityG      float64   `json:"capacity_g"`
	CurrentWeightG float64   `json:"current_weight_g"`
	FillPercent    float64   `json:"fill_percent"`
	LastSeen       time.Time `json:"last_seen"`
}

// TotalsRow is the all-time aggregate.
type TotalsRow struct {
	TotalWeightG   float64 `gorm:"column:total_weight_g" json:"total_weight_g"`
	TotalCO2SavedG float64 `gorm:"column:total_co2_saved_g" json:"total_co2_saved_g"`
}

// MaterialRow is one per-material aggregate entry.
type MaterialRow struct {
	Material  string  `gorm:"column:material" json:"material"`
	WeightG   float64 `gorm:"column:weight_g" json:"weight_g"`
	CO2SavedG float64 `gorm:"column:co2_saved_g" json:"co2_saved_g"`
}

// DailyRow is one calendar-day aggregate entry. Day is the UTC date
// portion of the event timestamp, YYYY-MM-DD.
type DailyRow struct {
	Day       string  `json:"day"`
	WeightG   float64 `json:"weight_g"`
	CO2SavedG float64 `json:"co2_saved_g"`
}
