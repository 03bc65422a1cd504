package model

import "time"

// Event is an immutable record of one disposal. Rows are only ever
// inserted; provenance columns are nullable so the schema can grow
// additively.
type Event struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Ts        time.Time `gorm:"not null;index" json:"ts"`
	BinID     string    `gorm:"size:128;not null;index" json:"bin_id"`
	Material  string    `gorm:"size:64;not null;index" json:"material"`
	WeightG   float64   `gorm:"not null" json:"weight_g"`
	CO2SavedG float64   `gorm:"column:co2_saved_g;not null" json:"co2_saved_g"`

	// Unique over non-null values only; NULLs never collide on
	// either backend.
	IdempotencyKey *string `gorm:"uniqueIndex;size:128" json:"idempotency_key,omitempty"`

	// Provenance, all optional.
	Source         *string  `gorm:"size:64" json:"source,omitempty"`
	Confidence     *float64 `json:"confidence,omitempty"`
	TopPredictions *string  `gorm:"type:text" json:"top_predictions,omitempty"`
	ImageRef       *string  `gorm:"size:256" json:"image_ref,omitempty"`
}
