package model

import "time"

// Bin represents a physical smart bin.
type Bin struct {
	BinID          string    `gorm:"primaryKey;size:128" json:"bin_id"`
	CapacityG      float64   `gorm:"not null;default:10000" json:"capacity_g"`
	CurrentWeightG float64   `gorm:"not null;default:0" json:"current_weight_g"`
	LastSeen       time.Time `json:"last_seen"`
	// Per-bin ingest credential. When set it replaces the global
	// ingest key for this bin. Never serialized.
	IngestKey *string   `gorm:"size:128" json:"-"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// FillPercent derives how full the bin is, clamped to [0,100].
func (b *Bin) FillPercent() float64 {
	if b.CapacityG <= 0 {
		return 0
	}
	p := b.CurrentWeightG / b.CapacityG * 100
	if p > 100 {
		return 100
	}
	if p < 0 {
		return 0
	}
	return p
}
