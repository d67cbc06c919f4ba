package model

import (
	"time"

	"github.com/google/uuid"
)

// PricingRule is an admin override for a single unit price. ItemType is
// either "<category>" (flat) or "<category>:<size>" (size-specific).
type PricingRule struct {
	ID        uuid.UUID `json:"id"`
	ItemType  string    `json:"item_type"`
	BasePrice float64   `json:"base_price"`
	IsActive  bool      `json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LatLng is one polygon vertex.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// SurgeZone is a geographic surge area with its own activation window.
// StartTime/EndTime are "HH:MM" strings; DaysOfWeek uses 0=Monday..6=Sunday.
type SurgeZone struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	Boundary        []LatLng  `json:"boundary" gorm:"serializer:json"`
	SurgeMultiplier float64   `json:"surge_multiplier"`
	IsActive        bool      `json:"is_active"`
	StartTime       *string   `json:"start_time"`
	EndTime         *string   `json:"end_time"`
	DaysOfWeek      []int     `json:"days_of_week" gorm:"serializer:json"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PricingConfig is a keyed override for pricing knobs (minimum price, tier
// table, surge rates, service fee rate). Value is raw JSON.
type PricingConfig struct {
	Key       string    `json:"key" gorm:"primaryKey"`
	Value     []byte    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}
