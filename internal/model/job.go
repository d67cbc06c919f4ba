package model

import (
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusConfirmed  JobStatus = "confirmed"
	JobStatusAssigned   JobStatus = "assigned"
	JobStatusDelegating JobStatus = "delegating"
	JobStatusAccepted   JobStatus = "accepted"
	JobStatusEnRoute    JobStatus = "en_route"
	JobStatusArrived    JobStatus = "arrived"
	JobStatusStarted    JobStatus = "started"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusCancelled  JobStatus = "cancelled"
)

// Terminal reports whether the status has no outgoing transitions.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusCancelled
}

// ActiveDriverStatuses are the states in which a contractor is considered
// busy and excluded from matching.
var ActiveDriverStatuses = []JobStatus{
	JobStatusAccepted,
	JobStatusEnRoute,
	JobStatusArrived,
	JobStatusStarted,
}

// LineItem is one entry of a booking's item list.
type LineItem struct {
	Category string `json:"category"`
	Quantity int    `json:"quantity"`
	Size     string `json:"size,omitempty"`
}

type Job struct {
	ID         uuid.UUID  `json:"id"`
	CustomerID uuid.UUID  `json:"customer_id"`
	DriverID   *uuid.UUID `json:"driver_id"`
	OperatorID *uuid.UUID `json:"operator_id"`

	Status      JobStatus  `json:"status"`
	DelegatedAt *time.Time `json:"delegated_at"`

	Address string   `json:"address"`
	Lat     *float64 `json:"lat"`
	Lng     *float64 `json:"lng"`

	Items          []LineItem `json:"items" gorm:"serializer:json"`
	VolumeEstimate *float64   `json:"volume_estimate"`
	Photos         []string   `json:"photos" gorm:"serializer:json"`
	BeforePhotos   []string   `json:"before_photos" gorm:"serializer:json"`
	AfterPhotos    []string   `json:"after_photos" gorm:"serializer:json"`

	ScheduledAt *time.Time `json:"scheduled_at"`
	StartedAt   *time.Time `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`
	CancelledAt *time.Time `json:"cancelled_at"`

	ItemTotal       float64 `json:"item_total"`
	BasePrice       float64 `json:"base_price"`
	ServiceFee      float64 `json:"service_fee"`
	SurgeMultiplier float64 `json:"surge_multiplier"`
	DiscountAmount  float64 `json:"discount_amount"`
	TotalPrice      float64 `json:"total_price"`

	Notes            string `json:"notes"`
	ConfirmationCode string `json:"confirmation_code"`

	CancellationFee  float64 `json:"cancellation_fee"`
	RescheduledCount int     `json:"rescheduled_count"`

	VolumeAdjustmentProposed bool     `json:"volume_adjustment_proposed"`
	AdjustedVolume           *float64 `json:"adjusted_volume"`
	AdjustedPrice            *float64 `json:"adjusted_price"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RequiresDriver reports whether the status is only valid with an assigned
// contractor.
func (s JobStatus) RequiresDriver() bool {
	switch s {
	case JobStatusAssigned, JobStatusAccepted, JobStatusEnRoute, JobStatusArrived, JobStatusStarted:
		return true
	}
	return false
}
