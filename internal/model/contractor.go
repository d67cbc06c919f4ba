package model

import (
	"time"

	"github.com/google/uuid"
)

type ApprovalStatus string

const (
	ApprovalStatusPending  ApprovalStatus = "pending"
	ApprovalStatusApproved ApprovalStatus = "approved"
	ApprovalStatusRejected ApprovalStatus = "rejected"
)

// Contractor is a driver or a fleet operator. A contractor either belongs to
// exactly one operator's fleet (OperatorID set) or works independently.
// Operators never belong to another fleet.
type Contractor struct {
	ID     uuid.UUID `json:"id"`
	UserID uuid.UUID `json:"user_id"`

	TruckType     *string  `json:"truck_type"`
	TruckCapacity *float64 `json:"truck_capacity"`

	IsOnline   bool     `json:"is_online"`
	CurrentLat *float64 `json:"current_lat"`
	CurrentLng *float64 `json:"current_lng"`

	AvgRating      float64        `json:"avg_rating"`
	TotalJobs      int            `json:"total_jobs"`
	ApprovalStatus ApprovalStatus `json:"approval_status"`

	IsOperator             bool       `json:"is_operator"`
	OperatorID             *uuid.UUID `json:"operator_id"`
	OperatorCommissionRate float64    `json:"operator_commission_rate"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ContractorSummary is the public-safe slice of a contractor exposed on the
// confirmation-code lookup view.
type ContractorSummary struct {
	Name      *string  `json:"name"`
	TruckType *string  `json:"truck_type"`
	AvgRating float64  `json:"avg_rating"`
	TotalJobs int      `json:"total_jobs"`
}
