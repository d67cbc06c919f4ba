package model

import (
	"time"

	"github.com/google/uuid"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusSucceeded PaymentStatus = "succeeded"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

type PayoutStatus string

const (
	PayoutStatusPending PayoutStatus = "pending"
	PayoutStatusPaid    PayoutStatus = "paid"
)

// Payment is the one-to-one financial record for a job. After every
// recalculation DriverPayout + OperatorPayout + Commission + ServiceFee
// must equal Amount.
type Payment struct {
	ID    uuid.UUID `json:"id"`
	JobID uuid.UUID `json:"job_id"`

	GatewayRef *string `json:"gateway_ref"`

	Amount         float64 `json:"amount"`
	ServiceFee     float64 `json:"service_fee"`
	Commission     float64 `json:"commission"`
	DriverPayout   float64 `json:"driver_payout"`
	OperatorPayout float64 `json:"operator_payout"`
	TipAmount      float64 `json:"tip_amount"`

	PaymentStatus PaymentStatus `json:"payment_status"`
	PayoutStatus  PayoutStatus  `json:"payout_status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
