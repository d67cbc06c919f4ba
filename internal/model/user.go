package model

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID    uuid.UUID `json:"id"`
	Email *string   `json:"email"`
	Phone *string   `json:"phone"`
	Name  *string   `json:"name"`
	Role  string    `json:"role"`

	ReferralCode *string `json:"referral_code"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ReferralStatus string

const (
	ReferralStatusPending   ReferralStatus = "pending"
	ReferralStatusSignedUp  ReferralStatus = "signed_up"
	ReferralStatusCompleted ReferralStatus = "completed"
	ReferralStatusRewarded  ReferralStatus = "rewarded"
)

// Referral tracks one user referring another. It moves to "completed" when
// the referee's first job finishes.
type Referral struct {
	ID           uuid.UUID      `json:"id"`
	ReferrerID   uuid.UUID      `json:"referrer_id"`
	RefereeID    *uuid.UUID     `json:"referee_id"`
	ReferralCode string         `json:"referral_code"`
	Status       ReferralStatus `json:"status"`
	RewardAmount float64        `json:"reward_amount"`
	CreatedAt    time.Time      `json:"created_at"`
	CompletedAt  *time.Time     `json:"completed_at"`
}
