package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/umuve/dispatch-engine/internal/model"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetSignedUpReferral finds the referral row waiting on this user's first
// completed job, if any.
func (r *UserRepository) GetSignedUpReferral(ctx context.Context, refereeID uuid.UUID) (*model.Referral, error) {
	var referral model.Referral
	err := r.db.WithContext(ctx).
		First(&referral, "referee_id = ? AND status = ?", refereeID, model.ReferralStatusSignedUp).
		Error
	if err != nil {
		return nil, err
	}
	return &referral, nil
}

func (r *UserRepository) CompleteReferral(ctx context.Context, referralID uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).Exec(`
		UPDATE referrals
		SET status = ?, completed_at = ?
		WHERE id = ?
	`, model.ReferralStatusCompleted, at, referralID).Error
}
