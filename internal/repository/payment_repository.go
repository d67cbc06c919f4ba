package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/umuve/dispatch-engine/internal/model"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(ctx context.Context, payment *model.Payment) error {
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *PaymentRepository) GetByJobID(ctx context.Context, jobID uuid.UUID) (*model.Payment, error) {
	var payment model.Payment
	err := r.db.WithContext(ctx).First(&payment, "job_id = ?", jobID).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *PaymentRepository) Update(ctx context.Context, payment *model.Payment) error {
	return r.db.WithContext(ctx).Save(payment).Error
}

func (r *PaymentRepository) UpdatePayoutStatus(
	ctx context.Context,
	jobID uuid.UUID,
	status model.PayoutStatus,
) error {
	return r.db.WithContext(ctx).Exec(`
		UPDATE payments
		SET payout_status = ?, updated_at = NOW()
		WHERE job_id = ?
	`, status, jobID).Error
}
