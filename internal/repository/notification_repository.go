package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/umuve/dispatch-engine/internal/model"
)

type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Create(ctx context.Context, n *model.Notification) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(n).Error
}

func (r *NotificationRepository) ListByUser(
	ctx context.Context,
	userID uuid.UUID,
	limit int,
) ([]model.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	var notifications []model.Notification
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&notifications).Error
	if err != nil {
		return nil, err
	}
	return notifications, nil
}

func (r *NotificationRepository) MarkRead(ctx context.Context, userID, id uuid.UUID) error {
	return r.db.WithContext(ctx).Exec(`
		UPDATE notifications
		SET is_read = TRUE
		WHERE id = ? AND user_id = ?
	`, id, userID).Error
}
