package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/umuve/dispatch-engine/internal/model"
)

type NotificationStore interface {
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]model.Notification, error)
	MarkRead(ctx context.Context, userID, id uuid.UUID) error
}

// NotificationService exposes the in-app notification feed.
type NotificationService struct {
	store NotificationStore
}

func NewNotificationService(store NotificationStore) *NotificationService {
	return &NotificationService{store: store}
}

func (s *NotificationService) List(ctx context.Context, principal model.Principal, limit int) ([]model.Notification, error) {
	return s.store.ListByUser(ctx, principal.UserID, limit)
}

func (s *NotificationService) MarkRead(ctx context.Context, principal model.Principal, id uuid.UUID) error {
	return s.store.MarkRead(ctx, principal.UserID, id)
}
