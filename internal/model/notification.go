package model

import (
	"time"

	"github.com/google/uuid"
)

type NotificationKind string

const (
	NotificationKindNewJob        NotificationKind = "new_job"
	NotificationKindJobAssigned   NotificationKind = "job_assigned"
	NotificationKindJobUpdate     NotificationKind = "job_update"
	NotificationKindJobCancelled  NotificationKind = "job_cancelled"
	NotificationKindJobReschedule NotificationKind = "job_rescheduled"
	NotificationKindVolumeChange  NotificationKind = "volume_adjustment"
	NotificationKindPayment       NotificationKind = "payment"
)

// Notification is the persisted in-app notification history row. Delivery
// over push/email/SMS is a separate concern handled by notify.Sender.
type Notification struct {
	ID     uuid.UUID        `json:"id"`
	UserID uuid.UUID        `json:"user_id"`
	Kind   NotificationKind `json:"type" gorm:"column:kind"`
	Title  string           `json:"title"`
	Body   string           `json:"body"`
	Data   map[string]any   `json:"data" gorm:"serializer:json"`
	IsRead bool             `json:"is_read"`

	CreatedAt time.Time `json:"created_at"`
}
