// Package notify records in-app notifications and hands them to the
// configured delivery channel.
package notify

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/umuve/dispatch-engine/internal/model"
)

// Store persists notification rows.
type Store interface {
	Create(ctx context.Context, n *model.Notification) error
}

// Sender delivers a notification out-of-band (push, email, SMS). The default
// deployment only logs; real providers plug in here.
type Sender interface {
	Send(ctx context.Context, n model.Notification) error
}

// Notifier writes the history row and triggers delivery. Notification
// failures never abort the business operation that produced them, so every
// method swallows errors after logging.
type Notifier struct {
	store  Store
	sender Sender
	log    zerolog.Logger
}

func New(store Store, sender Sender, log zerolog.Logger) *Notifier {
	return &Notifier{store: store, sender: sender, log: log}
}

func (n *Notifier) Notify(
	ctx context.Context,
	userID uuid.UUID,
	kind model.NotificationKind,
	title, body string,
	data map[string]any,
) {
	if n == nil || userID == uuid.Nil {
		return
	}

	notification := model.Notification{
		UserID: userID,
		Kind:   kind,
		Title:  title,
		Body:   body,
		Data:   data,
	}

	if n.store != nil {
		if err := n.store.Create(ctx, &notification); err != nil {
			n.log.Error().Err(err).
				Str("user_id", userID.String()).
				Str("kind", string(kind)).
				Msg("persist notification")
		}
	}

	if n.sender != nil {
		if err := n.sender.Send(ctx, notification); err != nil {
			n.log.Error().Err(err).
				Str("user_id", userID.String()).
				Str("kind", string(kind)).
				Msg("deliver notification")
		}
	}
}

// LogSender is the default Sender: it only logs deliveries. Stands in until
// a push/SMS provider is wired up.
type LogSender struct {
	Log zerolog.Logger
}

func (s LogSender) Send(_ context.Context, n model.Notification) error {
	s.Log.Info().
		Str("user_id", n.UserID.String()).
		Str("kind", string(n.Kind)).
		Str("title", n.Title).
		Msg("notification delivered")
	return nil
}
