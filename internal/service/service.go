// Package service holds the business rules between HTTP handlers and repositories.
package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/tsamuels456/unboundedfigures/internal/models"
	"github.com/tsamuels456/unboundedfigures/internal/notifications"
	"github.com/tsamuels456/unboundedfigures/internal/observability"
)

// EventPublisher delivers real-time events to a user. *notifications.Notifier satisfies it.
type EventPublisher interface {
	PublishUser(ctx context.Context, userID uint, event notifications.Event) error
}

// notify publishes best-effort: a failed publish is logged and never fails the request.
func notify(ctx context.Context, pub EventPublisher, userID uint, event notifications.Event) {
	if pub == nil {
		return
	}
	if err := pub.PublishUser(ctx, userID, event); err != nil {
		observability.Logger(ctx).Warn("notification publish failed",
			zap.String("event", event.Type),
			zap.Uint("recipient_id", userID),
			zap.Error(err),
		)
	}
}

func isNotFound(err error) bool {
	var appErr *models.AppError
	return errors.As(err, &appErr) && appErr.Code == models.CodeNotFound
}
