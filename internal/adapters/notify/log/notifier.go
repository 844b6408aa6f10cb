// Package log delivers user notifications as structured log entries.
package log

import (
	"context"

	"github.com/bnema/browser-accounts-cli/internal/logger"
	"github.com/bnema/browser-accounts-cli/internal/ports"
)

var _ ports.Notifier = (*Notifier)(nil)

type Notifier struct {
	logger logger.Logger
}

func NewNotifier(log logger.Logger) *Notifier {
	return &Notifier{logger: log}
}

func (n *Notifier) Notify(ctx context.Context, notification ports.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	n.logger.Info(notification.Message, logger.String("title", notification.Title))
	return nil
}
