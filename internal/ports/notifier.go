package ports

import "context"

type Notification struct {
	Title   string
	Message string
}

type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}
