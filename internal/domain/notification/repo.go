package notification

import "context"

// Repository defines storage operations for notifications.
type Repository interface {
	Create(ctx context.Context, n *Notification) error
	GetByID(ctx context.Context, id int64) (*Notification, error)
	ListByReceiver(ctx context.Context, receiverID int64, limit, offset int) ([]*Notification, int, error)
	MarkRead(ctx context.Context, id int64) error
}
