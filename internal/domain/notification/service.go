package notification

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// ErrNotRecipient is returned when a caller acts on someone else's
// notification.
var ErrNotRecipient = fmt.Errorf("notification belongs to another user")

// Service provides business logic for notifications. It also serves as the
// realtime hub's journal.
type Service struct {
	notifications Repository
	logger        zerolog.Logger
}

// NewService creates a new notification domain service.
func NewService(notifications Repository, logger zerolog.Logger) *Service {
	return &Service{notifications: notifications, logger: logger}
}

// Record persists a routed message for the recipient's inbox. It satisfies
// the hub's journal interface.
func (s *Service) Record(ctx context.Context, senderID, receiverID int64, message string) error {
	n := &Notification{SenderID: senderID, ReceiverID: receiverID, Message: message}
	if err := s.notifications.Create(ctx, n); err != nil {
		return fmt.Errorf("record notification: %w", err)
	}
	return nil
}

// Inbox lists the caller's notifications, newest first.
func (s *Service) Inbox(ctx context.Context, receiverID int64, limit, offset int) ([]*Notification, int, error) {
	return s.notifications.ListByReceiver(ctx, receiverID, limit, offset)
}

// MarkRead flags a notification as read. Only the recipient may do so.
func (s *Service) MarkRead(ctx context.Context, id, callerID int64) error {
	n, err := s.notifications.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if n.ReceiverID != callerID {
		return ErrNotRecipient
	}
	return s.notifications.MarkRead(ctx, id)
}
