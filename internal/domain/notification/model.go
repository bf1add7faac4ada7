package notification

import "time"

// Notification is a persisted message from one user to another. The realtime
// router journals every accepted patient-info share here so the recipient's
// inbox survives a missed delivery.
type Notification struct {
	ID         int64     `json:"id"`
	SenderID   int64     `json:"sender_id"`
	ReceiverID int64     `json:"receiver_id"`
	Message    string    `json:"message"`
	ReadStatus bool      `json:"read_status"`
	CreatedAt  time.Time `json:"created_at"`
}
