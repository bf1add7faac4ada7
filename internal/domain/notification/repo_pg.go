package notification

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vanuse/clinic/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type notificationRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &notificationRepoPG{pool: pool}
}

func (r *notificationRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const notificationCols = `id, sender_id, receiver_id, message, read_status, created_at`

func (r *notificationRepoPG) scanNotification(row pgx.Row) (*Notification, error) {
	var n Notification
	err := row.Scan(&n.ID, &n.SenderID, &n.ReceiverID, &n.Message, &n.ReadStatus, &n.CreatedAt)
	return &n, err
}

func (r *notificationRepoPG) Create(ctx context.Context, n *Notification) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO notifications (sender_id, receiver_id, message)
		VALUES ($1, $2, $3)
		RETURNING id, read_status, created_at`,
		n.SenderID, n.ReceiverID, n.Message,
	).Scan(&n.ID, &n.ReadStatus, &n.CreatedAt)
}

func (r *notificationRepoPG) GetByID(ctx context.Context, id int64) (*Notification, error) {
	return r.scanNotification(r.conn(ctx).QueryRow(ctx,
		`SELECT `+notificationCols+` FROM notifications WHERE id = $1`, id))
}

func (r *notificationRepoPG) ListByReceiver(ctx context.Context, receiverID int64, limit, offset int) ([]*Notification, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE receiver_id = $1`, receiverID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+notificationCols+`
		FROM notifications
		WHERE receiver_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`,
		receiverID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Notification
	for rows.Next() {
		n, err := r.scanNotification(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, n)
	}
	return items, total, rows.Err()
}

func (r *notificationRepoPG) MarkRead(ctx context.Context, id int64) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE notifications SET read_status = TRUE WHERE id = $1`, id)
	return err
}
