package store

import (
	"context"

	"github.com/jackc/pgx/v5"

	"patient-portal-api/internal/model"
)

const notificationCols = `id, user_id, type, title, message, is_read, related_id, created_at`

func scanNotification(row pgx.Row, n *model.Notification) error {
	return row.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &n.IsRead, &n.RelatedID, &n.CreatedAt)
}

func insertNotification(ctx context.Context, q querier, n *model.Notification) error {
	return scanNotification(q.QueryRow(ctx,
		`INSERT INTO notifications (user_id, type, title, message, is_read, related_id)
		 VALUES ($1,$2,$3,$4,FALSE,$5)
		 RETURNING `+notificationCols,
		n.UserID, n.Type, n.Title, n.Message, n.RelatedID,
	), n)
}

func (s *Store) RecentNotifications(ctx context.Context, userID int64, limit int) ([]model.Notification, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+notificationCols+`
		 FROM notifications
		 WHERE user_id = $1
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2`, userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Notification{}
	for rows.Next() {
		var n model.Notification
		if err := scanNotification(rows, &n); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *Store) UnreadCount(ctx context.Context, userID int64) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = FALSE`, userID,
	).Scan(&n)
	return n, err
}

// MarkNotificationRead is idempotent: an already-read row is returned as is.
func (s *Store) MarkNotificationRead(ctx context.Context, id, userID int64) (*model.Notification, error) {
	n := &model.Notification{}
	err := scanNotification(s.pool.QueryRow(ctx,
		`UPDATE notifications SET is_read = TRUE
		 WHERE id = $1 AND user_id = $2
		 RETURNING `+notificationCols, id, userID,
	), n)
	if err != nil {
		return nil, notFound(err)
	}
	return n, nil
}

func (s *Store) MarkAllNotificationsRead(ctx context.Context, userID int64) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE user_id = $1 AND is_read = FALSE`, userID,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *Store) DeleteNotification(ctx context.Context, id, userID int64) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM notifications WHERE id = $1 AND user_id = $2`, id, userID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteReadNotifications leaves unread rows untouched.
func (s *Store) DeleteReadNotifications(ctx context.Context, userID int64) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM notifications WHERE user_id = $1 AND is_read = TRUE`, userID,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
