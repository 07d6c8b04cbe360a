package db

import (
	"context"
	"database/sql"
	"fmt"
)

const notificationColumns = `id, user_id, type, content, related_id, read, created_at`

func scanNotification(row scanner) (Notification, error) {
	var n Notification
	var typ, createdAt string
	var read int
	if err := row.Scan(&n.ID, &n.UserID, &typ, &n.Content, &n.RelatedID, &read, &createdAt); err != nil {
		return Notification{}, err
	}
	n.Type = NotificationType(typ)
	n.Read = read != 0
	n.CreatedAt = parseTime(createdAt)
	return n, nil
}

func (s *Store) ListNotifications(ctx context.Context, userID string) ([]Notification, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+notificationColumns+` FROM notifications WHERE user_id = ? ORDER BY rowid`, userID)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	notifications := []Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

func (s *Store) CountUnreadNotifications(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = ? AND read = 0`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return n, nil
}

// CreateNotification inserts n, allocating an id when n.ID is empty.
func (s *Store) CreateNotification(ctx context.Context, n Notification) (Notification, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		return insertNotification(ctx, tx, &n)
	})
	if err != nil {
		return Notification{}, err
	}
	return n, nil
}

func insertNotification(ctx context.Context, tx *sql.Tx, n *Notification) error {
	if n.ID == "" {
		id, err := nextID(ctx, tx, "notif")
		if err != nil {
			return err
		}
		n.ID = id
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO notifications (`+notificationColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.UserID, string(n.Type), n.Content, n.RelatedID, boolInt(n.Read), formatTime(n.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// MarkNotificationRead marks a notification of userID as read and returns
// the number that changed, 0 when it was already read. Another user's
// notification is reported as not found.
func (s *Store) MarkNotificationRead(ctx context.Context, id, userID string) (int, error) {
	var exists bool
	if err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM notifications WHERE id = ? AND user_id = ?)`, id, userID).Scan(&exists); err != nil {
		return 0, fmt.Errorf("check notification: %w", err)
	}
	if !exists {
		return 0, fmt.Errorf("notification %s: %w", id, ErrNotFound)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET read = 1 WHERE id = ? AND user_id = ? AND read = 0`, id, userID)
	if err != nil {
		return 0, fmt.Errorf("mark notification read: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *Store) MarkAllNotificationsRead(ctx context.Context, userID string) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET read = 1 WHERE user_id = ? AND read = 0`, userID)
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}
