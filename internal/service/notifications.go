package service

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/sparkmates/sparkmates/internal/db"
)

type Notifications struct {
	*base
}

type NotificationInput struct {
	UserID    string              `json:"userId"`
	Type      db.NotificationType `json:"type"`
	Content   string              `json:"content"`
	RelatedID string              `json:"relatedId"`
}

func (n *Notifications) GetByUser(ctx context.Context, userID string) ([]db.Notification, error) {
	return n.store.ListNotifications(ctx, userID)
}

func (n *Notifications) GetUnreadCount(ctx context.Context, userID string) (int, error) {
	return n.store.CountUnreadNotifications(ctx, userID)
}

func (n *Notifications) Create(ctx context.Context, in NotificationInput) (db.Notification, error) {
	if !in.Type.Valid() {
		return db.Notification{}, fmt.Errorf("%w: %q", ErrInvalidNotificationType, in.Type)
	}
	if in.UserID == "" {
		return db.Notification{}, fmt.Errorf("%w: notification needs a recipient", ErrInvalidInput)
	}
	return n.store.CreateNotification(ctx, db.Notification{
		UserID:    in.UserID,
		Type:      in.Type,
		Content:   in.Content,
		RelatedID: in.RelatedID,
		CreatedAt: n.stamp(),
	})
}

// MarkRead marks a notification of userID as read and returns the number
// that changed. Notifications of other users are not found.
func (n *Notifications) MarkRead(ctx context.Context, id, userID string) (int, error) {
	return n.store.MarkNotificationRead(ctx, id, userID)
}

// MarkAllRead returns the number of notifications that changed.
func (n *Notifications) MarkAllRead(ctx context.Context, userID string) (int, error) {
	return n.store.MarkAllNotificationsRead(ctx, userID)
}

// send creates a notification on behalf of another operation. The operation
// already succeeded, so a failure is logged and dropped.
func (n *Notifications) send(ctx context.Context, in NotificationInput) {
	if _, err := n.Create(ctx, in); err != nil {
		n.log.WithFields(logrus.Fields{
			"user": in.UserID,
			"type": in.Type,
		}).WithError(err).Warn("notification dropped")
	}
}
