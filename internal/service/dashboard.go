package service

import (
	"context"
	"fmt"

	"github.com/sparkmates/sparkmates/internal/db"
)

// DashboardView is everything the landing page of a signed in user shows.
type DashboardView struct {
	User                db.User           `json:"user"`
	Ideas               []db.Idea         `json:"ideas"`
	Projects            []db.Project      `json:"projects"`
	Messages            []db.Message      `json:"messages"`
	Notifications       []db.Notification `json:"notifications"`
	UnreadMessages      int               `json:"unreadMessages"`
	UnreadNotifications int               `json:"unreadNotifications"`
}

func (s *Service) Dashboard(ctx context.Context, userID string) (DashboardView, error) {
	user, found, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		return DashboardView{}, err
	}
	if !found {
		return DashboardView{}, fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}

	v := DashboardView{User: user}
	if v.Ideas, err = s.Ideas.GetByUser(ctx, userID); err != nil {
		return DashboardView{}, err
	}
	if v.Projects, err = s.Projects.GetByUser(ctx, userID); err != nil {
		return DashboardView{}, err
	}
	if v.Messages, err = s.Messages.GetMessages(ctx, userID); err != nil {
		return DashboardView{}, err
	}
	if v.Notifications, err = s.Notifications.GetByUser(ctx, userID); err != nil {
		return DashboardView{}, err
	}
	if v.UnreadMessages, err = s.Messages.GetUnreadCount(ctx, userID); err != nil {
		return DashboardView{}, err
	}
	if v.UnreadNotifications, err = s.Notifications.GetUnreadCount(ctx, userID); err != nil {
		return DashboardView{}, err
	}
	return v, nil
}
