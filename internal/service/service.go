// Package service answers the queries of the application over the entity
// store: lookups, filtered listings, creates and the notifications they fan
// out.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sparkmates/sparkmates/internal/db"
)

var (
	// ErrNotFound is returned by mutations that address a missing record.
	// It matches db.ErrNotFound.
	ErrNotFound                = db.ErrNotFound
	ErrInvalidStatus           = errors.New("invalid status")
	ErrInvalidVisibility       = errors.New("invalid visibility")
	ErrInvalidNotificationType = errors.New("invalid notification type")
	ErrInvalidInput            = errors.New("invalid input")
	ErrNotParticipant          = errors.New("not a conversation participant")
	ErrNotRecipient            = errors.New("not a recipient of the message")
)

type base struct {
	store *db.Store
	log   logrus.FieldLogger
	now   func() time.Time
}

// Service groups the queries per entity.
type Service struct {
	Users         *Users
	Ideas         *Ideas
	Projects      *Projects
	Messages      *Messages
	Notifications *Notifications

	base *base
}

func New(store *db.Store, log logrus.FieldLogger) *Service {
	b := &base{store: store, log: log, now: time.Now}
	notifications := &Notifications{base: b}
	return &Service{
		Users:         &Users{base: b},
		Ideas:         &Ideas{base: b, notify: notifications},
		Projects:      &Projects{base: b, notify: notifications},
		Messages:      &Messages{base: b},
		Notifications: notifications,
		base:          b,
	}
}

// SetClock replaces the time source of the service and its store.
func (s *Service) SetClock(now func() time.Time) {
	s.base.now = now
	s.base.store.SetClock(now)
}

// stamp returns the current time in UTC.
func (b *base) stamp() time.Time {
	return b.now().UTC()
}

// userName returns the display name of a user, or the id when the user is
// unknown.
func (b *base) userName(ctx context.Context, id string) string {
	u, found, err := b.store.GetUser(ctx, id)
	if err != nil || !found || u.Name == "" {
		return id
	}
	return u.Name
}
