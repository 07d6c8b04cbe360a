package service

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/sirupsen/logrus"

	"github.com/sparkmates/sparkmates/internal/db"
)

type Ideas struct {
	*base
	notify *Notifications
}

// IdeaFilter narrows GetAll. Zero fields do not filter.
type IdeaFilter struct {
	Category string
	Tag      string
	Search   string
	// Viewer hides the private ideas this user neither owns nor
	// collaborates on.
	Viewer string
}

type IdeaInput struct {
	Title         string        `json:"title"`
	Description   string        `json:"description"`
	UserID        string        `json:"userId"`
	Category      string        `json:"category"`
	Tags          []string      `json:"tags"`
	Visibility    db.Visibility `json:"visibility"`
	Collaborators []string      `json:"collaborators"`
}

type SortOrder string

const (
	SortNewest  SortOrder = "newest"
	SortPopular SortOrder = "popular"
)

func (o SortOrder) Valid() bool {
	return o == SortNewest || o == SortPopular
}

func (i *Ideas) GetAll(ctx context.Context, f IdeaFilter) ([]db.Idea, error) {
	return i.store.ListIdeas(ctx, db.IdeaQuery{
		Category:  f.Category,
		Tag:       f.Tag,
		Search:    f.Search,
		VisibleTo: f.Viewer,
	})
}

func (i *Ideas) GetByID(ctx context.Context, id string) (db.Idea, bool, error) {
	return i.store.GetIdea(ctx, id)
}

// GetByUser returns the ideas userID owns or collaborates on.
func (i *Ideas) GetByUser(ctx context.Context, userID string) ([]db.Idea, error) {
	return i.store.ListIdeas(ctx, db.IdeaQuery{Member: userID})
}

func (i *Ideas) Create(ctx context.Context, in IdeaInput) (db.Idea, error) {
	if in.Visibility == "" {
		in.Visibility = db.VisibilityPrivate
	}
	if !in.Visibility.Valid() {
		return db.Idea{}, fmt.Errorf("%w: %q", ErrInvalidVisibility, in.Visibility)
	}
	now := i.stamp()
	idea := db.Idea{
		Title:         cmp.Or(in.Title, "New Idea"),
		Description:   in.Description,
		UserID:        in.UserID,
		Category:      cmp.Or(in.Category, "Other"),
		Tags:          in.Tags,
		Visibility:    in.Visibility,
		Collaborators: in.Collaborators,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	idea, err := i.store.CreateIdea(ctx, idea)
	if err != nil {
		return db.Idea{}, err
	}
	i.log.WithFields(logrus.Fields{"idea": idea.ID, "user": idea.UserID}).Info("idea created")
	return idea, nil
}

// Like adds a like from userID and notifies the owner.
func (i *Ideas) Like(ctx context.Context, id, userID string) (db.Idea, error) {
	idea, err := i.store.LikeIdea(ctx, id)
	if err != nil {
		return db.Idea{}, err
	}
	if idea.UserID != "" && idea.UserID != userID {
		i.notify.send(ctx, NotificationInput{
			UserID:    idea.UserID,
			Type:      db.NotifyLike,
			Content:   fmt.Sprintf("%s liked your idea %q", i.userName(ctx, userID), idea.Title),
			RelatedID: idea.ID,
		})
	}
	return idea, nil
}

func (i *Ideas) View(ctx context.Context, id string) (db.Idea, error) {
	return i.store.ViewIdea(ctx, id)
}

// AddComment stores a comment, bumps the idea's comment count and notifies
// the owner.
func (i *Ideas) AddComment(ctx context.Context, ideaID, userID, content string) (db.Comment, error) {
	if content == "" {
		return db.Comment{}, fmt.Errorf("%w: empty comment", ErrInvalidInput)
	}
	c, err := i.store.AddComment(ctx, db.Comment{
		IdeaID:    ideaID,
		UserID:    userID,
		Content:   content,
		CreatedAt: i.stamp(),
	})
	if err != nil {
		return db.Comment{}, err
	}
	idea, found, err := i.store.GetIdea(ctx, ideaID)
	if err == nil && found && idea.UserID != "" && idea.UserID != userID {
		i.notify.send(ctx, NotificationInput{
			UserID:    idea.UserID,
			Type:      db.NotifyComment,
			Content:   fmt.Sprintf("%s commented on your idea %q", i.userName(ctx, userID), idea.Title),
			RelatedID: idea.ID,
		})
	}
	return c, nil
}

func (i *Ideas) Comments(ctx context.Context, ideaID string) ([]db.Comment, error) {
	return i.store.ListComments(ctx, ideaID)
}

// Sort returns a sorted copy of ideas. Ties keep their input order; an
// unknown order returns the copy unsorted.
func Sort(ideas []db.Idea, order SortOrder) []db.Idea {
	out := slices.Clone(ideas)
	switch order {
	case SortNewest:
		slices.SortStableFunc(out, func(a, b db.Idea) int {
			return b.CreatedAt.Compare(a.CreatedAt)
		})
	case SortPopular:
		slices.SortStableFunc(out, func(a, b db.Idea) int {
			return cmp.Compare(b.Likes, a.Likes)
		})
	}
	return out
}
