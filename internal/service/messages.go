package service

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sparkmates/sparkmates/internal/db"
)

type Messages struct {
	*base
}

type MessageInput struct {
	// ConversationID is empty when starting a conversation with RecipientID.
	ConversationID string `json:"conversationId"`
	RecipientID    string `json:"recipientId"`
	SenderID       string `json:"sender"`
	Content        string `json:"content"`
}

// ConversationView is a conversation as seen by one participant.
type ConversationView struct {
	ID           string       `json:"id"`
	Participants []db.User    `json:"participants"`
	LastMessage  *LastMessage `json:"lastMessage"`
	UnreadCount  int          `json:"unreadCount"`
}

type LastMessage struct {
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// GetMessages returns the messages userID sent or received.
func (m *Messages) GetMessages(ctx context.Context, userID string) ([]db.Message, error) {
	return m.store.ListMessagesForUser(ctx, userID)
}

// Conversations lists the conversations of userID with their participants,
// last message and the number of messages userID has not read.
func (m *Messages) Conversations(ctx context.Context, userID string) ([]ConversationView, error) {
	convs, err := m.store.ListConversationsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	views := make([]ConversationView, 0, len(convs))
	for _, c := range convs {
		v := ConversationView{ID: c.ID, Participants: []db.User{}}
		for _, id := range c.ParticipantIDs {
			u, found, err := m.store.GetUser(ctx, id)
			if err != nil {
				return nil, err
			}
			if found {
				v.Participants = append(v.Participants, u)
			}
		}
		last, found, err := m.store.LastMessage(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		if found {
			v.LastMessage = &LastMessage{Content: last.Content, Timestamp: last.CreatedAt}
		}
		if v.UnreadCount, err = m.store.CountUnreadInConversation(ctx, c.ID, userID); err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, nil
}

func (m *Messages) ByConversation(ctx context.Context, conversationID string) ([]db.Message, error) {
	return m.store.ListMessagesByConversation(ctx, conversationID)
}

// Send appends a message. Without a conversation id the message goes to the
// conversation between sender and recipient, which is started if needed.
func (m *Messages) Send(ctx context.Context, in MessageInput) (db.Message, error) {
	if in.SenderID == "" {
		return db.Message{}, fmt.Errorf("%w: message needs a sender", ErrInvalidInput)
	}
	conversationID := in.ConversationID
	if conversationID == "" {
		c, err := m.conversationWith(ctx, in.SenderID, in.RecipientID)
		if err != nil {
			return db.Message{}, err
		}
		conversationID = c.ID
	} else {
		if err := m.participant(ctx, conversationID, in.SenderID); err != nil {
			return db.Message{}, err
		}
	}

	msg, err := m.store.CreateMessage(ctx, db.Message{
		ConversationID: conversationID,
		SenderID:       in.SenderID,
		Content:        in.Content,
		CreatedAt:      m.stamp(),
	})
	if err != nil {
		return db.Message{}, err
	}
	m.log.WithFields(logrus.Fields{"conversation": conversationID, "user": in.SenderID}).Debug("message sent")
	return msg, nil
}

func (m *Messages) conversationWith(ctx context.Context, sender, recipient string) (db.Conversation, error) {
	if recipient == "" || recipient == sender {
		return db.Conversation{}, fmt.Errorf("%w: message needs a conversation or another recipient", ErrInvalidInput)
	}
	if _, found, err := m.store.GetUser(ctx, recipient); err != nil {
		return db.Conversation{}, err
	} else if !found {
		return db.Conversation{}, fmt.Errorf("user %s: %w", recipient, ErrNotFound)
	}

	c, found, err := m.store.FindConversation(ctx, sender, recipient)
	if err != nil || found {
		return c, err
	}
	c, err = m.store.CreateConversation(ctx, db.Conversation{
		ParticipantIDs: []string{sender, recipient},
		CreatedAt:      m.stamp(),
	})
	if err != nil {
		return db.Conversation{}, err
	}
	m.log.WithFields(logrus.Fields{"conversation": c.ID, "user": sender}).Info("conversation started")
	return c, nil
}

// GetUnreadCount counts the messages sent to userID that are still unread.
func (m *Messages) GetUnreadCount(ctx context.Context, userID string) (int, error) {
	return m.store.CountUnreadMessages(ctx, userID)
}

// MarkRead marks a message userID received as read and returns the number
// of messages that changed.
func (m *Messages) MarkRead(ctx context.Context, messageID, userID string) (int, error) {
	msg, found, err := m.store.GetMessage(ctx, messageID)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, fmt.Errorf("message %s: %w", messageID, ErrNotFound)
	}
	if err := m.participant(ctx, msg.ConversationID, userID); err != nil {
		return 0, err
	}
	if msg.SenderID == userID {
		return 0, fmt.Errorf("%s sent %s: %w", userID, messageID, ErrNotRecipient)
	}
	return m.store.MarkMessageRead(ctx, messageID)
}

// MarkConversationRead marks what userID received in a conversation as read
// and returns the number of messages that changed.
func (m *Messages) MarkConversationRead(ctx context.Context, conversationID, userID string) (int, error) {
	if err := m.participant(ctx, conversationID, userID); err != nil {
		return 0, err
	}
	return m.store.MarkConversationRead(ctx, conversationID, userID)
}

// ForParticipant is ByConversation restricted to the conversation's
// participants.
func (m *Messages) ForParticipant(ctx context.Context, conversationID, userID string) ([]db.Message, error) {
	if err := m.participant(ctx, conversationID, userID); err != nil {
		return nil, err
	}
	return m.store.ListMessagesByConversation(ctx, conversationID)
}

func (m *Messages) participant(ctx context.Context, conversationID, userID string) error {
	c, found, err := m.store.GetConversation(ctx, conversationID)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("conversation %s: %w", conversationID, ErrNotFound)
	}
	if !slices.Contains(c.ParticipantIDs, userID) {
		return fmt.Errorf("%s in %s: %w", userID, conversationID, ErrNotParticipant)
	}
	return nil
}
