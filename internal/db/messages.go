package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const conversationColumns = `id, participants, created_at`

const messageColumns = `id, conversation_id, sender_id, content, read, created_at`

// participates matches conversations that include the user bound to the
// placeholder.
const participates = `EXISTS (SELECT 1 FROM json_each(conversations.participants) WHERE value = ?)`

func scanConversation(row scanner) (Conversation, error) {
	var c Conversation
	var participants, createdAt string
	if err := row.Scan(&c.ID, &participants, &createdAt); err != nil {
		return Conversation{}, err
	}
	c.CreatedAt = parseTime(createdAt)
	var err error
	if c.ParticipantIDs, err = decodeList[string](participants); err != nil {
		return Conversation{}, err
	}
	return c, nil
}

func scanMessage(row scanner) (Message, error) {
	var m Message
	var read int
	var createdAt string
	if err := row.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Content, &read, &createdAt); err != nil {
		return Message{}, err
	}
	m.Read = read != 0
	m.CreatedAt = parseTime(createdAt)
	return m, nil
}

func (s *Store) queryConversations(ctx context.Context, query string, args ...any) ([]Conversation, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query conversations: %w", err)
	}
	defer rows.Close()

	convs := []Conversation{}
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		convs = append(convs, c)
	}
	return convs, rows.Err()
}

func (s *Store) queryMessages(ctx context.Context, query string, args ...any) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	msgs := []Message{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// ListConversationsForUser returns the conversations userID takes part in.
func (s *Store) ListConversationsForUser(ctx context.Context, userID string) ([]Conversation, error) {
	return s.queryConversations(ctx,
		`SELECT `+conversationColumns+` FROM conversations WHERE `+participates+` ORDER BY rowid`, userID)
}

func (s *Store) GetConversation(ctx context.Context, id string) (Conversation, bool, error) {
	c, err := scanConversation(s.db.QueryRowContext(ctx,
		`SELECT `+conversationColumns+` FROM conversations WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Conversation{}, false, nil
	}
	if err != nil {
		return Conversation{}, false, fmt.Errorf("get conversation %s: %w", id, err)
	}
	return c, true, nil
}

// FindConversation returns the oldest two-party conversation between a and b.
func (s *Store) FindConversation(ctx context.Context, a, b string) (Conversation, bool, error) {
	c, err := scanConversation(s.db.QueryRowContext(ctx,
		`SELECT `+conversationColumns+` FROM conversations
		WHERE json_array_length(participants) = 2
			AND `+participates+`
			AND `+participates+`
		ORDER BY rowid LIMIT 1`, a, b))
	if errors.Is(err, sql.ErrNoRows) {
		return Conversation{}, false, nil
	}
	if err != nil {
		return Conversation{}, false, fmt.Errorf("find conversation: %w", err)
	}
	return c, true, nil
}

// CreateConversation inserts c, allocating an id when c.ID is empty.
func (s *Store) CreateConversation(ctx context.Context, c Conversation) (Conversation, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		return insertConversation(ctx, tx, &c)
	})
	if err != nil {
		return Conversation{}, err
	}
	return c, nil
}

func insertConversation(ctx context.Context, tx *sql.Tx, c *Conversation) error {
	if c.ID == "" {
		id, err := nextID(ctx, tx, "conv")
		if err != nil {
			return err
		}
		c.ID = id
	}
	if c.ParticipantIDs == nil {
		c.ParticipantIDs = []string{}
	}
	participants, err := encodeList(c.ParticipantIDs)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO conversations (`+conversationColumns+`) VALUES (?, ?, ?)`,
		c.ID, participants, formatTime(c.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert conversation: %w", err)
	}
	return nil
}

// ListMessagesForUser returns the messages userID sent or can read as a
// conversation participant.
func (s *Store) ListMessagesForUser(ctx context.Context, userID string) ([]Message, error) {
	return s.queryMessages(ctx,
		`SELECT `+messageColumns+` FROM messages
		WHERE sender_id = ?
			OR conversation_id IN (SELECT id FROM conversations WHERE `+participates+`)
		ORDER BY rowid`, userID, userID)
}

func (s *Store) ListMessagesByConversation(ctx context.Context, conversationID string) ([]Message, error) {
	return s.queryMessages(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE conversation_id = ? ORDER BY rowid`, conversationID)
}

func (s *Store) GetMessage(ctx context.Context, id string) (Message, bool, error) {
	m, err := scanMessage(s.db.QueryRowContext(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Message{}, false, nil
	}
	if err != nil {
		return Message{}, false, fmt.Errorf("get message: %w", err)
	}
	return m, true, nil
}

// LastMessage returns the most recently stored message of a conversation.
func (s *Store) LastMessage(ctx context.Context, conversationID string) (Message, bool, error) {
	m, err := scanMessage(s.db.QueryRowContext(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE conversation_id = ? ORDER BY rowid DESC LIMIT 1`,
		conversationID))
	if errors.Is(err, sql.ErrNoRows) {
		return Message{}, false, nil
	}
	if err != nil {
		return Message{}, false, fmt.Errorf("last message: %w", err)
	}
	return m, true, nil
}

// CreateMessage appends m to its conversation.
func (s *Store) CreateMessage(ctx context.Context, m Message) (Message, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var exists bool
		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM conversations WHERE id = ?)`, m.ConversationID).Scan(&exists); err != nil {
			return fmt.Errorf("check conversation: %w", err)
		}
		if !exists {
			return fmt.Errorf("conversation %s: %w", m.ConversationID, ErrNotFound)
		}
		return insertMessage(ctx, tx, &m)
	})
	if err != nil {
		return Message{}, err
	}
	return m, nil
}

func insertMessage(ctx context.Context, tx *sql.Tx, m *Message) error {
	if m.ID == "" {
		id, err := nextID(ctx, tx, "msg")
		if err != nil {
			return err
		}
		m.ID = id
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO messages (`+messageColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		m.ID, m.ConversationID, m.SenderID, m.Content, boolInt(m.Read), formatTime(m.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// CountUnreadMessages counts unread messages addressed to userID: those in
// the user's conversations that somebody else sent.
func (s *Store) CountUnreadMessages(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM messages
		WHERE read = 0 AND sender_id != ?
			AND conversation_id IN (SELECT id FROM conversations WHERE `+participates+`)`,
		userID, userID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count unread messages: %w", err)
	}
	return n, nil
}

// CountUnreadInConversation counts the messages of one conversation that
// userID has not read.
func (s *Store) CountUnreadInConversation(ctx context.Context, conversationID, userID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM messages WHERE conversation_id = ? AND read = 0 AND sender_id != ?`,
		conversationID, userID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count unread in conversation: %w", err)
	}
	return n, nil
}

// MarkMessageRead marks one message as read and returns the number of
// messages that changed, 0 when it was already read.
func (s *Store) MarkMessageRead(ctx context.Context, id string) (int, error) {
	var exists bool
	if err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM messages WHERE id = ?)`, id).Scan(&exists); err != nil {
		return 0, fmt.Errorf("check message: %w", err)
	}
	if !exists {
		return 0, fmt.Errorf("message %s: %w", id, ErrNotFound)
	}
	res, err := s.db.ExecContext(ctx, `UPDATE messages SET read = 1 WHERE id = ? AND read = 0`, id)
	if err != nil {
		return 0, fmt.Errorf("mark message read: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// MarkConversationRead marks every message in a conversation that was sent
// to userID as read and returns how many changed.
func (s *Store) MarkConversationRead(ctx context.Context, conversationID, userID string) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE messages SET read = 1 WHERE conversation_id = ? AND sender_id != ? AND read = 0`,
		conversationID, userID,
	)
	if err != nil {
		return 0, fmt.Errorf("mark conversation read: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}
