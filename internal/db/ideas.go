package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

const ideaColumns = `id, title, description, user_id, category, tags, visibility, collaborators,
	likes, views, comments, created_at, updated_at`

func scanIdea(row scanner) (Idea, error) {
	var i Idea
	var tags, collaborators, visibility, createdAt, updatedAt string
	err := row.Scan(&i.ID, &i.Title, &i.Description, &i.UserID, &i.Category, &tags, &visibility,
		&collaborators, &i.Likes, &i.Views, &i.Comments, &createdAt, &updatedAt)
	if err != nil {
		return Idea{}, err
	}
	i.Visibility = Visibility(visibility)
	i.CreatedAt = parseTime(createdAt)
	i.UpdatedAt = parseTime(updatedAt)
	if i.Tags, err = decodeList[string](tags); err != nil {
		return Idea{}, err
	}
	if i.Collaborators, err = decodeList[string](collaborators); err != nil {
		return Idea{}, err
	}
	return i, nil
}

// ListIdeas returns the ideas matching q in insertion order.
func (s *Store) ListIdeas(ctx context.Context, q IdeaQuery) ([]Idea, error) {
	var where []string
	var args []any

	if q.Category != "" {
		where = append(where, "category = ?")
		args = append(args, q.Category)
	}
	if q.Tag != "" {
		where = append(where, "EXISTS (SELECT 1 FROM json_each(ideas.tags) WHERE value = ?)")
		args = append(args, q.Tag)
	}
	if q.Search != "" {
		where = append(where, `(title LIKE ? ESCAPE '\' OR description LIKE ? ESCAPE '\'
			OR EXISTS (SELECT 1 FROM json_each(ideas.tags) WHERE value LIKE ? ESCAPE '\'))`)
		pattern := likePattern(q.Search)
		args = append(args, pattern, pattern, pattern)
	}
	if q.Member != "" {
		where = append(where, "(user_id = ? OR EXISTS (SELECT 1 FROM json_each(ideas.collaborators) WHERE value = ?))")
		args = append(args, q.Member, q.Member)
	}
	if q.VisibleTo != "" {
		where = append(where, `(visibility = 'PUBLIC' OR user_id = ?
			OR EXISTS (SELECT 1 FROM json_each(ideas.collaborators) WHERE value = ?))`)
		args = append(args, q.VisibleTo, q.VisibleTo)
	}
	if q.PublicOnly {
		where = append(where, "visibility = 'PUBLIC'")
	}

	query := `SELECT ` + ideaColumns + ` FROM ideas`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY rowid`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list ideas: %w", err)
	}
	defer rows.Close()

	ideas := []Idea{}
	for rows.Next() {
		i, err := scanIdea(rows)
		if err != nil {
			return nil, fmt.Errorf("scan idea: %w", err)
		}
		ideas = append(ideas, i)
	}
	return ideas, rows.Err()
}

func (s *Store) GetIdea(ctx context.Context, id string) (Idea, bool, error) {
	i, err := scanIdea(s.db.QueryRowContext(ctx, `SELECT `+ideaColumns+` FROM ideas WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Idea{}, false, nil
	}
	if err != nil {
		return Idea{}, false, fmt.Errorf("get idea %s: %w", id, err)
	}
	return i, true, nil
}

// CreateIdea inserts i, allocating an id when i.ID is empty.
func (s *Store) CreateIdea(ctx context.Context, i Idea) (Idea, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		return insertIdea(ctx, tx, &i)
	})
	if err != nil {
		return Idea{}, err
	}
	return i, nil
}

func insertIdea(ctx context.Context, tx *sql.Tx, i *Idea) error {
	if i.ID == "" {
		id, err := nextID(ctx, tx, "idea")
		if err != nil {
			return err
		}
		i.ID = id
	}
	if i.Tags == nil {
		i.Tags = []string{}
	}
	if i.Collaborators == nil {
		i.Collaborators = []string{}
	}
	tags, err := encodeList(i.Tags)
	if err != nil {
		return err
	}
	collaborators, err := encodeList(i.Collaborators)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO ideas (`+ideaColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		i.ID, i.Title, i.Description, i.UserID, i.Category, tags, string(i.Visibility), collaborators,
		i.Likes, i.Views, i.Comments, formatTime(i.CreatedAt), formatTime(i.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert idea: %w", err)
	}
	return nil
}

// LikeIdea increments the like counter and returns the updated idea.
func (s *Store) LikeIdea(ctx context.Context, id string) (Idea, error) {
	return s.bumpIdea(ctx, id, "likes")
}

// ViewIdea increments the view counter and returns the updated idea.
func (s *Store) ViewIdea(ctx context.Context, id string) (Idea, error) {
	return s.bumpIdea(ctx, id, "views")
}

func (s *Store) bumpIdea(ctx context.Context, id, column string) (Idea, error) {
	var idea Idea
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE ideas SET `+column+` = `+column+` + 1 WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("update idea %s: %w", column, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("idea %s: %w", id, ErrNotFound)
		}
		idea, err = scanIdea(tx.QueryRowContext(ctx, `SELECT `+ideaColumns+` FROM ideas WHERE id = ?`, id))
		return err
	})
	return idea, err
}

// Comments

const commentColumns = `id, idea_id, user_id, content, created_at`

func scanComment(row scanner) (Comment, error) {
	var c Comment
	var createdAt string
	if err := row.Scan(&c.ID, &c.IdeaID, &c.UserID, &c.Content, &createdAt); err != nil {
		return Comment{}, err
	}
	c.CreatedAt = parseTime(createdAt)
	return c, nil
}

// AddComment stores c and increments the comment count of its idea.
func (s *Store) AddComment(ctx context.Context, c Comment) (Comment, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE ideas SET comments = comments + 1 WHERE id = ?`, c.IdeaID)
		if err != nil {
			return fmt.Errorf("count comment: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("idea %s: %w", c.IdeaID, ErrNotFound)
		}
		if c.ID == "" {
			if c.ID, err = nextID(ctx, tx, "comment"); err != nil {
				return err
			}
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO comments (`+commentColumns+`) VALUES (?, ?, ?, ?, ?)`,
			c.ID, c.IdeaID, c.UserID, c.Content, formatTime(c.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("insert comment: %w", err)
		}
		return nil
	})
	if err != nil {
		return Comment{}, err
	}
	return c, nil
}

func (s *Store) ListComments(ctx context.Context, ideaID string) ([]Comment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+commentColumns+` FROM comments WHERE idea_id = ? ORDER BY rowid`, ideaID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	comments := []Comment{}
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}
