package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const userColumns = `id, name, email, bio, role, avatar, password_hash, created_at`

func scanUser(row scanner) (User, error) {
	var u User
	var createdAt string
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Bio, &u.Role, &u.Avatar, &u.PasswordHash, &createdAt); err != nil {
		return User{}, err
	}
	u.CreatedAt = parseTime(createdAt)
	return u, nil
}

func (s *Store) queryUsers(ctx context.Context, query string, args ...any) ([]User, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	users := []User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *Store) ListUsers(ctx context.Context) ([]User, error) {
	return s.queryUsers(ctx, `SELECT `+userColumns+` FROM users ORDER BY rowid`)
}

// ListUsersByEmail returns every account registered with email, oldest first.
func (s *Store) ListUsersByEmail(ctx context.Context, email string) ([]User, error) {
	return s.queryUsers(ctx, `SELECT `+userColumns+` FROM users WHERE email = ? ORDER BY rowid`, email)
}

func (s *Store) GetUser(ctx context.Context, id string) (User, bool, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, false, nil
	}
	if err != nil {
		return User{}, false, fmt.Errorf("get user %s: %w", id, err)
	}
	return u, true, nil
}

// CreateUser inserts u, allocating an id when u.ID is empty.
func (s *Store) CreateUser(ctx context.Context, u User) (User, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		return insertUser(ctx, tx, &u)
	})
	if err != nil {
		return User{}, err
	}
	return u, nil
}

func insertUser(ctx context.Context, tx *sql.Tx, u *User) error {
	if u.ID == "" {
		id, err := nextID(ctx, tx, "user")
		if err != nil {
			return err
		}
		u.ID = id
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Name, u.Email, u.Bio, u.Role, u.Avatar, u.PasswordHash, formatTime(u.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// UpdateUser overwrites the profile fields of u. The password hash and the
// creation time are left untouched.
func (s *Store) UpdateUser(ctx context.Context, u User) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET name = ?, email = ?, bio = ?, role = ?, avatar = ? WHERE id = ?`,
		u.Name, u.Email, u.Bio, u.Role, u.Avatar, u.ID,
	)
	if err != nil {
		return fmt.Errorf("update user %s: %w", u.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update user %s: %w", u.ID, ErrNotFound)
	}
	return nil
}

// Sessions

func (s *Store) CreateSession(ctx context.Context, userID string, ttl time.Duration) (Session, error) {
	now := s.now()
	sess := Session{
		Token:     uuid.NewString(),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO sessions (token, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)",
		sess.Token, sess.UserID, formatTime(sess.CreatedAt), formatTime(sess.ExpiresAt),
	)
	if err != nil {
		return Session{}, fmt.Errorf("insert session: %w", err)
	}
	return sess, nil
}

// GetUserBySession resolves a session token. Expired sessions are removed
// and reported as absent.
func (s *Store) GetUserBySession(ctx context.Context, token string) (User, bool, error) {
	var userID, expiresAt string
	err := s.db.QueryRowContext(ctx,
		"SELECT user_id, expires_at FROM sessions WHERE token = ?", token,
	).Scan(&userID, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, false, nil
	}
	if err != nil {
		return User{}, false, fmt.Errorf("get session: %w", err)
	}
	if s.now().After(parseTime(expiresAt)) {
		if err := s.DeleteSession(ctx, token); err != nil {
			return User{}, false, err
		}
		return User{}, false, nil
	}
	return s.GetUser(ctx, userID)
}

func (s *Store) DeleteSession(ctx context.Context, token string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE token = ?", token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
