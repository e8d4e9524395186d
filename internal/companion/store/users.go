package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// User is a client profile. Metadata is an opaque JSON blob owned by the
// mobile client; the server stores and returns it without interpreting it.
type User struct {
	ID                     int64
	Username               sql.NullString
	Email                  sql.NullString
	PreferredPersonalityID sql.NullInt64
	Metadata               json.RawMessage
	CreatedAt              time.Time
}

// UserFields carries the writable fields for creating a user.
type UserFields struct {
	Username               string
	Email                  string
	PreferredPersonalityID *int64
	Metadata               json.RawMessage
}

// UserUpdate is an explicit partial update: only non-nil fields are written.
// Named optional fields replace the dynamic column allowlist the API used
// to build updates from.
type UserUpdate struct {
	Username               *string
	Email                  *string
	PreferredPersonalityID *int64
	Metadata               json.RawMessage
}

// CreateUser inserts a new user and returns the stored record.
func (s *Store) CreateUser(ctx context.Context, fields UserFields) (*User, error) {
	var preferred sql.NullInt64
	if fields.PreferredPersonalityID != nil {
		preferred = sql.NullInt64{Int64: *fields.PreferredPersonalityID, Valid: true}
	}
	var metadata sql.NullString
	if len(fields.Metadata) > 0 {
		metadata = sql.NullString{String: string(fields.Metadata), Valid: true}
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, email, preferred_personality_id, metadata)
		VALUES (?, ?, ?, ?)
	`, nullable(fields.Username), nullable(fields.Email), preferred, metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get user id: %w", err)
	}

	return s.GetUser(ctx, id)
}

// GetUser retrieves a user by ID. Returns ErrNotFound when no such record
// exists.
func (s *Store) GetUser(ctx context.Context, id int64) (*User, error) {
	u := &User{}
	var metadata sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, email, preferred_personality_id, metadata, created_at
		FROM users
		WHERE id = ?
	`, id).Scan(&u.ID, &u.Username, &u.Email, &u.PreferredPersonalityID, &metadata, &u.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if metadata.Valid {
		u.Metadata = json.RawMessage(metadata.String)
	}
	return u, nil
}

// UpdateUser applies a partial update and returns the resulting record.
// Fields left nil in the update are not touched. An update with no fields
// set is a no-op read.
func (s *Store) UpdateUser(ctx context.Context, id int64, update UserUpdate) (*User, error) {
	// Confirm the row exists so a bad ID surfaces as ErrNotFound instead of
	// a silent zero-row update.
	if _, err := s.GetUser(ctx, id); err != nil {
		return nil, err
	}

	if update.Username != nil {
		if _, err := s.db.ExecContext(ctx, `UPDATE users SET username = ? WHERE id = ?`, *update.Username, id); err != nil {
			return nil, fmt.Errorf("failed to update username: %w", err)
		}
	}
	if update.Email != nil {
		if _, err := s.db.ExecContext(ctx, `UPDATE users SET email = ? WHERE id = ?`, *update.Email, id); err != nil {
			return nil, fmt.Errorf("failed to update email: %w", err)
		}
	}
	if update.PreferredPersonalityID != nil {
		if _, err := s.db.ExecContext(ctx, `UPDATE users SET preferred_personality_id = ? WHERE id = ?`, *update.PreferredPersonalityID, id); err != nil {
			return nil, fmt.Errorf("failed to update preferred personality: %w", err)
		}
	}
	if len(update.Metadata) > 0 {
		if _, err := s.db.ExecContext(ctx, `UPDATE users SET metadata = ? WHERE id = ?`, string(update.Metadata), id); err != nil {
			return nil, fmt.Errorf("failed to update metadata: %w", err)
		}
	}

	return s.GetUser(ctx, id)
}
