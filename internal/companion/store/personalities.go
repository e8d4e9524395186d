package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Personality is a persona profile biasing the system-level framing of a
// chat request. Only Name is required; the other fields are free text with
// defaults applied by the context builder.
type Personality struct {
	ID        int64
	Name      string
	Emotion   sql.NullString
	Attitude  sql.NullString
	Opinions  sql.NullString
	CreatedAt time.Time
}

// PersonalityFields carries the writable fields for creating a personality.
type PersonalityFields struct {
	Name     string
	Emotion  string
	Attitude string
	Opinions string
}

// CreatePersonality inserts a new personality and returns the stored record.
// Name must be non-empty.
func (s *Store) CreatePersonality(ctx context.Context, fields PersonalityFields) (*Personality, error) {
	if strings.TrimSpace(fields.Name) == "" {
		return nil, fmt.Errorf("personality name must not be empty")
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO personalities (name, emotion, attitude, opinions)
		VALUES (?, ?, ?, ?)
	`, fields.Name, nullable(fields.Emotion), nullable(fields.Attitude), nullable(fields.Opinions))
	if err != nil {
		return nil, fmt.Errorf("failed to create personality: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get personality id: %w", err)
	}

	return s.GetPersonality(ctx, id)
}

// GetPersonality retrieves a personality by ID. Returns ErrNotFound when no
// such record exists.
func (s *Store) GetPersonality(ctx context.Context, id int64) (*Personality, error) {
	p := &Personality{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, emotion, attitude, opinions, created_at
		FROM personalities
		WHERE id = ?
	`, id).Scan(&p.ID, &p.Name, &p.Emotion, &p.Attitude, &p.Opinions, &p.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get personality: %w", err)
	}

	return p, nil
}

// ListPersonalities returns all personalities ordered by ID.
func (s *Store) ListPersonalities(ctx context.Context) ([]*Personality, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, emotion, attitude, opinions, created_at
		FROM personalities
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list personalities: %w", err)
	}
	defer rows.Close()

	var personalities []*Personality
	for rows.Next() {
		p := &Personality{}
		if err := rows.Scan(&p.ID, &p.Name, &p.Emotion, &p.Attitude, &p.Opinions, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan personality: %w", err)
		}
		personalities = append(personalities, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating personalities: %w", err)
	}

	return personalities, nil
}

// nullable maps an empty string to NULL so optional fields stay NULL in the
// database rather than becoming empty strings.
func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
