package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// PromptOverride is a stored generation prompt for one work item context.
type PromptOverride struct {
	// Key is type#areaPath#businessUnit#system.
	Key       string
	Prompt    string
	UpdatedAt time.Time
}

// PromptStore stores generation prompt overrides keyed by work item context.
type PromptStore struct {
	db *DB
}

// NewPromptStore creates a PromptStore on db.
func NewPromptStore(db *DB) *PromptStore {
	return &PromptStore{db: db}
}

// LookupPrompt returns the override for key. The bool is false when none is
// stored.
func (s *PromptStore) LookupPrompt(ctx context.Context, key string) (string, bool, error) {
	var prompt string
	err := s.db.QueryRow(ctx, `SELECT prompt FROM prompt_overrides WHERE ado_key = ?`, key).Scan(&prompt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("lookup prompt %q: %w", key, err)
	}
	return prompt, true, nil
}

// SetPrompt stores or replaces the override for key.
func (s *PromptStore) SetPrompt(ctx context.Context, key, prompt string) error {
	if key == "" {
		return errors.New("set prompt: key is required")
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO prompt_overrides (ado_key, prompt, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(ado_key) DO UPDATE SET prompt = excluded.prompt, updated_at = excluded.updated_at
	`, key, prompt, FormatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("set prompt %q: %w", key, err)
	}
	return nil
}

// DeletePrompt removes the override for key. Deleting a missing key returns
// ErrNotFound.
func (s *PromptStore) DeletePrompt(ctx context.Context, key string) error {
	res, err := s.db.Exec(ctx, `DELETE FROM prompt_overrides WHERE ado_key = ?`, key)
	if err != nil {
		return fmt.Errorf("delete prompt %q: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListPrompts returns every stored override ordered by key.
func (s *PromptStore) ListPrompts(ctx context.Context) ([]PromptOverride, error) {
	rows, err := s.db.Query(ctx, `SELECT ado_key, prompt, updated_at FROM prompt_overrides ORDER BY ado_key`)
	if err != nil {
		return nil, fmt.Errorf("list prompts: %w", err)
	}
	defer rows.Close()

	var out []PromptOverride
	for rows.Next() {
		var (
			p  PromptOverride
			ts string
		)
		if err := rows.Scan(&p.Key, &p.Prompt, &ts); err != nil {
			return nil, fmt.Errorf("scan prompt: %w", err)
		}
		if p.UpdatedAt, err = ParseTime(ts); err != nil {
			return nil, fmt.Errorf("parse updated_at: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
