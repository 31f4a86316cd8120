package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

func (s *Store) GetAISettings(ctx context.Context) (AISettings, error) {
	var set AISettings
	err := s.db.QueryRowContext(ctx,
		`SELECT model, temperature, max_tokens, style FROM ai_settings WHERE id = 1`).
		Scan(&set.Model, &set.Temperature, &set.MaxTokens, &set.Style)
	if errors.Is(err, sql.ErrNoRows) {
		return AISettings{}, ErrNotFound
	}
	if err != nil {
		return AISettings{}, fmt.Errorf("get ai settings: %w", err)
	}
	return set, nil
}

func (s *Store) PutAISettings(ctx context.Context, set AISettings) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO ai_settings(id, model, temperature, max_tokens, style) VALUES(1,?,?,?,?)
		 ON CONFLICT(id) DO UPDATE SET
		   model=excluded.model,
		   temperature=excluded.temperature,
		   max_tokens=excluded.max_tokens,
		   style=excluded.style`,
		set.Model, set.Temperature, set.MaxTokens, set.Style)
	if err != nil {
		return fmt.Errorf("put ai settings: %w", err)
	}
	return nil
}
