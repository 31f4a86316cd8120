package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

func (s *Store) ListPreferences(ctx context.Context) ([]Preference, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, recipient_id, role, display_name, good_morning, special_occasions,
		        reminders, message_style, created_at, updated_at
		 FROM preferences ORDER BY role`)
	if err != nil {
		return nil, fmt.Errorf("list preferences: %w", err)
	}
	defer rows.Close()

	var out []Preference
	for rows.Next() {
		p, err := scanPreference(rows)
		if err != nil {
			return nil, fmt.Errorf("list preferences: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) GetPreferenceByRole(ctx context.Context, role RecipientScope) (Preference, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, recipient_id, role, display_name, good_morning, special_occasions,
		        reminders, message_style, created_at, updated_at
		 FROM preferences WHERE role = ?`, string(role))
	p, err := scanPreference(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Preference{}, ErrNotFound
	}
	if err != nil {
		return Preference{}, fmt.Errorf("get preference %s: %w", role, err)
	}
	return p, nil
}

// UpsertPreference inserts or replaces the single preference row for a role.
// The role/recipient uniqueness comes from the schema; "at most one record per
// recipient" is enforced there, not here.
func (s *Store) UpsertPreference(ctx context.Context, p Preference) (Preference, error) {
	now := formatTime(time.Now())
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO preferences(recipient_id, role, display_name, good_morning,
		                         special_occasions, reminders, message_style, created_at, updated_at)
		 VALUES(?,?,?,?,?,?,?,?,?)
		 ON CONFLICT(role) DO UPDATE SET
		   recipient_id=excluded.recipient_id,
		   display_name=excluded.display_name,
		   good_morning=excluded.good_morning,
		   special_occasions=excluded.special_occasions,
		   reminders=excluded.reminders,
		   message_style=excluded.message_style,
		   updated_at=excluded.updated_at`,
		p.RecipientID, string(p.Role), p.DisplayName, boolInt(p.GoodMorning),
		boolInt(p.SpecialOccasions), boolInt(p.Reminders), p.MessageStyle, now, now)
	if err != nil {
		return Preference{}, fmt.Errorf("upsert preference %s: %w", p.Role, err)
	}
	return s.GetPreferenceByRole(ctx, p.Role)
}

func scanPreference(row rowScanner) (Preference, error) {
	var (
		p                    Preference
		role                 string
		gm, so, rem          int
		createdAt, updatedAt string
	)
	if err := row.Scan(&p.ID, &p.RecipientID, &role, &p.DisplayName, &gm, &so, &rem,
		&p.MessageStyle, &createdAt, &updatedAt); err != nil {
		return Preference{}, err
	}
	p.Role = RecipientScope(role)
	p.GoodMorning = gm != 0
	p.SpecialOccasions = so != 0
	p.Reminders = rem != 0
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)
	return p, nil
}
