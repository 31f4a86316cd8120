package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

func (s *Store) ListRules(ctx context.Context) ([]ScheduleRule, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, label, time_of_day, scope, status, created_at, updated_at
		 FROM rules ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	defer rows.Close()

	var out []ScheduleRule
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("list rules: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) GetRule(ctx context.Context, id int64) (ScheduleRule, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, label, time_of_day, scope, status, created_at, updated_at
		 FROM rules WHERE id = ?`, id)
	r, err := scanRule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ScheduleRule{}, ErrNotFound
	}
	if err != nil {
		return ScheduleRule{}, fmt.Errorf("get rule %d: %w", id, err)
	}
	return r, nil
}

func (s *Store) CreateRule(ctx context.Context, r ScheduleRule) (ScheduleRule, error) {
	now := time.Now()
	if r.Status == "" {
		r.Status = StatusActive
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO rules(label, time_of_day, scope, status, created_at, updated_at)
		 VALUES(?,?,?,?,?,?)`,
		r.Label, r.TimeOfDay, string(r.Scope), string(r.Status), formatTime(now), formatTime(now))
	if err != nil {
		return ScheduleRule{}, fmt.Errorf("create rule: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return ScheduleRule{}, fmt.Errorf("create rule: %w", err)
	}
	return s.GetRule(ctx, id)
}

// UpdateRule overwrites label/time/scope/status of an existing rule.
func (s *Store) UpdateRule(ctx context.Context, r ScheduleRule) (ScheduleRule, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE rules SET label=?, time_of_day=?, scope=?, status=?, updated_at=? WHERE id=?`,
		r.Label, r.TimeOfDay, string(r.Scope), string(r.Status), formatTime(time.Now()), r.ID)
	if err != nil {
		return ScheduleRule{}, fmt.Errorf("update rule %d: %w", r.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ScheduleRule{}, ErrNotFound
	}
	return s.GetRule(ctx, r.ID)
}

func (s *Store) DeleteRule(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM rules WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("delete rule %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRule(row rowScanner) (ScheduleRule, error) {
	var (
		r                    ScheduleRule
		scope, status        string
		createdAt, updatedAt string
	)
	if err := row.Scan(&r.ID, &r.Label, &r.TimeOfDay, &scope, &status, &createdAt, &updatedAt); err != nil {
		return ScheduleRule{}, err
	}
	r.Scope = RecipientScope(scope)
	r.Status = RuleStatus(status)
	r.Kind = ParseKind(r.Label)
	r.CreatedAt = parseTime(createdAt)
	r.UpdatedAt = parseTime(updatedAt)
	return r, nil
}
