package store

import (
	"context"
	"fmt"
	"time"
)

// Record stores one attempted send or command use. Append-only; rows are never
// updated or deleted.
func (s *Store) Record(ctx context.Context, kind string, recipientID int64, at time.Time) error {
	if at.IsZero() {
		at = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO deliveries(kind, recipient_id, sent_at) VALUES(?,?,?)`,
		kind, recipientID, formatTime(at))
	if err != nil {
		return fmt.Errorf("record delivery: %w", err)
	}
	return nil
}

func (s *Store) ListDeliveries(ctx context.Context, limit int) ([]DeliveryRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, recipient_id, sent_at FROM deliveries ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list deliveries: %w", err)
	}
	defer rows.Close()

	var out []DeliveryRecord
	for rows.Next() {
		var (
			d      DeliveryRecord
			sentAt string
		)
		if err := rows.Scan(&d.ID, &d.Kind, &d.RecipientID, &sentAt); err != nil {
			return nil, fmt.Errorf("list deliveries: %w", err)
		}
		d.SentAt = parseTime(sentAt)
		out = append(out, d)
	}
	return out, rows.Err()
}

// DeliveryCountsSince aggregates per-kind usage counts for records at or after
// the given instant (e.g. midnight for "today's" dashboard numbers).
func (s *Store) DeliveryCountsSince(ctx context.Context, since time.Time) ([]KindCount, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT kind, COUNT(*) FROM deliveries WHERE sent_at >= ? GROUP BY kind ORDER BY COUNT(*) DESC`,
		formatTime(since))
	if err != nil {
		return nil, fmt.Errorf("delivery counts: %w", err)
	}
	defer rows.Close()

	var out []KindCount
	for rows.Next() {
		var kc KindCount
		if err := rows.Scan(&kc.Kind, &kc.Count); err != nil {
			return nil, fmt.Errorf("delivery counts: %w", err)
		}
		out = append(out, kc)
	}
	return out, rows.Err()
}
