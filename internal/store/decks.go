package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// RandomTruth picks one truth question at random. When spicy is false, only
// non-spicy questions are considered; spicy mode draws from the whole deck.
func (s *Store) RandomTruth(ctx context.Context, spicy bool) (TruthQuestion, error) {
	q := `SELECT id, question, spicy FROM truth_questions`
	if !spicy {
		q += ` WHERE spicy = 0`
	}
	q += ` ORDER BY RANDOM() LIMIT 1`

	var (
		t TruthQuestion
		v int
	)
	err := s.db.QueryRowContext(ctx, q).Scan(&t.ID, &t.Question, &v)
	if errors.Is(err, sql.ErrNoRows) {
		return TruthQuestion{}, ErrNotFound
	}
	if err != nil {
		return TruthQuestion{}, fmt.Errorf("random truth: %w", err)
	}
	t.Spicy = v != 0
	return t, nil
}

func (s *Store) RandomDare(ctx context.Context, spicy bool) (DareChallenge, error) {
	q := `SELECT id, challenge, spicy FROM dare_challenges`
	if !spicy {
		q += ` WHERE spicy = 0`
	}
	q += ` ORDER BY RANDOM() LIMIT 1`

	var (
		d DareChallenge
		v int
	)
	err := s.db.QueryRowContext(ctx, q).Scan(&d.ID, &d.Challenge, &v)
	if errors.Is(err, sql.ErrNoRows) {
		return DareChallenge{}, ErrNotFound
	}
	if err != nil {
		return DareChallenge{}, fmt.Errorf("random dare: %w", err)
	}
	d.Spicy = v != 0
	return d, nil
}

func (s *Store) AddTruth(ctx context.Context, question string, spicy bool) (TruthQuestion, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO truth_questions(question, spicy) VALUES(?,?)`, question, boolInt(spicy))
	if err != nil {
		return TruthQuestion{}, fmt.Errorf("add truth: %w", err)
	}
	id, _ := res.LastInsertId()
	return TruthQuestion{ID: id, Question: question, Spicy: spicy}, nil
}

func (s *Store) AddDare(ctx context.Context, challenge string, spicy bool) (DareChallenge, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO dare_challenges(challenge, spicy) VALUES(?,?)`, challenge, boolInt(spicy))
	if err != nil {
		return DareChallenge{}, fmt.Errorf("add dare: %w", err)
	}
	id, _ := res.LastInsertId()
	return DareChallenge{ID: id, Challenge: challenge, Spicy: spicy}, nil
}

func (s *Store) ListTruths(ctx context.Context) ([]TruthQuestion, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, question, spicy FROM truth_questions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list truths: %w", err)
	}
	defer rows.Close()

	var out []TruthQuestion
	for rows.Next() {
		var (
			t TruthQuestion
			v int
		)
		if err := rows.Scan(&t.ID, &t.Question, &v); err != nil {
			return nil, fmt.Errorf("list truths: %w", err)
		}
		t.Spicy = v != 0
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) ListDares(ctx context.Context) ([]DareChallenge, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, challenge, spicy FROM dare_challenges ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list dares: %w", err)
	}
	defer rows.Close()

	var out []DareChallenge
	for rows.Next() {
		var (
			d DareChallenge
			v int
		)
		if err := rows.Scan(&d.ID, &d.Challenge, &v); err != nil {
			return nil, fmt.Errorf("list dares: %w", err)
		}
		d.Spicy = v != 0
		out = append(out, d)
	}
	return out, rows.Err()
}
