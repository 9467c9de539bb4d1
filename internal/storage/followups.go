package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// CreateFollowUp inserts a new follow-up commitment.
func (s *Store) CreateFollowUp(f FollowUp) (FollowUp, error) {
	if f.Status == "" {
		f.Status = FollowUpPending
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = s.now()
	}
	var dueAt sql.NullString
	if !f.DueAt.IsZero() {
		dueAt = sql.NullString{String: f.DueAt.UTC().Format(time.RFC3339), Valid: true}
	}
	_, err := s.db.Exec(`
		INSERT INTO follow_ups (id, user_id, commitment, due_at, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		f.ID, f.UserID, f.Commitment, dueAt, f.Status, f.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return FollowUp{}, err
	}
	return f, nil
}

// PendingFollowUps returns the user's open commitments, soonest due first,
// undated ones last.
func (s *Store) PendingFollowUps(userID int64, limit int) ([]FollowUp, error) {
	rows, err := s.db.Query(`
		SELECT id, user_id, commitment, due_at, status, created_at
		FROM follow_ups WHERE user_id = ? AND status = ?
		ORDER BY due_at IS NULL, due_at ASC, created_at ASC LIMIT ?`,
		userID, FollowUpPending, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []FollowUp
	for rows.Next() {
		f, err := scanFollowUp(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, f)
	}
	return results, rows.Err()
}

// ResolveFollowUp marks a follow-up done.
func (s *Store) ResolveFollowUp(id string) error {
	res, err := s.db.Exec(`UPDATE follow_ups SET status = ? WHERE id = ?`, FollowUpDone, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanFollowUp(row rowScanner) (FollowUp, error) {
	var f FollowUp
	var dueAt sql.NullString
	var createdAt string
	if err := row.Scan(&f.ID, &f.UserID, &f.Commitment, &dueAt, &f.Status, &createdAt); err != nil {
		return FollowUp{}, err
	}
	if dueAt.Valid {
		d, err := time.Parse(time.RFC3339, dueAt.String)
		if err != nil {
			return FollowUp{}, fmt.Errorf("parsing due_at: %w", err)
		}
		f.DueAt = d
	}
	c, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return FollowUp{}, fmt.Errorf("parsing created_at: %w", err)
	}
	f.CreatedAt = c
	return f, nil
}
