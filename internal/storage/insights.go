package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// ActiveInsights returns active insights for the given categories, highest
// confidence first. An empty category list matches everything.
func (s *Store) ActiveInsights(userID int64, categories []string, limit int) ([]Insight, error) {
	clauses := []string{"user_id = ?", "is_active = 1"}
	args := []any{userID}
	if len(categories) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(categories)), ",")
		clauses = append(clauses, "category IN ("+placeholders+")")
		for _, c := range categories {
			args = append(args, c)
		}
	}
	args = append(args, limit)

	rows, err := s.db.Query(`
		SELECT id, user_id, category, insight, source_summary, confidence,
		       times_reinforced, is_active, created_at, last_reinforced_at
		FROM permanent_insights WHERE `+strings.Join(clauses, " AND ")+`
		ORDER BY confidence DESC, created_at DESC LIMIT ?`, args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanInsights(rows)
}

// SearchInsights returns active insights whose text matches any word of the
// query, highest confidence first.
func (s *Store) SearchInsights(userID int64, query string, limit int) ([]Insight, error) {
	words := searchWords(query)
	if len(words) == 0 {
		return nil, nil
	}

	var terms []string
	args := []any{userID}
	for _, w := range words {
		terms = append(terms, "insight LIKE ?")
		args = append(args, "%"+w+"%")
	}
	args = append(args, limit)

	rows, err := s.db.Query(`
		SELECT id, user_id, category, insight, source_summary, confidence,
		       times_reinforced, is_active, created_at, last_reinforced_at
		FROM permanent_insights
		WHERE user_id = ? AND is_active = 1 AND (`+strings.Join(terms, " OR ")+`)
		ORDER BY confidence DESC LIMIT ?`, args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanInsights(rows)
}

// InsertInsight stores a newly extracted insight.
func (s *Store) InsertInsight(in Insight) error {
	if in.Confidence == 0 {
		in.Confidence = 0.5
	}
	createdAt := in.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}
	_, err := s.db.Exec(`
		INSERT INTO permanent_insights
			(id, user_id, category, insight, source_summary, confidence,
			 times_reinforced, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, 1, ?)`,
		in.ID, in.UserID, in.Category, in.Insight, in.SourceSummary,
		in.Confidence, createdAt.UTC().Format(time.RFC3339),
	)
	return err
}

// ReinforceInsight bumps an insight's reinforcement count and confidence.
// Confidence grows by 0.05 per reinforcement, capped at 1.0.
func (s *Store) ReinforceInsight(id string) error {
	res, err := s.db.Exec(`
		UPDATE permanent_insights
		SET times_reinforced = times_reinforced + 1,
		    confidence = MIN(confidence + 0.05, 1.0),
		    last_reinforced_at = ?
		WHERE id = ?`,
		s.now().UTC().Format(time.RFC3339), id,
	)
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

func scanInsights(rows *sql.Rows) ([]Insight, error) {
	var results []Insight
	for rows.Next() {
		var in Insight
		var active int
		var createdAt string
		var reinforcedAt sql.NullString
		if err := rows.Scan(&in.ID, &in.UserID, &in.Category, &in.Insight,
			&in.SourceSummary, &in.Confidence, &in.TimesReinforced,
			&active, &createdAt, &reinforcedAt); err != nil {
			return nil, err
		}
		in.IsActive = active != 0
		t, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		in.CreatedAt = t
		if reinforcedAt.Valid {
			t, err := time.Parse(time.RFC3339, reinforcedAt.String)
			if err != nil {
				return nil, fmt.Errorf("parsing last_reinforced_at: %w", err)
			}
			in.LastReinforcedAt = t
		}
		results = append(results, in)
	}
	return results, rows.Err()
}
