package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// SaveInteraction appends one exchange to the interaction log.
func (s *Store) SaveInteraction(i Interaction) error {
	createdAt := i.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}
	var updateID sql.NullInt64
	if i.TelegramUpdateID != 0 {
		updateID = sql.NullInt64{Int64: i.TelegramUpdateID, Valid: true}
	}
	_, err := s.db.Exec(`
		INSERT INTO interaction_log (id, user_id, user_message, bot_response, action_type, intent_summary, telegram_update_id, reflection_processed, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		i.ID, i.UserID, i.UserMessage, i.BotResponse, i.ActionType, i.IntentSummary,
		updateID, boolToInt(i.ReflectionProcessed), createdAt.UTC().Format(time.RFC3339),
	)
	return err
}

// HasUpdateID reports whether an interaction with the given Telegram update
// identifier has already been logged. This is the deduplication ledger for
// retried webhook deliveries.
func (s *Store) HasUpdateID(updateID int64) (bool, error) {
	var count int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM interaction_log WHERE telegram_update_id = ?", updateID,
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// RecentInteractions returns the user's latest exchanges, newest first.
func (s *Store) RecentInteractions(userID int64, limit int) ([]Interaction, error) {
	rows, err := s.db.Query(`
		SELECT id, user_id, user_message, bot_response, action_type, intent_summary, telegram_update_id, reflection_processed, created_at
		FROM interaction_log WHERE user_id = ?
		ORDER BY created_at DESC LIMIT ?`, userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanInteractions(rows)
}

// UnprocessedInteractions returns exchanges not yet seen by the reflection
// job, newest first.
func (s *Store) UnprocessedInteractions(userID int64, limit int) ([]Interaction, error) {
	rows, err := s.db.Query(`
		SELECT id, user_id, user_message, bot_response, action_type, intent_summary, telegram_update_id, reflection_processed, created_at
		FROM interaction_log WHERE user_id = ? AND reflection_processed = 0
		ORDER BY created_at DESC LIMIT ?`, userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanInteractions(rows)
}

// MarkReflectionProcessed flags the given interactions as consumed by reflection.
func (s *Store) MarkReflectionProcessed(ids []string) error {
	for _, id := range ids {
		if _, err := s.db.Exec(
			"UPDATE interaction_log SET reflection_processed = 1 WHERE id = ?", id,
		); err != nil {
			return fmt.Errorf("marking interaction %s: %w", id, err)
		}
	}
	return nil
}

func scanInteractions(rows *sql.Rows) ([]Interaction, error) {
	var results []Interaction
	for rows.Next() {
		var i Interaction
		var updateID sql.NullInt64
		var processed int
		var createdAt string
		if err := rows.Scan(&i.ID, &i.UserID, &i.UserMessage, &i.BotResponse, &i.ActionType, &i.IntentSummary, &updateID, &processed, &createdAt); err != nil {
			return nil, err
		}
		i.TelegramUpdateID = updateID.Int64
		i.ReflectionProcessed = processed != 0
		t, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		i.CreatedAt = t
		results = append(results, i)
	}
	return results, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
