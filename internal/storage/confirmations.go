package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// ConfirmationTTL bounds how long a pending confirmation stays consumable.
const ConfirmationTTL = 120 * time.Second

// SaveConfirmation upserts the user's pending confirmation, silently
// replacing any unconsumed one. Only one confirmation may be pending per
// user at a time.
func (s *Store) SaveConfirmation(userID int64, actionName string, actionData map[string]any) error {
	data, err := json.Marshal(actionData)
	if err != nil {
		return fmt.Errorf("encoding action data: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO pending_confirmations (user_id, action_name, action_data, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			action_name = excluded.action_name,
			action_data = excluded.action_data,
			created_at = excluded.created_at`,
		userID, actionName, string(data), s.now().UTC().Format(time.RFC3339),
	)
	return err
}

// TakeConfirmation reads and unconditionally deletes the user's pending
// confirmation, then returns it only if it is still within the TTL. The
// delete happens before the expiry check on purpose: an expired confirmation
// must not resurface on a later call. ErrNotFound covers both "nothing
// pending" and "expired".
func (s *Store) TakeConfirmation(userID int64) (Confirmation, error) {
	var c Confirmation
	var data, createdAt string
	err := s.db.QueryRow(`
		SELECT user_id, action_name, action_data, created_at
		FROM pending_confirmations WHERE user_id = ?`, userID,
	).Scan(&c.UserID, &c.ActionName, &data, &createdAt)
	if err == sql.ErrNoRows {
		return Confirmation{}, ErrNotFound
	}
	if err != nil {
		return Confirmation{}, err
	}

	if _, err := s.db.Exec("DELETE FROM pending_confirmations WHERE user_id = ?", userID); err != nil {
		return Confirmation{}, fmt.Errorf("consuming confirmation: %w", err)
	}

	t, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return Confirmation{}, fmt.Errorf("parsing created_at: %w", err)
	}
	c.CreatedAt = t

	if s.now().Sub(t) > ConfirmationTTL {
		return Confirmation{}, ErrNotFound
	}

	if err := json.Unmarshal([]byte(data), &c.ActionData); err != nil {
		return Confirmation{}, fmt.Errorf("decoding action data: %w", err)
	}
	return c, nil
}

// CancelConfirmation deletes the user's pending confirmation, if any.
func (s *Store) CancelConfirmation(userID int64) error {
	_, err := s.db.Exec("DELETE FROM pending_confirmations WHERE user_id = ?", userID)
	return err
}
