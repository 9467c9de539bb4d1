package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// SaveNote stores a note (or URL knowledge entry) in the archive.
func (s *Store) SaveNote(n Note) error {
	tags, err := json.Marshal(orEmptyTags(n.Tags))
	if err != nil {
		return fmt.Errorf("encoding tags: %w", err)
	}
	meta := n.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	metadata, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encoding metadata: %w", err)
	}
	createdAt := n.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}
	_, err = s.db.Exec(`
		INSERT INTO archive (id, user_id, content, tags, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		n.ID, n.UserID, n.Content, string(tags), string(metadata),
		createdAt.UTC().Format(time.RFC3339),
	)
	return err
}

// SearchArchive returns notes whose content or tags contain any word of the
// query (length > 1), newest first. A zero since time disables the window.
func (s *Store) SearchArchive(userID int64, query string, since time.Time, limit int) ([]Note, error) {
	words := searchWords(query)

	clauses := []string{"user_id = ?"}
	args := []any{userID}
	if !since.IsZero() {
		clauses = append(clauses, "created_at >= ?")
		args = append(args, since.UTC().Format(time.RFC3339))
	}
	if len(words) > 0 {
		var terms []string
		for _, w := range words {
			terms = append(terms, "(content LIKE ? OR tags LIKE ?)")
			pat := "%" + w + "%"
			args = append(args, pat, pat)
		}
		clauses = append(clauses, "("+strings.Join(terms, " OR ")+")")
	}
	args = append(args, limit)

	rows, err := s.db.Query(`
		SELECT id, user_id, content, tags, metadata, created_at
		FROM archive WHERE `+strings.Join(clauses, " AND ")+`
		ORDER BY created_at DESC LIMIT ?`, args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanNotes(rows)
}

// RecentNotes returns the user's latest archive entries, newest first.
func (s *Store) RecentNotes(userID int64, limit int) ([]Note, error) {
	rows, err := s.db.Query(`
		SELECT id, user_id, content, tags, metadata, created_at
		FROM archive WHERE user_id = ?
		ORDER BY created_at DESC LIMIT ?`, userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanNotes(rows)
}

func scanNotes(rows *sql.Rows) ([]Note, error) {
	var results []Note
	for rows.Next() {
		var n Note
		var tags, metadata, createdAt string
		if err := rows.Scan(&n.ID, &n.UserID, &n.Content, &tags, &metadata, &createdAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(tags), &n.Tags); err != nil {
			return nil, fmt.Errorf("decoding tags: %w", err)
		}
		if err := json.Unmarshal([]byte(metadata), &n.Metadata); err != nil {
			return nil, fmt.Errorf("decoding metadata: %w", err)
		}
		t, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		n.CreatedAt = t
		results = append(results, n)
	}
	return results, rows.Err()
}

func searchWords(query string) []string {
	var words []string
	for _, w := range strings.Fields(strings.ToLower(query)) {
		if len([]rune(w)) > 1 {
			words = append(words, w)
		}
	}
	return words
}

func orEmptyTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
