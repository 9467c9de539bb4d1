package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// CreateTask inserts a new task and returns it with its generated timestamps.
func (s *Store) CreateTask(t Task) (Task, error) {
	if t.Status == "" {
		t.Status = TaskPending
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = s.now()
	}
	var dueAt sql.NullString
	if !t.DueAt.IsZero() {
		dueAt = sql.NullString{String: t.DueAt.UTC().Format(time.RFC3339), Valid: true}
	}
	var recurrence sql.NullString
	if t.Recurrence != "" {
		recurrence = sql.NullString{String: t.Recurrence, Valid: true}
	}
	_, err := s.db.Exec(`
		INSERT INTO tasks (id, user_id, title, due_at, priority, status, recurrence, effort, category, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.Title, dueAt, t.Priority, t.Status, recurrence, t.Effort, t.Category,
		t.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return Task{}, err
	}
	return t, nil
}

// GetTask fetches a single task by ID.
func (s *Store) GetTask(id string) (Task, error) {
	row := s.db.QueryRow(`
		SELECT id, user_id, title, due_at, priority, status, recurrence, effort, category, created_at
		FROM tasks WHERE id = ?`, id,
	)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return Task{}, ErrNotFound
	}
	return t, err
}

// PendingTasks returns the user's open tasks ordered by priority descending.
func (s *Store) PendingTasks(userID int64, limit int) ([]Task, error) {
	rows, err := s.db.Query(`
		SELECT id, user_id, title, due_at, priority, status, recurrence, effort, category, created_at
		FROM tasks WHERE user_id = ? AND status = ?
		ORDER BY priority DESC, created_at ASC LIMIT ?`,
		userID, TaskPending, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTasks(rows)
}

// OverdueTasks returns open tasks whose due date has passed.
func (s *Store) OverdueTasks(userID int64) ([]Task, error) {
	rows, err := s.db.Query(`
		SELECT id, user_id, title, due_at, priority, status, recurrence, effort, category, created_at
		FROM tasks WHERE user_id = ? AND status = ? AND due_at IS NOT NULL AND due_at < ?
		ORDER BY due_at ASC`,
		userID, TaskPending, s.now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTasks(rows)
}

// SetTaskStatus updates the status of a single task.
func (s *Store) SetTaskStatus(id, status string) error {
	res, err := s.db.Exec("UPDATE tasks SET status = ? WHERE id = ?", status, id)
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

// CompleteAllTasks marks every open task of the user as completed and
// returns how many were affected.
func (s *Store) CompleteAllTasks(userID int64) (int, error) {
	res, err := s.db.Exec(
		"UPDATE tasks SET status = ? WHERE user_id = ? AND status = ?",
		TaskCompleted, userID, TaskPending,
	)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// UpdateTask applies the non-nil fields of upd to the task.
func (s *Store) UpdateTask(id string, upd TaskUpdate) error {
	set := ""
	var args []any
	if upd.Title != nil {
		set += "title = ?"
		args = append(args, *upd.Title)
	}
	if upd.DueAt != nil {
		if set != "" {
			set += ", "
		}
		set += "due_at = ?"
		args = append(args, upd.DueAt.UTC().Format(time.RFC3339))
	}
	if upd.Priority != nil {
		if set != "" {
			set += ", "
		}
		set += "priority = ?"
		args = append(args, *upd.Priority)
	}
	if set == "" {
		return nil
	}
	args = append(args, id)
	res, err := s.db.Exec("UPDATE tasks SET "+set+" WHERE id = ?", args...)
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

// DeleteTask removes a task by ID.
func (s *Store) DeleteTask(id string) error {
	res, err := s.db.Exec("DELETE FROM tasks WHERE id = ?", id)
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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (Task, error) {
	var t Task
	var dueAt, recurrence sql.NullString
	var createdAt string
	if err := row.Scan(&t.ID, &t.UserID, &t.Title, &dueAt, &t.Priority, &t.Status, &recurrence, &t.Effort, &t.Category, &createdAt); err != nil {
		return Task{}, err
	}
	if dueAt.Valid {
		d, err := time.Parse(time.RFC3339, dueAt.String)
		if err != nil {
			return Task{}, fmt.Errorf("parsing due_at: %w", err)
		}
		t.DueAt = d
	}
	t.Recurrence = recurrence.String
	c, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return Task{}, fmt.Errorf("parsing created_at: %w", err)
	}
	t.CreatedAt = c
	return t, nil
}

func scanTasks(rows *sql.Rows) ([]Task, error) {
	var results []Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, t)
	}
	return results, rows.Err()
}
