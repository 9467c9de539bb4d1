package tasks

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/naborsk/adjutant/internal/storage"
)

const matchPoolSize = 50

// CreateInput carries classifier-extracted task fields into Create. DueDate
// uses the classifier's string forms understood by ParseDue.
type CreateInput struct {
	Title      string
	DueDate    string
	Priority   int
	Recurrence string
	Effort     string
	Category   string
}

// Service implements task operations on top of the store.
type Service struct {
	store *storage.Store
	loc   *time.Location
	now   func() time.Time
	newID func() string
}

// NewService creates a task service resolving relative dates in loc.
func NewService(store *storage.Store, loc *time.Location) *Service {
	return &Service{
		store: store,
		loc:   loc,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// Create inserts a new pending task.
func (s *Service) Create(userID int64, in CreateInput) (storage.Task, error) {
	title := in.Title
	if title == "" {
		title = "Untitled Task"
	}
	task := storage.Task{
		ID:         s.newID(),
		UserID:     userID,
		Title:      title,
		Priority:   in.Priority,
		Recurrence: in.Recurrence,
		Effort:     in.Effort,
		Category:   in.Category,
	}
	if due, ok := ParseDue(in.DueDate, s.now(), s.loc); ok {
		task.DueAt = due
	} else if in.DueDate != "" {
		slog.Warn("unparseable due date, creating task without one", "due_date", in.DueDate)
	}
	return s.store.CreateTask(task)
}

// FindDuplicate fuzzy-matches the title against the user's open tasks.
func (s *Service) FindDuplicate(userID int64, title string) (storage.Task, bool, error) {
	pending, err := s.store.PendingTasks(userID, matchPoolSize)
	if err != nil {
		return storage.Task{}, false, err
	}
	match, ok := Match(pending, title)
	return match, ok, nil
}

// Complete resolves titleQuery against open tasks and marks the match
// completed. Completing a recurring task spawns the next pending occurrence,
// offset by the recurrence interval from the completed due date.
func (s *Service) Complete(userID int64, titleQuery string) (storage.Task, error) {
	pending, err := s.store.PendingTasks(userID, matchPoolSize)
	if err != nil {
		return storage.Task{}, err
	}
	match, ok := Match(pending, titleQuery)
	if !ok {
		return storage.Task{}, storage.ErrNotFound
	}

	if err := s.store.SetTaskStatus(match.ID, storage.TaskCompleted); err != nil {
		return storage.Task{}, fmt.Errorf("completing task: %w", err)
	}

	if match.Recurrence != "" && !match.DueAt.IsZero() {
		next := match
		next.ID = s.newID()
		next.Status = storage.TaskPending
		next.DueAt = NextOccurrence(match.DueAt, match.Recurrence)
		next.CreatedAt = time.Time{}
		if _, err := s.store.CreateTask(next); err != nil {
			slog.Error("failed to spawn next recurring task", "task", match.Title, "error", err)
		}
	}

	return match, nil
}

// CompleteAll marks every open task completed and returns the count.
func (s *Service) CompleteAll(userID int64) (int, error) {
	return s.store.CompleteAllTasks(userID)
}

// Delete resolves titleQuery against open tasks and deletes the match.
func (s *Service) Delete(userID int64, titleQuery string) (storage.Task, error) {
	pending, err := s.store.PendingTasks(userID, matchPoolSize)
	if err != nil {
		return storage.Task{}, err
	}
	match, ok := Match(pending, titleQuery)
	if !ok {
		return storage.Task{}, storage.ErrNotFound
	}
	if err := s.store.DeleteTask(match.ID); err != nil {
		return storage.Task{}, err
	}
	return match, nil
}

// EditInput carries replacement values for Edit. Nil means unchanged.
type EditInput struct {
	NewTitle    *string
	NewDueDate  *string
	NewPriority *int
}

// Edit resolves titleQuery against open tasks and applies the changes.
func (s *Service) Edit(userID int64, titleQuery string, in EditInput) (storage.Task, error) {
	pending, err := s.store.PendingTasks(userID, matchPoolSize)
	if err != nil {
		return storage.Task{}, err
	}
	match, ok := Match(pending, titleQuery)
	if !ok {
		return storage.Task{}, storage.ErrNotFound
	}

	upd := storage.TaskUpdate{
		Title:    in.NewTitle,
		Priority: in.NewPriority,
	}
	if in.NewDueDate != nil {
		if due, ok := ParseDue(*in.NewDueDate, s.now(), s.loc); ok {
			upd.DueAt = &due
		} else {
			slog.Warn("unparseable new due date, leaving unchanged", "due_date", *in.NewDueDate)
		}
	}
	if err := s.store.UpdateTask(match.ID, upd); err != nil {
		return storage.Task{}, err
	}
	return s.store.GetTask(match.ID)
}

// Pending lists the user's open tasks, highest priority first.
func (s *Service) Pending(userID int64, limit int) ([]storage.Task, error) {
	return s.store.PendingTasks(userID, limit)
}

// Overdue lists open tasks whose due date has passed.
func (s *Service) Overdue(userID int64) ([]storage.Task, error) {
	return s.store.OverdueTasks(userID)
}

// FindMatch resolves titleQuery against open tasks without mutating anything.
func (s *Service) FindMatch(userID int64, titleQuery string) (storage.Task, error) {
	pending, err := s.store.PendingTasks(userID, matchPoolSize)
	if err != nil {
		return storage.Task{}, err
	}
	match, ok := Match(pending, titleQuery)
	if !ok {
		return storage.Task{}, storage.ErrNotFound
	}
	return match, nil
}
