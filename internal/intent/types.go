package intent

// Action types produced by the classifier.
const (
	ActionTask     = "task"
	ActionCalendar = "calendar"
	ActionNote     = "note"
	ActionQuery    = "query"
	ActionChat     = "chat"
)

// Task sub-actions.
const (
	TaskCreate      = "create"
	TaskComplete    = "complete"
	TaskCompleteAll = "complete_all"
	TaskDelete      = "delete"
	TaskEdit        = "edit"
	TaskSchedule    = "schedule"
)

// Classification is the classifier's verdict on a message.
type Classification struct {
	ActionType string  `json:"action_type"`
	Confidence float64 `json:"confidence"`
	Summary    string  `json:"summary"`
}

// TaskPayload carries the details of a task action. For edits, the New*
// fields hold the replacement values and nil means unchanged.
type TaskPayload struct {
	Action      string   `json:"action"`
	Title       string   `json:"title"`
	DueDate     string   `json:"due_date,omitempty"`
	Priority    int      `json:"priority,omitempty"`
	Category    string   `json:"category,omitempty"`
	Recurrence  string   `json:"recurrence,omitempty"`
	Effort      string   `json:"effort,omitempty"`
	NewTitle    *string  `json:"new_title,omitempty"`
	NewDueDate  *string  `json:"new_due_date,omitempty"`
	NewPriority *int     `json:"new_priority,omitempty"`
	Slots       []string `json:"slots,omitempty"`
}

// CalendarPayload describes an event to schedule.
type CalendarPayload struct {
	Summary     string `json:"summary"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time,omitempty"`
	Location    string `json:"location,omitempty"`
	Description string `json:"description,omitempty"`
}

// NotePayload is a piece of information to archive.
type NotePayload struct {
	Content string   `json:"content"`
	Tags    []string `json:"tags,omitempty"`
}

// QueryPayload is a question plus the data sources needed to answer it.
type QueryPayload struct {
	Query         string   `json:"query"`
	ContextNeeded []string `json:"context_needed,omitempty"`
	TargetDate    string   `json:"target_date,omitempty"` // YYYY-MM-DD, empty when not date-specific
	ArchiveSince  string   `json:"archive_since,omitempty"`
}

// Intent is the classifier's full output. Exactly one payload matching
// Classification.ActionType is populated; chat reuses the query payload.
type Intent struct {
	Classification Classification   `json:"classification"`
	Task           *TaskPayload     `json:"task,omitempty"`
	Calendar       *CalendarPayload `json:"calendar,omitempty"`
	Note           *NotePayload     `json:"note,omitempty"`
	Query          *QueryPayload    `json:"query,omitempty"`
}

// Fallback is the Intent used when classification fails: the message is
// treated as a low-confidence query so the turn still produces an answer.
func Fallback(text string) Intent {
	return Intent{
		Classification: Classification{
			ActionType: ActionQuery,
			Confidence: 0.5,
			Summary:    "Fallback due to error",
		},
		Query: &QueryPayload{Query: text},
	}
}
