package engine

// Event types emitted when assignments change.
const (
	EventAssignmentCreated    = "assignment_created"
	EventAssignmentReassigned = "assignment_reassigned"
	EventAssignmentPostponed  = "assignment_postponed"
	EventAssignmentCompleted  = "assignment_completed"
	EventAssignmentStatus     = "assignment_status"
)

// Event describes a change to one assignment.
type Event struct {
	Type         string `json:"type"`
	HouseholdID  int64  `json:"household_id"`
	AssignmentID int64  `json:"assignment_id"`
	TaskID       int64  `json:"task_id"`
	MemberID     int64  `json:"member_id"`
	Status       string `json:"status,omitempty"`
}

// Notifier receives assignment events. Notify must not block.
type Notifier interface {
	Notify(Event)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Event)

func (f NotifierFunc) Notify(ev Event) { f(ev) }

type NopNotifier struct{}

func (NopNotifier) Notify(Event) {}
