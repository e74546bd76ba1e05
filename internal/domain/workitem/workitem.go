package workitem

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Status represents work item status.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in-progress"
	StatusDone       Status = "done"
	StatusBlocked    Status = "blocked"
)

// ReviewStatus represents the review state of a work item, tracked
// independently of its execution status.
type ReviewStatus string

const (
	ReviewNone     ReviewStatus = "none"
	ReviewAwaiting ReviewStatus = "awaiting"
	ReviewApproved ReviewStatus = "approved"
	ReviewRejected ReviewStatus = "rejected"
)

// Tool identifies the execution seed chosen by the parser. Final routing
// is decided by the dispatcher.
type Tool string

const (
	ToolLog       Tool = "log"
	ToolBroadcast Tool = "broadcast"
)

const (
	// DefaultDomain is assigned when a parsed line carries no domain tag.
	DefaultDomain = "general"
	// DefaultOwner is assigned when a parsed line names no owner.
	DefaultOwner = "Executive Desk"
	// DefaultPriority applies when the priority token is absent or malformed.
	DefaultPriority = 3
)

var (
	ErrNotFound       = errors.New("work item not found")
	ErrParentNotFound = errors.New("parent work item not found")
)

// WorkItem is a unit of delegable work. Items are never deleted; they are
// terminally marked done or left blocked.
type WorkItem struct {
	ID               uuid.UUID `json:"id"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	Domain           string    `json:"domain"`
	Priority         int       `json:"priority"`
	Owner            string    `json:"owner"`
	Status           Status    `json:"status"`
	Tool             Tool      `json:"tool"`
	RequiresApproval bool      `json:"requiresApproval"`
	Approved         bool      `json:"approved"`
	EventID          uuid.UUID `json:"eventId,omitempty"`
	EventType        string    `json:"eventType,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// Draft is a parsed work item before it is inserted and assigned an id.
type Draft struct {
	Title       string
	Description string
	Domain      string
	Owner       string
	Priority    int
	Tool        Tool
}

// New materializes a draft into a WorkItem.
func New(d Draft, now time.Time) *WorkItem {
	return &WorkItem{
		ID:          uuid.New(),
		Title:       d.Title,
		Description: d.Description,
		Domain:      d.Domain,
		Priority:    ClampPriority(d.Priority),
		Owner:       d.Owner,
		Status:      StatusTodo,
		Tool:        d.Tool,
		CreatedAt:   now.UTC(),
		UpdatedAt:   now.UTC(),
	}
}

// ClampPriority forces a priority into the 1..5 ordinal range (1 highest).
func ClampPriority(p int) int {
	if p < 1 {
		return 1
	}
	if p > 5 {
		return 5
	}
	return p
}

// Open reports whether the item still needs work.
func (w *WorkItem) Open() bool {
	return w.Status != StatusDone
}

// ReviewRecord tracks the review of one work item. It only transitions via
// explicit review calls, never automatically.
type ReviewRecord struct {
	Status     ReviewStatus `json:"status"`
	ReviewedBy string       `json:"reviewedBy,omitempty"`
	Comments   string       `json:"comments,omitempty"`
	Timestamp  time.Time    `json:"timestamp"`
}

// TreeNode is one node in the open-task forest, parent before children.
type TreeNode struct {
	Item     *WorkItem    `json:"item"`
	Review   ReviewStatus `json:"review"`
	Children []*TreeNode  `json:"children,omitempty"`
}
