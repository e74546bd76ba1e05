package workitem

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines persistence for work items, their parent/child links,
// and their review records. The three maps form one logical document and are
// read-modify-written as a whole.
type Repository interface {
	Create(ctx context.Context, item *WorkItem) error
	GetByID(ctx context.Context, id uuid.UUID) (*WorkItem, error)
	List(ctx context.Context) ([]*WorkItem, error)
	Update(ctx context.Context, item *WorkItem) error

	// Link records child under parent. A child has at most one parent;
	// the graph is a forest by construction.
	Link(ctx context.Context, parentID, childID uuid.UUID) error
	Children(ctx context.Context, parentID uuid.UUID) ([]uuid.UUID, error)
	ParentOf(ctx context.Context, childID uuid.UUID) (uuid.UUID, bool, error)

	SetReview(ctx context.Context, id uuid.UUID, rec ReviewRecord) error
	Review(ctx context.Context, id uuid.UUID) (ReviewRecord, error)
}
