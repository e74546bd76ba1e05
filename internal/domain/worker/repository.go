package worker

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines worker roster persistence. The roster is one logical
// document per organization.
type Repository interface {
	Create(ctx context.Context, w *Worker) error
	GetByID(ctx context.Context, id uuid.UUID) (*Worker, error)
	List(ctx context.Context) ([]*Worker, error)
	ListActive(ctx context.Context) ([]*Worker, error)
	Update(ctx context.Context, w *Worker) error
}
