package tasks

import "context"

// Store defines the persistence interface for tasks.
type Store interface {
	List(ctx context.Context) ([]Task, error)
	Get(ctx context.Context, id int64) (Task, error)
	Create(ctx context.Context, d Draft) (Task, error)
	Update(ctx context.Context, id int64, p Patch) (Task, error)
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int, error)
	Close() error
}
