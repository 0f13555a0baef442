package position

import (
	"context"
	"time"
)

type Repository interface {
	// Create assigns the next id and stores p.
	Create(ctx context.Context, p *Position) error
	GetByID(ctx context.Context, id uint64) (*Position, error)
	GetByIDForUpdate(ctx context.Context, id uint64) (*Position, error)
	// ListByLoanID returns positions of the loan ordered by id.
	ListByLoanID(ctx context.Context, loanID uint64) ([]Position, error)
	// MarkWithdrawn flips withdrawn false→true stamping at; it reports false
	// when the row was already withdrawn.
	MarkWithdrawn(ctx context.Context, id uint64, at time.Time) (bool, error)
}
