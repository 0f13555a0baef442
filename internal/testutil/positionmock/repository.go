package positionmock

import (
	"context"
	"time"

	domain "pooled-lending/internal/domain/position"
)

// Repo is a function-backed mock that satisfies domain.Repository.
// Unset lookups return context.Canceled; unset writes are no-ops.
type Repo struct {
	CreateFn           func(ctx context.Context, p *domain.Position) error
	GetByIDFn          func(ctx context.Context, id uint64) (*domain.Position, error)
	GetByIDForUpdateFn func(ctx context.Context, id uint64) (*domain.Position, error)
	ListByLoanIDFn     func(ctx context.Context, loanID uint64) ([]domain.Position, error)
	MarkWithdrawnFn    func(ctx context.Context, id uint64, at time.Time) (bool, error)
}

var _ domain.Repository = (*Repo)(nil)

func (m *Repo) Create(ctx context.Context, p *domain.Position) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, p)
	}
	return nil
}

func (m *Repo) GetByID(ctx context.Context, id uint64) (*domain.Position, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	return nil, context.Canceled
}

func (m *Repo) GetByIDForUpdate(ctx context.Context, id uint64) (*domain.Position, error) {
	if m.GetByIDForUpdateFn != nil {
		return m.GetByIDForUpdateFn(ctx, id)
	}
	return nil, context.Canceled
}

func (m *Repo) ListByLoanID(ctx context.Context, loanID uint64) ([]domain.Position, error) {
	if m.ListByLoanIDFn != nil {
		return m.ListByLoanIDFn(ctx, loanID)
	}
	return nil, context.Canceled
}

func (m *Repo) MarkWithdrawn(ctx context.Context, id uint64, at time.Time) (bool, error) {
	if m.MarkWithdrawnFn != nil {
		return m.MarkWithdrawnFn(ctx, id, at)
	}
	return true, nil
}
