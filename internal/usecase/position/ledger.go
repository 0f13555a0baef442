package position

import (
	"context"
	"errors"
	"time"

	domain "pooled-lending/internal/domain/position"
	apperrors "pooled-lending/internal/errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Ledger owns position records. Bind it to a transaction-scoped repository
// when it takes part in a larger operation.
type Ledger struct{ repo domain.Repository }

func NewLedger(r domain.Repository) *Ledger { return &Ledger{repo: r} }

type CreateInput struct {
	Owner  string
	Asset  string
	Amount decimal.Decimal
	LoanID uint64
	Yield  domain.YieldParams
}

// Create stores a new position. Ids are dense from 1.
func (l *Ledger) Create(ctx context.Context, in CreateInput) (*domain.Position, error) {
	if in.Owner == "" || in.Asset == "" || in.LoanID == 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "position owner, asset and loan are required")
	}
	if !in.Amount.IsPositive() {
		return nil, apperrors.ErrZeroAmount
	}
	p := &domain.Position{
		Owner:  in.Owner,
		Asset:  in.Asset,
		LoanID: in.LoanID,
		Amount: in.Amount,
		Yield:  in.Yield,
	}
	if err := l.repo.Create(ctx, p); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternal, err)
	}
	return p, nil
}

// MarkWithdrawn settles the position exactly once, stamping at.
func (l *Ledger) MarkWithdrawn(ctx context.Context, id uint64, at time.Time) error {
	if _, err := l.Get(ctx, id); err != nil {
		return err
	}
	ok, err := l.repo.MarkWithdrawn(ctx, id, at)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternal, err)
	}
	if !ok {
		return apperrors.WithMessagef(apperrors.ErrAlreadySettled, "position %d is already settled", id)
	}
	return nil
}

func (l *Ledger) Get(ctx context.Context, id uint64) (*domain.Position, error) {
	if id == 0 {
		return nil, apperrors.ErrPositionNotFound
	}
	p, err := l.repo.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err)
	}
	return p, nil
}

// Exists succeeds for a stored id and fails NotFound otherwise.
func (l *Ledger) Exists(ctx context.Context, id uint64) (bool, error) {
	if _, err := l.Get(ctx, id); err != nil {
		return false, err
	}
	return true, nil
}

// ListByLoan returns the funding history of a loan in creation order.
func (l *Ledger) ListByLoan(ctx context.Context, loanID uint64) ([]domain.Position, error) {
	ps, err := l.repo.ListByLoanID(ctx, loanID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternal, err)
	}
	return ps, nil
}

func notFoundOr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.ErrPositionNotFound
	}
	return apperrors.Wrap(apperrors.ErrInternal, err)
}
