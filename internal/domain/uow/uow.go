package uow

import (
	"context"

	"pooled-lending/internal/domain/loan"
	"pooled-lending/internal/domain/position"
	"pooled-lending/internal/domain/registry"
	"pooled-lending/internal/domain/transfer"
)

// Repos is the set of stores bound to one transaction.
type Repos struct {
	Loans     loan.Repository
	Positions position.Repository
	Registry  registry.Repository
	Funds     transfer.Ledger

	// Savepoint runs fn against the same transaction under a savepoint; an
	// error from fn undoes fn's writes only.
	Savepoint func(ctx context.Context, fn func(r Repos) error) error
}

type UnitOfWork interface {
	// plain tx
	WithinTx(ctx context.Context, fn func(r Repos) error) error
	// convenience: lock loan first, then pass it in
	WithinLoanTx(ctx context.Context, loanID uint64, fn func(r Repos, l *loan.Loan) error) error
}
