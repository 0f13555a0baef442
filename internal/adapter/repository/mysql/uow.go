package mysql

import (
	"context"

	"pooled-lending/internal/domain/loan"
	"pooled-lending/internal/domain/uow"

	"gorm.io/gorm"
)

type GormUoW struct{ db *gorm.DB }

func NewGormUoW(db *gorm.DB) *GormUoW { return &GormUoW{db: db} }

// Repos returns the stores bound to db (a root handle or a transaction).
func Repos(db *gorm.DB) uow.Repos {
	return uow.Repos{
		Loans:     &LoanRepository{db: db},
		Positions: &PositionRepository{db: db},
		Registry:  &RegistryRepository{db: db},
		Funds:     &BalanceLedger{db: db},
		Savepoint: func(ctx context.Context, fn func(r uow.Repos) error) error {
			// gorm turns a nested Transaction into SAVEPOINT / ROLLBACK TO
			return db.WithContext(ctx).Transaction(func(sp *gorm.DB) error {
				return fn(Repos(sp))
			})
		},
	}
}

func (u *GormUoW) WithinTx(ctx context.Context, fn func(r uow.Repos) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(Repos(tx))
	})
}

func (u *GormUoW) WithinLoanTx(ctx context.Context, loanID uint64, fn func(r uow.Repos, l *loan.Loan) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := Repos(tx)
		// lock the loan row up-front to prevent races
		l, err := r.Loans.GetByIDForUpdate(ctx, loanID)
		if err != nil {
			return err
		}
		return fn(r, l)
	})
}
