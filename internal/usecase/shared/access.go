// Package shared holds the checks every mutating ledger usecase runs first:
// role membership and the non-reentrant guard.
package shared

import (
	"context"
	"errors"

	"pooled-lending/internal/domain/authz"
	apperrors "pooled-lending/internal/errors"
	"pooled-lending/pkg/guard"

	"gorm.io/gorm"
)

// Require fails ErrForbidden unless principal holds role.
func Require(ctx context.Context, o authz.Oracle, principal string, role authz.Role) error {
	if principal == "" {
		return apperrors.WithMessage(apperrors.ErrForbidden, "caller principal is required")
	}
	ok, err := o.HasRole(ctx, principal, role)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternal, err)
	}
	if !ok {
		return apperrors.WithMessagef(apperrors.ErrForbidden, "%s lacks role %s", principal, role)
	}
	return nil
}

// Enter acquires g for the duration of one mutating operation.
func Enter(ctx context.Context, g *guard.Guard) (context.Context, func(), error) {
	ctx, release, err := g.Enter(ctx)
	if errors.Is(err, guard.ErrReentrant) {
		return ctx, release, apperrors.ErrReentrantCall
	}
	if err != nil {
		return ctx, release, apperrors.Wrap(apperrors.ErrInternal, err)
	}
	return ctx, release, nil
}

// LoanErr maps store errors to the ledger taxonomy, passing AppErrors through.
func LoanErr(err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.ErrLoanNotFound
	}
	return apperrors.Wrap(apperrors.ErrInternal, err)
}
