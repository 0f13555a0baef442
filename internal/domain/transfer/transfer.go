package transfer

import (
	"context"

	"github.com/shopspring/decimal"
)

// Ledger is the value-transfer collaborator. Implementations fail with
// apperrors.ErrInsufficientBalance / ErrInsufficientAllowance and must leave
// no partial movement behind when they fail.
type Ledger interface {
	// Transfer moves amount of asset held by from to to.
	Transfer(ctx context.Context, asset, from, to string, amount decimal.Decimal) error
	// Pull moves amount from owner to to, consuming owner's allowance to spender.
	Pull(ctx context.Context, asset, owner, spender, to string, amount decimal.Decimal) error
}
