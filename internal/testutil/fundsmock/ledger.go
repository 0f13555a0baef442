package fundsmock

import (
	"context"

	"pooled-lending/internal/domain/transfer"

	"github.com/shopspring/decimal"
)

// Move is one call observed by Ledger.
type Move struct {
	Kind   string // "transfer" or "pull"
	Asset  string
	From   string
	To     string
	Amount decimal.Decimal
}

// Ledger is a function-backed transfer.Ledger that records successful calls.
// Unset functions succeed.
type Ledger struct {
	TransferFn func(ctx context.Context, asset, from, to string, amount decimal.Decimal) error
	PullFn     func(ctx context.Context, asset, owner, spender, to string, amount decimal.Decimal) error

	Moves []Move
}

var _ transfer.Ledger = (*Ledger)(nil)

func (m *Ledger) Transfer(ctx context.Context, asset, from, to string, amount decimal.Decimal) error {
	if m.TransferFn != nil {
		if err := m.TransferFn(ctx, asset, from, to, amount); err != nil {
			return err
		}
	}
	m.Moves = append(m.Moves, Move{Kind: "transfer", Asset: asset, From: from, To: to, Amount: amount})
	return nil
}

func (m *Ledger) Pull(ctx context.Context, asset, owner, spender, to string, amount decimal.Decimal) error {
	if m.PullFn != nil {
		if err := m.PullFn(ctx, asset, owner, spender, to, amount); err != nil {
			return err
		}
	}
	m.Moves = append(m.Moves, Move{Kind: "pull", Asset: asset, From: owner, To: to, Amount: amount})
	return nil
}
