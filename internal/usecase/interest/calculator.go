// Package interest computes compounded repayment obligations in 18-decimal
// fixed point. Every division truncates, so results are reproducible bit for bit.
package interest

import (
	"math/big"

	"github.com/shopspring/decimal"
)

const (
	// SecondsPerYear is the 365-day year used to derive compounding periods.
	SecondsPerYear = 365 * 24 * 60 * 60
	bpsDenominator = 10_000
)

// Scale is the fixed-point unit S = 1e18.
var Scale = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// GrowthPerPeriod returns S + rateBps*S/10000/n.
func GrowthPerPeriod(rateBps, periodsPerYear uint64) *big.Int {
	rate := new(big.Int).Mul(new(big.Int).SetUint64(rateBps), Scale)
	rate.Quo(rate, big.NewInt(bpsDenominator))
	rate.Quo(rate, new(big.Int).SetUint64(periodsPerYear))
	return rate.Add(rate, Scale)
}

// Factor returns growth^periods in fixed point by repeated scaled multiplication.
func Factor(rateBps, periodsPerYear, periods uint64) *big.Int {
	growth := GrowthPerPeriod(rateBps, periodsPerYear)
	factor := new(big.Int).Set(Scale)
	for i := uint64(0); i < periods; i++ {
		factor.Mul(factor, growth)
		factor.Quo(factor, Scale)
	}
	return factor
}

// CompoundPeriods returns principal*growth^periods/S. A zero periodsPerYear
// yields the principal unchanged.
func CompoundPeriods(principal *big.Int, rateBps, periodsPerYear, periods uint64) *big.Int {
	if periodsPerYear == 0 {
		return new(big.Int).Set(principal)
	}
	out := new(big.Int).Mul(principal, Factor(rateBps, periodsPerYear, periods))
	return out.Quo(out, Scale)
}

// CompoundInterest compounds principal n times a year for a whole number of years.
func CompoundInterest(principal *big.Int, rateBps, periodsPerYear, years uint64) *big.Int {
	return CompoundPeriods(principal, rateBps, periodsPerYear, periodsPerYear*years)
}

// WholePeriods is the number of complete compounding periods inside
// durationSeconds; any partial period is dropped.
func WholePeriods(durationSeconds, periodsPerYear uint64) uint64 {
	d := new(big.Int).SetUint64(durationSeconds)
	d.Mul(d, new(big.Int).SetUint64(periodsPerYear))
	d.Quo(d, big.NewInt(SecondsPerYear))
	return d.Uint64()
}

// Repayment is the decimal form of CompoundPeriods over WholePeriods(duration).
// Fractional digits of principal are truncated first.
func Repayment(principal decimal.Decimal, rateBps, periodsPerYear, durationSeconds uint64) decimal.Decimal {
	p := principal.Truncate(0).BigInt()
	out := CompoundPeriods(p, rateBps, periodsPerYear, WholePeriods(durationSeconds, periodsPerYear))
	return decimal.NewFromBigInt(out, 0)
}

// CompoundPeriodsWithin is CompoundPeriods that stops as soon as the result
// passes limit. Growth is never below S, so the running value only rises and
// the work stays bounded by the size of limit.
func CompoundPeriodsWithin(principal, limit *big.Int, rateBps, periodsPerYear, periods uint64) (*big.Int, bool) {
	if periodsPerYear == 0 || principal.Sign() == 0 {
		out := new(big.Int).Set(principal)
		return out, out.Cmp(limit) <= 0
	}
	growth := GrowthPerPeriod(rateBps, periodsPerYear)
	factor := new(big.Int).Set(Scale)
	out := new(big.Int)
	for i := uint64(0); ; i++ {
		out.Mul(principal, factor)
		out.Quo(out, Scale)
		if out.Cmp(limit) > 0 {
			return nil, false
		}
		if i == periods {
			return out, true
		}
		factor.Mul(factor, growth)
		factor.Quo(factor, Scale)
	}
}

// RepaymentWithin is Repayment bounded by limit; ok is false when the
// obligation would exceed it.
func RepaymentWithin(principal, limit decimal.Decimal, rateBps, periodsPerYear, durationSeconds uint64) (decimal.Decimal, bool) {
	p := principal.Truncate(0).BigInt()
	out, ok := CompoundPeriodsWithin(p, limit.Truncate(0).BigInt(), rateBps, periodsPerYear, WholePeriods(durationSeconds, periodsPerYear))
	if !ok {
		return decimal.Zero, false
	}
	return decimal.NewFromBigInt(out, 0), true
}
