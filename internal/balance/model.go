package balance

import (
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"

	"github.com/congo-pay/dot_balance/internal/chain"
)

// DefaultDecimals is the Polkadot scaling exponent: 1 DOT = 10^10 planck.
const DefaultDecimals int32 = 10

// Result is an account balance in human-scaled units.
//
// Values are exact decimals: raw ledger integers are scaled without passing
// through float64, so balances above 2^53 smallest units keep every digit.
type Result struct {
	Free     decimal.Decimal
	Reserved decimal.Decimal
	Frozen   decimal.Decimal
	// Total is Free + Reserved. Frozen is informational and not summed.
	Total decimal.Decimal
	// Found is false for accounts with no recorded state.
	Found bool
	// Block is the finalized block observed before the query.
	Block uint64
}

// Normalize scales a raw smallest-unit amount by 10^-decimals.
func Normalize(raw *uint256.Int, decimals int32) decimal.Decimal {
	if raw == nil || raw.IsZero() {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(raw.ToBig(), -decimals)
}

// FromState builds a Result from a raw account record.
func FromState(state chain.AccountState, decimals int32, found bool) Result {
	free := Normalize(state.Free, decimals)
	reserved := Normalize(state.Reserved, decimals)
	return Result{
		Free:     free,
		Reserved: reserved,
		Frozen:   Normalize(state.Frozen, decimals),
		Total:    free.Add(reserved),
		Found:    found,
	}
}
