package balance

import (
	"testing"

	"github.com/holiman/uint256"

	"github.com/congo-pay/dot_balance/internal/chain"
)

func TestNormalizeScalesByDecimals(t *testing.T) {
	got := Normalize(uint256.NewInt(1234500000000), DefaultDecimals)
	if got.String() != "123.45" {
		t.Fatalf("expected 123.45 got %s", got)
	}
	if !Normalize(nil, DefaultDecimals).IsZero() {
		t.Fatalf("nil amount must normalize to zero")
	}
}

func TestNormalizeKeepsPrecisionBeyondFloat(t *testing.T) {
	// 2^53 + 1 planck is not representable as float64.
	raw := new(uint256.Int).Add(new(uint256.Int).Lsh(uint256.NewInt(1), 53), uint256.NewInt(1))
	if got := Normalize(raw, DefaultDecimals).String(); got != "900719.9254740993" {
		t.Fatalf("unexpected %s", got)
	}

	max := new(uint256.Int).Sub(new(uint256.Int).Lsh(uint256.NewInt(1), 128), uint256.NewInt(1))
	if got := Normalize(max, DefaultDecimals).String(); got != "34028236692093846346337460743.1768211455" {
		t.Fatalf("unexpected u128 max %s", got)
	}
}

func TestFromStateTotalIsFreePlusReserved(t *testing.T) {
	state := chain.EmptyAccountState()
	state.Free.SetUint64(1234500000000)
	state.Reserved.SetUint64(5000000000)
	state.Frozen.SetUint64(100000000000)

	res := FromState(state, DefaultDecimals, true)
	if res.Free.String() != "123.45" || res.Reserved.String() != "0.5" || res.Frozen.String() != "10" {
		t.Fatalf("unexpected components %s/%s/%s", res.Free, res.Reserved, res.Frozen)
	}
	if res.Total.String() != "123.95" {
		t.Fatalf("expected total 123.95 got %s", res.Total)
	}
	if !res.Found {
		t.Fatalf("expected found")
	}
}
