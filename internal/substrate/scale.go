package substrate

import (
	"errors"
	"fmt"

	"github.com/centrifuge/go-substrate-rpc-client/v4/types"
	"github.com/centrifuge/go-substrate-rpc-client/v4/types/codec"
	"github.com/holiman/uint256"

	"github.com/congo-pay/dot_balance/internal/chain"
)

// accountInfoLen covers nonce, consumers, providers, sufficients (u32 each)
// followed by free, reserved, frozen and flags (u128 each).
const accountInfoLen = 4*4 + 4*16

// ErrShortAccountInfo is returned when the storage value is truncated.
var ErrShortAccountInfo = errors.New("account info too short")

// accountInfo mirrors frame_system AccountInfo with pallet_balances AccountData
// in its current frozen/flags shape.
type accountInfo struct {
	Nonce       types.U32
	Consumers   types.U32
	Providers   types.U32
	Sufficients types.U32
	Data        struct {
		Free     types.U128
		Reserved types.U128
		Frozen   types.U128
		Flags    types.U128
	}
}

// DecodeAccountInfo decodes a SCALE-encoded frame_system AccountInfo.
func DecodeAccountInfo(b []byte) (chain.AccountState, error) {
	if len(b) < accountInfoLen {
		return chain.AccountState{}, fmt.Errorf("%w: got %d bytes, want %d", ErrShortAccountInfo, len(b), accountInfoLen)
	}
	var info accountInfo
	if err := codec.Decode(b, &info); err != nil {
		return chain.AccountState{}, fmt.Errorf("decode account info: %w", err)
	}
	return chain.AccountState{
		Nonce:    uint32(info.Nonce),
		Free:     fromU128(info.Data.Free),
		Reserved: fromU128(info.Data.Reserved),
		Frozen:   fromU128(info.Data.Frozen),
		Flags:    fromU128(info.Data.Flags),
	}, nil
}

// EncodeAccountInfo is the inverse of DecodeAccountInfo. Consumer, provider
// and sufficient reference counts are written as zero.
func EncodeAccountInfo(state chain.AccountState) []byte {
	info := accountInfo{Nonce: types.U32(state.Nonce)}
	info.Data.Free = toU128(state.Free)
	info.Data.Reserved = toU128(state.Reserved)
	info.Data.Frozen = toU128(state.Frozen)
	info.Data.Flags = toU128(state.Flags)
	b, err := codec.Encode(info)
	if err != nil {
		// Fixed-width integers always encode.
		panic(err)
	}
	return b
}

func fromU128(v types.U128) *uint256.Int {
	if v.Int == nil {
		return new(uint256.Int)
	}
	return uint256.MustFromBig(v.Int)
}

func toU128(v *uint256.Int) types.U128 {
	if v == nil {
		v = new(uint256.Int)
	}
	return types.NewU128(*v.ToBig())
}
