package substrate

import (
	"encoding/binary"
	"fmt"

	"github.com/centrifuge/go-substrate-rpc-client/v4/types/codec"
	"github.com/cespare/xxhash/v2"
	"golang.org/x/crypto/blake2b"
)

// Twox128 is the non-cryptographic hasher used for pallet and storage item prefixes.
func Twox128(data []byte) []byte {
	out := make([]byte, 16)
	for i := 0; i < 2; i++ {
		d := xxhash.NewWithSeed(uint64(i))
		_, _ = d.Write(data)
		binary.LittleEndian.PutUint64(out[i*8:], d.Sum64())
	}
	return out
}

// Blake2_128Concat hashes the key with blake2b-128 and appends the key itself.
func Blake2_128Concat(key []byte) []byte {
	h, err := blake2b.New(16, nil)
	if err != nil {
		// blake2b only rejects sizes outside 1..64 or oversized keys.
		panic(err)
	}
	h.Write(key)
	return append(h.Sum(nil), key...)
}

// StorageKey builds the key of a map entry under pallet/item.
func StorageKey(pallet, item string, hashedKey []byte) []byte {
	key := make([]byte, 0, 32+len(hashedKey))
	key = append(key, Twox128([]byte(pallet))...)
	key = append(key, Twox128([]byte(item))...)
	return append(key, hashedKey...)
}

// SystemAccountKey is the storage key of System.Account for id.
func SystemAccountKey(id AccountID) []byte {
	return StorageKey("System", "Account", Blake2_128Concat(id[:]))
}

// HexEncode renders bytes in the 0x-prefixed form used by JSON-RPC.
func HexEncode(b []byte) string {
	return codec.HexEncodeToString(b)
}

// HexDecode parses a hex string with or without the 0x prefix.
func HexDecode(s string) ([]byte, error) {
	if len(s) >= 2 && s[0] == '0' && s[1] == 'X' {
		s = "0x" + s[2:]
	}
	b, err := codec.HexDecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode hex: %w", err)
	}
	return b, nil
}
