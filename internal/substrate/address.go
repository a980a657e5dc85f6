package substrate

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/base58"
	"golang.org/x/crypto/blake2b"
)

const (
	accountIDLen   = 32
	checksumLen    = 2
	ss58PrefixSalt = "SS58PRE"
)

var (
	// ErrInvalidAddress is returned for identifiers that do not decode to an account id.
	ErrInvalidAddress = errors.New("invalid ss58 address")
	// ErrChecksumMismatch is returned when the embedded checksum does not match.
	ErrChecksumMismatch = errors.New("ss58 checksum mismatch")
)

// AccountID is a 32-byte public key.
type AccountID [accountIDLen]byte

// DecodeAddress decodes an SS58 address into its account id and network prefix.
func DecodeAddress(address string) (AccountID, uint16, error) {
	var id AccountID
	raw := base58.Decode(address)
	if len(raw) == 0 {
		return id, 0, fmt.Errorf("%w: not base58", ErrInvalidAddress)
	}

	prefix, prefixLen, err := decodePrefix(raw)
	if err != nil {
		return id, 0, err
	}
	if len(raw) != prefixLen+accountIDLen+checksumLen {
		return id, 0, fmt.Errorf("%w: unexpected length %d", ErrInvalidAddress, len(raw))
	}

	body := raw[:prefixLen+accountIDLen]
	sum := ss58Checksum(body)
	if !bytes.Equal(sum[:checksumLen], raw[len(body):]) {
		return id, 0, ErrChecksumMismatch
	}

	copy(id[:], raw[prefixLen:prefixLen+accountIDLen])
	return id, prefix, nil
}

// EncodeAddress renders an account id with the given network prefix.
func EncodeAddress(id AccountID, prefix uint16) string {
	var body []byte
	switch {
	case prefix < 64:
		body = append(body, byte(prefix))
	default:
		first := byte(((prefix & 0x00fc) >> 2) | 0x40)
		second := byte((prefix >> 8) | ((prefix & 0x0003) << 6))
		body = append(body, first, second)
	}
	body = append(body, id[:]...)
	sum := ss58Checksum(body)
	return base58.Encode(append(body, sum[:checksumLen]...))
}

func decodePrefix(raw []byte) (uint16, int, error) {
	switch {
	case raw[0] < 64:
		return uint16(raw[0]), 1, nil
	case raw[0] < 128:
		if len(raw) < 2 {
			return 0, 0, fmt.Errorf("%w: truncated prefix", ErrInvalidAddress)
		}
		lower := (raw[0]<<2)&0xfc | raw[1]>>6
		upper := raw[1] & 0x3f
		return uint16(lower) | uint16(upper)<<8, 2, nil
	default:
		return 0, 0, fmt.Errorf("%w: reserved prefix %d", ErrInvalidAddress, raw[0])
	}
}

func ss58Checksum(body []byte) [blake2b.Size]byte {
	payload := make([]byte, 0, len(ss58PrefixSalt)+len(body))
	payload = append(payload, ss58PrefixSalt...)
	payload = append(payload, body...)
	return blake2b.Sum512(payload)
}
