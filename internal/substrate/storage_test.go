package substrate

import (
	"encoding/hex"
	"testing"
)

func TestTwox128KnownPrefixes(t *testing.T) {
	cases := map[string]string{
		"System":  "26aa394eea5630e07c48ae0c9558cef7",
		"Account": "b99d880ec681799c0cf30e8886371da9",
	}
	for in, want := range cases {
		if got := hex.EncodeToString(Twox128([]byte(in))); got != want {
			t.Fatalf("Twox128(%q) = %s want %s", in, got, want)
		}
	}
}

func TestSystemAccountKeyAlice(t *testing.T) {
	id, _, err := DecodeAddress(aliceAddress)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := "0x26aa394eea5630e07c48ae0c9558cef7b99d880ec681799c0cf30e8886371da9" +
		"de1e86a9a8c739864cf3cc5ec2bea59f" + aliceHex
	if got := HexEncode(SystemAccountKey(id)); got != want {
		t.Fatalf("unexpected key\n got %s\nwant %s", got, want)
	}
}

func TestHexDecodeAcceptsOptionalPrefix(t *testing.T) {
	for _, in := range []string{"0xdead", "0XDEAD", "dead"} {
		b, err := HexDecode(in)
		if err != nil {
			t.Fatalf("%q: %v", in, err)
		}
		if hex.EncodeToString(b) != "dead" {
			t.Fatalf("%q: got %x", in, b)
		}
	}
	if _, err := HexDecode("0xzz"); err == nil {
		t.Fatalf("expected error for invalid hex")
	}
}
