package crypto

import (
	"errors"
	"strings"
	"testing"
)

func TestDeriveAddressRoundTrip(t *testing.T) {
	addr := DeriveAddress(TerraPrefix, "alice")
	if !strings.HasPrefix(addr.String(), "terra1") {
		t.Fatalf("unexpected encoding: %s", addr)
	}
	decoded, err := DecodeAddress(addr.String())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.String() != addr.String() || len(decoded.Bytes()) != 20 {
		t.Fatalf("round trip mismatch: %s vs %s", decoded, addr)
	}
	if DeriveAddress(TerraPrefix, "alice").String() != addr.String() {
		t.Fatalf("derivation must be deterministic")
	}
	contract := DeriveContractAddress(TerraPrefix, "hub")
	if len(contract.Bytes()) != 32 {
		t.Fatalf("contract address must be 32 bytes")
	}
}

func TestBech32Validator(t *testing.T) {
	v := Bech32Validator{Prefix: TerraPrefix}
	good := DeriveAddress(TerraPrefix, "bob").String()
	if got, err := v.ValidateAddress(good); err != nil || got != good {
		t.Fatalf("expected valid address, got %q %v", got, err)
	}
	if _, err := v.ValidateAddress(strings.ToUpper(good)); !errors.Is(err, ErrInvalidAddress) {
		t.Fatalf("upper-case address should be rejected, got %v", err)
	}
	if _, err := v.ValidateAddress("not-an-address"); !errors.Is(err, ErrInvalidAddress) {
		t.Fatalf("garbage should be rejected, got %v", err)
	}
	other := DeriveAddress("osmo", "bob").String()
	if _, err := v.ValidateAddress(other); !errors.Is(err, ErrWrongPrefix) {
		t.Fatalf("foreign prefix should be rejected, got %v", err)
	}
	if _, err := (Bech32Validator{}).ValidateAddress(other); err != nil {
		t.Fatalf("prefix-less validator should accept %s: %v", other, err)
	}
}
