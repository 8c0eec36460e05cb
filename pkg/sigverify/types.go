package sigverify

import (
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	// AddressLength is the size in bytes of a principal address.
	AddressLength = 20
	// HashLength is the size in bytes of a keccak256 digest.
	HashLength = 32
	// SignatureLength is the size of a R||S||V recoverable signature.
	SignatureLength = 65
)

// Address identifies a principal. It is derived from the last 20 bytes of
// the keccak256 hash of the uncompressed public key.
type Address [AddressLength]byte

// ParseAddress decodes a 0x prefixed (or bare) hex string into an Address.
func ParseAddress(s string) (Address, error) {
	var a Address
	b, err := decodeHex(s)
	if err != nil {
		return a, fmt.Errorf("invalid address: %w", err)
	}
	if len(b) != AddressLength {
		return a, fmt.Errorf(
			"invalid address: must be %d bytes, got %d", AddressLength, len(b),
		)
	}
	copy(a[:], b)
	return a, nil
}

// BytesToAddress copies the last 20 bytes of b into an Address.
func BytesToAddress(b []byte) Address {
	var a Address
	if len(b) > AddressLength {
		b = b[len(b)-AddressLength:]
	}
	copy(a[AddressLength-len(b):], b)
	return a
}

func (a Address) IsZero() bool {
	return a == Address{}
}

func (a Address) Bytes() []byte {
	return a[:]
}

func (a Address) Hex() string {
	return "0x" + hex.EncodeToString(a[:])
}

func (a Address) String() string {
	return a.Hex()
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.Hex()), nil
}

func (a *Address) UnmarshalText(text []byte) error {
	addr, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = addr
	return nil
}

// Hash is a keccak256 digest.
type Hash [HashLength]byte

// ParseHash decodes a 0x prefixed (or bare) hex string into a Hash.
func ParseHash(s string) (Hash, error) {
	var h Hash
	b, err := decodeHex(s)
	if err != nil {
		return h, fmt.Errorf("invalid hash: %w", err)
	}
	if len(b) != HashLength {
		return h, fmt.Errorf(
			"invalid hash: must be %d bytes, got %d", HashLength, len(b),
		)
	}
	copy(h[:], b)
	return h, nil
}

func (h Hash) IsZero() bool {
	return h == Hash{}
}

func (h Hash) Bytes() []byte {
	return h[:]
}

func (h Hash) Hex() string {
	return "0x" + hex.EncodeToString(h[:])
}

func (h Hash) String() string {
	return h.Hex()
}

func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.Hex()), nil
}

func (h *Hash) UnmarshalText(text []byte) error {
	hash, err := ParseHash(string(text))
	if err != nil {
		return err
	}
	*h = hash
	return nil
}

// DecodeHex decodes an hex string optionally prefixed with 0x.
func DecodeHex(s string) ([]byte, error) {
	return decodeHex(s)
}

func decodeHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	return hex.DecodeString(s)
}
