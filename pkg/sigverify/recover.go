package sigverify

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
)

const (
	legacyV27 = 27
	legacyV28 = legacyV27 + 1
)

var (
	// ErrInvalidSignatureEncoding is returned when a signature is malformed
	// or does not recover to any public key.
	ErrInvalidSignatureEncoding = errors.New("invalid signature encoding")
	// ErrInvalidPrivateKey ...
	ErrInvalidPrivateKey = errors.New("invalid private key")
)

// Recover returns the address that produced sig over the prefixed version of
// digest. The signature must be 65 bytes in R||S||V form with v in
// {0, 1, 27, 28}.
func Recover(digest Hash, sig []byte) (Address, error) {
	pubkey, err := RecoverPublicKey(PrefixedHash(digest), sig)
	if err != nil {
		return Address{}, err
	}
	return PubkeyToAddress(pubkey), nil
}

// RecoverPublicKey recovers the public key from a R||S||V signature over the
// given raw hash.
func RecoverPublicKey(hash Hash, sig []byte) (*btcec.PublicKey, error) {
	if len(sig) != SignatureLength {
		return nil, fmt.Errorf(
			"%w: signature must be %d bytes long, got %d",
			ErrInvalidSignatureEncoding, SignatureLength, len(sig),
		)
	}
	v := sig[SignatureLength-1]
	if v < legacyV27 {
		v += legacyV27
	}
	if v != legacyV27 && v != legacyV28 {
		return nil, fmt.Errorf(
			"%w: v=%d is not %d or %d",
			ErrInvalidSignatureEncoding, sig[SignatureLength-1], legacyV27, legacyV28,
		)
	}

	compact := [SignatureLength]byte{}
	compact[0] = v
	copy(compact[1:], sig[:SignatureLength-1])

	pubkey, _, err := ecdsa.RecoverCompact(compact[:], hash[:])
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSignatureEncoding, err)
	}
	return pubkey, nil
}

// Sign produces a R||S||V signature with v in {27, 28} over the prefixed
// version of digest.
func Sign(digest Hash, key *btcec.PrivateKey) ([]byte, error) {
	if key == nil {
		return nil, ErrInvalidPrivateKey
	}
	hash := PrefixedHash(digest)
	sig, err := ecdsa.SignCompact(key, hash[:], false)
	if err != nil {
		return nil, err
	}
	v := sig[0]
	copy(sig, sig[1:])
	sig[SignatureLength-1] = v
	return sig, nil
}

// PubkeyToAddress derives the address of the given public key.
func PubkeyToAddress(pubkey *btcec.PublicKey) Address {
	pubBytes := pubkey.SerializeUncompressed()
	hash := Keccak256(pubBytes[1:])
	return BytesToAddress(hash[12:])
}

// NewPrivateKey generates a fresh secp256k1 private key.
func NewPrivateKey() (*btcec.PrivateKey, error) {
	return btcec.NewPrivateKey()
}

// PrivateKeyFromHex parses a 0x prefixed (or bare) hex encoded private key.
func PrivateKeyFromHex(s string) (*btcec.PrivateKey, error) {
	d, err := decodeHex(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPrivateKey, err)
	}
	if len(d) != 32 {
		return nil, ErrInvalidPrivateKey
	}
	key := new(btcec.PrivateKey)
	if overflow := key.Key.SetByteSlice(d); overflow || key.Key.IsZero() {
		return nil, ErrInvalidPrivateKey
	}
	return key, nil
}

// PrivateKeyToHex serializes a private key as 0x prefixed hex.
func PrivateKeyToHex(key *btcec.PrivateKey) string {
	return "0x" + hex.EncodeToString(key.Serialize())
}
