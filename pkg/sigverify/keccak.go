package sigverify

import (
	"hash"

	"golang.org/x/crypto/sha3"
)

// signedMessagePrefix is prepended to every 32-byte digest before signing
// and recovery.
const signedMessagePrefix = "\x19Ethereum Signed Message:\n32"

type keccakState interface {
	hash.Hash
	Read([]byte) (int, error)
}

// Keccak256 returns the legacy keccak256 hash of the concatenation of data.
func Keccak256(data ...[]byte) (h Hash) {
	sha := sha3.NewLegacyKeccak256().(keccakState)
	for _, b := range data {
		_, _ = sha.Write(b)
	}
	_, _ = sha.Read(h[:])
	return h
}

// PrefixedHash wraps a digest with the signed message prefix, producing the
// hash that is actually signed.
func PrefixedHash(digest Hash) Hash {
	return Keccak256([]byte(signedMessagePrefix), digest[:])
}
