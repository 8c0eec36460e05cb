package domain

// SignatureVerifier recovers the address that signed a digest.
type SignatureVerifier interface {
	Recover(digest Hash, signature []byte) (Address, error)
}
