package sigverify

// Verifier recovers signer addresses from signatures. It holds no state and
// is safe for concurrent use.
type Verifier struct{}

// NewVerifier returns a Verifier.
func NewVerifier() Verifier {
	return Verifier{}
}

// Recover returns the address whose key produced sig over digest.
func (Verifier) Recover(digest Hash, sig []byte) (Address, error) {
	return Recover(digest, sig)
}
