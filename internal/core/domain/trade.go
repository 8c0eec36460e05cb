package domain

import (
	"fmt"
	"math"
)

// NewTrade validates the given arguments and returns a trade in Locked
// status whose timelock expires lockDuration seconds after now.
func NewTrade(args LockArgs, now int64) (*Trade, error) {
	if args.TradeID.IsZero() {
		return nil, ErrInvalidTradeID
	}
	if args.Amount == 0 {
		return nil, ErrZeroAmount
	}
	if err := validateParties(args.Buyer, args.Seller, args.Arbiter); err != nil {
		return nil, err
	}
	if args.LockDuration <= 0 || now > math.MaxInt64-args.LockDuration {
		return nil, ErrInvalidLockDuration
	}

	return &Trade{
		ID:       args.TradeID,
		Buyer:    args.Buyer,
		Seller:   args.Seller,
		Arbiter:  args.Arbiter,
		Amount:   args.Amount,
		HashLock: args.HashLock,
		Timelock: now + args.LockDuration,
		Status:   TradeStatusLocked,
		LockedAt: now,
	}, nil
}

// WithdrawWithPreimage completes the trade in favour of the seller. The
// preimage must match the hash lock and the two signatures, in any order,
// must come from buyer and seller over PreimageDigest.
func (t *Trade) WithdrawWithPreimage(
	preimage, sigA, sigB []byte, verifier SignatureVerifier, now int64,
) (*Payout, error) {
	if !t.IsLocked() {
		return nil, ErrInvalidState
	}
	if len(preimage) != PreimageLength || HashPreimage(preimage) != t.HashLock {
		return nil, ErrInvalidPreimage
	}

	digest := PreimageDigest(t.ID, preimage)
	signers, err := recoverSigners(verifier, digest, sigA, sigB)
	if err != nil {
		return nil, err
	}

	a, b := signers[0], signers[1]
	signedByBoth := (a == t.Buyer && b == t.Seller) ||
		(a == t.Seller && b == t.Buyer)
	if !signedByBoth {
		return nil, ErrMissingRequiredSignature
	}

	var revealed Hash
	copy(revealed[:], preimage)

	t.Status = TradeStatusCompleted
	t.Resolution = &Resolution{
		Method:    MethodPreimage,
		Recipient: t.Seller,
		Preimage:  revealed,
		Signers:   signers,
		Timestamp: now,
	}
	return t.payout(), nil
}

// ResolveDispute completes the trade in favour of recipient, which must be
// either buyer or seller. At least 2 distinct parties among buyer, seller
// and arbiter must have signed ArbitrationDigest.
func (t *Trade) ResolveDispute(
	recipient Address, sigA, sigB []byte, verifier SignatureVerifier, now int64,
) (*Payout, error) {
	if !t.IsLocked() {
		return nil, ErrInvalidState
	}
	if recipient != t.Buyer && recipient != t.Seller {
		return nil, ErrInvalidRecipient
	}

	digest := ArbitrationDigest(t.ID, recipient)
	signers, err := recoverSigners(verifier, digest, sigA, sigB)
	if err != nil {
		return nil, err
	}

	distinct := make(map[Address]struct{}, len(signers))
	authorized := make([]Address, 0, len(signers))
	for _, signer := range signers {
		if !t.IsParty(signer) {
			continue
		}
		if _, ok := distinct[signer]; ok {
			continue
		}
		distinct[signer] = struct{}{}
		authorized = append(authorized, signer)
	}
	if len(distinct) < MinDistinctSigners {
		return nil, ErrInsufficientDistinctSignatures
	}

	t.Status = TradeStatusCompleted
	t.Resolution = &Resolution{
		Method:    MethodArbitration,
		Recipient: recipient,
		Signers:   authorized,
		Timestamp: now,
	}
	return t.payout(), nil
}

// Refund returns the deposit to the buyer once the timelock expired.
func (t *Trade) Refund(now int64) (*Payout, error) {
	if !t.IsLocked() {
		return nil, ErrInvalidState
	}
	if !t.IsExpired(now) {
		return nil, ErrTimelockNotExpired
	}

	t.Status = TradeStatusRefunded
	t.Resolution = &Resolution{
		Method:    MethodRefund,
		Recipient: t.Buyer,
		Timestamp: now,
	}
	return t.payout(), nil
}

// SettlePayout marks the outbound transfer of a resolved trade as done.
// It returns false if the payout was already settled.
func (t *Trade) SettlePayout(now int64) (bool, error) {
	if !t.Status.IsTerminal() || t.Resolution == nil {
		return false, ErrInvalidState
	}
	if t.Resolution.PayoutSettled {
		return false, nil
	}
	t.Resolution.PayoutSettled = true
	t.Resolution.PayoutSettledAt = now
	return true, nil
}

// Payout returns the outbound transfer of a resolved trade, or nil if the
// trade is still locked.
func (t *Trade) Payout() *Payout {
	if t.Resolution == nil {
		return nil
	}
	return t.payout()
}

func (t *Trade) IsLocked() bool {
	return t.Status == TradeStatusLocked
}

func (t *Trade) IsCompleted() bool {
	return t.Status == TradeStatusCompleted
}

func (t *Trade) IsRefunded() bool {
	return t.Status == TradeStatusRefunded
}

// IsExpired returns whether the timelock deadline has been reached.
func (t *Trade) IsExpired(now int64) bool {
	return now >= t.Timelock
}

// IsParty returns whether addr is buyer, seller or arbiter of the trade.
func (t *Trade) IsParty(addr Address) bool {
	return addr == t.Buyer || addr == t.Seller || addr == t.Arbiter
}

// IsPayoutPending returns whether the trade is resolved but the deposit has
// not been transferred yet.
func (t *Trade) IsPayoutPending() bool {
	return t.Resolution != nil && !t.Resolution.PayoutSettled
}

// LockedEvent returns the event describing the lock of the trade.
func (t *Trade) LockedEvent() LockedEvent {
	return LockedEvent{
		TradeID:  t.ID,
		Buyer:    t.Buyer,
		Seller:   t.Seller,
		Arbiter:  t.Arbiter,
		Amount:   t.Amount,
		HashLock: t.HashLock,
		Timelock: t.Timelock,
	}
}

func (t *Trade) payout() *Payout {
	return &Payout{
		TradeID:   t.ID,
		Recipient: t.Resolution.Recipient,
		Amount:    t.Amount,
		Method:    t.Resolution.Method,
	}
}

func validateParties(buyer, seller, arbiter Address) error {
	if buyer.IsZero() {
		return fmt.Errorf("%w: buyer is zero", ErrInvalidAddress)
	}
	if seller.IsZero() {
		return fmt.Errorf("%w: seller is zero", ErrInvalidAddress)
	}
	if arbiter.IsZero() {
		return fmt.Errorf("%w: arbiter is zero", ErrInvalidAddress)
	}
	if seller == buyer {
		return fmt.Errorf("%w: seller must differ from buyer", ErrInvalidAddress)
	}
	if arbiter == buyer {
		return fmt.Errorf("%w: arbiter must differ from buyer", ErrInvalidAddress)
	}
	if arbiter == seller {
		return fmt.Errorf("%w: arbiter must differ from seller", ErrInvalidAddress)
	}
	return nil
}

func recoverSigners(
	verifier SignatureVerifier, digest Hash, sigs ...[]byte,
) ([]Address, error) {
	signers := make([]Address, 0, len(sigs))
	for _, sig := range sigs {
		signer, err := verifier.Recover(digest, sig)
		if err != nil {
			return nil, err
		}
		signers = append(signers, signer)
	}
	return signers, nil
}
