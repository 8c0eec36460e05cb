package domain

import (
	"errors"

	"github.com/agentcore/escrowd/pkg/sigverify"
)

var (
	// ErrZeroAmount is returned when locking a trade without value.
	ErrZeroAmount = errors.New("amount must be greater than zero")
	// ErrInvalidAddress is returned when a trade party is the zero address
	// or collides with another party.
	ErrInvalidAddress = errors.New("invalid party address")
	// ErrDuplicateTradeId is returned when locking a trade id already used.
	ErrDuplicateTradeId = errors.New("trade id already used")
	// ErrInvalidTradeID is returned for the all-zero trade id.
	ErrInvalidTradeID = errors.New("invalid trade id")
	// ErrInvalidLockDuration is returned when the lock duration is not
	// strictly positive or exceeds the allowed range.
	ErrInvalidLockDuration = errors.New("invalid lock duration")
	// ErrInvalidState is returned by any resolution attempted on a trade that
	// is not locked.
	ErrInvalidState = errors.New("trade is not in locked state")
	// ErrInvalidPreimage is returned when the preimage does not hash to the
	// trade hash lock.
	ErrInvalidPreimage = errors.New("preimage does not match hash lock")
	// ErrMissingRequiredSignature is returned when the preimage path is not
	// signed by exactly buyer and seller.
	ErrMissingRequiredSignature = errors.New(
		"both buyer and seller signatures are required",
	)
	// ErrInvalidRecipient is returned when a dispute names a recipient other
	// than buyer or seller.
	ErrInvalidRecipient = errors.New("recipient must be either buyer or seller")
	// ErrInsufficientDistinctSignatures is returned when a dispute is not
	// signed by at least two distinct trade parties.
	ErrInsufficientDistinctSignatures = errors.New(
		"at least 2 distinct party signatures are required",
	)
	// ErrTimelockNotExpired is returned when refunding before the deadline.
	ErrTimelockNotExpired = errors.New("timelock not expired yet")
	// ErrTradeNotFound is returned when the trade id was never locked.
	ErrTradeNotFound = errors.New("trade not found")
	// ErrInvalidSignatureEncoding is returned for malformed signatures.
	ErrInvalidSignatureEncoding = sigverify.ErrInvalidSignatureEncoding
)
