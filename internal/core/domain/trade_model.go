package domain

import (
	"encoding/hex"
	"fmt"

	"github.com/agentcore/escrowd/pkg/sigverify"
)

// Address identifies a trade party.
type Address = sigverify.Address

// Hash is a keccak256 digest.
type Hash = sigverify.Hash

// TradeStatus represents the different statuses that a trade can assume.
type TradeStatus int

// WithdrawalMethod tells which path released the deposit of a trade.
type WithdrawalMethod string

// TradeID is the caller chosen identifier of a trade.
type TradeID [TradeIDLength]byte

// Trade is the data structure representing an escrowed deposit.
type Trade struct {
	ID         TradeID
	Buyer      Address
	Seller     Address
	Arbiter    Address
	Amount     uint64
	HashLock   Hash
	Timelock   int64
	Status     TradeStatus
	LockedAt   int64
	Resolution *Resolution
}

// Resolution records how a trade left the Locked status.
type Resolution struct {
	Method    WithdrawalMethod
	Recipient Address
	Preimage  Hash
	Signers   []Address
	Timestamp int64
	// PayoutSettled is set once the treasury confirmed the outbound
	// transfer of the deposit to Recipient.
	PayoutSettled   bool
	PayoutSettledAt int64
}

// LockArgs are the inputs of a lock operation.
type LockArgs struct {
	TradeID      TradeID
	Buyer        Address
	Seller       Address
	Arbiter      Address
	HashLock     Hash
	LockDuration int64
	Amount       uint64
}

// Payout is the outbound transfer that follows a terminal transition.
type Payout struct {
	TradeID   TradeID
	Recipient Address
	Amount    uint64
	Method    WithdrawalMethod
}

// LockedEvent is emitted when a trade is locked.
type LockedEvent struct {
	TradeID  TradeID
	Buyer    Address
	Seller   Address
	Arbiter  Address
	Amount   uint64
	HashLock Hash
	Timelock int64
}

// WithdrawnEvent is emitted when a trade is completed via preimage or
// arbitration.
type WithdrawnEvent struct {
	TradeID   TradeID
	Recipient Address
	Method    WithdrawalMethod
	Amount    uint64
}

// RefundedEvent is emitted when a trade is refunded to the buyer.
type RefundedEvent struct {
	TradeID TradeID
	Buyer   Address
	Amount  uint64
}

// ParseTradeID decodes a 0x prefixed (or bare) 32-byte hex string.
func ParseTradeID(s string) (TradeID, error) {
	var id TradeID
	b, err := sigverify.DecodeHex(s)
	if err != nil {
		return id, fmt.Errorf("%w: %s", ErrInvalidTradeID, err)
	}
	if len(b) != TradeIDLength {
		return id, fmt.Errorf(
			"%w: must be %d bytes, got %d", ErrInvalidTradeID, TradeIDLength, len(b),
		)
	}
	copy(id[:], b)
	return id, nil
}

func (id TradeID) IsZero() bool {
	return id == TradeID{}
}

func (id TradeID) Bytes() []byte {
	return id[:]
}

func (id TradeID) String() string {
	return "0x" + hex.EncodeToString(id[:])
}

func (id TradeID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *TradeID) UnmarshalText(text []byte) error {
	tradeID, err := ParseTradeID(string(text))
	if err != nil {
		return err
	}
	*id = tradeID
	return nil
}

func (s TradeStatus) String() string {
	if name, ok := tradeStatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(%d)", int(s))
}

// IsTerminal returns whether no further transition is possible.
func (s TradeStatus) IsTerminal() bool {
	return s == TradeStatusCompleted || s == TradeStatusRefunded
}

func (s TradeStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *TradeStatus) UnmarshalText(text []byte) error {
	status, err := ParseTradeStatus(string(text))
	if err != nil {
		return err
	}
	*s = status
	return nil
}

// ParseTradeStatus returns the status matching the given name.
func ParseTradeStatus(name string) (TradeStatus, error) {
	for status, n := range tradeStatusNames {
		if n == name {
			return status, nil
		}
	}
	return 0, fmt.Errorf("unknown trade status %q", name)
}
