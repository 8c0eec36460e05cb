package ports

import (
	"context"
	"errors"

	"github.com/agentcore/escrowd/internal/core/domain"
)

var (
	// ErrAlreadyEscrowed is returned when a deposit for the trade was already
	// taken in custody.
	ErrAlreadyEscrowed = errors.New("deposit already escrowed for trade")
	// ErrEscrowNotFound is returned when no deposit is held for the trade.
	ErrEscrowNotFound = errors.New("no deposit escrowed for trade")
	// ErrAlreadyTransferred is returned when the deposit of the trade has
	// already been paid out.
	ErrAlreadyTransferred = errors.New("deposit already transferred")
	// ErrAmountMismatch is returned when a payout does not move the exact
	// escrowed amount.
	ErrAmountMismatch = errors.New("payout amount does not match deposit")
)

// Treasury holds the deposits of locked trades and pays them out.
type Treasury interface {
	// Escrow takes custody of the deposit of a trade.
	Escrow(
		ctx context.Context, tradeID domain.TradeID,
		depositor domain.Address, amount uint64,
	) error
	// Void drops a deposit that was never bound to a stored trade.
	Void(ctx context.Context, tradeID domain.TradeID) error
	// Transfer pays the whole deposit of the trade to the payout recipient.
	// It is idempotent per trade: a second transfer returns
	// ErrAlreadyTransferred.
	Transfer(ctx context.Context, payout domain.Payout) error
	// Balance returns the amount paid out to the address so far.
	Balance(ctx context.Context, addr domain.Address) (uint64, error)
	// EscrowedBalance returns the amount still held for the trade.
	EscrowedBalance(ctx context.Context, tradeID domain.TradeID) (uint64, error)
	// Totals returns the aggregated custody figures.
	Totals(ctx context.Context) (TreasuryTotals, error)
	Close() error
}

// TreasuryTotals are the aggregated figures of a treasury. At any time
// Deposited == Held + PaidOut.
type TreasuryTotals struct {
	Deposited uint64
	Held      uint64
	PaidOut   uint64
}
