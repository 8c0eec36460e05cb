package escrow

import (
	"errors"

	"github.com/agentcore/escrowd/internal/core/domain"
)

type Stats struct {
	NumTrades        int
	NumPendingPayout int
	TradesByStatus   map[domain.TradeStatus]int
	TotalDeposited   uint64
	TotalEscrowed    uint64
	TotalPaidOut     uint64
}

var domainErrors = []error{
	domain.ErrZeroAmount,
	domain.ErrInvalidAddress,
	domain.ErrDuplicateTradeId,
	domain.ErrInvalidTradeID,
	domain.ErrInvalidLockDuration,
	domain.ErrInvalidState,
	domain.ErrInvalidPreimage,
	domain.ErrMissingRequiredSignature,
	domain.ErrInvalidRecipient,
	domain.ErrInsufficientDistinctSignatures,
	domain.ErrTimelockNotExpired,
	domain.ErrTradeNotFound,
	domain.ErrInvalidSignatureEncoding,
}

func isDomainError(err error) bool {
	for _, e := range domainErrors {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}
