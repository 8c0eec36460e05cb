package pubsub

import (
	"time"

	"github.com/agentcore/escrowd/internal/core/domain"
)

func getLockedPayload(event domain.LockedEvent) map[string]interface{} {
	return map[string]interface{}{
		"trade": map[string]interface{}{
			"trade_id":  event.TradeID.String(),
			"buyer":     event.Buyer.Hex(),
			"seller":    event.Seller.Hex(),
			"arbiter":   event.Arbiter.Hex(),
			"amount":    event.Amount,
			"hash_lock": event.HashLock.Hex(),
			"timelock":  event.Timelock,
		},
		"timelock_date": time.Unix(event.Timelock, 0).UTC().Format(time.RFC3339),
	}
}

func getWithdrawnPayload(event domain.WithdrawnEvent) map[string]interface{} {
	return map[string]interface{}{
		"trade": map[string]interface{}{
			"trade_id":  event.TradeID.String(),
			"recipient": event.Recipient.Hex(),
			"method":    string(event.Method),
			"amount":    event.Amount,
		},
	}
}

func getRefundedPayload(event domain.RefundedEvent) map[string]interface{} {
	return map[string]interface{}{
		"trade": map[string]interface{}{
			"trade_id": event.TradeID.String(),
			"buyer":    event.Buyer.Hex(),
			"amount":   event.Amount,
		},
	}
}
