package ports

import "github.com/agentcore/escrowd/internal/core/domain"

// Notifier pushes trade updates to live connected observers. Implementations
// must not block the caller.
type Notifier interface {
	NotifyTradeStatus(trade domain.Trade, oldStatus domain.TradeStatus)
}

type noopNotifier struct{}

// NoopNotifier returns a Notifier that drops every update.
func NoopNotifier() Notifier {
	return noopNotifier{}
}

func (noopNotifier) NotifyTradeStatus(domain.Trade, domain.TradeStatus) {}
