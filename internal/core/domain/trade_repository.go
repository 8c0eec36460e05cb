package domain

import (
	"context"
	"sort"
)

// TradeFilter narrows the trades returned by a listing. Zero values match
// everything.
type TradeFilter struct {
	Status      *TradeStatus
	Participant *Address
}

// Match returns whether the trade satisfies the filter.
func (f TradeFilter) Match(t *Trade) bool {
	if f.Status != nil && t.Status != *f.Status {
		return false
	}
	if f.Participant != nil && !t.IsParty(*f.Participant) {
		return false
	}
	return true
}

// TradeRepository is the abstraction for any kind of database intended to
// persist Trades.
type TradeRepository interface {
	// AddTrade inserts a new trade. It fails with ErrDuplicateTradeId if a
	// trade with the same id already exists.
	AddTrade(ctx context.Context, trade *Trade) error
	// GetTrade returns the trade with the given id, or ErrTradeNotFound.
	GetTrade(ctx context.Context, tradeID TradeID) (*Trade, error)
	// GetAllTrades returns the trades matching filter, sorted by lock time,
	// optionally paginated.
	GetAllTrades(
		ctx context.Context, filter TradeFilter, page *Page,
	) ([]*Trade, error)
	// GetTradesWithPendingPayout returns the resolved trades whose payout
	// has not been settled yet.
	GetTradesWithPendingPayout(ctx context.Context) ([]*Trade, error)
	// UpdateTrade allows to commit multiple changes to the same trade in a
	// transactional way. Concurrent calls for the same trade are
	// serialized, so updateFn always observes the latest committed state.
	UpdateTrade(
		ctx context.Context,
		tradeID TradeID,
		updateFn func(t *Trade) (*Trade, error),
	) error
}

// SortTrades orders trades by lock time, then by id.
func SortTrades(trades []*Trade) {
	sort.SliceStable(trades, func(i, j int) bool {
		if trades[i].LockedAt != trades[j].LockedAt {
			return trades[i].LockedAt < trades[j].LockedAt
		}
		return trades[i].ID.String() < trades[j].ID.String()
	})
}

// PaginateTrades filters, sorts and paginates the given trades.
func PaginateTrades(
	trades []*Trade, filter TradeFilter, page *Page,
) []*Trade {
	res := make([]*Trade, 0, len(trades))
	for _, t := range trades {
		if filter.Match(t) {
			res = append(res, t)
		}
	}
	SortTrades(res)
	if page == nil {
		return res
	}
	start, end := page.Apply(len(res))
	return res[start:end]
}
