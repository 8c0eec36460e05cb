package inmemory

import (
	"context"

	"github.com/agentcore/escrowd/internal/core/domain"
)

type tradeRepositoryImpl struct {
	store *tradeInmemoryStore
}

// NewTradeRepositoryImpl returns a new inmemory TradeRepository implementation.
func NewTradeRepositoryImpl(store *tradeInmemoryStore) domain.TradeRepository {
	return &tradeRepositoryImpl{store}
}

func (r *tradeRepositoryImpl) AddTrade(
	_ context.Context, trade *domain.Trade,
) error {
	r.store.locker.Lock()
	defer r.store.locker.Unlock()

	if _, ok := r.store.trades[trade.ID]; ok {
		return domain.ErrDuplicateTradeId
	}
	r.store.trades[trade.ID] = copyTrade(*trade)
	return nil
}

func (r *tradeRepositoryImpl) GetTrade(
	_ context.Context, tradeID domain.TradeID,
) (*domain.Trade, error) {
	r.store.locker.Lock()
	defer r.store.locker.Unlock()

	return r.getTrade(tradeID)
}

func (r *tradeRepositoryImpl) GetAllTrades(
	_ context.Context, filter domain.TradeFilter, page *domain.Page,
) ([]*domain.Trade, error) {
	r.store.locker.Lock()
	defer r.store.locker.Unlock()

	return domain.PaginateTrades(r.getAllTrades(), filter, page), nil
}

func (r *tradeRepositoryImpl) GetTradesWithPendingPayout(
	_ context.Context,
) ([]*domain.Trade, error) {
	r.store.locker.Lock()
	defer r.store.locker.Unlock()

	trades := make([]*domain.Trade, 0)
	for _, trade := range r.getAllTrades() {
		if trade.IsPayoutPending() {
			trades = append(trades, trade)
		}
	}
	domain.SortTrades(trades)
	return trades, nil
}

func (r *tradeRepositoryImpl) UpdateTrade(
	_ context.Context,
	tradeID domain.TradeID,
	updateFn func(t *domain.Trade) (*domain.Trade, error),
) error {
	r.store.locker.Lock()
	defer r.store.locker.Unlock()

	currentTrade, err := r.getTrade(tradeID)
	if err != nil {
		return err
	}

	updatedTrade, err := updateFn(currentTrade)
	if err != nil {
		return err
	}

	r.store.trades[tradeID] = copyTrade(*updatedTrade)
	return nil
}

func (r *tradeRepositoryImpl) getTrade(
	tradeID domain.TradeID,
) (*domain.Trade, error) {
	trade, ok := r.store.trades[tradeID]
	if !ok {
		return nil, domain.ErrTradeNotFound
	}
	tr := copyTrade(trade)
	return &tr, nil
}

func (r *tradeRepositoryImpl) getAllTrades() []*domain.Trade {
	allTrades := make([]*domain.Trade, 0, len(r.store.trades))
	for _, trade := range r.store.trades {
		tr := copyTrade(trade)
		allTrades = append(allTrades, &tr)
	}
	return allTrades
}

// copyTrade returns a deep copy so that stored trades can be mutated only
// through UpdateTrade.
func copyTrade(trade domain.Trade) domain.Trade {
	if trade.Resolution != nil {
		resolution := *trade.Resolution
		resolution.Signers = append(
			[]domain.Address(nil), trade.Resolution.Signers...,
		)
		trade.Resolution = &resolution
	}
	return trade
}
