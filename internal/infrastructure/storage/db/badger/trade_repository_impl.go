package dbbadger

import (
	"context"
	"errors"
	"fmt"

	"github.com/agentcore/escrowd/internal/core/domain"
	"github.com/dgraph-io/badger/v3"
	"github.com/timshannon/badgerhold/v4"
)

// maxConflictRetries bounds the attempts of a transaction that keeps
// conflicting with concurrent writers of the same trade.
const maxConflictRetries = 10

type tradeRepositoryImpl struct {
	store *badgerhold.Store
}

func NewTradeRepositoryImpl(store *badgerhold.Store) domain.TradeRepository {
	return &tradeRepositoryImpl{store}
}

func (r *tradeRepositoryImpl) AddTrade(
	_ context.Context, trade *domain.Trade,
) error {
	return r.withRetry(func(tx *badger.Txn) error {
		if err := r.store.TxInsert(tx, trade.ID.String(), trade); err != nil {
			if errors.Is(err, badgerhold.ErrKeyExists) {
				return domain.ErrDuplicateTradeId
			}
			return err
		}
		return nil
	})
}

func (r *tradeRepositoryImpl) GetTrade(
	_ context.Context, tradeID domain.TradeID,
) (*domain.Trade, error) {
	var trade *domain.Trade
	err := r.store.Badger().View(func(tx *badger.Txn) error {
		t, err := r.getTrade(tx, tradeID)
		if err != nil {
			return err
		}
		trade = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return trade, nil
}

func (r *tradeRepositoryImpl) GetAllTrades(
	_ context.Context, filter domain.TradeFilter, page *domain.Page,
) ([]*domain.Trade, error) {
	trades, err := r.findTrades()
	if err != nil {
		return nil, err
	}
	return domain.PaginateTrades(trades, filter, page), nil
}

func (r *tradeRepositoryImpl) GetTradesWithPendingPayout(
	_ context.Context,
) ([]*domain.Trade, error) {
	trades, err := r.findTrades()
	if err != nil {
		return nil, err
	}

	pending := make([]*domain.Trade, 0)
	for _, trade := range trades {
		if trade.IsPayoutPending() {
			pending = append(pending, trade)
		}
	}
	domain.SortTrades(pending)
	return pending, nil
}

func (r *tradeRepositoryImpl) UpdateTrade(
	_ context.Context,
	tradeID domain.TradeID,
	updateFn func(t *domain.Trade) (*domain.Trade, error),
) error {
	return r.withRetry(func(tx *badger.Txn) error {
		currentTrade, err := r.getTrade(tx, tradeID)
		if err != nil {
			return err
		}

		updatedTrade, err := updateFn(currentTrade)
		if err != nil {
			return err
		}

		return r.store.TxUpdate(tx, tradeID.String(), updatedTrade)
	})
}

func (r *tradeRepositoryImpl) getTrade(
	tx *badger.Txn, tradeID domain.TradeID,
) (*domain.Trade, error) {
	var trade domain.Trade
	if err := r.store.TxGet(tx, tradeID.String(), &trade); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, domain.ErrTradeNotFound
		}
		return nil, err
	}
	return &trade, nil
}

func (r *tradeRepositoryImpl) findTrades() ([]*domain.Trade, error) {
	var trades []domain.Trade
	if err := r.store.Find(&trades, nil); err != nil {
		return nil, err
	}

	res := make([]*domain.Trade, 0, len(trades))
	for i := range trades {
		res = append(res, &trades[i])
	}
	return res, nil
}

// withRetry runs txBody in a read-write transaction and retries it from
// scratch whenever the commit conflicts with a concurrent transaction.
func (r *tradeRepositoryImpl) withRetry(txBody func(tx *badger.Txn) error) error {
	var err error
	for i := 0; i < maxConflictRetries; i++ {
		err = r.store.Badger().Update(txBody)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return fmt.Errorf("too many conflicting transactions: %w", err)
}
