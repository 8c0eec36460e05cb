package inmemory

import (
	"sync"

	"github.com/agentcore/escrowd/internal/core/domain"
	"github.com/agentcore/escrowd/internal/core/ports"
)

type tradeInmemoryStore struct {
	trades map[domain.TradeID]domain.Trade
	locker *sync.Mutex
}

type RepoManager struct {
	tradeStore *tradeInmemoryStore

	tradeRepository domain.TradeRepository
}

func NewRepoManager() ports.RepoManager {
	tradeStore := &tradeInmemoryStore{
		trades: map[domain.TradeID]domain.Trade{},
		locker: &sync.Mutex{},
	}

	return &RepoManager{
		tradeStore:      tradeStore,
		tradeRepository: NewTradeRepositoryImpl(tradeStore),
	}
}

func (d *RepoManager) TradeRepository() domain.TradeRepository {
	return d.tradeRepository
}

func (d *RepoManager) Close() {}
