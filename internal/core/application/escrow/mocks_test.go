package escrow_test

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/agentcore/escrowd/internal/core/domain"
	"github.com/agentcore/escrowd/internal/core/ports"
	"github.com/stretchr/testify/mock"
)

type fakeClock struct {
	now int64
}

func newFakeClock(now int64) *fakeClock {
	return &fakeClock{now}
}

func (c *fakeClock) Now() time.Time {
	return time.Unix(atomic.LoadInt64(&c.now), 0)
}

func (c *fakeClock) Advance(seconds int64) {
	atomic.AddInt64(&c.now, seconds)
}

type mockTreasury struct {
	mock.Mock
}

func (m *mockTreasury) Escrow(
	ctx context.Context, tradeID domain.TradeID,
	depositor domain.Address, amount uint64,
) error {
	args := m.Called(ctx, tradeID, depositor, amount)
	return args.Error(0)
}

func (m *mockTreasury) Void(ctx context.Context, tradeID domain.TradeID) error {
	args := m.Called(ctx, tradeID)
	return args.Error(0)
}

func (m *mockTreasury) Transfer(ctx context.Context, payout domain.Payout) error {
	args := m.Called(ctx, payout)
	return args.Error(0)
}

func (m *mockTreasury) Balance(
	ctx context.Context, addr domain.Address,
) (uint64, error) {
	args := m.Called(ctx, addr)
	return uint64(args.Int(0)), args.Error(1)
}

func (m *mockTreasury) EscrowedBalance(
	ctx context.Context, tradeID domain.TradeID,
) (uint64, error) {
	args := m.Called(ctx, tradeID)
	return uint64(args.Int(0)), args.Error(1)
}

func (m *mockTreasury) Totals(ctx context.Context) (ports.TreasuryTotals, error) {
	args := m.Called(ctx)
	var res ports.TreasuryTotals
	if a := args.Get(0); a != nil {
		res = a.(ports.TreasuryTotals)
	}
	return res, args.Error(1)
}

func (m *mockTreasury) Close() error {
	args := m.Called()
	return args.Error(0)
}

type mockRepoManager struct {
	tradeRepository domain.TradeRepository
}

func (m mockRepoManager) TradeRepository() domain.TradeRepository {
	return m.tradeRepository
}

func (m mockRepoManager) Close() {}

type mockTradeRepository struct {
	mock.Mock
}

func (m *mockTradeRepository) AddTrade(
	ctx context.Context, trade *domain.Trade,
) error {
	args := m.Called(ctx, trade)
	return args.Error(0)
}

func (m *mockTradeRepository) GetTrade(
	ctx context.Context, tradeID domain.TradeID,
) (*domain.Trade, error) {
	args := m.Called(ctx, tradeID)
	var res *domain.Trade
	if a := args.Get(0); a != nil {
		res = a.(*domain.Trade)
	}
	return res, args.Error(1)
}

func (m *mockTradeRepository) GetAllTrades(
	ctx context.Context, filter domain.TradeFilter, page *domain.Page,
) ([]*domain.Trade, error) {
	args := m.Called(ctx, filter, page)
	var res []*domain.Trade
	if a := args.Get(0); a != nil {
		res = a.([]*domain.Trade)
	}
	return res, args.Error(1)
}

func (m *mockTradeRepository) GetTradesWithPendingPayout(
	ctx context.Context,
) ([]*domain.Trade, error) {
	args := m.Called(ctx)
	var res []*domain.Trade
	if a := args.Get(0); a != nil {
		res = a.([]*domain.Trade)
	}
	return res, args.Error(1)
}

func (m *mockTradeRepository) UpdateTrade(
	ctx context.Context, tradeID domain.TradeID,
	updateFn func(t *domain.Trade) (*domain.Trade, error),
) error {
	args := m.Called(ctx, tradeID, updateFn)
	return args.Error(0)
}

// hookedTreasury wraps a real treasury and runs onTransfer before every
// transfer, so that tests can re-enter the service or make transfers fail.
type hookedTreasury struct {
	ports.Treasury

	lock       sync.Mutex
	onTransfer func(payout domain.Payout) error
}

func (h *hookedTreasury) setOnTransfer(fn func(payout domain.Payout) error) {
	h.lock.Lock()
	defer h.lock.Unlock()
	h.onTransfer = fn
}

func (h *hookedTreasury) Transfer(ctx context.Context, payout domain.Payout) error {
	h.lock.Lock()
	fn := h.onTransfer
	h.lock.Unlock()

	if fn != nil {
		if err := fn(payout); err != nil {
			return err
		}
	}
	return h.Treasury.Transfer(ctx, payout)
}

type recordingNotifier struct {
	lock    sync.Mutex
	updates []statusUpdate
}

type statusUpdate struct {
	tradeID   domain.TradeID
	oldStatus domain.TradeStatus
	newStatus domain.TradeStatus
}

func (n *recordingNotifier) NotifyTradeStatus(
	trade domain.Trade, oldStatus domain.TradeStatus,
) {
	n.lock.Lock()
	defer n.lock.Unlock()
	n.updates = append(n.updates, statusUpdate{trade.ID, oldStatus, trade.Status})
}

func (n *recordingNotifier) list() []statusUpdate {
	n.lock.Lock()
	defer n.lock.Unlock()
	return append([]statusUpdate{}, n.updates...)
}

type publishedMessage struct {
	topic   string
	message string
}

// chanPubSub delivers every published message to a channel.
type chanPubSub struct {
	messages chan publishedMessage
}

func newChanPubSub() *chanPubSub {
	return &chanPubSub{make(chan publishedMessage, 16)}
}

func (p *chanPubSub) Subscribe(string, string, string) (string, error) {
	return "", nil
}

func (p *chanPubSub) Unsubscribe(string, string) error {
	return nil
}

func (p *chanPubSub) ListSubscriptionsForTopic(string) []ports.Subscription {
	return nil
}

func (p *chanPubSub) Publish(topic string, message string) error {
	p.messages <- publishedMessage{topic, message}
	return nil
}

func (p *chanPubSub) Close() error {
	return nil
}
