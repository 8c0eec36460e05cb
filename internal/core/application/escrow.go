package application

import (
	"context"

	"github.com/agentcore/escrowd/internal/core/application/escrow"
	"github.com/agentcore/escrowd/internal/core/domain"
)

type EscrowService interface {
	Lock(ctx context.Context, args domain.LockArgs) (*domain.Trade, error)
	WithdrawWithPreimage(
		ctx context.Context, tradeID domain.TradeID,
		preimage, sigA, sigB []byte,
	) (*domain.Trade, error)
	ResolveDispute(
		ctx context.Context, tradeID domain.TradeID,
		recipient domain.Address, sigA, sigB []byte,
	) (*domain.Trade, error)
	Refund(ctx context.Context, tradeID domain.TradeID) (*domain.Trade, error)
	GetTrade(ctx context.Context, tradeID domain.TradeID) (*domain.Trade, error)
	ListTrades(
		ctx context.Context, filter domain.TradeFilter, page *domain.Page,
	) ([]*domain.Trade, error)
	GetBalance(ctx context.Context, addr domain.Address) (uint64, error)
	GetStats(ctx context.Context) (*escrow.Stats, error)
	SettlePendingPayouts(ctx context.Context) (int, error)
}

func NewEscrowService(opts escrow.ServiceOpts) (EscrowService, error) {
	return escrow.NewService(opts)
}
