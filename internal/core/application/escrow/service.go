package escrow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/agentcore/escrowd/internal/core/application/pubsub"
	"github.com/agentcore/escrowd/internal/core/domain"
	"github.com/agentcore/escrowd/internal/core/ports"
	log "github.com/sirupsen/logrus"
)

const (
	OperationLock     = "lock"
	OperationWithdraw = "withdraw"
	OperationDispute  = "dispute"
	OperationRefund   = "refund"
	OperationSettle   = "settle"
)

var (
	ErrServiceUnavailable = fmt.Errorf("service is unavailable, retry later")

	errPayoutAlreadySettled = errors.New("payout already settled")
)

type ServiceOpts struct {
	RepoManager ports.RepoManager
	Treasury    ports.Treasury
	PubSub      *pubsub.Service
	Notifier    ports.Notifier
	Verifier    domain.SignatureVerifier
	Clock       ports.Clock
	Metrics     ports.Metrics
	// MinLockDuration and MaxLockDuration bound the lock duration accepted
	// by Lock. Zero values disable the respective bound.
	MinLockDuration time.Duration
	MaxLockDuration time.Duration
}

type Service struct {
	repoManager ports.RepoManager
	treasury    ports.Treasury
	pubsub      *pubsub.Service
	notifier    ports.Notifier
	verifier    domain.SignatureVerifier
	clock       ports.Clock
	metrics     ports.Metrics

	minLockDuration int64
	maxLockDuration int64
}

func NewService(opts ServiceOpts) (*Service, error) {
	if opts.RepoManager == nil {
		return nil, fmt.Errorf("missing repo manager")
	}
	if opts.Treasury == nil {
		return nil, fmt.Errorf("missing treasury")
	}
	if opts.Verifier == nil {
		return nil, fmt.Errorf("missing signature verifier")
	}
	minDuration := int64(opts.MinLockDuration / time.Second)
	maxDuration := int64(opts.MaxLockDuration / time.Second)
	if minDuration < 0 || maxDuration < 0 {
		return nil, fmt.Errorf("lock duration bounds must not be negative")
	}
	if maxDuration > 0 && minDuration > maxDuration {
		return nil, fmt.Errorf(
			"min lock duration must not exceed max lock duration",
		)
	}

	pubsubSvc := opts.PubSub
	if pubsubSvc == nil {
		pubsubSvc = pubsub.NewService(nil, nil)
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = ports.NoopNotifier()
	}
	clock := opts.Clock
	if clock == nil {
		clock = ports.SystemClock()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = ports.NoopMetrics()
	}

	return &Service{
		repoManager:     opts.RepoManager,
		treasury:        opts.Treasury,
		pubsub:          pubsubSvc,
		notifier:        notifier,
		verifier:        opts.Verifier,
		clock:           clock,
		metrics:         metrics,
		minLockDuration: minDuration,
		maxLockDuration: maxDuration,
	}, nil
}

// Lock creates a new trade in Locked status and takes custody of its
// deposit. On failure neither the trade nor the deposit exist.
func (s *Service) Lock(
	ctx context.Context, args domain.LockArgs,
) (trade *domain.Trade, err error) {
	defer func() { s.metrics.ObserveOperation(OperationLock, err) }()

	now := s.now()
	trade, err = domain.NewTrade(args, now)
	if err != nil {
		return nil, err
	}
	if err := s.validateLockDuration(args.LockDuration); err != nil {
		return nil, err
	}

	if err := s.treasury.Escrow(
		ctx, trade.ID, trade.Buyer, trade.Amount,
	); err != nil {
		if errors.Is(err, ports.ErrAlreadyEscrowed) {
			return nil, domain.ErrDuplicateTradeId
		}
		log.WithError(err).Warnf(
			"failed to escrow deposit for trade %s", trade.ID,
		)
		return nil, ErrServiceUnavailable
	}

	if err := s.repoManager.TradeRepository().AddTrade(ctx, trade); err != nil {
		if err := s.treasury.Void(ctx, trade.ID); err != nil {
			log.WithError(err).Warnf(
				"failed to void deposit of trade %s", trade.ID,
			)
		}
		if errors.Is(err, domain.ErrDuplicateTradeId) {
			return nil, err
		}
		log.WithError(err).Warnf("failed to store trade %s", trade.ID)
		return nil, ErrServiceUnavailable
	}

	log.Debugf("locked trade %s", trade.ID)
	s.updateEscrowedAmount(ctx)
	s.notifier.NotifyTradeStatus(*trade, domain.TradeStatusUninitialized)
	go s.publishLocked(trade.LockedEvent())

	return trade, nil
}

// WithdrawWithPreimage completes the trade in favour of the seller.
func (s *Service) WithdrawWithPreimage(
	ctx context.Context, tradeID domain.TradeID,
	preimage, sigA, sigB []byte,
) (trade *domain.Trade, err error) {
	defer func() { s.metrics.ObserveOperation(OperationWithdraw, err) }()

	return s.resolve(ctx, tradeID, func(t *domain.Trade, now int64) (*domain.Payout, error) {
		return t.WithdrawWithPreimage(preimage, sigA, sigB, s.verifier, now)
	})
}

// ResolveDispute completes the trade in favour of recipient.
func (s *Service) ResolveDispute(
	ctx context.Context, tradeID domain.TradeID,
	recipient domain.Address, sigA, sigB []byte,
) (trade *domain.Trade, err error) {
	defer func() { s.metrics.ObserveOperation(OperationDispute, err) }()

	return s.resolve(ctx, tradeID, func(t *domain.Trade, now int64) (*domain.Payout, error) {
		return t.ResolveDispute(recipient, sigA, sigB, s.verifier, now)
	})
}

// Refund returns the deposit to the buyer once the timelock expired.
func (s *Service) Refund(
	ctx context.Context, tradeID domain.TradeID,
) (trade *domain.Trade, err error) {
	defer func() { s.metrics.ObserveOperation(OperationRefund, err) }()

	return s.resolve(ctx, tradeID, func(t *domain.Trade, now int64) (*domain.Payout, error) {
		return t.Refund(now)
	})
}

func (s *Service) GetTrade(
	ctx context.Context, tradeID domain.TradeID,
) (*domain.Trade, error) {
	trade, err := s.repoManager.TradeRepository().GetTrade(ctx, tradeID)
	if err != nil {
		if errors.Is(err, domain.ErrTradeNotFound) {
			return nil, err
		}
		log.WithError(err).Warnf("failed to get trade %s", tradeID)
		return nil, ErrServiceUnavailable
	}
	return trade, nil
}

func (s *Service) ListTrades(
	ctx context.Context, filter domain.TradeFilter, page *domain.Page,
) ([]*domain.Trade, error) {
	trades, err := s.repoManager.TradeRepository().GetAllTrades(
		ctx, filter, page,
	)
	if err != nil {
		log.WithError(err).Warn("failed to list trades")
		return nil, ErrServiceUnavailable
	}
	return trades, nil
}

// GetBalance returns the amount paid out to the given address so far.
func (s *Service) GetBalance(
	ctx context.Context, addr domain.Address,
) (uint64, error) {
	balance, err := s.treasury.Balance(ctx, addr)
	if err != nil {
		log.WithError(err).Warnf("failed to get balance of %s", addr)
		return 0, ErrServiceUnavailable
	}
	return balance, nil
}

func (s *Service) GetStats(ctx context.Context) (*Stats, error) {
	totals, err := s.treasury.Totals(ctx)
	if err != nil {
		log.WithError(err).Warn("failed to get treasury totals")
		return nil, ErrServiceUnavailable
	}

	trades, err := s.repoManager.TradeRepository().GetAllTrades(
		ctx, domain.TradeFilter{}, nil,
	)
	if err != nil {
		log.WithError(err).Warn("failed to list trades")
		return nil, ErrServiceUnavailable
	}

	stats := &Stats{
		TradesByStatus:   make(map[domain.TradeStatus]int),
		TotalDeposited:   totals.Deposited,
		TotalEscrowed:    totals.Held,
		TotalPaidOut:     totals.PaidOut,
		NumTrades:        len(trades),
		NumPendingPayout: 0,
	}
	for _, t := range trades {
		stats.TradesByStatus[t.Status]++
		if t.IsPayoutPending() {
			stats.NumPendingPayout++
		}
	}
	return stats, nil
}

// SettlePendingPayouts retries the transfer of every resolved trade whose
// payout has not been settled yet, and returns the number of settled ones.
func (s *Service) SettlePendingPayouts(ctx context.Context) (int, error) {
	trades, err := s.repoManager.TradeRepository().GetTradesWithPendingPayout(ctx)
	if err != nil {
		log.WithError(err).Warn("failed to get trades with pending payout")
		return 0, ErrServiceUnavailable
	}

	count := 0
	for _, t := range trades {
		payout := t.Payout()
		if payout == nil {
			continue
		}
		if err := s.settlePayout(ctx, *payout); err != nil {
			continue
		}
		count++
	}
	if count > 0 {
		log.Infof("settled %d pending payouts", count)
		s.updateEscrowedAmount(ctx)
	}
	return count, nil
}

// resolve applies the given terminal transition to the trade, commits it,
// and only afterwards pays the deposit out.
func (s *Service) resolve(
	ctx context.Context, tradeID domain.TradeID,
	transition func(t *domain.Trade, now int64) (*domain.Payout, error),
) (*domain.Trade, error) {
	var (
		payout    *domain.Payout
		resolved  domain.Trade
		oldStatus domain.TradeStatus
	)
	now := s.now()

	if err := s.repoManager.TradeRepository().UpdateTrade(
		ctx, tradeID, func(t *domain.Trade) (*domain.Trade, error) {
			oldStatus = t.Status
			p, err := transition(t, now)
			if err != nil {
				return nil, err
			}
			payout = p
			resolved = *t
			return t, nil
		},
	); err != nil {
		if isDomainError(err) {
			return nil, err
		}
		log.WithError(err).Warnf("failed to update trade %s", tradeID)
		return nil, ErrServiceUnavailable
	}

	log.Debugf(
		"trade %s resolved via %s in favour of %s",
		tradeID, payout.Method, payout.Recipient,
	)

	if err := s.settlePayout(ctx, *payout); err == nil {
		resolved.Resolution.PayoutSettled = true
		resolved.Resolution.PayoutSettledAt = s.now()
	}
	s.updateEscrowedAmount(ctx)

	s.notifier.NotifyTradeStatus(resolved, oldStatus)
	go s.publishResolved(resolved, *payout)

	return &resolved, nil
}

// settlePayout transfers the deposit and marks the payout as settled. A
// transfer already done by a previous attempt counts as success.
func (s *Service) settlePayout(ctx context.Context, payout domain.Payout) error {
	err := s.treasury.Transfer(ctx, payout)
	if err != nil && !errors.Is(err, ports.ErrAlreadyTransferred) {
		log.WithError(err).Warnf(
			"failed to transfer payout of trade %s, will retry", payout.TradeID,
		)
		s.metrics.ObserveOperation(OperationSettle, err)
		return err
	}
	if err == nil {
		s.metrics.ObservePayout(string(payout.Method))
	}

	now := s.now()
	if err := s.repoManager.TradeRepository().UpdateTrade(
		ctx, payout.TradeID, func(t *domain.Trade) (*domain.Trade, error) {
			ok, err := t.SettlePayout(now)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, errPayoutAlreadySettled
			}
			return t, nil
		},
	); err != nil && !errors.Is(err, errPayoutAlreadySettled) {
		log.WithError(err).Warnf(
			"failed to mark payout of trade %s as settled", payout.TradeID,
		)
		s.metrics.ObserveOperation(OperationSettle, err)
		return err
	}

	s.metrics.ObserveOperation(OperationSettle, nil)
	return nil
}

func (s *Service) validateLockDuration(duration int64) error {
	if s.minLockDuration > 0 && duration < s.minLockDuration {
		return fmt.Errorf(
			"%w: must be at least %ds", domain.ErrInvalidLockDuration,
			s.minLockDuration,
		)
	}
	if s.maxLockDuration > 0 && duration > s.maxLockDuration {
		return fmt.Errorf(
			"%w: must be at most %ds", domain.ErrInvalidLockDuration,
			s.maxLockDuration,
		)
	}
	return nil
}

func (s *Service) updateEscrowedAmount(ctx context.Context) {
	totals, err := s.treasury.Totals(ctx)
	if err != nil {
		log.WithError(err).Debug("failed to get treasury totals")
		return
	}
	s.metrics.SetEscrowedAmount(totals.Held)
}

func (s *Service) publishLocked(event domain.LockedEvent) {
	if err := s.pubsub.PublishTradeLockedEvent(event); err != nil {
		log.WithError(err).Warnf(
			"failed to publish locked event for trade %s", event.TradeID,
		)
	}
}

func (s *Service) publishResolved(trade domain.Trade, payout domain.Payout) {
	var err error
	switch {
	case trade.IsCompleted():
		err = s.pubsub.PublishTradeWithdrawnEvent(domain.WithdrawnEvent{
			TradeID:   trade.ID,
			Recipient: payout.Recipient,
			Method:    payout.Method,
			Amount:    payout.Amount,
		})
	case trade.IsRefunded():
		err = s.pubsub.PublishTradeRefundedEvent(domain.RefundedEvent{
			TradeID: trade.ID,
			Buyer:   trade.Buyer,
			Amount:  trade.Amount,
		})
	default:
		return
	}
	if err != nil {
		log.WithError(err).Warnf(
			"failed to publish %s event for trade %s", trade.Status, trade.ID,
		)
	}
}

func (s *Service) now() int64 {
	return s.clock.Now().Unix()
}
