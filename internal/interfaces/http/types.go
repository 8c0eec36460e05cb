package httpinterface

import (
	"github.com/agentcore/escrowd/internal/core/application/escrow"
	"github.com/agentcore/escrowd/internal/core/application/pubsub"
	"github.com/agentcore/escrowd/internal/core/domain"
	"github.com/agentcore/escrowd/pkg/amount"
)

type LockRequest struct {
	TradeID        string `json:"trade_id"`
	Buyer          string `json:"buyer,omitempty"`
	Seller         string `json:"seller"`
	Arbiter        string `json:"arbiter"`
	HashLock       string `json:"hash_lock"`
	LockDuration   int64  `json:"lock_duration"`
	Amount         uint64 `json:"amount"`
	BuyerSignature string `json:"buyer_signature"`
}

type WithdrawRequest struct {
	Preimage   string `json:"preimage"`
	SignatureA string `json:"signature_a"`
	SignatureB string `json:"signature_b"`
}

type DisputeRequest struct {
	Recipient  string `json:"recipient"`
	SignatureA string `json:"signature_a"`
	SignatureB string `json:"signature_b"`
}

type AddWebhookRequest struct {
	Event    string `json:"event"`
	Endpoint string `json:"endpoint"`
	Secret   string `json:"secret,omitempty"`
}

type AddWebhookResponse struct {
	ID string `json:"id"`
}

type ListWebhooksResponse struct {
	Webhooks []pubsub.WebhookInfo `json:"webhooks"`
}

type TradeInfo struct {
	TradeID       string          `json:"trade_id"`
	Buyer         string          `json:"buyer"`
	Seller        string          `json:"seller"`
	Arbiter       string          `json:"arbiter"`
	Amount        uint64          `json:"amount"`
	AmountDecimal string          `json:"amount_decimal"`
	HashLock      string          `json:"hash_lock"`
	Timelock      int64           `json:"timelock"`
	LockedAt      int64           `json:"locked_at"`
	Status        string          `json:"status"`
	Resolution    *ResolutionInfo `json:"resolution,omitempty"`
}

type ResolutionInfo struct {
	Method          string   `json:"method"`
	Recipient       string   `json:"recipient"`
	Preimage        string   `json:"preimage,omitempty"`
	Signers         []string `json:"signers,omitempty"`
	Timestamp       int64    `json:"timestamp"`
	PayoutSettled   bool     `json:"payout_settled"`
	PayoutSettledAt int64    `json:"payout_settled_at,omitempty"`
}

type ListTradesResponse struct {
	Trades []TradeInfo `json:"trades"`
}

type BalanceResponse struct {
	Address        string `json:"address"`
	Balance        uint64 `json:"balance"`
	BalanceDecimal string `json:"balance_decimal"`
}

type StatsResponse struct {
	NumTrades        int            `json:"num_trades"`
	NumPendingPayout int            `json:"num_pending_payout"`
	TradesByStatus   map[string]int `json:"trades_by_status"`
	TotalDeposited   uint64         `json:"total_deposited"`
	TotalEscrowed    uint64         `json:"total_escrowed"`
	TotalPaidOut     uint64         `json:"total_paid_out"`
}

type ErrorResponse struct {
	Error ErrorInfo `json:"error"`
}

type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type tradeList []*domain.Trade

func (l tradeList) toInfo(precision int32) []TradeInfo {
	list := make([]TradeInfo, 0, len(l))
	for _, t := range l {
		list = append(list, newTradeInfo(t, precision))
	}
	return list
}

func newTradeInfo(t *domain.Trade, precision int32) TradeInfo {
	info := TradeInfo{
		TradeID:       t.ID.String(),
		Buyer:         t.Buyer.Hex(),
		Seller:        t.Seller.Hex(),
		Arbiter:       t.Arbiter.Hex(),
		Amount:        t.Amount,
		AmountDecimal: formatAmount(t.Amount, precision),
		HashLock:      t.HashLock.Hex(),
		Timelock:      t.Timelock,
		LockedAt:      t.LockedAt,
		Status:        t.Status.String(),
	}
	if r := t.Resolution; r != nil {
		signers := make([]string, 0, len(r.Signers))
		for _, s := range r.Signers {
			signers = append(signers, s.Hex())
		}
		info.Resolution = &ResolutionInfo{
			Method:          string(r.Method),
			Recipient:       r.Recipient.Hex(),
			Signers:         signers,
			Timestamp:       r.Timestamp,
			PayoutSettled:   r.PayoutSettled,
			PayoutSettledAt: r.PayoutSettledAt,
		}
		if r.Method == domain.MethodPreimage {
			info.Resolution.Preimage = r.Preimage.Hex()
		}
	}
	return info
}

func newStatsResponse(stats *escrow.Stats) StatsResponse {
	byStatus := make(map[string]int, len(stats.TradesByStatus))
	for status, n := range stats.TradesByStatus {
		byStatus[status.String()] = n
	}
	return StatsResponse{
		NumTrades:        stats.NumTrades,
		NumPendingPayout: stats.NumPendingPayout,
		TradesByStatus:   byStatus,
		TotalDeposited:   stats.TotalDeposited,
		TotalEscrowed:    stats.TotalEscrowed,
		TotalPaidOut:     stats.TotalPaidOut,
	}
}

func formatAmount(units uint64, precision int32) string {
	return amount.FromBaseUnits(units, precision)
}
