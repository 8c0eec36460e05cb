package httpinterface

import (
	"fmt"
	"net/http"

	"github.com/agentcore/escrowd/internal/core/application"
	"github.com/agentcore/escrowd/internal/core/application/pubsub"
	"github.com/agentcore/escrowd/internal/core/domain"
	"github.com/go-chi/chi/v5"
)

type escrowHandler struct {
	escrowSvc application.EscrowService
	verifier  domain.SignatureVerifier
	precision int32
}

func (h *escrowHandler) lock(w http.ResponseWriter, r *http.Request) {
	var req LockRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	args, err := h.parseLockRequest(req)
	if err != nil {
		writeError(w, err)
		return
	}

	trade, err := h.escrowSvc.Lock(r.Context(), args)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newTradeInfo(trade, h.precision))
}

func (h *escrowHandler) getTrade(w http.ResponseWriter, r *http.Request) {
	tradeID, err := parseTradeIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	trade, err := h.escrowSvc.GetTrade(r.Context(), tradeID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newTradeInfo(trade, h.precision))
}

func (h *escrowHandler) listTrades(w http.ResponseWriter, r *http.Request) {
	filter, page, err := parseTradeFilter(r)
	if err != nil {
		writeError(w, err)
		return
	}

	trades, err := h.escrowSvc.ListTrades(r.Context(), filter, page)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ListTradesResponse{
		Trades: tradeList(trades).toInfo(h.precision),
	})
}

func (h *escrowHandler) withdraw(w http.ResponseWriter, r *http.Request) {
	tradeID, err := parseTradeIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req WithdrawRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	preimage, err := parseBytes("preimage", req.Preimage)
	if err != nil {
		writeError(w, err)
		return
	}
	sigA, sigB, err := parseSignatures(req.SignatureA, req.SignatureB)
	if err != nil {
		writeError(w, err)
		return
	}

	trade, err := h.escrowSvc.WithdrawWithPreimage(
		r.Context(), tradeID, preimage, sigA, sigB,
	)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newTradeInfo(trade, h.precision))
}

func (h *escrowHandler) dispute(w http.ResponseWriter, r *http.Request) {
	tradeID, err := parseTradeIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req DisputeRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	recipient, err := parseAddress("recipient", req.Recipient)
	if err != nil {
		writeError(w, fmt.Errorf("%w: %s", domain.ErrInvalidRecipient, err))
		return
	}
	sigA, sigB, err := parseSignatures(req.SignatureA, req.SignatureB)
	if err != nil {
		writeError(w, err)
		return
	}

	trade, err := h.escrowSvc.ResolveDispute(
		r.Context(), tradeID, recipient, sigA, sigB,
	)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newTradeInfo(trade, h.precision))
}

func (h *escrowHandler) refund(w http.ResponseWriter, r *http.Request) {
	tradeID, err := parseTradeIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	trade, err := h.escrowSvc.Refund(r.Context(), tradeID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newTradeInfo(trade, h.precision))
}

func (h *escrowHandler) getBalance(w http.ResponseWriter, r *http.Request) {
	addr, err := parseAddress("address", chi.URLParam(r, "address"))
	if err != nil {
		writeError(w, err)
		return
	}

	balance, err := h.escrowSvc.GetBalance(r.Context(), addr)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, BalanceResponse{
		Address:        addr.Hex(),
		Balance:        balance,
		BalanceDecimal: formatAmount(balance, h.precision),
	})
}

func (h *escrowHandler) getStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.escrowSvc.GetStats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newStatsResponse(stats))
}

// parseLockRequest decodes the request and recovers the buyer from
// buyer_signature over the lock digest. An explicit buyer, if given, must
// match the recovered one.
func (h *escrowHandler) parseLockRequest(req LockRequest) (domain.LockArgs, error) {
	var args domain.LockArgs

	tradeID, err := domain.ParseTradeID(req.TradeID)
	if err != nil {
		return args, err
	}
	seller, err := parseAddress("seller", req.Seller)
	if err != nil {
		return args, err
	}
	arbiter, err := parseAddress("arbiter", req.Arbiter)
	if err != nil {
		return args, err
	}
	hashLock, err := parseHash("hash_lock", req.HashLock)
	if err != nil {
		return args, err
	}
	sig, err := parseBytes("buyer_signature", req.BuyerSignature)
	if err != nil {
		return args, err
	}

	args = domain.LockArgs{
		TradeID:      tradeID,
		Seller:       seller,
		Arbiter:      arbiter,
		HashLock:     hashLock,
		LockDuration: req.LockDuration,
		Amount:       req.Amount,
	}

	buyer, err := h.verifier.Recover(domain.LockDigest(args), sig)
	if err != nil {
		return args, err
	}
	if req.Buyer != "" {
		claimed, err := parseAddress("buyer", req.Buyer)
		if err != nil {
			return args, err
		}
		if claimed != buyer {
			return args, errInvalidSignature
		}
	}
	args.Buyer = buyer
	return args, nil
}

type webhookHandler struct {
	pubsubSvc application.PubSubService
}

func (h *webhookHandler) addWebhook(w http.ResponseWriter, r *http.Request) {
	var req AddWebhookRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	event, err := pubsub.ParseWebhookEvent(req.Event)
	if err != nil {
		writeError(w, err)
		return
	}

	id, err := h.pubsubSvc.AddWebhook(r.Context(), pubsub.Webhook{
		Event:    event,
		Endpoint: req.Endpoint,
		Secret:   req.Secret,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, AddWebhookResponse{id})
}

func (h *webhookHandler) listWebhooks(w http.ResponseWriter, r *http.Request) {
	event := pubsub.EventUnspecified
	if v := r.URL.Query().Get("event"); v != "" {
		e, err := pubsub.ParseWebhookEvent(v)
		if err != nil {
			writeError(w, err)
			return
		}
		event = e
	}

	webhooks, err := h.pubsubSvc.ListWebhooks(r.Context(), event)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ListWebhooksResponse{webhooks})
}

func (h *webhookHandler) removeWebhook(w http.ResponseWriter, r *http.Request) {
	if err := h.pubsubSvc.RemoveWebhook(
		r.Context(), chi.URLParam(r, "id"),
	); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
