package httpinterface_test

import (
	"bytes"
	"crypto/rand"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/agentcore/escrowd/internal/core/application"
	"github.com/agentcore/escrowd/internal/core/domain"
	"github.com/agentcore/escrowd/internal/core/ports"
	websocketnotifier "github.com/agentcore/escrowd/internal/infrastructure/notifier/websocket"
	"github.com/agentcore/escrowd/internal/infrastructure/pubsub"
	"github.com/agentcore/escrowd/internal/infrastructure/treasury/ledger"
	httpinterface "github.com/agentcore/escrowd/internal/interfaces/http"
	"github.com/agentcore/escrowd/pkg/sigverify"
	"github.com/agentcore/escrowd/pkg/stats"
	"github.com/btcsuite/btcd/btcec/v2"
	gorillaws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

const (
	lockDuration = int64(3600)
	amount       = uint64(150000000)
)

type party struct {
	key  *btcec.PrivateKey
	addr domain.Address
}

func newParty(t *testing.T) party {
	key, err := sigverify.NewPrivateKey()
	require.NoError(t, err)
	return party{key, sigverify.PubkeyToAddress(key.PubKey())}
}

func (p party) signHex(t *testing.T, digest domain.Hash) string {
	sig, err := sigverify.Sign(digest, p.key)
	require.NoError(t, err)
	return "0x" + hexEncode(sig)
}

type testServer struct {
	*httptest.Server
	notifier websocketnotifier.Notifier

	buyer, seller, arbiter party
}

func newTestServer(t *testing.T) *testServer {
	datadir := t.TempDir()

	treasury, err := ledger.NewTreasury(datadir, nil)
	require.NoError(t, err)
	webhooks, err := pubsub.NewService(pubsub.ServiceOpts{Datadir: datadir})
	require.NoError(t, err)

	metrics := stats.NewMetrics()
	notifier := websocketnotifier.NewNotifier(websocketnotifier.NotifierOpts{
		HeartbeatInterval: time.Hour,
		OnClientsChange:   metrics.SetWsClients,
	})
	notifier.Start()

	appConfig := &application.Config{
		DBType:          application.DBInMemory,
		Treasury:        treasury,
		SecurePubSub:    webhooks,
		Notifier:        notifier,
		Metrics:         metrics,
		MinLockDuration: time.Minute,
	}
	require.NoError(t, appConfig.Validate())

	handler, err := httpinterface.NewHandler(httpinterface.ServiceOpts{
		EscrowSvc:       appConfig.EscrowService(),
		PubSubSvc:       appConfig.PubSubService(),
		WsHandler:       notifier,
		Gatherer:        metrics.Registry(),
		AmountPrecision: 8,
	})
	require.NoError(t, err)

	server := httptest.NewServer(handler)
	t.Cleanup(func() {
		server.Close()
		notifier.Stop()
		webhooks.Close()
		treasury.Close()
	})

	return &testServer{
		Server:   server,
		notifier: notifier,
		buyer:    newParty(t),
		seller:   newParty(t),
		arbiter:  newParty(t),
	}
}

func (s *testServer) do(
	t *testing.T, method, path string, body interface{}, out interface{},
) int {
	var reader *bytes.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(buf)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, s.URL+path, reader)
	require.NoError(t, err)
	resp, err := s.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil && resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (s *testServer) lockRequest(
	t *testing.T, preimage []byte,
) (httpinterface.LockRequest, domain.TradeID) {
	var tradeID domain.TradeID
	copy(tradeID[:], randomBytes(t, domain.TradeIDLength))
	hashLock := domain.HashPreimage(preimage)

	digest := domain.LockDigest(domain.LockArgs{
		TradeID:      tradeID,
		Seller:       s.seller.addr,
		Arbiter:      s.arbiter.addr,
		HashLock:     hashLock,
		LockDuration: lockDuration,
		Amount:       amount,
	})
	return httpinterface.LockRequest{
		TradeID:        tradeID.String(),
		Seller:         s.seller.addr.Hex(),
		Arbiter:        s.arbiter.addr.Hex(),
		HashLock:       hashLock.Hex(),
		LockDuration:   lockDuration,
		Amount:         amount,
		BuyerSignature: s.buyer.signHex(t, digest),
	}, tradeID
}

func TestTradeLifecycle(t *testing.T) {
	s := newTestServer(t)
	preimage := randomBytes(t, domain.PreimageLength)
	req, tradeID := s.lockRequest(t, preimage)

	wsURL := "ws" + strings.TrimPrefix(s.URL, "http") + "/v1/ws?trade_id=" + tradeID.String()
	conn, _, err := gorillaws.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool {
		return s.notifier.NumClients() == 1
	}, 2*time.Second, 10*time.Millisecond)

	var trade httpinterface.TradeInfo
	status := s.do(t, http.MethodPost, "/v1/trades", req, &trade)
	require.Equal(t, http.StatusCreated, status)
	require.Equal(t, "LOCKED", trade.Status)
	require.Equal(t, s.buyer.addr.Hex(), trade.Buyer)
	require.Equal(t, "1.5", trade.AmountDecimal)

	var errResp httpinterface.ErrorResponse
	status = s.do(t, http.MethodPost, "/v1/trades", req, &errResp)
	require.Equal(t, http.StatusConflict, status)
	require.Equal(t, "DUPLICATE_TRADE_ID", errResp.Error.Code)

	status = s.do(t, http.MethodGet, "/v1/trades/"+tradeID.String(), nil, &trade)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, tradeID.String(), trade.TradeID)

	var list httpinterface.ListTradesResponse
	status = s.do(
		t, http.MethodGet, "/v1/trades?status=LOCKED&participant="+s.seller.addr.Hex(),
		nil, &list,
	)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, list.Trades, 1)

	status = s.do(t, http.MethodPost, "/v1/trades/"+tradeID.String()+"/refund", nil, &errResp)
	require.Equal(t, http.StatusConflict, status)
	require.Equal(t, "TIMELOCK_NOT_EXPIRED", errResp.Error.Code)

	digest := domain.PreimageDigest(tradeID, preimage)
	status = s.do(t, http.MethodPost, "/v1/trades/"+tradeID.String()+"/withdraw",
		httpinterface.WithdrawRequest{
			Preimage:   "0x" + hexEncode(preimage),
			SignatureA: s.seller.signHex(t, digest),
			SignatureB: s.buyer.signHex(t, digest),
		}, &trade,
	)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "COMPLETED", trade.Status)
	require.NotNil(t, trade.Resolution)
	require.Equal(t, "preimage", trade.Resolution.Method)
	require.True(t, trade.Resolution.PayoutSettled)

	var balance httpinterface.BalanceResponse
	status = s.do(t, http.MethodGet, "/v1/balances/"+s.seller.addr.Hex(), nil, &balance)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, amount, balance.Balance)
	require.Equal(t, "1.5", balance.BalanceDecimal)

	var statsResp httpinterface.StatsResponse
	status = s.do(t, http.MethodGet, "/v1/stats", nil, &statsResp)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, 1, statsResp.NumTrades)
	require.Equal(t, 1, statsResp.TradesByStatus["COMPLETED"])
	require.Equal(t, amount, statsResp.TotalPaidOut)
	require.Zero(t, statsResp.TotalEscrowed)

	for _, expected := range []string{"LOCKED", "COMPLETED"} {
		//nolint
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var msg websocketnotifier.Message
		require.NoError(t, conn.ReadJSON(&msg))
		require.Equal(t, websocketnotifier.MessageTypeTradeStatusUpdate, msg.MessageType)
		require.Equal(t, expected, msg.Data.(map[string]interface{})["new_status"])
	}
}

func TestErrorMapping(t *testing.T) {
	s := newTestServer(t)
	preimage := randomBytes(t, domain.PreimageLength)
	req, tradeID := s.lockRequest(t, preimage)

	var trade httpinterface.TradeInfo
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/v1/trades", req, &trade))

	sellerDigest := domain.ArbitrationDigest(tradeID, s.seller.addr)
	sellerSig := s.seller.signHex(t, sellerDigest)

	tests := []struct {
		name           string
		method         string
		path           string
		body           interface{}
		expectedStatus int
		expectedCode   string
	}{
		{
			name:   "lock with mismatching buyer",
			method: http.MethodPost,
			path:   "/v1/trades",
			body: func() httpinterface.LockRequest {
				r, _ := s.lockRequest(t, preimage)
				r.Buyer = s.arbiter.addr.Hex()
				return r
			}(),
			expectedStatus: http.StatusUnauthorized,
			expectedCode:   "INVALID_SIGNATURE",
		},
		{
			name:   "lock with zero amount",
			method: http.MethodPost,
			path:   "/v1/trades",
			body: func() httpinterface.LockRequest {
				r, _ := s.lockRequest(t, preimage)
				r.Amount = 0
				return r
			}(),
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "ZERO_AMOUNT",
		},
		{
			name:   "lock with short duration",
			method: http.MethodPost,
			path:   "/v1/trades",
			body: func() httpinterface.LockRequest {
				r, id := s.lockRequest(t, preimage)
				r.LockDuration = 10
				r.BuyerSignature = s.buyer.signHex(t, domain.LockDigest(domain.LockArgs{
					TradeID:      id,
					Seller:       s.seller.addr,
					Arbiter:      s.arbiter.addr,
					HashLock:     domain.HashPreimage(preimage),
					LockDuration: 10,
					Amount:       amount,
				}))
				return r
			}(),
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "INVALID_LOCK_DURATION",
		},
		{
			name:           "malformed body",
			method:         http.MethodPost,
			path:           "/v1/trades",
			body:           map[string]interface{}{"unknown": 1},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "BAD_REQUEST",
		},
		{
			name:           "unknown trade",
			method:         http.MethodGet,
			path:           "/v1/trades/0x" + strings.Repeat("ab", 32),
			expectedStatus: http.StatusNotFound,
			expectedCode:   "TRADE_NOT_FOUND",
		},
		{
			name:           "invalid trade id",
			method:         http.MethodGet,
			path:           "/v1/trades/0x1234",
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "INVALID_TRADE_ID",
		},
		{
			name:           "dispute signed twice by seller",
			method:         http.MethodPost,
			path:           "/v1/trades/" + tradeID.String() + "/dispute",
			body:           httpinterface.DisputeRequest{
				Recipient: s.seller.addr.Hex(), SignatureA: sellerSig, SignatureB: sellerSig,
			},
			expectedStatus: http.StatusForbidden,
			expectedCode:   "INSUFFICIENT_DISTINCT_SIGNATURES",
		},
		{
			name:           "dispute with malformed signature",
			method:         http.MethodPost,
			path:           "/v1/trades/" + tradeID.String() + "/dispute",
			body:           httpinterface.DisputeRequest{
				Recipient: s.seller.addr.Hex(), SignatureA: "0x0102", SignatureB: sellerSig,
			},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "INVALID_SIGNATURE_ENCODING",
		},
		{
			name:           "dispute with arbiter as recipient",
			method:         http.MethodPost,
			path:           "/v1/trades/" + tradeID.String() + "/dispute",
			body:           httpinterface.DisputeRequest{
				Recipient: s.arbiter.addr.Hex(), SignatureA: sellerSig, SignatureB: sellerSig,
			},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "INVALID_RECIPIENT",
		},
		{
			name:   "withdraw with wrong preimage",
			method: http.MethodPost,
			path:   "/v1/trades/" + tradeID.String() + "/withdraw",
			body: httpinterface.WithdrawRequest{
				Preimage: "0x" + hexEncode(randomBytes(t, 32)), SignatureA: sellerSig, SignatureB: sellerSig,
			},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedCode:   "INVALID_PREIMAGE",
		},
		{
			name:           "invalid list filter",
			method:         http.MethodGet,
			path:           "/v1/trades?status=PENDING",
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "BAD_REQUEST",
		},
		{
			name:           "remove unknown webhook",
			method:         http.MethodDelete,
			path:           "/v1/webhooks/unknown",
			expectedStatus: http.StatusNotFound,
			expectedCode:   "WEBHOOK_NOT_FOUND",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			var errResp httpinterface.ErrorResponse
			status := s.do(t, tt.method, tt.path, tt.body, &errResp)
			require.Equal(t, tt.expectedStatus, status)
			require.Equal(t, tt.expectedCode, errResp.Error.Code)
			require.NotEmpty(t, errResp.Error.Message)
		})
	}
}

func TestWebhooks(t *testing.T) {
	s := newTestServer(t)

	var added httpinterface.AddWebhookResponse
	status := s.do(t, http.MethodPost, "/v1/webhooks", httpinterface.AddWebhookRequest{
		Event:    "TRADE_LOCKED",
		Endpoint: "http://localhost:9999/hook",
		Secret:   "secret",
	}, &added)
	require.Equal(t, http.StatusCreated, status)
	require.NotEmpty(t, added.ID)

	var errResp httpinterface.ErrorResponse
	status = s.do(t, http.MethodPost, "/v1/webhooks", httpinterface.AddWebhookRequest{
		Event:    "TRADE_SETTLED",
		Endpoint: "http://localhost:9999/hook",
	}, &errResp)
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "INVALID_WEBHOOK_EVENT", errResp.Error.Code)

	status = s.do(t, http.MethodPost, "/v1/webhooks", httpinterface.AddWebhookRequest{
		Event:    "*",
		Endpoint: "localhost",
	}, &errResp)
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "INVALID_WEBHOOK_ENDPOINT", errResp.Error.Code)

	var list httpinterface.ListWebhooksResponse
	status = s.do(t, http.MethodGet, "/v1/webhooks", nil, &list)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, list.Webhooks, 1)
	require.Equal(t, added.ID, list.Webhooks[0].ID)
	require.True(t, list.Webhooks[0].IsSecured)

	status = s.do(t, http.MethodDelete, "/v1/webhooks/"+added.ID, nil, nil)
	require.Equal(t, http.StatusNoContent, status)

	status = s.do(t, http.MethodGet, "/v1/webhooks?event=TRADE_LOCKED", nil, &list)
	require.Equal(t, http.StatusOK, status)
	require.Empty(t, list.Webhooks)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	var health map[string]string
	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/healthz", nil, &health))
	require.Equal(t, "ok", health["status"])

	req, _ := s.lockRequest(t, randomBytes(t, domain.PreimageLength))
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/v1/trades", req, nil))

	resp, err := s.Client().Get(s.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	buf := new(bytes.Buffer)
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	require.Contains(t, buf.String(), `escrowd_operations_total{operation="lock",result="ok"} 1`)
	require.Contains(t, buf.String(), "escrowd_escrowed_amount 1.5e+08")
}

func TestInvalidOpts(t *testing.T) {
	_, err := httpinterface.NewHandler(httpinterface.ServiceOpts{})
	require.Error(t, err)

	_, err = httpinterface.NewService(httpinterface.ServiceOpts{
		EscrowSvc: nil,
		PubSubSvc: application.NewPubSubService(nil, ports.NoopMetrics()),
	})
	require.Error(t, err)
}

func randomBytes(t *testing.T, n int) []byte {
	b := make([]byte, n)
	_, err := rand.Read(b)
	require.NoError(t, err)
	return b
}
