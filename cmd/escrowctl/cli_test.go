package main

import (
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/agentcore/escrowd/internal/core/application"
	"github.com/agentcore/escrowd/internal/core/domain"
	"github.com/agentcore/escrowd/internal/infrastructure/pubsub"
	"github.com/agentcore/escrowd/internal/infrastructure/treasury/ledger"
	httpinterface "github.com/agentcore/escrowd/internal/interfaces/http"
	"github.com/agentcore/escrowd/pkg/amount"
	"github.com/agentcore/escrowd/pkg/sigverify"
	"github.com/stretchr/testify/require"
)

func withTempState(t *testing.T) {
	dir, path := escrowctlDataDir, statePath
	escrowctlDataDir = filepath.Join(t.TempDir(), "escrowctl")
	statePath = filepath.Join(escrowctlDataDir, "state.json")
	t.Cleanup(func() {
		escrowctlDataDir, statePath = dir, path
	})
}

func newTestDaemon(t *testing.T) *httptest.Server {
	datadir := t.TempDir()

	treasury, err := ledger.NewTreasury(datadir, nil)
	require.NoError(t, err)
	webhooks, err := pubsub.NewService(pubsub.ServiceOpts{Datadir: datadir})
	require.NoError(t, err)

	appConfig := &application.Config{
		DBType:          application.DBInMemory,
		Treasury:        treasury,
		SecurePubSub:    webhooks,
		MinLockDuration: time.Minute,
	}
	require.NoError(t, appConfig.Validate())

	handler, err := httpinterface.NewHandler(httpinterface.ServiceOpts{
		EscrowSvc:       appConfig.EscrowService(),
		PubSubSvc:       appConfig.PubSubService(),
		AmountPrecision: amount.DefaultPrecision,
	})
	require.NoError(t, err)

	server := httptest.NewServer(handler)
	t.Cleanup(func() {
		server.Close()
		webhooks.Close()
		treasury.Close()
	})
	return server
}

func run(args ...string) error {
	return newApp().Run(append([]string{"escrowctl"}, args...))
}

func newAddress(t *testing.T) domain.Address {
	key, err := sigverify.NewPrivateKey()
	require.NoError(t, err)
	return sigverify.PubkeyToAddress(key.PubKey())
}

func TestState(t *testing.T) {
	withTempState(t)

	_, err := getState()
	require.Error(t, err)

	require.NoError(t, setState(map[string]string{"daemon": "http://localhost:9945"}))
	require.NoError(t, setState(map[string]string{precisionKey: "2"}))

	state, err := getState()
	require.NoError(t, err)
	require.Equal(t, map[string]string{
		"daemon":     "http://localhost:9945",
		precisionKey: "2",
	}, state)

	precision, err := getPrecisionFromState()
	require.NoError(t, err)
	require.Equal(t, int32(2), precision)

	_, err = getPrivateKeyFromState()
	require.Error(t, err)

	require.Error(t, run("config", "set", privateKeyKey, "0xnothex"))
	require.Error(t, run("config", "set", precisionKey, "19"))
	require.NoError(t, run("keygen", "--save"))

	key, err := getPrivateKeyFromState()
	require.NoError(t, err)
	require.NotNil(t, key)
}

func TestNewLockRequest(t *testing.T) {
	seller, arbiter := newAddress(t), newAddress(t)
	hashLock := domain.HashPreimage([]byte("secret")).Hex()

	t.Run("valid", func(t *testing.T) {
		req, args, err := newLockRequest(
			"", seller.Hex(), arbiter.Hex(), hashLock, "1.5", time.Hour, 8,
		)
		require.NoError(t, err)
		require.False(t, args.TradeID.IsZero())
		require.Equal(t, args.TradeID.String(), req.TradeID)
		require.Equal(t, uint64(150000000), req.Amount)
		require.Equal(t, int64(3600), req.LockDuration)

		key, err := sigverify.NewPrivateKey()
		require.NoError(t, err)
		require.NoError(t, signLockRequest(req, args, key))

		sig, err := sigverify.DecodeHex(req.BuyerSignature)
		require.NoError(t, err)
		buyer, err := sigverify.Recover(domain.LockDigest(args), sig)
		require.NoError(t, err)
		require.Equal(t, buyer.Hex(), req.Buyer)
	})

	t.Run("random_trade_id", func(t *testing.T) {
		first, firstArgs, err := newLockRequest(
			"", seller.Hex(), arbiter.Hex(), hashLock, "1", time.Hour, 8,
		)
		require.NoError(t, err)
		second, _, err := newLockRequest(
			"", seller.Hex(), arbiter.Hex(), hashLock, "1", time.Hour, 8,
		)
		require.NoError(t, err)

		id, err := sigverify.DecodeHex(first.TradeID)
		require.NoError(t, err)
		require.Len(t, id, domain.TradeIDLength)
		require.Equal(t, firstArgs.TradeID.Bytes(), id)
		require.NotEqual(t, first.TradeID, second.TradeID)
	})

	t.Run("invalid", func(t *testing.T) {
		tests := []struct {
			name     string
			tradeID  string
			seller   string
			amount   string
			duration time.Duration
		}{
			{"invalid_trade_id", "0x1234", seller.Hex(), "1", time.Hour},
			{"invalid_seller", "", "0xabc", "1", time.Hour},
			{"invalid_amount", "", seller.Hex(), "1.123456789", time.Hour},
			{"negative_amount", "", seller.Hex(), "-1", time.Hour},
			{"short_duration", "", seller.Hex(), "1", time.Millisecond},
		}

		for _, tt := range tests {
			tt := tt
			t.Run(tt.name, func(t *testing.T) {
				_, _, err := newLockRequest(
					tt.tradeID, tt.seller, arbiter.Hex(), hashLock, tt.amount,
					tt.duration, 8,
				)
				require.Error(t, err)
			})
		}
	})
}

func TestTradeLifecycle(t *testing.T) {
	withTempState(t)
	server := newTestDaemon(t)

	require.NoError(t, run("config", "init", "--daemon", server.URL))
	require.NoError(t, run("keygen", "--save"))

	buyerKey, err := getPrivateKeyFromState()
	require.NoError(t, err)
	buyer := sigverify.PubkeyToAddress(buyerKey.PubKey())
	sellerKey, err := sigverify.NewPrivateKey()
	require.NoError(t, err)
	seller := sigverify.PubkeyToAddress(sellerKey.PubKey())
	arbiter := newAddress(t)

	preimage := sigverify.Keccak256([]byte("the preimage")).Bytes()
	var tradeID domain.TradeID
	copy(tradeID[:], sigverify.Keccak256([]byte("trade")).Bytes())

	require.NoError(t, run(
		"lock",
		"--trade_id", tradeID.String(),
		"--seller", seller.Hex(),
		"--arbiter", arbiter.Hex(),
		"--hash_lock", domain.HashPreimage(preimage).Hex(),
		"--duration", "2h",
		"--amount", "0.5",
	))

	client, err := getDaemonClient()
	require.NoError(t, err)

	var info httpinterface.TradeInfo
	require.NoError(t, client.get(tradePath(tradeID, ""), nil, &info))
	require.Equal(t, "LOCKED", info.Status)
	require.Equal(t, buyer.Hex(), info.Buyer)
	require.Equal(t, uint64(50000000), info.Amount)

	// same trade id again
	err = run(
		"lock",
		"--trade_id", tradeID.String(),
		"--seller", seller.Hex(),
		"--arbiter", arbiter.Hex(),
		"--hash_lock", domain.HashPreimage(preimage).Hex(),
		"--amount", "0.5",
	)
	require.Error(t, err)
	require.Contains(t, err.Error(), "DUPLICATE_TRADE_ID")

	digest := domain.PreimageDigest(tradeID, preimage)
	buyerSig, err := sigverify.Sign(digest, buyerKey)
	require.NoError(t, err)
	sellerSig, err := sigverify.Sign(digest, sellerKey)
	require.NoError(t, err)

	require.NoError(t, run(
		"withdraw",
		"--trade_id", tradeID.String(),
		"--preimage", hexEncode(preimage),
		"--signature_a", hexEncode(buyerSig),
		"--signature_b", hexEncode(sellerSig),
	))

	require.NoError(t, client.get(tradePath(tradeID, ""), nil, &info))
	require.Equal(t, "COMPLETED", info.Status)
	require.NotNil(t, info.Resolution)
	require.Equal(t, seller.Hex(), info.Resolution.Recipient)

	var balance httpinterface.BalanceResponse
	require.NoError(t, client.get("/balances/"+seller.Hex(), nil, &balance))
	require.Equal(t, uint64(50000000), balance.Balance)

	err = run("refund", "--trade_id", tradeID.String())
	require.Error(t, err)
	require.Contains(t, err.Error(), "INVALID_STATE")

	require.NoError(t, run("trades", "--status", "COMPLETED"))
	require.NoError(t, run("stats"))
	require.NoError(t, run(
		"sign", "dispute", "--trade_id", tradeID.String(), "--recipient", seller.Hex(),
	))
	require.NoError(t, run(
		"sign", "lock",
		"--seller", seller.Hex(),
		"--arbiter", arbiter.Hex(),
		"--hash_lock", domain.HashPreimage(preimage).Hex(),
		"--amount", "1",
	))
}

func TestWebhooks(t *testing.T) {
	withTempState(t)
	server := newTestDaemon(t)

	require.NoError(t, run("config", "init", "--daemon", server.URL))

	require.Error(t, run("webhook", "add", "--endpoint", "http://localhost:9999/hook"))
	require.Error(t, run(
		"webhook", "add", "--endpoint", "http://localhost:9999/hook",
		"--any_event", "--trade_locked_event",
	))
	require.NoError(t, run(
		"webhook", "add", "--endpoint", "http://localhost:9999/hook",
		"--trade_locked_event",
	))

	client, err := getDaemonClient()
	require.NoError(t, err)

	var list httpinterface.ListWebhooksResponse
	require.NoError(t, client.get("/webhooks", nil, &list))
	require.Len(t, list.Webhooks, 1)

	require.NoError(t, run("webhook", "list", "--trade_locked_event"))
	require.NoError(t, run("webhook", "remove", "--id", list.Webhooks[0].ID))

	err = run("webhook", "remove", "--id", list.Webhooks[0].ID)
	require.Error(t, err)
	require.Contains(t, err.Error(), "WEBHOOK_NOT_FOUND")
}

func TestDaemonClient(t *testing.T) {
	_, err := newDaemonClient("localhost:9945")
	require.Error(t, err)

	client, err := newDaemonClient("http://localhost:9945/")
	require.NoError(t, err)
	require.Equal(t, "http://localhost:9945/v1", client.baseURL)
}

func TestPreimage(t *testing.T) {
	preimage, err := sigverify.DecodeHex(randomPreimageHex())
	require.NoError(t, err)
	require.Len(t, preimage, domain.PreimageLength)
	require.NotEqual(t, randomPreimageHex(), randomPreimageHex())

	require.NoError(t, run("preimage"))
	require.NoError(t, run("preimage", "--preimage", hexEncode(make([]byte, domain.PreimageLength))))
	require.Error(t, run("preimage", "--preimage", "0x1234"))
	require.Error(t, run("preimage", "--preimage", "0xzz"))
}
