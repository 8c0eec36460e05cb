package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/agentcore/escrowd/internal/config"
	"github.com/agentcore/escrowd/internal/core/application"
	"github.com/agentcore/escrowd/internal/core/ports"
	websocketnotifier "github.com/agentcore/escrowd/internal/infrastructure/notifier/websocket"
	"github.com/agentcore/escrowd/internal/infrastructure/pubsub"
	postgresdb "github.com/agentcore/escrowd/internal/infrastructure/storage/db/pg"
	"github.com/agentcore/escrowd/internal/infrastructure/treasury/ledger"
	httpinterface "github.com/agentcore/escrowd/internal/interfaces/http"
	"github.com/agentcore/escrowd/pkg/sigverify"
	"github.com/agentcore/escrowd/pkg/stats"
	log "github.com/sirupsen/logrus"
)

func main() {
	if err := config.InitConfig(); err != nil {
		log.WithError(err).Fatal("failed to load config")
	}
	log.SetLevel(config.GetLogLevel())

	datadir := config.GetDatadir()
	dbType := config.GetString(config.DBTypeKey)
	address := fmt.Sprintf(":%d", config.GetInt(config.ListeningPortKey))
	profilerEnabled := config.GetBool(config.EnableProfilerKey)
	statsInterval := time.Duration(config.GetInt(config.StatsIntervalKey)) * time.Second
	payoutRetryInterval := config.GetDuration(config.PayoutRetryIntervalKey)

	metrics := stats.NewMetrics()

	treasury, err := ledger.NewTreasury(
		filepath.Join(datadir, config.TreasuryLocation), ports.SystemClock(),
	)
	if err != nil {
		log.WithError(err).Fatal("failed to open treasury")
	}

	securePubSub, err := pubsub.NewService(pubsub.ServiceOpts{
		Datadir:        filepath.Join(datadir, config.PubSubLocation),
		RequestTimeout: config.GetDuration(config.WebhookTimeoutKey),
		RateLimit:      config.GetInt(config.WebhookRateLimitKey),
	})
	if err != nil {
		log.WithError(err).Fatal("failed to open webhook store")
	}

	notifier := websocketnotifier.NewNotifier(websocketnotifier.NotifierOpts{
		HeartbeatInterval: config.GetDuration(config.WsHeartbeatIntervalKey),
		OnClientsChange:   metrics.SetWsClients,
	})

	verifier := sigverify.NewVerifier()
	appConfig := &application.Config{
		DBType:          dbType,
		DBConfig:        dbConfig(dbType, datadir),
		Treasury:        treasury,
		SecurePubSub:    securePubSub,
		Notifier:        notifier,
		Verifier:        verifier,
		Clock:           ports.SystemClock(),
		Metrics:         metrics,
		MinLockDuration: config.GetDuration(config.MinLockDurationKey),
		MaxLockDuration: config.GetDuration(config.MaxLockDurationKey),
	}
	if err := appConfig.Validate(); err != nil {
		log.WithError(err).Fatal("invalid app config")
	}

	escrowSvc := appConfig.EscrowService()
	pubsubSvc := appConfig.PubSubService()

	svc, err := httpinterface.NewService(httpinterface.ServiceOpts{
		Address:         address,
		EscrowSvc:       escrowSvc,
		PubSubSvc:       pubsubSvc,
		WsHandler:       notifier,
		Gatherer:        metrics.Registry(),
		Verifier:        verifier,
		AmountPrecision: int32(config.GetInt(config.AmountPrecisionKey)),
	})
	if err != nil {
		log.WithError(err).Fatal("failed to create http interface")
	}

	ctx, cancel := context.WithCancel(context.Background())

	if profilerEnabled {
		dumpPath := filepath.Join(
			datadir, config.ProfilerLocation,
			fmt.Sprintf("metrics-%d.txt", time.Now().Unix()),
		)
		stats.EnableMemoryStatistics(ctx, statsInterval, metrics.Registry(), dumpPath)
	}

	settled := make(chan struct{})
	go func() {
		defer close(settled)
		settlePendingPayouts(ctx, escrowSvc, payoutRetryInterval)
	}()

	notifier.Start()

	log.Debug("starting daemon")
	if err := svc.Start(); err != nil {
		log.WithError(err).Fatal("failed to start http interface")
	}
	log.Infof("escrow daemon listening on %s", address)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	<-sigChan

	log.Info("shutting down daemon")

	svc.Stop()
	notifier.Stop()
	cancel()
	<-settled

	pubsubSvc.Close()
	appConfig.RepoManager().Close()
	if err := treasury.Close(); err != nil {
		log.WithError(err).Warn("failed to close treasury")
	}

	log.Debug("exiting")
}

func dbConfig(dbType, datadir string) interface{} {
	switch dbType {
	case application.DBBadger:
		return filepath.Join(datadir, config.DbLocation)
	case application.DBPostgres:
		return postgresdb.DbConfig{
			DataSourceURL:      config.GetString(config.PgConnectAddrKey),
			MigrationSourceURL: config.GetString(config.PgMigrationSourceKey),
		}
	default:
		return nil
	}
}

// settlePendingPayouts retries the payouts left unsettled by a previous run
// right away and then at every tick, until the context is done.
func settlePendingPayouts(
	ctx context.Context, svc application.EscrowService, interval time.Duration,
) {
	settle := func() {
		if _, err := svc.SettlePendingPayouts(ctx); err != nil {
			log.WithError(err).Warn("failed to settle pending payouts")
		}
	}

	settle()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			settle()
		case <-ctx.Done():
			return
		}
	}
}
