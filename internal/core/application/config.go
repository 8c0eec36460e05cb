package application

import (
	"fmt"
	"time"

	"github.com/agentcore/escrowd/internal/core/application/escrow"
	"github.com/agentcore/escrowd/internal/core/application/pubsub"
	"github.com/agentcore/escrowd/internal/core/domain"
	"github.com/agentcore/escrowd/internal/core/ports"
	dbbadger "github.com/agentcore/escrowd/internal/infrastructure/storage/db/badger"
	"github.com/agentcore/escrowd/internal/infrastructure/storage/db/inmemory"
	postgresdb "github.com/agentcore/escrowd/internal/infrastructure/storage/db/pg"
	"github.com/agentcore/escrowd/pkg/sigverify"
	log "github.com/sirupsen/logrus"
)

type Config struct {
	DBType string
	// DBConfig is the datadir for badger, a postgresdb.DbConfig for postgres
	// and is ignored for inmemory.
	DBConfig interface{}

	Treasury     ports.Treasury
	SecurePubSub ports.SecurePubSub
	Notifier     ports.Notifier
	Verifier     domain.SignatureVerifier
	Clock        ports.Clock
	Metrics      ports.Metrics

	MinLockDuration time.Duration
	MaxLockDuration time.Duration

	repo   ports.RepoManager
	pubsub *pubsub.Service
	escrow EscrowService
}

func (c *Config) Validate() error {
	if _, ok := SupportedDBType[c.DBType]; !ok {
		return fmt.Errorf("unsupported db type %s", c.DBType)
	}
	if c.Treasury == nil {
		return fmt.Errorf("missing treasury")
	}
	if _, err := c.repoManager(); err != nil {
		return err
	}
	if _, err := c.escrowService(); err != nil {
		return err
	}
	return nil
}

func (c *Config) RepoManager() ports.RepoManager {
	svc, _ := c.repoManager()
	return svc
}

func (c *Config) PubSubService() PubSubService {
	return c.pubsubService()
}

func (c *Config) EscrowService() EscrowService {
	svc, _ := c.escrowService()
	return svc
}

func (c *Config) repoManager() (ports.RepoManager, error) {
	if c.repo != nil {
		return c.repo, nil
	}

	var (
		repoManager ports.RepoManager
		err         error
	)
	switch c.DBType {
	case DBInMemory:
		repoManager = inmemory.NewRepoManager()
	case DBBadger:
		datadir, _ := c.DBConfig.(string)
		repoManager, err = dbbadger.NewRepoManager(datadir, log.New())
	case DBPostgres:
		dbConfig, ok := c.DBConfig.(postgresdb.DbConfig)
		if !ok {
			return nil, fmt.Errorf("invalid postgres config")
		}
		repoManager, err = postgresdb.NewService(dbConfig)
	default:
		return nil, fmt.Errorf("unsupported db type %s", c.DBType)
	}
	if err != nil {
		return nil, err
	}
	c.repo = repoManager
	return c.repo, nil
}

func (c *Config) pubsubService() *pubsub.Service {
	if c.pubsub == nil {
		c.pubsub = pubsub.NewService(c.SecurePubSub, c.Metrics)
	}
	return c.pubsub
}

func (c *Config) escrowService() (EscrowService, error) {
	if c.escrow != nil {
		return c.escrow, nil
	}

	repo, err := c.repoManager()
	if err != nil {
		return nil, err
	}
	verifier := c.Verifier
	if verifier == nil {
		verifier = sigverify.NewVerifier()
	}

	svc, err := escrow.NewService(escrow.ServiceOpts{
		RepoManager:     repo,
		Treasury:        c.Treasury,
		PubSub:          c.pubsubService(),
		Notifier:        c.Notifier,
		Verifier:        verifier,
		Clock:           c.Clock,
		Metrics:         c.Metrics,
		MinLockDuration: c.MinLockDuration,
		MaxLockDuration: c.MaxLockDuration,
	})
	if err != nil {
		return nil, err
	}
	c.escrow = svc
	return c.escrow, nil
}
