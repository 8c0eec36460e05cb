package dbbadger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/agentcore/escrowd/internal/core/domain"
	"github.com/agentcore/escrowd/internal/core/ports"
	"github.com/dgraph-io/badger/v3"
	"github.com/dgraph-io/badger/v3/options"
	log "github.com/sirupsen/logrus"
	"github.com/timshannon/badgerhold/v4"
)

const (
	tradesDir = "trades"

	gcInterval     = 30 * time.Minute
	gcDiscardRatio = 0.5
)

type repoManager struct {
	store *badgerhold.Store
	quit  chan struct{}

	tradeRepository domain.TradeRepository
}

// NewRepoManager opens (or creates if not exists) the badger store on disk.
// An empty baseDbDir opens an in-memory store.
func NewRepoManager(
	baseDbDir string, logger badger.Logger,
) (ports.RepoManager, error) {
	var dbDir string
	if len(baseDbDir) > 0 {
		dbDir = filepath.Join(baseDbDir, tradesDir)
	}

	store, err := createDb(dbDir, logger)
	if err != nil {
		return nil, fmt.Errorf("opening trades db: %w", err)
	}

	rm := &repoManager{
		store:           store,
		quit:            make(chan struct{}),
		tradeRepository: NewTradeRepositoryImpl(store),
	}
	if len(dbDir) > 0 {
		go rm.runValueLogGC()
	}
	return rm, nil
}

func (d *repoManager) TradeRepository() domain.TradeRepository {
	return d.tradeRepository
}

func (d *repoManager) Close() {
	close(d.quit)
	d.store.Close()
}

func (d *repoManager) runValueLogGC() {
	ticker := time.NewTicker(gcInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := d.store.Badger().RunValueLogGC(gcDiscardRatio); err != nil &&
				err != badger.ErrNoRewrite {
				log.WithError(err).Warn("badger value log gc failed")
			}
		case <-d.quit:
			return
		}
	}
}

// JSONEncode is a custom JSON based encoder for badger
func JSONEncode(value interface{}) ([]byte, error) {
	var buff bytes.Buffer

	en := json.NewEncoder(&buff)

	err := en.Encode(value)
	if err != nil {
		return nil, err
	}

	return buff.Bytes(), nil
}

// JSONDecode is a custom JSON based decoder for badger
func JSONDecode(data []byte, value interface{}) error {
	return json.NewDecoder(bytes.NewReader(data)).Decode(value)
}

func createDb(dbDir string, logger badger.Logger) (*badgerhold.Store, error) {
	isInMemory := len(dbDir) <= 0

	opts := badger.DefaultOptions(dbDir)
	opts.Logger = logger

	if isInMemory {
		opts.InMemory = true
	} else {
		opts.Compression = options.ZSTD
	}

	return badgerhold.Open(badgerhold.Options{
		Encoder:          JSONEncode,
		Decoder:          JSONDecode,
		SequenceBandwith: 100,
		Options:          opts,
	})
}
