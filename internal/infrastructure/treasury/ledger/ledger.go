package ledger

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/agentcore/escrowd/internal/core/domain"
	"github.com/agentcore/escrowd/internal/core/ports"
	bolt "go.etcd.io/bbolt"
)

const (
	dbFile = "treasury.db"
)

var (
	escrowsBucket  = []byte("escrows")
	balancesBucket = []byte("balances")
	totalsBucket   = []byte("totals")

	depositedKey = []byte("deposited")
	paidOutKey   = []byte("paidout")
)

type escrow struct {
	Depositor   domain.Address
	Amount      uint64
	Recipient   domain.Address
	Method      domain.WithdrawalMethod
	Transferred bool
	CreatedAt   int64
	SettledAt   int64
}

type treasury struct {
	db    *bolt.DB
	clock ports.Clock
}

// NewTreasury opens (or creates if not exists) the bolt backed ledger in
// datadir. Escrows and transfers are timestamped with clock, the system one
// if nil.
func NewTreasury(datadir string, clock ports.Clock) (ports.Treasury, error) {
	if clock == nil {
		clock = ports.SystemClock()
	}
	if err := os.MkdirAll(datadir, 0700); err != nil {
		return nil, err
	}

	db, err := bolt.Open(
		filepath.Join(datadir, dbFile), 0600, &bolt.Options{Timeout: time.Second},
	)
	if err != nil {
		return nil, fmt.Errorf("opening treasury db: %w", err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{
			escrowsBucket, balancesBucket, totalsBucket,
		} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		db.Close()
		return nil, err
	}

	return &treasury{db, clock}, nil
}

func (t *treasury) Escrow(
	_ context.Context, tradeID domain.TradeID,
	depositor domain.Address, amount uint64,
) error {
	return t.db.Update(func(tx *bolt.Tx) error {
		escrows := tx.Bucket(escrowsBucket)
		if escrows.Get(tradeID[:]) != nil {
			return ports.ErrAlreadyEscrowed
		}

		buf, err := json.Marshal(escrow{
			Depositor: depositor,
			Amount:    amount,
			CreatedAt: t.clock.Now().Unix(),
		})
		if err != nil {
			return err
		}
		if err := escrows.Put(tradeID[:], buf); err != nil {
			return err
		}
		return addToCounter(tx.Bucket(totalsBucket), depositedKey, amount)
	})
}

func (t *treasury) Void(_ context.Context, tradeID domain.TradeID) error {
	return t.db.Update(func(tx *bolt.Tx) error {
		escrows := tx.Bucket(escrowsBucket)
		e, err := getEscrow(escrows, tradeID)
		if err != nil {
			return err
		}
		if e.Transferred {
			return ports.ErrAlreadyTransferred
		}

		if err := escrows.Delete(tradeID[:]); err != nil {
			return err
		}
		return subFromCounter(tx.Bucket(totalsBucket), depositedKey, e.Amount)
	})
}

func (t *treasury) Transfer(_ context.Context, payout domain.Payout) error {
	return t.db.Update(func(tx *bolt.Tx) error {
		escrows := tx.Bucket(escrowsBucket)
		e, err := getEscrow(escrows, payout.TradeID)
		if err != nil {
			return err
		}
		if e.Transferred {
			return ports.ErrAlreadyTransferred
		}
		if e.Amount != payout.Amount {
			return fmt.Errorf(
				"%w: escrowed %d, requested %d",
				ports.ErrAmountMismatch, e.Amount, payout.Amount,
			)
		}

		e.Transferred = true
		e.Recipient = payout.Recipient
		e.Method = payout.Method
		e.SettledAt = t.clock.Now().Unix()
		buf, err := json.Marshal(e)
		if err != nil {
			return err
		}
		if err := escrows.Put(payout.TradeID[:], buf); err != nil {
			return err
		}

		balances := tx.Bucket(balancesBucket)
		if err := addToCounter(
			balances, payout.Recipient[:], payout.Amount,
		); err != nil {
			return err
		}
		return addToCounter(tx.Bucket(totalsBucket), paidOutKey, payout.Amount)
	})
}

func (t *treasury) Balance(
	_ context.Context, addr domain.Address,
) (uint64, error) {
	var balance uint64
	err := t.db.View(func(tx *bolt.Tx) error {
		balance = getCounter(tx.Bucket(balancesBucket), addr[:])
		return nil
	})
	return balance, err
}

func (t *treasury) EscrowedBalance(
	_ context.Context, tradeID domain.TradeID,
) (uint64, error) {
	var amount uint64
	err := t.db.View(func(tx *bolt.Tx) error {
		e, err := getEscrow(tx.Bucket(escrowsBucket), tradeID)
		if err != nil {
			return err
		}
		if !e.Transferred {
			amount = e.Amount
		}
		return nil
	})
	return amount, err
}

func (t *treasury) Totals(_ context.Context) (ports.TreasuryTotals, error) {
	var totals ports.TreasuryTotals
	err := t.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(totalsBucket)
		totals.Deposited = getCounter(bucket, depositedKey)
		totals.PaidOut = getCounter(bucket, paidOutKey)
		totals.Held = totals.Deposited - totals.PaidOut
		return nil
	})
	return totals, err
}

func (t *treasury) Close() error {
	return t.db.Close()
}

func getEscrow(bucket *bolt.Bucket, tradeID domain.TradeID) (*escrow, error) {
	buf := bucket.Get(tradeID[:])
	if buf == nil {
		return nil, ports.ErrEscrowNotFound
	}
	e := &escrow{}
	if err := json.Unmarshal(buf, e); err != nil {
		return nil, err
	}
	return e, nil
}

func getCounter(bucket *bolt.Bucket, key []byte) uint64 {
	buf := bucket.Get(key)
	if len(buf) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(buf)
}

func addToCounter(bucket *bolt.Bucket, key []byte, amount uint64) error {
	current := getCounter(bucket, key)
	if current > current+amount {
		return fmt.Errorf("counter overflow")
	}
	return putCounter(bucket, key, current+amount)
}

func subFromCounter(bucket *bolt.Bucket, key []byte, amount uint64) error {
	current := getCounter(bucket, key)
	if amount > current {
		return fmt.Errorf("counter underflow")
	}
	return putCounter(bucket, key, current-amount)
}

func putCounter(bucket *bolt.Bucket, key []byte, value uint64) error {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, value)
	return bucket.Put(key, buf)
}
