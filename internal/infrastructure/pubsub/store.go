package pubsub

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

const dbFile = "pubsub.db"

var (
	subsBucket        = []byte("subscriptions")
	subsByEventBucket = []byte("subscriptionsbyevent")
)

// store persists subscriptions by id and indexes them by topic, each topic
// being a nested bucket listing the ids of its subscriptions.
type store struct {
	db *bolt.DB
}

func newStore(datadir string) (*store, error) {
	if err := os.MkdirAll(datadir, 0700); err != nil {
		return nil, err
	}

	db, err := bolt.Open(
		filepath.Join(datadir, dbFile), 0600, &bolt.Options{Timeout: time.Second},
	)
	if err != nil {
		return nil, fmt.Errorf("opening pubsub db: %w", err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(subsBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(subsByEventBucket)
		return err
	}); err != nil {
		db.Close()
		return nil, err
	}
	return &store{db}, nil
}

func (s *store) addSubscription(sub *Subscription) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		subs := tx.Bucket(subsBucket)
		if subs.Get([]byte(sub.ID)) != nil {
			return nil
		}
		if err := subs.Put([]byte(sub.ID), sub.encode()); err != nil {
			return err
		}

		byEvent, err := tx.Bucket(subsByEventBucket).
			CreateBucketIfNotExists([]byte(sub.Event))
		if err != nil {
			return err
		}
		return byEvent.Put([]byte(sub.ID), []byte{})
	})
}

func (s *store) removeSubscription(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		subs := tx.Bucket(subsBucket)
		buf := subs.Get([]byte(id))
		if buf == nil {
			return ErrSubscriptionNotFound
		}
		sub, err := decodeSubscription(buf)
		if err != nil {
			return err
		}
		if err := subs.Delete([]byte(id)); err != nil {
			return err
		}

		events := tx.Bucket(subsByEventBucket)
		byEvent := events.Bucket([]byte(sub.Event))
		if byEvent == nil {
			return nil
		}
		if err := byEvent.Delete([]byte(id)); err != nil {
			return err
		}
		if k, _ := byEvent.Cursor().First(); k == nil {
			return events.DeleteBucket([]byte(sub.Event))
		}
		return nil
	})
}

func (s *store) getSubscriptionsForTopic(topic string) subscriptions {
	subs := make(subscriptions, 0)
	//nolint
	s.db.View(func(tx *bolt.Tx) error {
		byEvent := tx.Bucket(subsByEventBucket).Bucket([]byte(topic))
		if byEvent == nil {
			return nil
		}
		all := tx.Bucket(subsBucket)
		return byEvent.ForEach(func(id, _ []byte) error {
			if sub, err := decodeSubscription(all.Get(id)); err == nil {
				subs = append(subs, *sub)
			}
			return nil
		})
	})
	return subs
}

func (s *store) getAllSubscriptions() subscriptions {
	subs := make(subscriptions, 0)
	//nolint
	s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(subsBucket).ForEach(func(_, buf []byte) error {
			if sub, err := decodeSubscription(buf); err == nil {
				subs = append(subs, *sub)
			}
			return nil
		})
	})
	return subs
}

func (s *store) close() error {
	return s.db.Close()
}
