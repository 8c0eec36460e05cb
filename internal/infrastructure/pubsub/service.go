package pubsub

import (
	"fmt"
	"sort"
	"time"

	"github.com/agentcore/escrowd/internal/core/ports"
	"github.com/agentcore/escrowd/pkg/circuitbreaker"
	"github.com/sony/gobreaker"
	"go.uber.org/ratelimit"
	"golang.org/x/sync/errgroup"
)

const (
	defaultRequestTimeout = 15 * time.Second
	defaultRateLimit      = 50
)

type ServiceOpts struct {
	Datadir string
	// RequestTimeout bounds every webhook invocation.
	RequestTimeout time.Duration
	// RateLimit is the max number of webhook invocations per second.
	RateLimit int
}

type service struct {
	store   *store
	client  *deliveryClient
	cb      *gobreaker.CircuitBreaker
	limiter ratelimit.Limiter
}

func NewService(opts ServiceOpts) (ports.SecurePubSub, error) {
	if len(opts.Datadir) <= 0 {
		return nil, fmt.Errorf("missing datadir")
	}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	rate := opts.RateLimit
	if rate <= 0 {
		rate = defaultRateLimit
	}

	store, err := newStore(opts.Datadir)
	if err != nil {
		return nil, err
	}

	return &service{
		store:   store,
		client:  newDeliveryClient(timeout),
		cb:      circuitbreaker.NewCircuitBreaker("webhooks"),
		limiter: ratelimit.New(rate),
	}, nil
}

func (ws *service) Subscribe(topic, endpoint, secret string) (string, error) {
	sub, err := NewSubscription(topic, endpoint, secret)
	if err != nil {
		return "", err
	}

	if err := ws.store.addSubscription(sub); err != nil {
		return "", err
	}
	return sub.ID, nil
}

func (ws *service) Unsubscribe(_, id string) error {
	return ws.store.removeSubscription(id)
}

func (ws *service) ListSubscriptionsForTopic(topic string) []ports.Subscription {
	return ws.listSubscriptionsForTopic(topic).toPortable()
}

func (ws *service) Publish(topic string, message string) error {
	subs := ws.listSubscriptionsForTopic(topic)

	eg := &errgroup.Group{}
	for i := range subs {
		sub := subs[i]
		eg.Go(func() error { return ws.deliver(sub, topic, message) })
	}
	return eg.Wait()
}

func (ws *service) Close() error {
	return ws.store.close()
}

func (ws *service) listSubscriptionsForTopic(topic string) subscriptions {
	var subs subscriptions
	if topic == ports.UnspecifiedTopic {
		subs = ws.store.getAllSubscriptions()
	} else {
		subs = ws.store.getSubscriptionsForTopic(topic)
		if topic != ports.AnyTopic {
			subs = append(subs, ws.store.getSubscriptionsForTopic(ports.AnyTopic)...)
		}
	}
	sort.SliceStable(subs, func(i, j int) bool {
		return subs[i].ID < subs[j].ID
	})
	return subs
}

func (ws *service) deliver(sub Subscription, topic, payload string) error {
	ws.limiter.Take()

	_, err := ws.cb.Execute(func() (interface{}, error) {
		return nil, ws.client.deliver(sub, topic, payload)
	})
	return err
}
