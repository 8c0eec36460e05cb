package ports

import (
	"errors"
	"fmt"
)

const (
	TradeLockedTopic    = "TRADE_LOCKED"
	TradeWithdrawnTopic = "TRADE_WITHDRAWN"
	TradeRefundedTopic  = "TRADE_REFUNDED"
	AnyTopic            = "*"
	UnspecifiedTopic    = ""
)

// IsValidTopic returns whether a subscription can be made for topic.
func IsValidTopic(topic string) bool {
	switch topic {
	case TradeLockedTopic, TradeWithdrawnTopic, TradeRefundedTopic, AnyTopic:
		return true
	default:
		return false
	}
}

type Subscription interface {
	Topic() string
	Id() string
	IsSecured() bool
	NotifyAt() string
}

// SecurePubSub defines the methods of a pubsub service whose subscribers
// can optionally require messages to be authenticated with a shared secret.
type SecurePubSub interface {
	// Subscribe adds a new subscription for the requested topic.
	Subscribe(topic, endpoint, secret string) (string, error)
	// Unsubscribe removes some client defined by its id for a topic.
	Unsubscribe(topic, id string) error
	// ListSubscriptionsForTopic returns the info of all clients subscribed for
	// a certain topic.
	ListSubscriptionsForTopic(topic string) []Subscription
	// Publish publishes a message for a certain topic. All clients subscribed
	// for such topic will receive the message.
	Publish(topic string, message string) error
	// Close should be used to gracefully close the connection with the store.
	Close() error
}

var (
	// ErrSubscriptionNotFound is returned when removing an unknown
	// subscription.
	ErrSubscriptionNotFound = errors.New("webhook not found")
	// ErrInvalidEndpoint is returned when subscribing with an endpoint that
	// is not a valid http(s) URI.
	ErrInvalidEndpoint = errors.New(
		"invalid webhook endpoint, must be a valid http(s) URI",
	)
	// ErrInvalidTopic is returned when subscribing for an unknown topic.
	ErrInvalidTopic = errors.New("invalid webhook event type")
)

// DeliveryError is returned by Publish when a webhook endpoint replies with
// a non 2xx status.
type DeliveryError struct {
	SubscriptionID string
	StatusCode     int
	Body           string
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf(
		"webhook %s responded with status %d: %s",
		e.SubscriptionID, e.StatusCode, e.Body,
	)
}
