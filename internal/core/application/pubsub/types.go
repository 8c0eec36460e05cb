package pubsub

import (
	"fmt"

	"github.com/agentcore/escrowd/internal/core/ports"
)

// WebhookEvent is the topic a webhook subscribes to.
type WebhookEvent string

const (
	EventTradeLocked    WebhookEvent = ports.TradeLockedTopic
	EventTradeWithdrawn WebhookEvent = ports.TradeWithdrawnTopic
	EventTradeRefunded  WebhookEvent = ports.TradeRefundedTopic
	EventAny            WebhookEvent = ports.AnyTopic
	// EventUnspecified is used to list the webhooks of all topics.
	EventUnspecified WebhookEvent = ports.UnspecifiedTopic
)

// ParseWebhookEvent returns the event with the given name.
func ParseWebhookEvent(name string) (WebhookEvent, error) {
	if !ports.IsValidTopic(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidWebhookEvent, name)
	}
	return WebhookEvent(name), nil
}

func (e WebhookEvent) IsUnspecified() bool {
	return e == EventUnspecified
}

type Webhook struct {
	Event    WebhookEvent
	Endpoint string
	Secret   string
}

type WebhookInfo struct {
	ID        string       `json:"id"`
	Event     WebhookEvent `json:"event"`
	Endpoint  string       `json:"endpoint"`
	IsSecured bool         `json:"is_secured"`
}

func webhookInfoFromSubscription(sub ports.Subscription) WebhookInfo {
	return WebhookInfo{
		ID:        sub.Id(),
		Event:     WebhookEvent(sub.Topic()),
		Endpoint:  sub.NotifyAt(),
		IsSecured: sub.IsSecured(),
	}
}
