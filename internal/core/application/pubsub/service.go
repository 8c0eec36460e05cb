package pubsub

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/agentcore/escrowd/internal/core/domain"
	"github.com/agentcore/escrowd/internal/core/ports"
)

var (
	// ErrInvalidWebhookEvent ...
	ErrInvalidWebhookEvent = ports.ErrInvalidTopic
	// ErrPubSubNotInitialized is returned when managing webhooks without an
	// underlying pubsub service.
	ErrPubSubNotInitialized = errors.New("webhook manager is not initialized")
)

type Service struct {
	pubsub  ports.SecurePubSub
	metrics ports.Metrics
}

// NewService returns a service that publishes trade events to webhooks. A
// nil pubsub is allowed and makes every publication a no-op.
func NewService(pubsub ports.SecurePubSub, metrics ports.Metrics) *Service {
	if metrics == nil {
		metrics = ports.NoopMetrics()
	}
	return &Service{pubsub, metrics}
}

func (s *Service) AddWebhook(_ context.Context, webhook Webhook) (string, error) {
	if s.pubsub == nil {
		return "", ErrPubSubNotInitialized
	}
	if _, err := ParseWebhookEvent(string(webhook.Event)); err != nil {
		return "", err
	}
	return s.pubsub.Subscribe(
		string(webhook.Event), webhook.Endpoint, webhook.Secret,
	)
}

func (s *Service) RemoveWebhook(_ context.Context, id string) error {
	if s.pubsub == nil {
		return ErrPubSubNotInitialized
	}
	return s.pubsub.Unsubscribe(ports.UnspecifiedTopic, id)
}

func (s *Service) ListWebhooks(
	_ context.Context, event WebhookEvent,
) ([]WebhookInfo, error) {
	if s.pubsub == nil {
		return nil, ErrPubSubNotInitialized
	}
	if !event.IsUnspecified() {
		if _, err := ParseWebhookEvent(string(event)); err != nil {
			return nil, err
		}
	}

	subs := s.pubsub.ListSubscriptionsForTopic(string(event))
	webhooks := make([]WebhookInfo, 0, len(subs))
	for _, sub := range subs {
		webhooks = append(webhooks, webhookInfoFromSubscription(sub))
	}
	return webhooks, nil
}

func (s *Service) PublishTradeLockedEvent(event domain.LockedEvent) error {
	return s.publish(EventTradeLocked, getLockedPayload(event))
}

func (s *Service) PublishTradeWithdrawnEvent(event domain.WithdrawnEvent) error {
	return s.publish(EventTradeWithdrawn, getWithdrawnPayload(event))
}

func (s *Service) PublishTradeRefundedEvent(event domain.RefundedEvent) error {
	return s.publish(EventTradeRefunded, getRefundedPayload(event))
}

func (s *Service) Close() {
	if s.pubsub != nil {
		//nolint
		s.pubsub.Close()
	}
}

func (s *Service) publish(event WebhookEvent, payload map[string]interface{}) error {
	if s.pubsub == nil {
		return nil
	}
	payload["event"] = event
	message, _ := json.Marshal(payload)

	err := s.pubsub.Publish(string(event), string(message))
	s.metrics.ObserveWebhookDelivery(err)
	return err
}
