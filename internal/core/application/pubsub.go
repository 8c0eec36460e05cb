package application

import (
	"context"

	"github.com/agentcore/escrowd/internal/core/application/pubsub"
	"github.com/agentcore/escrowd/internal/core/ports"
)

type PubSubService interface {
	AddWebhook(ctx context.Context, webhook pubsub.Webhook) (string, error)
	RemoveWebhook(ctx context.Context, id string) error
	ListWebhooks(
		ctx context.Context, event pubsub.WebhookEvent,
	) ([]pubsub.WebhookInfo, error)
	Close()
}

func NewPubSubService(
	securePubSub ports.SecurePubSub, metrics ports.Metrics,
) PubSubService {
	return pubsub.NewService(securePubSub, metrics)
}
