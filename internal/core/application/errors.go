package application

import (
	"github.com/agentcore/escrowd/internal/core/application/escrow"
	"github.com/agentcore/escrowd/internal/core/application/pubsub"
)

var (
	// ErrServiceUnavailable is the error returned by the services in case of
	// internal errors.
	ErrServiceUnavailable = escrow.ErrServiceUnavailable
	// ErrWebhookManagerNotInitialized is returned when managing webhooks
	// without a pubsub service configured.
	ErrWebhookManagerNotInitialized = pubsub.ErrPubSubNotInitialized
	// ErrInvalidWebhookEvent ...
	ErrInvalidWebhookEvent = pubsub.ErrInvalidWebhookEvent
)
