package pubsub

import "github.com/agentcore/escrowd/internal/core/ports"

var (
	// ErrSubscriptionNotFound ...
	ErrSubscriptionNotFound = ports.ErrSubscriptionNotFound
	// ErrInvalidEndpoint ...
	ErrInvalidEndpoint = ports.ErrInvalidEndpoint
	// ErrInvalidTopic ...
	ErrInvalidTopic = ports.ErrInvalidTopic
)
