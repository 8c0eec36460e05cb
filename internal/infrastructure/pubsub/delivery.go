package pubsub

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/agentcore/escrowd/internal/core/ports"
)

const (
	// EventHeader carries the topic of the delivered trade event.
	EventHeader = "X-Escrow-Event"

	maxReplyBodySize = 512
)

type deliveryClient struct {
	http    *http.Client
	timeout time.Duration
}

func newDeliveryClient(timeout time.Duration) *deliveryClient {
	return &deliveryClient{&http.Client{Timeout: timeout}, timeout}
}

// deliver posts the json payload of a topic event to the subscription
// endpoint. Replies with a non 2xx status are returned as
// *ports.DeliveryError.
func (c *deliveryClient) deliver(sub Subscription, topic, payload string) error {
	req, err := http.NewRequest(
		http.MethodPost, sub.Endpoint, strings.NewReader(payload),
	)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(EventHeader, topic)

	if sub.IsSecured() {
		token, err := sub.authToken(time.Now(), c.timeout)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rs, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer rs.Body.Close()

	if rs.StatusCode >= http.StatusOK && rs.StatusCode < http.StatusMultipleChoices {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(rs.Body, maxReplyBodySize))
	return &ports.DeliveryError{
		SubscriptionID: sub.ID,
		StatusCode:     rs.StatusCode,
		Body:           strings.TrimSpace(string(body)),
	}
}
