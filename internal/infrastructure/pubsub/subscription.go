package pubsub

import (
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/agentcore/escrowd/internal/core/ports"
	"github.com/golang-jwt/jwt"
	"github.com/google/uuid"
)

// Subscription is a webhook endpoint registered for one of the trade topics,
// or for all of them with ports.AnyTopic.
type Subscription struct {
	ID        string `json:"id"`
	Event     string `json:"event"`
	Endpoint  string `json:"endpoint"`
	Secret    string `json:"secret,omitempty"`
	CreatedAt int64  `json:"created_at"`
}

type subscriptions []Subscription

func (s subscriptions) toPortable() []ports.Subscription {
	subs := make([]ports.Subscription, 0, len(s))
	for i := range s {
		sub := s[i]
		subs = append(subs, &sub)
	}
	return subs
}

// NewSubscription validates topic and endpoint and returns a subscription
// with a fresh id.
func NewSubscription(topic, endpoint, secret string) (*Subscription, error) {
	if !ports.IsValidTopic(topic) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTopic, topic)
	}
	u, err := url.ParseRequestURI(endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, ErrInvalidEndpoint
	}
	return &Subscription{
		ID:        uuid.New().String(),
		Event:     topic,
		Endpoint:  endpoint,
		Secret:    secret,
		CreatedAt: time.Now().Unix(),
	}, nil
}

func decodeSubscription(buf []byte) (*Subscription, error) {
	sub := &Subscription{}
	if err := json.Unmarshal(buf, sub); err != nil {
		return nil, fmt.Errorf("decoding subscription: %w", err)
	}
	return sub, nil
}

func (s *Subscription) encode() []byte {
	b, _ := json.Marshal(*s)
	return b
}

func (s *Subscription) Topic() string {
	return s.Event
}

func (s *Subscription) Id() string {
	return s.ID
}

func (s *Subscription) NotifyAt() string {
	return s.Endpoint
}

func (s *Subscription) IsSecured() bool {
	return len(s.Secret) > 0
}

// authToken returns an HS256 token signed with the subscription secret that
// the endpoint can verify to authenticate a delivery.
func (s *Subscription) authToken(now time.Time, ttl time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": s.ID,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	})
	return token.SignedString([]byte(s.Secret))
}
