package notifications

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/angelmondragon/storefront/internal/cart"
	"github.com/angelmondragon/storefront/pkg/enums"
	"github.com/angelmondragon/storefront/pkg/logger"
)

const defaultPublishTimeout = 5 * time.Second

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

// CartEvent is the analytics payload published for each cart change.
type CartEvent struct {
	EventID    string            `json:"event_id"`
	SessionID  string            `json:"session_id"`
	Outcome    enums.CartOutcome `json:"outcome"`
	ProductID  string            `json:"product_id,omitempty"`
	Quantity   int               `json:"quantity,omitempty"`
	Available  int               `json:"available,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// Publisher forwards item changes and capacity rejections to Pub/Sub.
// Notify never waits for the broker; acknowledgements are collected in the
// background and failures are logged.
type Publisher struct {
	pub      publisher
	logg     *logger.Logger
	timeout  time.Duration
	now      func() time.Time
	inflight sync.WaitGroup
}

// NewPublisher wraps a topic publisher. A nil topic yields a Publisher that
// drops every event.
func NewPublisher(topic *gcppubsub.Publisher, logg *logger.Logger) *Publisher {
	var pub publisher
	if topic != nil {
		pub = &gcpPublisher{Publisher: topic}
	}
	return newPublisher(pub, logg)
}

func newPublisher(pub publisher, logg *logger.Logger) *Publisher {
	return &Publisher{pub: pub, logg: logg, timeout: defaultPublishTimeout, now: time.Now}
}

func (p *Publisher) Notify(ctx context.Context, sessionID string, outcome cart.Outcome) {
	if p == nil || p.pub == nil {
		return
	}
	if !outcome.Mutated() && !outcome.Rejected() {
		return
	}

	event := CartEvent{
		EventID:    uuid.NewString(),
		SessionID:  sessionID,
		Outcome:    outcome.Kind,
		ProductID:  outcome.ProductID,
		Quantity:   outcome.Quantity,
		Available:  outcome.Available,
		OccurredAt: p.now().UTC(),
	}
	data, err := json.Marshal(event)
	if err != nil {
		p.logg.Error(ctx, "encode cart event", err)
		return
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	result := p.pub.Publish(pubCtx, &gcppubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"event_id":   event.EventID,
			"event_type": "cart." + outcome.Kind.String(),
		},
	})
	p.inflight.Add(1)
	go func() {
		defer p.inflight.Done()
		defer cancel()
		if _, err := result.Get(pubCtx); err != nil {
			p.logg.Error(p.logg.WithField(pubCtx, "event_id", event.EventID), "publish cart event", err)
		}
	}()
}

// Wait blocks until every event handed to Notify has been acknowledged or
// has timed out.
func (p *Publisher) Wait() {
	if p == nil {
		return
	}
	p.inflight.Wait()
}

type gcpPublisher struct {
	*gcppubsub.Publisher
}

func (p *gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	return p.Publisher.Publish(ctx, msg)
}
