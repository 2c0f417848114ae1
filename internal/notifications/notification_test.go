package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/angelmondragon/storefront/internal/cart"
	"github.com/angelmondragon/storefront/pkg/enums"
	"github.com/angelmondragon/storefront/pkg/logger"
)

func TestFromOutcomeMessages(t *testing.T) {
	cases := []struct {
		outcome cart.Outcome
		level   enums.NotificationLevel
		message string
	}{
		{cart.Outcome{Kind: enums.CartOutcomeAdded, ProductName: "Blue Dream"}, enums.NotificationLevelSuccess, "Added Blue Dream to cart"},
		{cart.Outcome{Kind: enums.CartOutcomeQuantityUpdated, ProductName: "Blue Dream"}, enums.NotificationLevelSuccess, "Updated Blue Dream quantity"},
		{cart.Outcome{Kind: enums.CartOutcomeRemoved, ProductID: "p9"}, enums.NotificationLevelInfo, "Removed p9 from cart"},
		{cart.Outcome{Kind: enums.CartOutcomeSellingPriceUpdated, ProductName: "Kush"}, enums.NotificationLevelInfo, "Updated Kush selling price"},
		{cart.Outcome{Kind: enums.CartOutcomeCleared}, enums.NotificationLevelInfo, "Cart cleared"},
		{cart.Outcome{Kind: enums.CartOutcomeRejectedCapacity, Available: 2}, enums.NotificationLevelWarning, "Only 2 items available"},
		{cart.Outcome{Kind: enums.CartOutcomeSubmitted, Quantity: 2}, enums.NotificationLevelInfo, "Ordered items removed, 2 left in cart"},
	}
	for _, tc := range cases {
		n, ok := FromOutcome(tc.outcome)
		if !ok {
			t.Fatalf("%s: expected a notification", tc.outcome.Kind)
		}
		if n.Level != tc.level || n.Message != tc.message {
			t.Fatalf("%s: got %s %q", tc.outcome.Kind, n.Level, n.Message)
		}
	}

	for _, kind := range []enums.CartOutcome{enums.CartOutcomeNoop, enums.CartOutcomeVisibilityChanged} {
		if _, ok := FromOutcome(cart.Outcome{Kind: kind}); ok {
			t.Fatalf("%s should be silent", kind)
		}
	}
}

func TestRecorderCollectsPerContext(t *testing.T) {
	ctx, rec := WithRecorder(context.Background())
	sink := Multi{ContextRecorder{}, nil}

	sink.Notify(ctx, "s1", cart.Outcome{Kind: enums.CartOutcomeAdded, ProductName: "A"})
	sink.Notify(ctx, "s1", cart.Outcome{Kind: enums.CartOutcomeNoop})
	sink.Notify(context.Background(), "s1", cart.Outcome{Kind: enums.CartOutcomeCleared})

	notices := rec.Notices()
	if len(notices) != 1 || notices[0].Message != "Added A to cart" {
		t.Fatalf("unexpected notices %+v", notices)
	}
	if RecorderFrom(context.Background()) != nil {
		t.Fatal("expected no recorder on a bare context")
	}
	var nilRec *Recorder
	if nilRec.Notices() != nil {
		t.Fatal("nil recorder should return nothing")
	}
}

func TestLogNotifierWarnsOnRejection(t *testing.T) {
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("debug"), Output: &buf})
	n := NewLogNotifier(logg)

	n.Notify(context.Background(), "s1", cart.Outcome{Kind: enums.CartOutcomeRejectedCapacity, ProductID: "p1", Available: 1})
	n.Notify(context.Background(), "s1", cart.Outcome{Kind: enums.CartOutcomeVisibilityChanged})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one log line, got %d: %s", len(lines), buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("invalid log json: %v", err)
	}
	if entry["level"] != "warn" || entry["message"] != "Only 1 items available" {
		t.Fatalf("unexpected entry %v", entry)
	}
	if entry["session_id"] != "s1" || entry["product_id"] != "p1" {
		t.Fatalf("missing context fields %v", entry)
	}
}

type fakePublisher struct {
	msgs []*gcppubsub.Message
	err  error
}

func (f *fakePublisher) Publish(_ context.Context, msg *gcppubsub.Message) publishResult {
	f.msgs = append(f.msgs, msg)
	return fakePublishResult{err: f.err}
}

type fakePublishResult struct {
	err error
}

func (r fakePublishResult) Get(context.Context) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	return "server-id", nil
}

func TestPublisherPublishesChanges(t *testing.T) {
	fake := &fakePublisher{}
	p := newPublisher(fake, nil)
	fixed := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return fixed }

	p.Notify(context.Background(), "s1", cart.Outcome{Kind: enums.CartOutcomeAdded, ProductID: "p1", Quantity: 2})
	p.Notify(context.Background(), "s1", cart.Outcome{Kind: enums.CartOutcomeRejectedCapacity, ProductID: "p1", Quantity: 3, Available: 2})
	p.Notify(context.Background(), "s1", cart.Outcome{Kind: enums.CartOutcomeVisibilityChanged, IsOpen: true})
	p.Notify(context.Background(), "s1", cart.Outcome{Kind: enums.CartOutcomeNoop})

	if len(fake.msgs) != 2 {
		t.Fatalf("expected two published events, got %d", len(fake.msgs))
	}
	if got := fake.msgs[1].Attributes["event_type"]; got != "cart.rejected_capacity" {
		t.Fatalf("unexpected event type %q", got)
	}
	var event CartEvent
	if err := json.Unmarshal(fake.msgs[0].Data, &event); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if event.SessionID != "s1" || event.Quantity != 2 || !event.OccurredAt.Equal(fixed) || event.EventID == "" {
		t.Fatalf("unexpected event %+v", event)
	}
}

func TestPublisherSwallowsFailures(t *testing.T) {
	fake := &fakePublisher{err: errors.New("unavailable")}
	p := newPublisher(fake, nil)
	p.Notify(context.Background(), "s1", cart.Outcome{Kind: enums.CartOutcomeCleared})
	p.Wait()
	if len(fake.msgs) != 1 {
		t.Fatalf("expected a publish attempt, got %d", len(fake.msgs))
	}

	NewPublisher(nil, nil).Notify(context.Background(), "s1", cart.Outcome{Kind: enums.CartOutcomeCleared})
}

type stalledPublisher struct {
	release chan struct{}
	got     chan string
}

func (s *stalledPublisher) Publish(_ context.Context, msg *gcppubsub.Message) publishResult {
	return stalledResult{s}
}

type stalledResult struct {
	s *stalledPublisher
}

func (r stalledResult) Get(ctx context.Context) (string, error) {
	select {
	case <-r.s.release:
		r.s.got <- "acked"
		return "server-id", nil
	case <-ctx.Done():
		r.s.got <- "timed out"
		return "", ctx.Err()
	}
}

func TestPublisherNotifyDoesNotWaitForBroker(t *testing.T) {
	stalled := &stalledPublisher{release: make(chan struct{}), got: make(chan string, 2)}
	p := newPublisher(stalled, nil)

	done := make(chan struct{})
	go func() {
		p.Notify(context.Background(), "s1", cart.Outcome{Kind: enums.CartOutcomeAdded, ProductID: "p1", Quantity: 1})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Notify blocked on an unacknowledged publish")
	}

	close(stalled.release)
	p.Wait()
	if got := <-stalled.got; got != "acked" {
		t.Fatalf("expected background ack, got %q", got)
	}
}

func TestPublisherBackgroundWaitIsBounded(t *testing.T) {
	stalled := &stalledPublisher{release: make(chan struct{}), got: make(chan string, 1)}
	p := newPublisher(stalled, nil)
	p.timeout = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	p.Notify(ctx, "s1", cart.Outcome{Kind: enums.CartOutcomeCleared})
	cancel()
	p.Wait()
	if got := <-stalled.got; got != "timed out" {
		t.Fatalf("expected the publish wait to time out, got %q", got)
	}
}
