package notifications

import (
	"context"
	"sync"

	"github.com/angelmondragon/storefront/internal/cart"
	"github.com/angelmondragon/storefront/pkg/enums"
	"github.com/angelmondragon/storefront/pkg/logger"
)

// LogNotifier writes notifications as structured log entries.
type LogNotifier struct {
	logg *logger.Logger
}

func NewLogNotifier(logg *logger.Logger) *LogNotifier {
	return &LogNotifier{logg: logg}
}

func (l *LogNotifier) Notify(ctx context.Context, sessionID string, outcome cart.Outcome) {
	n, ok := FromOutcome(outcome)
	if !ok {
		return
	}
	ctx = l.logg.WithFields(ctx, map[string]any{
		"session_id": sessionID,
		"outcome":    n.Kind.String(),
		"level":      n.Level.String(),
	})
	if n.ProductID != "" {
		ctx = l.logg.WithProductID(ctx, n.ProductID)
	}
	if n.Level == enums.NotificationLevelWarning {
		l.logg.Warn(ctx, n.Message)
		return
	}
	l.logg.Debug(ctx, n.Message)
}

type recorderKey struct{}

// Recorder collects the notifications raised while serving one request so the
// response can return them.
type Recorder struct {
	mu      sync.Mutex
	notices []Notification
}

// WithRecorder attaches a fresh Recorder to ctx.
func WithRecorder(ctx context.Context) (context.Context, *Recorder) {
	rec := &Recorder{}
	return context.WithValue(ctx, recorderKey{}, rec), rec
}

// RecorderFrom returns the Recorder attached to ctx, if any.
func RecorderFrom(ctx context.Context) *Recorder {
	rec, _ := ctx.Value(recorderKey{}).(*Recorder)
	return rec
}

// Notices returns a copy of what was recorded so far.
func (r *Recorder) Notices() []Notification {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.notices...)
}

func (r *Recorder) add(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

// ContextRecorder appends notifications to the Recorder found in the
// operation's context. Operations without one are ignored.
type ContextRecorder struct{}

func (ContextRecorder) Notify(ctx context.Context, _ string, outcome cart.Outcome) {
	rec := RecorderFrom(ctx)
	if rec == nil {
		return
	}
	if n, ok := FromOutcome(outcome); ok {
		rec.add(n)
	}
}

// Multi fans an outcome out to every sink in order.
type Multi []cart.Notifier

func (m Multi) Notify(ctx context.Context, sessionID string, outcome cart.Outcome) {
	for _, sink := range m {
		if sink != nil {
			sink.Notify(ctx, sessionID, outcome)
		}
	}
}
