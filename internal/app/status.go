package app

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jsamuelsen/quotesync/internal/ports"
)

// DefaultStatusHistory is how many messages a StatusFeed keeps by default.
const DefaultStatusHistory = 50

// StatusFeed keeps recent status messages and fans them out to subscribers.
// Slow subscribers miss messages rather than block the publisher.
type StatusFeed struct {
	mu      sync.Mutex
	history []ports.Status
	next    int
	full    bool
	subs    map[int]chan ports.Status
	nextSub int
	now     func() time.Time
	logger  *slog.Logger
}

var _ ports.StatusNotifier = (*StatusFeed)(nil)

// NewStatusFeed creates a feed that remembers up to size messages.
func NewStatusFeed(size int, logger *slog.Logger) *StatusFeed {
	if size <= 0 {
		size = DefaultStatusHistory
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &StatusFeed{
		history: make([]ports.Status, size),
		subs:    make(map[int]chan ports.Status),
		now:     time.Now,
		logger:  logger.With(slog.String("component", "app.StatusFeed")),
	}
}

// Notify implements ports.StatusNotifier.
func (f *StatusFeed) Notify(ctx context.Context, status ports.Status) {
	if status.At.IsZero() {
		status.At = f.now()
	}

	f.logger.DebugContext(ctx, "status",
		slog.String("kind", string(status.Kind)),
		slog.String("level", string(status.Level)),
		slog.String("message", status.Message),
	)

	f.mu.Lock()
	defer f.mu.Unlock()

	f.history[f.next] = status
	f.next = (f.next + 1) % len(f.history)

	if f.next == 0 {
		f.full = true
	}

	for _, ch := range f.subs {
		select {
		case ch <- status:
		default:
		}
	}
}

// Recent returns up to n messages, oldest first. n <= 0 returns everything kept.
func (f *StatusFeed) Recent(n int) []ports.Status {
	f.mu.Lock()
	defer f.mu.Unlock()

	var ordered []ports.Status
	if f.full {
		ordered = append(ordered, f.history[f.next:]...)
	}

	ordered = append(ordered, f.history[:f.next]...)

	if n > 0 && len(ordered) > n {
		ordered = ordered[len(ordered)-n:]
	}

	return ordered
}

// Subscribe returns a channel receiving every later message and a function
// that ends the subscription and closes the channel.
func (f *StatusFeed) Subscribe(buffer int) (<-chan ports.Status, func()) {
	if buffer <= 0 {
		buffer = 1
	}

	ch := make(chan ports.Status, buffer)

	f.mu.Lock()
	id := f.nextSub
	f.nextSub++
	f.subs[id] = ch
	f.mu.Unlock()

	var once sync.Once

	return ch, func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, id)
			f.mu.Unlock()
			close(ch)
		})
	}
}
