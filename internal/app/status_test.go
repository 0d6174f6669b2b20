package app

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quotesync/internal/ports"
)

func status(msg string) ports.Status {
	return ports.Status{Kind: ports.StatusSync, Level: ports.StatusInfo, Message: msg}
}

func TestStatusFeed_RecentKeepsOrder(t *testing.T) {
	feed := NewStatusFeed(3, discardLogger())

	assert.Empty(t, feed.Recent(0))

	for i := range 5 {
		feed.Notify(context.Background(), status(fmt.Sprint(i)))
	}

	var got []string
	for _, s := range feed.Recent(0) {
		got = append(got, s.Message)
	}

	assert.Equal(t, []string{"2", "3", "4"}, got)

	latest := feed.Recent(1)
	require.Len(t, latest, 1)
	assert.Equal(t, "4", latest[0].Message)
}

func TestStatusFeed_StampsTime(t *testing.T) {
	feed := NewStatusFeed(0, nil)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	feed.now = func() time.Time { return fixed }

	feed.Notify(context.Background(), status("x"))

	assert.Equal(t, fixed, feed.Recent(1)[0].At)
}

func TestStatusFeed_Subscribe(t *testing.T) {
	feed := NewStatusFeed(0, discardLogger())

	ch, cancel := feed.Subscribe(4)

	feed.Notify(context.Background(), status("hello"))

	select {
	case s := <-ch:
		assert.Equal(t, "hello", s.Message)
	case <-time.After(time.Second):
		t.Fatal("no status delivered")
	}

	cancel()
	cancel()

	_, open := <-ch
	assert.False(t, open)

	feed.Notify(context.Background(), status("after cancel"))
}

func TestStatusFeed_SlowSubscriberDoesNotBlock(t *testing.T) {
	feed := NewStatusFeed(0, discardLogger())

	_, cancel := feed.Subscribe(1)
	defer cancel()

	done := make(chan struct{})

	go func() {
		for i := range 10 {
			feed.Notify(context.Background(), status(fmt.Sprint(i)))
		}

		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Notify blocked on a full subscriber")
	}

	assert.Len(t, feed.Recent(0), 10)
}
