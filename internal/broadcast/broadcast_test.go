package broadcast_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/recup/internal/broadcast"
	"github.com/slok/recup/internal/model"
)

func newBroadcaster(t *testing.T, cfg broadcast.Config) *broadcast.Broadcaster {
	t.Helper()
	b, err := broadcast.New(cfg)
	require.NoError(t, err)
	return b
}

func recvEvent(t *testing.T, sub *broadcast.Subscription) broadcast.Event {
	t.Helper()
	select {
	case ev, ok := <-sub.C():
		require.True(t, ok, "channel closed before expected event")
		return ev
	default:
		t.Fatal("no buffered event available")
		return broadcast.Event{}
	}
}

func TestSubscribeReceivesConnected(t *testing.T) {
	ctx := context.Background()
	b := newBroadcaster(t, broadcast.Config{})

	task := model.UploadTask{ID: "task1", Status: model.UploadStatusStarting}
	sub, err := b.Subscribe(ctx, task)
	require.NoError(t, err)

	ev := recvEvent(t, sub)
	assert.Equal(t, broadcast.EventTypeConnected, ev.Type)
	assert.Equal(t, task, ev.Task)
}

func TestPublishFansOut(t *testing.T) {
	ctx := context.Background()
	b := newBroadcaster(t, broadcast.Config{})

	task := model.UploadTask{ID: "task1", Status: model.UploadStatusUploading}
	sub1, err := b.Subscribe(ctx, task)
	require.NoError(t, err)
	sub2, err := b.Subscribe(ctx, task)
	require.NoError(t, err)
	otherSub, err := b.Subscribe(ctx, model.UploadTask{ID: "task2"})
	require.NoError(t, err)

	// Drain connected events.
	recvEvent(t, sub1)
	recvEvent(t, sub2)
	recvEvent(t, otherSub)

	task.Progress = 42
	b.Publish(ctx, task)

	for _, sub := range []*broadcast.Subscription{sub1, sub2} {
		ev := recvEvent(t, sub)
		assert.Equal(t, broadcast.EventTypeProgress, ev.Type)
		assert.Equal(t, 42, ev.Task.Progress)
	}

	// The other task's subscriber got nothing.
	select {
	case ev := <-otherSub.C():
		t.Fatalf("unexpected event: %v", ev)
	default:
	}
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	ctx := context.Background()
	b := newBroadcaster(t, broadcast.Config{Buffer: 2})

	task := model.UploadTask{ID: "task1"}
	sub, err := b.Subscribe(ctx, task)
	require.NoError(t, err)

	// Connected already occupies one slot, publish fills and overflows.
	for i := 1; i <= 5; i++ {
		task.Progress = i * 10
		b.Publish(ctx, task) // Must never block.
	}

	assert.Equal(t, broadcast.EventTypeConnected, recvEvent(t, sub).Type)
	assert.Equal(t, 10, recvEvent(t, sub).Task.Progress)
	select {
	case ev := <-sub.C():
		t.Fatalf("expected dropped events, got: %v", ev)
	default:
	}
}

func TestCloseDeliversClosedAndReleases(t *testing.T) {
	ctx := context.Background()
	b := newBroadcaster(t, broadcast.Config{})

	task := model.UploadTask{ID: "task1", Status: model.UploadStatusUploading}
	sub, err := b.Subscribe(ctx, task)
	require.NoError(t, err)
	recvEvent(t, sub)

	task.Status = model.UploadStatusCompleted
	task.Progress = 100
	b.Close(ctx, task)

	ev := recvEvent(t, sub)
	assert.Equal(t, broadcast.EventTypeClosed, ev.Type)
	assert.Equal(t, model.UploadStatusCompleted, ev.Task.Status)

	_, ok := <-sub.C()
	assert.False(t, ok, "channel should be closed")

	// Unsubscribing after close is a safe no-op.
	b.Unsubscribe(sub)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	ctx := context.Background()
	b := newBroadcaster(t, broadcast.Config{})

	task := model.UploadTask{ID: "task1"}
	sub, err := b.Subscribe(ctx, task)
	require.NoError(t, err)
	recvEvent(t, sub)

	b.Unsubscribe(sub)
	_, ok := <-sub.C()
	assert.False(t, ok, "channel should be closed")

	// Publishing afterwards must not panic.
	b.Publish(ctx, task)
	b.Close(ctx, task)
}
