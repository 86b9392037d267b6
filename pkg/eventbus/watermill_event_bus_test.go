package eventbus_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leviousa/leviousa-broker/pkg/eventbus"
	"github.com/leviousa/leviousa-broker/pkg/events"
)

func TestWatermillEventBus_PublishSubscribe(t *testing.T) {
	t.Parallel()

	bus := eventbus.NewGoChannelEventBus(slog.Default())
	defer func() { _ = bus.Close() }()

	received := make(chan *events.InvocationCompleted, 1)

	bus.Handle(events.InvocationCompletedEvent, func(_ context.Context, event any) error {
		completed, ok := event.(*events.InvocationCompleted)
		require.True(t, ok)
		received <- completed

		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, bus.Subscribe(ctx))

	published := events.InvocationCompleted{
		BaseEvent: events.BaseEvent{
			ID:          bus.GenerateID(),
			Type:        events.InvocationCompletedEvent,
			Timestamp:   time.Now().UTC(),
			UserID:      "U1",
			Integration: "gmail",
			Action:      "GMAIL_SEND_EMAIL",
		},
		Duration: 120 * time.Millisecond,
	}

	require.NoError(t, bus.Publish(ctx, published.ID, published))

	select {
	case got := <-received:
		assert.Equal(t, published.ID, got.ID)
		assert.Equal(t, "U1", got.UserID)
		assert.Equal(t, "gmail", got.Integration)
		assert.Equal(t, 120*time.Millisecond, got.Duration)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestWatermillEventBus_UnhandledTypesAreAcked(t *testing.T) {
	t.Parallel()

	bus := eventbus.NewGoChannelEventBus(slog.Default())
	defer func() { _ = bus.Close() }()

	received := make(chan struct{}, 1)

	bus.Handle(events.InvocationFailedEvent, func(context.Context, any) error {
		received <- struct{}{}

		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, bus.Subscribe(ctx))

	// Started events have no handler registered; they must not wedge the
	// subscription.
	started := events.InvocationStarted{
		BaseEvent: events.BaseEvent{ID: bus.GenerateID(), Type: events.InvocationStartedEvent},
	}
	require.NoError(t, bus.Publish(ctx, started.ID, started))

	failed := events.InvocationFailed{
		BaseEvent: events.BaseEvent{ID: bus.GenerateID(), Type: events.InvocationFailedEvent},
		Message:   "boom",
	}
	require.NoError(t, bus.Publish(ctx, failed.ID, failed))

	select {
	case <-received:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}
