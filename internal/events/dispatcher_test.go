package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPublishInvokesSubscribedHandlers(t *testing.T) {
	dispatcher := NewInMemoryDispatcher()

	var received []Event
	dispatcher.Subscribe(EventStageAdvanced, func(ctx context.Context, event Event) error {
		received = append(received, event)
		return nil
	})

	err := dispatcher.Publish(context.Background(), Event{
		Type:    EventStageAdvanced,
		UserID:  42,
		Payload: StageAdvancedPayload{FromStage: 0, ToStage: 1},
	})
	require.NoError(t, err)

	require.Len(t, received, 1)
	require.Equal(t, int64(42), received[0].UserID)
	require.NotEmpty(t, received[0].ID)
	require.False(t, received[0].Timestamp.IsZero())
}

func TestPublishIgnoresUnsubscribedType(t *testing.T) {
	dispatcher := NewInMemoryDispatcher()

	called := false
	dispatcher.Subscribe(EventMemberJoined, func(ctx context.Context, event Event) error {
		called = true
		return nil
	})

	require.NoError(t, dispatcher.Publish(context.Background(), Event{Type: EventBroadcastCompleted}))
	require.False(t, called)
}

func TestPublishContinuesAfterHandlerError(t *testing.T) {
	dispatcher := NewInMemoryDispatcher()

	dispatcher.Subscribe(EventMessageFlagged, func(ctx context.Context, event Event) error {
		return errors.New("handler failed")
	})
	second := false
	dispatcher.Subscribe(EventMessageFlagged, func(ctx context.Context, event Event) error {
		second = true
		return nil
	})

	require.NoError(t, dispatcher.Publish(context.Background(), Event{Type: EventMessageFlagged}))
	require.True(t, second)
}
