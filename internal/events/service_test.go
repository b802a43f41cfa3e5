package events

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/venari/internal/interfaces"
)

func TestPublishDeliversToSubscribers(t *testing.T) {
	svc := NewService(arbor.NewLogger())

	var mu sync.Mutex
	var got []string
	handler := func(ctx context.Context, event interfaces.Event) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, event.TrackingID)
		return nil
	}

	require.NoError(t, svc.Subscribe(interfaces.EventJobScraped, handler))
	require.NoError(t, svc.Subscribe(interfaces.EventJobScraped, handler))

	require.NoError(t, svc.Publish(context.Background(), interfaces.Event{
		Type:       interfaces.EventJobScraped,
		TrackingID: "t-1",
	}))
	require.NoError(t, svc.Close())

	assert.Equal(t, []string{"t-1", "t-1"}, got)
}

func TestPublishIgnoresUnsubscribedTypes(t *testing.T) {
	svc := NewService(arbor.NewLogger())
	require.NoError(t, svc.Publish(context.Background(), interfaces.Event{Type: interfaces.EventJobSaved}))
	require.NoError(t, svc.Close())
}

func TestHandlerErrorDoesNotAffectPublisher(t *testing.T) {
	svc := NewService(arbor.NewLogger())

	require.NoError(t, svc.Subscribe(interfaces.EventJobScoring, func(ctx context.Context, event interfaces.Event) error {
		return errors.New("handler exploded")
	}))

	assert.NoError(t, svc.Publish(context.Background(), interfaces.Event{Type: interfaces.EventJobScoring}))
	require.NoError(t, svc.Close())
}

func TestSubscribeRejectsNilHandler(t *testing.T) {
	svc := NewService(arbor.NewLogger())
	assert.Error(t, svc.Subscribe(interfaces.EventJobScraped, nil))
}

func TestClosedServiceDropsEvents(t *testing.T) {
	svc := NewService(arbor.NewLogger())

	delivered := false
	require.NoError(t, svc.Subscribe(interfaces.EventJobSaved, func(ctx context.Context, event interfaces.Event) error {
		delivered = true
		return nil
	}))
	require.NoError(t, svc.Close())

	require.NoError(t, svc.Publish(context.Background(), interfaces.Event{Type: interfaces.EventJobSaved}))
	assert.False(t, delivered)

	assert.Error(t, svc.Subscribe(interfaces.EventJobSaved, func(ctx context.Context, event interfaces.Event) error {
		return nil
	}))
}
