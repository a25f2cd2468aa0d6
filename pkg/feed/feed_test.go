package feed_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kode4food/paisley/pkg/api"
	"github.com/kode4food/paisley/pkg/feed"
)

const receiveTimeout = time.Second

func receiveEvent(
	t *testing.T, ch <-chan *api.TraceEvent,
) *api.TraceEvent {
	t.Helper()
	select {
	case ev, ok := <-ch:
		require.True(t, ok, "feed closed unexpectedly")
		return ev
	case <-time.After(receiveTimeout):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func TestFeedPublishSubscribe(t *testing.T) {
	f := feed.New()
	defer f.Close()

	cons := f.Subscribe()
	defer cons.Close()

	f.Publish(&api.TraceEvent{
		Kind:   api.EventFunctionCalled,
		StepID: "fetch",
	})
	f.Publish(&api.TraceEvent{
		Kind:   api.EventFunctionCompleted,
		StepID: "fetch",
	})

	first := receiveEvent(t, cons.Receive())
	assert.Equal(t, api.EventFunctionCalled, first.Kind)

	second := receiveEvent(t, cons.Receive())
	assert.Equal(t, api.EventFunctionCompleted, second.Kind)
}

func TestFeedMultipleSubscribers(t *testing.T) {
	f := feed.New()
	defer f.Close()

	consA := f.Subscribe()
	defer consA.Close()
	consB := f.Subscribe()
	defer consB.Close()

	f.Publish(&api.TraceEvent{Kind: api.EventHandoffRouted})

	assert.Equal(t,
		api.EventHandoffRouted, receiveEvent(t, consA.Receive()).Kind,
	)
	assert.Equal(t,
		api.EventHandoffRouted, receiveEvent(t, consB.Receive()).Kind,
	)
}

func TestFeedObserver(t *testing.T) {
	f := feed.New()
	defer f.Close()

	cons := f.Subscribe()
	defer cons.Close()

	trace := api.NewTrace(f.Observer())
	trace.Append(&api.TraceEvent{Kind: api.EventProcessPaused})

	assert.Equal(t,
		api.EventProcessPaused, receiveEvent(t, cons.Receive()).Kind,
	)
}

func TestFeedCloseIdempotent(t *testing.T) {
	f := feed.New()
	f.Close()
	f.Close()
}
