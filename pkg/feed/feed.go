// Package feed streams live trace events from running workflows to
// observers such as websocket clients and audit sinks
package feed

import (
	"sync"

	"github.com/kode4food/caravan"
	"github.com/kode4food/caravan/topic"

	"github.com/kode4food/paisley/pkg/api"
)

// Feed fans trace events out to any number of subscribers. Events arrive
// in publish order; subscribers that join late only see subsequent events
type Feed struct {
	events    topic.Topic[*api.TraceEvent]
	prod      topic.Producer[*api.TraceEvent]
	closeOnce sync.Once
}

// New creates a live trace feed
func New() *Feed {
	events := caravan.NewTopic[*api.TraceEvent]()
	return &Feed{
		events: events,
		prod:   events.NewProducer(),
	}
}

// Publish appends an event to the feed
func (f *Feed) Publish(ev *api.TraceEvent) {
	f.prod.Send() <- ev
}

// Observer adapts the feed to the runners' trace observer hook
func (f *Feed) Observer() api.Observer {
	return f.Publish
}

// Subscribe returns a consumer of subsequent events. The caller owns the
// consumer and must Close it when done
func (f *Feed) Subscribe() topic.Consumer[*api.TraceEvent] {
	return f.events.NewConsumer()
}

// Close stops the feed; pending events are dropped
func (f *Feed) Close() {
	f.closeOnce.Do(func() {
		f.prod.Close()
	})
}
