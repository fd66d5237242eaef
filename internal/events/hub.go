package events

import (
	"sync"
	"sync/atomic"

	"github.com/kode4food/caravan"
	"github.com/kode4food/caravan/topic"

	"github.com/kode4food/stepflow/pkg/api"
)

type (
	// Hub broadcasts workflow lifecycle events to any number of
	// subscribers. Events raised while nobody is subscribed are dropped
	Hub struct {
		topic  topic.Topic[*api.Event]
		prod   topic.Producer[*api.Event]
		subs   atomic.Int32
		mu     sync.RWMutex
		closed bool
	}

	// Subscription receives the events of a Hub that match its filter
	Subscription struct {
		hub       *Hub
		cons      topic.Consumer[*api.Event]
		filter    EventFilter
		closeOnce sync.Once
	}
)

// NewHub creates an event hub backed by a caravan topic
func NewHub() *Hub {
	t := caravan.NewTopic[*api.Event]()
	return &Hub{
		topic: t,
		prod:  t.NewProducer(),
	}
}

// Notify publishes an event to current subscribers
func (h *Hub) Notify(ev *api.Event) {
	if h.subs.Load() == 0 {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return
	}
	h.prod.Send() <- ev
}

// Subscribe starts receiving events that match filter. A nil filter
// matches every event
func (h *Hub) Subscribe(filter EventFilter) *Subscription {
	if filter == nil {
		filter = All
	}
	h.subs.Add(1)
	return &Subscription{
		hub:    h,
		cons:   h.topic.NewConsumer(),
		filter: filter,
	}
}

// Subscribers returns the number of open subscriptions
func (h *Hub) Subscribers() int {
	return int(h.subs.Load())
}

// Close stops publishing. Open subscriptions must still be closed
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	h.prod.Close()
}

// Receive returns the raw event channel. Callers check Matches before
// acting on an event
func (s *Subscription) Receive() <-chan *api.Event {
	return s.cons.Receive()
}

// Matches reports whether the event passes the subscription filter
func (s *Subscription) Matches(ev *api.Event) bool {
	return ev != nil && s.filter(ev)
}

// Close stops receiving and releases the subscription. Events still
// buffered in the consumer are discarded
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		s.cons.Close()
		s.hub.subs.Add(-1)
	})
}
