package hub

import (
	"sync"

	"github.com/devicemesh-io/devicecore/message"
)

// BrokerEvent pairs a published message with the topic it was
// published under, the unit delivered to subscribers per §6's
// `subscribe(topicPattern) -> HotStream<BrokerEvent>`.
type BrokerEvent struct {
	Topic   string
	Message message.Message
}

const routerSubscriberBuffer = 128

type routerSubscription struct {
	pattern string
	ch      chan BrokerEvent
}

// Router implements the hub's publish/subscribe surface: pattern-based
// topic subscription (§4.5) plus delivery, grounded on the same
// hot-broadcast-channel shape as device.MessageBus, generalized here to
// filter by topic pattern per subscriber instead of delivering
// everything to everyone.
type Router struct {
	mu            sync.RWMutex
	subscriptions map[int]*routerSubscription
	nextID        int
}

// NewRouter creates an empty Router.
func NewRouter() *Router {
	return &Router{subscriptions: map[int]*routerSubscription{}}
}

// Subscribe registers interest in every topic matching pattern.
// Returns a channel of matching events and a cancel function that
// unsubscribes and closes the channel.
func (r *Router) Subscribe(pattern string) (<-chan BrokerEvent, func()) {
	r.mu.Lock()
	id := r.nextID
	r.nextID++
	sub := &routerSubscription{pattern: pattern, ch: make(chan BrokerEvent, routerSubscriberBuffer)}
	r.subscriptions[id] = sub
	r.mu.Unlock()

	cancel := func() {
		r.mu.Lock()
		if _, ok := r.subscriptions[id]; ok {
			delete(r.subscriptions, id)
			close(sub.ch)
		}
		r.mu.Unlock()
	}
	return sub.ch, cancel
}

// Publish delivers msg under topic to every subscriber whose pattern
// matches. A subscriber that is not keeping up has its oldest buffered
// event dropped to make room rather than blocking the publisher, the
// same backpressure policy device.MessageBus uses.
func (r *Router) Publish(topic string, msg message.Message) {
	event := BrokerEvent{Topic: topic, Message: msg}

	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, sub := range r.subscriptions {
		if !MatchTopic(sub.pattern, topic) {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			select {
			case <-sub.ch:
			default:
			}
			select {
			case sub.ch <- event:
			default:
			}
		}
	}
}
