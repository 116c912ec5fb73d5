package device

import (
	"sync"

	"github.com/devicemesh-io/devicecore/message"
)

// MessageBus is the per-device hot broadcast channel described in §3:
// subscribers only observe messages published after they subscribe,
// except that the most recent lifecycle.stateChanged message is
// replayed to new subscribers (replay>=1 for lifecycle state, 0
// otherwise), matching the teacher's Events.Stream subscribe-with-
// channel pattern (libs/blueprint-state/manage.Events.Stream).
//
// Ordering guarantee (§5): messages emitted by a single device are
// observed in emission order by any single subscriber. Publish holds
// the bus lock only long enough to fan out to per-subscriber buffered
// channels, so a slow subscriber cannot block emission order for
// others; a subscriber that falls behind drops the oldest unread
// message rather than stalling Publish.
type MessageBus struct {
	mu            sync.Mutex
	subscribers   map[int]chan message.Message
	nextID        int
	lastLifecycle *message.Message
}

// NewMessageBus creates an empty bus.
func NewMessageBus() *MessageBus {
	return &MessageBus{subscribers: map[int]chan message.Message{}}
}

// defaultSubscriberBuffer bounds how far a subscriber may lag before
// Publish starts dropping its oldest unread message instead of
// blocking.
const defaultSubscriberBuffer = 64

// Subscribe returns a channel receiving every message published after
// this call, replaying the last lifecycle.stateChanged message (if
// any) immediately so a new subscriber always knows the current
// lifecycle state (§3). Call the returned cancel function to
// unsubscribe and release the channel.
func (b *MessageBus) Subscribe() (<-chan message.Message, func()) {
	b.mu.Lock()
	ch := make(chan message.Message, defaultSubscriberBuffer)
	id := b.nextID
	b.nextID++
	b.subscribers[id] = ch
	replay := b.lastLifecycle
	b.mu.Unlock()

	if replay != nil {
		ch <- *replay
	}

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subscribers[id]; ok {
			delete(b.subscribers, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Publish fans msg out to every current subscriber in emission order.
func (b *MessageBus) Publish(msg message.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if msg.Type == message.TypeLifecycleStateChanged {
		replay := msg
		b.lastLifecycle = &replay
	}

	for _, sub := range b.subscribers {
		select {
		case sub <- msg:
		default:
			// Slow subscriber: drop its oldest buffered message to make
			// room rather than blocking Publish for every other
			// subscriber (§5: suspension points must not stall
			// unrelated work).
			select {
			case <-sub:
			default:
			}
			select {
			case sub <- msg:
			default:
			}
		}
	}
}

// Close unsubscribes and closes every subscriber channel.
func (b *MessageBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, sub := range b.subscribers {
		delete(b.subscribers, id)
		close(sub)
	}
}
