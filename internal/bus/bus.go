package bus

import (
	"log"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/askme-chat/askme-server/internal/stats"
	"github.com/askme-chat/askme-server/internal/types"
)

type Topic string

const (
	TopicSpaceJoin  Topic = "space.join"
	TopicSpaceLeave Topic = "space.leave"
	TopicUserOnline Topic = "user.online"
	TopicNewMessage Topic = "message.new"
	TopicReaction   Topic = "message.reaction"
	TopicNewUser    Topic = "user.new"
)

const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// OnlineStatus is the payload of a user.online event.
type OnlineStatus struct {
	User   types.User `json:"user"`
	Status string     `json:"status"`
}

// MessageReaction is the payload of a message.reaction event.
type MessageReaction struct {
	Message types.Message `json:"message"`
	Reactor types.User    `json:"reactor"`
}

// Event is the value delivered to subscribers. Exactly one payload
// field is set, matching the topic it was emitted on. TargetUserId
// scopes targeted events (user.online, message.new, message.reaction)
// to a single interested user; it is zero for broadcast topics.
type Event struct {
	Topic        Topic            `json:"topic"`
	Timestamp    time.Time        `json:"timestamp"`
	TargetUserId int              `json:"-"`
	Location     *types.Location  `json:"location,omitempty"`
	Online       *OnlineStatus    `json:"online,omitempty"`
	Message      *types.Message   `json:"message,omitempty"`
	Reaction     *MessageReaction `json:"reaction,omitempty"`
	User         *types.User      `json:"user,omitempty"`
}

// FilterFunc is evaluated per event before the sink is invoked. A nil
// filter passes everything.
type FilterFunc func(Event) bool

// SinkFunc receives events. Errors are logged by the bus and never
// propagated to the emitting producer.
type SinkFunc func(Event) error

// Subscription is a live registration on the bus. Its only capability
// is Unsubscribe, which is safe to call more than once.
type Subscription struct {
	bus     *Bus
	topic   Topic
	filter  FilterFunc
	sink    SinkFunc
	removed atomic.Bool
}

func (s *Subscription) Unsubscribe() {
	s.bus.unsubscribe(s)
}

// Bus is an in-process publish/subscribe hub keyed by topic. It is an
// explicitly constructed dependency, passed to producers and stream
// consumers alike; there is no package-level instance.
type Bus struct {
	log   *log.Logger
	stats stats.StatsProvider
	mu    sync.Mutex
	subs  map[Topic][]*Subscription
}

func NewBus(logger *log.Logger, su stats.StatsProvider) *Bus {
	su.RegisterMetric("NumActiveSubscriptions")
	su.RegisterMetric("NumEventsEmitted")

	return &Bus{
		log:   logger,
		stats: su,
		subs:  make(map[Topic][]*Subscription),
	}
}

// Subscribe registers a sink on a topic. Events are delivered in
// registration order relative to the topic's other subscribers.
func (b *Bus) Subscribe(topic Topic, filter FilterFunc, sink SinkFunc) *Subscription {
	sub := &Subscription{
		bus:    b,
		topic:  topic,
		filter: filter,
		sink:   sink,
	}

	b.mu.Lock()
	b.subs[topic] = append(b.subs[topic], sub)
	b.mu.Unlock()

	b.stats.Incr("NumActiveSubscriptions")
	return sub
}

// unsubscribe removes a subscription from the registry. Removing an
// already-removed subscription is a no-op. Once unsubscribe returns,
// the sink will not be invoked for any subsequent Emit.
func (b *Bus) unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub.removed.Store(true)

	subs := b.subs[sub.topic]
	for i, s := range subs {
		if s == sub {
			b.subs[sub.topic] = slices.Delete(subs, i, i+1)
			b.stats.Decr("NumActiveSubscriptions")
			return
		}
	}
}

// Emit delivers ev to every current subscriber of topic, in
// registration order. The subscriber list is snapshotted before
// delivery so the lock is never held across a sink invocation and a
// sink may itself subscribe or unsubscribe. A failing or panicking
// sink is logged and must not prevent delivery to the remaining
// subscribers. With no subscribers the event is dropped.
func (b *Bus) Emit(topic Topic, ev Event) {
	ev.Topic = topic
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}

	b.mu.Lock()
	snapshot := slices.Clone(b.subs[topic])
	b.mu.Unlock()

	b.stats.Incr("NumEventsEmitted")

	for _, sub := range snapshot {
		// a handle torn down between the snapshot and delivery must
		// not see the event
		if sub.removed.Load() {
			continue
		}
		if sub.filter != nil && !sub.filter(ev) {
			continue
		}

		b.deliver(sub, ev)
	}
}

func (b *Bus) deliver(sub *Subscription, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Printf("bus: sink panic on %q: %v", ev.Topic, r)
		}
	}()

	if err := sub.sink(ev); err != nil {
		b.log.Printf("bus: sink error on %q: %v", ev.Topic, err)
	}
}
