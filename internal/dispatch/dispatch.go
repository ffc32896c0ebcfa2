// Package dispatch decides, per event category, whether a received
// event produces exactly one user-visible notification. One dispatcher
// serves one user; it reduces concurrently-arriving events and gate
// changes to a single update loop so the at-most-once invariant holds
// without any cross-category ordering assumptions.
package dispatch

import (
	"context"
	"log"

	"github.com/askme-chat/askme-server/internal/bus"
	"github.com/askme-chat/askme-server/internal/notify"
	"github.com/askme-chat/askme-server/internal/stats"
	"github.com/askme-chat/askme-server/internal/types"
)

// OnlineReporter pushes the local user's online state to the server
// side. Called at most once per actual transition.
type OnlineReporter func(online bool) error

// Update is the tagged value consumed by the dispatcher loop: either
// a bus event or a change to one of the gating inputs.
type Update struct {
	Event      *bus.Event
	OpenChatId *string
	Token      *string
	Settings   *types.Settings
	AppActive  *bool
}

type Dispatcher struct {
	log       *log.Logger
	notifier  notify.Notifier
	stats     stats.StatsProvider
	localUser types.User
	report    OnlineReporter

	updates chan Update
	stop    chan struct{}
	done    chan struct{}

	// gating inputs
	token      string
	settings   types.Settings
	openChatId string

	// one pending-event slot per category, nil when idle
	online   *bus.OnlineStatus
	message  *types.Message
	reaction *bus.MessageReaction
	newUser  *types.User

	lastReported *bool

	subs []*bus.Subscription
}

func NewDispatcher(logger *log.Logger, n notify.Notifier, su stats.StatsProvider, localUser types.User, settings types.Settings, reporter OnlineReporter) *Dispatcher {
	return &Dispatcher{
		log:       logger,
		notifier:  n,
		stats:     su,
		localUser: localUser,
		report:    reporter,
		token:     settings.DeviceToken,
		settings:  settings,
		updates:   make(chan Update, 64),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Attach subscribes the dispatcher to its four event topics. Online,
// message and reaction events are target-scoped to the local user;
// new-user events are a broadcast.
func (d *Dispatcher) Attach(b *bus.Bus) {
	forMe := bus.ForUser(d.localUser.Id)
	d.subs = []*bus.Subscription{
		b.Subscribe(bus.TopicUserOnline, forMe, d.enqueueEvent),
		b.Subscribe(bus.TopicNewMessage, forMe, d.enqueueEvent),
		b.Subscribe(bus.TopicReaction, forMe, d.enqueueEvent),
		b.Subscribe(bus.TopicNewUser, nil, d.enqueueEvent),
	}
}

// Detach synchronously unregisters every bus subscription. After it
// returns no further event reaches the update channel.
func (d *Dispatcher) Detach() {
	for _, sub := range d.subs {
		sub.Unsubscribe()
	}
	d.subs = nil
}

func (d *Dispatcher) enqueueEvent(ev bus.Event) error {
	d.enqueue(Update{Event: &ev})
	return nil
}

func (d *Dispatcher) enqueue(u Update) {
	select {
	case d.updates <- u:
	case <-d.stop:
	}
}

func (d *Dispatcher) SetOpenChat(chatId string) {
	d.enqueue(Update{OpenChatId: &chatId})
}

func (d *Dispatcher) SetToken(token string) {
	d.enqueue(Update{Token: &token})
}

func (d *Dispatcher) SetSettings(settings types.Settings) {
	d.enqueue(Update{Settings: &settings})
}

func (d *Dispatcher) SetAppActive(active bool) {
	d.enqueue(Update{AppActive: &active})
}

func (d *Dispatcher) Run() {
	for {
		select {
		case u := <-d.updates:
			d.handle(u)
		case <-d.stop:
			// drain buffered updates so a final app-state change
			// queued during teardown still lands
			for {
				select {
				case u := <-d.updates:
					d.handle(u)
				default:
					close(d.done)
					return
				}
			}
		}
	}
}

func (d *Dispatcher) Shutdown(ctx context.Context) error {
	close(d.stop)

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) handle(u Update) {
	switch {
	case u.Event != nil:
		d.fillSlot(*u.Event)
	case u.OpenChatId != nil:
		d.openChatId = *u.OpenChatId
	case u.Token != nil:
		d.token = *u.Token
	case u.Settings != nil:
		d.settings = *u.Settings
		d.token = u.Settings.DeviceToken
	case u.AppActive != nil:
		d.reportOnline(*u.AppActive)
		return
	}

	d.evaluate()
}

func (d *Dispatcher) fillSlot(ev bus.Event) {
	switch ev.Topic {
	case bus.TopicUserOnline:
		d.online = ev.Online
	case bus.TopicNewMessage:
		d.message = ev.Message
	case bus.TopicReaction:
		d.reaction = ev.Reaction
	case bus.TopicNewUser:
		d.newUser = ev.User
	default:
		d.log.Printf("dispatch: unexpected topic %q", ev.Topic)
	}
}

// reportOnline syncs the local online state upstream, once per actual
// transition. Repeated app-state updates with the same value are
// dropped.
func (d *Dispatcher) reportOnline(active bool) {
	if d.lastReported != nil && *d.lastReported == active {
		return
	}
	d.lastReported = &active

	if d.report == nil {
		return
	}
	if err := d.report(active); err != nil {
		d.log.Printf("dispatch: report online state: %v", err)
	}
}

// evaluate runs the gating rule for every occupied slot. Whatever the
// outcome, the slot is cleared before the next event of its category
// can be considered: one logical event yields at most one delivery,
// and re-observing an already-handled event can never re-fire.
func (d *Dispatcher) evaluate() {
	if st := d.online; st != nil {
		d.online = nil
		if d.canNotify() {
			d.deliver(OnlineIntent(d.token, *st))
		}
	}

	if msg := d.message; msg != nil {
		d.message = nil
		if d.canNotify() && ShouldNotifyMessage(*msg, d.localUser.Id, d.openChatId) {
			d.deliver(MessageIntent(d.token, *msg))
		}
	}

	if r := d.reaction; r != nil {
		d.reaction = nil
		if d.canNotify() && ShouldNotifyReaction(*r, d.localUser.Id, d.openChatId) {
			d.deliver(ReactionIntent(d.token, *r))
		}
	}

	if u := d.newUser; u != nil {
		d.newUser = nil
		if d.canNotify() && ShouldNotifyNewUser(*u, d.localUser.Id) {
			d.deliver(NewUserIntent(d.token, *u))
		}
	}
}

func (d *Dispatcher) canNotify() bool {
	return CanNotify(d.token, d.settings)
}

func (d *Dispatcher) deliver(intent Intent) {
	if err := d.notifier.Deliver(intent.Token, intent.Title, intent.Body); err != nil {
		// accepted loss: no retry, silent to the user
		d.log.Printf("dispatch: deliver notification: %v", err)
		return
	}

	d.stats.Incr("NumNotificationsSent")
}
