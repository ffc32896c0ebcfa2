package server

import (
	"context"
	"log"
	"sync"

	"github.com/askme-chat/askme-server/internal/bus"
	"github.com/askme-chat/askme-server/internal/chat"
	"github.com/askme-chat/askme-server/internal/notify"
	"github.com/askme-chat/askme-server/internal/stats"
	"github.com/askme-chat/askme-server/internal/types"
)

// EventServer owns the set of connected websocket clients. Each
// client carries its own bus subscriptions and notification
// dispatcher; the server only tracks membership so it can tear
// everything down on shutdown and route settings changes to the
// right dispatchers.
type EventServer struct {
	log            *log.Logger
	bus            *bus.Bus
	chat           *chat.Service
	notifier       notify.Notifier
	stats          stats.StatsProvider
	clients        map[*Client]struct{}
	userMap        map[int]map[*Client]struct{}
	clientsLock    sync.Mutex
	RegisterChan   chan *Client
	deRegisterChan chan *Client
	stop           chan struct{}
	done           chan struct{}
}

func NewEventServer(logger *log.Logger, b *bus.Bus, chatSvc *chat.Service, n notify.Notifier, su stats.StatsProvider) (*EventServer, error) {
	su.RegisterMetric("NumActiveClients")
	su.RegisterMetric("NumNotificationsSent")

	return &EventServer{
		log:            logger,
		bus:            b,
		chat:           chatSvc,
		notifier:       n,
		stats:          su,
		clients:        make(map[*Client]struct{}),
		userMap:        make(map[int]map[*Client]struct{}),
		RegisterChan:   make(chan *Client),
		deRegisterChan: make(chan *Client),
		stop:           make(chan struct{}),
		done:           make(chan struct{}),
	}, nil
}

func (es *EventServer) Run() {
	for {
		select {
		case client := <-es.RegisterChan:
			es.log.Printf("adding connection from %q", client.user.Nickname)
			es.addClient(client)
			es.stats.Incr("NumActiveClients")
		case client := <-es.deRegisterChan:
			es.log.Printf("removing connection from %q", client.user.Nickname)
			es.removeClient(client)
			es.stats.Decr("NumActiveClients")
		case <-es.stop:
			close(es.done)
			return
		}
	}
}

func (es *EventServer) RegisterClient(c *Client) {
	es.RegisterChan <- c
}

// UpdateSettings pushes a settings change into the dispatcher of
// every live connection the user has.
func (es *EventServer) UpdateSettings(userId int, settings types.Settings) {
	es.clientsLock.Lock()
	defer es.clientsLock.Unlock()

	for c := range es.userMap[userId] {
		c.dispatcher.SetSettings(settings)
	}
}

func (es *EventServer) addClient(c *Client) {
	es.clientsLock.Lock()
	defer es.clientsLock.Unlock()

	es.clients[c] = struct{}{}
	if _, ok := es.userMap[c.user.Id]; !ok {
		es.userMap[c.user.Id] = make(map[*Client]struct{})
	}
	es.userMap[c.user.Id][c] = struct{}{}
}

func (es *EventServer) removeClient(c *Client) {
	es.clientsLock.Lock()
	defer es.clientsLock.Unlock()

	delete(es.clients, c)
	if conns, ok := es.userMap[c.user.Id]; ok {
		delete(conns, c)
		if len(conns) == 0 {
			delete(es.userMap, c.user.Id)
		}
	}
}

func (es *EventServer) Shutdown(ctx context.Context) error {
	es.log.Println("received shutdown signal")

	es.clientsLock.Lock()
	for c := range es.clients {
		c.stopClient()
	}
	es.clientsLock.Unlock()

	close(es.stop)

	select {
	case <-es.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
