package server

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/askme-chat/askme-server/internal/bus"
	"github.com/askme-chat/askme-server/internal/dispatch"
	"github.com/askme-chat/askme-server/internal/types"
)

const (
	writeWait       = 10 * time.Second
	pongWait        = 60 * time.Second
	pingInterval    = (pongWait * 9) / 10
	maxMessageSize  = 1024
	dispatchTimeout = 5 * time.Second
)

// Client is one websocket connection. It relays the events its
// subscriptions select to the device and feeds gate updates from the
// device into its notification dispatcher.
type Client struct {
	conn        *websocket.Conn
	eventServer *EventServer
	log         *log.Logger
	user        types.User
	send        chan *StreamMessage
	subs        []*bus.Subscription
	dispatcher  *dispatch.Dispatcher
	stop        chan struct{}
	stopOnce    sync.Once
	detachOnce  sync.Once
}

func NewClient(user types.User, settings types.Settings, conn *websocket.Conn, es *EventServer, l *log.Logger) *Client {
	c := &Client{
		conn:        conn,
		eventServer: es,
		log:         l,
		user:        user,
		send:        make(chan *StreamMessage, 256),
		stop:        make(chan struct{}),
	}

	c.dispatcher = dispatch.NewDispatcher(l, es.notifier, es.stats, user, settings, func(online bool) error {
		_, err := es.chat.SetOnline(user.Id, online)
		return err
	})

	return c
}

// Attach registers the connection's bus subscriptions and starts its
// dispatcher. Space events exclude the user's own actions, online,
// message and reaction events are scoped to events targeting the
// user, and new-user events are a broadcast.
func (c *Client) Attach() {
	self := bus.ExcludeUser(c.user.Id)
	forMe := bus.ForUser(c.user.Id)

	c.subs = []*bus.Subscription{
		c.eventServer.bus.Subscribe(bus.TopicSpaceJoin, self, c.streamEvent),
		c.eventServer.bus.Subscribe(bus.TopicSpaceLeave, self, c.streamEvent),
		c.eventServer.bus.Subscribe(bus.TopicUserOnline, forMe, c.streamEvent),
		c.eventServer.bus.Subscribe(bus.TopicNewMessage, forMe, c.streamEvent),
		c.eventServer.bus.Subscribe(bus.TopicReaction, forMe, c.streamEvent),
		c.eventServer.bus.Subscribe(bus.TopicNewUser, self, c.streamEvent),
	}

	c.dispatcher.Attach(c.eventServer.bus)
	go c.dispatcher.Run()

	// a fresh connection means the app is in the foreground
	c.dispatcher.SetAppActive(true)
}

func (c *Client) streamEvent(ev bus.Event) error {
	c.queueMessage(fromEvent(ev))
	return nil
}

func (c *Client) Write() {
	ticker := time.NewTicker(time.Duration(pingInterval))
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.log.Println("write exiting")
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}

			bytes, err := json.Marshal(msg)
			if err != nil {
				c.log.Println("failed to serialize message:", err)
				continue
			}

			if !c.sendMessage(websocket.TextMessage, bytes) {
				return
			}
		case <-c.stop:
			return
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !c.sendMessage(websocket.PingMessage, nil) {
				return
			}
		}
	}
}

func (c *Client) Read() {
	defer func() {
		c.conn.Close()
		c.cleanup()
		c.log.Println("read exiting")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(appData string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				c.log.Printf("ws: read: %v", err)
			}
			break
		}

		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.log.Println("error parsing message:", err)
			continue
		}

		switch {
		case msg.OpenChat != nil:
			c.dispatcher.SetOpenChat(msg.OpenChat.ChatId)
		case msg.AppState != nil:
			c.dispatcher.SetAppActive(msg.AppState.Active)
		}
	}
}

func (c *Client) queueMessage(msg *StreamMessage) bool {
	select {
	case c.send <- msg:
	default:
		c.log.Println("failed to send message to client, channel is full")
		return false
	}

	return true
}

func (c *Client) sendMessage(msgType int, msg []byte) bool {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))

	if err := c.conn.WriteMessage(msgType, msg); err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
			websocket.CloseNormalClosure) {
			c.log.Printf("write message: %s", err)
		}
		return false
	}

	return true
}

func (c *Client) stopClient() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *Client) cleanup() {
	select {
	case c.eventServer.deRegisterChan <- c:
	case <-c.eventServer.stop:
	}
	c.detach()
	c.stopClient()
}

// detach unsubscribes every bus subscription and stops the
// dispatcher. The connection going away counts as the app leaving the
// foreground, so the user's partners see them go offline.
func (c *Client) detach() {
	c.detachOnce.Do(func() {
		for _, sub := range c.subs {
			sub.Unsubscribe()
		}
		c.subs = nil

		c.dispatcher.SetAppActive(false)
		c.dispatcher.Detach()

		ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
		defer cancel()
		if err := c.dispatcher.Shutdown(ctx); err != nil {
			c.log.Printf("dispatcher shutdown: %v", err)
		}
	})
}
