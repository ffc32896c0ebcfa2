package server

import (
	"time"

	"github.com/askme-chat/askme-server/internal/bus"
	"github.com/askme-chat/askme-server/internal/types"
)

// StreamMessage is the server-to-client frame: one bus event,
// flattened for the wire.
type StreamMessage struct {
	Timestamp time.Time            `json:"timestamp"`
	Topic     bus.Topic            `json:"topic"`
	Location  *types.Location      `json:"location,omitempty"`
	Online    *bus.OnlineStatus    `json:"online,omitempty"`
	Message   *types.Message       `json:"message,omitempty"`
	Reaction  *bus.MessageReaction `json:"reaction,omitempty"`
	User      *types.User          `json:"user,omitempty"`
}

func fromEvent(ev bus.Event) *StreamMessage {
	return &StreamMessage{
		Timestamp: ev.Timestamp,
		Topic:     ev.Topic,
		Location:  ev.Location,
		Online:    ev.Online,
		Message:   ev.Message,
		Reaction:  ev.Reaction,
		User:      ev.User,
	}
}

// ClientMessage is the client-to-server frame: updates to the
// notification gating inputs.
type ClientMessage struct {
	OpenChat *OpenChat `json:"open_chat,omitempty"`
	AppState *AppState `json:"app_state,omitempty"`
}

// OpenChat reports which chat the client currently has on screen. An
// empty ChatId means none.
type OpenChat struct {
	ChatId string `json:"chat_id"`
}

// AppState reports foreground/background transitions of the client
// app.
type AppState struct {
	Active bool `json:"active"`
}
