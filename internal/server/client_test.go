package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/askme-chat/askme-server/internal/bus"
	"github.com/askme-chat/askme-server/internal/database"
	"github.com/askme-chat/askme-server/internal/stats"
	"github.com/askme-chat/askme-server/internal/testutil"
	"github.com/askme-chat/askme-server/internal/types"
)

func Test_queueMessage(t *testing.T) {
	t.Run("successful queue", func(t *testing.T) {
		c := &Client{
			send: make(chan *StreamMessage, 1),
			log:  testutil.TestLogger(t),
		}

		res := c.queueMessage(&StreamMessage{})
		assert.True(t, res, "expected queueMessage to return true when channel is not full")

		select {
		case msg := <-c.send:
			assert.NotNil(t, msg, "expected a message to be sent to the client")
		default:
			t.Error("expected a message to be sent to the client, but none was sent")
		}
	})
	t.Run("channel full", func(t *testing.T) {
		c := &Client{
			send: make(chan *StreamMessage, 1),
			log:  testutil.TestLogger(t),
		}

		c.send <- &StreamMessage{} // Pre-fill the send channel to simulate a full channel
		res := c.queueMessage(&StreamMessage{})
		assert.False(t, res, "expected queueMessage to return false when channel is full")
	})
}

func Test_stopClient(t *testing.T) {
	c := &Client{
		stop: make(chan struct{}),
	}

	c.stopClient()
	c.stopClient()

	select {
	case <-c.stop:
		// Channel is closed as expected
	default:
		t.Error("expected stop channel to be closed")
	}
}

func Test_fromEvent(t *testing.T) {
	ts := time.Now().UTC()
	loc := &types.Location{UserId: 2, Lat: 51.5, Lon: -0.1}
	ev := bus.Event{
		Topic:     bus.TopicSpaceJoin,
		Timestamp: ts,
		Location:  loc,
	}

	msg := fromEvent(ev)
	assert.Equal(t, bus.TopicSpaceJoin, msg.Topic)
	assert.Equal(t, ts, msg.Timestamp)
	assert.Equal(t, loc, msg.Location)
	assert.Nil(t, msg.Message)
	assert.Nil(t, msg.Online)
	assert.Nil(t, msg.Reaction)
	assert.Nil(t, msg.User)
}

func TestClientAttachDetach(t *testing.T) {
	db := &database.MockAskmeRepository{}
	defer db.AssertExpectations(t)
	db.On("SetAccountOnline", 1, true).Return(database.User{Id: 1, Nickname: "alice", Online: true}, nil).Once()
	db.On("SetAccountOnline", 1, false).Return(database.User{Id: 1, Nickname: "alice"}, nil).Once()
	db.On("ListChats", 1).Return([]database.Chat{}, nil).Times(2)

	su := &stats.MockStatsUpdater{}
	su.On("RegisterMetric", mock.Anything).Return(nil).Times(4)
	su.On("Incr", mock.Anything).Return().Maybe()
	su.On("Decr", mock.Anything).Return().Maybe()

	es := newTestEventServerWith(t, db, su)

	user := types.User{Id: 1, Nickname: "alice"}
	c := NewClient(user, types.Settings{UserId: 1}, nil, es, testutil.TestLogger(t))
	c.Attach()

	// another user joining the space reaches this client
	es.bus.Emit(bus.TopicSpaceJoin, bus.Event{
		Location: &types.Location{UserId: 2, Lat: 1, Lon: 2, User: types.User{Id: 2, Nickname: "bob"}},
	})

	select {
	case msg := <-c.send:
		assert.Equal(t, bus.TopicSpaceJoin, msg.Topic)
		assert.Equal(t, 2, msg.Location.UserId)
	default:
		t.Fatal("expected a space join message for another user")
	}

	// the client's own join is filtered out
	es.bus.Emit(bus.TopicSpaceJoin, bus.Event{
		Location: &types.Location{UserId: 1, Lat: 1, Lon: 2, User: user},
	})
	assert.Empty(t, c.send, "expected no message for the client's own join")

	// a message targeted at this user is streamed
	es.bus.Emit(bus.TopicNewMessage, bus.Event{
		TargetUserId: 1,
		Message:      &types.Message{ChatId: "chat-1", SenderId: 2, Text: "hi"},
	})

	select {
	case msg := <-c.send:
		assert.Equal(t, bus.TopicNewMessage, msg.Topic)
		assert.Equal(t, "hi", msg.Message.Text)
	default:
		t.Fatal("expected a message event targeted at this user")
	}

	// a message targeted at someone else is not
	es.bus.Emit(bus.TopicNewMessage, bus.Event{
		TargetUserId: 2,
		Message:      &types.Message{ChatId: "chat-1", SenderId: 1, Text: "yo"},
	})
	assert.Empty(t, c.send, "expected no message targeted at another user")

	c.detach()

	es.bus.Emit(bus.TopicSpaceJoin, bus.Event{
		Location: &types.Location{UserId: 3, Lat: 1, Lon: 2},
	})
	assert.Empty(t, c.send, "expected no delivery after detach")
}
