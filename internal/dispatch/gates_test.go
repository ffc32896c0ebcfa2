package dispatch

import (
	"testing"

	"github.com/askme-chat/askme-server/internal/bus"
	"github.com/askme-chat/askme-server/internal/types"
	"github.com/stretchr/testify/assert"
)

func TestCanNotify(t *testing.T) {
	tt := []struct {
		name     string
		token    string
		settings types.Settings
		expected bool
	}{
		{"token and enabled", "tok", types.Settings{EnableNotifications: true}, true},
		{"no token", "", types.Settings{EnableNotifications: true}, false},
		{"disabled", "tok", types.Settings{EnableNotifications: false}, false},
		{"neither", "", types.Settings{}, false},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, CanNotify(tc.token, tc.settings))
		})
	}
}

func TestShouldNotifyMessage(t *testing.T) {
	msg := types.Message{ChatId: "c1", SenderId: 2}

	assert.True(t, ShouldNotifyMessage(msg, 1, ""))
	assert.True(t, ShouldNotifyMessage(msg, 1, "c2"))
	assert.False(t, ShouldNotifyMessage(msg, 1, "c1"), "open chat suppresses")
	assert.False(t, ShouldNotifyMessage(msg, 2, ""), "own message suppresses")
}

func TestShouldNotifyReaction(t *testing.T) {
	r := bus.MessageReaction{
		Message: types.Message{ChatId: "c1", SenderId: 1},
		Reactor: types.User{Id: 2},
	}

	assert.True(t, ShouldNotifyReaction(r, 1, ""))
	assert.False(t, ShouldNotifyReaction(r, 1, "c1"), "open chat suppresses")
	assert.False(t, ShouldNotifyReaction(r, 2, ""), "only the message author is notified")
}

func TestIntentTexts(t *testing.T) {
	online := OnlineIntent("tok", bus.OnlineStatus{User: types.User{Nickname: "bob"}, Status: bus.StatusOnline})
	assert.Equal(t, "askme - @bob", online.Title)
	assert.Equal(t, "bob is now online", online.Body)

	offline := OnlineIntent("tok", bus.OnlineStatus{User: types.User{Nickname: "bob"}, Status: bus.StatusOffline})
	assert.Equal(t, "bob went offline.", offline.Body)

	msg := MessageIntent("tok", types.Message{Sender: types.User{Nickname: "bob"}, Text: "hi"})
	assert.Equal(t, "askme - @bob", msg.Title)
	assert.Equal(t, "hi", msg.Body)

	newUser := NewUserIntent("tok", types.User{Nickname: "carol"})
	assert.Equal(t, "carol just joined hopefully they are in your space.", newUser.Body)
}
