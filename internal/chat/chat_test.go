package chat

import (
	"database/sql"
	"testing"

	"github.com/askme-chat/askme-server/internal/bus"
	"github.com/askme-chat/askme-server/internal/database"
	"github.com/askme-chat/askme-server/internal/stats"
	"github.com/askme-chat/askme-server/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, db database.AskmeRepository) (*Service, *bus.Bus) {
	su := &stats.MockStatsUpdater{}
	su.On("RegisterMetric", mock.Anything).Times(2)
	su.On("Incr", mock.Anything).Maybe()
	su.On("Decr", mock.Anything).Maybe()

	logger := testutil.TestLogger(t)
	b := bus.NewBus(logger, su)
	return NewService(logger, db, b), b
}

func TestSendMessageEmitsPerMemberExceptSender(t *testing.T) {
	db := &database.MockAskmeRepository{}
	defer db.AssertExpectations(t)

	db.On("GetChatByExternalId", "c1").Return(database.Chat{Id: 5, ExternalId: "c1"}, nil)
	db.On("GetChatMembers", 5).Return([]database.User{
		{Id: 1, Nickname: "alice"},
		{Id: 2, Nickname: "bob"},
		{Id: 3, Nickname: "carol"},
	}, nil)
	db.On("CreateMessage", database.CreateMessageParams{ChatId: 5, SenderId: 1, Content: "hi"}).
		Return(database.Message{Id: 7, ChatId: 5, SenderId: 1, Content: "hi"}, nil)

	svc, b := newTestService(t, db)

	var targets []int
	b.Subscribe(bus.TopicNewMessage, nil, func(ev bus.Event) error {
		targets = append(targets, ev.TargetUserId)
		return nil
	})

	msg, err := svc.SendMessage(1, "c1", "hi")
	require.NoError(t, err)
	assert.Equal(t, "c1", msg.ChatId)
	assert.Equal(t, "alice", msg.Sender.Nickname)
	assert.ElementsMatch(t, []int{2, 3}, targets, "expected one event per member except the sender")
}

func TestSendMessageScopedDelivery(t *testing.T) {
	db := &database.MockAskmeRepository{}
	db.On("GetChatByExternalId", "c1").Return(database.Chat{Id: 5, ExternalId: "c1"}, nil)
	db.On("GetChatMembers", 5).Return([]database.User{
		{Id: 1, Nickname: "alice"},
		{Id: 2, Nickname: "bob"},
	}, nil)
	db.On("CreateMessage", mock.Anything).Return(database.Message{Id: 7, ChatId: 5, SenderId: 1, Content: "hi"}, nil)

	svc, b := newTestService(t, db)

	var bobEvents, aliceEvents int
	b.Subscribe(bus.TopicNewMessage, bus.ForUser(2), func(ev bus.Event) error {
		bobEvents++
		return nil
	})
	b.Subscribe(bus.TopicNewMessage, bus.ForUser(1), func(ev bus.Event) error {
		aliceEvents++
		return nil
	})

	_, err := svc.SendMessage(1, "c1", "hi")
	require.NoError(t, err)
	assert.Equal(t, 1, bobEvents, "expected the other member to receive the event")
	assert.Zero(t, aliceEvents, "expected no self-notification for the sender")
}

func TestSendMessageChatNotFound(t *testing.T) {
	db := &database.MockAskmeRepository{}
	db.On("GetChatByExternalId", "nope").Return(database.Chat{}, sql.ErrNoRows)

	svc, _ := newTestService(t, db)
	_, err := svc.SendMessage(1, "nope", "hi")
	assert.ErrorIs(t, err, ErrChatNotFound)
}

func TestSendMessageNonMember(t *testing.T) {
	db := &database.MockAskmeRepository{}
	db.On("GetChatByExternalId", "c1").Return(database.Chat{Id: 5, ExternalId: "c1"}, nil)
	db.On("GetChatMembers", 5).Return([]database.User{{Id: 2}}, nil)

	svc, b := newTestService(t, db)

	var events int
	b.Subscribe(bus.TopicNewMessage, nil, func(ev bus.Event) error {
		events++
		return nil
	})

	_, err := svc.SendMessage(1, "c1", "hi")
	assert.ErrorIs(t, err, ErrNotAMember)
	assert.Zero(t, events, "expected no event for a rejected message")
}

func TestReactTargetsMessageAuthor(t *testing.T) {
	db := &database.MockAskmeRepository{}
	defer db.AssertExpectations(t)

	db.On("GetMessageById", 7).Return(database.Message{
		Id:       7,
		ChatId:   5,
		SenderId: 1,
		Sender:   database.User{Id: 1, Nickname: "alice"},
		Content:  "hello there",
	}, nil)
	db.On("GetAccountById", 2).Return(database.User{Id: 2, Nickname: "bob"}, nil)
	db.On("GetChatById", 5).Return(database.Chat{Id: 5, ExternalId: "c1"}, nil)
	db.On("CreateReaction", 7, 2, "💓").Return(database.Reaction{Id: 1, MessageId: 7, UserId: 2, Emoji: "💓"}, nil)

	svc, b := newTestService(t, db)

	var events []bus.Event
	b.Subscribe(bus.TopicReaction, nil, func(ev bus.Event) error {
		events = append(events, ev)
		return nil
	})

	reaction, err := svc.React(2, 7)
	require.NoError(t, err)
	assert.Equal(t, "💓", reaction.Emoji)

	require.Len(t, events, 1)
	assert.Equal(t, 1, events[0].TargetUserId, "expected the event targeted at the message author")
	assert.Equal(t, "bob", events[0].Reaction.Reactor.Nickname)
	assert.Equal(t, "c1", events[0].Reaction.Message.ChatId)
	assert.Equal(t, "hello there", events[0].Reaction.Message.Text)
}

func TestReactMessageNotFound(t *testing.T) {
	db := &database.MockAskmeRepository{}
	db.On("GetMessageById", 99).Return(database.Message{}, sql.ErrNoRows)

	svc, _ := newTestService(t, db)
	_, err := svc.React(1, 99)
	assert.ErrorIs(t, err, ErrMessageNotFound)
}

func TestSetOnlineEmitsPerChatPartner(t *testing.T) {
	db := &database.MockAskmeRepository{}
	defer db.AssertExpectations(t)

	db.On("SetAccountOnline", 1, true).Return(database.User{Id: 1, Nickname: "alice", Online: true}, nil)
	db.On("ListChats", 1).Return([]database.Chat{{Id: 5}, {Id: 6}}, nil)
	db.On("GetChatMembers", 5).Return([]database.User{{Id: 1}, {Id: 2}}, nil)
	db.On("GetChatMembers", 6).Return([]database.User{{Id: 1}, {Id: 2}, {Id: 3}}, nil)

	svc, b := newTestService(t, db)

	var targets []int
	var statuses []string
	b.Subscribe(bus.TopicUserOnline, nil, func(ev bus.Event) error {
		targets = append(targets, ev.TargetUserId)
		statuses = append(statuses, ev.Online.Status)
		return nil
	})

	user, err := svc.SetOnline(1, true)
	require.NoError(t, err)
	assert.True(t, user.Online)
	assert.ElementsMatch(t, []int{2, 3}, targets, "expected one event per distinct chat partner")
	for _, status := range statuses {
		assert.Equal(t, bus.StatusOnline, status)
	}
}

func TestSetOnlineOffline(t *testing.T) {
	db := &database.MockAskmeRepository{}
	db.On("SetAccountOnline", 1, false).Return(database.User{Id: 1, Nickname: "alice"}, nil)
	db.On("ListChats", 1).Return([]database.Chat{{Id: 5}}, nil)
	db.On("GetChatMembers", 5).Return([]database.User{{Id: 1}, {Id: 2}}, nil)

	svc, b := newTestService(t, db)

	var got *bus.OnlineStatus
	b.Subscribe(bus.TopicUserOnline, bus.ForUser(2), func(ev bus.Event) error {
		got = ev.Online
		return nil
	})

	_, err := svc.SetOnline(1, false)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, bus.StatusOffline, got.Status)
}

func TestMessages(t *testing.T) {
	db := &database.MockAskmeRepository{}
	db.On("GetChatByExternalId", "c1").Return(database.Chat{Id: 5, ExternalId: "c1"}, nil)
	db.On("GetMessages", 5, 10).Return([]database.Message{
		{Id: 2, ChatId: 5, SenderId: 1, Sender: database.User{Id: 1, Nickname: "alice"}, Content: "second"},
		{Id: 1, ChatId: 5, SenderId: 2, Sender: database.User{Id: 2, Nickname: "bob"}, Content: "first"},
	}, nil)

	svc, _ := newTestService(t, db)

	messages, err := svc.Messages("c1", 10)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "second", messages[0].Text)
	assert.Equal(t, "c1", messages[0].ChatId)
	assert.Equal(t, "bob", messages[1].Sender.Nickname)
}
