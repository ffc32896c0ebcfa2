package bus

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/askme-chat/askme-server/internal/stats"
	"github.com/askme-chat/askme-server/internal/testutil"
	"github.com/askme-chat/askme-server/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newTestBus(t *testing.T) *Bus {
	su := &stats.MockStatsUpdater{}
	su.On("RegisterMetric", mock.Anything).Times(2)
	su.On("Incr", mock.Anything).Maybe()
	su.On("Decr", mock.Anything).Maybe()

	return NewBus(testutil.TestLogger(t), su)
}

func TestBusEmitDeliversInRegistrationOrder(t *testing.T) {
	b := newTestBus(t)

	var order []int
	for i := 1; i <= 3; i++ {
		i := i
		b.Subscribe(TopicSpaceJoin, nil, func(ev Event) error {
			order = append(order, i)
			return nil
		})
	}

	b.Emit(TopicSpaceJoin, Event{Location: &types.Location{UserId: 1}})
	assert.Equal(t, []int{1, 2, 3}, order, "expected sinks invoked in registration order")
}

func TestBusEmitNoSubscribers(t *testing.T) {
	b := newTestBus(t)

	// event is dropped, caller unaffected
	assert.NotPanics(t, func() {
		b.Emit(TopicNewUser, Event{User: &types.User{Id: 1}})
	})
}

func TestBusFilterExcludesEvents(t *testing.T) {
	b := newTestBus(t)

	var got []Event
	b.Subscribe(TopicSpaceJoin, ExcludeUser(1), func(ev Event) error {
		got = append(got, ev)
		return nil
	})

	b.Emit(TopicSpaceJoin, Event{Location: &types.Location{UserId: 1}})
	b.Emit(TopicSpaceJoin, Event{Location: &types.Location{UserId: 2}})

	assert.Len(t, got, 1, "expected self-originated event to be filtered out")
	assert.Equal(t, 2, got[0].Location.UserId)
}

func TestBusEmitSetsTopicAndTimestamp(t *testing.T) {
	b := newTestBus(t)

	var got Event
	b.Subscribe(TopicUserOnline, nil, func(ev Event) error {
		got = ev
		return nil
	})

	b.Emit(TopicUserOnline, Event{Online: &OnlineStatus{User: types.User{Id: 2}, Status: StatusOnline}})
	assert.Equal(t, TopicUserOnline, got.Topic)
	assert.False(t, got.Timestamp.IsZero(), "expected emit to stamp the event")
}

func TestBusUnsubscribe(t *testing.T) {
	b := newTestBus(t)

	var count int
	sub := b.Subscribe(TopicSpaceLeave, nil, func(ev Event) error {
		count++
		return nil
	})

	b.Emit(TopicSpaceLeave, Event{Location: &types.Location{UserId: 1}})
	sub.Unsubscribe()
	b.Emit(TopicSpaceLeave, Event{Location: &types.Location{UserId: 1}})

	assert.Equal(t, 1, count, "expected no sink invocations after unsubscribe")
}

func TestBusUnsubscribeIdempotent(t *testing.T) {
	b := newTestBus(t)

	sub := b.Subscribe(TopicSpaceJoin, nil, func(ev Event) error { return nil })
	sub.Unsubscribe()
	assert.NotPanics(t, func() {
		sub.Unsubscribe()
	})
}

func TestBusSinkFailureIsIsolated(t *testing.T) {
	b := newTestBus(t)

	var reached bool
	b.Subscribe(TopicNewMessage, nil, func(ev Event) error {
		return errors.New("sink failed")
	})
	b.Subscribe(TopicNewMessage, nil, func(ev Event) error {
		panic("sink panicked")
	})
	b.Subscribe(TopicNewMessage, nil, func(ev Event) error {
		reached = true
		return nil
	})

	assert.NotPanics(t, func() {
		b.Emit(TopicNewMessage, Event{Message: &types.Message{SenderId: 1}})
	})
	assert.True(t, reached, "expected delivery to continue past failing sinks")
}

func TestBusUnsubscribeDuringEmit(t *testing.T) {
	b := newTestBus(t)

	// the first sink tears down the second while the emit snapshot is
	// being iterated
	var second *Subscription
	var secondCount int
	b.Subscribe(TopicSpaceJoin, nil, func(ev Event) error {
		second.Unsubscribe()
		return nil
	})
	second = b.Subscribe(TopicSpaceJoin, nil, func(ev Event) error {
		secondCount++
		return nil
	})

	b.Emit(TopicSpaceJoin, Event{Location: &types.Location{UserId: 1}})
	assert.Zero(t, secondCount, "expected torn-down sink to be skipped")
}

func TestBusSubscribeDuringEmit(t *testing.T) {
	b := newTestBus(t)

	// a sink that subscribes must not deadlock the emit
	var added bool
	b.Subscribe(TopicSpaceJoin, nil, func(ev Event) error {
		b.Subscribe(TopicSpaceJoin, nil, func(ev Event) error {
			added = true
			return nil
		})
		return nil
	})

	b.Emit(TopicSpaceJoin, Event{Location: &types.Location{UserId: 1}})
	assert.False(t, added, "expected subscriber added mid-emit to miss the in-flight event")

	b.Emit(TopicSpaceJoin, Event{Location: &types.Location{UserId: 1}})
	assert.True(t, added, "expected subscriber added mid-emit to receive later events")
}

func TestBusConcurrentEmit(t *testing.T) {
	b := newTestBus(t)

	var mu sync.Mutex
	var count int
	b.Subscribe(TopicNewMessage, nil, func(ev Event) error {
		mu.Lock()
		count++
		mu.Unlock()
		return nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.Emit(TopicNewMessage, Event{Message: &types.Message{SenderId: 1}})
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, count, "expected every concurrent emit to be delivered")
}

func TestBusStats(t *testing.T) {
	su := &stats.MockStatsUpdater{}
	defer su.AssertExpectations(t)
	su.On("RegisterMetric", "NumActiveSubscriptions").Once()
	su.On("RegisterMetric", "NumEventsEmitted").Once()
	su.On("Incr", "NumActiveSubscriptions").Once()
	su.On("Incr", "NumEventsEmitted").Once()
	su.On("Decr", "NumActiveSubscriptions").Once()

	b := NewBus(testutil.TestLogger(t), su)
	sub := b.Subscribe(TopicSpaceJoin, nil, func(ev Event) error { return nil })
	b.Emit(TopicSpaceJoin, Event{Location: &types.Location{UserId: 1}})
	sub.Unsubscribe()
}

func TestForUserFilter(t *testing.T) {
	tt := []struct {
		target   int
		userId   int
		expected bool
	}{
		{target: 1, userId: 1, expected: true},
		{target: 2, userId: 1, expected: false},
		{target: 0, userId: 1, expected: false},
	}

	for _, tc := range tt {
		t.Run(fmt.Sprintf("target=%d,user=%d", tc.target, tc.userId), func(t *testing.T) {
			f := ForUser(tc.userId)
			got := f(Event{TargetUserId: tc.target, Message: &types.Message{SenderId: 9}})
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestOriginUserId(t *testing.T) {
	tt := []struct {
		name     string
		ev       Event
		expected int
	}{
		{"location", Event{Location: &types.Location{UserId: 3}}, 3},
		{"online", Event{Online: &OnlineStatus{User: types.User{Id: 4}}}, 4},
		{"message", Event{Message: &types.Message{SenderId: 5}}, 5},
		{"reaction", Event{Reaction: &MessageReaction{Reactor: types.User{Id: 6}}}, 6},
		{"new user", Event{User: &types.User{Id: 7}}, 7},
		{"empty", Event{}, 0},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.ev.OriginUserId())
		})
	}
}
