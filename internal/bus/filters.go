package bus

// OriginUserId returns the id of the user whose action produced the
// event, or zero when the event has no payload.
func (e Event) OriginUserId() int {
	switch {
	case e.Location != nil:
		return e.Location.UserId
	case e.Online != nil:
		return e.Online.User.Id
	case e.Message != nil:
		return e.Message.SenderId
	case e.Reaction != nil:
		return e.Reaction.Reactor.Id
	case e.User != nil:
		return e.User.Id
	}

	return 0
}

// ExcludeUser filters out events originated by userId. Used on the
// space.join and space.leave topics so a user never receives a
// notification generated by their own action.
func ExcludeUser(userId int) FilterFunc {
	return func(ev Event) bool {
		return ev.OriginUserId() != userId
	}
}

// ForUser passes only events targeted at userId. Used on the
// user.online, message.new and message.reaction topics, whose
// producers emit one event per interested user.
func ForUser(userId int) FilterFunc {
	return func(ev Event) bool {
		return ev.TargetUserId == userId
	}
}
