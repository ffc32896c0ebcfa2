package dispatch

import (
	"fmt"

	"github.com/askme-chat/askme-server/internal/bus"
	"github.com/askme-chat/askme-server/internal/types"
)

// Intent is the ephemeral value handed to the push transport. It is
// never persisted.
type Intent struct {
	Token string
	Title string
	Body  string
}

// CanNotify is the common gate: a device token must be registered and
// notifications enabled in the user's settings.
func CanNotify(token string, settings types.Settings) bool {
	return token != "" && settings.EnableNotifications
}

// ShouldNotifyMessage suppresses messages for the currently open chat
// and messages the local user sent themselves.
func ShouldNotifyMessage(msg types.Message, localUserId int, openChatId string) bool {
	return msg.ChatId != openChatId && msg.SenderId != localUserId
}

// ShouldNotifyReaction notifies only the author of the reacted-to
// message, and not while its chat is open.
func ShouldNotifyReaction(r bus.MessageReaction, localUserId int, openChatId string) bool {
	return r.Message.ChatId != openChatId && r.Message.SenderId == localUserId
}

// ShouldNotifyNewUser suppresses the local user's own registration.
func ShouldNotifyNewUser(u types.User, localUserId int) bool {
	return u.Id != localUserId
}

func title(nickname string) string {
	return fmt.Sprintf("askme - @%s", nickname)
}

func OnlineIntent(token string, st bus.OnlineStatus) Intent {
	body := fmt.Sprintf("%s went offline.", st.User.Nickname)
	if st.Status == bus.StatusOnline {
		body = fmt.Sprintf("%s is now online", st.User.Nickname)
	}

	return Intent{
		Token: token,
		Title: title(st.User.Nickname),
		Body:  body,
	}
}

func MessageIntent(token string, msg types.Message) Intent {
	return Intent{
		Token: token,
		Title: title(msg.Sender.Nickname),
		Body:  msg.Text,
	}
}

func ReactionIntent(token string, r bus.MessageReaction) Intent {
	return Intent{
		Token: token,
		Title: title(r.Reactor.Nickname),
		Body:  fmt.Sprintf("Reacted %q to your message %q", "💓", r.Message.Text),
	}
}

func NewUserIntent(token string, u types.User) Intent {
	return Intent{
		Token: token,
		Title: title(u.Nickname),
		Body:  fmt.Sprintf("%s just joined hopefully they are in your space.", u.Nickname),
	}
}
