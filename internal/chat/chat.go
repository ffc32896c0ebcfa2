package chat

import (
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/askme-chat/askme-server/internal/bus"
	"github.com/askme-chat/askme-server/internal/database"
	"github.com/askme-chat/askme-server/internal/types"
)

var (
	ErrChatNotFound    = errors.New("chat not found")
	ErrMessageNotFound = errors.New("message not found")
	ErrNotAMember      = errors.New("not a chat member")
)

// The reaction UI only offers one emoji.
const defaultReactionEmoji = "💓"

// Service owns the message and reaction producers. Like the space
// service, it emits on the bus only after the mutation commits, one
// targeted event per interested user.
type Service struct {
	log *log.Logger
	db  database.AskmeRepository
	bus *bus.Bus
}

func NewService(logger *log.Logger, db database.AskmeRepository, b *bus.Bus) *Service {
	return &Service{
		log: logger,
		db:  db,
		bus: b,
	}
}

// SendMessage persists a message and emits message.new once per chat
// member other than the sender.
func (s *Service) SendMessage(senderId int, chatExternalId, text string) (types.Message, error) {
	dbChat, err := s.db.GetChatByExternalId(chatExternalId)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Message{}, ErrChatNotFound
		}
		return types.Message{}, fmt.Errorf("get chat: %w", err)
	}

	members, err := s.db.GetChatMembers(dbChat.Id)
	if err != nil {
		return types.Message{}, fmt.Errorf("get chat members: %w", err)
	}

	sender, ok := findMember(members, senderId)
	if !ok {
		return types.Message{}, ErrNotAMember
	}

	record, err := s.db.CreateMessage(database.CreateMessageParams{
		ChatId:   dbChat.Id,
		SenderId: senderId,
		Content:  text,
	})
	if err != nil {
		return types.Message{}, fmt.Errorf("create message: %w", err)
	}

	msg := types.Message{
		Id:        record.Id,
		ChatId:    dbChat.ExternalId,
		SenderId:  senderId,
		Sender:    toUser(sender),
		Text:      record.Content,
		Timestamp: record.CreatedAt,
	}

	for _, member := range members {
		if member.Id == senderId {
			continue
		}

		s.bus.Emit(bus.TopicNewMessage, bus.Event{
			TargetUserId: member.Id,
			Message:      &msg,
		})
	}

	return msg, nil
}

// React persists a reaction and emits message.reaction targeted at
// the message's author.
func (s *Service) React(reactorId, messageId int) (types.Reaction, error) {
	record, err := s.db.GetMessageById(messageId)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Reaction{}, ErrMessageNotFound
		}
		return types.Reaction{}, fmt.Errorf("get message: %w", err)
	}

	reactor, err := s.db.GetAccountById(reactorId)
	if err != nil {
		return types.Reaction{}, fmt.Errorf("get reactor: %w", err)
	}

	dbChat, err := s.db.GetChatById(record.ChatId)
	if err != nil {
		return types.Reaction{}, fmt.Errorf("get chat: %w", err)
	}

	reaction, err := s.db.CreateReaction(messageId, reactorId, defaultReactionEmoji)
	if err != nil {
		return types.Reaction{}, fmt.Errorf("create reaction: %w", err)
	}

	msg := types.Message{
		Id:        record.Id,
		ChatId:    dbChat.ExternalId,
		SenderId:  record.SenderId,
		Sender:    toUser(record.Sender),
		Text:      record.Content,
		Timestamp: record.CreatedAt,
	}

	s.bus.Emit(bus.TopicReaction, bus.Event{
		TargetUserId: record.SenderId,
		Reaction: &bus.MessageReaction{
			Message: msg,
			Reactor: toUser(reactor),
		},
	})

	return types.Reaction{
		Id:        reaction.Id,
		MessageId: reaction.MessageId,
		UserId:    reaction.UserId,
		Emoji:     reaction.Emoji,
		CreatedAt: reaction.CreatedAt,
	}, nil
}

// SetOnline updates a user's online flag and emits user.online once
// per chat partner of that user.
func (s *Service) SetOnline(userId int, online bool) (types.User, error) {
	record, err := s.db.SetAccountOnline(userId, online)
	if err != nil {
		return types.User{}, fmt.Errorf("set account online: %w", err)
	}

	status := bus.StatusOffline
	if online {
		status = bus.StatusOnline
	}

	user := toUser(record)
	for _, partnerId := range s.chatPartnerIds(userId) {
		s.bus.Emit(bus.TopicUserOnline, bus.Event{
			TargetUserId: partnerId,
			Online: &bus.OnlineStatus{
				User:   user,
				Status: status,
			},
		})
	}

	return user, nil
}

// ListChats returns the chats the user belongs to, with members
// attached.
func (s *Service) ListChats(userId int) ([]types.Chat, error) {
	records, err := s.db.ListChats(userId)
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}

	chats := make([]types.Chat, 0, len(records))
	for _, record := range records {
		members, err := s.db.GetChatMembers(record.Id)
		if err != nil {
			return nil, fmt.Errorf("get chat members: %w", err)
		}

		chat := types.Chat{
			Id:         record.Id,
			ExternalId: record.ExternalId,
			CreatedAt:  record.CreatedAt,
			UpdatedAt:  record.UpdatedAt,
		}
		for _, member := range members {
			chat.Members = append(chat.Members, toUser(member))
		}
		chats = append(chats, chat)
	}

	return chats, nil
}

// Messages returns the chat's most recent messages, newest first.
func (s *Service) Messages(chatExternalId string, limit int) ([]types.Message, error) {
	dbChat, err := s.db.GetChatByExternalId(chatExternalId)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrChatNotFound
		}
		return nil, fmt.Errorf("get chat: %w", err)
	}

	records, err := s.db.GetMessages(dbChat.Id, limit)
	if err != nil {
		return nil, fmt.Errorf("get messages: %w", err)
	}

	messages := make([]types.Message, 0, len(records))
	for _, record := range records {
		messages = append(messages, types.Message{
			Id:        record.Id,
			ChatId:    dbChat.ExternalId,
			SenderId:  record.SenderId,
			Sender:    toUser(record.Sender),
			Text:      record.Content,
			Timestamp: record.CreatedAt,
		})
	}

	return messages, nil
}

// chatPartnerIds is the set of users sharing at least one chat with
// userId, deduplicated.
func (s *Service) chatPartnerIds(userId int) []int {
	chats, err := s.db.ListChats(userId)
	if err != nil {
		s.log.Printf("chat: list chats for %d: %v", userId, err)
		return nil
	}

	seen := make(map[int]struct{})
	var partners []int
	for _, c := range chats {
		members, err := s.db.GetChatMembers(c.Id)
		if err != nil {
			s.log.Printf("chat: get members for chat %d: %v", c.Id, err)
			continue
		}
		for _, member := range members {
			if member.Id == userId {
				continue
			}
			if _, ok := seen[member.Id]; ok {
				continue
			}
			seen[member.Id] = struct{}{}
			partners = append(partners, member.Id)
		}
	}

	return partners
}

func findMember(members []database.User, userId int) (database.User, bool) {
	for _, m := range members {
		if m.Id == userId {
			return m, true
		}
	}
	return database.User{}, false
}

func toUser(u database.User) types.User {
	return types.User{
		Id:           u.Id,
		Nickname:     u.Nickname,
		EmailAddress: u.EmailAddress,
		Online:       u.Online,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}
