package database

import (
	"github.com/stretchr/testify/mock"
)

type MockAskmeRepository struct {
	mock.Mock
}

func (m *MockAskmeRepository) Ping() error {
	args := m.Called()
	return args.Error(0)
}
func (m *MockAskmeRepository) CreateAccount(params CreateAccountParams) (User, error) {
	args := m.Called(params)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockAskmeRepository) UpdateAccount(params UpdateAccountParams) (User, error) {
	args := m.Called(params)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockAskmeRepository) GetAccountById(userId int) (User, error) {
	args := m.Called(userId)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockAskmeRepository) GetAccountByEmail(email string) (User, error) {
	args := m.Called(email)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockAskmeRepository) SetAccountOnline(userId int, online bool) (User, error) {
	args := m.Called(userId, online)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockAskmeRepository) GetSettings(userId int) (Settings, error) {
	args := m.Called(userId)
	return args.Get(0).(Settings), args.Error(1)
}
func (m *MockAskmeRepository) UpsertSettings(params UpdateSettingsParams) (Settings, error) {
	args := m.Called(params)
	return args.Get(0).(Settings), args.Error(1)
}
func (m *MockAskmeRepository) GetLocationByUserId(userId int) (Location, error) {
	args := m.Called(userId)
	return args.Get(0).(Location), args.Error(1)
}
func (m *MockAskmeRepository) CreateLocation(userId int, lat, lon float64) (Location, error) {
	args := m.Called(userId, lat, lon)
	return args.Get(0).(Location), args.Error(1)
}
func (m *MockAskmeRepository) UpdateLocation(locationId int, lat, lon float64) (Location, error) {
	args := m.Called(locationId, lat, lon)
	return args.Get(0).(Location), args.Error(1)
}
func (m *MockAskmeRepository) ListSpaceLocations() ([]Location, error) {
	args := m.Called()
	return args.Get(0).([]Location), args.Error(1)
}
func (m *MockAskmeRepository) CreateChat(externalId string, memberIds []int) (Chat, error) {
	args := m.Called(externalId, memberIds)
	return args.Get(0).(Chat), args.Error(1)
}
func (m *MockAskmeRepository) GetChatById(chatId int) (Chat, error) {
	args := m.Called(chatId)
	return args.Get(0).(Chat), args.Error(1)
}
func (m *MockAskmeRepository) GetChatByExternalId(externalId string) (Chat, error) {
	args := m.Called(externalId)
	return args.Get(0).(Chat), args.Error(1)
}
func (m *MockAskmeRepository) ListChats(userId int) ([]Chat, error) {
	args := m.Called(userId)
	return args.Get(0).([]Chat), args.Error(1)
}
func (m *MockAskmeRepository) GetChatMembers(chatId int) ([]User, error) {
	args := m.Called(chatId)
	return args.Get(0).([]User), args.Error(1)
}
func (m *MockAskmeRepository) CreateMessage(params CreateMessageParams) (Message, error) {
	args := m.Called(params)
	return args.Get(0).(Message), args.Error(1)
}
func (m *MockAskmeRepository) GetMessageById(messageId int) (Message, error) {
	args := m.Called(messageId)
	return args.Get(0).(Message), args.Error(1)
}
func (m *MockAskmeRepository) GetMessages(chatId, limit int) ([]Message, error) {
	args := m.Called(chatId, limit)
	return args.Get(0).([]Message), args.Error(1)
}
func (m *MockAskmeRepository) CreateReaction(messageId, userId int, emoji string) (Reaction, error) {
	args := m.Called(messageId, userId, emoji)
	return args.Get(0).(Reaction), args.Error(1)
}
