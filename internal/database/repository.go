package database

type AskmeRepository interface {
	Ping() error
	CreateAccount(params CreateAccountParams) (User, error)
	UpdateAccount(params UpdateAccountParams) (User, error)
	GetAccountById(userId int) (User, error)
	GetAccountByEmail(email string) (User, error)
	SetAccountOnline(userId int, online bool) (User, error)
	GetSettings(userId int) (Settings, error)
	UpsertSettings(params UpdateSettingsParams) (Settings, error)
	GetLocationByUserId(userId int) (Location, error)
	CreateLocation(userId int, lat, lon float64) (Location, error)
	UpdateLocation(locationId int, lat, lon float64) (Location, error)
	ListSpaceLocations() ([]Location, error)
	CreateChat(externalId string, memberIds []int) (Chat, error)
	GetChatById(chatId int) (Chat, error)
	GetChatByExternalId(externalId string) (Chat, error)
	ListChats(userId int) ([]Chat, error)
	GetChatMembers(chatId int) ([]User, error)
	CreateMessage(params CreateMessageParams) (Message, error)
	GetMessageById(messageId int) (Message, error)
	GetMessages(chatId, limit int) ([]Message, error)
	CreateReaction(messageId, userId int, emoji string) (Reaction, error)
}
