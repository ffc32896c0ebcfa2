package database

import "time"

type User struct {
	Id           int
	Nickname     string
	EmailAddress string
	PasswordHash string
	Online       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Settings struct {
	Id                  int
	UserId              int
	EnableNotifications bool
	DeviceToken         string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

type Location struct {
	Id        int
	UserId    int
	Lat       float64
	Lon       float64
	User      User
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Chat struct {
	Id         int
	ExternalId string
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Members    []User
}

type Message struct {
	Id        int
	ChatId    int
	SenderId  int
	Sender    User
	Content   string
	CreatedAt time.Time
}

type Reaction struct {
	Id        int
	MessageId int
	UserId    int
	Emoji     string
	CreatedAt time.Time
}

type CreateAccountParams struct {
	Nickname     string
	EmailAddress string
	PasswordHash string
}

type UpdateAccountParams struct {
	UserId       int
	Nickname     string
	PasswordHash string
}

type UpdateSettingsParams struct {
	UserId              int
	EnableNotifications bool
	DeviceToken         string
}

type CreateMessageParams struct {
	ChatId   int
	SenderId int
	Content  string
}
