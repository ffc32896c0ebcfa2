package types

import (
	"time"
)

type User struct {
	Id           int       `json:"id"`
	Nickname     string    `json:"nickname"`
	EmailAddress string    `json:"email_address,omitempty"`
	Password     string    `json:"-"`
	Online       bool      `json:"online"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
	UpdatedAt    time.Time `json:"updated_at,omitempty"`
}

// Settings holds a user's notification preferences and the push token
// for their current device. An empty DeviceToken means no device is
// registered for push delivery.
type Settings struct {
	UserId              int    `json:"user_id"`
	EnableNotifications bool   `json:"enable_notifications"`
	DeviceToken         string `json:"device_token,omitempty"`
}

// Location is a user's broadcast position. Lat and Lon both zero is the
// sentinel for "not in any space".
type Location struct {
	Id        int       `json:"id"`
	UserId    int       `json:"user_id"`
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
	User      User      `json:"user"`
	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// InSpace reports whether the location counts toward space membership.
func (l Location) InSpace() bool {
	return l.Lat != 0 || l.Lon != 0
}

type Chat struct {
	Id         int       `json:"id"`
	ExternalId string    `json:"external_id"`
	Members    []User    `json:"members,omitempty"`
	CreatedAt  time.Time `json:"created_at,omitempty"`
	UpdatedAt  time.Time `json:"updated_at,omitempty"`
}

type Message struct {
	Id        int       `json:"id"`
	ChatId    string    `json:"chat_id"`
	SenderId  int       `json:"sender_id"`
	Sender    User      `json:"sender"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

type Reaction struct {
	Id        int       `json:"id"`
	MessageId int       `json:"message_id"`
	UserId    int       `json:"user_id"`
	Emoji     string    `json:"emoji"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}
