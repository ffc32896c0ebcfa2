package database

import (
	"time"

	"github.com/lib/pq"
)

func (db *PgAskmeRepository) CreateAccount(params CreateAccountParams) (User, error) {
	res := db.conn.QueryRow(
		"INSERT INTO accounts (nickname, email, password_hash, created_at) "+
			"VALUES ($1, $2, $3, $4) RETURNING id, nickname, email, created_at",
		params.Nickname,
		params.EmailAddress,
		params.PasswordHash,
		time.Now().UTC(),
	)

	var u User
	err := res.Scan(
		&u.Id,
		&u.Nickname,
		&u.EmailAddress,
		&u.CreatedAt,
	)

	if err, ok := err.(*pq.Error); ok && err.Code.Name() == "unique_violation" {
		return u, ErrDuplicateEmail
	}

	return u, err
}

func (db *PgAskmeRepository) UpdateAccount(params UpdateAccountParams) (User, error) {
	res := db.conn.QueryRow(
		"UPDATE accounts SET nickname = $2, password_hash = $3, updated_at = $4 "+
			"WHERE id = $1 RETURNING id, nickname, email, created_at, updated_at",
		params.UserId,
		params.Nickname,
		params.PasswordHash,
		time.Now().UTC(),
	)

	var u User
	err := res.Scan(
		&u.Id,
		&u.Nickname,
		&u.EmailAddress,
		&u.CreatedAt,
		&u.UpdatedAt,
	)

	return u, err
}

func (db *PgAskmeRepository) GetAccountById(userId int) (User, error) {
	row := db.conn.QueryRow(
		"SELECT id, nickname, email, online, created_at, updated_at FROM accounts "+
			"WHERE id = $1 LIMIT 1",
		userId,
	)

	var u User
	err := row.Scan(
		&u.Id,
		&u.Nickname,
		&u.EmailAddress,
		&u.Online,
		&u.CreatedAt,
		&u.UpdatedAt,
	)

	return u, err
}

func (db *PgAskmeRepository) GetAccountByEmail(email string) (User, error) {
	row := db.conn.QueryRow(
		"SELECT id, nickname, email, password_hash, online, created_at, updated_at FROM accounts "+
			"WHERE email = $1 LIMIT 1",
		email,
	)

	var u User
	err := row.Scan(
		&u.Id,
		&u.Nickname,
		&u.EmailAddress,
		&u.PasswordHash,
		&u.Online,
		&u.CreatedAt,
		&u.UpdatedAt,
	)

	return u, err
}

func (db *PgAskmeRepository) SetAccountOnline(userId int, online bool) (User, error) {
	res := db.conn.QueryRow(
		"UPDATE accounts SET online = $2, updated_at = $3 "+
			"WHERE id = $1 RETURNING id, nickname, email, online",
		userId,
		online,
		time.Now().UTC(),
	)

	var u User
	err := res.Scan(
		&u.Id,
		&u.Nickname,
		&u.EmailAddress,
		&u.Online,
	)

	return u, err
}

func (db *PgAskmeRepository) GetSettings(userId int) (Settings, error) {
	row := db.conn.QueryRow(
		"SELECT id, account_id, enable_notifications, device_token FROM settings "+
			"WHERE account_id = $1 LIMIT 1",
		userId,
	)

	var s Settings
	err := row.Scan(
		&s.Id,
		&s.UserId,
		&s.EnableNotifications,
		&s.DeviceToken,
	)

	return s, err
}

func (db *PgAskmeRepository) UpsertSettings(params UpdateSettingsParams) (Settings, error) {
	res := db.conn.QueryRow(
		"INSERT INTO settings (account_id, enable_notifications, device_token, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $4, $4) "+
			"ON CONFLICT (account_id) DO UPDATE SET enable_notifications = $2, device_token = $3, updated_at = $4 "+
			"RETURNING id, account_id, enable_notifications, device_token",
		params.UserId,
		params.EnableNotifications,
		params.DeviceToken,
		time.Now().UTC(),
	)

	var s Settings
	err := res.Scan(
		&s.Id,
		&s.UserId,
		&s.EnableNotifications,
		&s.DeviceToken,
	)

	return s, err
}

func (db *PgAskmeRepository) GetLocationByUserId(userId int) (Location, error) {
	row := db.conn.QueryRow(
		"SELECT id, account_id, lat, lon, created_at, updated_at FROM locations "+
			"WHERE account_id = $1 LIMIT 1",
		userId,
	)

	var l Location
	err := row.Scan(
		&l.Id,
		&l.UserId,
		&l.Lat,
		&l.Lon,
		&l.CreatedAt,
		&l.UpdatedAt,
	)

	return l, err
}

func (db *PgAskmeRepository) CreateLocation(userId int, lat, lon float64) (Location, error) {
	res := db.conn.QueryRow(
		"INSERT INTO locations (account_id, lat, lon, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $4, $4) RETURNING id, account_id, lat, lon, created_at, updated_at",
		userId,
		lat,
		lon,
		time.Now().UTC(),
	)

	var l Location
	err := res.Scan(
		&l.Id,
		&l.UserId,
		&l.Lat,
		&l.Lon,
		&l.CreatedAt,
		&l.UpdatedAt,
	)

	return l, err
}

func (db *PgAskmeRepository) UpdateLocation(locationId int, lat, lon float64) (Location, error) {
	res := db.conn.QueryRow(
		"UPDATE locations SET lat = $2, lon = $3, updated_at = $4 "+
			"WHERE id = $1 RETURNING id, account_id, lat, lon, created_at, updated_at",
		locationId,
		lat,
		lon,
		time.Now().UTC(),
	)

	var l Location
	err := res.Scan(
		&l.Id,
		&l.UserId,
		&l.Lat,
		&l.Lon,
		&l.CreatedAt,
		&l.UpdatedAt,
	)

	return l, err
}

func (db *PgAskmeRepository) ListSpaceLocations() ([]Location, error) {
	rows, err := db.conn.Query(
		"SELECT l.id, l.account_id, l.lat, l.lon, l.created_at, l.updated_at, " +
			"a.id, a.nickname, a.email, a.online " +
			"FROM locations l JOIN accounts a ON a.id = l.account_id " +
			"WHERE NOT (l.lat = 0 AND l.lon = 0) " +
			"ORDER BY l.updated_at DESC",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var locations []Location
	for rows.Next() {
		var l Location
		if err := rows.Scan(
			&l.Id,
			&l.UserId,
			&l.Lat,
			&l.Lon,
			&l.CreatedAt,
			&l.UpdatedAt,
			&l.User.Id,
			&l.User.Nickname,
			&l.User.EmailAddress,
			&l.User.Online,
		); err != nil {
			return nil, err
		}
		locations = append(locations, l)
	}

	return locations, rows.Err()
}

func (db *PgAskmeRepository) CreateChat(externalId string, memberIds []int) (Chat, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return Chat{}, err
	}
	defer tx.Rollback()

	res := tx.QueryRow(
		"INSERT INTO chats (external_id, created_at, updated_at) "+
			"VALUES ($1, $2, $2) RETURNING id, external_id, created_at, updated_at",
		externalId,
		time.Now().UTC(),
	)

	var c Chat
	if err := res.Scan(&c.Id, &c.ExternalId, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return Chat{}, err
	}

	for _, memberId := range memberIds {
		if _, err := tx.Exec(
			"INSERT INTO chat_members (chat_id, account_id, created_at) VALUES ($1, $2, $3)",
			c.Id,
			memberId,
			time.Now().UTC(),
		); err != nil {
			return Chat{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return Chat{}, err
	}

	return c, nil
}

func (db *PgAskmeRepository) GetChatById(chatId int) (Chat, error) {
	row := db.conn.QueryRow(
		"SELECT id, external_id, created_at, updated_at FROM chats "+
			"WHERE id = $1 LIMIT 1",
		chatId,
	)

	var c Chat
	err := row.Scan(
		&c.Id,
		&c.ExternalId,
		&c.CreatedAt,
		&c.UpdatedAt,
	)

	return c, err
}

func (db *PgAskmeRepository) GetChatByExternalId(externalId string) (Chat, error) {
	row := db.conn.QueryRow(
		"SELECT id, external_id, created_at, updated_at FROM chats "+
			"WHERE external_id = $1 LIMIT 1",
		externalId,
	)

	var c Chat
	err := row.Scan(
		&c.Id,
		&c.ExternalId,
		&c.CreatedAt,
		&c.UpdatedAt,
	)

	return c, err
}

func (db *PgAskmeRepository) ListChats(userId int) ([]Chat, error) {
	rows, err := db.conn.Query(
		"SELECT c.id, c.external_id, c.created_at, c.updated_at "+
			"FROM chats c JOIN chat_members m ON m.chat_id = c.id "+
			"WHERE m.account_id = $1 ORDER BY c.updated_at DESC",
		userId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chats []Chat
	for rows.Next() {
		var c Chat
		if err := rows.Scan(&c.Id, &c.ExternalId, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		chats = append(chats, c)
	}

	return chats, rows.Err()
}

func (db *PgAskmeRepository) GetChatMembers(chatId int) ([]User, error) {
	rows, err := db.conn.Query(
		"SELECT a.id, a.nickname, a.email, a.online "+
			"FROM accounts a JOIN chat_members m ON m.account_id = a.id "+
			"WHERE m.chat_id = $1 ORDER BY m.created_at",
		chatId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.Id, &u.Nickname, &u.EmailAddress, &u.Online); err != nil {
			return nil, err
		}
		members = append(members, u)
	}

	return members, rows.Err()
}

func (db *PgAskmeRepository) CreateMessage(params CreateMessageParams) (Message, error) {
	res := db.conn.QueryRow(
		"INSERT INTO messages (chat_id, sender_id, content, created_at) "+
			"VALUES ($1, $2, $3, $4) RETURNING id, chat_id, sender_id, content, created_at",
		params.ChatId,
		params.SenderId,
		params.Content,
		time.Now().UTC(),
	)

	var m Message
	err := res.Scan(
		&m.Id,
		&m.ChatId,
		&m.SenderId,
		&m.Content,
		&m.CreatedAt,
	)

	return m, err
}

func (db *PgAskmeRepository) GetMessageById(messageId int) (Message, error) {
	row := db.conn.QueryRow(
		"SELECT m.id, m.chat_id, m.sender_id, m.content, m.created_at, "+
			"a.id, a.nickname, a.email "+
			"FROM messages m JOIN accounts a ON a.id = m.sender_id "+
			"WHERE m.id = $1 LIMIT 1",
		messageId,
	)

	var m Message
	err := row.Scan(
		&m.Id,
		&m.ChatId,
		&m.SenderId,
		&m.Content,
		&m.CreatedAt,
		&m.Sender.Id,
		&m.Sender.Nickname,
		&m.Sender.EmailAddress,
	)

	return m, err
}

func (db *PgAskmeRepository) GetMessages(chatId, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := db.conn.Query(
		"SELECT m.id, m.chat_id, m.sender_id, m.content, m.created_at, "+
			"a.id, a.nickname, a.email "+
			"FROM messages m JOIN accounts a ON a.id = m.sender_id "+
			"WHERE m.chat_id = $1 ORDER BY m.created_at DESC LIMIT $2",
		chatId,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(
			&m.Id,
			&m.ChatId,
			&m.SenderId,
			&m.Content,
			&m.CreatedAt,
			&m.Sender.Id,
			&m.Sender.Nickname,
			&m.Sender.EmailAddress,
		); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}

	return messages, rows.Err()
}

func (db *PgAskmeRepository) CreateReaction(messageId, userId int, emoji string) (Reaction, error) {
	res := db.conn.QueryRow(
		"INSERT INTO reactions (message_id, account_id, emoji, created_at) "+
			"VALUES ($1, $2, $3, $4) RETURNING id, message_id, account_id, emoji, created_at",
		messageId,
		userId,
		emoji,
		time.Now().UTC(),
	)

	var re Reaction
	err := res.Scan(
		&re.Id,
		&re.MessageId,
		&re.UserId,
		&re.Emoji,
		&re.CreatedAt,
	)

	if err, ok := err.(*pq.Error); ok && err.Code.Name() == "unique_violation" {
		return re, ErrDuplicateReaction
	}

	return re, err
}
