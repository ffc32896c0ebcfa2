package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/askme-chat/askme-server/internal/bus"
	"github.com/askme-chat/askme-server/internal/chat"
	"github.com/askme-chat/askme-server/internal/database"
	"github.com/askme-chat/askme-server/internal/server"
	"github.com/askme-chat/askme-server/internal/space"
	"github.com/askme-chat/askme-server/internal/types"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Nickname string `json:"nickname"`
	Password string `json:"password"`
}

type UpdateAccountRequest struct {
	Nickname string `json:"nickname"`
	Password string `json:"password"`
}

type UpdateSettingsRequest struct {
	EnableNotifications bool   `json:"enable_notifications"`
	DeviceToken         string `json:"device_token"`
}

type JoinSpaceRequest struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type CreateChatRequest struct {
	MemberIds []int `json:"member_ids"`
}

type SendMessageRequest struct {
	ChatId string `json:"chat_id"`
	Text   string `json:"text"`
}

type CreateReactionRequest struct {
	MessageId int `json:"message_id"`
}

type PresenceRequest struct {
	Online bool `json:"online"`
}

const defaultMessageLimit = 50

func (s *AskmeApp) writeJson(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Printf("json encode: %v", err)
	}
}

func (s *AskmeApp) healthCheck(w http.ResponseWriter, _ *http.Request) {
	if err := s.db.Ping(); err != nil {
		s.log.Println("health check:", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (s *AskmeApp) createAccount(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var errResp *ApiError
	switch {
	case req.Email == "":
		errResp = NewFieldError("email", "email is required")
	case req.Nickname == "":
		errResp = NewFieldError("nickname", "nickname is required")
	case req.Password == "":
		errResp = NewFieldError("password", "password is required")
	}
	if errResp != nil {
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	pwdHash, err := hashPassword(req.Password)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	params := database.CreateAccountParams{
		Nickname:     req.Nickname,
		EmailAddress: req.Email,
		PasswordHash: pwdHash,
	}

	newUser, err := s.db.CreateAccount(params)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, database.ErrDuplicateEmail) {
			errResp = NewConflictError(err.Error())
			errResp.Field = "email"
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if _, err := s.db.UpsertSettings(database.UpdateSettingsParams{
		UserId:              newUser.Id,
		EnableNotifications: true,
	}); err != nil {
		s.log.Println("create default settings:", err)
	}

	u := types.User{
		Id:           newUser.Id,
		Nickname:     newUser.Nickname,
		EmailAddress: newUser.EmailAddress,
		CreatedAt:    newUser.CreatedAt,
		UpdatedAt:    newUser.UpdatedAt,
	}

	s.bus.Emit(bus.TopicNewUser, bus.Event{User: &u})

	s.writeJson(w, http.StatusCreated, u)
}

func (s *AskmeApp) account(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		userId, ok := UserId(r.Context())
		if !ok {
			errResp := NewUnauthorizedError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		user, err := s.db.GetAccountById(userId)
		if err != nil {
			var errResp *ApiError
			if errors.Is(err, sql.ErrNoRows) {
				errResp = NewNotFoundError()
			} else {
				errResp = NewInternalServerError(err)
			}
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		u := types.User{
			Id:           user.Id,
			Nickname:     user.Nickname,
			EmailAddress: user.EmailAddress,
			Online:       user.Online,
			CreatedAt:    user.CreatedAt,
			UpdatedAt:    user.UpdatedAt,
		}

		s.writeJson(w, http.StatusOK, u)
	case http.MethodPut:
		userId, ok := UserId(r.Context())
		if !ok {
			errResp := NewUnauthorizedError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		curUser, err := s.db.GetAccountById(userId)
		if err != nil {
			var errResp *ApiError
			if errors.Is(err, sql.ErrNoRows) {
				errResp = NewNotFoundError()
			} else {
				errResp = NewInternalServerError(err)
			}
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		var updateAccountReq UpdateAccountRequest
		err = json.NewDecoder(r.Body).Decode(&updateAccountReq)
		if err != nil {
			errResp := NewBadRequestError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		if updateAccountReq.Nickname == "" || updateAccountReq.Password == "" {
			errResp := NewBadRequestError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		pwdHash, err := hashPassword(updateAccountReq.Password)
		if err != nil {
			errResp := NewInternalServerError(err)
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		params := database.UpdateAccountParams{
			UserId:       curUser.Id,
			Nickname:     updateAccountReq.Nickname,
			PasswordHash: pwdHash,
		}

		dbUser, err := s.db.UpdateAccount(params)
		if err != nil {
			errResp := NewInternalServerError(err)
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		userResp := types.User{
			Id:           dbUser.Id,
			Nickname:     dbUser.Nickname,
			EmailAddress: dbUser.EmailAddress,
			CreatedAt:    dbUser.CreatedAt,
			UpdatedAt:    dbUser.UpdatedAt,
		}

		s.writeJson(w, http.StatusOK, userResp)
	default:
		errResp := NewMethodNotAllowedError()
		s.writeJson(w, errResp.StatusCode, errResp)
	}
}

func (s *AskmeApp) settings(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	switch r.Method {
	case http.MethodGet:
		settings, err := s.db.GetSettings(userId)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				s.writeJson(w, http.StatusOK, types.Settings{
					UserId:              userId,
					EnableNotifications: true,
				})
				return
			}
			errResp := NewInternalServerError(err)
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		s.writeJson(w, http.StatusOK, types.Settings{
			UserId:              settings.UserId,
			EnableNotifications: settings.EnableNotifications,
			DeviceToken:         settings.DeviceToken,
		})
	case http.MethodPut:
		var req UpdateSettingsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			errResp := NewBadRequestError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		updated, err := s.db.UpsertSettings(database.UpdateSettingsParams{
			UserId:              userId,
			EnableNotifications: req.EnableNotifications,
			DeviceToken:         req.DeviceToken,
		})
		if err != nil {
			errResp := NewInternalServerError(err)
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		settings := types.Settings{
			UserId:              updated.UserId,
			EnableNotifications: updated.EnableNotifications,
			DeviceToken:         updated.DeviceToken,
		}

		// live connections pick up the new gating inputs immediately
		s.es.UpdateSettings(userId, settings)

		s.writeJson(w, http.StatusOK, settings)
	default:
		errResp := NewMethodNotAllowedError()
		s.writeJson(w, errResp.StatusCode, errResp)
	}
}

func (s *AskmeApp) session(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	user, err := s.db.GetAccountById(userId)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	u := types.User{
		Id:           user.Id,
		Nickname:     user.Nickname,
		EmailAddress: user.EmailAddress,
		Online:       user.Online,
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	}

	s.writeJson(w, http.StatusOK, u)
}

func (s *AskmeApp) login(w http.ResponseWriter, r *http.Request) {
	var lr LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&lr); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if lr.Email == "" || lr.Password == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	dbUser, err := s.db.GetAccountByEmail(lr.Email)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if !verifyPassword(dbUser.PasswordHash, lr.Password) {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	u := types.User{
		Id:           dbUser.Id,
		Nickname:     dbUser.Nickname,
		EmailAddress: dbUser.EmailAddress,
		CreatedAt:    dbUser.CreatedAt,
		UpdatedAt:    dbUser.UpdatedAt,
	}

	token, err := s.createJwtForSession(u.Id, defaultJwtExpiration)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	http.SetCookie(w, createJwtCookie(token, defaultJwtExpiration))

	s.writeJson(w, http.StatusOK, u)
}

func (s *AskmeApp) logout(w http.ResponseWriter, _ *http.Request) {
	// instruct browser to delete cookie by overwriting it with an expired token
	http.SetCookie(w, createJwtCookie("", time.Duration(time.Unix(0, 0).Unix())))
	w.WriteHeader(http.StatusNoContent)
}

func (s *AskmeApp) joinSpace(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req JoinSpaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	loc, err := s.space.Join(userId, req.Lat, req.Lon)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, space.ErrUserNotFound) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, loc)
}

func (s *AskmeApp) leaveSpace(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	loc, err := s.space.Leave(userId)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, space.ErrNoLocation) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	// the record survives with sentinel coordinates
	s.writeJson(w, http.StatusOK, loc)
}

func (s *AskmeApp) listSpace(w http.ResponseWriter, r *http.Request) {
	locations, err := s.space.List()
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, locations)
}

func (s *AskmeApp) mySpace(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	loc, err := s.space.MyLocation(userId)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	// loc is null when the user never joined or has left
	s.writeJson(w, http.StatusOK, loc)
}

func (s *AskmeApp) createChat(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req CreateChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	memberIds := req.MemberIds
	if !slices.Contains(memberIds, userId) {
		memberIds = append(memberIds, userId)
	}
	if len(memberIds) < 2 {
		errResp := NewFieldError("member_ids", "a chat needs at least one other member")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	sid, err := s.generateShortId()
	if err != nil {
		s.log.Print("generateShortId:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	newChat, err := s.db.CreateChat(sid, memberIds)
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	members, err := s.db.GetChatMembers(newChat.Id)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	chatResp := types.Chat{
		Id:         newChat.Id,
		ExternalId: newChat.ExternalId,
		CreatedAt:  newChat.CreatedAt,
		UpdatedAt:  newChat.UpdatedAt,
	}
	for _, member := range members {
		chatResp.Members = append(chatResp.Members, types.User{
			Id:           member.Id,
			Nickname:     member.Nickname,
			EmailAddress: member.EmailAddress,
			Online:       member.Online,
		})
	}

	s.writeJson(w, http.StatusCreated, chatResp)
}

func (s *AskmeApp) getChats(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	chats, err := s.chat.ListChats(userId)
	if err != nil {
		s.log.Println("list chats:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, chats)
}

func (s *AskmeApp) getMessages(w http.ResponseWriter, r *http.Request) {
	externalId := r.URL.Query().Get("chat_id")
	if externalId == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	limit := defaultMessageLimit
	limitStr := r.URL.Query().Get("limit")
	if limitStr != "" {
		var err error
		limit, err = strconv.Atoi(limitStr)
		if err != nil {
			errResp := NewBadRequestError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}
	}

	messages, err := s.chat.Messages(externalId, limit)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, chat.ErrChatNotFound) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, messages)
}

func (s *AskmeApp) sendMessage(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.Text == "" {
		errResp := NewFieldError("text", "message text is required")
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	msg, err := s.chat.SendMessage(userId, req.ChatId, req.Text)
	if err != nil {
		var errResp *ApiError
		switch {
		case errors.Is(err, chat.ErrChatNotFound):
			errResp = NewNotFoundError()
		case errors.Is(err, chat.ErrNotAMember):
			errResp = NewForbiddenError()
		default:
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusCreated, msg)
}

func (s *AskmeApp) createReaction(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req CreateReactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	reaction, err := s.chat.React(userId, req.MessageId)
	if err != nil {
		var errResp *ApiError
		switch {
		case errors.Is(err, chat.ErrMessageNotFound):
			errResp = NewNotFoundError()
		case errors.Is(err, database.ErrDuplicateReaction):
			errResp = NewConflictError(err.Error())
		default:
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusCreated, reaction)
}

func (s *AskmeApp) presence(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req PresenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	user, err := s.chat.SetOnline(userId, req.Online)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, user)
}

func (s *AskmeApp) serveWs(w http.ResponseWriter, r *http.Request) {
	id, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	user, err := s.db.GetAccountById(id)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	settings := types.Settings{UserId: id, EnableNotifications: true}
	if dbSettings, err := s.db.GetSettings(id); err == nil {
		settings = types.Settings{
			UserId:              dbSettings.UserId,
			EnableNotifications: dbSettings.EnableNotifications,
			DeviceToken:         dbSettings.DeviceToken,
		}
	} else if !errors.Is(err, sql.ErrNoRows) {
		s.log.Println("get settings:", err)
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			// only allow connections from allowed origins
			origin := r.Header.Get("Origin")
			if origin == "" {
				// if no origin header, allow the request
				return true
			}

			return slices.Contains(s.allowedOrigins, origin)
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Println("error upgrading connection:", err)
		return
	}

	client := server.NewClient(types.User{
		Id:           user.Id,
		Nickname:     user.Nickname,
		EmailAddress: user.EmailAddress,
		Online:       user.Online,
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	}, settings, conn, s.es, s.log)

	s.es.RegisterClient(client)
	client.Attach()
	go client.Write()
	go client.Read()
}
