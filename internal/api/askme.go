package api

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/teris-io/shortid"

	"github.com/askme-chat/askme-server/internal/bus"
	"github.com/askme-chat/askme-server/internal/chat"
	"github.com/askme-chat/askme-server/internal/config"
	"github.com/askme-chat/askme-server/internal/database"
	"github.com/askme-chat/askme-server/internal/server"
	"github.com/askme-chat/askme-server/internal/space"
	"github.com/askme-chat/askme-server/internal/stats"
)

type AskmeApp struct {
	log            *log.Logger
	db             database.AskmeRepository
	mux            *http.Server
	es             *server.EventServer
	bus            *bus.Bus
	space          *space.Service
	chat           *chat.Service
	stats          stats.StatsProvider
	signingKey     []byte
	allowedOrigins []string
	sid            *shortid.Shortid
}

func NewAskmeApp(mux *http.ServeMux, logger *log.Logger, es *server.EventServer, db database.AskmeRepository,
	b *bus.Bus, spaceSvc *space.Service, chatSvc *chat.Service, su stats.StatsProvider, cfg *config.Config) (*AskmeApp, error) {
	sid, err := shortid.New(1, shortid.DefaultABC, 2342)
	if err != nil {
		return nil, fmt.Errorf("shortid: %w", err)
	}

	s := &AskmeApp{
		log:            logger,
		db:             db,
		es:             es,
		bus:            b,
		space:          spaceSvc,
		chat:           chatSvc,
		stats:          su,
		signingKey:     cfg.SigningKey,
		allowedOrigins: cfg.AllowedOrigins,
		sid:            sid,
	}

	mux.HandleFunc("GET /healthz", s.healthCheck)
	mux.HandleFunc("POST /api/auth/register", s.createAccount)
	mux.HandleFunc("POST /api/auth/login", s.login)
	mux.HandleFunc("GET /api/auth/session", s.authMiddleware(s.session))
	mux.Handle("GET /api/auth/logout", s.authMiddleware(s.logout))
	mux.Handle("/api/account", s.authMiddleware(s.account))
	mux.Handle("/api/settings", s.authMiddleware(s.settings))
	mux.Handle("POST /api/spaces/join", s.authMiddleware(s.joinSpace))
	mux.Handle("POST /api/spaces/leave", s.authMiddleware(s.leaveSpace))
	mux.Handle("GET /api/spaces", s.authMiddleware(s.listSpace))
	mux.Handle("GET /api/spaces/me", s.authMiddleware(s.mySpace))
	mux.Handle("POST /api/chats", s.authMiddleware(s.createChat))
	mux.Handle("GET /api/chats", s.authMiddleware(s.getChats))
	mux.Handle("GET /api/messages", s.authMiddleware(s.getMessages))
	mux.Handle("POST /api/messages", s.authMiddleware(s.sendMessage))
	mux.Handle("POST /api/reactions", s.authMiddleware(s.createReaction))
	mux.Handle("PUT /api/presence", s.authMiddleware(s.presence))
	mux.Handle("GET /ws", s.authMiddleware(s.serveWs))

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept"}),
		handlers.AllowCredentials(),
	)(mux)

	h = s.errorHandler(h)

	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: h,
	}

	s.mux = srv
	return s, nil
}

func (s *AskmeApp) Start() error {
	s.log.Printf("starting server on %s\n", s.mux.Addr)
	return s.mux.ListenAndServe()
}

func (s *AskmeApp) Shutdown(ctx context.Context) error {
	s.log.Println("shutting down HTTP server...")
	if err := s.mux.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}

func (s *AskmeApp) generateShortId() (string, error) {
	return s.sid.Generate()
}
