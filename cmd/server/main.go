package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/askme-chat/askme-server/internal/api"
	"github.com/askme-chat/askme-server/internal/bus"
	"github.com/askme-chat/askme-server/internal/chat"
	"github.com/askme-chat/askme-server/internal/config"
	"github.com/askme-chat/askme-server/internal/database"
	"github.com/askme-chat/askme-server/internal/notify"
	"github.com/askme-chat/askme-server/internal/server"
	"github.com/askme-chat/askme-server/internal/space"
	"github.com/askme-chat/askme-server/internal/stats"
)

const defaultSigningKey = "wT0phFUusHZIrDhL9bUKPUhwaxKhpi/SaI6PtgB+MgU="

type stringSliceFlag []string

func (s *stringSliceFlag) String() string {
	return strings.Join(*s, ",")
}

func (s *stringSliceFlag) Set(value string) error {
	*s = append(*s, strings.Split(value, ",")...)
	return nil
}

var (
	addr           string
	dsn            string
	signingKey     string
	pushEndpoint   string
	logNotifier    bool
	allowedOrigins stringSliceFlag
)

func main() {
	flag.StringVar(&addr, "addr", "localhost:8000", "server address")
	flag.StringVar(&dsn, "dsn", "host=localhost user=postgres password=postgres dbname=postgres sslmode=disable", "database connection string")
	flag.StringVar(&signingKey, "signing-key", defaultSigningKey, "base64 encoded signing key")
	flag.StringVar(&pushEndpoint, "push-endpoint", notify.DefaultExpoEndpoint, "push notification endpoint")
	flag.BoolVar(&logNotifier, "log-notifier", false, "log notifications instead of sending them")
	flag.Var(&allowedOrigins, "allowed-origins", "comma-separated list of allowed origins for CORS")
	flag.Parse()

	logger := log.New(os.Stderr, "[askme] ", log.LstdFlags)

	cfg, err := config.NewConfig(addr, dsn, signingKey, pushEndpoint, allowedOrigins)
	if err != nil {
		logger.Fatal("config:", err)
	}

	dbConn, err := database.NewPgAskmeRepository(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("db open:", err)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Fatal("db close:", err)
		}
	}()

	mux := http.NewServeMux()

	statsUpdater := stats.NewStatsUpdater(mux)

	eventBus := bus.NewBus(logger, statsUpdater)
	spaceSvc := space.NewService(logger, dbConn, eventBus)
	chatSvc := chat.NewService(logger, dbConn, eventBus)

	var notifier notify.Notifier = notify.NewExpoNotifier(cfg.PushEndpoint)
	if logNotifier {
		notifier = notify.NewLogNotifier(logger)
	}

	eventServer, err := server.NewEventServer(logger, eventBus, chatSvc, notifier, statsUpdater)
	if err != nil {
		logger.Fatal("new event server:", err)
	}

	srv, err := api.NewAskmeApp(mux, logger, eventServer, dbConn, eventBus, spaceSvc, chatSvc, statsUpdater, cfg)
	if err != nil {
		logger.Fatal("new askme app:", err)
	}

	statsUpdater.Run()
	defer statsUpdater.Stop()

	go eventServer.Run()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		logger.Printf("received signal: %s\n", sig)
	case err := <-errCh:
		logger.Println("server:", err)
	}

	shutDownCtx, cancel := context.WithTimeout(
		context.Background(),
		10*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutDownCtx); err != nil {
		logger.Fatalln("HTTP server shutdown:", err)
	}

	logger.Println("shutting down event server...")
	if err := eventServer.Shutdown(shutDownCtx); err != nil {
		logger.Fatalln("event server shutdown:", err)
	}

	logger.Println("shutdown complete")
}
