package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"LeadDesk/bot"
	"LeadDesk/impl/core"
	"LeadDesk/internal/config"
	"LeadDesk/internal/database"
	"LeadDesk/internal/http-server/api"
	"LeadDesk/internal/lib/logger"
	"LeadDesk/internal/lib/sl"
	"LeadDesk/internal/service/auth"
	"LeadDesk/internal/service/chat"
	"LeadDesk/internal/service/chatbot"
	"LeadDesk/internal/service/dispatch"
	"LeadDesk/internal/service/gateway"
	"LeadDesk/internal/service/readstatus"
	"LeadDesk/internal/ws"
)

func main() {

	configPath := flag.String("conf", "config.yml", "path to config file")
	logPath := flag.String("log", "/var/log/", "path to log file directory")
	flag.Parse()

	conf := config.MustLoad(*configPath)
	lg := logger.SetupLogger(conf.Env, *logPath)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var tgBot *bot.TgBot
	if conf.Telegram.Enabled {
		var err error
		tgBot, err = bot.NewTgBot(conf.Telegram.BotName, conf.Telegram.ApiKey, conf.Telegram.AdminId, lg)
		if err != nil {
			lg.Error("failed to initialize telegram bot", sl.Err(err))
		} else {
			lg = logger.SetupTelegramHandler(lg, tgBot, slog.LevelWarn)
			lg.With(
				slog.String("bot_name", conf.Telegram.BotName),
			).Info("telegram bot initialized")
		}
	}

	lg.Info("starting leaddesk", slog.String("config", *configPath), slog.String("env", conf.Env))
	lg.Debug("debug messages enabled")

	pg, err := repository.NewPostgresClient(ctx, conf, lg)
	if err != nil {
		lg.Error("backend client", sl.Err(err))
		os.Exit(1)
	}
	defer pg.Close()
	if err = pg.EnsureSchema(ctx, conf.Backend.Migrate); err != nil {
		lg.Error("backend schema", sl.Err(err))
		os.Exit(1)
	}
	lg.With(
		slog.String("prefix", conf.Backend.Prefix),
		slog.Bool("migrate", conf.Backend.Migrate),
	).Info("backend client initialized")

	feed := repository.NewChangeFeed(pg, lg)
	go feed.Run(ctx)

	handler := core.New(lg)
	chatService := chat.NewService(pg, lg)
	handler.SetChatService(chatService)
	handler.SetRoster(pg)
	handler.SetReadStore(pg, readstatus.Options{
		TTL:           conf.ReadStatus.TTL,
		BatchSize:     conf.ReadStatus.BatchSize,
		Concurrency:   conf.ReadStatus.Concurrency,
		PriorityCount: conf.ReadStatus.PriorityCount,
		PriorityDelay: conf.ReadStatus.PriorityDelay,
	})
	handler.SetFeed(feed, conf.Live.PollInterval)

	agentStore, err := repository.NewAgentStore(conf, lg)
	if err != nil {
		lg.Error("redis agent store, keeping selections in memory", sl.Err(err))
	}
	if agentStore != nil {
		defer func() { _ = agentStore.Close() }()
		handler.SetAgentStore(agentStore)
		lg.With(slog.String("addr", conf.Redis.Addr)).Info("agent store initialized")
	}

	hub := ws.NewHub(lg)
	hub.SetSessionFactory(handler)
	go hub.Run(ctx)
	go hub.WatchFeed(ctx, feed.Subscribe)
	handler.SetBroadcaster(hub)

	dispatcher := dispatch.New(pg, gateway.NewClient(conf, lg), chatbot.NewService(conf, lg), lg)
	dispatcher.SetNotifier(hub)

	mongo, err := repository.NewMongoClient(conf, lg)
	if err != nil {
		lg.Error("mongo client", sl.Err(err))
	}
	if mongo != nil {
		dispatcher.SetAuditLog(mongo)
		dispatcher.SetFileStore(mongo)
		handler.SetDispatchLog(mongo)
		signingKey := conf.Files.SigningKey
		if signingKey == "" {
			signingKey = conf.Backend.JwtSecret
		}
		handler.SetFileStore(mongo, signingKey, conf.Files.LinkTTL)
		lg.With(
			slog.String("host", conf.Mongo.Host),
			slog.String("port", conf.Mongo.Port),
			slog.String("user", conf.Mongo.User),
			slog.String("database", conf.Mongo.Database),
		).Info("mongo client initialized")
	}
	handler.SetDispatcher(dispatcher)

	if tgBot != nil {
		tgBot.SetStatsSource(chatService)
		go func() {
			if err := tgBot.Start(); err != nil {
				lg.Error("telegram bot error", sl.Err(err))
			}
		}()
	}

	authService := auth.NewAuthService(conf.Backend.JwtSecret, lg)

	// *** blocking start with http server ***
	err = api.New(ctx, conf, lg, handler, authService, hub)
	if err != nil {
		lg.Error("server start", sl.Err(err))
		return
	}
	lg.Info("service stopped")
}
