package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"

	"github.com/wbredist/wb-redist-bot/internal/api"
	"github.com/wbredist/wb-redist-bot/internal/app"
	"github.com/wbredist/wb-redist-bot/internal/config"
	"github.com/wbredist/wb-redist-bot/internal/crypto"
	"github.com/wbredist/wb-redist-bot/internal/db"
	"github.com/wbredist/wb-redist-bot/internal/jobs"
	"github.com/wbredist/wb-redist-bot/internal/logging"
	"github.com/wbredist/wb-redist-bot/internal/observability"
	"github.com/wbredist/wb-redist-bot/internal/redist"
	"github.com/wbredist/wb-redist-bot/internal/wbapi"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Не удалось загрузить .env файл, используем переменные окружения")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Ошибка конфигурации: %v", err)
	}

	lg, err := logging.Init(cfg.LogLevel, cfg.Env)
	if err != nil {
		log.Fatalf("Ошибка инициализации логгера: %v", err)
	}
	defer lg.Closer()
	logger := lg.Sugar

	flushSentry, err := observability.InitSentry(cfg.SentryDSN, cfg.Env, "")
	if err != nil {
		logger.Warnw("sentry init", "err", err)
	} else {
		defer flushSentry()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatalw("db open", "err", err)
	}
	defer func() { _ = database.Close() }()

	if err := db.Migrate(database); err != nil {
		logger.Fatalw("db migrate", "err", err)
	}

	box, err := crypto.New(cfg.EncryptionKey)
	if err != nil {
		logger.Fatalw("encryption key", "err", err)
	}

	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		logger.Fatalw("bot init", "err", err)
	}
	logger.Infow("бот запущен", "username", bot.Self.UserName, "env", cfg.Env)

	svc := redist.NewService(database, box, wbapi.Config{
		CommonURL:     cfg.WBCommonURL,
		SuppliesURL:   cfg.WBSuppliesURL,
		StatisticsURL: cfg.WBStatisticsURL,
	}, cfg.SubmitTimeout, logger)

	apiSrv := api.NewServer(database, svc, box, cfg.BotToken, logger)
	app.StartHTTP(ctx, cfg.HTTPAddr, database, apiSrv.Handler())

	runner := jobs.New(ctx, logger)
	searcher := jobs.NewSlotSearcher(database, svc, bot, logger)
	runner.Every(cfg.SlotSearchInterval, "slot_search", searcher.Run)
	runner.Every(6*time.Hour, "warehouse_refresh", jobs.RefreshWarehouses(svc, logger))
	runner.Every(time.Hour, "session_expiry", jobs.ExpireSessions(database, logger))

	deps := &app.Deps{Bot: bot, DB: database, Svc: svc, Box: box, AdminIDs: cfg.AdminIDs, Loc: cfg.Location}
	limiter := app.NewChatLimiter()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			logger.Infow("остановка по сигналу")
			bot.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			go app.HandleUpdate(deps, limiter, update)
		}
	}
}
