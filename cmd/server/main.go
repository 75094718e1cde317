package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/shift-checklist-bot/internal/botapi"
	"github.com/iliyamo/shift-checklist-bot/internal/config"
	"github.com/iliyamo/shift-checklist-bot/internal/handler"
	"github.com/iliyamo/shift-checklist-bot/internal/queue"
	"github.com/iliyamo/shift-checklist-bot/internal/repository"
	"github.com/iliyamo/shift-checklist-bot/internal/router"
	"github.com/iliyamo/shift-checklist-bot/internal/service"
	"github.com/iliyamo/shift-checklist-bot/internal/storage"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	ctx := context.Background()

	// Redis is optional: without it update deduplication is off and the
	// "redis" document backend is unavailable.
	redisClient := config.NewRedisClient()

	backend := openBackend(cfg, redisClient)

	catalog, err := repository.NewCatalogRepo(ctx, backend)
	if err != nil {
		log.Fatalf("load catalog: %v", err)
	}
	assignments, err := repository.NewAssignmentRepo(ctx, backend)
	if err != nil {
		log.Fatalf("load assignments: %v", err)
	}
	users, err := repository.NewUserRepo(ctx, backend, cfg.AdminIDs)
	if err != nil {
		log.Fatalf("load users: %v", err)
	}
	notifications, err := repository.NewNotificationRepo(ctx, backend)
	if err != nil {
		log.Fatalf("load notifications: %v", err)
	}
	reports, err := repository.NewReportRepo(ctx, backend)
	if err != nil {
		log.Fatalf("load reports: %v", err)
	}
	secret, err := repository.NewSecretRepo(ctx, backend, cfg.AuthPassword, cfg.BcryptCost)
	if err != nil {
		log.Fatalf("load secret: %v", err)
	}

	var sender botapi.Sender = botapi.LogSender{}
	if cfg.BotAPIURL != "" && cfg.BotToken != "" {
		sender = botapi.NewClient(cfg.BotAPIURL, cfg.BotToken)
	} else {
		log.Printf("bot api not configured, outbound messages go to the process log")
	}

	sessions := handler.NewSessions()
	publisher := service.NewReportPublisher(queue.BrokerURL())

	userFlow := &handler.UserFlow{
		Sessions:    sessions,
		Catalog:     catalog,
		Assignments: assignments,
		Users:       users,
		Reports:     reports,
		Secret:      secret,
		Sender:      sender,
		Publisher:   publisher,
		SelfService: cfg.SelfService,
	}
	adminFlow := &handler.AdminFlow{
		Sessions:      sessions,
		Catalog:       catalog,
		Assignments:   assignments,
		Users:         users,
		Reports:       reports,
		Notifications: notifications,
		Secret:        secret,
		Sender:        sender,
		ExportSecret:  cfg.ExportSecret,
		ExportTTLMin:  cfg.ExportTTLMin,
		PublicURL:     cfg.PublicURL,
	}
	dispatcher := &handler.Dispatcher{
		Sessions: sessions,
		Users:    users,
		User:     userFlow,
		Admin:    adminFlow,
		Sender:   sender,
	}

	go func() {
		if err := queue.StartReportConsumer(); err != nil {
			log.Printf("report consumer stopped: %v", err)
		}
	}()

	reminder := &service.Reminder{
		Assignments:   assignments,
		Notifications: notifications,
		Users:         users,
		Sender:        sender,
	}
	go reminder.Run(ctx)

	e := echo.New()
	e.HideBanner = true
	router.RegisterRoutes(e, dispatcher, handler.NewExportHandler(reports), cfg.WebhookSecret, cfg.ExportSecret, redisClient)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s, backend=%s)", addr, cfg.Env, cfg.StoreBackend)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}

// openBackend picks the document store from configuration. Anything that
// fails to open degrades to the file backend so the bot still starts.
func openBackend(cfg config.Config, redisClient *redis.Client) storage.Backend {
	switch cfg.StoreBackend {
	case "mysql":
		b, err := storage.OpenMySQL(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			log.Printf("mysql backend unavailable (%v), falling back to file", err)
			break
		}
		return b
	case "redis":
		if redisClient == nil {
			log.Printf("redis backend requested but redis is unreachable, falling back to file")
			break
		}
		return storage.NewRedisBackend(redisClient, "")
	}
	b, err := storage.NewFileBackend(cfg.DataDir)
	if err != nil {
		log.Fatalf("open data dir %s: %v", cfg.DataDir, err)
	}
	return b
}
