package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/trendstalk/trendstalk/internal/blogservice"
	"github.com/trendstalk/trendstalk/internal/common"
	"github.com/trendstalk/trendstalk/internal/mailservice"
	"github.com/trendstalk/trendstalk/internal/mediaservice"
	"github.com/trendstalk/trendstalk/internal/userservice"
)

type application struct {
	config       *Config
	logger       *slog.Logger
	userService  *userservice.UserService
	blogService  *blogservice.BlogService
	mediaService *mediaservice.MediaService
	mailService  *mailservice.MailService
	broker       *common.MessageBroker
}

func main() {
	// Initialize the logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	// Load the configuration
	cfg, err := loadConfig(".env")
	if err != nil {
		logger.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Initialize the database
	db, err := common.NewDB(cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, 10, 5, 15*time.Minute)
	if err != nil {
		logger.Error("failed to connect to the database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer common.CloseDB(db)

	// Initialize the message broker
	URI := fmt.Sprintf("amqp://%s:%s@%s:%s/", cfg.MQUser, cfg.MQPassword, cfg.MQHost, cfg.MQPort)
	broker, err := common.NewMessageBroker(URI)
	if err != nil {
		logger.Error("failed to connect to the message broker", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer broker.Close()

	// Setup the exchanges, queues, and binding keys
	err = common.SetupUserExchange(broker)
	if err != nil {
		logger.Error("failed to setup the user exchange", slog.String("error", err.Error()))
		os.Exit(1)
	}

	err = common.SetupMediaExchange(broker)
	if err != nil {
		logger.Error("failed to setup the media exchange", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Initialize the object store
	store, err := mediaservice.NewMinioStore(cfg.StorageEndpoint, cfg.StorageAccessKey, cfg.StorageSecretKey, cfg.StorageBucket, cfg.StorageBaseURL, cfg.StorageUseSSL)
	if err != nil {
		logger.Error("failed to connect to the object store", slog.String("error", err.Error()))
		os.Exit(1)
	}

	err = store.EnsureBucket(context.Background())
	if err != nil {
		logger.Error("failed to prepare the storage bucket", slog.String("error", err.Error()))
		os.Exit(1)
	}

	cache := common.NewCache(5*time.Minute, 10*time.Minute)

	// Initialize the services
	app := &application{
		config:       cfg,
		logger:       logger,
		userService:  userservice.NewUserService(db, broker, []byte(cfg.JWTSecret)),
		blogService:  blogservice.NewBlogService(db, cache, broker),
		mediaService: mediaservice.NewMediaService(store, broker, logger),
		mailService:  mailservice.NewMailService(broker, cfg.MailHost, cfg.MailUser, cfg.MailPassword, cfg.MailSender, cfg.MailPort, logger),
		broker:       broker,
	}

	// Initialize the consumers
	go app.mailService.SendWelcomeEmail()
	go app.mediaService.CleanupDeletedPosts()

	// Start the HTTP server
	err = app.serve()
	if err != nil {
		logger.Error("failed to start the server", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
