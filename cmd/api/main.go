package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/corpsite-backoffice/internal/application/inquiry"
	"github.com/corpsite-backoffice/internal/config"
	"github.com/corpsite-backoffice/internal/infrastructure/dynamo"
	jwtinfra "github.com/corpsite-backoffice/internal/infrastructure/jwt"
	redisinfra "github.com/corpsite-backoffice/internal/infrastructure/redis"
	"github.com/corpsite-backoffice/internal/infrastructure/smtp"
	"github.com/corpsite-backoffice/internal/infrastructure/sns"
	"github.com/corpsite-backoffice/internal/logging"
	"github.com/corpsite-backoffice/internal/realtime"
	transporthttp "github.com/corpsite-backoffice/internal/transport/http"
	"github.com/corpsite-backoffice/internal/transport/ws"
	"github.com/joho/godotenv"
)

func main() {
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("load config", "err", err)
	}
	log := logging.Setup(cfg.Log)
	if envErr != nil {
		log.Info("no .env file found, reading from environment")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	awsCfg, err := dynamo.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logging.Fatal("aws config", "err", err)
	}

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient := dynamo.NewClient(awsCfg, cfg)
	dynamo.Bootstrap(ctx, dynamoClient, cfg.DynamoTables)

	jwtProvider, err := jwtinfra.NewProvider(cfg.Auth)
	if err != nil {
		logging.Fatal("jwt provider", "err", err)
	}

	source, publisher, closeSource, err := changeSource(ctx, cfg, awsCfg, log)
	if err != nil {
		logging.Fatal("change source", "source", cfg.Realtime.Source, "err", err)
	}
	defer closeSource()

	hub := ws.NewHub(cfg.Realtime.ClientSendBuffer, cfg.Realtime.PingInterval, log)
	defer hub.Close()
	relay := realtime.NewRelay(source, hub, realtime.RelayRetryPolicy(), log)
	go func() {
		if err := relay.Run(ctx); err != nil {
			log.Error("change relay stopped", "err", err)
		}
	}()

	deps := &transporthttp.Deps{
		InquiryRepo: dynamo.NewInquiryRepo(dynamoClient, cfg.DynamoTables.Inquiries),
		NoticeRepo:  dynamo.NewNoticeRepo(dynamoClient, cfg.DynamoTables.Notices),
		ProfileRepo: dynamo.NewProfileRepo(dynamoClient, cfg.DynamoTables.Profiles),
		AccountRepo: dynamo.NewAccountRepo(dynamoClient, cfg.DynamoTables.Accounts),
		SessionRepo: dynamo.NewSessionRepo(dynamoClient, cfg.DynamoTables.Sessions),
		JWTProvider: jwtProvider,
		Publisher:   publisher,
		Alerters:    alerters(cfg, awsCfg, log),
		Hub:         hub,
		Logger:      log,
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      transporthttp.NewRouter(cfg, deps),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.AppPort, "env", cfg.AppEnv, "realtime_source", cfg.Realtime.Source)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal("server error", "err", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("forced shutdown", "err", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

// changeSource picks where inquiry changes come from. With the dynamodb source the
// table stream reports every write, so the services publish nothing themselves.
func changeSource(ctx context.Context, cfg *config.Config, awsCfg aws.Config, log *slog.Logger) (realtime.Source, realtime.Publisher, func(), error) {
	switch cfg.Realtime.Source {
	case "redis":
		rdb, err := redisinfra.NewClient(ctx, cfg.Realtime)
		if err != nil {
			return nil, nil, nil, err
		}
		bus := redisinfra.NewChangeBus(rdb, cfg.Realtime.RedisChannel, log)
		return bus, bus, func() { _ = rdb.Close() }, nil
	case "dynamodb":
		streams := dynamo.NewStreamsClient(awsCfg, cfg)
		src := dynamo.NewStreamSource(streams, cfg.DynamoTables.Inquiries, cfg.Realtime.StreamPollInterval, log)
		return src, realtime.NopPublisher{}, func() {}, nil
	default:
		broker := realtime.NewBroker()
		return broker, broker, broker.Close, nil
	}
}

// alerters returns the new-inquiry alert channels that are configured.
func alerters(cfg *config.Config, awsCfg aws.Config, log *slog.Logger) []inquiry.Alerter {
	var out []inquiry.Alerter
	if cfg.Alerts.InquiryInbox != "" {
		out = append(out, smtp.NewInquiryAlert(smtp.NewMailer(cfg.Alerts), cfg.Alerts.InquiryInbox))
	}
	if cfg.Alerts.SNSTopicARN != "" {
		out = append(out, sns.NewInquiryTopic(sns.NewClient(awsCfg, cfg), cfg.Alerts.SNSTopicARN))
	}
	if len(out) == 0 {
		log.Info("no inquiry alert channel configured")
	}
	return out
}
