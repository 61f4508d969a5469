package main

import (
	"database/sql"
	"log/slog"
	"os"

	"github.com/mcdev12/scorepad/go/internal/gateway"
	"github.com/mcdev12/scorepad/go/internal/httpapi"
	"github.com/mcdev12/scorepad/go/internal/session"
	"github.com/mcdev12/scorepad/go/internal/session/outbox"
)

type Services struct {
	Session *session.App
	API     *httpapi.Handler
	Gateway *gateway.Service
	Outbox  *outbox.Worker
}

func setupServices(database *sql.DB, config *Config) (*Services, error) {
	// Database layer → Repository layer → App layer → HTTP layer
	sessionRepo := session.NewRepository(database)
	sessionApp := session.NewApp(sessionRepo)
	apiHandler := httpapi.NewHandler(sessionApp)

	slogger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	publisherConfig := outbox.DefaultNATSPublisherConfig()
	publisherConfig.URL = config.NATS.URL
	publisherConfig.StreamName = config.NATS.StreamName
	publisherConfig.SubjectPrefix = config.NATS.SubjectPrefix
	publisher, err := outbox.NewNATSPublisher(publisherConfig, slogger)
	if err != nil {
		return nil, err
	}

	outboxConfig := outbox.DefaultConfig()
	outboxConfig.PollInterval = config.outboxPollInterval()
	outboxConfig.BatchSize = int32(config.Outbox.BatchSize)
	outboxWorker := outbox.NewWorker(database, publisher, outboxConfig, slogger)

	gatewayConfig := gateway.DefaultConfig()
	gatewayConfig.JetStreamConfig.URL = config.NATS.URL
	gatewayConfig.JetStreamConfig.StreamName = config.NATS.StreamName
	gatewayConfig.JetStreamConfig.SubjectFilter = config.NATS.SubjectPrefix + ".>"
	gatewayService, err := gateway.NewService(gatewayConfig)
	if err != nil {
		return nil, err
	}

	return &Services{
		Session: sessionApp,
		API:     apiHandler,
		Gateway: gatewayService,
		Outbox:  outboxWorker,
	}, nil
}
