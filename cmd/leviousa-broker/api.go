package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	cli "github.com/urfave/cli/v3"

	"github.com/leviousa/leviousa-broker/pkg/client"
	"github.com/leviousa/leviousa-broker/pkg/connections"
	"github.com/leviousa/leviousa-broker/pkg/eventbus"
	"github.com/leviousa/leviousa-broker/pkg/log"
	"github.com/leviousa/leviousa-broker/pkg/otelhelper"
	"github.com/leviousa/leviousa-broker/pkg/web"
)

const defaultPort = 9091

func APICommand() *cli.Command {
	flags := append(brokerFlags(),
		&cli.IntFlag{
			Name:    "port",
			Aliases: []string{"p"},
			Usage:   "Port to run the API server on",
			Value:   defaultPort,
			Sources: cli.EnvVars("PORT"),
		},
		&cli.StringFlag{
			Name:    "redis-url",
			Usage:   "Redis URL for the shared connection snapshot store",
			Sources: cli.EnvVars("REDIS_URL"),
		},
		&cli.DurationFlag{
			Name:    "snapshot-ttl",
			Usage:   "How long cached connection snapshots stay fresh",
			Value:   connections.DefaultTTL,
			Sources: cli.EnvVars("SNAPSHOT_TTL"),
		},
		&cli.StringFlag{
			Name:    "refresh-schedule",
			Usage:   "Cron schedule for background snapshot refresh",
			Value:   "@every 30m",
			Sources: cli.EnvVars("REFRESH_SCHEDULE"),
		},
		&cli.BoolFlag{
			Name:    "tracing",
			Usage:   "Enable OpenTelemetry tracing",
			Sources: cli.EnvVars("TRACING_ENABLED"),
		},
	)

	return &cli.Command{
		Name:    "api",
		Aliases: []string{"a"},
		Usage:   "Serve the broker client over HTTP",
		Flags:   flags,
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))
			logger := log.WithModule("api")

			settings, err := settingsFromCommand(command)
			if err != nil {
				return err
			}

			logger.InfoContext(ctx, "Initializing Leviousa broker API", "project_id", settings.ProjectID)

			issuer, err := newIssuer(settings)
			if err != nil {
				return err
			}

			cat, err := newCatalog(settings, logger)
			if err != nil {
				return err
			}

			store, err := newSnapshotStore(ctx, settings, logger)
			if err != nil {
				return err
			}

			defer func() {
				if err := store.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close snapshot store", "error", err)
				}
			}()

			bus := eventbus.NewGoChannelEventBus(logger)
			defer func() {
				if err := bus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			// The cache fetches through the client and the client invalidates
			// through the cache; the closure breaks the construction cycle.
			var brokerClient *client.Client

			cache := connections.NewCache(store,
				func(ctx context.Context, userID string) ([]connections.Connection, error) {
					return brokerClient.ConnectedIntegrations(ctx, userID)
				},
				logger,
				connections.WithTTL(settings.SnapshotTTL),
			)

			opts := append(clientOptions(settings),
				client.WithEventPublisher(bus),
				client.WithConnectionsCache(cache),
			)

			if command.Bool("tracing") {
				tracer, err := otelhelper.NewTracer(ctx, "leviousa-broker")
				if err != nil {
					return fmt.Errorf("failed to initialize tracer: %w", err)
				}

				opts = append(opts, client.WithTracer(tracer))
			}

			brokerClient, err = client.New(issuer, cat, settings.ProjectID, logger, opts...)
			if err != nil {
				return err
			}

			refresher := connections.NewRefresher(cache, command.String("refresh-schedule"), logger)
			if err := refresher.Start(ctx); err != nil {
				return err
			}
			defer refresher.Stop()

			handlers := web.NewAPIHandlers(
				brokerClient,
				cache,
				refresher,
				validator.New(validator.WithRequiredStructEnabled()),
				logger,
			)

			app := fiber.New(fiber.Config{
				AppName:      "leviousa-broker",
				ReadTimeout:  30 * time.Second,
				WriteTimeout: 30 * time.Second,
			})
			handlers.Register(app)

			port := int(command.Int("port"))
			logger.InfoContext(ctx, "Starting API server", "port", port)

			return app.Listen(":" + strconv.Itoa(port))
		},
	}
}
