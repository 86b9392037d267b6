package main

import (
	"context"
	"log/slog"
	"time"

	cli "github.com/urfave/cli/v3"

	"github.com/leviousa/leviousa-broker/pkg/catalog"
	"github.com/leviousa/leviousa-broker/pkg/client"
	"github.com/leviousa/leviousa-broker/pkg/config"
	"github.com/leviousa/leviousa-broker/pkg/connections"
	"github.com/leviousa/leviousa-broker/pkg/token"
)

func brokerFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "project-id",
			Usage:    "Broker project identifier",
			Required: true,
			Sources:  cli.EnvVars("PARAGON_PROJECT_ID"),
		},
		&cli.StringFlag{
			Name:     "signing-key",
			Usage:    "PEM RSA private key used to sign user credentials",
			Required: true,
			Sources:  cli.EnvVars("PARAGON_SIGNING_KEY"),
		},
		&cli.StringFlag{
			Name:    "audience",
			Usage:   "Token audience (defaults to the project's broker surface)",
			Sources: cli.EnvVars("PARAGON_TOKEN_AUDIENCE"),
		},
		&cli.StringFlag{
			Name:    "base-url",
			Usage:   "Broker API base URL override",
			Sources: cli.EnvVars("PARAGON_BASE_URL"),
		},
		&cli.StringFlag{
			Name:    "portal-url",
			Usage:   "Connect portal base URL override",
			Sources: cli.EnvVars("PARAGON_PORTAL_URL"),
		},
		&cli.StringFlag{
			Name:    "catalog-file",
			Usage:   "YAML file with additional action catalog entries",
			Sources: cli.EnvVars("ACTION_CATALOG_FILE"),
		},
		&cli.DurationFlag{
			Name:    "token-validity",
			Usage:   "Lifetime of issued user credentials (max 24h)",
			Value:   time.Hour,
			Sources: cli.EnvVars("TOKEN_VALIDITY"),
		},
		&cli.DurationFlag{
			Name:    "request-timeout",
			Usage:   "Per-request timeout for broker HTTP calls",
			Value:   10 * time.Second,
			Sources: cli.EnvVars("REQUEST_TIMEOUT"),
		},
		&cli.IntFlag{
			Name:    "max-attempts",
			Usage:   "Retry budget for transient broker failures",
			Value:   3,
			Sources: cli.EnvVars("MAX_ATTEMPTS"),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "Log level (debug, info, warn, error)",
			Value:   "info",
			Sources: cli.EnvVars("LOG_LEVEL"),
		},
	}
}

func settingsFromCommand(command *cli.Command) (*config.Settings, error) {
	settings := &config.Settings{
		ProjectID:      command.String("project-id"),
		SigningKey:     command.String("signing-key"),
		Audience:       command.String("audience"),
		BaseURL:        command.String("base-url"),
		PortalURL:      command.String("portal-url"),
		RedisURL:       command.String("redis-url"),
		CatalogFile:    command.String("catalog-file"),
		TokenValidity:  command.Duration("token-validity"),
		RequestTimeout: command.Duration("request-timeout"),
		MaxAttempts:    int(command.Int("max-attempts")),
		SnapshotTTL:    command.Duration("snapshot-ttl"),
		LogLevel:       command.String("log-level"),
	}

	if settings.Audience == "" {
		settings.Audience = config.DefaultAudience(settings.ProjectID)
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}

	return settings, nil
}

func newCatalog(settings *config.Settings, logger *slog.Logger) (*catalog.Catalog, error) {
	cat, err := catalog.New(logger)
	if err != nil {
		return nil, err
	}

	if settings.CatalogFile != "" {
		if err := cat.LoadFile(settings.CatalogFile); err != nil {
			return nil, err
		}
	}

	return cat, nil
}

func newIssuer(settings *config.Settings) (*token.Issuer, error) {
	return token.NewIssuer(
		settings.SigningKey,
		settings.Audience,
		token.WithValidity(settings.TokenValidity),
	)
}

func newSnapshotStore(ctx context.Context, settings *config.Settings, logger *slog.Logger) (connections.Store, error) {
	if settings.RedisURL == "" {
		return connections.NewMemoryStore(), nil
	}

	store, err := connections.NewRedisStore(settings.RedisURL)
	if err != nil {
		return nil, err
	}

	logger.InfoContext(ctx, "Using redis snapshot store")

	return store, nil
}

func clientOptions(settings *config.Settings) []client.Option {
	return []client.Option{
		client.WithBaseURL(settings.BaseURL),
		client.WithPortalURL(settings.PortalURL),
		client.WithTimeout(settings.RequestTimeout),
		client.WithMaxAttempts(settings.MaxAttempts),
	}
}
