package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/leviousa/leviousa-broker/pkg/client"
	"github.com/leviousa/leviousa-broker/pkg/log"
)

// InvokeCommand executes a single broker action from the command line. This
// replaces the pile of one-off debug scripts that each re-implemented token
// signing and request shaping.
func InvokeCommand() *cli.Command {
	flags := append(brokerFlags(),
		&cli.StringFlag{
			Name:     "user-id",
			Aliases:  []string{"u"},
			Usage:    "User to invoke the action for",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "integration",
			Aliases:  []string{"i"},
			Usage:    "Integration name (e.g. gmail)",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "action",
			Aliases:  []string{"a"},
			Usage:    "Action name (e.g. GMAIL_SEND_EMAIL)",
			Required: true,
		},
		&cli.StringFlag{
			Name:    "parameters",
			Usage:   "Action parameters as a JSON object",
			Value:   "{}",
			Sources: cli.EnvVars("ACTION_PARAMETERS"),
		},
	)

	return &cli.Command{
		Name:  "invoke",
		Usage: "Invoke one broker action and print the result",
		Flags: flags,
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))
			logger := log.WithModule("invoke")

			settings, err := settingsFromCommand(command)
			if err != nil {
				return err
			}

			var parameters map[string]any
			if err := json.Unmarshal([]byte(command.String("parameters")), &parameters); err != nil {
				return fmt.Errorf("parameters must be a JSON object: %w", err)
			}

			issuer, err := newIssuer(settings)
			if err != nil {
				return err
			}

			cat, err := newCatalog(settings, logger)
			if err != nil {
				return err
			}

			brokerClient, err := client.New(issuer, cat, settings.ProjectID, logger, clientOptions(settings)...)
			if err != nil {
				return err
			}

			result, err := brokerClient.InvokeAction(ctx,
				command.String("user-id"),
				command.String("integration"),
				command.String("action"),
				parameters,
			)
			if err != nil {
				return err
			}

			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")

			return encoder.Encode(result)
		},
	}
}
