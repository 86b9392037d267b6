package main

import (
	"context"
	"fmt"

	cli "github.com/urfave/cli/v3"

	"github.com/leviousa/leviousa-broker/pkg/log"
)

// TokenCommand mints a user credential and prints it, for probing broker
// endpoints by hand.
func TokenCommand() *cli.Command {
	flags := append(brokerFlags(),
		&cli.StringFlag{
			Name:     "user-id",
			Aliases:  []string{"u"},
			Usage:    "User to mint the credential for",
			Required: true,
		},
	)

	return &cli.Command{
		Name:  "token",
		Usage: "Mint a signed user credential for debugging",
		Flags: flags,
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			settings, err := settingsFromCommand(command)
			if err != nil {
				return err
			}

			issuer, err := newIssuer(settings)
			if err != nil {
				return err
			}

			credential, err := issuer.Issue(command.String("user-id"))
			if err != nil {
				return err
			}

			fmt.Println(credential.Signed)

			return nil
		},
	}
}
