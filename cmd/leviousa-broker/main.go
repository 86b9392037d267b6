package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"
)

func main() {
	cmd := &cli.Command{
		Name:                  "leviousa-broker",
		Usage:                 "Invoke integration broker actions on behalf of Leviousa users",
		EnableShellCompletion: true,
		Commands: []*cli.Command{
			APICommand(),
			InvokeCommand(),
			TokenCommand(),
		},
	}

	err := cmd.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
