package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/accelbench/accelbench/internal/buildinfo"
	"github.com/accelbench/accelbench/internal/keys"
	"github.com/accelbench/accelbench/pkg/runrecord"
)

func pathArg(c *cli.Context, what string) (string, error) {
	path := c.Args().First()
	if path == "" {
		return "", fmt.Errorf("path of the %s required", what)
	}
	return path, nil
}

func main() {
	app := &cli.App{
		Name:            "benchkey",
		Usage:           "Manage the keys that sign benchmark run records",
		Version:         buildinfo.Version,
		HideHelpCommand: true,
		Commands: []*cli.Command{
			{
				Name:      "new",
				Usage:     "Generate a new signing key file",
				ArgsUsage: "<keyfile>",
				Action: func(c *cli.Context) error {
					path, err := pathArg(c, "key file")
					if err != nil {
						return err
					}
					if _, err := os.Stat(path); err == nil {
						return fmt.Errorf("%s already exists, refusing to overwrite", path)
					}
					if err := keys.GenerateKeyFile(path); err != nil {
						return err
					}
					_, address, err := keys.LoadPrivateKey(path)
					if err != nil {
						return err
					}
					fmt.Printf("New signing key written to %s\n", path)
					fmt.Printf("Address: %s\n", address.Hex())
					return nil
				},
			},
			{
				Name:      "address",
				Usage:     "Print the address of a signing key file",
				ArgsUsage: "<keyfile>",
				Action: func(c *cli.Context) error {
					path, err := pathArg(c, "key file")
					if err != nil {
						return err
					}
					_, address, err := keys.LoadPrivateKey(path)
					if err != nil {
						return err
					}
					fmt.Println(address.Hex())
					return nil
				},
			},
			{
				Name:      "verify",
				Usage:     "Verify the detached signature of a run record dump",
				ArgsUsage: "<dump.json>",
				Action: func(c *cli.Context) error {
					path, err := pathArg(c, "run record")
					if err != nil {
						return err
					}
					signer, err := runrecord.VerifyFile(path)
					if err != nil {
						return err
					}
					fmt.Printf("Record signed by %s\n", signer)
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
