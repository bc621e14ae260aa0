package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
)

var (
	// Version information (set via ldflags during build)
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "insiders",
		Usage: "Harvest the token mints a Solana wallet has touched",
		Description: `Walks the signature history of Solana wallets, fetches every transaction in
jsonParsed form and records the token mints each one references.

"sync" keeps an incremental cache for the wallets named in the input file;
"dump" pulls the full history of a single wallet into flat files.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		Commands: []*cli.Command{
			syncCommand(),
			dumpCommand(),
			reportCommand(),
			{
				Name:  "cache",
				Usage: "Cache inspection commands",
				Subcommands: []*cli.Command{
					cacheShowCommand(),
					cacheQueryCommand(),
				},
			},
			{
				Name:  "export",
				Usage: "Export the cache to external stores",
				Subcommands: []*cli.Command{
					exportPostgresCommand(),
					exportMintCommand(),
				},
			},
			versionCommand(),
		},
		// Global flags available to all commands
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "rpc-url",
				Usage:       "Solana JSON-RPC endpoint",
				EnvVars:     []string{"SOLANA_RPC_URL"},
				DefaultText: "https://api.mainnet-beta.solana.com",
			},
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "Log level (debug, info, warn, error)",
				EnvVars:     []string{"LOG_LEVEL"},
				DefaultText: "info",
			},
			&cli.StringFlag{
				Name:    "metrics-file",
				Usage:   "Write Prometheus metrics to this file when the command finishes",
				EnvVars: []string{"METRICS_FILE"},
			},
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Output in JSON format",
			},
		},
	}
}

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Show version information",
		Action: func(c *cli.Context) error {
			w := c.App.Writer
			fmt.Fprintf(w, "insiders CLI\n")
			fmt.Fprintf(w, "  Version: %s\n", version)
			fmt.Fprintf(w, "  Commit:  %s\n", commit)
			fmt.Fprintf(w, "  Built:   %s\n", date)
			return nil
		},
	}
}
