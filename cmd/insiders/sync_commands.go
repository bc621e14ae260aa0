package main

import (
	"fmt"
	"io"

	"github.com/urfave/cli/v2"

	"github.com/andrewbouras/insiders/service/cache"
	"github.com/andrewbouras/insiders/service/config"
	"github.com/andrewbouras/insiders/service/harvest"
	"github.com/andrewbouras/insiders/service/metrics"
	natspkg "github.com/andrewbouras/insiders/service/nats"
)

func syncCommand() *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Fetch new transactions of every input wallet into the cache",
		Description: `Reads the wallet list from the input file, looks at the most recent
--limit signatures of each wallet and fetches every transaction not yet
cached. The cache file is rewritten once all wallets are done.

Only one page is requested per wallet, so signatures older than the
window are not picked up.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "input",
				Aliases:     []string{"i"},
				Usage:       "Wallet list document",
				EnvVars:     []string{"INPUT_FILE"},
				DefaultText: config.DefaultInputFile,
			},
			&cli.StringFlag{
				Name:        "cache",
				Aliases:     []string{"c"},
				Usage:       "Cache file",
				EnvVars:     []string{"CACHE_FILE"},
				DefaultText: config.DefaultCacheFile,
			},
			&cli.IntFlag{
				Name:        "limit",
				Aliases:     []string{"n"},
				Usage:       "Most recent signatures to look at per wallet",
				EnvVars:     []string{"SIGNATURE_LIMIT"},
				DefaultText: fmt.Sprint(config.DefaultSignatureLimit),
			},
			&cli.StringFlag{
				Name:    "nats-url",
				Usage:   "Publish newly cached entries to this NATS server",
				EnvVars: []string{"NATS_URL"},
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			logger := setupLogger(cfg.LogLevel)
			w := c.App.Writer

			wallets, err := config.LoadWallets(cfg.InputFile)
			if err != nil {
				return err
			}
			file, err := cache.Load(cfg.CacheFile)
			if err != nil {
				return err
			}

			m := metrics.NewMetrics()
			defer writeMetrics(cfg, m, logger)

			var publisher harvest.PublisherInterface
			if cfg.NATSURL != "" {
				p, err := natspkg.NewPublisher(cfg.NATSURL, logger)
				if err != nil {
					return err
				}
				defer p.Close()
				publisher = p
			}

			h := harvest.NewHarvester(newSolanaClient(cfg, m, logger), publisher, m, logger, progressWriter(c))
			result, err := h.Sync(c.Context, file, wallets, cfg.SignatureLimit)
			if err != nil {
				return err
			}

			if err := cache.Save(cfg.CacheFile, result.Cache); err != nil {
				m.RecordCacheWriteError()
				return err
			}

			if c.Bool("json") {
				return outputJSON(w, result)
			}
			fmt.Fprintf(w, "\n[+] Done! Updated %s with new data.\n", cfg.CacheFile)
			return nil
		},
	}
}

func dumpCommand() *cli.Command {
	return &cli.Command{
		Name:  "dump",
		Usage: "Fetch the full history of one wallet into flat files",
		Description: `Pages through the entire signature history of the wallet, fetches every
transaction and writes signatures.json, transactions.json and mints.json
into the output directory, replacing any previous run.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "wallet",
				Aliases:     []string{"w"},
				Usage:       "Wallet address",
				EnvVars:     []string{"DUMP_WALLET"},
				DefaultText: config.DefaultDumpWallet,
			},
			&cli.IntFlag{
				Name:        "page-size",
				Usage:       "Signatures requested per page",
				EnvVars:     []string{"DUMP_PAGE_SIZE"},
				DefaultText: fmt.Sprint(config.DefaultDumpPageSize),
			},
			&cli.StringFlag{
				Name:        "out-dir",
				Aliases:     []string{"o"},
				Usage:       "Directory the three output files are written to",
				EnvVars:     []string{"DUMP_DIR"},
				DefaultText: ".",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			logger := setupLogger(cfg.LogLevel)
			w := c.App.Writer

			m := metrics.NewMetrics()
			defer writeMetrics(cfg, m, logger)

			h := harvest.NewHarvester(newSolanaClient(cfg, m, logger), nil, m, logger, progressWriter(c))
			result, err := h.Dump(c.Context, cfg.DumpWallet, cfg.DumpPageSize)
			if err != nil {
				return err
			}
			if err := harvest.WriteDump(cfg.DumpDir, result); err != nil {
				return err
			}

			if c.Bool("json") {
				return outputJSON(w, map[string]any{
					"wallet":      result.Wallet,
					"signatures":  len(result.Signatures),
					"unavailable": result.Unavailable,
					"mints":       len(result.Mints),
					"out_dir":     cfg.DumpDir,
				})
			}
			fmt.Fprintf(w, "[+] Done! Wrote %s, %s and %s to %s\n",
				harvest.SignaturesFile, harvest.TransactionsFile, harvest.MintsFile, cfg.DumpDir)
			return nil
		},
	}
}

// progressWriter is where the human progress lines go. With --json they are
// dropped so the command's output stays a single JSON document.
func progressWriter(c *cli.Context) io.Writer {
	if c.Bool("json") {
		return io.Discard
	}
	return c.App.Writer
}
