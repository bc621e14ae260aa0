package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/andrewbouras/insiders/service/cache"
	"github.com/andrewbouras/insiders/service/config"
	"github.com/andrewbouras/insiders/service/db"
	"github.com/andrewbouras/insiders/service/metrics"
)

func databaseURLFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "database-url",
		Usage:   "Database connection URL",
		EnvVars: []string{"DATABASE_URL"},
	}
}

// openStore connects to the configured database and makes sure the export
// table exists.
func openStore(c *cli.Context, cfg *config.Config) (*db.Store, func(), error) {
	if cfg.DatabaseURL == "" {
		return nil, nil, fmt.Errorf("database-url is required (set DATABASE_URL env var or use --database-url)")
	}

	pool, err := db.Connect(c.Context, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}

	store := db.NewStore(pool)
	if err := store.EnsureSchema(c.Context); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return store, pool.Close, nil
}

func exportPostgresCommand() *cli.Command {
	return &cli.Command{
		Name:  "postgres",
		Usage: "Insert every cache entry not yet exported into Postgres",
		Flags: []cli.Flag{
			cacheFlag(),
			databaseURLFlag(),
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			logger := setupLogger(cfg.LogLevel)

			file, err := cache.Load(cfg.CacheFile)
			if err != nil {
				return err
			}

			store, closer, err := openStore(c, cfg)
			if err != nil {
				return err
			}
			defer closer()

			m := metrics.NewMetrics()
			defer writeMetrics(cfg, m, logger)

			result, err := store.UpsertEntries(c.Context, file)
			if err != nil {
				m.RecordDBRows(db.TableName, file.Len(), err)
				return err
			}
			m.RecordDBRows(db.TableName, result.Written, nil)

			logger.Info("exported cache to postgres",
				"table", db.TableName,
				"written", result.Written,
				"skipped", result.Skipped,
			)

			if c.Bool("json") {
				return outputJSON(c.App.Writer, result)
			}
			fmt.Fprintf(c.App.Writer, "Exported %d new entries to %s (%d already present)\n",
				result.Written, db.TableName, result.Skipped)
			return nil
		},
	}
}

func exportMintCommand() *cli.Command {
	return &cli.Command{
		Name:      "mint",
		Usage:     "List exported signatures that reference a mint",
		ArgsUsage: "<mint address>",
		Flags: []cli.Flag{
			databaseURLFlag(),
			&cli.IntFlag{
				Name:  "max",
				Usage: "Maximum number of signatures",
				Value: 100,
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("requires exactly one argument: mint address")
			}

			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}

			store, closer, err := openStore(c, cfg)
			if err != nil {
				return err
			}
			defer closer()

			signatures, err := store.ListSignaturesByMint(c.Context, c.Args().First(), int32(c.Int("max")))
			if err != nil {
				return err
			}

			if c.Bool("json") {
				return outputJSON(c.App.Writer, signatures)
			}
			for _, sig := range signatures {
				fmt.Fprintln(c.App.Writer, sig)
			}
			return nil
		},
	}
}
