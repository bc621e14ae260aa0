package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/itchyny/gojq"
	"github.com/urfave/cli/v2"

	"github.com/andrewbouras/insiders/service/cache"
	"github.com/andrewbouras/insiders/service/config"
)

func cacheFlag() cli.Flag {
	return &cli.StringFlag{
		Name:        "cache",
		Aliases:     []string{"c"},
		Usage:       "Cache file",
		EnvVars:     []string{"CACHE_FILE"},
		DefaultText: config.DefaultCacheFile,
	}
}

func reportCommand() *cli.Command {
	return &cli.Command{
		Name:  "report",
		Usage: "Flatten the cache into one row per (signature, mint)",
		Description: `Rows carry the block time in seconds and a millisecond timestamp and are
sorted newest first. Wrapped SOL is left out unless --include-wrapped-sol
is given. Use --output - to print the rows instead of writing a file.`,
		Flags: []cli.Flag{
			cacheFlag(),
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Report file, or - for stdout",
				Value:   config.DefaultReportFile,
			},
			&cli.BoolFlag{
				Name:  "include-wrapped-sol",
				Usage: "Keep rows for the wrapped SOL mint",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			file, err := cache.Load(cfg.CacheFile)
			if err != nil {
				return err
			}

			rows := cache.Report(file, cache.ReportOptions{
				IncludeWrappedSOL: c.Bool("include-wrapped-sol"),
			})

			output := c.String("output")
			if output == "-" {
				return outputJSON(c.App.Writer, rows)
			}
			if err := writeReport(output, rows); err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "Wrote %d rows to %s\n", len(rows), output)
			return nil
		},
	}
}

func writeReport(path string, rows []cache.ReportRow) error {
	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write report %s: %w", path, err)
	}
	return nil
}

// cacheSummary describes a cache file at a glance.
type cacheSummary struct {
	Path          string     `json:"path"`
	Transactions  int        `json:"transactions"`
	DistinctMints int        `json:"distinct_mints"`
	WithoutMints  int        `json:"without_mints"`
	WithoutTime   int        `json:"without_block_time"`
	OldestBlockAt *time.Time `json:"oldest_block_at,omitempty"`
	NewestBlockAt *time.Time `json:"newest_block_at,omitempty"`
}

func summarizeCache(path string, f *cache.File) cacheSummary {
	s := cacheSummary{
		Path:          path,
		Transactions:  f.Len(),
		DistinctMints: len(f.DistinctMints()),
	}

	var oldest, newest *int64
	for _, e := range f.Transactions {
		if len(e.Mints) == 0 {
			s.WithoutMints++
		}
		if e.BlockTime == nil {
			s.WithoutTime++
			continue
		}
		if oldest == nil || *e.BlockTime < *oldest {
			oldest = e.BlockTime
		}
		if newest == nil || *e.BlockTime > *newest {
			newest = e.BlockTime
		}
	}
	if oldest != nil {
		t := time.Unix(*oldest, 0).UTC()
		s.OldestBlockAt = &t
	}
	if newest != nil {
		t := time.Unix(*newest, 0).UTC()
		s.NewestBlockAt = &t
	}
	return s
}

func cacheShowCommand() *cli.Command {
	return &cli.Command{
		Name:  "show",
		Usage: "Summarize the cache file",
		Flags: []cli.Flag{cacheFlag()},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			file, err := cache.Load(cfg.CacheFile)
			if err != nil {
				return err
			}

			summary := summarizeCache(cfg.CacheFile, file)
			if c.Bool("json") {
				return outputJSON(c.App.Writer, summary)
			}

			w := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "Path:\t%s\n", summary.Path)
			fmt.Fprintf(w, "Transactions:\t%d\n", summary.Transactions)
			fmt.Fprintf(w, "Distinct mints:\t%d\n", summary.DistinctMints)
			fmt.Fprintf(w, "Without mints:\t%d\n", summary.WithoutMints)
			fmt.Fprintf(w, "Without block time:\t%d\n", summary.WithoutTime)
			if summary.OldestBlockAt != nil {
				fmt.Fprintf(w, "Oldest block:\t%s\n", summary.OldestBlockAt.Format(time.RFC3339))
				fmt.Fprintf(w, "Newest block:\t%s\n", summary.NewestBlockAt.Format(time.RFC3339))
			}
			return w.Flush()
		},
	}
}

func cacheQueryCommand() *cli.Command {
	return &cli.Command{
		Name:      "query",
		Usage:     "Run a jq filter over the cache file",
		ArgsUsage: "<jq filter>",
		Description: `The filter sees the cache document as stored on disk, e.g.

   insiders cache query '.transactions | length'
   insiders cache query '.transactions | to_entries[] | select(.value.mints | any(. == "MINT")) | .key'`,
		Flags: []cli.Flag{
			cacheFlag(),
			&cli.BoolFlag{
				Name:  "must",
				Usage: "Fail unless every result is truthy",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("requires exactly one argument: jq filter")
			}

			code, err := compileJQ(c.Args().First())
			if err != nil {
				return err
			}

			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(cfg.CacheFile)
			if err != nil {
				return fmt.Errorf("failed to read cache %s: %w", cfg.CacheFile, err)
			}
			var doc interface{}
			if err := json.Unmarshal(data, &doc); err != nil {
				return fmt.Errorf("%w %s: %v", cache.ErrMalformed, cfg.CacheFile, err)
			}

			return runJQ(c.App.Writer, code, doc, c.Bool("must"))
		},
	}
}

// compileJQ parses and compiles a jq filter.
func compileJQ(filter string) (*gojq.Code, error) {
	query, err := gojq.Parse(filter)
	if err != nil {
		return nil, fmt.Errorf("failed to parse jq filter %q: %w", filter, err)
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return nil, fmt.Errorf("failed to compile jq filter %q: %w", filter, err)
	}
	return code, nil
}

// runJQ writes every value the filter emits for doc to w, one JSON
// document per line. With must set, a falsy result is an error.
func runJQ(w io.Writer, code *gojq.Code, doc interface{}, must bool) error {
	enc := json.NewEncoder(w)
	iter := code.Run(doc)
	for {
		v, ok := iter.Next()
		if !ok {
			return nil
		}
		if err, isErr := v.(error); isErr {
			return fmt.Errorf("jq filter failed: %w", err)
		}
		if must && !isTruthy(v) {
			return fmt.Errorf("jq filter produced a falsy result: %v", v)
		}
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode jq result: %w", err)
		}
	}
}

// isTruthy checks if a jq result value is truthy.
// In jq, false and null are falsy, everything else is truthy.
func isTruthy(v interface{}) bool {
	if v == nil {
		return false
	}
	if b, ok := v.(bool); ok {
		return b
	}
	return true
}
