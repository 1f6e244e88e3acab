// pricewatch checks market prices for a search query across active and
// sold marketplace listings, caches the analysis, and tracks usage.
//
// Usage:
//   pricewatch check "vintage camera"
//   pricewatch history
//   pricewatch saved list | save | use
//   pricewatch stats
//   pricewatch analytics
//   pricewatch clear
//   pricewatch refresh [--schedule "@hourly"]
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/omnisell/pricewatch/internal/analytics"
	"github.com/omnisell/pricewatch/internal/config"
	"github.com/omnisell/pricewatch/internal/ebay"
	"github.com/omnisell/pricewatch/internal/pricecache"
	"github.com/omnisell/pricewatch/internal/pricecheck"
	"github.com/omnisell/pricewatch/internal/refresh"
	"github.com/omnisell/pricewatch/internal/scrape"
	"github.com/omnisell/pricewatch/internal/storage"
)

func main() {
	app := &cli.App{
		Name:  "pricewatch",
		Usage: "marketplace price analysis with TTL caching",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "debug logging"},
			&cli.BoolFlag{Name: "mock", Usage: "use the mock provider instead of the marketplace API"},
		},
		Commands: []*cli.Command{
			checkCommand(),
			historyCommand(),
			savedCommand(),
			statsCommand(),
			analyticsCommand(),
			clearCommand(),
			refreshCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

type env struct {
	cfg     *config.Config
	logger  *zap.Logger
	service *pricecheck.Service
	cache   *pricecache.Store
}

func buildEnv(c *cli.Context) (*env, error) {
	cfg := config.Load()

	logger := zap.NewNop()
	if c.Bool("verbose") {
		var err error
		if logger, err = zap.NewDevelopment(); err != nil {
			return nil, err
		}
	}

	kv, err := openStorage(cfg)
	if err != nil {
		return nil, err
	}

	var provider ebay.SearchProvider
	switch {
	case c.Bool("mock"):
		provider = ebay.NewMockProvider()
	case cfg.EbayAppID != "":
		provider = ebay.NewClient(ebay.Config{
			AppID:   cfg.EbayAppID,
			Sandbox: cfg.Sandbox,
			Timeout: cfg.HTTPTimeout,
			Logger:  logger,
		})
	default:
		// Without an app ID, fall back to scraping the public search page.
		provider = scrape.New(scrape.Config{Timeout: cfg.HTTPTimeout, Logger: logger})
	}

	cache := pricecache.NewStore(kv, logger)
	tracker := analytics.NewTracker(kv, cfg.AnalyticsRetention, logger)
	service := pricecheck.NewService(provider, cache, tracker, cfg.CacheTTL, logger)

	return &env{cfg: cfg, logger: logger, service: service, cache: cache}, nil
}

func openStorage(cfg *config.Config) (storage.KV, error) {
	switch cfg.Backend {
	case "memory":
		return storage.NewMemory(), nil
	case "file":
		return storage.NewFile(cfg.FilePath)
	case "sqlite":
		return storage.NewSQLite(cfg.SQLitePath)
	case "redis":
		return storage.NewRedis(cfg.RedisURL, "")
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

func checkCommand() *cli.Command {
	return &cli.Command{
		Name:      "check",
		Usage:     "run a price check for a query",
		ArgsUsage: "<query>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "category", Usage: "marketplace category id"},
			&cli.StringFlag{Name: "condition", Usage: "item condition filter"},
			&cli.IntFlag{Name: "max", Value: 50, Usage: "max results per side"},
		},
		Action: func(c *cli.Context) error {
			query := c.Args().First()
			if query == "" {
				return cli.Exit("usage: pricewatch check <query>", 2)
			}

			e, err := buildEnv(c)
			if err != nil {
				return err
			}

			result, err := e.service.CheckPrice(c.Context, query, pricecheck.Options{
				CategoryID: c.String("category"),
				Condition:  c.String("condition"),
				MaxResults: c.Int("max"),
				UserID:     e.cfg.UserID,
			})
			if err != nil {
				return err
			}

			printAnalysis(result)
			return nil
		},
	}
}

func printAnalysis(result *pricecheck.CheckResult) {
	a := result.Analysis
	source := "fetched"
	if result.CacheHit {
		source = "cached"
	}
	fmt.Printf("%q (%s, query kind %s)\n\n", a.Query, source, result.QueryKind)

	fmt.Printf("Active listings: %d  avg $%.2f  median $%.2f  range $%.2f-$%.2f\n",
		a.Active.Count, a.Active.Average, a.Active.Median, a.Active.RangeLow, a.Active.RangeHigh)
	fmt.Printf("Sold listings:   %d  avg $%.2f  median $%.2f  range $%.2f-$%.2f\n",
		a.Sold.Count, a.Sold.Average, a.Sold.Median, a.Sold.RangeLow, a.Sold.RangeHigh)

	if len(a.Recommendations) > 0 {
		fmt.Println("\nRecommendations:")
		for _, r := range a.Recommendations {
			fmt.Printf("  %-12s $%.2f (confidence %.0f%%)\n      %s\n",
				r.Type, r.Price, r.Confidence*100, r.Rationale)
		}
	}

	if len(a.Outliers) > 0 {
		fmt.Println("\nOutliers:")
		for _, o := range a.Outliers {
			fmt.Printf("  %s $%.2f (%.2f sigma %s) %s\n", o.ItemID, o.Price, o.Deviation, o.Direction, o.Title)
		}
	}

	if len(a.Trends) > 0 {
		fmt.Println("\nSold price trend:")
		for _, p := range a.Trends {
			fmt.Printf("  %s  avg $%.2f  median $%.2f  (%d sold)\n", p.Date, p.Average, p.Median, p.Count)
		}
	}
}

func historyCommand() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "show recent searches, most recent first",
		Action: func(c *cli.Context) error {
			e, err := buildEnv(c)
			if err != nil {
				return err
			}
			for i, q := range e.service.GetSearchHistory(c.Context) {
				fmt.Printf("%2d. %s\n", i+1, q)
			}
			return nil
		},
	}
}

func savedCommand() *cli.Command {
	return &cli.Command{
		Name:  "saved",
		Usage: "manage saved queries",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "list saved queries",
				Action: func(c *cli.Context) error {
					e, err := buildEnv(c)
					if err != nil {
						return err
					}
					for _, sq := range e.service.GetSavedQueries(c.Context) {
						fmt.Printf("%s  %q (%s)  used %d times, last %s\n",
							sq.ID, sq.Name, sq.Query, sq.UseCount, sq.LastUsed.Format("2006-01-02 15:04"))
					}
					return nil
				},
			},
			{
				Name:      "save",
				Usage:     "save a query under a name",
				ArgsUsage: "<query> <name>",
				Action: func(c *cli.Context) error {
					if c.Args().Len() < 2 {
						return cli.Exit("usage: pricewatch saved save <query> <name>", 2)
					}
					e, err := buildEnv(c)
					if err != nil {
						return err
					}
					sq, err := e.service.SaveQuery(c.Context, c.Args().Get(0), c.Args().Get(1))
					if err != nil {
						return err
					}
					fmt.Println("saved", sq.ID)
					return nil
				},
			},
			{
				Name:      "use",
				Usage:     "run a saved query and mark it used",
				ArgsUsage: "<id>",
				Action: func(c *cli.Context) error {
					id := c.Args().First()
					if id == "" {
						return cli.Exit("usage: pricewatch saved use <id>", 2)
					}
					e, err := buildEnv(c)
					if err != nil {
						return err
					}
					for _, sq := range e.service.GetSavedQueries(c.Context) {
						if sq.ID != id {
							continue
						}
						e.service.UpdateQueryUsage(c.Context, id)
						result, err := e.service.CheckPrice(c.Context, sq.Query, pricecheck.Options{UserID: e.cfg.UserID})
						if err != nil {
							return err
						}
						printAnalysis(result)
						return nil
					}
					return cli.Exit("no saved query with id "+id, 1)
				},
			},
		},
	}
}

func statsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "show cache statistics",
		Action: func(c *cli.Context) error {
			e, err := buildEnv(c)
			if err != nil {
				return err
			}
			stats := e.service.GetCacheStats(c.Context)
			fmt.Printf("entries:      %d\n", stats.TotalEntries)
			fmt.Printf("hits/entry:   %.2f\n", stats.HitRate)
			if stats.OldestEntry != nil {
				fmt.Printf("oldest entry: %s\n", stats.OldestEntry.Format("2006-01-02 15:04:05"))
			}
			if stats.NewestEntry != nil {
				fmt.Printf("newest entry: %s\n", stats.NewestEntry.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}
}

func analyticsCommand() *cli.Command {
	return &cli.Command{
		Name:  "analytics",
		Usage: "show the usage summary",
		Action: func(c *cli.Context) error {
			e, err := buildEnv(c)
			if err != nil {
				return err
			}
			s := e.service.GetAnalyticsSummary(c.Context)
			fmt.Printf("price checks:     %d\n", s.TotalChecks)
			fmt.Printf("avg processing:   %.1f ms\n", s.AvgProcessingMs)
			fmt.Printf("cache hit ratio:  %.1f%%\n", s.CacheHitRatio*100)
			fmt.Printf("clicks per check: %.2f\n", s.ClickThroughRate)
			fmt.Printf("window:           %s .. %s\n",
				s.From.Format("2006-01-02 15:04"), s.To.Format("2006-01-02 15:04"))
			if len(s.TopQueries) > 0 {
				fmt.Println("top queries:")
				for _, q := range s.TopQueries {
					fmt.Printf("  %3dx %s\n", q.Count, q.Query)
				}
			}
			return nil
		},
	}
}

func clearCommand() *cli.Command {
	return &cli.Command{
		Name:  "clear",
		Usage: "delete all cached analyses",
		Action: func(c *cli.Context) error {
			e, err := buildEnv(c)
			if err != nil {
				return err
			}
			if err := e.service.ClearAllCache(c.Context); err != nil {
				return err
			}
			fmt.Println("cache cleared")
			return nil
		},
	}
}

func refreshCommand() *cli.Command {
	return &cli.Command{
		Name:  "refresh",
		Usage: "keep saved queries warm on a schedule",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "schedule", Usage: "cron expression (overrides PRICEWATCH_REFRESH_SCHEDULE)"},
			&cli.BoolFlag{Name: "once", Usage: "run a single refresh pass and exit"},
		},
		Action: func(c *cli.Context) error {
			e, err := buildEnv(c)
			if err != nil {
				return err
			}

			r := refresh.New(e.service, e.cache, e.cfg.RefreshWindow, e.logger)

			if c.Bool("once") {
				r.RunOnce(c.Context)
				return nil
			}

			schedule := c.String("schedule")
			if schedule == "" {
				schedule = e.cfg.RefreshSchedule
			}
			if schedule == "" {
				schedule = "@hourly"
			}
			if err := r.Start(schedule); err != nil {
				return fmt.Errorf("start refresh scheduler: %w", err)
			}
			fmt.Println("refresh scheduler running on", schedule)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			<-ctx.Done()
			r.Stop()
			return nil
		},
	}
}
