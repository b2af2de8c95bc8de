// Command shopcheck is a dev CLI around the storefront smoke check: one-off
// and scheduled runs, run history, and a local fixture storefront.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"github.com/ibeckermayer/shopcheck/internal/app"
	"github.com/ibeckermayer/shopcheck/internal/config"
	"github.com/ibeckermayer/shopcheck/internal/fixture"
	"github.com/ibeckermayer/shopcheck/internal/scheduler"
	"github.com/ibeckermayer/shopcheck/internal/store"
	"github.com/ibeckermayer/shopcheck/internal/verify"
)

var (
	configPath  string
	historyPath string
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	root := &cobra.Command{
		Use:           "shopcheck",
		Short:         "Storefront smoke check in a headless browser",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "TOML config file (defaults apply when empty)")
	root.PersistentFlags().StringVar(&historyPath, "history", "", "sqlite run history (overrides config)")

	root.AddCommand(
		runCmd(),
		scheduleCmd(),
		historyCmd(),
		openCmd(),
		fixtureCmd(),
		configCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if configPath != "" {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}
	if historyPath != "" {
		cfg.History.Path = historyPath
	}
	return cfg, nil
}

// newApp builds the app and, when history is configured, opens the store.
// The returned close func is always safe to call.
func newApp(cfg *config.Config) (*app.App, func(), error) {
	if cfg.History.Path == "" {
		return app.New(verify.New(cfg), nil, os.Stdout), func() {}, nil
	}

	s, err := store.New(cfg.History.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open history: %w", err)
	}
	return app.New(verify.New(cfg), s, os.Stdout), func() { s.Close() }, nil
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the smoke check once",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			a, closeApp, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer closeApp()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			// Failures are reported on stdout; the exit status stays zero
			a.RunOnce(ctx)
			return nil
		},
	}
}

func scheduleCmd() *cobra.Command {
	var (
		spec     string
		at       string
		timezone string
		now      bool
	)

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run the smoke check on a schedule until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			if (spec == "") == (at == "") {
				return fmt.Errorf("exactly one of --cron or --at is required")
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			a, closeApp, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer closeApp()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			s, err := scheduler.New(ctx, timezone)
			if err != nil {
				return err
			}

			if spec != "" {
				err = s.AddJob("verify", spec, a.Job)
			} else {
				err = s.AddDailyJob("verify", at, a.Job)
			}
			if err != nil {
				return err
			}

			if now {
				if err := s.RunNow("verify", a.Job); err != nil {
					log.Printf("[scheduler] Job verify failed: %v", err)
				}
			}

			s.Start()
			for _, j := range s.ListJobs() {
				log.Printf("[scheduler] Next %s run at %s", j.Name, j.NextRun.Format(time.RFC3339))
			}

			<-ctx.Done()
			<-s.Stop().Done()
			return nil
		},
	}

	cmd.Flags().StringVar(&spec, "cron", "", `cron schedule, e.g. "*/30 * * * *"`)
	cmd.Flags().StringVar(&at, "at", "", `daily run time, e.g. "07:00"`)
	cmd.Flags().StringVar(&timezone, "timezone", "Local", "timezone for the schedule")
	cmd.Flags().BoolVar(&now, "now", false, "also run once immediately")

	return cmd
}

func historyCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent run outcomes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.History.Path == "" {
				return fmt.Errorf("no history configured; pass --history or set [history] path")
			}

			s, err := store.New(cfg.History.Path)
			if err != nil {
				return err
			}
			defer s.Close()

			runs, err := s.RecentRuns(limit)
			if err != nil {
				return err
			}
			total, failed, err := s.Stats()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSTARTED\tDURATION\tMESSAGE")
			for _, r := range runs {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n",
					r.ID, r.StartedAt.Local().Format(time.DateTime), r.Duration().Round(time.Millisecond), r.Message)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "\n%d runs, %d failed\n", total, failed)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "number of runs to show")
	return cmd
}

func openCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "open",
		Short: "Open the screenshot directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := browser.OpenFile(cfg.Output.Dir); err != nil {
				return fmt.Errorf("failed to open %s: %w", cfg.Output.Dir, err)
			}
			return nil
		},
	}
}

func fixtureCmd() *cobra.Command {
	var (
		addr        string
		omitHeading bool
		delay       time.Duration
	)

	cmd := &cobra.Command{
		Use:   "fixture",
		Short: "Serve the fixture storefront",
		RunE: func(cmd *cobra.Command, args []string) error {
			srv := &http.Server{
				Addr: addr,
				Handler: middleware.Logger(fixture.New(fixture.Options{
					OmitHeading:  omitHeading,
					HeadingDelay: delay,
				})),
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(shutdownCtx)
			}()

			log.Printf("Fixture storefront listening on %s", addr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "localhost:3000", "listen address")
	cmd.Flags().BoolVar(&omitHeading, "omit-heading", false, "serve the home page without its heading")
	cmd.Flags().DurationVar(&delay, "heading-delay", 0, "render the home heading client-side after this delay")
	return cmd
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage config files",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "init <path>",
		Short: "Write the default config",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(args[0]); err == nil {
				return fmt.Errorf("%s already exists", args[0])
			}
			if err := config.Default().Save(args[0]); err != nil {
				return err
			}
			log.Printf("Created default config at: %s", args[0])
			return nil
		},
	})

	return cmd
}
