package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/samvad-hq/samvad-news-snapshot/internal/app"
	"github.com/samvad-hq/samvad-news-snapshot/internal/config"
	"github.com/samvad-hq/samvad-news-snapshot/internal/logger"
	"github.com/samvad-hq/samvad-news-snapshot/internal/themes"
)

var flagReplace bool

var rootCmd = &cobra.Command{
	Use:           "snapshotd",
	Short:         "News snapshot aggregation service",
	Long:          "snapshotd periodically aggregates top headlines and per-theme keyword results into an in-memory snapshot and serves it over HTTP.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the refresh schedule and the read API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(cmd.Context(), "snapshotd starting", func(ctx context.Context, rt *app.Runtime) error {
			if err := rt.Serve(ctx); err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			return nil
		})
	},
}

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Run one refresh cycle and print the snapshot as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(cmd.Context(), "manual refresh starting", func(ctx context.Context, rt *app.Runtime) error {
			snap, err := rt.Refresh(ctx)
			if err != nil {
				return fmt.Errorf("refresh: %w", err)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(snap)
		})
	},
}

var themesCmd = &cobra.Command{
	Use:   "themes",
	Short: "Inspect and manage theme definitions",
}

var themesListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the themes of the configured source",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		src, err := themes.NewSource(cfg)
		if err != nil {
			return fmt.Errorf("open theme source: %w", err)
		}
		defer src.Close()

		list, err := src.All(cmd.Context())
		if err != nil {
			return fmt.Errorf("list themes: %w", err)
		}
		for _, t := range list {
			fmt.Fprintf(cmd.OutOrStdout(), "%d\t%d keyword(s)\t%v\n", t.ID, len(t.Keywords), t.Keywords)
		}
		return nil
	},
}

var themesImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a YAML/JSON theme file into the bbolt theme store",
	Long: `Import a YAML/JSON theme file into the bbolt theme store.

The bbolt store keys themes by id and lists them in ascending id order, so the
file's own ordering is not kept. Snapshot related groups follow that order.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		list, err := themes.LoadFile(args[0])
		if err != nil {
			return fmt.Errorf("read themes: %w", err)
		}

		store, err := themes.OpenBolt(cfg.ThemesBBoltPath)
		if err != nil {
			return fmt.Errorf("open bbolt themes: %w", err)
		}
		defer store.Close()

		if err := store.Replace(list, flagReplace); err != nil {
			return fmt.Errorf("import themes: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d theme(s) into %s.\n", len(list), cfg.ThemesBBoltPath)
		return nil
	},
}

func init() {
	themesImportCmd.Flags().BoolVar(&flagReplace, "replace", false, "remove existing themes before importing")
	themesCmd.AddCommand(themesListCmd, themesImportCmd)
	rootCmd.AddCommand(serveCmd, refreshCmd, themesCmd)
}

// withRuntime loads config, initialises logging and builds the runtime for fn.
func withRuntime(parent context.Context, startMsg string, fn func(context.Context, *app.Runtime) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.Init(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	logger.InfoObj(startMsg, "config", cfg.Redacted())

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := app.NewRuntime(ctx, cfg, log)
	if err != nil {
		logger.ErrorObj("failed to initialize runtime", "error", err.Error())
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			logger.WarnObj("runtime close failed", "error", err.Error())
		}
	}()

	return fn(ctx, rt)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "snapshotd: %v\n", err)
		os.Exit(1)
	}
}
