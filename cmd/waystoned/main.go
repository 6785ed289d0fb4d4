// Command waystoned runs the waystone discovery-and-search engine: the
// announce/crawl/pagerank/stale-sweep scheduler and its on-demand CLI
// equivalents.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/latebit/waystone/internal/config"
	"github.com/latebit/waystone/internal/logging"
	"github.com/latebit/waystone/internal/service"
	"github.com/latebit/waystone/internal/transport"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "waystoned",
		Short: "Discovery and search engine for a mesh-overlay network",
	}

	root.AddCommand(newServeCommand())
	root.AddCommand(newCrawlCommand())
	root.AddCommand(newPageRankCommand())
	root.AddCommand(newRecalcSurvivalCommand())

	return root
}

// newApp loads configuration, builds a logger, and wires an App with a
// QUIC transport resolved against RNS_CONFIGDIR/peers.toml.
func newApp() (*service.App, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}

	log := logging.New(cfg.LogFormat, cfg.LogLevel, nil)

	resolver, err := transport.LoadStaticResolver(filepath.Join(cfg.RNSConfigDir, "peers.toml"))
	if err != nil {
		return nil, nil, fmt.Errorf("loading peer resolver: %w", err)
	}
	t := transport.NewQUICTransport(resolver)

	selfDST, err := readIdentityDST(cfg.NodeIdentity)
	if err != nil {
		log.Warn("reading node identity, self-announce disabled", "error", err)
	}

	clock := func() float64 { return float64(time.Now().Unix()) }
	app, err := service.New(cfg, t, selfDST, clock, log)
	if err != nil {
		return nil, nil, fmt.Errorf("building app: %w", err)
	}
	return app, log, nil
}

// readIdentityDST reads this node's own destination hash, a hex string
// written alongside the identity file the overlay transport owns. An
// absent or unreadable file is non-fatal: self-announce is simply skipped.
func readIdentityDST(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(filepath.Join(path, "destination_hash"))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the announce/crawl/pagerank/stale-sweep scheduler until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, log, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				s := <-sig
				log.Info("received signal, shutting down", "signal", s)
				cancel()
			}()

			log.Info("waystoned starting")
			app.RunScheduler(ctx)
			log.Info("waystoned stopped")
			return nil
		},
	}
}

func newCrawlCommand() *cobra.Command {
	var windowHours int
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Run a single crawl cycle immediately and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, log, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			now := float64(time.Now().Unix())
			window := float64(windowHours) * 3600
			crawled, err := app.RunCrawlOnce(cmd.Context(), now, window)
			if err != nil {
				return fmt.Errorf("crawl: %w", err)
			}
			log.Info("crawl complete", "pages_crawled", crawled)
			return nil
		},
	}
	cmd.Flags().IntVar(&windowHours, "window-hours", 24, "seed every node seen within this many hours")
	return cmd
}

func newPageRankCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "pagerank",
		Short: "Recompute and persist PageRank scores immediately and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, log, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.RunPageRank(); err != nil {
				return fmt.Errorf("pagerank: %w", err)
			}
			log.Info("pagerank updated")
			return nil
		},
	}
}

func newRecalcSurvivalCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "recalc-survival",
		Short: "Refit the node-liveness posterior from recent announce logs and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, log, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.RefitSurvival(); err != nil {
				return fmt.Errorf("recalc-survival: %w", err)
			}
			log.Info("survival model refit")
			return nil
		},
	}
}
