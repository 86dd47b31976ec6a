package main

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
)

const probeKey = "sage cache self-test"

func newCacheCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect the answer cache",
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Exercise the configured cache backend and show its statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			c, err := openCache(cfg.Cache, slog.New(slog.NewTextHandler(io.Discard, nil)))
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			c.Set(probeKey, "ok", time.Minute)
			e, ok := c.Get(probeKey)
			if !ok || e.Answer != "ok" {
				return fmt.Errorf("cache self-test failed: stored entry not returned")
			}
			if _, ok := c.Get(probeKey + " (missing)"); ok {
				return fmt.Errorf("cache self-test failed: unknown key returned an entry")
			}

			stats, err := c.Stats()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Backend: %s\nTTL:     %s\n", cfg.Cache.Backend, cfg.Cache.TTL)
			fmt.Fprintf(out, "Entries: %d\nHits:    %d\nMisses:  %d\n", stats.Entries, stats.Hits, stats.Misses)
			return c.Clear(false)
		},
	}

	cmd.AddCommand(statsCmd)
	return cmd
}
