package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/vainnor/f1-stats/db"
	"github.com/vainnor/f1-stats/scheduler"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and maintain the upstream response cache",
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete cache entries older than CACHE_TTL",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		store, err := db.OpenFromConfig(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		// Only the prune job is needed here.
		cfg.CachePruneSchedule, cfg.CacheWarmSchedule = "", ""
		sched, err := scheduler.New(cfg, store, nil, logger)
		if err != nil {
			return err
		}
		n, err := sched.Prune(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "removed %d expired entries\n", n)
		return nil
	},
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print a summary of the cache contents",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := setup()
		if err != nil {
			return err
		}
		store, err := db.OpenFromConfig(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()
		stats, err := store.Stats(ctx)
		if err != nil {
			return err
		}

		location := cfg.CacheDir
		if store.Driver() == "postgres" {
			location = "postgres"
		}
		t := table.NewWriter()
		t.SetOutputMirror(cmd.OutOrStdout())
		t.SetStyle(table.StyleRounded)
		t.AppendHeader(table.Row{"Driver", "Location", "Entries", "Size", "Oldest", "Newest"})
		t.AppendRow(table.Row{
			store.Driver(),
			location,
			stats.Entries,
			humanize.Bytes(uint64(stats.Bytes)),
			age(stats.Oldest),
			age(stats.Newest),
		})
		t.Render()
		if cfg.CacheTTL > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "entries expire after %s\n", cfg.CacheTTL)
		}
		return nil
	},
}

func age(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.Time(t)
}

func init() {
	cacheCmd.AddCommand(cachePruneCmd, cacheStatsCmd)
}
