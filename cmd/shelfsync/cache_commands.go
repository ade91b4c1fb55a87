package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"shelfsync/internal/isbncache"
	"shelfsync/internal/lookup"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or maintain the ISBN lookup cache",
	}

	cacheCmd.AddCommand(newCacheStatsCommand(ctx))
	cacheCmd.AddCommand(newCacheLookupCommand(ctx))
	cacheCmd.AddCommand(newCacheClearCommand(ctx))
	cacheCmd.AddCommand(newCacheRemoveCommand(ctx))

	return cacheCmd
}

func (c *commandContext) openCache() (*isbncache.Cache, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	return isbncache.NewCache(cfg.Lookup.CachePath, logger), nil
}

func newCacheStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show lookup cache entry counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			cache, err := ctx.openCache()
			if err != nil {
				return err
			}
			stats := cache.Summary()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Cache path: %s\n", cfg.Lookup.CachePath)
			table := renderTable(
				[]string{"Entries", "Resolved", "Misses"},
				[][]string{{
					fmt.Sprintf("%d", stats.Entries),
					fmt.Sprintf("%d", stats.Resolved),
					fmt.Sprintf("%d", stats.Misses),
				}},
				[]columnAlignment{alignRight, alignRight, alignRight},
			)
			fmt.Fprintln(out, table)
			return nil
		},
	}
}

func newCacheLookupCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <title> <author>",
		Short: "Resolve an ISBN through the cache and configured sources",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cfg.Lookup.Enabled {
				return errors.New("ISBN lookup is disabled; enable lookup.enabled in the config")
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			delay := time.Duration(cfg.Lookup.RateLimitSeconds) * time.Second
			cache := isbncache.NewCache(cfg.Lookup.CachePath, logger)
			resolver := lookup.NewResolver(cache, delay, logger, lookupSources(cfg)...)

			value, found := resolver.LookupISBN(cmd.Context(), args[0], args[1])
			if !found {
				return fmt.Errorf("no ISBN found for %q by %q", args[0], args[1])
			}
			fmt.Fprintln(cmd.OutOrStdout(), value)
			return nil
		},
	}
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Drop every cached lookup result",
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, err := ctx.openCache()
			if err != nil {
				return err
			}
			removed := cache.Count()
			if err := cache.Clear(); err != nil {
				return fmt.Errorf("clear cache: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d cached entries\n", removed)
			return nil
		},
	}
}

func newCacheRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <title> <author>",
		Short: "Forget one cached lookup so the next sync retries it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, err := ctx.openCache()
			if err != nil {
				return err
			}
			key := isbncache.Key(args[0], args[1])
			if err := cache.Remove(key); err != nil {
				return fmt.Errorf("remove cache entry: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed cache entry for %q by %q\n", args[0], args[1])
			return nil
		},
	}
}
