package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jbctechsolutions/spendgate/internal/presentation/cli/output"
)

// NewCacheCmd creates the cache management command.
func NewCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the response and image caches",
		Long: `Inspect and maintain the caches that keep provider spend down.

The response cache stores text replies and transcripts keyed by request
fingerprint; the image cache stores moderation verdicts keyed by content
digest.`,
	}

	cmd.AddCommand(NewCacheStatsCmd())
	cmd.AddCommand(NewCacheClearCmd())
	cmd.AddCommand(NewCacheCleanupCmd())

	return cmd
}

// NewCacheStatsCmd creates the cache stats command.
func NewCacheStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show cache statistics",
		Long:  `Display hit rate, occupancy, and estimated cost savings for both caches.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			container := GetContainer()
			if container == nil {
				return fmt.Errorf("application not initialized")
			}
			formatter := GetFormatter()

			stats, err := container.ResponseCache().Stats(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to get cache stats: %w", err)
			}
			imageStats := container.ImageCache().Stats()

			if formatter.Format() == output.FormatJSON {
				return formatter.JSON(map[string]any{
					"responses": stats,
					"images": map[string]any{
						"size":     imageStats.Size,
						"capacity": imageStats.Capacity,
					},
				})
			}

			formatter.Header("Response Cache")
			formatter.Item("Entries", fmt.Sprintf("%d", stats.TotalEntries))
			formatter.Item("Hits", fmt.Sprintf("%d", stats.HitCount))
			formatter.Item("Misses", fmt.Sprintf("%d", stats.MissCount))
			formatter.Item("Hit rate", fmt.Sprintf("%.1f%%", stats.HitRate))
			formatter.Item("Expired", fmt.Sprintf("%d", stats.ExpiredCount))
			formatter.Item("Cost saved", output.USD(stats.CostSaved))
			formatter.Println("")

			formatter.Header("Image Cache")
			formatter.Item("Entries", fmt.Sprintf("%d / %d", imageStats.Size, imageStats.Capacity))
			if !imageStats.OldestTimestamp.IsZero() {
				formatter.Item("Oldest", fmt.Sprintf("%s ago", time.Since(imageStats.OldestTimestamp).Round(time.Second)))
			}

			return nil
		},
	}
}

// NewCacheClearCmd creates the cache clear command.
func NewCacheClearCmd() *cobra.Command {
	var confirm bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear both caches",
		Long:  `Remove every entry from the response cache and the image verdict cache.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			container := GetContainer()
			if container == nil {
				return fmt.Errorf("application not initialized")
			}
			formatter := GetFormatter()

			if !confirm {
				formatter.Warning("This removes all cached responses and verdicts. Re-run with --yes to confirm.")
				return nil
			}

			if err := container.Gateway().ClearCaches(cmd.Context()); err != nil {
				return fmt.Errorf("failed to clear caches: %w", err)
			}

			formatter.Success("Caches cleared")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&confirm, "yes", "y", false, "confirm the clear operation")

	return cmd
}

// NewCacheCleanupCmd creates the cache cleanup command.
func NewCacheCleanupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Remove expired cache entries",
		Long:  `Sweep expired entries from the response cache. Expiry is also enforced lazily on read; the sweep only reclaims space.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			container := GetContainer()
			if container == nil {
				return fmt.Errorf("application not initialized")
			}
			formatter := GetFormatter()

			removed, err := container.ResponseCache().Cleanup(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to clean up cache: %w", err)
			}

			formatter.Success("Removed %d expired entries", removed)
			return nil
		},
	}
}
