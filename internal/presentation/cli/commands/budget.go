package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jbctechsolutions/spendgate/internal/presentation/cli/output"
)

// NewBudgetCmd creates the budget command.
func NewBudgetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "budget",
		Short: "Inspect daily spending",
		Long:  `Show how much of the daily cap a user has spent. The ledger rolls over at midnight UTC.`,
	}

	cmd.AddCommand(NewBudgetStatsCmd())

	return cmd
}

// NewBudgetStatsCmd creates the budget stats command.
func NewBudgetStatsCmd() *cobra.Command {
	var user string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show today's spend for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			container := GetContainer()
			if container == nil {
				return fmt.Errorf("application not initialized")
			}
			formatter := GetFormatter()

			stats := container.Governor().GetDailyStats(user)
			cap := container.Governor().DailyCap()

			if formatter.Format() == output.FormatJSON {
				return formatter.JSON(map[string]any{
					"user":           user,
					"total_cost":     stats.TotalCost,
					"daily_cap":      cap,
					"remaining":      cap - stats.TotalCost,
					"request_counts": stats.RequestCounts,
				})
			}

			formatter.Header(fmt.Sprintf("Budget: %s", user))
			formatter.Item("Spent", output.USD(stats.TotalCost))
			formatter.Item("Cap", output.USD(cap))
			remaining := cap - stats.TotalCost
			if remaining < 0 {
				remaining = 0
			}
			formatter.Item("Remaining", output.USD(remaining))
			for providerType, count := range stats.RequestCounts {
				formatter.Item(string(providerType), fmt.Sprintf("%d requests", count))
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&user, "user", "u", "local", "user ID to inspect")

	return cmd
}
