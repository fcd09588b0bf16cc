package commands

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jbctechsolutions/spendgate/internal/application/gateway"
	domainerrors "github.com/jbctechsolutions/spendgate/internal/domain/errors"
	"github.com/jbctechsolutions/spendgate/internal/infrastructure/logging"
	"github.com/jbctechsolutions/spendgate/internal/presentation/cli/output"
)

// chatFlags holds the flags for the chat command.
type chatFlags struct {
	User string
}

var chatOpts chatFlags

// NewChatCmd creates the chat command for interactive REPL mode.
func NewChatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Interactive chat REPL",
		Long: `Start an interactive chat session through the gateway.

Every message runs the full request pipeline: classification, cache lookup,
budget check, provider call, and history tracking. Cache hits and budget
rejections are reported inline.

Special commands:
  /exit, /quit - Exit the chat session
  /clear       - Clear conversation history
  /budget      - Show today's spend for this user
  /cache       - Show response cache statistics
  /help        - Show help message

Examples:
  # Chat as the default local user
  spendgate chat

  # Chat as a specific user ID
  spendgate chat --user telegram-42`,
		Args: cobra.NoArgs,
		RunE: runChat,
	}

	cmd.Flags().StringVarP(&chatOpts.User, "user", "u", "local",
		"user ID charged for this session")

	return cmd
}

// runChat executes the interactive chat REPL.
func runChat(cmd *cobra.Command, args []string) error {
	formatter := GetFormatter()
	container := GetContainer()
	if container == nil {
		return fmt.Errorf("application not initialized")
	}
	svc := container.Gateway()

	formatter.Header(fmt.Sprintf("Chat: %s", chatOpts.User))
	formatter.Item("Daily cap", output.USD(container.Governor().DailyCap()))
	formatter.Println("")
	formatter.Info("Type your message and press Enter. Type /help for commands.")
	formatter.Println("")

	rl, err := readline.New("> ")
	if err != nil {
		return fmt.Errorf("could not create readline: %w", err)
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err == io.EOF || err == readline.ErrInterrupt {
			break
		}
		if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			exit, err := handleChatCommand(cmd.Context(), line, formatter, container)
			if err != nil {
				formatter.Error("%s", err.Error())
				continue
			}
			if exit {
				break
			}
			continue
		}

		ctx := logging.WithRequestID(cmd.Context(), uuid.NewString())

		spinner := output.NewSpinner("thinking...")
		spinner.Start()
		result, err := svc.HandleText(ctx, chatOpts.User, line)
		spinner.Stop()

		if err != nil {
			printRequestError(formatter, err)
			continue
		}

		printTextResult(formatter, result)
	}

	formatter.Info("Chat session ended. Goodbye!")
	return nil
}

// printTextResult prints a gateway text result with its cost line.
func printTextResult(formatter *output.Formatter, result *gateway.TextResult) {
	if result.Blocked {
		formatter.Warning("Request refused by content policy")
		formatter.Println("")
		return
	}

	formatter.Println("%s", result.Reply)
	if result.FromCache {
		formatter.Println("%s", formatter.Dim(fmt.Sprintf("[%s · cached · $0]", result.Category)))
	} else {
		formatter.Println("%s", formatter.Dim(fmt.Sprintf("[%s · %s]", result.Category, output.USD(result.CostUSD))))
	}
	formatter.Println("")
}

// printRequestError renders gateway errors, calling out budget rejections.
func printRequestError(formatter *output.Formatter, err error) {
	if domainerrors.Is(err, domainerrors.ErrBudgetExceeded) {
		formatter.Warning("Daily budget exhausted. Try again after midnight UTC.")
		return
	}
	formatter.Error("%s", err.Error())
}

// handleChatCommand handles special chat commands. Returns (shouldExit, error).
func handleChatCommand(ctx context.Context, line string, formatter *output.Formatter, container interface {
	Gateway() *gateway.Service
}) (bool, error) {
	switch strings.ToLower(strings.Fields(line)[0]) {
	case "/exit", "/quit":
		return true, nil

	case "/clear":
		container.Gateway().ClearHistory(chatOpts.User)
		formatter.Success("Conversation history cleared")
		return false, nil

	case "/budget":
		stats := container.Gateway().DailyStats(chatOpts.User)
		formatter.Header("Today's Spend")
		formatter.Item("Total", output.USD(stats.TotalCost))
		for providerType, count := range stats.RequestCounts {
			formatter.Item(string(providerType), fmt.Sprintf("%d requests", count))
		}
		formatter.Println("")
		return false, nil

	case "/cache":
		stats, err := container.Gateway().CacheStats(ctx)
		if err != nil {
			return false, fmt.Errorf("failed to get cache stats: %w", err)
		}
		formatter.Header("Cache Statistics")
		formatter.Item("Entries", fmt.Sprintf("%d", stats.TotalEntries))
		formatter.Item("Hit rate", fmt.Sprintf("%.1f%%", stats.HitRate))
		formatter.Item("Cost saved", output.USD(stats.CostSaved))
		formatter.Println("")
		return false, nil

	case "/help":
		formatter.Header("Chat Commands")
		formatter.Item("/exit, /quit", "Exit the chat session")
		formatter.Item("/clear", "Clear conversation history")
		formatter.Item("/budget", "Show today's spend for this user")
		formatter.Item("/cache", "Show response cache statistics")
		formatter.Item("/help", "Show this help message")
		formatter.Println("")
		return false, nil

	default:
		return false, fmt.Errorf("unknown command: %s (type /help for help)", line)
	}
}
