package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jbctechsolutions/spendgate/internal/infrastructure/logging"
	"github.com/jbctechsolutions/spendgate/internal/presentation/cli/output"
)

// moderateFlags holds the flags for the moderate command.
type moderateFlags struct {
	User string
}

var moderateOpts moderateFlags

// NewModerateCmd creates the moderate command.
func NewModerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "moderate <image-file>",
		Short: "Check an image for inappropriate content",
		Long: `Run an image through the moderation pipeline. Repeated images are
served from the content-addressed verdict cache without a provider call,
and oversized payloads are checked at low detail to keep the price down.

Examples:
  spendgate moderate photo.jpg
  spendgate moderate photo.jpg --user telegram-42`,
		Args: cobra.ExactArgs(1),
		RunE: runModerate,
	}

	cmd.Flags().StringVarP(&moderateOpts.User, "user", "u", "local",
		"user ID charged for this request")

	return cmd
}

func runModerate(cmd *cobra.Command, args []string) error {
	formatter := GetFormatter()
	container := GetContainer()
	if container == nil {
		return fmt.Errorf("application not initialized")
	}

	image, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read image file: %w", err)
	}

	ctx := logging.WithRequestID(cmd.Context(), uuid.NewString())

	spinner := output.NewSpinner("moderating...")
	spinner.Start()
	result, err := container.Gateway().HandleImage(ctx, moderateOpts.User, image)
	spinner.Stop()
	if err != nil {
		printRequestError(formatter, err)
		return nil
	}

	if formatter.Format() == output.FormatJSON {
		return formatter.JSON(map[string]any{
			"appropriate": result.Appropriate,
			"reasons":     result.Reasons,
			"from_cache":  result.FromCache,
			"quality":     result.Quality,
			"cost":        result.CostUSD,
		})
	}

	if result.Appropriate {
		formatter.Success("Image is appropriate")
	} else {
		formatter.Warning("Image flagged: %s", strings.Join(result.Reasons, ", "))
	}
	if result.FromCache {
		formatter.Println("%s", formatter.Dim("[cached · $0]"))
	} else {
		formatter.Println("%s", formatter.Dim(fmt.Sprintf("[%s detail · %s]", result.Quality, output.USD(result.CostUSD))))
	}

	return nil
}
