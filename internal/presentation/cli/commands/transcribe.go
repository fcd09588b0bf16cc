package commands

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jbctechsolutions/spendgate/internal/infrastructure/logging"
	"github.com/jbctechsolutions/spendgate/internal/presentation/cli/output"
)

// transcribeFlags holds the flags for the transcribe command.
type transcribeFlags struct {
	User     string
	Duration float64
}

var transcribeOpts transcribeFlags

// NewTranscribeCmd creates the transcribe command.
func NewTranscribeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transcribe <audio-file>",
		Short: "Transcribe a voice message and answer it",
		Long: `Run an audio file through the voice pipeline: duration check,
digest-keyed transcript cache, budget check, transcription, and then the
text pipeline for the transcript.

Examples:
  # Transcribe a 30 second voice note
  spendgate transcribe note.ogg --duration 30`,
		Args: cobra.ExactArgs(1),
		RunE: runTranscribe,
	}

	cmd.Flags().StringVarP(&transcribeOpts.User, "user", "u", "local",
		"user ID charged for this request")
	cmd.Flags().Float64VarP(&transcribeOpts.Duration, "duration", "d", 0,
		"audio duration in seconds (required)")
	_ = cmd.MarkFlagRequired("duration")

	return cmd
}

func runTranscribe(cmd *cobra.Command, args []string) error {
	formatter := GetFormatter()
	container := GetContainer()
	if container == nil {
		return fmt.Errorf("application not initialized")
	}

	audio, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read audio file: %w", err)
	}

	ctx := logging.WithRequestID(cmd.Context(), uuid.NewString())

	spinner := output.NewSpinner("transcribing...")
	spinner.Start()
	result, err := container.Gateway().HandleVoice(ctx, transcribeOpts.User, audio, transcribeOpts.Duration)
	spinner.Stop()
	if err != nil {
		printRequestError(formatter, err)
		return nil
	}

	if formatter.Format() == output.FormatJSON {
		return formatter.JSON(map[string]any{
			"transcript":            result.Transcript,
			"transcript_from_cache": result.TranscriptFromCache,
			"transcription_cost":    result.TranscriptionCost,
			"reply":                 result.Text.Reply,
			"reply_from_cache":      result.Text.FromCache,
			"reply_cost":            result.Text.CostUSD,
		})
	}

	formatter.Header("Transcript")
	formatter.Println("%s", result.Transcript)
	if result.TranscriptFromCache {
		formatter.Println("%s", formatter.Dim("[cached · $0]"))
	} else {
		formatter.Println("%s", formatter.Dim(fmt.Sprintf("[%s]", output.USD(result.TranscriptionCost))))
	}

	if result.Text != nil {
		formatter.Println("")
		formatter.Header("Reply")
		printTextResult(formatter, result.Text)
	}

	return nil
}
