package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var feedbackCmd = &cobra.Command{
	Use:   "feedback <interview-id>",
	Short: "Show interview feedback, or submit a transcript for scoring",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		feedback(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(feedbackCmd)

	feedbackCmd.Flags().StringP("transcript", "t", "", "transcript file or '-' to submit before showing feedback")
}

func feedback(cmd *cobra.Command, interviewID string) {
	logger, config := setup()
	s, _ := newSubmitter(config, logger)
	ctx := context.Background()

	id := interviewID
	if source := cmd.Flag("transcript").Value.String(); source != "" {
		text, err := readInput(source)
		if err != nil {
			logger.Fatal("reading transcript", zap.Error(err))
		}
		created, err := s.SubmitFeedback(ctx, interviewID, text)
		if err != nil {
			logger.Debug("submitting transcript", zap.Error(err))
			os.Exit(1)
		}
		id = created.FeedbackID
	}

	fb, err := s.LoadFeedback(ctx, id)
	if err != nil {
		logger.Debug("loading feedback", zap.Error(err))
		os.Exit(1)
	}

	heading(fmt.Sprintf("Overall score: %.0f", fb.OverallScore))
	if fb.Summary != "" {
		fmt.Println(fb.Summary)
	}
	bullets("Strong points", fb.StrongPoints)
	bullets("Areas to improve", fb.AreasToImprove)
	if detail := strings.TrimSpace(fb.DetailedAnalysis); detail != "" {
		fmt.Println()
		fmt.Println(detail)
	}
}
