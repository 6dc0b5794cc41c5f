package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var reportCmd = &cobra.Command{
	Use:   "report <analysis-id>",
	Short: "Show an analysis report",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		report(args[0])
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
}

func report(id string) {
	logger, config := setup()
	s, _ := newSubmitter(config, logger)

	analysis, err := s.LoadAnalysis(context.Background(), id)
	if err != nil {
		logger.Debug("loading analysis", zap.Error(err))
		os.Exit(1)
	}

	synthesis, err := analysis.Synthesis()
	if err != nil {
		logger.Fatal("decoding analysis", zap.Error(err))
	}

	title := analysis.JobTitle
	if title == "" {
		title = "Analysis " + analysis.ID
	}
	heading(fmt.Sprintf("%s: %.0f%% match", title, analysis.MatchScore))
	if synthesis.Summary != "" {
		fmt.Println(synthesis.Summary)
	}
	bullets("Strengths", synthesis.Strengths)
	bullets("Skill gaps", synthesis.SkillGaps)
	bullets("Recommendations", synthesis.Recommendations)
	bullets("Interview focus areas", synthesis.InterviewFocusAreas)
	fmt.Printf("\nStart a mock interview: %s interview generate %s\n", app, analysis.ID)
}
