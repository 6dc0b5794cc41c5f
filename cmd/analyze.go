package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/interview-coach/internal/progress"
	"github.com/spigell/interview-coach/internal/submission"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze how a resume fits a job description",
	Long: "Submit a resume and a job description for analysis. --resume and --job take a file path,\n" +
		"'-' for stdin, or the text itself. Interrupt with Ctrl-C to cancel; the result is then discarded.",
	Run: func(cmd *cobra.Command, _ []string) {
		analyze(cmd)
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().String("resume", "", "resume text, file or '-'")
	analyzeCmd.Flags().String("job", "", "job description text, file or '-'")
	analyzeCmd.Flags().String("github", "", "GitHub profile url")
	analyzeCmd.Flags().String("linkedin", "", "LinkedIn profile url")
}

func analyze(cmd *cobra.Command) {
	logger, config := setup()

	values := make(map[string]string)
	for _, flag := range []string{"resume", "job", "github", "linkedin"} {
		values[flag] = cmd.Flag(flag).Value.String()
	}
	inputs, err := readInputs(values, os.Stdin)
	if err != nil {
		logger.Fatal("reading input", zap.Error(err))
	}
	form := submission.AnalysisForm{
		ResumeText:     inputs["resume"],
		JobDescription: inputs["job"],
		GitHubURL:      inputs["github"],
		LinkedInURL:    inputs["linkedin"],
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	interval := progress.DefaultInterval
	if config.Progress != nil && config.Progress.Interval > 0 {
		interval = config.Progress.Interval
	}
	sim := progress.New(progress.Options{Interval: interval, OnChange: renderProgress})

	s, _ := newSubmitter(config, logger)
	result, err := s.RunAnalysis(ctx, form, sim)
	if err != nil {
		var verr *submission.ValidationError
		switch {
		case errors.As(err, &verr):
			for _, msg := range verr.Messages() {
				color.New(color.FgRed).Fprintln(os.Stderr, msg)
			}
		case errors.Is(err, context.Canceled):
			logger.Info("analysis cancelled")
		default:
			logger.Debug("analysis failed", zap.Error(err))
		}
		os.Exit(1)
	}

	heading(fmt.Sprintf("Match score: %.0f%%", result.MatchScore))
	if result.Summary != "" {
		fmt.Println(result.Summary)
	}
	bullets("Strengths", result.Strengths)
	bullets("Skill gaps", result.SkillGaps)
	bullets("Recommendations", result.Recommendations)
	bullets("Interview focus areas", result.InterviewFocusAreas)
}

func renderProgress(st progress.State) {
	if st.Stopped && st.Stage != progress.StageComplete {
		color.New(color.FgYellow).Fprintf(os.Stderr, "analysis stopped at %q\n", st.Stage.Label())
		return
	}
	color.New(color.FgCyan).Fprintf(os.Stderr, "[%3d%%] %s", st.Percent(), st.Stage.Label())
	if remaining := st.RemainingEstimate(); remaining > 0 {
		fmt.Fprintf(os.Stderr, " (about %s left)", remaining)
	}
	fmt.Fprintln(os.Stderr)
}
