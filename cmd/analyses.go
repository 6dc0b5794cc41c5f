package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/interview-coach/internal/filtering"
)

var analysesCmd = &cobra.Command{
	Use:   "analyses",
	Short: "List previous analyses, newest first",
	Run: func(cmd *cobra.Command, _ []string) {
		listAnalyses(cmd)
	},
}

func init() {
	rootCmd.AddCommand(analysesCmd)

	analysesCmd.Flags().StringP("query", "q", "", "search job title and company")
	analysesCmd.Flags().StringP("filter", "f", filtering.ModeAll, "all, high_match or recent")
}

func listAnalyses(cmd *cobra.Command) {
	logger, config := setup()
	s, _ := newSubmitter(config, logger)

	opts := filtering.Options{
		Query: cmd.Flag("query").Value.String(),
		Mode:  cmd.Flag("filter").Value.String(),
	}
	switch opts.Mode {
	case filtering.ModeAll, filtering.ModeHighMatch, filtering.ModeRecent:
	default:
		logger.Fatal("unknown filter", zap.String("filter", opts.Mode))
	}

	list, err := s.ListAnalyses(context.Background(), opts)
	if err != nil {
		logger.Debug("listing analyses", zap.Error(err))
		os.Exit(1)
	}

	if len(list) == 0 {
		logger.Info("no analyses found")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSCORE\tTITLE\tCOMPANY\tCREATED")
	for _, a := range list {
		fmt.Fprintf(w, "%s\t%.0f\t%s\t%s\t%s\n", a.ID, a.MatchScore, a.JobTitle, a.Company, a.CreatedAt)
	}
	_ = w.Flush()
}
