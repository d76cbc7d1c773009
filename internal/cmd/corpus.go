package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harrison/cleanplan/internal/retrieval"
)

// NewCorpusCommand creates the corpus subcommand group.
func NewCorpusCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "corpus",
		Short: "Inspect the cleaning-document corpus",
	}
	cmd.AddCommand(newCorpusStatsCommand())
	return cmd
}

func newCorpusStatsCommand() *cobra.Command {
	var (
		corpusPath string
		configPath string
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show corpus row counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			var corpusPtr *string
			if corpusPath != "" {
				corpusPtr = &corpusPath
			}
			cfg.MergeWithFlags(nil, nil, corpusPtr, nil)
			if err := cfg.Validate(); err != nil {
				return err
			}

			store, err := retrieval.NewStore(cfg.CorpusPath)
			if err != nil {
				return err
			}
			defer store.Close()

			stats, err := store.CorpusStats(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Documents: %d\n", stats.Documents)
			fmt.Fprintf(out, "Steps:     %d\n", stats.Steps)
			fmt.Fprintf(out, "Tools:     %d\n", stats.Tools)
			fmt.Fprintf(out, "Scenarios: %d\n", stats.Scenarios)
			return nil
		},
	}

	cmd.Flags().StringVar(&corpusPath, "corpus", "", "path to the corpus database")
	cmd.Flags().StringVar(&configPath, "config", "", "path to config file")

	return cmd
}
