package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/harrison/cleanplan/internal/corpus"
	"github.com/harrison/cleanplan/internal/logger"
	"github.com/harrison/cleanplan/internal/retrieval"
)

// NewIngestCommand creates the ingest subcommand.
func NewIngestCommand() *cobra.Command {
	var (
		corpusPath string
		configPath string
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:   "ingest <file-or-dir>...",
		Short: "Ingest markdown cleaning guides into the corpus",
		Long: `Ingest parses extracted cleaning guides (markdown with YAML frontmatter
naming the surface, dirt type, and method) and writes their steps and tools
into the corpus database.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			var corpusPtr *string
			if corpusPath != "" {
				corpusPtr = &corpusPath
			}
			var logLevelPtr *string
			if logLevel != "" {
				logLevelPtr = &logLevel
			}
			cfg.MergeWithFlags(nil, nil, corpusPtr, logLevelPtr)
			if err := cfg.Validate(); err != nil {
				return err
			}

			log := logger.NewConsoleLogger(os.Stderr, cfg.LogLevel)
			store, err := retrieval.NewStore(cfg.CorpusPath)
			if err != nil {
				return err
			}
			defer store.Close()

			ingester := corpus.NewIngester(store, cfg.CorpusPath+".lock", log)
			total := 0
			for _, arg := range args {
				info, err := os.Stat(arg)
				if err != nil {
					return fmt.Errorf("stat %s: %w", arg, err)
				}
				if info.IsDir() {
					count, err := ingester.IngestDir(cmd.Context(), arg)
					if err != nil {
						return err
					}
					total += count
					continue
				}
				if !strings.HasSuffix(arg, ".md") {
					return fmt.Errorf("%s is not a markdown document", arg)
				}
				if err := ingester.IngestFile(cmd.Context(), arg); err != nil {
					return err
				}
				total++
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Ingested %d document(s) into %s\n", total, cfg.CorpusPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&corpusPath, "corpus", "", "path to the corpus database")
	cmd.Flags().StringVar(&configPath, "config", "", "path to config file")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "log verbosity (trace, debug, info, warn, error)")

	return cmd
}
