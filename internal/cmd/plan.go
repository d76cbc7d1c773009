package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harrison/cleanplan/internal/config"
	"github.com/harrison/cleanplan/internal/logger"
	"github.com/harrison/cleanplan/internal/models"
	"github.com/harrison/cleanplan/internal/planner"
	"github.com/harrison/cleanplan/internal/retrieval"
)

// NewPlanCommand creates the plan subcommand.
func NewPlanCommand() *cobra.Command {
	var (
		surface    string
		dirt       string
		method     string
		noBleach   bool
		noHarsh    bool
		gentleOnly bool
		corpusPath string
		configPath string
		minSteps   int
		allowFewer bool
		logLevel   string
		output     string
	)

	cmd := &cobra.Command{
		Use:   "plan \"<query>\"",
		Short: "Generate a cleaning workflow for a natural-language request",
		Long: `Plan composes a cleaning workflow from the corpus for a request such as
"Remove red wine stain from wool carpet". Surface, dirt, and method can be
given explicitly or extracted from the query.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			mergePlanFlags(cmd, cfg, minSteps, allowFewer, corpusPath, logLevel)
			if err := cfg.Validate(); err != nil {
				return err
			}

			log := logger.NewConsoleLogger(os.Stderr, cfg.LogLevel)
			store, err := retrieval.NewStore(cfg.CorpusPath)
			if err != nil {
				return err
			}
			defer store.Close()

			req := planner.PlanRequest{
				Query:          args[0],
				SurfaceType:    surface,
				DirtType:       dirt,
				CleaningMethod: method,
				Constraints: models.Constraints{
					NoBleach:         noBleach,
					NoHarshChemicals: noHarsh,
					GentleOnly:       gentleOnly,
				},
			}

			result, err := planner.New(store, cfg, log).Plan(cmd.Context(), req)
			if err != nil {
				return describePlanError(err)
			}

			if output == "json" {
				encoder := json.NewEncoder(cmd.OutOrStdout())
				encoder.SetIndent("", "  ")
				return encoder.Encode(result)
			}
			printWorkflow(cmd, result)
			return nil
		},
	}

	cmd.Flags().StringVar(&surface, "surface", "", "explicit surface type (e.g. carpet, tile)")
	cmd.Flags().StringVar(&dirt, "dirt", "", "explicit dirt type (e.g. stain, grease)")
	cmd.Flags().StringVar(&method, "method", "", "preferred cleaning method")
	cmd.Flags().BoolVar(&noBleach, "no-bleach", false, "exclude bleach-based products")
	cmd.Flags().BoolVar(&noHarsh, "no-harsh-chemicals", false, "restrict to gentle products")
	cmd.Flags().BoolVar(&gentleOnly, "gentle-only", false, "restrict to gentle methods")
	cmd.Flags().StringVar(&corpusPath, "corpus", "", "path to the corpus database")
	cmd.Flags().StringVar(&configPath, "config", "", "path to config file")
	cmd.Flags().IntVar(&minSteps, "min-steps", 0, "minimum workflow step count")
	cmd.Flags().BoolVar(&allowFewer, "allow-fewer-steps", false, "relax the minimum step count by one")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "log verbosity (trace, debug, info, warn, error)")
	cmd.Flags().StringVar(&output, "output", "text", "output format: text or json")

	return cmd
}

func loadConfig(configPath string) (*config.Config, error) {
	if configPath != "" {
		return config.LoadConfig(configPath)
	}
	return config.LoadConfigFromDir(".")
}

func mergePlanFlags(cmd *cobra.Command, cfg *config.Config, minSteps int, allowFewer bool, corpusPath, logLevel string) {
	var minStepsPtr *int
	if cmd.Flags().Changed("min-steps") {
		minStepsPtr = &minSteps
	}
	var allowFewerPtr *bool
	if cmd.Flags().Changed("allow-fewer-steps") {
		allowFewerPtr = &allowFewer
	}
	var corpusPtr *string
	if corpusPath != "" {
		corpusPtr = &corpusPath
	}
	var logLevelPtr *string
	if logLevel != "" {
		logLevelPtr = &logLevel
	}
	cfg.MergeWithFlags(minStepsPtr, allowFewerPtr, corpusPtr, logLevelPtr)
}

// describePlanError turns tagged planning errors into actionable CLI output.
func describePlanError(err error) error {
	var pe *models.PlanError
	switch models.KindOf(err) {
	case models.ErrKindAmbiguousQuery:
		return fmt.Errorf("%w\nTry naming the surface and dirt explicitly, e.g. --surface carpet --dirt stain", err)
	case models.ErrKindNoMatchFound:
		if errors.As(err, &pe) && len(pe.Suggestions) > 0 {
			var hints []string
			for _, s := range pe.Suggestions {
				hints = append(hints, fmt.Sprintf("%s/%s (%s)", s.SurfaceType, s.DirtType, s.CleaningMethod))
			}
			return fmt.Errorf("%w\nSimilar scenarios in the corpus: %s", err, strings.Join(hints, ", "))
		}
		return err
	case models.ErrKindInsufficientSteps:
		if errors.As(err, &pe) {
			return fmt.Errorf("%w\nThe corpus lacks coverage for this scenario (found %d of %d steps)", err, pe.Found, pe.Required)
		}
		return err
	default:
		return err
	}
}

func printWorkflow(cmd *cobra.Command, result *models.PlanResult) {
	out := cmd.OutOrStdout()
	bold := color.New(color.Bold)
	heading := color.New(color.Bold, color.FgCyan)

	heading.Fprintf(out, "Cleaning workflow %s\n", result.WorkflowID)
	fmt.Fprintf(out, "Scenario: %s / %s via %s\n",
		result.Scenario.SurfaceType, result.Scenario.DirtType, result.Scenario.CleaningMethod)
	fmt.Fprintf(out, "Difficulty: %s, estimated %d minutes, confidence %.2f\n\n",
		result.Workflow.Difficulty, result.Workflow.EstimatedDurationMinutes, result.Metadata.Confidence)

	bold.Fprintln(out, "Steps:")
	for _, step := range result.Workflow.Steps {
		fmt.Fprintf(out, "  %d. %s\n", step.StepNumber, step.Description)
	}

	if len(result.Workflow.RequiredTools) > 0 {
		bold.Fprintln(out, "\nRequired tools:")
		for _, tool := range result.Workflow.RequiredTools {
			marker := ""
			if tool.IsRequired {
				marker = " (required)"
			}
			fmt.Fprintf(out, "  - %s x%s%s\n", tool.ToolName, tool.Quantity, marker)
		}
	}

	if len(result.Workflow.SafetyNotes) > 0 {
		bold.Fprintln(out, "\nSafety notes:")
		for _, note := range result.Workflow.SafetyNotes {
			fmt.Fprintf(out, "  ! %s\n", note)
		}
	}

	if len(result.Workflow.Tips) > 0 {
		bold.Fprintln(out, "\nTips:")
		for _, tip := range result.Workflow.Tips {
			fmt.Fprintf(out, "  * %s\n", tip)
		}
	}
}
