package cmd

import (
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for cleanplan
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cleanplan",
		Short: "Cleaning workflow planning engine",
		Long: `Cleanplan assembles structured, ordered cleaning procedures from
natural-language requests and a corpus of extracted cleaning documents.

It normalizes the request into a canonical scenario, retrieves and scores
candidate methods and steps, and composes a validated workflow with tools,
safety notes, and time estimates.`,
		Version: Version,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
	}

	// Add subcommands
	cmd.AddCommand(NewPlanCommand())
	cmd.AddCommand(NewIngestCommand())
	cmd.AddCommand(NewCorpusCommand())

	return cmd
}
