package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/ssargent/strata/pkg/logger"
)

// Options holds the global flags
type Options struct {
	ProjectDir string
	Engine     string
	Format     string
	Verbose    bool
	Quiet      bool
	Yes        bool
}

// Global variables
var (
	opts      Options
	loreStore *LoreStore
	rootCmd   = newRootCmd()
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lore",
		Short: "Book Lore CLI - Manage writing reference notes",
		Long: `A command-line tool for writers to create, browse, and update
reference notes about characters, places, and groups.

Notes are kept in a Strata store under <project>/.lore.

Examples:
  lore character create "John Doe" --summary "A brave knight"
  lore place list
  lore group get merchants-guild`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := "warn"
			if opts.Verbose {
				level = "debug"
			}
			log, err := logger.New(os.Stderr, level)
			if err != nil {
				return err
			}
			loreStore, err = OpenLoreStore(opts.ProjectDir, opts.Engine, log)
			return err
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if loreStore == nil {
				return nil
			}
			err := loreStore.Close()
			loreStore = nil
			return err
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.ProjectDir, "project", "p", ".", "path to project directory")
	flags.StringVar(&opts.Engine, "engine", "", "storage engine for a new project (bolt or pebble)")
	flags.StringVarP(&opts.Format, "format", "o", "table", "output format (table or json)")
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "log storage activity")
	flags.BoolVarP(&opts.Quiet, "quiet", "q", false, "suppress non-essential messages")
	flags.BoolVarP(&opts.Yes, "yes", "y", false, "assume 'yes' for prompts")

	cmd.AddCommand(entityCommand(EntityTypeCharacter, "John Doe"))
	cmd.AddCommand(entityCommand(EntityTypePlace, "Winterfell"))
	cmd.AddCommand(entityCommand(EntityTypeGroup, "Merchants Guild"))
	cmd.AddCommand(relationshipCmd)
	return cmd
}

// out returns the printer for cmd's output stream.
func out(cmd *cobra.Command) printer {
	return printer{w: cmd.OutOrStdout(), format: opts.Format}
}
