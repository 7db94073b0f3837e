// =============================================================================
// Roster Sync - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. Every subcommand
// shares the persistent flags and the configuration loaded here.
//
// COBRA CLI STRUCTURE:
//   roster
//   ├── sync     (roster sync)     - reconcile the sheet into the database
//   ├── backup   (roster backup)   - back up the member table only
//   ├── sepa     (roster sepa)     - build the direct debit remittance
//   └── version  (roster version)
//
// CONFIGURATION:
//   The root command is responsible for:
//   1. Setting up global flags (--config, --verbose)
//   2. Loading config.yaml (optional, defaults apply when absent)
//   3. Setting up logging
//
// =============================================================================

package cmd

import (
	"fmt"
	"os"

	"github.com/ginjaninja78/roster-sync/internal/config"
	"github.com/ginjaninja78/roster-sync/internal/logger"
	"github.com/spf13/cobra"
)

// app holds the state shared by the commands of one invocation.
type app struct {
	// cfgFile is the path to the main configuration file.
	cfgFile string

	// verbose forces debug logging, including SQL statements.
	verbose bool

	cfg *config.MainConfig
}

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "roster",
		Short: "Roster Sync - keep the member table in line with the membership spreadsheet",
		Long: `Roster Sync reads the spreadsheet of active members and reconciles it
into the member table of the club database.

For every row of the sheet the matching member (by NIF, or by member code)
is updated and reactivated; rows without a match are inserted. Active members
missing from the sheet are deactivated. A CSV backup of the whole table is
written before anything changes.

Example Usage:
  roster sync                         # Socis-2025.xlsx + models/.env, asks for confirmation
  roster sync --dry-run               # Show what would change
  roster sync --mode code --file x.xlsx
  roster backup                       # Backup only
  roster sepa                         # SEPA remittance for domiciled members`,

		SilenceUsage:  true,
		SilenceErrors: true,

		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initialize(cmd)
		},

		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}

	// ==========================================================================
	// PERSISTENT FLAGS
	// ==========================================================================

	rootCmd.PersistentFlags().StringVar(
		&a.cfgFile,
		"config",
		"config.yaml",
		"Path to the main configuration file",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&a.verbose,
		"verbose",
		"v",
		false,
		"Enable verbose output for debugging",
	)

	rootCmd.AddCommand(
		newSyncCmd(a),
		newBackupCmd(a),
		newSepaCmd(a),
		newVersionCmd(),
	)

	return rootCmd
}

// initialize loads the main configuration and sets up logging.
func (a *app) initialize(cmd *cobra.Command) error {
	cfg, err := config.LoadMainConfig(a.cfgFile)
	if err != nil {
		return err
	}
	a.cfg = cfg

	level := cfg.LogLevel
	if a.verbose {
		level = "debug"
	}
	logger.SetupWriter(cmd.ErrOrStderr(), level)
	return nil
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the CLI. It is called by main.main().
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
