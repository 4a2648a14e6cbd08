package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Global flags.
var (
	rootPath string
	userID   string
	verbose  bool
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:     "harvestpath",
	Version: Version,
	Short:   "Step-by-step crop cultivation journeys with photo-verified progress",
	Long: `HarvestPath guides a farmer through a crop's cultivation workflow.
Each step unlocks after a photo proof is verified, and verified steps
earn points and eco points in a reward ledger.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() error {
	err := RootCmd.Execute()
	var cliErr *CLIError
	if errors.As(err, &cliErr) && cliErr.Hint != "" {
		fmt.Fprintf(os.Stderr, "Hint: %s\n", cliErr.Hint)
	}
	return err
}

func init() {
	RootCmd.PersistentFlags().StringVar(&rootPath, "root", "", "Workspace root holding the .harvestpath directory (default: current directory)")
	RootCmd.PersistentFlags().StringVarP(&userID, "user", "u", "", "User id (default: $HARVESTPATH_USER, then $USER)")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}
