package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	ledgerJSON  bool
	ledgerLimit int
)

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Show earned points",
}

var ledgerShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show your point balance",
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := currentUser()
		if err != nil {
			return err
		}
		services, err := loadServices(cmd)
		if err != nil {
			return err
		}
		defer services.Close() //nolint:errcheck // cli exit

		b, err := services.Ledger.Balance(cmd.Context(), user)
		if err != nil {
			return MapError(err)
		}
		if ledgerJSON {
			return json.NewEncoder(cmd.OutOrStdout()).Encode(b)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d points, %d eco points\n", b.UserID, b.Points, b.EcoPoints)
		return nil
	},
}

var ledgerHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "List your reward grants",
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := currentUser()
		if err != nil {
			return err
		}
		services, err := loadServices(cmd)
		if err != nil {
			return err
		}
		defer services.Close() //nolint:errcheck // cli exit

		entries, err := services.Ledger.History(cmd.Context(), user, ledgerLimit)
		if err != nil {
			return MapError(err)
		}

		out := cmd.OutOrStdout()
		if ledgerJSON {
			return json.NewEncoder(out).Encode(entries)
		}
		if len(entries) == 0 {
			fmt.Fprintln(out, "No rewards yet.")
			return nil
		}
		for _, e := range entries {
			fmt.Fprintf(out, "%s  +%-4d +%-4d eco  %-40s total %d / %d\n",
				e.Timestamp.Local().Format(time.DateTime), e.Points, e.EcoPoints, e.Reason, e.BalancePoints, e.BalanceEcoPoints)
		}
		return nil
	},
}

var ledgerReconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Grant rewards for verified steps the ledger has not recorded",
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := currentUser()
		if err != nil {
			return err
		}
		services, err := loadServices(cmd)
		if err != nil {
			return err
		}
		defer services.Close() //nolint:errcheck // cli exit

		n, err := services.Journeys.ReconcileRewards(cmd.Context(), user)
		if err != nil {
			return MapError(fmt.Errorf("failed to reconcile rewards: %w", err))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Recorded %d missing reward(s).\n", n)
		return nil
	},
}

func init() {
	ledgerCmd.PersistentFlags().BoolVar(&ledgerJSON, "json", false, "Output as JSON")
	ledgerHistoryCmd.Flags().IntVarP(&ledgerLimit, "limit", "n", 0, "Show only the most recent entries")
	ledgerCmd.AddCommand(ledgerShowCmd, ledgerHistoryCmd, ledgerReconcileCmd)
	RootCmd.AddCommand(ledgerCmd)
}
