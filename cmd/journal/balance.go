package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/xraph/journal/id"
)

var balanceAsOf string

var balanceCmd = &cobra.Command{
	Use:   "balance <account-id>",
	Short: "Reconstruct an account balance at a value time",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		accountID, err := id.ParseAccountID(args[0])
		if err != nil {
			return fmt.Errorf("account %q: %w", args[0], err)
		}
		asOf, err := parseTime(balanceAsOf)
		if err != nil {
			return err
		}

		b, err := engine.BalanceAsOf(cmd.Context(), accountID, asOf)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		if jsonOutput {
			return writeJSON(w, b)
		}
		fmt.Fprintf(w, "%s  as of %s\n", b.AccountID, b.AsOf.Format(time.RFC3339Nano))
		fmt.Fprintf(w, "  debit   %s\n", b.TotalDebit.String())
		fmt.Fprintf(w, "  credit  %s\n", b.TotalCredit.String())
		if b.Netted {
			fmt.Fprintf(w, "  %-6s  %s\n", b.Side, b.Amount.String())
		}
		if b.CheckpointID.IsNil() {
			fmt.Fprintf(w, "  replayed %d lines from genesis\n", b.Replayed)
		} else {
			fmt.Fprintf(w, "  replayed %d lines after %s\n", b.Replayed, b.CheckpointID)
		}
		return nil
	},
}

func init() {
	balanceCmd.Flags().StringVar(&balanceAsOf, "as-of", "", "value time (RFC 3339 or YYYY-MM-DD, default now)")
}
