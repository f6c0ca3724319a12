package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/xraph/journal/id"
)

var ledgerChart string

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Inspect ledgers and their accounts",
}

var ledgerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List ledgers, optionally of one chart",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		chartID := id.Nil
		if ledgerChart != "" {
			c, err := engine.ChartByName(cmd.Context(), ledgerChart)
			if err != nil {
				return err
			}
			chartID = c.ID
		}

		ledgers, err := engine.Ledgers(cmd.Context(), chartID)
		if err != nil {
			return err
		}
		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), ledgers)
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tCHART")
		for _, l := range ledgers {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", l.ID, l.Name, l.ChartID)
		}
		return tw.Flush()
	},
}

var ledgerAccountsCmd = &cobra.Command{
	Use:   "accounts <ledger-id>",
	Short: "List the accounts of a ledger",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ledgerID, err := id.ParseLedgerID(args[0])
		if err != nil {
			return fmt.Errorf("ledger %q: %w", args[0], err)
		}
		accounts, err := engine.Accounts(cmd.Context(), ledgerID)
		if err != nil {
			return err
		}
		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), accounts)
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tSIDE\tPARENT")
		for _, a := range accounts {
			parent := "-"
			if !a.IsRoot() {
				parent = a.ParentID.String()
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", a.ID, a.Name, a.Category, a.BalanceSide, parent)
		}
		return tw.Flush()
	},
}

func init() {
	ledgerListCmd.Flags().StringVar(&ledgerChart, "chart", "", "only ledgers of the chart with this name")

	ledgerCmd.AddCommand(ledgerListCmd)
	ledgerCmd.AddCommand(ledgerAccountsCmd)
}
