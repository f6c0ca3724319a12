package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/xraph/journal/id"
	"github.com/xraph/journal/statement"
)

var (
	checkpointAsOf   string
	checkpointStatus string
)

var checkpointCmd = &cobra.Command{
	Use:   "checkpoint",
	Short: "Create, close and inspect statements",
}

var checkpointCreateCmd = &cobra.Command{
	Use:   "create <account-or-ledger-id>",
	Short: "Create a SIMULATED statement at a value time",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		owner, err := parseOwner(args[0])
		if err != nil {
			return err
		}
		asOf, err := parseTime(checkpointAsOf)
		if err != nil {
			return err
		}
		s, err := engine.CreateCheckpoint(cmd.Context(), owner, asOf)
		if err != nil {
			return err
		}
		return printStatement(cmd.OutOrStdout(), s)
	},
}

var checkpointCloseCmd = &cobra.Command{
	Use:   "close <statement-id>",
	Short: "Recompute a SIMULATED statement and mark it CLOSED",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		statementID, err := id.ParseStatementID(args[0])
		if err != nil {
			return fmt.Errorf("statement %q: %w", args[0], err)
		}
		s, err := engine.Close(cmd.Context(), statementID)
		if err != nil {
			return err
		}
		return printStatement(cmd.OutOrStdout(), s)
	},
}

var checkpointLatestCmd = &cobra.Command{
	Use:   "latest <account-or-ledger-id>",
	Short: "Show the latest statement of an account or ledger",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		owner, err := parseOwner(args[0])
		if err != nil {
			return err
		}
		status := statement.Status(strings.ToUpper(checkpointStatus))
		if !status.Valid() {
			return fmt.Errorf("status %q: want SIMULATED or CLOSED", checkpointStatus)
		}
		s, err := engine.LatestStatement(cmd.Context(), owner, status)
		if err != nil {
			return err
		}
		return printStatement(cmd.OutOrStdout(), s)
	},
}

func init() {
	checkpointCreateCmd.Flags().StringVar(&checkpointAsOf, "as-of", "", "value time (RFC 3339 or YYYY-MM-DD, default now)")
	checkpointLatestCmd.Flags().StringVar(&checkpointStatus, "status", string(statement.StatusClosed), "SIMULATED or CLOSED")

	checkpointCmd.AddCommand(checkpointCreateCmd)
	checkpointCmd.AddCommand(checkpointCloseCmd)
	checkpointCmd.AddCommand(checkpointLatestCmd)
}

// parseOwner picks the statement owner kind from the id prefix.
func parseOwner(s string) (statement.Owner, error) {
	ownerID, err := id.Parse(s)
	if err != nil {
		return statement.Owner{}, fmt.Errorf("owner %q: %w", s, err)
	}
	switch ownerID.Prefix() {
	case id.PrefixAccount:
		return statement.AccountOwner(ownerID), nil
	case id.PrefixLedger:
		return statement.LedgerOwner(ownerID), nil
	default:
		return statement.Owner{}, fmt.Errorf("owner %q: want an account or ledger id", s)
	}
}

// parseTime accepts RFC 3339 or a bare date. Empty means now.
func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Now().UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("time %q: want RFC 3339 or YYYY-MM-DD", s)
	}
	return t, nil
}

func printStatement(w io.Writer, s *statement.Statement) error {
	if jsonOutput {
		return writeJSON(w, s)
	}
	fmt.Fprintf(w, "%s  %s  %s  seq=%d\n", s.ID, s.Owner, s.Status, s.Seq)
	fmt.Fprintf(w, "  value time  %s\n", s.ValueTime.Format(time.RFC3339Nano))
	fmt.Fprintf(w, "  debit       %s\n", s.TotalDebit.String())
	fmt.Fprintf(w, "  credit      %s\n", s.TotalCredit.String())
	fmt.Fprintf(w, "  lines       %d\n", s.Lines)
	return nil
}
