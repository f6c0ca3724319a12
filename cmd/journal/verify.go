package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/hako/durafmt"
	"github.com/spf13/cobra"

	"github.com/xraph/journal"
	"github.com/xraph/journal/id"
)

var verifyFromHash string

var verifyCmd = &cobra.Command{
	Use:   "verify [ledger-id]...",
	Short: "Recompute and check the hash chain of ledgers (all when none given)",
	RunE: func(cmd *cobra.Command, args []string) error {
		ledgerIDs := make([]id.LedgerID, 0, len(args))
		for _, arg := range args {
			ledgerID, err := id.ParseLedgerID(arg)
			if err != nil {
				return fmt.Errorf("ledger %q: %w", arg, err)
			}
			ledgerIDs = append(ledgerIDs, ledgerID)
		}
		if verifyFromHash != "" && len(ledgerIDs) != 1 {
			return errors.New("--from-hash needs exactly one ledger")
		}

		reports, err := engine.VerifyAll(cmd.Context(), ledgerIDs, journal.VerifyOptions{FromHash: verifyFromHash})

		var broken journal.MultiError
		if err != nil && !errors.As(err, &broken) {
			return err
		}

		if jsonOutput {
			if werr := writeJSON(cmd.OutOrStdout(), reports); werr != nil {
				return werr
			}
		} else {
			printReports(cmd.OutOrStdout(), reports, broken)
		}

		if broken.HasErrors() {
			return fmt.Errorf("%d of %d ledgers failed verification", len(broken.Errors), len(reports))
		}
		return nil
	},
}

func init() {
	verifyCmd.Flags().StringVar(&verifyFromHash, "from-hash", "", "resume after the posting with this previously verified hash")
}

func printReports(w io.Writer, reports []*journal.VerifyReport, broken journal.MultiError) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "LEDGER\tPOSTINGS\tHEAD HASH\tELAPSED")
	for _, r := range reports {
		if r == nil {
			continue
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n",
			r.LedgerID, r.Checked, r.HeadHash, durafmt.Parse(r.Elapsed).LimitFirstN(2))
	}
	_ = tw.Flush() //nolint:errcheck // terminal output

	for _, err := range broken.Errors {
		var ce *journal.ChainIntegrityError
		if errors.As(err, &ce) {
			fmt.Fprintf(w, "BROKEN %s at posting %s: %s\n", ce.LedgerID, ce.PostingID, ce.Reason)
			continue
		}
		fmt.Fprintf(w, "BROKEN %v\n", err)
	}
}
