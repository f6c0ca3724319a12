package statement_test

import (
	"testing"

	"github.com/xraph/journal/id"
	"github.com/xraph/journal/statement"
)

func TestOwnerValidate(t *testing.T) {
	tests := []struct {
		name    string
		owner   statement.Owner
		wantErr bool
	}{
		{"account", statement.AccountOwner(id.NewAccountID()), false},
		{"ledger", statement.LedgerOwner(id.NewLedgerID()), false},
		{"account kind with ledger id", statement.Owner{Kind: statement.OwnerAccount, ID: id.NewLedgerID()}, true},
		{"ledger kind with account id", statement.Owner{Kind: statement.OwnerLedger, ID: id.NewAccountID()}, true},
		{"unknown kind", statement.Owner{Kind: "chart", ID: id.NewChartID()}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.owner.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestStatusValid(t *testing.T) {
	if !statement.StatusSimulated.Valid() || !statement.StatusClosed.Valid() {
		t.Error("known statuses must be valid")
	}
	if statement.Status("OPEN").Valid() {
		t.Error("unknown status reported valid")
	}
}

func TestOwnerString(t *testing.T) {
	acct := id.NewAccountID()
	got := statement.AccountOwner(acct).String()
	if got != "account:"+acct.String() {
		t.Errorf("String() = %q", got)
	}
}
