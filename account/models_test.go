package account_test

import (
	"testing"

	"github.com/xraph/journal/account"
	"github.com/xraph/journal/id"
)

func TestDefaultSide(t *testing.T) {
	tests := []struct {
		category account.Category
		want     account.BalanceSide
	}{
		{account.CategoryRevenue, account.SideCredit},
		{account.CategoryExpense, account.SideDebit},
		{account.CategoryAsset, account.SideDebit},
		{account.CategoryLiability, account.SideCredit},
		{account.CategoryEquity, account.SideCredit},
		{account.CategoryNonOperating, account.SideBoth},
		{account.CategoryNonOperatingRevenue, account.SideCredit},
		{account.CategoryNonOperatingExpense, account.SideDebit},
	}

	for _, tt := range tests {
		t.Run(string(tt.category), func(t *testing.T) {
			if !tt.category.Valid() {
				t.Fatalf("%q should be valid", tt.category)
			}
			got, err := tt.category.DefaultSide()
			if err != nil {
				t.Fatalf("DefaultSide: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
			if !got.Valid() {
				t.Errorf("side %q should be valid", got)
			}
		})
	}
}

func TestUnknownCategory(t *testing.T) {
	c := account.Category("XX")
	if c.Valid() {
		t.Error("unknown category reported valid")
	}
	if _, err := c.DefaultSide(); err == nil {
		t.Error("expected error for unknown category")
	}
	if account.BalanceSide("Both").Valid() {
		t.Error("unknown side reported valid")
	}
}

func TestIsRoot(t *testing.T) {
	root := &account.Account{ID: id.NewAccountID()}
	child := &account.Account{ID: id.NewAccountID(), ParentID: root.ID}
	if !root.IsRoot() {
		t.Error("account without parent should be root")
	}
	if child.IsRoot() {
		t.Error("account with parent should not be root")
	}
}
