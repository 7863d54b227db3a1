package match

import (
	"testing"

	"github.com/zihangg/kuberan-bot/internal/gateway"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in        string
		wantMinor int64
		wantDesc  string
		wantOK    bool
	}{
		{"50", 5000, "", true},
		{"50 Coffee", 5000, "Coffee", true},
		{"50.5 Lunch", 5050, "Lunch", true},
		{"50.55", 5055, "", true},
		{"0.01", 1, "", true},
		{"  12 groceries at store  ", 1200, "groceries at store", true},
		{"Coffee 50", 0, "", false},
		{"", 0, "", false},
		{"-5", 0, "", false},
		{"19.99 Netflix", 1999, "Netflix", true},
	}
	for _, tc := range cases {
		minor, desc, ok := ParseAmount(tc.in)
		if ok != tc.wantOK {
			t.Errorf("ParseAmount(%q) ok = %v, want %v", tc.in, ok, tc.wantOK)
			continue
		}
		if !ok {
			continue
		}
		if minor != tc.wantMinor || desc != tc.wantDesc {
			t.Errorf("ParseAmount(%q) = (%d, %q), want (%d, %q)", tc.in, minor, desc, tc.wantMinor, tc.wantDesc)
		}
	}
}

func testAccounts() []gateway.Account {
	return []gateway.Account{
		{ID: "a1", Name: "Wallet", Type: gateway.AccountCash},
		{ID: "a2", Name: "Visa", Type: gateway.AccountCreditCard},
	}
}

func testCategories() []gateway.Category {
	return []gateway.Category{
		{ID: "c1", Name: "Food", Type: gateway.CategoryExpense},
		{ID: "c2", Name: "Transport", Type: gateway.CategoryExpense},
	}
}

func TestEntitiesAccountOnly(t *testing.T) {
	desc, acc, cat := Entities("Coffee Wallet", testAccounts(), testCategories())
	if desc != "Coffee" {
		t.Errorf("desc = %q", desc)
	}
	if acc == nil || acc.ID != "a1" {
		t.Errorf("account = %+v", acc)
	}
	if cat != nil {
		t.Errorf("category = %+v", cat)
	}
}

func TestEntitiesCategoryThenAccount(t *testing.T) {
	// Account is matched from the rightmost token, category from the next.
	desc, acc, cat := Entities("Lunch Food Visa", testAccounts(), testCategories())
	if desc != "Lunch" {
		t.Errorf("desc = %q", desc)
	}
	if acc == nil || acc.Name != "Visa" {
		t.Errorf("account = %+v", acc)
	}
	if cat == nil || cat.Name != "Food" {
		t.Errorf("category = %+v", cat)
	}
}

func TestEntitiesCaseInsensitive(t *testing.T) {
	_, acc, cat := Entities("dinner food WALLET", testAccounts(), testCategories())
	if acc == nil || acc.ID != "a1" {
		t.Errorf("account = %+v", acc)
	}
	if cat == nil || cat.ID != "c1" {
		t.Errorf("category = %+v", cat)
	}
}

func TestEntitiesNoPartialMatch(t *testing.T) {
	desc, acc, cat := Entities("Coffee Wallets", testAccounts(), testCategories())
	if acc != nil || cat != nil {
		t.Errorf("unexpected match: acc=%+v cat=%+v", acc, cat)
	}
	if desc != "Coffee Wallets" {
		t.Errorf("desc = %q", desc)
	}
}

func TestEntitiesCategoryNotBlockedByMissingAccount(t *testing.T) {
	desc, acc, cat := Entities("Taxi Transport", testAccounts(), testCategories())
	if acc != nil {
		t.Errorf("account = %+v", acc)
	}
	if cat == nil || cat.Name != "Transport" {
		t.Errorf("category = %+v", cat)
	}
	if desc != "Taxi" {
		t.Errorf("desc = %q", desc)
	}
}

func TestEntitiesIdempotentOnStrippedText(t *testing.T) {
	desc, _, _ := Entities("Lunch Food Visa", testAccounts(), testCategories())
	again, acc, cat := Entities(desc, testAccounts(), testCategories())
	if acc != nil || cat != nil || again != desc {
		t.Errorf("second pass matched again: desc=%q acc=%+v cat=%+v", again, acc, cat)
	}
}
