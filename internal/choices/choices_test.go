package choices

import (
	"fmt"
	"strings"
	"testing"

	"github.com/zihangg/kuberan-bot/internal/gateway"
	"github.com/zihangg/kuberan-bot/internal/outbound"
)

func strPtr(s string) *string { return &s }

func TestOrderCategoriesChildrenFollowParents(t *testing.T) {
	cats := []gateway.Category{
		{ID: "p1", Name: "Food"},
		{ID: "p2", Name: "Transport"},
		{ID: "c1", Name: "Groceries", ParentID: strPtr("p1")},
		{ID: "c2", Name: "Dining", ParentID: strPtr("p1")},
		{ID: "c3", Name: "Fuel", ParentID: strPtr("p2")},
	}
	ordered := OrderCategories(cats)
	var ids []string
	for _, c := range ordered {
		ids = append(ids, c.ID)
	}
	want := "p1 c1 c2 p2 c3"
	if got := strings.Join(ids, " "); got != want {
		t.Errorf("order = %q, want %q", got, want)
	}
}

func TestOrderCategoriesOrphansAppendedOnce(t *testing.T) {
	cats := []gateway.Category{
		{ID: "o1", Name: "Stray", ParentID: strPtr("missing")},
		{ID: "p1", Name: "Food"},
		{ID: "o2", Name: "Lost", ParentID: strPtr("gone")},
	}
	ordered := OrderCategories(cats)
	var ids []string
	for _, c := range ordered {
		ids = append(ids, c.ID)
	}
	want := "p1 o1 o2"
	if got := strings.Join(ids, " "); got != want {
		t.Errorf("order = %q, want %q", got, want)
	}
	counts := make(map[string]int)
	for _, id := range ids {
		counts[id]++
	}
	for id, n := range counts {
		if n != 1 {
			t.Errorf("category %s emitted %d times", id, n)
		}
	}
}

func makeCategories(n int) []gateway.Category {
	cats := make([]gateway.Category, n)
	for i := range cats {
		cats[i] = gateway.Category{ID: fmt.Sprintf("c%d", i), Name: fmt.Sprintf("Cat%d", i)}
	}
	return cats
}

func flatten(rows [][]outbound.Button) []outbound.Button {
	var all []outbound.Button
	for _, row := range rows {
		all = append(all, row...)
	}
	return all
}

func hasData(rows [][]outbound.Button, data string) bool {
	for _, b := range flatten(rows) {
		if b.Data == data {
			return true
		}
	}
	return false
}

func TestCategoryKeyboardPagination(t *testing.T) {
	cats := makeCategories(20) // pages: 9, 9, 2

	page0 := CategoryKeyboard(cats, 0)
	if hasData(page0, "cat:page:-1") {
		t.Error("page 0 must not offer Prev")
	}
	if !hasData(page0, "cat:page:1") {
		t.Error("page 0 must offer Next")
	}
	if !hasData(page0, "cat:c0") || hasData(page0, "cat:c9") {
		t.Error("page 0 must hold exactly the first 9 categories")
	}

	page1 := CategoryKeyboard(cats, 1)
	if !hasData(page1, "cat:page:0") || !hasData(page1, "cat:page:2") {
		t.Error("page 1 must offer both Prev and Next")
	}
	if !hasData(page1, "cat:c9") || hasData(page1, "cat:c18") {
		t.Error("page 1 must hold categories 9..17")
	}

	page2 := CategoryKeyboard(cats, 2)
	if hasData(page2, "cat:page:3") {
		t.Error("last page must not offer Next")
	}
	if !hasData(page2, "cat:page:1") {
		t.Error("last page must offer Prev")
	}

	for _, rows := range [][][]outbound.Button{page0, page1, page2} {
		if !hasData(rows, "cat:new") || !hasData(rows, "cat:none") {
			t.Error("every page must offer + New and Skip")
		}
	}
}

func TestCategoryKeyboardRowWidth(t *testing.T) {
	rows := CategoryKeyboard(makeCategories(9), 0)
	// 9 categories -> 3 rows of 3, then the fixed action row.
	if len(rows) != 4 {
		t.Fatalf("rows = %d, want 4", len(rows))
	}
	for i := 0; i < 3; i++ {
		if len(rows[i]) != 3 {
			t.Errorf("row %d width = %d, want 3", i, len(rows[i]))
		}
	}
}

func TestCategoryKeyboardNoNavOnSinglePage(t *testing.T) {
	rows := CategoryKeyboard(makeCategories(5), 0)
	for _, b := range flatten(rows) {
		if strings.HasPrefix(b.Data, "cat:page:") {
			t.Errorf("unexpected nav button %q", b.Data)
		}
	}
}

func TestDefaultAccount(t *testing.T) {
	accounts := []gateway.Account{
		{ID: "inv", Name: "Broker", Type: gateway.AccountInvestment, IsActive: true},
		{ID: "a1", Name: "Old", Type: gateway.AccountCash, IsActive: false},
		{ID: "a2", Name: "Wallet", Type: gateway.AccountCash, IsActive: true},
	}
	if got := DefaultAccount(accounts); got == nil || got.ID != "a2" {
		t.Errorf("default = %+v, want a2", got)
	}

	inactiveOnly := []gateway.Account{
		{ID: "inv", Type: gateway.AccountInvestment, IsActive: true},
		{ID: "a1", Name: "Old", Type: gateway.AccountDebt, IsActive: false},
	}
	if got := DefaultAccount(inactiveOnly); got == nil || got.ID != "a1" {
		t.Errorf("default = %+v, want a1", got)
	}

	if got := DefaultAccount([]gateway.Account{{ID: "inv", Type: gateway.AccountInvestment}}); got != nil {
		t.Errorf("default = %+v, want nil", got)
	}
}

func TestAccountKeyboardFiltersInvestment(t *testing.T) {
	accounts := []gateway.Account{
		{ID: "a1", Name: "Wallet", Type: gateway.AccountCash, IsActive: true},
		{ID: "inv", Name: "Broker", Type: gateway.AccountInvestment, IsActive: true},
		{ID: "a2", Name: "Visa", Type: gateway.AccountCreditCard, IsActive: true},
	}
	rows := AccountKeyboard(accounts)
	if hasData(rows, "acc:inv") {
		t.Error("investment account must be excluded")
	}
	if !hasData(rows, "acc:a1") || !hasData(rows, "acc:a2") {
		t.Error("eligible accounts missing")
	}
	if !hasData(rows, "acc:new") || !hasData(rows, "acc:back") {
		t.Error("fixed actions missing")
	}
	if len(rows[0]) != 2 {
		t.Errorf("account row width = %d, want 2", len(rows[0]))
	}
}

func TestParentKeyboardTopLevelSameTypeOnly(t *testing.T) {
	cats := []gateway.Category{
		{ID: "e1", Name: "Food", Type: gateway.CategoryExpense},
		{ID: "e2", Name: "Dining", Type: gateway.CategoryExpense, ParentID: strPtr("e1")},
		{ID: "i1", Name: "Salary", Type: gateway.CategoryIncome},
	}
	rows := ParentKeyboard(cats, gateway.CategoryExpense)
	if !hasData(rows, "ncp:e1") {
		t.Error("top-level expense category missing")
	}
	if hasData(rows, "ncp:e2") || hasData(rows, "ncp:i1") {
		t.Error("children and other-type categories must be excluded")
	}
	if !hasData(rows, "ncp:none") {
		t.Error("top-level option missing")
	}
}

func TestConfirmKeyboardPayloads(t *testing.T) {
	rows := ConfirmKeyboard()
	for _, data := range []string{"txn:confirm", "txn:cancel", "txn:chg_cat", "txn:chg_acc", "txn:chg_ccy"} {
		if !hasData(rows, data) {
			t.Errorf("missing payload %q", data)
		}
	}
}

func TestCategoryLabel(t *testing.T) {
	if got := CategoryLabel(gateway.Category{Name: "Food", Icon: "🍕"}); got != "🍕 Food" {
		t.Errorf("label = %q", got)
	}
	if got := CategoryLabel(gateway.Category{Name: "Dining", ParentID: strPtr("p")}); got != "  Dining" {
		t.Errorf("label = %q", got)
	}
	if got := CategoryLabel(gateway.Category{Name: "Misc"}); got != "Misc" {
		t.Errorf("label = %q", got)
	}
}
