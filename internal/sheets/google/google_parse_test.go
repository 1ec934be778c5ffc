package google

import (
	"errors"
	"testing"

	"ledger/internal/core"
)

func TestParseSummary(t *testing.T) {
	values := [][]any{
		{"User", "Month", "Income", "Expenses", "Balance", "Savings", "Category", "Amount"},
		{"u1", "2024-03", "100.00", "50.00", "50.00", "0.00", "", ""},
		{"u1", "2024-03", "", "", "", "", "Old", "50.00"},
		{"u2", "2024-03", "999.00", "1.00", "998.00", "0.00", "", ""},
		{"u1", "2024-02", "7.00", "0.00", "7.00", "0.00", "", ""},
		{"u1", "2024-03", "5000,00", "1245.50", "3754.50", "-200.00"},
		{"u1", "2024-03", "", "", "", "", "Moradia", "1200.00"},
		{"u1", "2024-03", "", "", "", "", "Alimentação", "45.5"},
	}

	got, err := parseSummary(values, "u1", 2024, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Income.Cents != 500000 || got.Expenses.Cents != 124550 || got.Balance.Cents != 375450 {
		t.Errorf("unexpected totals: %+v", got)
	}
	if got.Savings.Cents != -20000 {
		t.Errorf("savings = %d, want -20000", got.Savings.Cents)
	}
	if len(got.ByCategory) != 2 {
		t.Fatalf("expected 2 categories after the latest total row, got %+v", got.ByCategory)
	}
	if got.ByCategory[1].Name != "Alimentação" || got.ByCategory[1].Amount.Cents != 4550 {
		t.Errorf("unexpected category row: %+v", got.ByCategory[1])
	}
}

func TestParseSummary_Empty(t *testing.T) {
	got, err := parseSummary(nil, "u1", 2024, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Year != 2024 || got.Month != 3 || got.ByCategory == nil || !got.Income.IsZero() {
		t.Errorf("unexpected overview: %+v", got)
	}
}

func TestParseSummary_BadCell(t *testing.T) {
	values := [][]any{{"u1", "2024-03", "lots", "0", "0", "0"}}
	_, err := parseSummary(values, "u1", 2024, 3)
	if !errors.Is(err, core.ErrInvalidAmount) {
		t.Errorf("expected ErrInvalidAmount, got %v", err)
	}
}
