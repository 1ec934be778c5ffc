package google

import (
	"fmt"
	"strings"

	"ledger/internal/core"

	"github.com/shopspring/decimal"
)

// parseSummary rebuilds the overview of userID for the month from a values
// matrix. Later total rows win, and a new total row resets the category
// breakdown gathered so far, so re-pushing a month supersedes the old rows.
func parseSummary(values [][]any, userID string, year, month int) (core.MonthOverview, error) {
	out := core.MonthOverview{Year: year, Month: month, ByCategory: []core.CategoryAmount{}}
	key := core.MonthKey{Year: year, Month: month}.String()

	for i, raw := range values {
		row := toStrings(raw)
		if safeGet(row, colUser) != userID || safeGet(row, colMonth) != key {
			continue
		}

		if name := safeGet(row, colCategory); name != "" {
			amt, err := parseCell(safeGet(row, colCategoryAmount))
			if err != nil {
				return core.MonthOverview{}, fmt.Errorf("row %d: %w", i+1, err)
			}
			out.ByCategory = append(out.ByCategory, core.CategoryAmount{Name: name, Amount: amt})
			continue
		}

		totals := make([]core.Money, 0, 4)
		for _, col := range []int{colIncome, colExpenses, colBalance, colSavings} {
			m, err := parseCell(safeGet(row, col))
			if err != nil {
				return core.MonthOverview{}, fmt.Errorf("row %d: %w", i+1, err)
			}
			totals = append(totals, m)
		}
		out.Income, out.Expenses, out.Balance, out.Savings = totals[0], totals[1], totals[2], totals[3]
		out.ByCategory = []core.CategoryAmount{}
	}
	return out, nil
}

// parseCell reads a signed amount, accepting a decimal comma and an empty
// cell as zero.
func parseCell(s string) (core.Money, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" {
		return core.Money{}, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return core.Money{}, fmt.Errorf("%w: %q", core.ErrInvalidAmount, s)
	}
	return core.MoneyFromDecimal(d), nil
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}
