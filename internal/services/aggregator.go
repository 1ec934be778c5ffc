package services

import "ledger/internal/core"

// The aggregator functions are pure: same inputs, same outputs, no store
// access. MonthOverview results can therefore be memoised per
// (user, year, month) until the user's data changes.

// TransactionsForMonth keeps the transactions of userID whose calendar date
// falls in the given month.
func TransactionsForMonth(all []core.Transaction, userID string, year, month int) []core.Transaction {
	key := core.MonthKey{Year: year, Month: month}
	var out []core.Transaction
	for _, t := range all {
		if t.UserID == userID && key.Contains(t.Date) {
			out = append(out, t)
		}
	}
	return out
}

func sumByType(txns []core.Transaction, typ core.EntryType) core.Money {
	var total core.Money
	for _, t := range txns {
		if t.Type == typ {
			total = total.Add(t.Amount)
		}
	}
	return total
}

// Income sums income-typed amounts.
func Income(txns []core.Transaction) core.Money {
	return sumByType(txns, core.Income)
}

// Expenses sums expense-typed amounts.
func Expenses(txns []core.Transaction) core.Money {
	return sumByType(txns, core.Expense)
}

// Balance is Income minus Expenses and may be negative.
func Balance(txns []core.Transaction) core.Money {
	return Income(txns).Sub(Expenses(txns))
}

// ExpensesByCategory groups expense transactions by category id, in order of
// first appearance. Groups whose category no longer exists get the
// placeholder name and colour.
func ExpensesByCategory(txns []core.Transaction, categories []core.Category) []core.CategoryAmount {
	byID := make(map[string]core.Category, len(categories))
	for _, c := range categories {
		if _, seen := byID[c.ID]; !seen {
			byID[c.ID] = c
		}
	}

	index := make(map[string]int)
	var out []core.CategoryAmount
	for _, t := range txns {
		if t.Type != core.Expense {
			continue
		}
		i, ok := index[t.CategoryID]
		if !ok {
			entry := core.CategoryAmount{
				CategoryID: t.CategoryID,
				Name:       core.PlaceholderCategoryName,
				Color:      core.PlaceholderCategoryColor,
			}
			if c, found := byID[t.CategoryID]; found {
				entry.Name = c.Name
				entry.Color = c.Color
			}
			i = len(out)
			index[t.CategoryID] = i
			out = append(out, entry)
		}
		out[i].Amount = out[i].Amount.Add(t.Amount)
	}
	return out
}

// FindSavingsCategory returns the first expense-type category whose name is
// a savings name.
func FindSavingsCategory(categories []core.Category) (core.Category, bool) {
	for _, c := range categories {
		if c.Type == core.Expense && core.IsSavingsName(c.Name) {
			return c, true
		}
	}
	return core.Category{}, false
}

// SavingsAmount nets the savings category's flow: income entries add, expense
// entries subtract. It is zero when no savings category exists.
func SavingsAmount(txns []core.Transaction, categories []core.Category) core.Money {
	savings, ok := FindSavingsCategory(categories)
	if !ok {
		return core.Money{}
	}
	var net core.Money
	for _, t := range txns {
		if t.CategoryID != savings.ID {
			continue
		}
		switch t.Type {
		case core.Income:
			net = net.Add(t.Amount)
		case core.Expense:
			net = net.Sub(t.Amount)
		}
	}
	return net
}

// BuildMonthOverview assembles every aggregate for one user and month.
// categories should be the ones visible to the user, in creation order.
func BuildMonthOverview(all []core.Transaction, categories []core.Category, userID string, year, month int) core.MonthOverview {
	txns := TransactionsForMonth(all, userID, year, month)
	byCategory := ExpensesByCategory(txns, categories)
	if byCategory == nil {
		byCategory = []core.CategoryAmount{}
	}
	return core.MonthOverview{
		Year:       year,
		Month:      month,
		Income:     Income(txns),
		Expenses:   Expenses(txns),
		Balance:    Balance(txns),
		Savings:    SavingsAmount(txns, categories),
		ByCategory: byCategory,
	}
}

// SavingsGoalCloseRatio is the share of the goal from which progress counts as close.
const SavingsGoalCloseRatio = 0.7

// SavingsProgress compares saved against goal. Percent is capped at 100.
func SavingsProgress(saved, goal core.Money) core.SavingsProgress {
	p := core.SavingsProgress{Goal: goal, Saved: saved, Level: core.SavingsFar}
	if goal.Cents <= 0 {
		p.Percent = 100
		p.Level = core.SavingsReached
		return p
	}

	if remaining := goal.Sub(saved); remaining.Cents > 0 {
		p.Remaining = remaining
	}

	ratio, _ := saved.Decimal().Div(goal.Decimal()).Float64()
	p.Percent = min(max(ratio*100, 0), 100)

	switch {
	case saved.Cents >= goal.Cents:
		p.Level = core.SavingsReached
	case ratio >= SavingsGoalCloseRatio:
		p.Level = core.SavingsClose
	}
	return p
}
