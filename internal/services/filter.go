package services

import (
	"fmt"
	"sort"
	"strings"

	"ledger/internal/core"
)

// SortOrder names a transaction list ordering.
type SortOrder string

const (
	SortDateDesc        SortOrder = "date-desc"
	SortDateAsc         SortOrder = "date-asc"
	SortDescriptionAsc  SortOrder = "description-asc"
	SortDescriptionDesc SortOrder = "description-desc"
	SortAmountDesc      SortOrder = "amount-desc"
	SortAmountAsc       SortOrder = "amount-asc"
)

// TransactionFilter selects and orders a transaction list.
type TransactionFilter struct {
	// Search matches description or category name, case-insensitively.
	Search string
	// Type is empty or "all" for both directions.
	Type string
	Sort SortOrder
}

// ParseSortOrder validates a sort order, defaulting to date-desc.
func ParseSortOrder(s string) (SortOrder, error) {
	switch o := SortOrder(s); o {
	case "":
		return SortDateDesc, nil
	case SortDateDesc, SortDateAsc, SortDescriptionAsc, SortDescriptionDesc, SortAmountDesc, SortAmountAsc:
		return o, nil
	default:
		return "", fmt.Errorf("unknown sort order %q", s)
	}
}

// FilterTransactions applies f to txns without modifying the input.
func FilterTransactions(txns []core.Transaction, categories []core.Category, f TransactionFilter) []core.Transaction {
	names := make(map[string]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}

	term := strings.ToLower(strings.TrimSpace(f.Search))
	out := make([]core.Transaction, 0, len(txns))
	for _, t := range txns {
		if f.Type != "" && f.Type != "all" && string(t.Type) != f.Type {
			continue
		}
		if term != "" &&
			!strings.Contains(strings.ToLower(t.Description), term) &&
			!strings.Contains(strings.ToLower(names[t.CategoryID]), term) {
			continue
		}
		out = append(out, t)
	}

	var less func(a, b core.Transaction) bool
	switch f.Sort {
	case SortDateAsc:
		less = func(a, b core.Transaction) bool { return a.Date.Before(b.Date) }
	case SortDescriptionAsc:
		less = func(a, b core.Transaction) bool { return strings.ToLower(a.Description) < strings.ToLower(b.Description) }
	case SortDescriptionDesc:
		less = func(a, b core.Transaction) bool { return strings.ToLower(a.Description) > strings.ToLower(b.Description) }
	case SortAmountDesc:
		less = func(a, b core.Transaction) bool { return a.Amount.Cents > b.Amount.Cents }
	case SortAmountAsc:
		less = func(a, b core.Transaction) bool { return a.Amount.Cents < b.Amount.Cents }
	default:
		less = func(a, b core.Transaction) bool { return a.Date.After(b.Date) }
	}
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}
