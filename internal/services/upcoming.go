package services

import (
	"sort"

	"ledger/internal/core"
)

// DefaultHorizonDays is how far ahead DueSoon looks when not configured.
const DefaultHorizonDays = 5

// DueSoon returns the unpaid obligations of userID due within
// [today, today+horizonDays], both ends inclusive. The result only feeds
// warnings; payment logic never relies on it.
func DueSoon(obligations []core.ScheduledObligation, userID string, today core.Date, horizonDays int) []core.ScheduledObligation {
	if horizonDays < 0 {
		horizonDays = 0
	}
	limit := today.AddDays(horizonDays)

	var out []core.ScheduledObligation
	for _, o := range obligations {
		if o.UserID != userID || o.IsPaid {
			continue
		}
		if o.DueDate.Before(today) || o.DueDate.After(limit) {
			continue
		}
		out = append(out, o)
	}
	return out
}

// ObligationsInMonth returns the obligations of userID due in the month,
// ordered by due date.
func ObligationsInMonth(obligations []core.ScheduledObligation, userID string, year, month int) []core.ScheduledObligation {
	key := core.MonthKey{Year: year, Month: month}
	var out []core.ScheduledObligation
	for _, o := range obligations {
		if o.UserID == userID && key.Contains(o.DueDate) {
			out = append(out, o)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DueDate.Before(out[j].DueDate)
	})
	return out
}
