package services

import "ledger/internal/core"

// IDGenerator returns a fresh, collision-resistant identifier.
type IDGenerator func() string

// repeatCount normalises a requested repetition: anything below one means
// a single entry.
func repeatCount(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

// ExpandTransaction produces max(repeat, 1) copies of tmpl spaced one calendar
// month apart. Instance 0 is the original: it keeps tmpl.ID (or gets a fresh
// id when empty) and has no parent. Every later instance gets a fresh id and
// points back at instance 0.
func ExpandTransaction(tmpl core.Transaction, repeat int, newID IDGenerator) []core.Transaction {
	n := repeatCount(repeat)
	out := make([]core.Transaction, n)

	first := tmpl
	if first.ID == "" {
		first.ID = newID()
	}
	first.ParentID = ""
	out[0] = first

	for i := 1; i < n; i++ {
		inst := tmpl
		inst.ID = newID()
		inst.ParentID = first.ID
		inst.Date = tmpl.Date.AddMonths(i)
		out[i] = inst
	}
	return out
}

// ExpandObligation produces max(repeat, 1) independent unpaid obligations,
// each with its own fresh id, due one calendar month apart.
func ExpandObligation(tmpl core.ScheduledObligation, repeat int, newID IDGenerator) []core.ScheduledObligation {
	n := repeatCount(repeat)
	out := make([]core.ScheduledObligation, n)
	for i := range n {
		inst := tmpl
		inst.ID = newID()
		inst.IsPaid = false
		inst.DueDate = tmpl.DueDate.AddMonths(i)
		out[i] = inst
	}
	return out
}
