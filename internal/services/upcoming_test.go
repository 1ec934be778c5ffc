package services

import (
	"testing"

	"ledger/internal/core"
)

func obligation(id, userID, due string, paid bool) core.ScheduledObligation {
	return core.ScheduledObligation{
		ID:          id,
		UserID:      userID,
		Amount:      core.Money{Cents: 15000},
		Description: "bill " + id,
		CategoryID:  "cat-3",
		DueDate:     core.MustParseDate(due),
		IsPaid:      paid,
	}
}

func TestDueSoon(t *testing.T) {
	today := core.MustParseDate("2024-03-10")

	tests := []struct {
		name    string
		ob      core.ScheduledObligation
		horizon int
		want    bool
	}{
		{"due today", obligation("a", "u1", "2024-03-10", false), 5, true},
		{"last day of window", obligation("b", "u1", "2024-03-15", false), 5, true},
		{"one day past window", obligation("c", "u1", "2024-03-16", false), 5, false},
		{"already paid", obligation("d", "u1", "2024-03-12", true), 5, false},
		{"overdue", obligation("e", "u1", "2024-03-09", false), 5, false},
		{"other user", obligation("f", "u2", "2024-03-11", false), 5, false},
		{"zero horizon today", obligation("g", "u1", "2024-03-10", false), 0, true},
		{"negative horizon tomorrow", obligation("h", "u1", "2024-03-11", false), -3, false},
		{"crosses month", obligation("i", "u1", "2024-04-01", false), 30, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DueSoon([]core.ScheduledObligation{tt.ob}, "u1", today, tt.horizon)
			if (len(got) == 1) != tt.want {
				t.Errorf("DueSoon included=%v, want %v", len(got) == 1, tt.want)
			}
		})
	}
}

func TestObligationsInMonth(t *testing.T) {
	obs := []core.ScheduledObligation{
		obligation("late", "u1", "2024-03-28", false),
		obligation("feb", "u1", "2024-02-28", false),
		obligation("early", "u1", "2024-03-01", true),
		obligation("other", "u2", "2024-03-05", false),
	}

	got := ObligationsInMonth(obs, "u1", 2024, 3)
	if len(got) != 2 {
		t.Fatalf("expected 2 obligations, got %d", len(got))
	}
	if got[0].ID != "early" || got[1].ID != "late" {
		t.Errorf("unexpected order: %s, %s", got[0].ID, got[1].ID)
	}
}
