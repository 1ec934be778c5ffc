package core

// CategoryAmount is the expense total of one category within a month.
type CategoryAmount struct {
	CategoryID string `json:"categoryId"`
	Name       string `json:"name"`
	Color      string `json:"color"`
	Amount     Money  `json:"amount"`
}

// MonthOverview is a compact summary for a specific user, year and month.
type MonthOverview struct {
	Year       int              `json:"year"`
	Month      int              `json:"month"` // 1-12
	Income     Money            `json:"income"`
	Expenses   Money            `json:"expenses"`
	Balance    Money            `json:"balance"`
	Savings    Money            `json:"savings"`
	ByCategory []CategoryAmount `json:"byCategory"`
}

// SavingsLevel buckets progress toward a savings goal.
type SavingsLevel string

const (
	SavingsReached SavingsLevel = "reached"
	SavingsClose   SavingsLevel = "close"
	SavingsFar     SavingsLevel = "far"
)

// SavingsProgress compares the month's savings against a goal.
type SavingsProgress struct {
	Goal      Money        `json:"goal"`
	Saved     Money        `json:"saved"`
	Remaining Money        `json:"remaining"`
	Percent   float64      `json:"percent"`
	Level     SavingsLevel `json:"level"`
}
