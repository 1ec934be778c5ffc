package core

// ObligationDue announces an unpaid obligation entering the due-soon window.
type ObligationDue struct {
	UserID       string `json:"userId"`
	ObligationID string `json:"obligationId"`
	Description  string `json:"description"`
	CategoryID   string `json:"categoryId"`
	Amount       Money  `json:"amount"`
	DueDate      Date   `json:"dueDate"`
	DaysLeft     int    `json:"daysLeft"`
}

// ImportCompleted reports a committed import.
type ImportCompleted struct {
	UserID               string `json:"userId"`
	TransactionsImported int    `json:"transactionsImported"`
	ObligationsImported  int    `json:"obligationsImported"`
	NewCategoriesCreated int    `json:"newCategoriesCreated"`
	Warnings             int    `json:"warnings"`
}
