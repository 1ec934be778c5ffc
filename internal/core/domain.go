package core

import (
	"errors"
	"strings"
)

const (
	Income  EntryType = "income"
	Expense EntryType = "expense"
)

type (
	// EntryType is the direction of money flow for a transaction or category.
	EntryType string

	User struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
		// AuthSecret holds the hashed secret; it never leaves the process.
		AuthSecret string `json:"-"`
	}

	Category struct {
		ID    string    `json:"id"`
		Name  string    `json:"name"`
		Color string    `json:"color"`
		Type  EntryType `json:"type"`
		// OwnerID is empty for shared categories visible to every user.
		OwnerID string `json:"ownerId,omitempty"`
	}

	Transaction struct {
		ID              string    `json:"id"`
		UserID          string    `json:"userId"`
		Type            EntryType `json:"type"`
		Amount          Money     `json:"amount"`
		Description     string    `json:"description"`
		CategoryID      string    `json:"categoryId"`
		Date            Date      `json:"date"`
		IsRecurring     bool      `json:"isRecurring"`
		RecurringMonths int       `json:"recurringMonths,omitempty"`
		// ParentID points at the first instance of the recurrence group.
		ParentID string `json:"parentId,omitempty"`
	}

	ScheduledObligation struct {
		ID          string `json:"id"`
		UserID      string `json:"userId"`
		Amount      Money  `json:"amount"`
		Description string `json:"description"`
		CategoryID  string `json:"categoryId"`
		DueDate     Date   `json:"dueDate"`
		IsPaid      bool   `json:"isPaid"`
	}
)

var (
	ErrInvalidType      = errors.New("invalid entry type")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyName        = errors.New("empty name")
	ErrEmptyCategory    = errors.New("empty category reference")
	ErrEmptyUser        = errors.New("empty user reference")
	ErrInvalidEmail     = errors.New("invalid email")
	ErrInvalidMonths    = errors.New("recurring months must be at least 1")
	ErrDescriptionLong  = errors.New("description too long (max 200 characters)")
)

func (t EntryType) Valid() bool {
	return t == Income || t == Expense
}

// IsShared reports whether the category belongs to no particular user.
func (c Category) IsShared() bool {
	return c.OwnerID == ""
}

// VisibleTo reports whether userID may use the category.
func (c Category) VisibleTo(userID string) bool {
	return c.IsShared() || c.OwnerID == userID
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if !c.Type.Valid() {
		return ErrInvalidType
	}
	return nil
}

func (u User) Validate() error {
	if strings.TrimSpace(u.Name) == "" {
		return ErrEmptyName
	}
	if !strings.Contains(u.Email, "@") || strings.TrimSpace(u.Email) != u.Email {
		return ErrInvalidEmail
	}
	return nil
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.UserID) == "" {
		return ErrEmptyUser
	}
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(t.Description) == "" {
		return ErrEmptyDescription
	}
	if len(t.Description) > 200 {
		return ErrDescriptionLong
	}
	if strings.TrimSpace(t.CategoryID) == "" {
		return ErrEmptyCategory
	}
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if t.IsRecurring && t.RecurringMonths < 0 {
		return ErrInvalidMonths
	}
	return nil
}

func (o ScheduledObligation) Validate() error {
	if strings.TrimSpace(o.UserID) == "" {
		return ErrEmptyUser
	}
	if err := o.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(o.Description) == "" {
		return ErrEmptyDescription
	}
	if len(o.Description) > 200 {
		return ErrDescriptionLong
	}
	if strings.TrimSpace(o.CategoryID) == "" {
		return ErrEmptyCategory
	}
	return o.DueDate.Validate()
}
