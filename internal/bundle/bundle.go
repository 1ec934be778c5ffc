// Package bundle reads and writes the ledger's JSON backup document.
//
// Export always writes the current shape. Import accepts the current shape
// and the legacy one: "category" instead of "categoryId", a
// "recurrence": "monthly" marker with a shared "recurrenceId" instead of
// isRecurring/parentId, numeric ids, and ISO timestamps where a bare
// calendar date is expected.
package bundle

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"ledger/internal/core"
)

// Document is the export shape.
type Document struct {
	User         ExportUser                 `json:"user"`
	Categories   []core.Category            `json:"categories"`
	Transactions []core.Transaction         `json:"transactions"`
	Scheduled    []core.ScheduledObligation `json:"scheduled"`
	ExportDate   time.Time                  `json:"exportDate"`
}

// ExportUser is a user without its auth secret.
type ExportUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Bundle is an import document after normalisation. Source ids are the ids
// used by the system that produced the file; they are only meaningful for
// remapping references inside the same bundle.
type Bundle struct {
	Categories   []Category
	Transactions []Transaction
	Scheduled    []Obligation
	// HasScheduled is false when the document carries no "scheduled" key,
	// in which case existing obligations must be left alone.
	HasScheduled bool
}

type Category struct {
	SourceID string
	Name     string
	Color    string
	Type     core.EntryType
}

type Transaction struct {
	SourceID        string
	Type            core.EntryType
	Amount          core.Money
	Description     string
	CategoryRef     string
	Date            core.Date
	IsRecurring     bool
	RecurringMonths int
	// ParentRef is the source id of the group's first instance.
	ParentRef string
	// Group is the legacy recurrenceId shared by every instance of a group.
	Group string
}

type Obligation struct {
	SourceID    string
	Amount      core.Money
	Description string
	CategoryRef string
	DueDate     core.Date
	IsPaid      bool
}

// Ref is an identifier that may arrive as a JSON string, number or null.
type Ref string

func (r *Ref) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*r = ""
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*r = Ref(s)
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("identifier must be a string or number: %s", b)
		}
		*r = Ref(n.String())
	}
	return nil
}

type rawDocument struct {
	Categories   []rawCategory    `json:"categories"`
	Transactions []rawTransaction `json:"transactions"`
	Scheduled    *[]rawObligation `json:"scheduled"`
}

type rawCategory struct {
	ID    Ref    `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
	Type  string `json:"type"`
}

type rawTransaction struct {
	ID              Ref        `json:"id"`
	Type            string     `json:"type"`
	Amount          core.Money `json:"amount"`
	Description     string     `json:"description"`
	Category        Ref        `json:"category"`
	CategoryID      Ref        `json:"categoryId"`
	Date            string     `json:"date"`
	IsRecurring     bool       `json:"isRecurring"`
	RecurringMonths *int       `json:"recurringMonths"`
	ParentID        Ref        `json:"parentId"`
	Recurrence      string     `json:"recurrence"`
	RecurrenceID    Ref        `json:"recurrenceId"`
}

type rawObligation struct {
	ID          Ref        `json:"id"`
	Amount      core.Money `json:"amount"`
	Description string     `json:"description"`
	Category    Ref        `json:"category"`
	CategoryID  Ref        `json:"categoryId"`
	DueDate     string     `json:"dueDate"`
	IsPaid      bool       `json:"isPaid"`
}

// Decode reads and normalises an import document.
func Decode(r io.Reader) (*Bundle, error) {
	var raw rawDocument
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode import document: %w", err)
	}
	return normalise(raw)
}

// DecodeBytes is Decode over an in-memory document.
func DecodeBytes(data []byte) (*Bundle, error) {
	return Decode(bytes.NewReader(data))
}

// calendarDate strips any time component before parsing, so
// "2024-01-31T23:00:00.000Z" stays on the 31st.
func calendarDate(s string) (core.Date, error) {
	if i := strings.IndexByte(s, 'T'); i >= 0 {
		s = s[:i]
	}
	return core.ParseDate(strings.TrimSpace(s))
}

func entryType(s string) (core.EntryType, error) {
	t := core.EntryType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", core.ErrInvalidType, s)
	}
	return t, nil
}

func magnitude(m core.Money) core.Money {
	if m.Cents < 0 {
		return core.Money{Cents: -m.Cents}
	}
	return m
}

// firstRef returns the legacy field when set, else the current one.
func firstRef(legacy, current Ref) string {
	if legacy != "" {
		return string(legacy)
	}
	return string(current)
}

func normalise(raw rawDocument) (*Bundle, error) {
	b := &Bundle{HasScheduled: raw.Scheduled != nil}

	for i, rc := range raw.Categories {
		name := strings.TrimSpace(rc.Name)
		if name == "" {
			return nil, fmt.Errorf("category %d: %w", i, core.ErrEmptyName)
		}
		typ, err := entryType(rc.Type)
		if err != nil {
			return nil, fmt.Errorf("category %d: %w", i, err)
		}
		color := rc.Color
		if color == "" {
			color = core.PaletteColor(i)
		}
		b.Categories = append(b.Categories, Category{
			SourceID: string(rc.ID),
			Name:     name,
			Color:    color,
			Type:     typ,
		})
	}

	groupSize := make(map[Ref]int)
	for _, rt := range raw.Transactions {
		if rt.RecurrenceID != "" {
			groupSize[rt.RecurrenceID]++
		}
	}

	for i, rt := range raw.Transactions {
		typ, err := entryType(rt.Type)
		if err != nil {
			return nil, fmt.Errorf("transaction %d: %w", i, err)
		}
		date, err := calendarDate(rt.Date)
		if err != nil {
			return nil, fmt.Errorf("transaction %d: %w", i, err)
		}

		t := Transaction{
			SourceID:    string(rt.ID),
			Type:        typ,
			Amount:      magnitude(rt.Amount),
			Description: rt.Description,
			CategoryRef: firstRef(rt.Category, rt.CategoryID),
			Date:        date,
			IsRecurring: rt.IsRecurring,
			ParentRef:   string(rt.ParentID),
		}
		if rt.RecurringMonths != nil && *rt.RecurringMonths > 0 {
			t.RecurringMonths = *rt.RecurringMonths
		}

		if strings.EqualFold(rt.Recurrence, "monthly") {
			t.IsRecurring = true
			t.ParentRef = ""
			if rt.RecurrenceID != "" {
				t.Group = string(rt.RecurrenceID)
				t.RecurringMonths = groupSize[rt.RecurrenceID]
			}
		}
		b.Transactions = append(b.Transactions, t)
	}

	if raw.Scheduled != nil {
		for i, ro := range *raw.Scheduled {
			due, err := calendarDate(ro.DueDate)
			if err != nil {
				return nil, fmt.Errorf("scheduled %d: %w", i, err)
			}
			b.Scheduled = append(b.Scheduled, Obligation{
				SourceID:    string(ro.ID),
				Amount:      magnitude(ro.Amount),
				Description: ro.Description,
				CategoryRef: firstRef(ro.Category, ro.CategoryID),
				DueDate:     due,
				IsPaid:      ro.IsPaid,
			})
		}
	}

	return b, nil
}

// Encode writes doc as indented JSON.
func Encode(w io.Writer, doc Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode export document: %w", err)
	}
	return nil
}

// Marshal is Encode into a byte slice.
func Marshal(doc Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BackupFileName names a backup taken at now.
func BackupFileName(now time.Time) string {
	return "finance-backup-" + now.Format("2006-01-02_150405") + ".json"
}
