package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"ledger/internal/core"
	applog "ledger/internal/log"
	ports "ledger/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// DefaultSummarySheet is the tab base name; the year is prefixed.
const DefaultSummarySheet = "Summary"

// Column layout of a summary tab. A total row leaves the category columns
// empty; each expense category of the month gets its own row below it.
const (
	colUser = iota
	colMonth
	colIncome
	colExpenses
	colBalance
	colSavings
	colCategory
	colCategoryAmount
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	summaryBase   string
	logger        *applog.Logger
}

// Ensure interface conformance
var (
	_ ports.SummaryWriter = (*Client)(nil)
	_ ports.SummaryReader = (*Client)(nil)
)

// Config selects the spreadsheet and the service account credentials.
// When neither ServiceAccountJSON nor ServiceAccountFile is set,
// GOOGLE_APPLICATION_CREDENTIALS is consulted.
type Config struct {
	SpreadsheetID      string
	SummarySheetName   string
	ServiceAccountJSON string
	ServiceAccountFile string
}

func New(ctx context.Context, cfg Config, opts ...goption.ClientOption) (*Client, error) {
	spreadsheetID := strings.TrimSpace(cfg.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	base := strings.TrimSpace(cfg.SummarySheetName)
	if base == "" {
		base = DefaultSummarySheet
	}

	if len(opts) == 0 {
		creds, err := credentialsJSON(cfg)
		if err != nil {
			return nil, err
		}
		opts = []goption.ClientOption{
			goption.WithCredentialsJSON(creds),
			goption.WithScopes(gsheet.SpreadsheetsScope),
		}
	}

	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		summaryBase:   base,
		logger:        applog.Default(applog.ComponentSheets),
	}, nil
}

func credentialsJSON(cfg Config) ([]byte, error) {
	inline := strings.TrimSpace(cfg.ServiceAccountJSON)
	file := strings.TrimSpace(cfg.ServiceAccountFile)
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case inline != "":
		return []byte(inline), nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return data, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// WriteMonthOverview appends the total row and one row per expense category.
func (c *Client) WriteMonthOverview(ctx context.Context, userID string, o core.MonthOverview) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	if err := (core.MonthKey{Year: o.Year, Month: o.Month}).Validate(); err != nil {
		return "", err
	}

	sheet := yearPrefixedName(c.summaryBase, o.Year)
	vr := &gsheet.ValueRange{Values: summaryRows(userID, o)}
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, sheet+"!A:H", vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to %s: %w", sheet, err)
	}

	ref := sheet
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		ref = resp.Updates.UpdatedRange
	}
	c.logger.InfoContext(ctx, "Month overview written to sheet",
		applog.FieldUserID, userID, applog.FieldYear, o.Year, applog.FieldMonth, o.Month, "range", ref)
	return ref, nil
}

// ReadMonthOverview scans the year's summary tab for the user and month.
func (c *Client) ReadMonthOverview(ctx context.Context, userID string, year, month int) (core.MonthOverview, error) {
	if c.svc == nil {
		return core.MonthOverview{}, errors.New("sheets service not initialized")
	}
	if err := (core.MonthKey{Year: year, Month: month}).Validate(); err != nil {
		return core.MonthOverview{}, err
	}

	rng := yearPrefixedName(c.summaryBase, year) + "!A:H"
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return core.MonthOverview{}, fmt.Errorf("read %s: %w", rng, err)
	}
	return parseSummary(resp.Values, userID, year, month)
}

func summaryRows(userID string, o core.MonthOverview) [][]any {
	key := core.MonthKey{Year: o.Year, Month: o.Month}.String()
	rows := make([][]any, 0, 1+len(o.ByCategory))
	rows = append(rows, []any{
		userID, key,
		o.Income.String(), o.Expenses.String(), o.Balance.String(), o.Savings.String(),
		"", "",
	})
	for _, ca := range o.ByCategory {
		rows = append(rows, []any{userID, key, "", "", "", "", ca.Name, ca.Amount.String()})
	}
	return rows
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
