package google

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"ledger/internal/core"

	goption "google.golang.org/api/option"
)

type fakeSheets struct {
	mu       sync.Mutex
	appended [][]any
	paths    []string
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paths = append(f.paths, r.URL.Path)
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, ":append"):
		var body struct {
			Values [][]any `json:"values"`
		}
		data, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(data, &body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.appended = append(f.appended, body.Values...)
		json.NewEncoder(w).Encode(map[string]any{
			"updates": map[string]any{"updatedRange": "'2024 Summary'!A2:H3"},
		})
	case r.Method == http.MethodGet:
		json.NewEncoder(w).Encode(map[string]any{"values": f.appended})
	default:
		http.NotFound(w, r)
	}
}

func newFakeClient(t *testing.T) (*Client, *fakeSheets) {
	t.Helper()
	fake := &fakeSheets{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	c, err := New(context.Background(), Config{SpreadsheetID: "sheet-id"},
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c, fake
}

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Config{})
	if err == nil || err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNew_MissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	_, err := New(context.Background(), Config{SpreadsheetID: "x"})
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNew_UnreadableCredentialsFile(t *testing.T) {
	_, err := New(context.Background(), Config{SpreadsheetID: "x", ServiceAccountFile: "/nonexistent/sa.json"})
	if err == nil || !strings.Contains(err.Error(), "read service account file") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestClient_WriteAndReadMonthOverview(t *testing.T) {
	c, fake := newFakeClient(t)
	ctx := context.Background()

	o := core.MonthOverview{
		Year:     2024,
		Month:    3,
		Income:   core.Money{Cents: 500000},
		Expenses: core.Money{Cents: 120000},
		Balance:  core.Money{Cents: 380000},
		ByCategory: []core.CategoryAmount{
			{CategoryID: "cat-3", Name: "Moradia", Amount: core.Money{Cents: 120000}},
		},
	}

	ref, err := c.WriteMonthOverview(ctx, "u1", o)
	if err != nil {
		t.Fatalf("WriteMonthOverview: %v", err)
	}
	if ref != "'2024 Summary'!A2:H3" {
		t.Errorf("unexpected ref %q", ref)
	}
	if len(fake.appended) != 2 {
		t.Fatalf("expected 2 rows appended, got %d", len(fake.appended))
	}
	if !strings.Contains(fake.paths[0], "2024 Summary") {
		t.Errorf("expected year-prefixed tab in path %q", fake.paths[0])
	}

	got, err := c.ReadMonthOverview(ctx, "u1", 2024, 3)
	if err != nil {
		t.Fatalf("ReadMonthOverview: %v", err)
	}
	if got.Income != o.Income || got.Balance != o.Balance {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if len(got.ByCategory) != 1 || got.ByCategory[0].Name != "Moradia" {
		t.Errorf("unexpected breakdown: %+v", got.ByCategory)
	}
}

func TestClient_RejectsInvalidMonth(t *testing.T) {
	c, _ := newFakeClient(t)
	if _, err := c.WriteMonthOverview(context.Background(), "u1", core.MonthOverview{Year: 2024, Month: 13}); err == nil {
		t.Error("expected error for month 13")
	}
	if _, err := c.ReadMonthOverview(context.Background(), "u1", 2024, 0); err == nil {
		t.Error("expected error for month 0")
	}
}

func TestClient_NilService(t *testing.T) {
	c := &Client{spreadsheetID: "test"}
	if _, err := c.WriteMonthOverview(context.Background(), "u1", core.MonthOverview{Year: 2024, Month: 1}); err == nil {
		t.Error("expected error with nil service")
	}
}

func TestYearPrefixedName(t *testing.T) {
	tests := []struct {
		base string
		year int
		want string
	}{
		{"Summary", 2024, "2024 Summary"},
		{"2023 Summary", 2024, "2023 Summary"},
		{"  Totals  ", 2025, "2025 Totals"},
		{"", 2024, ""},
		{"12345", 2024, "2024 12345"},
	}
	for _, tt := range tests {
		if got := yearPrefixedName(tt.base, tt.year); got != tt.want {
			t.Errorf("yearPrefixedName(%q, %d) = %q, want %q", tt.base, tt.year, got, tt.want)
		}
	}
}
