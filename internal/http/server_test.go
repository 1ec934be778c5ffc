package http

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"ledger/internal/backup"
	"ledger/internal/bundle"
	"ledger/internal/core"
	applog "ledger/internal/log"
	"ledger/internal/services"
	"ledger/internal/sheets/memory"
	"ledger/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testAPI struct {
	t      *testing.T
	srv    *Server
	sheets *memory.Store
}

func newTestAPI(t *testing.T, deps Deps) *testAPI {
	t.Helper()
	store := storage.NewMemoryStore()
	clock := func() time.Time { return time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC) }
	if deps.Ledger == nil {
		deps.Ledger = services.NewLedgerService(store, services.WithClock(clock))
	}
	if deps.Users == nil {
		deps.Users = services.NewUserService(store)
	}
	if deps.DueSoonDays == 0 {
		deps.DueSoonDays = 5
	}
	if deps.WritesPerMinute == 0 {
		deps.WritesPerMinute = 1000
	}
	deps.Logger = applog.New(applog.Config{Level: slog.LevelError, Format: "text", Component: applog.ComponentHTTP, Output: io.Discard})

	srv := NewServer(":0", deps)
	t.Cleanup(srv.limiter.Stop)
	return &testAPI{t: t, srv: srv}
}

func newFullTestAPI(t *testing.T) (*testAPI, string) {
	t.Helper()
	sheets := memory.New()
	dir := t.TempDir()
	api := newTestAPI(t, Deps{Sheets: sheets, Backups: backup.NewDirSink(dir)})
	api.sheets = sheets
	return api, dir
}

func (a *testAPI) do(method, path, body string) *httptest.ResponseRecorder {
	a.t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	a.srv.Handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (a *testAPI) signup(name, email string) core.User {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/signup", `{"name":"`+name+`","email":"`+email+`","secret":"hunter22"}`)
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[core.User](a.t, rec)
}

func TestHealthAndReadiness(t *testing.T) {
	api := newTestAPI(t, Deps{})

	rec := api.do(http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = api.do(http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	rec = api.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"totalRequests"`)
}

func TestUnknownRouteIsJSON404(t *testing.T) {
	api := newTestAPI(t, Deps{})
	rec := api.do(http.MethodGet, "/nowhere", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"error"`)

	rec = api.do(http.MethodGet, "/users/ghost/transactions", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUserLifecycle(t *testing.T) {
	api := newTestAPI(t, Deps{})
	u := api.signup("Ana", "ana@example.com")
	assert.NotEmpty(t, u.ID)
	assert.NotContains(t, api.do(http.MethodGet, "/users/"+u.ID, "").Body.String(), "hunter22")

	rec := api.do(http.MethodPost, "/signup", `{"name":"Ana","email":"ana@example.com","secret":"hunter22"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = api.do(http.MethodPost, "/signup", `{"name":"Bo","email":"bo@example.com","secret":"123"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodPost, "/auth", `{"email":"ana@example.com","secret":"wrong-one"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(http.MethodPost, "/auth", `{"email":"ana@example.com","secret":"hunter22"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, u.ID, decode[core.User](t, rec).ID)

	rec = api.do(http.MethodPost, "/auth/reset", `{"email":"ana@example.com","secret":"newsecret","confirm":"different"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodPost, "/auth/reset", `{"email":"ana@example.com","secret":"newsecret","confirm":"newsecret"}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = api.do(http.MethodPost, "/auth", `{"email":"ana@example.com","secret":"newsecret"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCategories(t *testing.T) {
	api := newTestAPI(t, Deps{})
	u := api.signup("Ana", "ana@example.com")
	base := "/users/" + u.ID + "/categories"

	rec := api.do(http.MethodGet, base, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]core.Category](t, rec), len(core.DefaultCategories))

	rec = api.do(http.MethodPost, base, `{"name":"Pets","color":"#000000","type":"expense"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	pets := decode[core.Category](t, rec)
	assert.Equal(t, u.ID, pets.OwnerID)

	rec = api.do(http.MethodPut, base+"/"+pets.ID, `{"name":"Animals","color":"#111111","type":"expense"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Animals", decode[core.Category](t, rec).Name)

	other := api.signup("Bo", "bo@example.com")
	rec = api.do(http.MethodDelete, "/users/"+other.ID+"/categories/"+pets.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code, "private categories are invisible to others")

	rec = api.do(http.MethodPost, "/users/"+u.ID+"/transactions",
		`{"type":"expense","amount":5,"description":"Food","categoryId":"`+pets.ID+`","date":"2024-03-01"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = api.do(http.MethodDelete, base+"/"+pets.ID, "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = api.do(http.MethodPost, base, `{"name":"","type":"expense"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTransactions(t *testing.T) {
	api := newTestAPI(t, Deps{})
	u := api.signup("Ana", "ana@example.com")
	base := "/users/" + u.ID + "/transactions"

	rec := api.do(http.MethodPost, base,
		`{"type":"income","amount":1000,"description":"Salary","categoryId":"cat-7","date":"2024-01-31","isRecurring":true,"recurringMonths":3}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	salary := decode[[]core.Transaction](t, rec)
	require.Len(t, salary, 3)
	for _, inst := range salary[1:] {
		assert.Equal(t, salary[0].ID, inst.ParentID)
	}

	rec = api.do(http.MethodPost, base,
		`{"type":"expense","amount":"12,50","description":"Lunch","categoryId":"cat-1","date":"2024-03-05"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	lunch := decode[[]core.Transaction](t, rec)[0]
	assert.Equal(t, int64(1250), lunch.Amount.Cents)

	rec = api.do(http.MethodGet, base+"?type=expense", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]core.Transaction](t, rec), 1)

	rec = api.do(http.MethodGet, base+"?search=salary&sort=date-asc", "")
	require.Equal(t, http.StatusOK, rec.Code)
	listed := decode[[]core.Transaction](t, rec)
	require.Len(t, listed, 3)
	assert.Equal(t, salary[0].ID, listed[0].ID)

	rec = api.do(http.MethodGet, base+"?sort=sideways", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodPut, base+"/"+lunch.ID,
		`{"type":"expense","amount":14,"description":"Lunch out","categoryId":"cat-1","date":"2024-03-05"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, int64(1400), decode[core.Transaction](t, rec).Amount.Cents)

	other := api.signup("Bo", "bo@example.com")
	rec = api.do(http.MethodGet, "/users/"+other.ID+"/transactions/"+lunch.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = api.do(http.MethodDelete, "/users/"+other.ID+"/transactions/"+lunch.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(http.MethodPost, base, `{"type":"expense","amount":1,"description":"x","categoryId":"cat-1","date":"05/03/2024"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = api.do(http.MethodPost, base, `{"type":"expense","amount":1,"description":"x","categoryId":"nope","date":"2024-03-05"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = api.do(http.MethodPost, base, `{"type":"expense","amount":1,"description":"x","categoryId":"cat-1","date":"2024-03-05","bogus":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodDelete, base+"/"+lunch.ID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = api.do(http.MethodGet, base+"/"+lunch.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestObligationsAndPayment(t *testing.T) {
	api := newTestAPI(t, Deps{})
	u := api.signup("Ana", "ana@example.com")
	base := "/users/" + u.ID + "/obligations"

	rec := api.do(http.MethodPost, base, `{"amount":80,"description":"Rent","categoryId":"cat-3","dueDate":"2024-03-12","months":2}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rent := decode[[]core.ScheduledObligation](t, rec)
	require.Len(t, rent, 2)
	assert.Equal(t, core.NewDate(2024, 4, 12), rent[1].DueDate)

	rec = api.do(http.MethodPost, base, `{"amount":80,"description":"Bonus","categoryId":"cat-7","dueDate":"2024-03-12"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "obligations need an expense category")

	rec = api.do(http.MethodGet, base+"?year=2024&month=3", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]core.ScheduledObligation](t, rec), 1)

	rec = api.do(http.MethodGet, base+"/due-soon", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]core.ScheduledObligation](t, rec), 1)

	rec = api.do(http.MethodGet, base+"/due-soon?days=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]core.ScheduledObligation](t, rec))

	rec = api.do(http.MethodPost, base+"/"+rent[0].ID+"/pay", "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	paid := decode[core.Transaction](t, rec)
	assert.Equal(t, core.Expense, paid.Type)
	assert.Equal(t, core.NewDate(2024, 3, 10), paid.Date)
	assert.Equal(t, int64(8000), paid.Amount.Cents)

	rec = api.do(http.MethodPost, base+"/"+rent[0].ID+"/pay", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = api.do(http.MethodGet, base+"/"+rent[0].ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[core.ScheduledObligation](t, rec).IsPaid)

	rec = api.do(http.MethodPut, base+"/"+rent[1].ID, `{"amount":80,"description":"Rent","categoryId":"cat-3","dueDate":"2024-04-12","isPaid":true}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "paid flag is not editable")

	rec = api.do(http.MethodPut, base+"/"+rent[0].ID, `{"amount":85,"description":"Rent March","categoryId":"cat-3","dueDate":"2024-03-12"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	edited := decode[core.ScheduledObligation](t, rec)
	assert.True(t, edited.IsPaid, "editing a paid obligation keeps it paid")
	assert.Equal(t, "Rent March", edited.Description)

	other := api.signup("Bo", "bo@example.com")
	rec = api.do(http.MethodPost, "/users/"+other.ID+"/obligations/"+rent[1].ID+"/pay", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(http.MethodDelete, base+"/"+rent[1].ID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestSummary(t *testing.T) {
	api, _ := newFullTestAPI(t)
	u := api.signup("Ana", "ana@example.com")
	tx := "/users/" + u.ID + "/transactions"
	for _, body := range []string{
		`{"type":"income","amount":1000,"description":"Salary","categoryId":"cat-7","date":"2024-03-01"}`,
		`{"type":"expense","amount":250.5,"description":"Groceries","categoryId":"cat-1","date":"2024-03-02"}`,
		`{"type":"expense","amount":40,"description":"Bus","categoryId":"cat-2","date":"2024-04-02"}`,
	} {
		require.Equal(t, http.StatusCreated, api.do(http.MethodPost, tx, body).Code)
	}
	base := "/users/" + u.ID + "/summary/2024"

	rec := api.do(http.MethodGet, base+"/3", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	march := decode[core.MonthOverview](t, rec)
	assert.Equal(t, int64(100000), march.Income.Cents)
	assert.Equal(t, int64(25050), march.Expenses.Cents)
	assert.Equal(t, int64(74950), march.Balance.Cents)

	rec = api.do(http.MethodGet, base, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	year := decode[[]core.MonthOverview](t, rec)
	require.Len(t, year, 12)
	assert.Equal(t, int64(4000), year[3].Expenses.Cents)

	rec = api.do(http.MethodGet, base+"/13", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodGet, base+"/3/savings?goal=500", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, int64(50000), decode[core.SavingsProgress](t, rec).Goal.Cents)

	rec = api.do(http.MethodGet, base+"/3/savings", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodPost, base+"/3/push", "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"ref"`)
	assert.Equal(t, 1, api.sheets.Writes())
}

func TestSummaryPushWithoutSheet(t *testing.T) {
	api := newTestAPI(t, Deps{})
	u := api.signup("Ana", "ana@example.com")
	rec := api.do(http.MethodPost, "/users/"+u.ID+"/summary/2024/3/push", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestExportImportAndBackup(t *testing.T) {
	api, dir := newFullTestAPI(t)
	u := api.signup("Ana", "ana@example.com")
	rec := api.do(http.MethodPost, "/users/"+u.ID+"/transactions",
		`{"type":"expense","amount":9.9,"description":"Cinema","categoryId":"cat-4","date":"2024-03-09"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = api.do(http.MethodGet, "/users/"+u.ID+"/export", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "finance-backup-")
	doc := decode[bundle.Document](t, rec)
	assert.Equal(t, u.Email, doc.User.Email)
	require.Len(t, doc.Transactions, 1)

	other := api.signup("Bo", "bo@example.com")
	rec = api.do(http.MethodPost, "/users/"+other.ID+"/import", rec.Body.String())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	summary := decode[services.ImportSummary](t, rec)
	assert.Equal(t, 1, summary.TransactionsImported)

	rec = api.do(http.MethodGet, "/users/"+other.ID+"/transactions", "")
	imported := decode[[]core.Transaction](t, rec)
	require.Len(t, imported, 1)
	assert.Equal(t, "Cinema", imported[0].Description)
	assert.Equal(t, other.ID, imported[0].UserID)

	rec = api.do(http.MethodPost, "/users/"+other.ID+"/import", `{"transactions": [`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = api.do(http.MethodPost, "/users/"+u.ID+"/backup", "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	location := decode[map[string]string](t, rec)["location"]
	assert.True(t, strings.HasPrefix(location, dir))
	_, err := os.Stat(location)
	assert.NoError(t, err)
}

func TestWritesAreRateLimited(t *testing.T) {
	api := newTestAPI(t, Deps{WritesPerMinute: 2})
	for i := 0; i < 2; i++ {
		api.do(http.MethodPost, "/auth", `{"email":"x@example.com","secret":"whatever"}`)
	}
	rec := api.do(http.MethodPost, "/auth", `{"email":"x@example.com","secret":"whatever"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, api.do(http.MethodGet, "/healthz", "").Code)
}
