package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"ledger/internal/core"
	"ledger/internal/services"

	"github.com/go-chi/chi/v5"
)

const (
	maxBodyBytes   = 1 << 20
	maxImportBytes = 16 << 20
)

// errBadRequest marks malformed input that never reached a service.
var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// MonthParams holds parsed year/month values from request parameters.
type MonthParams struct {
	Year  int
	Month int
}

// ParseMonthParams reads year and month from the route. Month is optional
// and zero when the route has none.
func ParseMonthParams(r *http.Request) (MonthParams, error) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		return MonthParams{}, fmt.Errorf("%w: %q", core.ErrInvalidYear, chi.URLParam(r, "year"))
	}
	p := MonthParams{Year: year}
	if raw := chi.URLParam(r, "month"); raw != "" {
		if p.Month, err = strconv.Atoi(raw); err != nil {
			return MonthParams{}, fmt.Errorf("%w: %q", core.ErrInvalidMonth, raw)
		}
	}
	return p, nil
}

// ParseMonthQuery reads optional year and month query parameters, falling
// back to the month of today.
func ParseMonthQuery(query url.Values, today core.Date) (MonthParams, error) {
	p := MonthParams{Year: today.Year(), Month: today.Month()}
	if v := strings.TrimSpace(query.Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil {
			return MonthParams{}, fmt.Errorf("%w: %q", core.ErrInvalidYear, v)
		}
		p.Year = y
	}
	if v := strings.TrimSpace(query.Get("month")); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil {
			return MonthParams{}, fmt.Errorf("%w: %q", core.ErrInvalidMonth, v)
		}
		p.Month = m
	}
	return p, nil
}

// ParseTransactionFilter reads search, type and sort query parameters.
func ParseTransactionFilter(query url.Values) (services.TransactionFilter, error) {
	f := services.TransactionFilter{
		Search: sanitizeInput(query.Get("search")),
		Type:   strings.TrimSpace(query.Get("type")),
	}
	switch f.Type {
	case "", "all", string(core.Income), string(core.Expense):
	default:
		return services.TransactionFilter{}, fmt.Errorf("%w: %q", core.ErrInvalidType, f.Type)
	}
	sort, err := services.ParseSortOrder(strings.TrimSpace(query.Get("sort")))
	if err != nil {
		return services.TransactionFilter{}, badRequest("%v", err)
	}
	f.Sort = sort
	return f, nil
}

// parseNonNegativeInt reads an optional integer query parameter.
func parseNonNegativeInt(query url.Values, key string, def int) (int, error) {
	v := strings.TrimSpace(query.Get(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, badRequest("%s must be a non-negative integer", key)
	}
	return n, nil
}

// decodeJSON reads one JSON object from the body into dst, rejecting
// unknown fields and trailing data.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return badRequest("request body too large")
		case errors.Is(err, io.EOF):
			return badRequest("request body is empty")
		case errors.Is(err, core.ErrInvalidAmount), errors.Is(err, core.ErrMalformedDate):
			return err
		default:
			return badRequest("malformed JSON: %v", err)
		}
	}
	if dec.More() {
		return badRequest("request body must hold a single JSON object")
	}
	return nil
}

// sanitizeInput removes control characters except tab, newline and
// carriage return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
