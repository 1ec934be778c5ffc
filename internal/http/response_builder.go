package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"ledger/internal/core"
	applog "ledger/internal/log"
	"ledger/internal/middleware/trace"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	body       any
	headers    map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value encoded as the response body.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Write sends the built response. A nil body writes headers only.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	_ = json.NewEncoder(w).Encode(b.body)
}

// errorBody is the shape of every error response.
type errorBody struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}

// ErrorResponse creates a standard error response.
func ErrorResponse(ctx context.Context, statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(statusCode).
		Body(errorBody{Error: message, RequestID: trace.GetRequestID(ctx)})
}

// BadRequestError creates a 400 Bad Request error response.
func BadRequestError(ctx context.Context, message string) *JSONResponseBuilder {
	return ErrorResponse(ctx, http.StatusBadRequest, message)
}

// NotFoundError creates a 404 Not Found error response.
func NotFoundError(ctx context.Context, message string) *JSONResponseBuilder {
	return ErrorResponse(ctx, http.StatusNotFound, message)
}

// validationErrors are caller mistakes reported as 400.
var validationErrors = []error{
	core.ErrInvalidType,
	core.ErrEmptyDescription,
	core.ErrDescriptionLong,
	core.ErrEmptyName,
	core.ErrEmptyCategory,
	core.ErrEmptyUser,
	core.ErrInvalidEmail,
	core.ErrInvalidMonths,
	core.ErrMalformedDate,
	core.ErrZeroDate,
	core.ErrUnknownCategory,
	core.ErrCategoryType,
	core.ErrWeakSecret,
	core.ErrSecretMismatch,
	core.ErrInvalidMonth,
	core.ErrInvalidYear,
	core.ErrInvalidAmount,
}

// statusFor maps a service error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrMergeAborted):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrCategoryInUse),
		errors.Is(err, core.ErrDuplicateEmail),
		errors.Is(err, core.ErrDuplicateID),
		errors.Is(err, core.ErrAlreadyPaid):
		return http.StatusConflict
	case errors.Is(err, core.ErrInvalidCredentials):
		return http.StatusUnauthorized
	}
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return http.StatusBadRequest
		}
	}
	return http.StatusInternalServerError
}

// ServiceError writes err with the status it maps to. Server errors are
// logged and their text is withheld from the client.
func ServiceError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	status := statusFor(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		applog.FromContext(ctx).ErrorContext(ctx, "Request failed",
			applog.NewFields().WithError(err).WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.UserAgent()).ToSlice()...)
		msg = http.StatusText(status)
	}
	ErrorResponse(ctx, status, msg).Write(w)
}
