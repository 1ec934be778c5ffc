package core

import "errors"

var (
	// ErrMalformedDate is returned for any date string that is not a valid YYYY-MM-DD.
	ErrMalformedDate = errors.New("malformed date")
	ErrZeroDate      = errors.New("date cannot be zero")
	// ErrCategoryInUse blocks deleting a category still referenced by a
	// transaction or a scheduled obligation.
	ErrCategoryInUse = errors.New("category in use")
	// ErrUnresolvedCategoryReference marks an imported row whose category
	// could not be mapped. It is reported as a warning, never as a failure.
	ErrUnresolvedCategoryReference = errors.New("unresolved category reference")
	// ErrMergeAborted wraps whatever made an import fail. No partial state
	// is visible after it is returned.
	ErrMergeAborted = errors.New("merge aborted")

	ErrNotFound           = errors.New("not found")
	ErrDuplicateID        = errors.New("duplicate id")
	ErrUnknownCategory    = errors.New("unknown category")
	ErrCategoryType       = errors.New("category type does not match entry")
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrWeakSecret         = errors.New("secret must be at least 6 characters")
	ErrSecretMismatch     = errors.New("secrets do not match")
	ErrAlreadyPaid        = errors.New("obligation already paid")

	ErrInvalidMonth  = errors.New("invalid month")
	ErrInvalidYear   = errors.New("invalid year")
	ErrInvalidAmount = errors.New("invalid amount")
)
