package store

import (
	"database/sql"
	"errors"
	"fmt"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
)

var (
	// ErrNonExistFeed is returned when a feed lookup yields no row.
	ErrNonExistFeed = errors.New("feed does not exist")

	// ErrNonExistPosting is returned when a posting lookup yields no row.
	ErrNonExistPosting = errors.New("posting does not exist")

	// ErrNonExistUser is returned when a user lookup yields no row.
	ErrNonExistUser = errors.New("user does not exist")

	// ErrInvalidFKConstraint is returned when a write references a missing row.
	ErrInvalidFKConstraint = errors.New("invalid foreign key constraint")
)

// text code the repository error mappers assign to foreign key violations
const codeForeignKeyViolation = "FOREIGN_KEY_VIOLATION"

// StoreError wraps any persistence fault that has no more specific class.
type StoreError struct {
	Op string
	// Code is the repository text code of the fault, e.g. DUPLICATE_KEY.
	// Empty when the driver error was not recognized.
	Code string
	Err  error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	return "store: " + e.Op + ": " + e.Err.Error()
}

// Unwrap returns the underlying driver error.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// classify maps a driver error to the store taxonomy. driver is the name
// reported by repository.DetectDriver.
func classify(driver, op string, err error) error {
	if err == nil {
		return nil
	}

	code := textCode(repository.MapDatabaseError(err, driver))
	if code == codeForeignKeyViolation {
		return fmt.Errorf("%s: %w: %v", op, ErrInvalidFKConstraint, err)
	}

	return &StoreError{Op: op, Code: code, Err: err}
}

// classifyLookup is classify for single-row reads, mapping sql.ErrNoRows to notFound.
func classifyLookup(driver, op string, err error, notFound error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return notFound
	}
	return classify(driver, op, err)
}

func textCode(mapped error) string {
	var retryable *goerrors.RetryableError
	if errors.As(mapped, &retryable) {
		return retryable.BaseError.TextCode
	}
	return ""
}
