package orm

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a query expects exactly one row but finds
	// none, or when a new (never saved) model is refreshed or removed.
	ErrNotFound = errors.New("orm: not found")

	// ErrIntegrity is returned when a query expects exactly one row but
	// finds more.
	ErrIntegrity = errors.New("orm: more than one row")

	// ErrConfiguration is the parent of every build-time error: unknown
	// filter operators, relations and scopes. These are reported before any
	// statement is executed.
	ErrConfiguration = errors.New("orm: configuration error")

	ErrUnknownOperator = errors.New("orm: unknown filter operator")
	ErrUnknownRelation = errors.New("orm: unknown relation")
	ErrUnknownScope    = errors.New("orm: unknown scope")
)

// NotFoundError reports a missing row. errors.Is(err, ErrNotFound) holds.
type NotFoundError struct {
	Table  string
	Reason string
}

func (e *NotFoundError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("orm: %s: %s", e.Table, e.Reason)
	}
	return fmt.Sprintf("orm: %s: entity not found", e.Table)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// IntegrityError reports more rows than the single-row query allowed.
// errors.Is(err, ErrIntegrity) holds.
type IntegrityError struct {
	Table string
	Rows  int
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("orm: %s: expected one row, got %d", e.Table, e.Rows)
}

func (e *IntegrityError) Unwrap() error { return ErrIntegrity }

// ConfigurationError reports an invalid query description.
// errors.Is matches both ErrConfiguration and the specific Kind.
type ConfigurationError struct {
	Kind error
	Msg  string
}

func (e *ConfigurationError) Error() string { return "orm: " + e.Msg }

func (e *ConfigurationError) Unwrap() []error {
	if e.Kind == nil {
		return []error{ErrConfiguration}
	}
	return []error{ErrConfiguration, e.Kind}
}

func configErrorf(kind error, format string, args ...any) error {
	return &ConfigurationError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}
