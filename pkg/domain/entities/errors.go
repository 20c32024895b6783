package entities

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every error returned by the ledger wraps exactly one of them,
// so callers can branch with errors.Is.
var (
	ErrNotFound    = errors.New("not found")
	ErrDuplicateID = errors.New("duplicate id")
	ErrInvalidData = errors.New("invalid data")
	ErrTransient   = errors.New("transient failure")
)

// LedgerError carries a stable kind plus the identifiers needed to build a
// user-facing message.
type LedgerError struct {
	Op       string
	Kind     error
	ID       string
	ItemKey  string
	Type     string
	Location string
	Detail   string
	Err      error
}

func (e *LedgerError) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	if e.Kind != nil {
		b.WriteString(e.Kind.Error())
	} else {
		b.WriteString("ledger error")
	}

	var ctx []string
	if e.ID != "" {
		ctx = append(ctx, "id="+e.ID)
	}
	if e.ItemKey != "" {
		ctx = append(ctx, "item="+e.ItemKey)
	}
	if e.Type != "" {
		ctx = append(ctx, "type="+e.Type)
	}
	if e.Location != "" {
		ctx = append(ctx, fmt.Sprintf("location=%q", e.Location))
	}
	if len(ctx) > 0 {
		b.WriteString(" (")
		b.WriteString(strings.Join(ctx, " "))
		b.WriteString(")")
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the kind and the underlying cause.
func (e *LedgerError) Unwrap() []error {
	var errs []error
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// KindOf returns the ledger error kind wrapped by err, or nil.
func KindOf(err error) error {
	for _, kind := range []error{ErrNotFound, ErrDuplicateID, ErrInvalidData, ErrTransient} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// InvalidDataf builds an ErrInvalidData error for op.
func InvalidDataf(op, format string, args ...interface{}) *LedgerError {
	return &LedgerError{Op: op, Kind: ErrInvalidData, Detail: fmt.Sprintf(format, args...)}
}
