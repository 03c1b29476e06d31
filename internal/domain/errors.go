package domain

import (
	"errors"
	"fmt"
)

// ErrorKind is the stable, machine-readable part of a circulation error.
type ErrorKind string

const (
	KindOutOfStock         ErrorKind = "OUT_OF_STOCK"
	KindAlreadyBorrowing   ErrorKind = "ALREADY_BORROWING"
	KindUnknownParticipant ErrorKind = "UNKNOWN_PARTICIPANT"
	KindInvalidDueDate     ErrorKind = "INVALID_DUE_DATE"
	KindNotFound           ErrorKind = "NOT_FOUND"
	KindNotActive          ErrorKind = "NOT_ACTIVE"
	KindConflict           ErrorKind = "CONFLICT"
	KindInvalidArgument    ErrorKind = "INVALID_ARGUMENT"
	KindInternal           ErrorKind = "INTERNAL"
)

// Error is returned for every refusal the circulation core can make.
// Store failures are wrapped with KindInternal and keep their cause.
type Error struct {
	Kind    ErrorKind      `json:"kind"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	cause   error
}

var (
	ErrOutOfStock         = &Error{Kind: KindOutOfStock}
	ErrAlreadyBorrowing   = &Error{Kind: KindAlreadyBorrowing}
	ErrUnknownParticipant = &Error{Kind: KindUnknownParticipant}
	ErrInvalidDueDate     = &Error{Kind: KindInvalidDueDate}
	ErrNotFound           = &Error{Kind: KindNotFound}
	ErrNotActive          = &Error{Kind: KindNotActive}
	ErrConflict           = &Error{Kind: KindConflict}
	ErrInvalidArgument    = &Error{Kind: KindInvalidArgument}
	ErrInternal           = &Error{Kind: KindInternal}
)

func NewError(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Internal wraps an unexpected failure so callers can tell it apart from business refusals.
func Internal(msg string, cause error) *Error {
	return &Error{Kind: KindInternal, Message: msg, cause: cause}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	if e.Message == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Is matches on kind, so errors.Is(err, ErrNotActive) works for any NOT_ACTIVE error.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// KindOf returns the kind of err; anything that is not an *Error is INTERNAL.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// ActiveLoanConflict names a participant that already holds an ACTIVE loan.
type ActiveLoanConflict struct {
	UserID    int32  `json:"user_id"`
	Email     string `json:"email"`
	LoanID    int32  `json:"loan_id"`
	BookID    int32  `json:"book_id"`
	BookTitle string `json:"book_title"`
}

func AlreadyBorrowing(conflicts []ActiveLoanConflict) *Error {
	msg := "participant already has an active loan"
	if len(conflicts) == 1 {
		c := conflicts[0]
		msg = fmt.Sprintf("user %d already has an active loan for %q", c.UserID, c.BookTitle)
	} else if len(conflicts) > 1 {
		msg = fmt.Sprintf("%d participants already have active loans", len(conflicts))
	}
	return NewError(KindAlreadyBorrowing, msg).WithDetail("conflicts", conflicts)
}

func UnknownParticipants(identifiers []string) *Error {
	return NewError(KindUnknownParticipant, fmt.Sprintf("unresolved participants: %v", identifiers)).
		WithDetail("unresolved", identifiers)
}
