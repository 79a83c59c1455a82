package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the transport layer.
type Kind int

const (
	KindNotFound Kind = iota + 1
	KindPrecondition
	KindForbidden
	KindConflict
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindPrecondition:
		return "precondition_failed"
	case KindForbidden:
		return "forbidden"
	case KindConflict:
		return "conflict"
	case KindValidation:
		return "validation"
	default:
		return "unknown"
	}
}

// Code is the machine-readable error code surfaced to clients.
type Code string

const (
	CategoryNotFound     Code = "CATEGORY_NOT_FOUND"
	CategoryNotChild     Code = "CATEGORY_NOT_CHILD"
	CategoryNotActive    Code = "CATEGORY_NOT_ACTIVE"
	CategoryNotAllowed   Code = "CATEGORY_NOT_ALLOWED"
	ConfigNotFound       Code = "CONFIG_NOT_FOUND"
	ConfigNotActive      Code = "CONFIG_NOT_ACTIVE"
	NotFound             Code = "NOT_FOUND"
	NotEditable          Code = "NOT_EDITABLE"
	InvalidStatus        Code = "INVALID_STATUS"
	PollNotFound         Code = "POLL_NOT_FOUND"
	PollNotLive          Code = "POLL_NOT_LIVE"
	PollNotInviteOnly    Code = "POLL_NOT_INVITE_ONLY"
	NotFoundOrForbidden  Code = "NOT_FOUND_OR_FORBIDDEN"
	InvalidEndAt         Code = "INVALID_END_AT"
	EndAtInPast          Code = "END_AT_IN_PAST"
	EndAtBeforeStart     Code = "END_AT_BEFORE_START"
	PollAlreadyClosed    Code = "POLL_ALREADY_CLOSED"
	InviteNotFound       Code = "INVITE_NOT_FOUND"
	InviteAlreadyUsed    Code = "INVITE_ALREADY_USED"
	PollNotActive        Code = "POLL_NOT_ACTIVE"
	PollNotPublished     Code = "POLL_NOT_PUBLISHED"
	PollNotStarted       Code = "POLL_NOT_STARTED"
	PollEnded            Code = "POLL_ENDED"
	InvalidInvite        Code = "INVALID_INVITE"
	InviteRequired       Code = "INVITE_REQUIRED"
	AuthOrInviteRequired Code = "AUTH_OR_INVITE_REQUIRED"
	AlreadyVoted         Code = "ALREADY_VOTED"
	InvalidResponse      Code = "INVALID_RESPONSE"
	ProfileNotFound      Code = "PROFILE_NOT_FOUND"
	ClaimNotFound        Code = "CLAIM_NOT_FOUND"
	AlreadyClaimed       Code = "ALREADY_CLAIMED"
	RequestNotFound      Code = "REQUEST_NOT_FOUND"
	ProfileAlreadyExists Code = "PROFILE_ALREADY_EXISTS"
	UserNotFound         Code = "USER_NOT_FOUND"
	InvalidID            Code = "INVALID_ID"

	// ValidationFailed covers request-shape failures caught before any core decision.
	ValidationFailed Code = "VALIDATION_FAILED"
)

var kinds = map[Code]Kind{
	CategoryNotFound:     KindNotFound,
	CategoryNotChild:     KindPrecondition,
	CategoryNotActive:    KindPrecondition,
	CategoryNotAllowed:   KindForbidden,
	ConfigNotFound:       KindNotFound,
	ConfigNotActive:      KindPrecondition,
	NotFound:             KindNotFound,
	NotEditable:          KindPrecondition,
	InvalidStatus:        KindPrecondition,
	PollNotFound:         KindNotFound,
	PollNotLive:          KindPrecondition,
	PollNotInviteOnly:    KindPrecondition,
	NotFoundOrForbidden:  KindNotFound,
	InvalidEndAt:         KindValidation,
	EndAtInPast:          KindValidation,
	EndAtBeforeStart:     KindValidation,
	PollAlreadyClosed:    KindPrecondition,
	InviteNotFound:       KindNotFound,
	InviteAlreadyUsed:    KindConflict,
	PollNotActive:        KindPrecondition,
	PollNotPublished:     KindPrecondition,
	PollNotStarted:       KindPrecondition,
	PollEnded:            KindPrecondition,
	InvalidInvite:        KindForbidden,
	InviteRequired:       KindForbidden,
	AuthOrInviteRequired: KindForbidden,
	AlreadyVoted:         KindConflict,
	InvalidResponse:      KindValidation,
	ProfileNotFound:      KindNotFound,
	ClaimNotFound:        KindNotFound,
	AlreadyClaimed:       KindConflict,
	RequestNotFound:      KindNotFound,
	ProfileAlreadyExists: KindConflict,
	UserNotFound:         KindNotFound,
	InvalidID:            KindValidation,
	ValidationFailed:     KindValidation,
}

// Kind returns the fixed kind of a code.
func (c Code) Kind() Kind {
	if k, ok := kinds[c]; ok {
		return k
	}
	return KindPrecondition
}

// Error is the single error type returned by core services.
type Error struct {
	Code    Code
	Message string
	Fields  map[string]string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Kind returns the error's kind.
func (e *Error) Kind() Kind { return e.Code.Kind() }

// Is matches any *Error with the same code, so sentinel comparisons work.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// New creates an error carrying the given code.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf is New with formatting.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Validation builds a validation error with field-level detail.
func Validation(code Code, fields map[string]string) *Error {
	return &Error{Code: code, Message: "validation failed", Fields: fields}
}

// CodeOf extracts the code of err if it is (or wraps) an *Error.
func CodeOf(err error) (Code, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return "", false
}

// HasCode reports whether err carries code.
func HasCode(err error, code Code) bool {
	c, ok := CodeOf(err)
	return ok && c == code
}
