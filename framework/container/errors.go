package container

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode classifies container failures.
type ErrorCode uint16

const (
	ErrCodeUnknown ErrorCode = iota
	ErrCodeNotRegistered
	ErrCodeAmbiguousRegistration
	ErrCodeConstructionFailed
	ErrCodeCyclicResolution
	ErrCodeScopeMisuse
	ErrCodeInvalidRegistration
	ErrCodeContainerDisposed
)

var codeNames = map[ErrorCode]string{
	ErrCodeUnknown:               "UNKNOWN",
	ErrCodeNotRegistered:         "NOT_REGISTERED",
	ErrCodeAmbiguousRegistration: "AMBIGUOUS_REGISTRATION",
	ErrCodeConstructionFailed:    "CONSTRUCTION_FAILED",
	ErrCodeCyclicResolution:      "CYCLIC_RESOLUTION",
	ErrCodeScopeMisuse:           "SCOPE_MISUSE",
	ErrCodeInvalidRegistration:   "INVALID_REGISTRATION",
	ErrCodeContainerDisposed:     "CONTAINER_DISPOSED",
}

func (c ErrorCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(%d)", c)
}

// Error is the typed failure returned by every container operation.
// Compare with errors.Is against the Err* sentinels, which match on Code.
type Error struct {
	Code    ErrorCode
	Message string
	Service string
	Cause   error
	Chain   []string
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("[%s]", e.Code))

	if e.Service != "" {
		b.WriteString(fmt.Sprintf(" service=%q:", e.Service))
	}

	b.WriteString(" ")
	b.WriteString(e.Message)

	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}

	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

func (e *Error) withService(service string) *Error {
	e.Service = service
	return e
}

func (e *Error) withChain(chain []string) *Error {
	e.Chain = chain
	return e
}

func newError(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Sentinels for errors.Is.
var (
	ErrNotRegistered         = &Error{Code: ErrCodeNotRegistered, Message: "not registered"}
	ErrAmbiguousRegistration = &Error{Code: ErrCodeAmbiguousRegistration, Message: "ambiguous registration"}
	ErrConstructionFailed    = &Error{Code: ErrCodeConstructionFailed, Message: "construction failed"}
	ErrCyclicResolution      = &Error{Code: ErrCodeCyclicResolution, Message: "cyclic resolution"}
	ErrScopeMisuse           = &Error{Code: ErrCodeScopeMisuse, Message: "scope misuse"}
	ErrInvalidRegistration   = &Error{Code: ErrCodeInvalidRegistration, Message: "invalid registration"}
	ErrContainerDisposed     = &Error{Code: ErrCodeContainerDisposed, Message: "container disposed"}
)

func errNotRegistered(service string) *Error {
	return newError(
		ErrCodeNotRegistered,
		fmt.Sprintf("no registration for %s", service),
		nil,
	).withService(service)
}

func errAmbiguous(service string, count int) *Error {
	return newError(
		ErrCodeAmbiguousRegistration,
		fmt.Sprintf("%d unnamed registrations compete for default resolution; resolve by name or remove the duplicates", count),
		nil,
	).withService(service)
}

func errConstructionFailed(service string, cause error) *Error {
	return newError(
		ErrCodeConstructionFailed,
		fmt.Sprintf("could not construct %s", service),
		cause,
	).withService(service)
}

func errCyclicResolution(chain []string) *Error {
	return newError(
		ErrCodeCyclicResolution,
		fmt.Sprintf("resolution cycle: %s", strings.Join(chain, " -> ")),
		nil,
	).withChain(chain)
}

func errScopeMisuse(service, reason string) *Error {
	return newError(ErrCodeScopeMisuse, reason, nil).withService(service)
}

func errInvalidRegistration(service, reason string) *Error {
	return newError(ErrCodeInvalidRegistration, reason, nil).withService(service)
}

func errDisposed() *Error {
	return newError(ErrCodeContainerDisposed, "container has been disposed", nil)
}

// codeOf returns the container code carried by err, or ErrCodeUnknown.
func codeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrCodeUnknown
}

func IsNotRegistered(err error) bool {
	return codeOf(err) == ErrCodeNotRegistered
}

func IsAmbiguousRegistration(err error) bool {
	return codeOf(err) == ErrCodeAmbiguousRegistration
}

func IsConstructionFailed(err error) bool {
	return codeOf(err) == ErrCodeConstructionFailed
}

func IsCyclicResolution(err error) bool {
	return codeOf(err) == ErrCodeCyclicResolution
}

func IsScopeMisuse(err error) bool {
	return codeOf(err) == ErrCodeScopeMisuse
}

func IsInvalidRegistration(err error) bool {
	return codeOf(err) == ErrCodeInvalidRegistration
}

func IsContainerDisposed(err error) bool {
	return codeOf(err) == ErrCodeContainerDisposed
}
