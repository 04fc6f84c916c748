// Package errors is the error taxonomy shared by gradecheck packages. Errors a
// submission causes are told apart from errors in the rubric or environment so
// graders can turn the former into failed checks.
package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

type ErrorCode string

const (
	CodeNotFound        ErrorCode = "NOT_FOUND"
	CodeValidationError ErrorCode = "VALIDATION_ERROR"
	CodeInternal        ErrorCode = "INTERNAL_ERROR"
	CodeNotSupported    ErrorCode = "NOT_SUPPORTED"

	// Submission-caused: converted to grading results, never surfaced to the harness.
	CodeLoad             ErrorCode = "LOAD_ERROR"
	CodeMissingAttribute ErrorCode = "MISSING_ATTRIBUTE"

	// Engineer-caused: propagate and fail the run.
	CodePattern              ErrorCode = "PATTERN_ERROR"
	CodeUnresolvedCallTarget ErrorCode = "UNRESOLVED_CALL_TARGET"
)

// Context keys.
const (
	CtxPath    = "path"
	CtxSymbol  = "symbol"
	CtxPattern = "pattern"
	CtxLine    = "line"
)

type DomainError struct {
	Code    ErrorCode
	Message string
	Err     error
	Context map[string]interface{}
}

func (e *DomainError) WithContext(key string, value interface{}) *DomainError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// Error renders "[CODE] message: cause (key=value, ...)" with context keys in
// sorted order.
func (e *DomainError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", e.Code, e.Message)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for key := range e.Context {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		pairs := make([]string, len(keys))
		for i, key := range keys {
			pairs[i] = fmt.Sprintf("%s=%v", key, e.Context[key])
		}
		fmt.Fprintf(&b, " (%s)", strings.Join(pairs, ", "))
	}
	return b.String()
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

func New(code ErrorCode, msg string) error {
	return &DomainError{Code: code, Message: msg}
}

func Wrap(err error, code ErrorCode, msg string) error {
	return &DomainError{Code: code, Message: msg, Err: err}
}

// AddContext attaches a context key to err, wrapping plain errors as internal.
func AddContext(err error, key string, value interface{}) error {
	var de *DomainError
	if errors.As(err, &de) {
		de.WithContext(key, value)
		return err
	}
	return &DomainError{
		Code:    CodeInternal,
		Message: "wrapped error",
		Err:     err,
		Context: map[string]interface{}{key: value},
	}
}

// IsCode reports whether the first DomainError in err's chain has code.
func IsCode(err error, code ErrorCode) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// IsSubmissionFault reports whether err was caused by the submitted files rather
// than by the grading configuration.
func IsSubmissionFault(err error) bool {
	return IsCode(err, CodeLoad) || IsCode(err, CodeMissingAttribute)
}
