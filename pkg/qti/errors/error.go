package errors

import (
	stderrors "errors"
	"fmt"
	"strings"

	"mercator-hq/itemengine/pkg/qti/ast"
)

// ErrorType categorizes the errors raised while building or running an item.
type ErrorType string

const (
	ErrorTypeSyntax     ErrorType = "syntax"     // Malformed XML or literal
	ErrorTypeStructural ErrorType = "structural" // Missing/invalid elements or attributes
	ErrorTypeSemantic   ErrorType = "semantic"   // Unresolved reference, wrong declaration kind
	ErrorTypeEvaluation ErrorType = "evaluation" // Failure while evaluating an expression
	ErrorTypeValidation ErrorType = "validation" // Response does not fit its declaration
	ErrorTypeState      ErrorType = "state"      // Operation not allowed in the session's state
)

// Sentinel errors.
var (
	// ErrNotFound is returned when an identifier has no declaration.
	ErrNotFound = ast.ErrNotFound

	// ErrAlreadyCompleted is returned by a submission after completion.
	ErrAlreadyCompleted = stderrors.New("item session already completed")

	// ErrUnknownOperator is returned for an expression the evaluator cannot dispatch.
	ErrUnknownOperator = stderrors.New("unknown operator")
)

// Error represents a rich error with location, context, and suggestions.
type Error struct {
	Type       ErrorType    // Category of error
	Message    string       // Error message
	Identifier string       // Variable the error concerns (optional)
	Location   ast.Location // Source location (name, line, column)
	Context    string       // Surrounding source lines
	Suggestion string       // Suggested fix (optional)
	Cause      error        // Underlying error (optional)
}

// Error implements the error interface.
// It returns a formatted error message with location and context.
func (e *Error) Error() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("[%s] %s", e.Type, e.Message))
	if e.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Cause.Error())
	}

	if e.Location.IsValid() {
		sb.WriteString(fmt.Sprintf("\n  --> %s", e.Location.String()))
	}

	if e.Context != "" {
		sb.WriteString("\n  |\n")
		sb.WriteString(strings.TrimSuffix(e.Context, "\n"))
		sb.WriteString("\n  |")
	}

	if e.Suggestion != "" {
		sb.WriteString(fmt.Sprintf("\n  = suggestion: %s", e.Suggestion))
	}

	return sb.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates an error of the given type.
func New(errType ErrorType, format string, args ...any) *Error {
	return &Error{Type: errType, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an error of the given type around cause.
func Wrap(errType ErrorType, cause error, format string, args ...any) *Error {
	return &Error{Type: errType, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Evaluation creates an evaluation error for the expression at loc.
func Evaluation(loc ast.Location, cause error, format string, args ...any) *Error {
	return &Error{Type: ErrorTypeEvaluation, Message: fmt.Sprintf(format, args...), Location: loc, Cause: cause}
}

// AlreadyCompleted creates the state error returned by a submission after completion.
func AlreadyCompleted() *Error {
	return &Error{Type: ErrorTypeState, Message: "submission rejected", Cause: ErrAlreadyCompleted}
}

// ErrorList represents a collection of errors encountered during parsing/validation.
// It allows accumulating multiple errors instead of failing on the first error.
type ErrorList struct {
	Errors []*Error
}

// NewErrorList creates a new empty error list.
func NewErrorList() *ErrorList {
	return &ErrorList{
		Errors: make([]*Error, 0),
	}
}

// Add appends an error to the list.
func (el *ErrorList) Add(err *Error) {
	el.Errors = append(el.Errors, err)
}

// AddError creates and adds a new error with the given parameters.
func (el *ErrorList) AddError(errType ErrorType, message string, location ast.Location) {
	el.Add(&Error{
		Type:     errType,
		Message:  message,
		Location: location,
	})
}

// AddErrorWithSuggestion creates and adds a new error with a suggestion.
func (el *ErrorList) AddErrorWithSuggestion(errType ErrorType, message string, location ast.Location, suggestion string) {
	el.Add(&Error{
		Type:       errType,
		Message:    message,
		Location:   location,
		Suggestion: suggestion,
	})
}

// Merge appends every error of other.
func (el *ErrorList) Merge(other *ErrorList) {
	if other == nil {
		return
	}
	el.Errors = append(el.Errors, other.Errors...)
}

// HasErrors returns true if the error list contains any errors.
func (el *ErrorList) HasErrors() bool {
	return len(el.Errors) > 0
}

// Count returns the number of errors in the list.
func (el *ErrorList) Count() int {
	return len(el.Errors)
}

// Error implements the error interface.
// It returns all errors formatted as a single string.
func (el *ErrorList) Error() string {
	if !el.HasErrors() {
		return ""
	}
	if el.Count() == 1 {
		return el.Errors[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d error(s):\n\n", el.Count()))

	for i, err := range el.Errors {
		sb.WriteString(fmt.Sprintf("Error %d:\n", i+1))
		sb.WriteString(err.Error())
		sb.WriteString("\n\n")
	}

	return sb.String()
}

// ToError returns nil if the error list is empty, otherwise returns the error list itself.
func (el *ErrorList) ToError() error {
	if !el.HasErrors() {
		return nil
	}
	return el
}

// ByType returns all errors of the given type.
func (el *ErrorList) ByType(errType ErrorType) []*Error {
	var result []*Error
	for _, err := range el.Errors {
		if err.Type == errType {
			result = append(result, err)
		}
	}
	return result
}

// HasErrorType returns true if the error list contains at least one error of the given type.
func (el *ErrorList) HasErrorType(errType ErrorType) bool {
	for _, err := range el.Errors {
		if err.Type == errType {
			return true
		}
	}
	return false
}

// typeOf reports the type of the first *Error in err's chain, or of the
// first entry of an *ErrorList.
func typeOf(err error) (ErrorType, bool) {
	var list *ErrorList
	if stderrors.As(err, &list) && list.HasErrors() {
		return list.Errors[0].Type, true
	}
	var e *Error
	if stderrors.As(err, &e) {
		return e.Type, true
	}
	return "", false
}

// TypeOf returns the type of the first *Error in err's chain, or "" when
// err carries none.
func TypeOf(err error) ErrorType {
	t, _ := typeOf(err)
	return t
}

// IsParseError returns true for syntax, structural and semantic errors, the
// construction-time family.
func IsParseError(err error) bool {
	t, ok := typeOf(err)
	return ok && (t == ErrorTypeSyntax || t == ErrorTypeStructural || t == ErrorTypeSemantic)
}

// IsEvaluationError returns true if err is an evaluation error.
func IsEvaluationError(err error) bool {
	t, ok := typeOf(err)
	return ok && t == ErrorTypeEvaluation
}

// IsValidationError returns true if err is a response validation error.
func IsValidationError(err error) bool {
	t, ok := typeOf(err)
	return ok && t == ErrorTypeValidation
}

// IsStateError returns true if err is a state error.
func IsStateError(err error) bool {
	t, ok := typeOf(err)
	return ok && t == ErrorTypeState
}
