package domain

import (
	"errors"
	"fmt"
)

// Error codes for programmatic handling. Adapters and the form engine catch
// internal failures and convert them to result objects; only contract
// violations (ErrCodeValidation) propagate as hard failures.
const (
	ErrCodeValidation = "VALIDATION_ERROR"

	ErrCodeNavigationFailure   = "NAVIGATION_FAILURE"
	ErrCodeNoFieldsDiscovered  = "NO_FIELDS_DISCOVERED"
	ErrCodeElementUnresolvable = "ELEMENT_UNRESOLVABLE"
	ErrCodeAuthRequired        = "AUTHENTICATION_REQUIRED"
	ErrCodeAccessBlocked       = "ACCESS_BLOCKED"
	ErrCodeSubmissionNotFound  = "SUBMISSION_NOT_FOUND"
	ErrCodeMappingRejected     = "MAPPING_REJECTED"
	ErrCodeSubmissionRejected  = "SUBMISSION_REJECTED"

	ErrCodeDatabase    = "DATABASE_ERROR"
	ErrCodeExternalAPI = "EXTERNAL_API_ERROR"
)

// DomainError is a structured error carrying a code and context.
type DomainError struct {
	Code    string
	Message string
	Details map[string]any
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is for error comparison by code
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Sentinel errors (used with errors.Is)
var (
	ErrInvalidInput        = &DomainError{Code: ErrCodeValidation, Message: "invalid input"}
	ErrNavigationFailed    = &DomainError{Code: ErrCodeNavigationFailure, Message: "navigation failed"}
	ErrNoFieldsDiscovered  = &DomainError{Code: ErrCodeNoFieldsDiscovered, Message: "no form fields discovered"}
	ErrElementUnresolvable = &DomainError{Code: ErrCodeElementUnresolvable, Message: "element unresolvable"}
	ErrAuthRequired        = &DomainError{Code: ErrCodeAuthRequired, Message: "authentication required"}
	ErrAccessBlocked       = &DomainError{Code: ErrCodeAccessBlocked, Message: "access blocked"}
	ErrSubmissionNotFound  = &DomainError{Code: ErrCodeSubmissionNotFound, Message: "submission control not found"}
	ErrMappingRejected     = &DomainError{Code: ErrCodeMappingRejected, Message: "field mapping rejected"}
	ErrSubmissionRejected  = &DomainError{Code: ErrCodeSubmissionRejected, Message: "submission rejected"}
)

// ValidationError creates a validation domain error for a specific field.
func ValidationError(field, message string) *DomainError {
	return &DomainError{
		Code:    ErrCodeValidation,
		Message: message,
		Details: map[string]any{"field": field},
		Err:     ErrInvalidInput,
	}
}

// NavigationError wraps a navigation failure for a URL.
func NavigationError(url string, err error) *DomainError {
	return &DomainError{
		Code:    ErrCodeNavigationFailure,
		Message: fmt.Sprintf("navigating to %s", url),
		Details: map[string]any{"url": url},
		Err:     err,
	}
}

// UnresolvableError reports an element whose every locator phase failed.
func UnresolvableError(description, reason string) *DomainError {
	return &DomainError{
		Code:    ErrCodeElementUnresolvable,
		Message: fmt.Sprintf("could not resolve %q", description),
		Details: map[string]any{"description": description, "reason": reason},
		Err:     ErrElementUnresolvable,
	}
}

// NoFieldsError reports a page on which no form field could be found.
func NoFieldsError(url string) *DomainError {
	return &DomainError{
		Code:    ErrCodeNoFieldsDiscovered,
		Message: "no form fields discovered",
		Details: map[string]any{"url": url},
		Err:     ErrNoFieldsDiscovered,
	}
}

// SubmissionNotFoundError reports a filled form with no submit affordance.
func SubmissionNotFoundError(url string) *DomainError {
	return &DomainError{
		Code:    ErrCodeSubmissionNotFound,
		Message: "no submit button found",
		Details: map[string]any{"url": url},
		Err:     ErrSubmissionNotFound,
	}
}

// RejectedError reports a review-gate rejection for the given stage.
func RejectedError(stage ReviewStage, notes string) *DomainError {
	code := ErrCodeMappingRejected
	sentinel := error(ErrMappingRejected)
	if stage == StageSubmissionReview {
		code = ErrCodeSubmissionRejected
		sentinel = ErrSubmissionRejected
	}
	return &DomainError{
		Code:    code,
		Message: fmt.Sprintf("%s review rejected", stage),
		Details: map[string]any{"stage": string(stage), "notes": notes},
		Err:     sentinel,
	}
}

// AuthRequiredError reports a board that bounced the search to a login wall.
func AuthRequiredError(source string) *DomainError {
	return &DomainError{
		Code:    ErrCodeAuthRequired,
		Message: fmt.Sprintf("%s requires authentication", source),
		Details: map[string]any{"source": source},
		Err:     ErrAuthRequired,
	}
}

// AccessBlockedError reports bot protection blocking the search.
func AccessBlockedError(source string) *DomainError {
	return &DomainError{
		Code:    ErrCodeAccessBlocked,
		Message: fmt.Sprintf("%s blocked the request", source),
		Details: map[string]any{"source": source},
		Err:     ErrAccessBlocked,
	}
}

// DatabaseError wraps a storage failure.
func DatabaseError(err error) *DomainError {
	return &DomainError{Code: ErrCodeDatabase, Message: "database error", Err: err}
}

// ExternalAPIError wraps a failure from an external backend.
func ExternalAPIError(service string, err error) *DomainError {
	return &DomainError{
		Code:    ErrCodeExternalAPI,
		Message: fmt.Sprintf("external API error: %s", service),
		Details: map[string]any{"service": service},
		Err:     err,
	}
}

// IsCode checks whether err carries the given domain error code.
func IsCode(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}
