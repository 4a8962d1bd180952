package domain

import (
	"errors"
	"fmt"
)

// Application error codes. Handlers map these to HTTP status codes.
const (
	ECONFLICT     = "conflict"         // 409
	ESTATE        = "invalid_state"    // 409 - operation not legal for the entity's current status
	EINTERNAL     = "internal"         // 500 - details hidden from callers
	EINVALID      = "invalid"          // 400
	ENOTFOUND     = "not_found"        // 404 - also used for rows owned by another tenant
	EUNAUTHORIZED = "unauthorized"     // 401 - no valid session
	EFORBIDDEN    = "forbidden"        // 403 - valid session, insufficient role
	EEXTERNAL     = "external"         // 502 - gateway, email or persistence collaborator failed
	ENOTIMPL      = "not_implemented"  // 501
	ERATELIMIT    = "rate_limit"       // 429
	EPAYMENT      = "payment_required" // 402
	EGONE         = "gone"             // 410
	ETOOLARGE     = "too_large"        // 413
)

const internalMessage = "An internal error occurred. Please try again later."

// Error is an application error carrying a machine-readable code and a
// message that is safe to show to the caller.
type Error struct {
	Code    string
	Message string

	// Op names the operation that failed, e.g. "invoice.create". Logged, never rendered.
	Op string

	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		if e.Op != "" {
			return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
		}
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches sentinel errors by code and message so that a sentinel
// re-created with an Op still compares equal.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// ErrorCode extracts the code from err. Non-domain errors are EINTERNAL.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}

	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	if IsValidationError(err) {
		return EINVALID
	}

	return EINTERNAL
}

// ErrorMessage returns the caller-facing message for err.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}

	var e *Error
	if errors.As(err, &e) {
		if e.Code == EINTERNAL {
			return internalMessage
		}
		return e.Message
	}

	return internalMessage
}

// ErrorOp extracts the operation from err, for logging.
func ErrorOp(err error) string {
	if err == nil {
		return ""
	}

	var e *Error
	if errors.As(err, &e) {
		return e.Op
	}

	return ""
}

// Errorf creates a domain error with a formatted message.
//
//	domain.Errorf(domain.EINVALID, "invoice.create", "unknown status: %s", status)
func Errorf(code, op, format string, args ...interface{}) error {
	return &Error{
		Code:    code,
		Op:      op,
		Message: fmt.Sprintf(format, args...),
	}
}

// WrapError wraps err with a code and operation. Returns nil if err is nil.
func WrapError(err error, code, op, message string) error {
	if err == nil {
		return nil
	}

	return &Error{
		Code:    code,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code string) bool {
	return ErrorCode(err) == code
}

// ValidationError holds one or more field-level validation failures.
type ValidationError struct {
	Fields map[string]string
	Op     string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 1 {
		for field, msg := range e.Fields {
			if e.Op != "" {
				return fmt.Sprintf("%s: %s: %s", e.Op, field, msg)
			}
			return fmt.Sprintf("%s: %s", field, msg)
		}
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: validation failed for %d fields", e.Op, len(e.Fields))
	}
	return fmt.Sprintf("validation failed for %d fields", len(e.Fields))
}

// NewValidationError creates a validation error for a single field.
func NewValidationError(op, field, message string) error {
	return &ValidationError{
		Op:     op,
		Fields: map[string]string{field: message},
	}
}

// AddFieldError adds a field error to err, creating a ValidationError when
// err is nil or of another type.
func AddFieldError(err error, field, message string) error {
	var ve *ValidationError
	if err != nil && errors.As(err, &ve) {
		ve.Fields[field] = message
		return ve
	}

	return &ValidationError{
		Fields: map[string]string{field: message},
	}
}

// IsValidationError reports whether err is a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// GetValidationFields returns the field errors of a ValidationError, or nil.
func GetValidationFields(err error) map[string]string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Fields
	}
	return nil
}

// ErrTenantRequired is returned when an operation runs without a tenant.
var ErrTenantRequired = &Error{
	Code:    EUNAUTHORIZED,
	Message: "Authentication required",
}

// NotFound creates a not found error. Callers must use it for rows owned by
// other tenants as well, so the two cases stay indistinguishable.
func NotFound(op, resource, identifier string) error {
	return &Error{
		Code:    ENOTFOUND,
		Op:      op,
		Message: fmt.Sprintf("%s not found: %s", resource, identifier),
	}
}

// Unauthorized creates an authentication error.
func Unauthorized(op, message string) error {
	return &Error{
		Code:    EUNAUTHORIZED,
		Op:      op,
		Message: message,
	}
}

// Forbidden creates an authorization error.
func Forbidden(op, message string) error {
	return &Error{
		Code:    EFORBIDDEN,
		Op:      op,
		Message: message,
	}
}

// Invalid creates a validation error for a single issue.
func Invalid(op, message string) error {
	return &Error{
		Code:    EINVALID,
		Op:      op,
		Message: message,
	}
}

// InvalidState creates an error for operations that the entity's current
// status does not allow.
func InvalidState(op, message string) error {
	return &Error{
		Code:    ESTATE,
		Op:      op,
		Message: message,
	}
}

// Conflict creates a conflict error.
func Conflict(op, message string) error {
	return &Error{
		Code:    ECONFLICT,
		Op:      op,
		Message: message,
	}
}

// External wraps a failure of an outside collaborator.
func External(err error, op, message string) error {
	return &Error{
		Code:    EEXTERNAL,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// Internal wraps an unexpected failure. Callers see a generic message.
func Internal(err error, op, message string) error {
	return &Error{
		Code:    EINTERNAL,
		Op:      op,
		Message: message,
		Err:     err,
	}
}
