package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/DodailSolutions/billbook/internal/domain"
	"github.com/DodailSolutions/billbook/internal/middleware"
	"github.com/DodailSolutions/billbook/internal/telemetry"
)

// ErrorCodeToHTTPStatus maps domain error codes to HTTP status codes.
func ErrorCodeToHTTPStatus(code string) int {
	switch code {
	case domain.EINVALID:
		return http.StatusBadRequest
	case domain.EUNAUTHORIZED:
		return http.StatusUnauthorized
	case domain.EPAYMENT:
		return http.StatusPaymentRequired
	case domain.EFORBIDDEN:
		return http.StatusForbidden
	case domain.ENOTFOUND:
		return http.StatusNotFound
	case domain.ECONFLICT, domain.ESTATE:
		return http.StatusConflict
	case domain.EGONE:
		return http.StatusGone
	case domain.ETOOLARGE:
		return http.StatusRequestEntityTooLarge
	case domain.ERATELIMIT:
		return http.StatusTooManyRequests
	case domain.ENOTIMPL:
		return http.StatusNotImplemented
	case domain.EEXTERNAL:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

type errorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// ErrorResponse writes err as {"error":{"code","message"}}. Browsers that
// ask for HTML get the message as plain text instead. Internal errors are
// logged and reported, and their details never reach the client.
func ErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	writeError(w, r, err, errorBody{
		Code:    domain.ErrorCode(err),
		Message: domain.ErrorMessage(err),
	})
}

// ValidationErrorResponse writes a 400 carrying the per-field messages of a
// *domain.ValidationError. Other errors go through ErrorResponse.
func ValidationErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	fields := domain.GetValidationFields(err)
	if fields == nil {
		ErrorResponse(w, r, err)
		return
	}
	writeError(w, r, err, errorBody{
		Code:    domain.EINVALID,
		Message: "Validation failed",
		Fields:  fields,
	})
}

// NotFoundResponse writes a generic 404.
func NotFoundResponse(w http.ResponseWriter, r *http.Request) {
	ErrorResponse(w, r, domain.Errorf(domain.ENOTFOUND, "", "Not found"))
}

// UnauthorizedResponse writes a generic 401.
func UnauthorizedResponse(w http.ResponseWriter, r *http.Request) {
	ErrorResponse(w, r, domain.Errorf(domain.EUNAUTHORIZED, "", "Authentication required"))
}

// ForbiddenResponse writes a generic 403.
func ForbiddenResponse(w http.ResponseWriter, r *http.Request) {
	ErrorResponse(w, r, domain.Errorf(domain.EFORBIDDEN, "", "You don't have permission to access this resource"))
}

// InternalErrorResponse writes a 500 for err, which may be nil.
func InternalErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	ErrorResponse(w, r, domain.Internal(err, "", "unexpected server error"))
}

func writeError(w http.ResponseWriter, r *http.Request, err error, body errorBody) {
	status := ErrorCodeToHTTPStatus(body.Code)

	logger := middleware.GetLogger(r.Context())
	attrs := []any{
		"error", err,
		"code", body.Code,
		"op", domain.ErrorOp(err),
		"status", status,
	}
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", attrs...)
		telemetry.CaptureErrorFromContext(r.Context(), err, map[string]interface{}{
			"path": r.URL.Path,
			"op":   domain.ErrorOp(err),
		})
	} else {
		logger.Debug("request rejected", attrs...)
	}

	if prefersHTML(r) {
		http.Error(w, body.Message, status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]errorBody{"error": body})
}

// acceptsJSON reports whether the client explicitly speaks JSON.
func acceptsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		return true
	}
	return strings.HasSuffix(r.URL.Path, ".json")
}

// AcceptsJSON is acceptsJSON for handlers in other packages.
func AcceptsJSON(r *http.Request) bool {
	return acceptsJSON(r)
}

func prefersHTML(r *http.Request) bool {
	return !acceptsJSON(r) && strings.Contains(r.Header.Get("Accept"), "text/html")
}
