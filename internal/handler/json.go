package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/DodailSolutions/billbook/internal/domain"
	"github.com/DodailSolutions/billbook/internal/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// DecodeJSON decodes the request body into dst and runs its validate tags.
// Bodies over the MaxBodySize limit yield ETOOLARGE; malformed JSON and
// unknown fields yield EINVALID; tag failures yield a *domain.ValidationError.
func DecodeJSON(r *http.Request, dst any) error {
	const op = "handler.decode"

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.As(err, &maxErr):
			return domain.Errorf(domain.ETOOLARGE, op, "Request body too large")
		case errors.Is(err, io.EOF):
			return domain.Invalid(op, "Request body is required")
		case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
			return domain.Invalid(op, "Request body is not valid JSON")
		case errors.As(err, &typeErr):
			return domain.NewValidationError(op, typeErr.Field, "has the wrong type")
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			field := strings.Trim(strings.TrimPrefix(err.Error(), "json: unknown field "), `"`)
			return domain.NewValidationError(op, field, "is not a recognised field")
		default:
			return domain.NewValidationError(op, "body", err.Error())
		}
	}

	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return domain.Internal(err, op, "validation failed")
		}
		var out error
		for _, fe := range verrs {
			out = domain.AddFieldError(out, fieldPath(fe), fieldMessage(fe))
		}
		return out
	}
	return nil
}

// fieldPath drops the root struct name: "createInvoiceRequest.items[0].quantity"
// becomes "items[0].quantity".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_without":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return "must be at most " + fe.Param()
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at least %s entries", fe.Param())
		}
		return "must be at least " + fe.Param()
	case "excluded_with":
		return "cannot be combined with " + fe.Param()
	default:
		return "is invalid"
	}
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		middleware.GetLogger(r.Context()).Error("failed to encode response", "error", err)
	}
}

// Respond writes v as 200 or, when err is set, the mapped error. Validation
// errors keep their per-field detail.
func Respond(w http.ResponseWriter, r *http.Request, v any, err error) {
	RespondStatus(w, r, http.StatusOK, v, err)
}

// RespondStatus is Respond with an explicit success status.
func RespondStatus(w http.ResponseWriter, r *http.Request, status int, v any, err error) {
	if err != nil {
		ValidationErrorResponse(w, r, err)
		return
	}
	if status == http.StatusNoContent {
		w.WriteHeader(status)
		return
	}
	WriteJSON(w, r, status, v)
}

// PathUUID parses the named path segment as a uuid.
func PathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		return uuid.Nil, domain.Invalid("handler.path", fmt.Sprintf("invalid %s", name))
	}
	return id, nil
}

// QueryUUID parses an optional uuid query parameter. A missing value is nil.
func QueryUUID(r *http.Request, name string) (*uuid.UUID, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, domain.Invalid("handler.query", fmt.Sprintf("invalid %s", name))
	}
	return &id, nil
}

// ListParams reads limit and offset from the query string. Bad values fall
// back to the defaults applied by domain.ListParams.Normalize.
func ListParams(r *http.Request) domain.ListParams {
	q := r.URL.Query()
	limit, _ := strconv.ParseInt(q.Get("limit"), 10, 32)
	offset, _ := strconv.ParseInt(q.Get("offset"), 10, 32)
	return domain.ListParams{Limit: int32(limit), Offset: int32(offset)}
}

// Tenant returns the caller installed by middleware.RequireAuth. Routes
// without auth get the zero value, which every service rejects.
func Tenant(r *http.Request) domain.TenantContext {
	tc, _ := domain.TenantFromContext(r.Context())
	return tc
}

// Date is a calendar date carried as "2006-01-02". Full RFC 3339 timestamps
// are accepted and truncated to their UTC date.
type Date struct {
	time.Time
}

const dateLayout = "2006-01-02"

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		d.Time = time.Time{}
		return nil
	}
	if t, err := time.Parse(dateLayout, s); err == nil {
		d.Time = t
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return fmt.Errorf("date %q must be YYYY-MM-DD", s)
	}
	y, m, dd := t.UTC().Date()
	d.Time = time.Date(y, m, dd, 0, 0, 0, 0, time.UTC)
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.Format(dateLayout) + `"`), nil
}

// Ptr returns nil for a nil or zero date.
func (d *Date) Ptr() *time.Time {
	if d == nil || d.IsZero() {
		return nil
	}
	t := d.Time
	return &t
}
