package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/koios/lockscreenr/internal/generative"
	"github.com/koios/lockscreenr/internal/passcode"
	"github.com/koios/lockscreenr/internal/render"
	"github.com/koios/lockscreenr/internal/session"
	"github.com/koios/lockscreenr/internal/store"
	"github.com/koios/lockscreenr/pkg/models"
	"go.uber.org/zap"
)

// Error kinds reported to clients
const (
	KindValidation   = "validation"
	KindPrecondition = "precondition"
	KindBusy         = "busy"
	KindExternal     = "external"
	KindNotFound     = "not_found"
	KindInternal     = "internal"
)

// maxJSONBody caps JSON request bodies; imports are bounded by MaxUploadMB instead
const maxJSONBody = 1 << 20

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
	Field string `json:"field,omitempty"`
}

var validate = newValidator()

// newValidator reports fields by their json names
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateRequest runs struct tags and normalizes the first failure into a store.ValidationError
func validateRequest(req interface{}) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return err
	}
	fe := ves[0]
	return &store.ValidationError{
		Field:   fe.Field(),
		Message: validationMessage(fe),
	}
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("Field '%s' is required", fe.Field())
	case "oneof":
		return fmt.Sprintf("Field '%s' must be one of: %s", fe.Field(), fe.Param())
	case "min", "max":
		return fmt.Sprintf("Field '%s' must be between 0 and 100", fe.Field())
	case "len":
		return fmt.Sprintf("Field '%s' must be %s characters", fe.Field(), fe.Param())
	case "numeric":
		return fmt.Sprintf("Field '%s' must contain only digits", fe.Field())
	default:
		return fmt.Sprintf("Field '%s' failed '%s' validation", fe.Field(), fe.Tag())
	}
}

// decodeJSON reads a JSON body into dst and validates it
func decodeJSON(r *http.Request, dst interface{}) error {
	if err := decodeBody(r, dst); err != nil {
		return err
	}
	return validateRequest(dst)
}

// decodeBody reads a JSON body into dst. An empty body leaves dst untouched.
func decodeBody(r *http.Request, dst interface{}) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxJSONBody+1))
	if err != nil {
		return &store.ValidationError{Field: "body", Message: "failed to read request body"}
	}
	if len(body) > maxJSONBody {
		return &store.ValidationError{Field: "body", Message: "request body too large"}
	}
	if len(strings.TrimSpace(string(body))) > 0 {
		if err := json.Unmarshal(body, dst); err != nil {
			return &store.ValidationError{Field: "body", Message: fmt.Sprintf("invalid JSON: %v", err)}
		}
	}
	return nil
}

// classify maps domain errors onto a status code and error kind
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, session.ErrSessionNotFound), errors.Is(err, session.ErrPresetNotFound):
		return http.StatusNotFound, KindNotFound
	case errors.Is(err, store.ErrValidation),
		errors.Is(err, models.ErrInvalidConfigFile),
		errors.Is(err, passcode.ErrInvalidDigit),
		errors.Is(err, render.ErrInvalidSurface):
		return http.StatusBadRequest, KindValidation
	case errors.Is(err, generative.ErrNeedsImageBackground):
		return http.StatusConflict, KindPrecondition
	case errors.Is(err, generative.ErrInProgress), errors.Is(err, session.ErrTooManySessions):
		return http.StatusTooManyRequests, KindBusy
	case errors.Is(err, generative.ErrGenerationFailed):
		return http.StatusBadGateway, KindExternal
	default:
		return http.StatusInternalServerError, KindInternal
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, kind := classify(err)

	resp := ErrorResponse{Error: err.Error(), Kind: kind}
	var ve *store.ValidationError
	if errors.As(err, &ve) {
		resp.Error = ve.Message
		resp.Field = ve.Field
	}
	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed",
			zap.Error(err),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path))
		resp.Error = "Internal server error"
	} else {
		h.logger.Debug("Request rejected",
			zap.Error(err),
			zap.String("kind", kind),
			zap.String("path", r.URL.Path))
	}

	if err := writeJSON(w, status, resp); err != nil {
		h.logger.Error("Failed to encode error response", zap.Error(err))
	}
}

func (h *Handler) respond(w http.ResponseWriter, status int, v interface{}) {
	if err := writeJSON(w, status, v); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}
