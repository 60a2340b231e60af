package httpapi

import (
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/John-Robertt/vless2clash/internal/compiler"
	"github.com/John-Robertt/vless2clash/internal/fetch"
	"github.com/John-Robertt/vless2clash/internal/iplookup"
	"github.com/John-Robertt/vless2clash/internal/model"
	"github.com/John-Robertt/vless2clash/internal/render"
	"github.com/John-Robertt/vless2clash/internal/sub/vless"
)

// APIError is used by the HTTP layer for request validation and a few
// HTTP-specific errors.
type APIError struct {
	Status   int
	AppError model.AppError
	Cause    error
}

func (e *APIError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.AppError.Code, e.AppError.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.AppError.Code, e.AppError.Message, e.Cause)
}

func (e *APIError) Unwrap() error { return e.Cause }

func apiError(status int, app model.AppError, cause error) error {
	return &APIError{Status: status, AppError: app, Cause: cause}
}

func requestAppError(code, message string) model.AppError {
	return model.AppError{
		Code:    code,
		Message: message,
		Stage:   "validate_request",
	}
}

func requestError(code, message, hint string) error {
	app := requestAppError(code, message)
	app.Hint = hint
	return apiError(http.StatusBadRequest, app, nil)
}

// classify maps err onto the HTTP status and payload sent to the client.
func classify(err error) (int, model.AppError) {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.Status, ae.AppError
	}

	var fe *fetch.FetchError
	if errors.As(err, &fe) {
		return fe.Status, fe.AppError
	}

	var le *iplookup.LookupError
	if errors.As(err, &le) {
		return le.Status, le.AppError
	}

	// Parse/compile/render errors are user content errors => 422.
	var pe *vless.ParseError
	if errors.As(err, &pe) {
		return http.StatusUnprocessableEntity, pe.AppError
	}

	var ce *compiler.CompileError
	if errors.As(err, &ce) {
		return http.StatusUnprocessableEntity, ce.AppError
	}

	var re *render.RenderError
	if errors.As(err, &re) {
		return http.StatusUnprocessableEntity, re.AppError
	}

	// Fallback: internal bug.
	return http.StatusInternalServerError, model.AppError{
		Code:    "INTERNAL_ERROR",
		Message: "internal server error",
		Stage:   "internal",
	}
}

func (s *server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}
	status, app := classify(err)
	s.metrics.incAppError(app.Stage, app.Code)

	fields := []zap.Field{
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
		zap.String("stage", app.Stage),
		zap.String("code", app.Code),
		zap.Error(err),
	}
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", fields...)
	} else {
		s.log.Debug("request rejected", fields...)
	}

	WriteError(w, status, app)
}
