package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"digytal.com/control/internal/business"
	"digytal.com/control/internal/obs"
)

// envelope is the response body of every /v1 business route.
type envelope struct {
	Status    int    `json:"status"`
	Message   string `json:"message"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	Data      any    `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func respond(w http.ResponseWriter, code int, message string, data any) {
	writeJSON(w, code, envelope{Status: code, Message: message, Data: data})
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	writeErrorCode(w, r, code, "", msg)
}

func writeErrorCode(w http.ResponseWriter, r *http.Request, status int, code, msg string) {
	writeJSON(w, status, envelope{
		Status:    status,
		Message:   msg,
		Code:      code,
		RequestID: RequestIDFromContext(r.Context()),
	})
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, business.ErrRequiredField),
		errors.Is(err, business.ErrMinimumLength),
		errors.Is(err, business.ErrInvalidTaxID),
		errors.Is(err, business.ErrPasswordDefinition):
		return http.StatusBadRequest
	case errors.Is(err, business.ErrIncompatible):
		return http.StatusUnprocessableEntity
	case errors.Is(err, business.ErrInvalidLogin), errors.Is(err, business.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, business.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, business.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, business.ErrPasswordExpired):
		return http.StatusForbidden
	case errors.Is(err, business.ErrUserLocked):
		return http.StatusLocked
	default:
		return http.StatusInternalServerError
	}
}

// handleServiceError maps a service error onto the envelope. Credential
// failures use the bare sentinel text so a missing login is indistinguishable
// from a wrong password.
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	switch {
	case errors.Is(err, business.ErrInvalidLogin):
		msg = business.ErrInvalidLogin.Error()
	case errors.Is(err, business.ErrInvalidToken):
		msg = business.ErrInvalidToken.Error()
	case status == http.StatusInternalServerError:
		obs.Logger().WithError(err).WithField("request_id", RequestIDFromContext(r.Context())).Error("unmapped_error")
		msg = "internal error"
	}
	writeErrorCode(w, r, status, business.Code(err), msg)
}
