package httpx

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/odyssey-erp/odyssey-iam/internal/shared"
)

// ErrorResponse is the body written for every failed request.
type ErrorResponse struct {
	Errors []shared.FieldError `json:"errors"`
}

// Responder is the single error channel for gates and handlers.
type Responder struct {
	Logger *slog.Logger
	// UnknownStatus is used for errors that carry no classification.
	UnknownStatus int
	// OnCritical runs after a non-operational error has been answered.
	OnCritical func(error)
}

// NewResponder constructs a Responder with the 400 default for unclassified errors.
func NewResponder(logger *slog.Logger, onCritical func(error)) *Responder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Responder{Logger: logger, UnknownStatus: http.StatusBadRequest, OnCritical: onCritical}
}

// StatusFor maps an error kind to its HTTP status.
func (r *Responder) StatusFor(kind shared.Kind) int {
	switch kind {
	case shared.KindValidation, shared.KindBadRequest:
		return http.StatusBadRequest
	case shared.KindNotAuthorized:
		return http.StatusUnauthorized
	case shared.KindNotFound:
		return http.StatusNotFound
	case shared.KindSystem, shared.KindCritical:
		return http.StatusInternalServerError
	default:
		if r != nil && r.UnknownStatus != 0 {
			return r.UnknownStatus
		}
		return http.StatusBadRequest
	}
}

// Error maps err to a status code and writes the serialised error list.
func (r *Responder) Error(w http.ResponseWriter, req *http.Request, err error) {
	logger := slog.Default()
	if r != nil && r.Logger != nil {
		logger = r.Logger
	}
	var appErr *shared.Error
	if !errors.As(err, &appErr) {
		logger.Error("unclassified error", slog.String("path", req.URL.Path), slog.Any("error", err))
		JSON(w, r.StatusFor(shared.KindUnknown), ErrorResponse{Errors: []shared.FieldError{{Message: "Something went wrong"}}})
		return
	}

	status := r.StatusFor(appErr.Kind)
	switch appErr.Kind {
	case shared.KindSystem:
		logger.Error("system error", slog.String("path", req.URL.Path), slog.Any("error", err))
		JSON(w, status, ErrorResponse{Errors: []shared.FieldError{{Message: appErr.Message}}})
		return
	case shared.KindCritical:
		logger.Error("critical system error", slog.String("path", req.URL.Path), slog.Any("error", err))
		JSON(w, status, ErrorResponse{Errors: []shared.FieldError{{Message: "System error"}}})
		if r != nil && r.OnCritical != nil {
			r.OnCritical(err)
		}
		return
	}
	JSON(w, status, ErrorResponse{Errors: appErr.Entries()})
}
