package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/hyperjump/sectionkit/internal/ai"
	"github.com/hyperjump/sectionkit/internal/editor"
	"github.com/hyperjump/sectionkit/internal/extract"
	"github.com/hyperjump/sectionkit/internal/pipeline"
	"github.com/hyperjump/sectionkit/internal/sections"
	"github.com/hyperjump/sectionkit/internal/storage"
)

// errorStatus maps package errors to HTTP status codes.
var errorStatus = []struct {
	err    error
	status int
}{
	{storage.ErrNotFound, http.StatusNotFound},
	{editor.ErrSectionNotFound, http.StatusNotFound},
	{storage.ErrRevisionConflict, http.StatusConflict},
	{editor.ErrSaveInProgress, http.StatusConflict},
	{extract.ErrUnsupportedFormat, http.StatusUnsupportedMediaType},
	{pipeline.ErrExtensionNotAllowed, http.StatusUnsupportedMediaType},
	{extract.ErrFileTooLarge, http.StatusRequestEntityTooLarge},
	{extract.ErrEmptyDocument, http.StatusUnprocessableEntity},
	{ai.ErrEmptyInput, http.StatusBadRequest},
	{sections.ErrUnknownType, http.StatusBadRequest},
	{sections.ErrUnknownField, http.StatusBadRequest},
	{sections.ErrEmptySection, http.StatusBadRequest},
	{editor.ErrIndexOutOfRange, http.StatusBadRequest},
	{editor.ErrInvalidMode, http.StatusBadRequest},
	{editor.ErrRepeaterFull, http.StatusUnprocessableEntity},
	{sections.ErrNoJSON, http.StatusBadGateway},
	{sections.ErrNoValidSections, http.StatusBadGateway},
	{ai.ErrEmptyResponse, http.StatusBadGateway},
	{ai.ErrMissingAPIKey, http.StatusServiceUnavailable},
	{ai.ErrUnknownProvider, http.StatusServiceUnavailable},
	{context.DeadlineExceeded, http.StatusGatewayTimeout},
}

func statusFor(err error) int {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			return e.status
		}
	}
	return http.StatusInternalServerError
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

// respondErr writes err with the status it maps to. Unmapped errors are logged.
func (s *Server) respondErr(w http.ResponseWriter, msg string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(msg, zap.Error(err))
	} else {
		s.logger.Debug(msg, zap.Error(err))
	}
	s.respondError(w, status, err.Error())
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// decodeOptional decodes a JSON body if one was sent.
func decodeOptional(r *http.Request, v interface{}) error {
	if r.Body == nil || r.ContentLength == 0 {
		return errors.New("empty body")
	}
	return json.NewDecoder(r.Body).Decode(v)
}
