package server

import (
	"encoding/json"
	"net/http"

	"github.com/jsphweid/sightreader/model"
	"github.com/pkg/errors"
)

var (
	errBadRequest   = errors.New("bad request")
	errNotInLibrary = errors.New("score not in library")
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest), errors.Is(err, model.ErrInvalidEvent):
		return http.StatusBadRequest
	case errors.Is(err, errNotInLibrary), errors.Is(err, model.ErrMeasureNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrNoScore):
		return http.StatusConflict
	case errors.Is(err, model.ErrInvalidScore):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("server: request failed", "err", err)
	}
	writeJSON(w, status, model.ErrorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
