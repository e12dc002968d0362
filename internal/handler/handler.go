// Package handler is the JSON HTTP surface over a session's household
// state store.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dukerupert/pawtrack/internal/model"
	"github.com/dukerupert/pawtrack/internal/session"
	"github.com/dukerupert/pawtrack/internal/state"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusFor maps an error kind to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrNotAuthorized), errors.Is(err, model.ErrSelfAcceptNotAllowed):
		return http.StatusForbidden
	case errors.Is(err, model.ErrInvalidState), errors.Is(err, model.ErrAlreadyAccepted), errors.Is(err, model.ErrNoActiveWalk):
		return http.StatusConflict
	case errors.Is(err, model.ErrMissingStartTime):
		return http.StatusUnprocessableEntity
	case errors.Is(err, model.ErrPersistenceUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func fail(w http.ResponseWriter, logger *slog.Logger, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error("request failed", "error", err)
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return false
	}
	return true
}

// storeOf returns the request's session store. The session middleware
// guarantees one is present.
func storeOf(r *http.Request) *state.Store {
	s, _ := session.FromContext(r.Context())
	return s
}

// apply dispatches a against the request's session and writes the error
// response when it is rejected.
func apply(w http.ResponseWriter, r *http.Request, logger *slog.Logger, a state.Action) (state.Result, bool) {
	res, err := storeOf(r).Dispatch(a)
	if err != nil {
		fail(w, logger, err)
		return res, false
	}
	return res, true
}

func walkByID(s model.HouseholdState, id string) (model.Walk, bool) {
	if i := s.WalkIndex(id); i >= 0 {
		return s.Walks[i], true
	}
	return model.Walk{}, false
}

func memberByID(s model.HouseholdState, id string) (model.Member, bool) {
	if i := s.MemberIndex(id); i >= 0 {
		return s.Members[i], true
	}
	return model.Member{}, false
}
