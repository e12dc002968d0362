package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/pawtrack/internal/state"
	"github.com/dukerupert/pawtrack/internal/stats"
)

type MemberHandler struct {
	logger *slog.Logger
}

func NewMemberHandler(logger *slog.Logger) *MemberHandler {
	return &MemberHandler{logger: logger}
}

// List handles GET /api/members
func (h *MemberHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, storeOf(r).Snapshot().Members)
}

// Create handles POST /api/members
func (h *MemberHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req state.AddMember
	if !decode(w, r, &req) {
		return
	}
	req.MemberName = strings.TrimSpace(req.MemberName)
	if req.MemberName == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	res, ok := apply(w, r, h.logger, req)
	if !ok {
		return
	}
	m, _ := memberByID(res.State, res.Subject)
	writeJSON(w, http.StatusCreated, m)
}

// Delete handles DELETE /api/members/{id}. Walks of the removed member
// move to the returned fallback member.
func (h *MemberHandler) Delete(w http.ResponseWriter, r *http.Request) {
	res, ok := apply(w, r, h.logger, state.RemoveMember{MemberID: r.PathValue("id")})
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"reassigned_to": res.Subject})
}

type grantRequest struct {
	Label string `json:"label"`
}

// Grant handles POST /api/members/{id}/achievements
func (h *MemberHandler) Grant(w http.ResponseWriter, r *http.Request) {
	var req grantRequest
	if !decode(w, r, &req) {
		return
	}
	req.Label = strings.TrimSpace(req.Label)
	if req.Label == "" {
		writeError(w, http.StatusBadRequest, "label is required")
		return
	}
	res, ok := apply(w, r, h.logger, state.GrantAchievement{MemberID: r.PathValue("id"), Label: req.Label})
	if !ok {
		return
	}
	m, _ := memberByID(res.State, res.Subject)
	writeJSON(w, http.StatusOK, m)
}

// Achievements handles GET /api/achievements
func (h *MemberHandler) Achievements(w http.ResponseWriter, r *http.Request) {
	snap := storeOf(r).Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"badges":  stats.Derived(snap.Members, snap.Walks),
		"members": stats.Summarize(snap.Members, snap.Walks),
	})
}
