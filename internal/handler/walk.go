package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/pawtrack/internal/schedule"
	"github.com/dukerupert/pawtrack/internal/state"
	"github.com/dukerupert/pawtrack/internal/walk"
)

type WalkHandler struct {
	logger *slog.Logger
	clock  func() time.Time
}

func NewWalkHandler(logger *slog.Logger) *WalkHandler {
	return &WalkHandler{logger: logger, clock: func() time.Time { return time.Now().UTC() }}
}

// List handles GET /api/walks. ?member= filters by assignee.
func (h *WalkHandler) List(w http.ResponseWriter, r *http.Request) {
	snap := storeOf(r).Snapshot()
	member := r.URL.Query().Get("member")
	if member == "" {
		writeJSON(w, http.StatusOK, snap.Walks)
		return
	}
	out := snap.Walks[:0:0]
	for _, wk := range snap.Walks {
		if wk.AssignedTo == member {
			out = append(out, wk)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// Today handles GET /api/walks/today
func (h *WalkHandler) Today(w http.ResponseWriter, r *http.Request) {
	snap := storeOf(r).Snapshot()
	wk, ok := schedule.TodaysWalk(snap.Walks, snap.CurrentUser, h.clock())
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"walk": nil})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"walk": wk})
}

// Current handles GET /api/walks/current
func (h *WalkHandler) Current(w http.ResponseWriter, r *http.Request) {
	snap := storeOf(r).Snapshot()
	wk, ok := snap.CurrentWalk()
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"walk": nil})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"walk": wk})
}

// Create handles POST /api/walks
func (h *WalkHandler) Create(w http.ResponseWriter, r *http.Request) {
	var d schedule.Draft
	if !decode(w, r, &d) {
		return
	}
	res, ok := apply(w, r, h.logger, state.AddWalk{Draft: d})
	if !ok {
		return
	}
	wk, _ := walkByID(res.State, res.Subject)
	writeJSON(w, http.StatusCreated, wk)
}

type updateWalkRequest struct {
	Date       *time.Time `json:"date"`
	AssignedTo *string    `json:"assigned_to"`
}

// Update handles PUT /api/walks/{id}. A new date is applied before a new
// assignee; if the reassignment is rejected the reschedule stands.
func (h *WalkHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req updateWalkRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Date == nil && req.AssignedTo == nil {
		writeError(w, http.StatusBadRequest, "date or assigned_to is required")
		return
	}

	var res state.Result
	var ok bool
	if req.Date != nil {
		if res, ok = apply(w, r, h.logger, state.RescheduleWalk{WalkID: id, Date: *req.Date}); !ok {
			return
		}
	}
	if req.AssignedTo != nil {
		if res, ok = apply(w, r, h.logger, state.ReassignWalk{WalkID: id, MemberID: *req.AssignedTo}); !ok {
			return
		}
	}
	wk, _ := walkByID(res.State, id)
	writeJSON(w, http.StatusOK, wk)
}

// Delete handles DELETE /api/walks/{id}
func (h *WalkHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if _, ok := apply(w, r, h.logger, state.RemoveWalk{WalkID: r.PathValue("id")}); !ok {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *WalkHandler) transition(w http.ResponseWriter, r *http.Request, a state.Action) {
	res, ok := apply(w, r, h.logger, a)
	if !ok {
		return
	}
	wk, _ := walkByID(res.State, r.PathValue("id"))
	writeJSON(w, http.StatusOK, wk)
}

// Start handles POST /api/walks/{id}/start
func (h *WalkHandler) Start(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, state.StartWalk{WalkID: r.PathValue("id")})
}

// Confirm handles POST /api/walks/{id}/confirm
func (h *WalkHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, state.ConfirmWalk{WalkID: r.PathValue("id")})
}

// Swap handles POST /api/walks/{id}/swap
func (h *WalkHandler) Swap(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, state.RequestSwap{WalkID: r.PathValue("id")})
}

// Cover handles POST /api/walks/{id}/cover
func (h *WalkHandler) Cover(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, state.RequestCover{WalkID: r.PathValue("id")})
}

// End handles POST /api/walks/current/end
func (h *WalkHandler) End(w http.ResponseWriter, r *http.Request) {
	var c walk.Completion
	if !decode(w, r, &c) {
		return
	}
	res, ok := apply(w, r, h.logger, state.EndWalk{Completion: c})
	if !ok {
		return
	}
	wk, _ := walkByID(res.State, res.Subject)
	writeJSON(w, http.StatusOK, wk)
}
