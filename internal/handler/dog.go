package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/pawtrack/internal/model"
	"github.com/dukerupert/pawtrack/internal/state"
)

type DogHandler struct {
	logger *slog.Logger
}

func NewDogHandler(logger *slog.Logger) *DogHandler {
	return &DogHandler{logger: logger}
}

// Get handles GET /api/dog
func (h *DogHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, storeOf(r).Snapshot().Dog)
}

// Update handles PUT /api/dog
func (h *DogHandler) Update(w http.ResponseWriter, r *http.Request) {
	var d model.Dog
	if !decode(w, r, &d) {
		return
	}
	d.Name = strings.TrimSpace(d.Name)
	if d.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	res, ok := apply(w, r, h.logger, state.UpdateDog{Dog: d})
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, res.State.Dog)
}
