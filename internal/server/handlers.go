package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/evgeniytob14/table/internal/models"
	"github.com/evgeniytob14/table/internal/repository"
	"github.com/evgeniytob14/table/internal/scheduler"
	"github.com/evgeniytob14/table/internal/tracker"
)

type handler struct {
	log *slog.Logger
	svc Service
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"lastUpdate": h.svc.LastUpdate(),
	})
}

func (h *handler) listSources(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.ListSources())
}

func (h *handler) compare(w http.ResponseWriter, r *http.Request) {
	results, err := h.svc.Compare(r.PathValue("from"), r.PathValue("to"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"results":    results,
		"lastUpdate": h.svc.LastUpdate(),
	})
}

func (h *handler) refreshAll(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.ForceRefreshAll(r.Context()))
}

func (h *handler) refreshOne(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ForceRefresh(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *handler) checkItems(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"prices":     h.svc.ItemPrices(req.Name),
		"lastUpdate": h.svc.LastUpdate(),
	})
}

func (h *handler) allPrices(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		writeError(w, http.StatusBadRequest, "name query parameter is required")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"prices":     h.svc.ItemPrices(name),
		"lastUpdate": h.svc.LastUpdate(),
	})
}

func (h *handler) runAlertPass(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	if err := h.svc.RunAlertPass(r.Context()); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "completed",
		"duration": time.Since(started).String(),
	})
}

func (h *handler) listProfiles(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.svc.GetProfiles(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, profiles)
}

func (h *handler) createProfile(w http.ResponseWriter, r *http.Request) {
	var profile models.Profile
	if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id, err := h.svc.CreateProfile(r.Context(), profile)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	profile.ID = id
	writeJSON(w, http.StatusCreated, profile)
}

func (h *handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid profile id")
		return
	}

	var profile models.Profile
	if err = json.NewDecoder(r.Body).Decode(&profile); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	profile.ID = id

	if err = h.svc.UpdateProfile(r.Context(), profile); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

func (h *handler) deleteProfile(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid profile id")
		return
	}

	if err = h.svc.DeleteProfile(r.Context(), id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// writeServiceError maps tracker sentinels to HTTP statuses.
func (h *handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, tracker.ErrUnknownSource),
		errors.Is(err, repository.ErrProfileNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, tracker.ErrSameSource),
		errors.Is(err, tracker.ErrInvalidProfile):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, scheduler.ErrNotRunning):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		h.log.ErrorContext(r.Context(), "request failed",
			"path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// writeJSON marshals v and writes it with the given status. A marshal
// failure falls back to a plain 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data) //nolint:errcheck // nothing to do about a failed response write
}

// writeError sends a JSON-formatted error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
