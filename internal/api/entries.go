package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hearth-home/hearth-core/internal/entry"
	"github.com/hearth-home/hearth-core/internal/logbook"
)

// entryResponse is the wire shape of a config entry. Data and options are
// deliberately omitted: data holds credentials.
type entryResponse struct {
	ID        string    `json:"id"`
	Domain    string    `json:"domain"`
	Title     string    `json:"title"`
	State     string    `json:"state"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func entryJSON(e *entry.ConfigEntry) entryResponse {
	return entryResponse{
		ID:        e.ID,
		Domain:    e.Domain,
		Title:     e.Title,
		State:     string(e.State),
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
}

// handleListEntries returns all config entries with their current states.
func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := s.manager.Entries(r.Context())
	if err != nil {
		writeInternalError(w, err.Error())
		return
	}

	resp := make([]entryResponse, 0, len(entries))
	for i := range entries {
		resp = append(resp, entryJSON(&entries[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": resp, "count": len(resp)})
}

// handleGetEntry returns one config entry.
func (s *Server) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	e, err := s.manager.Entry(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entryJSON(e))
}

// addEntryRequest is the payload for creating a config entry.
type addEntryRequest struct {
	Domain  string         `json:"domain"`
	Title   string         `json:"title"`
	Data    map[string]any `json:"data"`
	Options map[string]any `json:"options"`
}

// handleAddEntry persists a new entry and sets it up. The entry is
// created even when setup defers (unreachable device goes to setup_retry),
// so the response carries whatever state setup reached.
func (s *Server) handleAddEntry(w http.ResponseWriter, r *http.Request) {
	var req addEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Domain == "" {
		writeBadRequest(w, "domain is required")
		return
	}

	e := &entry.ConfigEntry{
		Domain:  req.Domain,
		Title:   req.Title,
		Data:    req.Data,
		Options: req.Options,
	}

	err := s.manager.Add(r.Context(), e)
	switch {
	case errors.Is(err, entry.ErrUnknownDomain):
		writeBadRequest(w, err.Error())
		return
	case errors.Is(err, entry.ErrEntryExists):
		writeError(w, http.StatusConflict, ErrCodeConflict, err.Error())
		return
	case err != nil:
		// Setup failures are not creation failures: the entry is
		// persisted and its state reflects the outcome.
		s.logger.Debug("entry added with deferred setup", "entry", e.ID, "error", err)
	}

	s.record(r.Context(), &logbook.Event{
		Type:    logbook.EventEntryAdded,
		EntryID: e.ID,
		Details: map[string]any{"domain": e.Domain, "state": string(e.State)},
	})
	writeJSON(w, http.StatusCreated, entryJSON(e))
}

// handleRemoveEntry unloads and deletes an entry.
func (s *Server) handleRemoveEntry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.manager.Remove(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	if s.areas != nil {
		if err := s.areas.Assign(r.Context(), id, ""); err != nil {
			s.logger.Warn("clearing area assignment failed", "entry", id, "error", err)
		}
	}
	s.record(r.Context(), &logbook.Event{Type: logbook.EventEntryRemoved, EntryID: id})
	w.WriteHeader(http.StatusNoContent)
}

// handleReloadEntry tears an entry down and sets it up again.
func (s *Server) handleReloadEntry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.manager.Reload(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}

	e, err := s.manager.Entry(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entryJSON(e))
}

// reauthRequest carries fresh credentials for a needs-reauth entry.
type reauthRequest struct {
	Data map[string]any `json:"data"`
}

// handleReauthEntry merges fresh credentials into the entry's data and
// reloads it. This is how a needs_reauth entry comes back to loaded.
func (s *Server) handleReauthEntry(w http.ResponseWriter, r *http.Request) {
	var req reauthRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if len(req.Data) == 0 {
		writeBadRequest(w, "data is required")
		return
	}

	id := chi.URLParam(r, "id")
	if err := s.manager.Reauth(r.Context(), id, req.Data); err != nil {
		writeDomainError(w, err)
		return
	}

	e, err := s.manager.Entry(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	s.record(r.Context(), &logbook.Event{
		Type:    logbook.EventReauthOK,
		EntryID: id,
		Details: map[string]any{"state": string(e.State)},
	})
	writeJSON(w, http.StatusOK, entryJSON(e))
}

// handleRefreshEntry asks the entry's coordinators for a debounced
// refresh. The refresh itself runs in the background.
func (s *Server) handleRefreshEntry(w http.ResponseWriter, r *http.Request) {
	if err := s.manager.RequestRefresh(chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"status": "refresh requested"})
}
