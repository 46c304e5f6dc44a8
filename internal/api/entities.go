package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hearth-home/hearth-core/internal/entity"
	"github.com/hearth-home/hearth-core/internal/logbook"
)

// entityResponse is the wire shape of an entity.
type entityResponse struct {
	ID          string       `json:"id"`
	EntryID     string       `json:"entry_id"`
	Key         string       `json:"key"`
	Name        string       `json:"name"`
	Kind        string       `json:"kind"`
	Unit        string       `json:"unit,omitempty"`
	Options     []string     `json:"options,omitempty"`
	State       entity.Value `json:"state"`
	Available   bool         `json:"available"`
	Writable    bool         `json:"writable"`
	LastUpdated time.Time    `json:"last_updated"`
}

func entityJSON(h entity.Handle) entityResponse {
	return entityResponse{
		ID:          h.ID(),
		EntryID:     h.EntryID(),
		Key:         h.Key(),
		Name:        h.Name(),
		Kind:        string(h.Kind()),
		Unit:        h.Unit(),
		Options:     h.Options(),
		State:       h.State(),
		Available:   h.Available(),
		Writable:    h.Writable(),
		LastUpdated: h.LastUpdated(),
	}
}

// handleListEntities returns every loaded entry's entities.
func (s *Server) handleListEntities(w http.ResponseWriter, _ *http.Request) {
	handles := s.manager.Entities()

	resp := make([]entityResponse, 0, len(handles))
	for _, h := range handles {
		resp = append(resp, entityJSON(h))
	}
	writeJSON(w, http.StatusOK, map[string]any{"entities": resp, "count": len(resp)})
}

// handleGetEntity returns one entity's current state.
func (s *Server) handleGetEntity(w http.ResponseWriter, r *http.Request) {
	h, err := s.manager.Entity(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entityJSON(h))
}

// setStateRequest carries the new value for a writable entity.
type setStateRequest struct {
	Value entity.Value `json:"value"`
}

// handleSetEntityState writes a value through the entity's device client.
// A device rejection answers 409 with the device's reason verbatim; an
// unreachable device answers 502 and leaves the displayed state alone.
func (s *Server) handleSetEntityState(w http.ResponseWriter, r *http.Request) {
	h, err := s.manager.Entity(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	var req setStateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := h.Set(r.Context(), req.Value); err != nil {
		writeDomainError(w, err)
		return
	}

	s.record(r.Context(), &logbook.Event{
		Type:     logbook.EventEntityWrite,
		EntryID:  h.EntryID(),
		EntityID: h.ID(),
		Details:  map[string]any{"value": req.Value},
	})
	writeJSON(w, http.StatusOK, entityJSON(h))
}

// handleEntityHistory returns an entity's recent recorded changes.
func (s *Server) handleEntityHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotImplemented, ErrCodeInternal, "history recording is disabled")
		return
	}

	id := chi.URLParam(r, "id")
	if _, err := s.manager.Entity(id); err != nil {
		writeDomainError(w, err)
		return
	}

	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeBadRequest(w, "limit must be a positive integer")
			return
		}
		limit = n
	}

	records, err := s.history.Recent(r.Context(), id, limit)
	if err != nil {
		writeInternalError(w, err.Error())
		return
	}

	type historyRow struct {
		State      entity.Value `json:"state"`
		Available  bool         `json:"available"`
		RecordedAt time.Time    `json:"recorded_at"`
	}
	rows := make([]historyRow, 0, len(records))
	for _, rec := range records {
		rows = append(rows, historyRow{
			State:      rec.State,
			Available:  rec.Available,
			RecordedAt: rec.RecordedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"entity_id": id, "history": rows, "count": len(rows)})
}
