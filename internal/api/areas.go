package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hearth-home/hearth-core/internal/area"
	"github.com/hearth-home/hearth-core/internal/entry"
	"github.com/hearth-home/hearth-core/internal/logbook"
)

// requireAreas guards area routes when no registry is configured.
func (s *Server) requireAreas(w http.ResponseWriter) bool {
	if s.areas == nil {
		writeError(w, http.StatusNotImplemented, ErrCodeInternal, "area registry not configured")
		return false
	}
	return true
}

// handleListAreas returns all areas.
func (s *Server) handleListAreas(w http.ResponseWriter, r *http.Request) {
	if !s.requireAreas(w) {
		return
	}
	areas, err := s.areas.List(r.Context())
	if err != nil {
		writeInternalError(w, err.Error())
		return
	}
	if areas == nil {
		areas = []area.Area{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"areas": areas, "count": len(areas)})
}

// areaRequest is the payload for creating or updating an area.
type areaRequest struct {
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	SortOrder int    `json:"sort_order"`
}

// handleCreateArea creates a new area.
func (s *Server) handleCreateArea(w http.ResponseWriter, r *http.Request) {
	if !s.requireAreas(w) {
		return
	}
	var req areaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	a := &area.Area{Name: req.Name, Slug: req.Slug, SortOrder: req.SortOrder}
	if err := s.areas.Create(r.Context(), a); err != nil {
		writeAreaError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// handleGetArea returns one area with its member config entries.
func (s *Server) handleGetArea(w http.ResponseWriter, r *http.Request) {
	if !s.requireAreas(w) {
		return
	}
	id := chi.URLParam(r, "id")

	a, err := s.areas.Get(r.Context(), id)
	if err != nil {
		writeAreaError(w, err)
		return
	}
	members, err := s.areas.Members(r.Context(), id)
	if err != nil {
		writeInternalError(w, err.Error())
		return
	}
	if members == nil {
		members = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"area": a, "entries": members})
}

// handleUpdateArea renames or reorders an area.
func (s *Server) handleUpdateArea(w http.ResponseWriter, r *http.Request) {
	if !s.requireAreas(w) {
		return
	}
	var req areaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	a := &area.Area{
		ID:        chi.URLParam(r, "id"),
		Name:      req.Name,
		Slug:      req.Slug,
		SortOrder: req.SortOrder,
	}
	if err := s.areas.Update(r.Context(), a); err != nil {
		writeAreaError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// handleDeleteArea removes an area and clears its assignments.
func (s *Server) handleDeleteArea(w http.ResponseWriter, r *http.Request) {
	if !s.requireAreas(w) {
		return
	}
	if err := s.areas.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeAreaError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// assignAreaRequest sets a config entry's area; an empty area_id clears it.
type assignAreaRequest struct {
	AreaID string `json:"area_id"`
}

// handleAssignEntryArea assigns a config entry to an area.
func (s *Server) handleAssignEntryArea(w http.ResponseWriter, r *http.Request) {
	if !s.requireAreas(w) {
		return
	}

	var req assignAreaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	entryID := chi.URLParam(r, "id")
	if _, err := s.manager.Entry(r.Context(), entryID); err != nil {
		writeDomainError(w, err)
		return
	}
	if err := s.areas.Assign(r.Context(), entryID, req.AreaID); err != nil {
		writeAreaError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entry_id": entryID, "area_id": req.AreaID})
}

// handleLogbook returns the event trail, newest first.
func (s *Server) handleLogbook(w http.ResponseWriter, r *http.Request) {
	if s.logbook == nil {
		writeError(w, http.StatusNotImplemented, ErrCodeInternal, "logbook not configured")
		return
	}
	q := r.URL.Query()
	filter := logbook.Filter{
		Type:     q.Get("type"),
		EntryID:  q.Get("entry_id"),
		EntityID: q.Get("entity_id"),
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeBadRequest(w, "limit must be an integer")
			return
		}
		filter.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeBadRequest(w, "offset must be an integer")
			return
		}
		filter.Offset = n
	}

	result, err := s.logbook.List(r.Context(), filter)
	if err != nil {
		writeInternalError(w, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// writeAreaError maps area registry errors onto the error envelope.
func writeAreaError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, area.ErrAreaNotFound):
		writeError(w, http.StatusNotFound, ErrCodeNotFound, err.Error())
	case errors.Is(err, area.ErrInvalidArea):
		writeBadRequest(w, err.Error())
	case errors.Is(err, area.ErrSlugExists):
		writeError(w, http.StatusConflict, ErrCodeConflict, err.Error())
	case errors.Is(err, entry.ErrEntryNotFound):
		writeError(w, http.StatusNotFound, ErrCodeNotFound, err.Error())
	default:
		writeInternalError(w, err.Error())
	}
}
