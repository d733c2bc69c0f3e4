package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sells-group/aims-sectors/internal/allocation"
	"github.com/sells-group/aims-sectors/internal/sector"
)

type treeResponse struct {
	Query      string            `json:"query"`
	Count      int               `json:"count"`
	Categories []sector.Category `json:"categories"`
}

// handleListSectors returns the hierarchy filtered by the q parameter.
func (s *Server) handleListSectors(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	visible := s.filters.Filter(q)
	writeJSON(w, http.StatusOK, treeResponse{
		Query:      q,
		Count:      sector.CountLeaves(visible),
		Categories: visible,
	})
}

func (s *Server) handleGetSector(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	leaf, ok := s.index.Lookup(code)
	if !ok {
		jsonError(w, "unknown sector code: "+code, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, leaf)
}

type sectorActivitiesResponse struct {
	Code       string   `json:"code"`
	Count      int      `json:"count"`
	Activities []string `json:"activities"`
}

// handleSectorActivities lists the activities that selected a subsector.
func (s *Server) handleSectorActivities(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if _, ok := s.index.Lookup(code); !ok {
		jsonError(w, "unknown sector code: "+code, http.StatusNotFound)
		return
	}
	ids, err := s.store.ListActivitiesBySector(r.Context(), code)
	if err != nil {
		s.storeError(w, "list activities by sector", err)
		return
	}
	writeJSON(w, http.StatusOK, sectorActivitiesResponse{Code: code, Count: len(ids), Activities: ids})
}

// handleSectorChart aggregates every stored activity selection. The by
// parameter picks the measure: activities (default) or funding.
func (s *Server) handleSectorChart(w http.ResponseWriter, r *http.Request) {
	measure, err := allocation.ParseMeasure(r.URL.Query().Get("by"))
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	activities, err := s.store.ListAllocations(r.Context())
	if err != nil {
		s.storeError(w, "list allocations", err)
		return
	}
	writeJSON(w, http.StatusOK, allocation.SunburstBy(s.tree, activities, measure))
}
