package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/aims-sectors/internal/allocation"
	"github.com/sells-group/aims-sectors/internal/model"
	"github.com/sells-group/aims-sectors/internal/sector"
	"github.com/sells-group/aims-sectors/internal/store"
)

type selectionResponse struct {
	ActivityID  string                   `json:"activity_id"`
	Value       []string                 `json:"value"`
	Allocations []model.SectorAllocation `json:"allocations"`
	Funding     *float64                 `json:"funding,omitempty"`
	Count       int                      `json:"count"`
	Max         int                      `json:"max"`
	AtCap       bool                     `json:"at_cap"`
	Result      string                   `json:"result,omitempty"`
}

// setSelectionRequest carries either plain codes in Value or codes with
// percentages in Allocations, not both.
type setSelectionRequest struct {
	Value []string `json:"value"`
	// Even assigns an even percentage split across Value.
	Even        bool                     `json:"even"`
	Allocations []model.SectorAllocation `json:"allocations"`
}

type fundingRequest struct {
	// Amount is the activity's total funding. null clears it.
	Amount *float64 `json:"amount"`
}

type toggleRequest struct {
	Code string `json:"code"`
}

func (s *Server) handleGetSelection(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "activityID")
	cur, err := s.store.GetActivitySectors(r.Context(), id)
	if err != nil {
		s.storeError(w, "get activity sectors", err)
		return
	}
	writeJSON(w, http.StatusOK, s.selectionResponse(cur, ""))
}

// handleSetSelection replaces the selection with the request value or
// allocations.
func (s *Server) handleSetSelection(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "activityID")

	var req setSelectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.Allocations) > 0 && (len(req.Value) > 0 || req.Even) {
		jsonError(w, "send either value or allocations, not both", http.StatusBadRequest)
		return
	}

	codes := req.Value
	if len(req.Allocations) > 0 {
		codes = allocation.CodesOf(req.Allocations)
	}
	if unknown := s.index.Unknown(codes); len(unknown) > 0 {
		jsonError(w, "unknown sector codes: "+strings.Join(unknown, ", "), http.StatusUnprocessableEntity)
		return
	}

	sel := s.newSelection()
	if len(dedupe(codes)) > sel.Max() {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error": "too many sectors",
			"max":   sel.Max(),
		})
		return
	}

	var allocs []model.SectorAllocation
	switch {
	case len(req.Allocations) > 0:
		if err := allocation.Validate(req.Allocations); err != nil {
			jsonError(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		allocs = req.Allocations
	case req.Even:
		sel.SetValue(codes)
		allocs = allocation.EvenSplit(sel.Selected())
	default:
		sel.SetValue(codes)
		allocs = allocation.Codes(sel.Selected())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.SetActivitySectors(r.Context(), id, allocs); err != nil {
		s.storeError(w, "set activity sectors", err)
		return
	}
	cur, err := s.store.GetActivitySectors(r.Context(), id)
	if err != nil {
		s.storeError(w, "get activity sectors", err)
		return
	}
	writeJSON(w, http.StatusOK, s.selectionResponse(cur, ""))
}

// handleSetFunding records the activity's funding amount used by the
// funding-weighted chart.
func (s *Server) handleSetFunding(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "activityID")

	var req fundingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.SetActivityFunding(r.Context(), id, req.Amount); err != nil {
		if errors.Is(err, store.ErrNegativeFunding) {
			jsonError(w, "funding must not be negative", http.StatusUnprocessableEntity)
			return
		}
		s.storeError(w, "set activity funding", err)
		return
	}
	cur, err := s.store.GetActivitySectors(r.Context(), id)
	if err != nil {
		s.storeError(w, "get activity sectors", err)
		return
	}
	writeJSON(w, http.StatusOK, s.selectionResponse(cur, ""))
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "activityID")

	var req toggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
		jsonError(w, "code is required", http.StatusBadRequest)
		return
	}
	if _, ok := s.index.Lookup(req.Code); !ok {
		jsonError(w, "unknown sector code: "+req.Code, http.StatusUnprocessableEntity)
		return
	}

	s.mutate(w, r, id, func(sel *sector.Selection) sector.ToggleResult {
		return sel.Toggle(req.Code)
	})
}

// handleRemove is idempotent: removing an unselected code succeeds unchanged.
func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "activityID")
	code := chi.URLParam(r, "code")

	s.mutate(w, r, id, func(sel *sector.Selection) sector.ToggleResult {
		if sel.Remove(code) {
			return sector.Removed
		}
		return sector.Unchanged
	})
}

func (s *Server) handleClearSelection(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "activityID")

	s.mutate(w, r, id, func(sel *sector.Selection) sector.ToggleResult {
		if sel.Count() == 0 {
			return sector.Unchanged
		}
		sel.Clear()
		return sector.Removed
	})
}

// mutate loads the stored selection, applies fn and persists the result
// when it changed. The stored value is loaded whole, so codes kept past a
// lowered cap survive edits to other codes. Percentages are dropped on
// change since they no longer describe the new set of codes.
func (s *Server) mutate(w http.ResponseWriter, r *http.Request, id string, fn func(*sector.Selection) sector.ToggleResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx := r.Context()
	cur, err := s.store.GetActivitySectors(ctx, id)
	if err != nil {
		s.storeError(w, "get activity sectors", err)
		return
	}

	sel := s.newSelection()
	sel.Load(cur.Codes())
	result := fn(sel)

	if result.Changed() {
		cur.Allocations = allocation.Codes(sel.Selected())
		if err := s.persist(ctx, id, cur.Allocations); err != nil {
			s.storeError(w, "set activity sectors", err)
			return
		}
	}
	writeJSON(w, http.StatusOK, s.selectionResponse(cur, result.String()))
}

func (s *Server) persist(ctx context.Context, id string, allocs []model.SectorAllocation) error {
	if err := s.store.SetActivitySectors(ctx, id, allocs); err != nil {
		return eris.Wrapf(err, "api: persist activity %s", id)
	}
	return nil
}

func (s *Server) newSelection() *sector.Selection {
	return sector.NewSelection(s.cfg.Picker.MaxSelections)
}

func (s *Server) selectionResponse(cur *model.ActivitySectors, result string) selectionResponse {
	codes := cur.Codes()
	limit := s.newSelection().Max()
	return selectionResponse{
		ActivityID:  cur.ActivityID,
		Value:       codes,
		Allocations: cur.Allocations,
		Funding:     cur.Funding,
		Count:       len(codes),
		Max:         limit,
		AtCap:       len(codes) >= limit,
		Result:      result,
	}
}

func (s *Server) storeError(w http.ResponseWriter, op string, err error) {
	s.log.Error("store operation failed", zap.String("op", op), zap.Error(err))
	jsonError(w, "failed to "+op, http.StatusInternalServerError)
}

func dedupe(codes []string) []string {
	seen := make(map[string]struct{}, len(codes))
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		if _, ok := seen[c]; ok || c == "" {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}
