package http

import (
	"net/http"
	"time"

	"fintrack/internal/core"
)

// recurringRequest is the wire form of a recurring item. Amounts arrive
// as decimal strings; dates as "YYYY-MM-DD".
type recurringRequest struct {
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	Amount    string `json:"amount"`
	Frequency string `json:"frequency"`
	Category  string `json:"category"`
	Notes     string `json:"notes"`

	Anchor struct {
		Start       core.Date `json:"start"`
		LastRenewal core.Date `json:"lastRenewal"`
		First       core.Date `json:"first"`
		Second      core.Date `json:"second"`
		End         core.Date `json:"end"`
	} `json:"anchor"`
}

type recurringResponse struct {
	ID        int64          `json:"id"`
	Name      string         `json:"name"`
	Kind      core.ItemKind  `json:"kind"`
	Amount    core.Money     `json:"amount"`
	Frequency core.Frequency `json:"frequency"`
	Category  string         `json:"category"`
	Notes     string         `json:"notes"`

	Anchor struct {
		Kind        core.AnchorKind `json:"kind"`
		Start       core.Date       `json:"start,omitempty"`
		LastRenewal core.Date       `json:"lastRenewal,omitempty"`
		First       core.Date       `json:"first,omitempty"`
		Second      core.Date       `json:"second,omitempty"`
		End         core.Date       `json:"end,omitempty"`
	} `json:"anchor"`
}

func toRecurringResponse(item core.RecurringItem) recurringResponse {
	resp := recurringResponse{
		ID:        item.ID,
		Name:      item.Name,
		Kind:      item.Kind,
		Amount:    item.Amount,
		Frequency: item.Frequency,
		Category:  item.Category,
		Notes:     item.Notes,
	}
	resp.Anchor.Kind = item.Anchor.Kind
	resp.Anchor.Start = item.Anchor.Start
	resp.Anchor.LastRenewal = item.Anchor.LastRenewal
	resp.Anchor.First = item.Anchor.First
	resp.Anchor.Second = item.Anchor.Second
	resp.Anchor.End = item.Anchor.End
	return resp
}

// recurringFromRequest assembles and validates a domain item. The anchor
// variant is chosen from (kind, frequency), never trusted from input.
func recurringFromRequest(req recurringRequest) (core.RecurringItem, error) {
	amount, err := core.ParseAmount(req.Amount)
	if err != nil {
		return core.RecurringItem{}, err
	}

	kind := core.ItemKind(req.Kind)
	freq := core.Frequency(req.Frequency)

	var anchor core.Anchor
	switch core.AnchorKindFor(kind, freq) {
	case core.AnchorRenewal:
		anchor = core.RenewalAnchor(req.Anchor.LastRenewal, req.Anchor.End)
	case core.AnchorSemiMonthly:
		anchor = core.SemiMonthlyAnchor(req.Anchor.First, req.Anchor.Second)
	default:
		anchor = core.StartAnchor(req.Anchor.Start)
	}

	item := core.RecurringItem{
		Name:      sanitizeInput(req.Name),
		Kind:      kind,
		Amount:    amount,
		Frequency: freq,
		Anchor:    anchor,
		Category:  sanitizeInput(req.Category),
		Notes:     sanitizeInput(req.Notes),
	}
	if err := item.Validate(); err != nil {
		return core.RecurringItem{}, err
	}
	return item, nil
}

func (s *Server) handleCreateRecurring(w http.ResponseWriter, r *http.Request) {
	var req recurringRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	item, err := recurringFromRequest(req)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	id, err := s.store.CreateRecurringItem(r.Context(), item)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	item.ID = id

	s.invalidateViews(r.Context(), "recurring", id, "created")
	writeJSON(w, http.StatusCreated, toRecurringResponse(item))
}

func (s *Server) handleListRecurring(w http.ResponseWriter, r *http.Request) {
	items, err := s.store.ListRecurringItems(r.Context())
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	out := make([]recurringResponse, 0, len(items))
	for _, item := range items {
		out = append(out, toRecurringResponse(item))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetRecurring(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	item, err := s.store.GetRecurringItem(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRecurringResponse(item))
}

func (s *Server) handleUpdateRecurring(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req recurringRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	item, err := recurringFromRequest(req)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	item.ID = id

	if err := s.store.UpdateRecurringItem(r.Context(), item); err != nil {
		writeStoreError(w, r, err)
		return
	}

	s.invalidateViews(r.Context(), "recurring", id, "updated")
	writeJSON(w, http.StatusOK, toRecurringResponse(item))
}

func (s *Server) handleDeleteRecurring(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.store.DeleteRecurringItem(r.Context(), id); err != nil {
		writeStoreError(w, r, err)
		return
	}

	s.invalidateViews(r.Context(), "recurring", id, "deleted")
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleUpcoming(w http.ResponseWriter, r *http.Request) {
	const key = "upcoming"
	if items, found := s.upcomingCache.Get(key); found {
		writeJSON(w, http.StatusOK, items)
		return
	}

	items, err := s.planner.UpcomingOccurrences(r.Context(), time.Now())
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	s.upcomingCache.Set(key, items)
	writeJSON(w, http.StatusOK, items)
}
