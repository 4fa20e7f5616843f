package http

import (
	"net/http"
	"time"

	"fintrack/internal/core"
)

type debtRequest struct {
	Name             string  `json:"name"`
	Kind             string  `json:"kind"`
	Balance          string  `json:"balance"`
	APR              float64 `json:"apr"`
	MinimumPayment   string  `json:"minimumPayment"`
	PaymentDay       int     `json:"paymentDay"`
	PaymentFrequency string  `json:"paymentFrequency"`
}

type debtResponse struct {
	ID               int64                 `json:"id"`
	Name             string                `json:"name"`
	Kind             core.DebtKind         `json:"kind"`
	Balance          core.Money            `json:"balance"`
	APR              float64               `json:"apr"`
	MinimumPayment   core.Money            `json:"minimumPayment"`
	PaymentDay       int                   `json:"paymentDay"`
	PaymentFrequency core.PaymentFrequency `json:"paymentFrequency"`
	CreatedAt        core.Date             `json:"createdAt"`
}

func toDebtResponse(d core.DebtAccount) debtResponse {
	return debtResponse{
		ID:               d.ID,
		Name:             d.Name,
		Kind:             d.Kind,
		Balance:          d.Balance,
		APR:              d.APR,
		MinimumPayment:   d.MinimumPayment,
		PaymentDay:       d.PaymentDay,
		PaymentFrequency: d.PaymentFrequency,
		CreatedAt:        core.DateOf(d.CreatedAt),
	}
}

func debtFromRequest(req debtRequest) (core.DebtAccount, error) {
	// A zero balance is a valid, already-paid debt; ParseAmount rejects
	// it, so parse only non-empty positive input.
	balance := core.Money{}
	if req.Balance != "" && req.Balance != "0" && req.Balance != "0.00" {
		parsed, err := core.ParseAmount(req.Balance)
		if err != nil {
			return core.DebtAccount{}, err
		}
		balance = parsed
	}
	minimum, err := core.ParseAmount(req.MinimumPayment)
	if err != nil {
		return core.DebtAccount{}, err
	}

	debt := core.DebtAccount{
		Name:             sanitizeInput(req.Name),
		Kind:             core.DebtKind(req.Kind),
		Balance:          balance,
		APR:              req.APR,
		MinimumPayment:   minimum,
		PaymentDay:       req.PaymentDay,
		PaymentFrequency: core.PaymentFrequency(req.PaymentFrequency),
	}
	if err := debt.Validate(); err != nil {
		return core.DebtAccount{}, err
	}
	return debt, nil
}

func (s *Server) handleCreateDebt(w http.ResponseWriter, r *http.Request) {
	var req debtRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	debt, err := debtFromRequest(req)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	debt.CreatedAt = time.Now().UTC()

	id, err := s.store.CreateDebt(r.Context(), debt)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	debt.ID = id

	s.invalidateViews(r.Context(), "debt", id, "created")
	writeJSON(w, http.StatusCreated, toDebtResponse(debt))
}

func (s *Server) handleListDebts(w http.ResponseWriter, r *http.Request) {
	debts, err := s.store.ListDebts(r.Context())
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	out := make([]debtResponse, 0, len(debts))
	for _, d := range debts {
		out = append(out, toDebtResponse(d))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetDebt(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	debt, err := s.store.GetDebt(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDebtResponse(debt))
}

func (s *Server) handleUpdateDebt(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req debtRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	debt, err := debtFromRequest(req)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	debt.ID = id

	if err := s.store.UpdateDebt(r.Context(), debt); err != nil {
		writeStoreError(w, r, err)
		return
	}

	s.invalidateViews(r.Context(), "debt", id, "updated")
	writeJSON(w, http.StatusOK, toDebtResponse(debt))
}

func (s *Server) handleDeleteDebt(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.store.DeleteDebt(r.Context(), id); err != nil {
		writeStoreError(w, r, err)
		return
	}

	s.invalidateViews(r.Context(), "debt", id, "deleted")
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleDebtPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := s.planner.UpcomingDebtPayments(r.Context(), time.Now())
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payments)
}

func (s *Server) handlePayoffPlan(w http.ResponseWriter, r *http.Request) {
	strategy := core.Strategy(r.URL.Query().Get("strategy"))
	if strategy == "" {
		strategy = core.Snowball
	}
	if !strategy.IsValid() {
		writeError(w, http.StatusBadRequest, "strategy must be snowball or avalanche")
		return
	}

	plan, err := s.planner.PayoffPlan(r.Context(), strategy, time.Now())
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (s *Server) handlePayoffCompare(w http.ResponseWriter, r *http.Request) {
	comparison, err := s.planner.ComparePlans(r.Context(), time.Now())
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, comparison)
}
