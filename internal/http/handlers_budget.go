package http

import (
	"net/http"
	"strconv"
	"time"

	"fintrack/internal/budget"
	"fintrack/internal/core"
)

type goalRequest struct {
	Name                string    `json:"name"`
	TargetAmount        string    `json:"targetAmount"`
	SavedAmount         string    `json:"savedAmount"`
	MonthlyContribution string    `json:"monthlyContribution"`
	TargetDate          core.Date `json:"targetDate"`
}

type goalResponse struct {
	ID                  int64      `json:"id"`
	Name                string     `json:"name"`
	TargetAmount        core.Money `json:"targetAmount"`
	SavedAmount         core.Money `json:"savedAmount"`
	MonthlyContribution core.Money `json:"monthlyContribution"`
	TargetDate          core.Date  `json:"targetDate"`
}

func toGoalResponse(g core.FinancialGoal) goalResponse {
	return goalResponse{
		ID:                  g.ID,
		Name:                g.Name,
		TargetAmount:        g.TargetAmount,
		SavedAmount:         g.SavedAmount,
		MonthlyContribution: g.MonthlyContribution,
		TargetDate:          g.TargetDate,
	}
}

// parseOptionalAmount accepts empty and zero input for fields that may
// legitimately be zero, unlike ParseAmount.
func parseOptionalAmount(s string) (core.Money, error) {
	if s == "" || s == "0" || s == "0.00" {
		return core.Money{}, nil
	}
	return core.ParseAmount(s)
}

func goalFromRequest(req goalRequest) (core.FinancialGoal, error) {
	target, err := core.ParseAmount(req.TargetAmount)
	if err != nil {
		return core.FinancialGoal{}, err
	}
	saved, err := parseOptionalAmount(req.SavedAmount)
	if err != nil {
		return core.FinancialGoal{}, err
	}
	monthly, err := parseOptionalAmount(req.MonthlyContribution)
	if err != nil {
		return core.FinancialGoal{}, err
	}

	goal := core.FinancialGoal{
		Name:                sanitizeInput(req.Name),
		TargetAmount:        target,
		SavedAmount:         saved,
		MonthlyContribution: monthly,
		TargetDate:          req.TargetDate,
	}
	if err := goal.Validate(); err != nil {
		return core.FinancialGoal{}, err
	}
	return goal, nil
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	var req goalRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	goal, err := goalFromRequest(req)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	id, err := s.store.CreateGoal(r.Context(), goal)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	goal.ID = id

	s.invalidateViews(r.Context(), "goal", id, "created")
	writeJSON(w, http.StatusCreated, toGoalResponse(goal))
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	goals, err := s.store.ListGoals(r.Context())
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	out := make([]goalResponse, 0, len(goals))
	for _, g := range goals {
		out = append(out, toGoalResponse(g))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleUpdateGoal(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req goalRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	goal, err := goalFromRequest(req)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	goal.ID = id

	if err := s.store.UpdateGoal(r.Context(), goal); err != nil {
		writeStoreError(w, r, err)
		return
	}

	s.invalidateViews(r.Context(), "goal", id, "updated")
	writeJSON(w, http.StatusOK, toGoalResponse(goal))
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.store.DeleteGoal(r.Context(), id); err != nil {
		writeStoreError(w, r, err)
		return
	}

	s.invalidateViews(r.Context(), "goal", id, "deleted")
	writeJSON(w, http.StatusNoContent, nil)
}

type allocationRequest struct {
	Category string `json:"category"`
	Year     int    `json:"year"`
	Month    int    `json:"month"`
	Planned  string `json:"planned"`
	Spent    string `json:"spent"`
}

type allocationResponse struct {
	ID       int64      `json:"id"`
	Category string     `json:"category"`
	Year     int        `json:"year"`
	Month    int        `json:"month"`
	Planned  core.Money `json:"planned"`
	Spent    core.Money `json:"spent"`
}

func toAllocationResponse(a core.BudgetAllocation) allocationResponse {
	return allocationResponse{
		ID:       a.ID,
		Category: a.Category,
		Year:     a.Year,
		Month:    a.Month,
		Planned:  a.Planned,
		Spent:    a.Spent,
	}
}

func (s *Server) handleUpsertAllocation(w http.ResponseWriter, r *http.Request) {
	var req allocationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	planned, err := parseOptionalAmount(req.Planned)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	spent, err := parseOptionalAmount(req.Spent)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	alloc := core.BudgetAllocation{
		Category: sanitizeInput(req.Category),
		Year:     req.Year,
		Month:    req.Month,
		Planned:  planned,
		Spent:    spent,
	}
	if err := alloc.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	id, err := s.store.UpsertAllocation(r.Context(), alloc)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	alloc.ID = id

	s.invalidateViews(r.Context(), "allocation", id, "upserted")
	writeJSON(w, http.StatusOK, toAllocationResponse(alloc))
}

func (s *Server) handleListAllocations(w http.ResponseWriter, r *http.Request) {
	year, month, err := yearMonthParams(r, time.Now())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	allocs, err := s.store.ListAllocations(r.Context(), year, int(month))
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	out := make([]allocationResponse, 0, len(allocs))
	for _, a := range allocs {
		out = append(out, toAllocationResponse(a))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDeleteAllocation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.store.DeleteAllocation(r.Context(), id); err != nil {
		writeStoreError(w, r, err)
		return
	}

	s.invalidateViews(r.Context(), "allocation", id, "deleted")
	writeJSON(w, http.StatusNoContent, nil)
}

// budgetSummaryResponse augments the raw summary with the balancer's
// verdict so clients need no arithmetic of their own.
type budgetSummaryResponse struct {
	Year           int            `json:"year"`
	Month          int            `json:"month"`
	Summary        budget.Summary `json:"summary"`
	LeftToAllocate core.Money     `json:"leftToAllocate"`
	Balanced       bool           `json:"balanced"`
}

func (s *Server) handleBudgetSummary(w http.ResponseWriter, r *http.Request) {
	year, month, err := yearMonthParams(r, time.Now())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	summary, err := s.getSummary(r.Context(), year, month)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, budgetSummaryResponse{
		Year:           year,
		Month:          int(month),
		Summary:        summary,
		LeftToAllocate: summary.LeftToAllocate(),
		Balanced:       summary.Balanced(),
	})
}

type transactionRequest struct {
	Date        core.Date `json:"date"`
	Description string    `json:"description"`
	Amount      string    `json:"amount"`
	Category    string    `json:"category"`
}

type transactionResponse struct {
	ID          int64      `json:"id"`
	Date        core.Date  `json:"date"`
	Description string     `json:"description"`
	Amount      core.Money `json:"amount"`
	Category    string     `json:"category"`
	RecurringID int64      `json:"recurringId"`
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	amount, err := core.ParseAmount(req.Amount)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	tx := core.Transaction{
		Date:        req.Date,
		Description: sanitizeInput(req.Description),
		Amount:      amount,
		Category:    sanitizeInput(req.Category),
	}
	if err := tx.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	id, err := s.store.CreateTransaction(r.Context(), tx)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	tx.ID = id

	writeJSON(w, http.StatusCreated, transactionResponse{
		ID:          tx.ID,
		Date:        tx.Date,
		Description: tx.Description,
		Amount:      tx.Amount,
		Category:    tx.Category,
		RecurringID: tx.RecurringID,
	})
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	year, month, err := yearMonthParams(r, time.Now())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	txs, err := s.store.ListTransactions(r.Context(), year, int(month))
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	out := make([]transactionResponse, 0, len(txs))
	for _, tx := range txs {
		out = append(out, transactionResponse{
			ID:          tx.ID,
			Date:        tx.Date,
			Description: tx.Description,
			Amount:      tx.Amount,
			Category:    tx.Category,
			RecurringID: tx.RecurringID,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// handleForecast serves the stored forecast snapshot; ?live=1 forces a
// fresh projection.
func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	now := time.Now()

	if live, _ := strconv.ParseBool(r.URL.Query().Get("live")); live {
		forecast, err := s.planner.Forecast(r.Context(), now)
		if err != nil {
			writeStoreError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"generatedAt": now.Format(time.RFC3339),
			"months":      forecast,
		})
		return
	}

	forecast, generatedAt, err := s.planner.CachedForecast(r.Context(), now)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"generatedAt": generatedAt.Format(time.RFC3339),
		"months":      forecast,
	})
}
