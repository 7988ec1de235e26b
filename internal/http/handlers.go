package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"homebudget/internal/core"
	"homebudget/internal/insights"
	"homebudget/internal/records"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeInputError reports a violated precondition: the request was
// readable but its content is invalid.
func writeInputError(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
}

// writeStoreError reports a failed read or write against the store.
func writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	slog.ErrorContext(r.Context(), "Store operation failed", "url", r.URL.Path, "error", err)
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.New("invalid JSON body")
	}
	return nil
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}

// queryMonths parses a ?months= lookback parameter, defaulting to 6 and
// capping at 24.
func queryMonths(r *http.Request) int {
	months := 6
	if raw := r.URL.Query().Get("months"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			months = n
		}
	}
	if months > 24 {
		months = 24
	}
	return months
}

func (s *Server) handleFinancialAnalysis(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	cacheKey := core.FormatDay(now)
	if cached, ok := s.analysisCache.Get(cacheKey); ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	analysis, err := s.analysis.Analyze(r.Context(), now)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	s.analysisCache.Set(cacheKey, analysis)
	writeJSON(w, http.StatusOK, analysis)
}

func (s *Server) handleHealthScore(w http.ResponseWriter, r *http.Request) {
	score, err := s.engine.HealthScore(r.Context(), s.now())
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"budgetHealthScore": score})
}

func (s *Server) handlePatternAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := s.engine.PatternAlerts(r.Context(), s.now(), queryMonths(r))
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	if alerts == nil {
		alerts = []core.PatternAlert{}
	}
	writeJSON(w, http.StatusOK, map[string][]core.PatternAlert{"alerts": alerts})
}

func (s *Server) handleVariableIncome(w http.ResponseWriter, r *http.Request) {
	analysis, err := s.engine.VariableIncome(r.Context(), s.now())
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

func (s *Server) handleDebtPayoff(w http.ResponseWriter, r *http.Request) {
	var req core.PayoffRequest
	if err := decodeJSON(r, &req); err != nil {
		writeInputError(w, err)
		return
	}
	result, err := s.engine.DebtPayoff(req)
	if err != nil {
		writeInputError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleGoalProjection(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
	if err != nil || id <= 0 {
		writeInputError(w, errors.New("invalid goal id"))
		return
	}
	proj, err := s.engine.GoalProjection(r.Context(), id, s.now())
	if err != nil {
		if errors.Is(err, insights.ErrGoalNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
			return
		}
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, proj)
}

func (s *Server) handleMonthlySummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.engine.MonthlySummary(r.Context(), s.now(), queryMonths(r))
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]insights.MonthlySummaryPoint{"monthlySummary": summary})
}

func (s *Server) handleMoneyLeftPerDay(w http.ResponseWriter, r *http.Request) {
	result, err := s.engine.MoneyLeftPerDay(r.Context(), s.now())
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleProjectedBalance(w http.ResponseWriter, r *http.Request) {
	result, err := s.engine.ProjectedEndOfMonthBalance(r.Context(), s.now())
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleBillReminders(w http.ResponseWriter, r *http.Request) {
	result, err := s.engine.BillReminders(r.Context(), s.now())
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleWisdomTips(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	tips, err := s.store.ListWisdomTips(r.Context(), core.Season(int(now.Month())), int(now.Month()))
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	if tips == nil {
		tips = []core.WisdomTip{}
	}
	writeJSON(w, http.StatusOK, map[string][]core.WisdomTip{"tips": tips})
}

func (s *Server) handleNextPaycheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, insights.NextPaycheck(s.now()))
}

func (s *Server) handleMonthToDateSpending(w http.ResponseWriter, r *http.Request) {
	total, err := s.engine.MonthToDateSpending(r.Context(), s.now())
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]float64{"monthToDateSpending": total})
}

func (s *Server) handleSpendingVelocity(w http.ResponseWriter, r *http.Request) {
	velocity, err := s.engine.SpendingVelocity(r.Context(), s.now())
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]float64{"spendingVelocity": velocity})
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.store.ListAccounts(r.Context())
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	if accounts == nil {
		accounts = []core.Account{}
	}
	writeJSON(w, http.StatusOK, accounts)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	var filter records.Filter
	if month := r.URL.Query().Get("month"); month != "" {
		if len(month) != 7 {
			writeInputError(w, errors.New("month must be YYYY-MM"))
			return
		}
		filter.From = month + "-01"
		filter.To = month + "-31"
	}
	txs, err := s.store.ListTransactions(r.Context(), filter)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	if txs == nil {
		txs = []core.Transaction{}
	}
	writeJSON(w, http.StatusOK, map[string][]core.Transaction{"transactions": txs})
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var t core.Transaction
	if err := decodeJSON(r, &t); err != nil {
		writeInputError(w, err)
		return
	}
	if _, err := core.ParseDay(t.Date); err != nil {
		writeInputError(w, core.ErrInvalidDate)
		return
	}
	if t.Amount == 0 {
		writeInputError(w, core.ErrInvalidAmount)
		return
	}
	id, err := s.store.CreateTransaction(r.Context(), t)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	s.analysisCache.Purge()
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (s *Server) handleTogglePaid(w http.ResponseWriter, r *http.Request) {
	s.toggleTransactionFlag(w, r, s.store.SetTransactionPaid)
}

func (s *Server) handleToggleAutoPay(w http.ResponseWriter, r *http.Request) {
	s.toggleTransactionFlag(w, r, s.store.SetTransactionAutoPay)
}

type flagBody struct {
	Value bool `json:"value"`
}

func (s *Server) toggleTransactionFlag(w http.ResponseWriter, r *http.Request, set func(ctx context.Context, id int64, value bool) error) {
	id, err := pathID(r)
	if err != nil {
		writeInputError(w, err)
		return
	}
	var body flagBody
	if err := decodeJSON(r, &body); err != nil {
		writeInputError(w, err)
		return
	}
	if err := set(r.Context(), id, body.Value); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
			return
		}
		writeStoreError(w, r, err)
		return
	}
	s.analysisCache.Purge()
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleListDebts(w http.ResponseWriter, r *http.Request) {
	debts, err := s.store.ListDebts(r.Context())
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	if debts == nil {
		debts = []core.Debt{}
	}
	writeJSON(w, http.StatusOK, debts)
}

func (s *Server) handleCreateDebt(w http.ResponseWriter, r *http.Request) {
	var d core.Debt
	if err := decodeJSON(r, &d); err != nil {
		writeInputError(w, err)
		return
	}
	if err := d.Validate(); err != nil {
		writeInputError(w, err)
		return
	}
	id, err := s.store.CreateDebt(r.Context(), d)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

// handleUpdateDebt accepts only the typed patch fields; unknown keys are
// rejected rather than silently passed to the store.
func (s *Server) handleUpdateDebt(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeInputError(w, err)
		return
	}
	var u core.DebtUpdate
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&u); err != nil {
		writeInputError(w, errors.New("invalid debt update: "+err.Error()))
		return
	}
	if err := u.Validate(); err != nil {
		writeInputError(w, err)
		return
	}
	if err := s.store.UpdateDebt(r.Context(), id, u); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
			return
		}
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleDeleteDebt(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeInputError(w, err)
		return
	}
	if err := s.store.DeleteDebt(r.Context(), id); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
			return
		}
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	goals, err := s.store.ListGoals(r.Context())
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	if goals == nil {
		goals = []core.Goal{}
	}
	writeJSON(w, http.StatusOK, goals)
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	var g core.Goal
	if err := decodeJSON(r, &g); err != nil {
		writeInputError(w, err)
		return
	}
	if err := g.Validate(); err != nil {
		writeInputError(w, err)
		return
	}
	id, err := s.store.CreateGoal(r.Context(), g)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

type goalProgressBody struct {
	CurrentAmount float64 `json:"current_amount"`
}

func (s *Server) handleGoalProgress(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeInputError(w, err)
		return
	}
	var body goalProgressBody
	if err := decodeJSON(r, &body); err != nil {
		writeInputError(w, err)
		return
	}
	if body.CurrentAmount < 0 {
		writeInputError(w, core.ErrInvalidAmount)
		return
	}
	if err := s.store.UpdateGoalProgress(r.Context(), id, body.CurrentAmount); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
			return
		}
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleListIncomeSources(w http.ResponseWriter, r *http.Request) {
	sources, err := s.store.ListIncomeSources(r.Context())
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	if sources == nil {
		sources = []core.IncomeSource{}
	}
	writeJSON(w, http.StatusOK, sources)
}

func (s *Server) handleCreateIncomeSource(w http.ResponseWriter, r *http.Request) {
	var src core.IncomeSource
	if err := decodeJSON(r, &src); err != nil {
		writeInputError(w, err)
		return
	}
	if err := src.Validate(); err != nil {
		writeInputError(w, err)
		return
	}
	id, err := s.store.CreateIncomeSource(r.Context(), src)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (s *Server) handleUpdateIncomeSource(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeInputError(w, err)
		return
	}
	var src core.IncomeSource
	if err := decodeJSON(r, &src); err != nil {
		writeInputError(w, err)
		return
	}
	src.ID = id
	if err := src.Validate(); err != nil {
		writeInputError(w, err)
		return
	}
	if err := s.store.UpdateIncomeSource(r.Context(), src); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
			return
		}
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleDeleteIncomeSource(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeInputError(w, err)
		return
	}
	if err := s.store.DeleteIncomeSource(r.Context(), id); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
			return
		}
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
