package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"homebudget/internal/core"
	"homebudget/internal/insights"
	applog "homebudget/internal/log"
	"homebudget/internal/records"
	"homebudget/internal/services"
)

// fakeStore is an in-memory Store with call counting and error injection.
type fakeStore struct {
	mu sync.Mutex

	accounts []core.Account
	txs      []core.Transaction
	debts    []core.Debt
	goals    []core.Goal
	sources  []core.IncomeSource
	tips     []core.WisdomTip

	accountsErr   error
	updateDebtErr error
	setPaidErr    error

	listAccountsCalls int
	tipsSeason        string
	tipsMonth         int
}

func (f *fakeStore) ListAccounts(context.Context) ([]core.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listAccountsCalls++
	return f.accounts, f.accountsErr
}

func (f *fakeStore) ListTransactions(_ context.Context, filter records.Filter) ([]core.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []core.Transaction
	for _, t := range f.txs {
		if filter.Matches(t) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeStore) ListDebts(context.Context) ([]core.Debt, error)           { return f.debts, nil }
func (f *fakeStore) ListGoals(context.Context) ([]core.Goal, error)           { return f.goals, nil }
func (f *fakeStore) ListIncomeSources(context.Context) ([]core.IncomeSource, error) {
	return f.sources, nil
}

func (f *fakeStore) CreateTransaction(_ context.Context, t core.Transaction) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t.ID = int64(len(f.txs) + 1)
	f.txs = append(f.txs, t)
	return t.ID, nil
}

func (f *fakeStore) SetTransactionPaid(_ context.Context, id int64, paid bool) error {
	return f.setPaidErr
}

func (f *fakeStore) SetTransactionAutoPay(_ context.Context, id int64, autoPay bool) error {
	return nil
}

func (f *fakeStore) CreateDebt(_ context.Context, d core.Debt) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d.ID = int64(len(f.debts) + 1)
	f.debts = append(f.debts, d)
	return d.ID, nil
}

func (f *fakeStore) UpdateDebt(_ context.Context, id int64, u core.DebtUpdate) error {
	return f.updateDebtErr
}

func (f *fakeStore) DeleteDebt(_ context.Context, id int64) error { return nil }

func (f *fakeStore) CreateGoal(_ context.Context, g core.Goal) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g.ID = int64(len(f.goals) + 1)
	f.goals = append(f.goals, g)
	return g.ID, nil
}

func (f *fakeStore) UpdateGoalProgress(_ context.Context, id int64, currentAmount float64) error {
	return nil
}

func (f *fakeStore) CreateIncomeSource(_ context.Context, s core.IncomeSource) (int64, error) {
	return 1, nil
}

func (f *fakeStore) UpdateIncomeSource(_ context.Context, s core.IncomeSource) error { return nil }
func (f *fakeStore) DeleteIncomeSource(_ context.Context, id int64) error            { return nil }

func (f *fakeStore) ListWisdomTips(_ context.Context, season string, month int) ([]core.WisdomTip, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tipsSeason = season
	f.tipsMonth = month
	return f.tips, nil
}

func newTestServer(t *testing.T, store *fakeStore) *Server {
	t.Helper()
	discard := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine := insights.New(store, discard)
	logger := applog.New(applog.Config{Handler: discard.Handler()})
	analysis := services.NewAnalysisService(engine, nil, logger, 0, 0)
	s := NewServer(":0", store, engine, analysis)
	s.now = func() time.Time { return time.Date(2025, 7, 15, 0, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return s
}

func doRequest(s *Server, method, target, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode response body: %v (body %q)", err, rec.Body.String())
	}
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t, &fakeStore{})
	if rec := doRequest(s, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
		t.Errorf("/healthz status = %d", rec.Code)
	}
	if rec := doRequest(s, http.MethodGet, "/readyz", ""); rec.Code != http.StatusOK {
		t.Errorf("/readyz status = %d", rec.Code)
	}
}

func TestDebtPayoffHandler(t *testing.T) {
	s := newTestServer(t, &fakeStore{})

	t.Run("success", func(t *testing.T) {
		rec := doRequest(s, http.MethodPost, "/api/debt-payoff",
			`{"balance":1000,"apr":12,"min_payment":100}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
		}
		var result insights.PayoffResult
		decodeBody(t, rec, &result)
		if result.Months != 11 {
			t.Errorf("Months = %d, want 11", result.Months)
		}
	})

	t.Run("payment too low", func(t *testing.T) {
		rec := doRequest(s, http.MethodPost, "/api/debt-payoff",
			`{"balance":1000,"apr":12,"min_payment":5}`)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("status = %d, want 422", rec.Code)
		}
		var resp errorResponse
		decodeBody(t, rec, &resp)
		if resp.Error != insights.ErrPaymentTooLow.Error() {
			t.Errorf("error = %q", resp.Error)
		}
	})

	t.Run("malformed body", func(t *testing.T) {
		rec := doRequest(s, http.MethodPost, "/api/debt-payoff", `{"balance":`)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Errorf("status = %d, want 422", rec.Code)
		}
	})

	t.Run("wrong method", func(t *testing.T) {
		rec := doRequest(s, http.MethodGet, "/api/debt-payoff", "")
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("status = %d, want 405", rec.Code)
		}
	})
}

func TestGoalProjectionHandler(t *testing.T) {
	store := &fakeStore{
		goals: []core.Goal{{ID: 1, Name: "Vacation", TargetAmount: 1000, CurrentAmount: 400, StartDate: "2025-03-10"}},
	}
	s := newTestServer(t, store)

	t.Run("found", func(t *testing.T) {
		rec := doRequest(s, http.MethodGet, "/api/goal-projection?id=1", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
		}
		var proj insights.GoalProjection
		decodeBody(t, rec, &proj)
		if proj.MonthlyRate != 100 {
			t.Errorf("MonthlyRate = %v, want 100", proj.MonthlyRate)
		}
	})

	t.Run("unknown goal", func(t *testing.T) {
		rec := doRequest(s, http.MethodGet, "/api/goal-projection?id=99", "")
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})

	t.Run("missing id", func(t *testing.T) {
		rec := doRequest(s, http.MethodGet, "/api/goal-projection", "")
		if rec.Code != http.StatusUnprocessableEntity {
			t.Errorf("status = %d, want 422", rec.Code)
		}
	})
}

func TestFinancialAnalysisCaching(t *testing.T) {
	store := &fakeStore{
		accounts: []core.Account{{ID: 1, Name: "Main", Type: core.AccountChecking, Balance: 1000}},
	}
	s := newTestServer(t, store)

	if rec := doRequest(s, http.MethodGet, "/api/financial-analysis", ""); rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if store.listAccountsCalls != 1 {
		t.Fatalf("listAccountsCalls = %d after first request, want 1", store.listAccountsCalls)
	}

	// Second hit on the same day is served from cache.
	if rec := doRequest(s, http.MethodGet, "/api/financial-analysis", ""); rec.Code != http.StatusOK {
		t.Fatalf("status = %d on cached request", rec.Code)
	}
	if store.listAccountsCalls != 1 {
		t.Errorf("listAccountsCalls = %d after cached request, want 1", store.listAccountsCalls)
	}

	// Writing a transaction invalidates the cached analysis.
	rec := doRequest(s, http.MethodPost, "/api/transactions",
		`{"date":"2025-07-14","amount":-50,"category":"Groceries"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create transaction status = %d, body %s", rec.Code, rec.Body.String())
	}
	if rec := doRequest(s, http.MethodGet, "/api/financial-analysis", ""); rec.Code != http.StatusOK {
		t.Fatalf("status = %d after purge", rec.Code)
	}
	if store.listAccountsCalls != 2 {
		t.Errorf("listAccountsCalls = %d after cache purge, want 2", store.listAccountsCalls)
	}
}

func TestFinancialAnalysisStoreError(t *testing.T) {
	store := &fakeStore{accountsErr: context.DeadlineExceeded}
	s := newTestServer(t, store)
	rec := doRequest(s, http.MethodGet, "/api/financial-analysis", "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	var resp errorResponse
	decodeBody(t, rec, &resp)
	if resp.Error == "" {
		t.Error("expected error envelope")
	}
}

func TestCreateTransactionValidation(t *testing.T) {
	s := newTestServer(t, &fakeStore{})
	tests := []struct {
		name string
		body string
		want int
	}{
		{"valid", `{"date":"2025-07-14","amount":-50,"category":"Groceries"}`, http.StatusCreated},
		{"bad date", `{"date":"07/14/2025","amount":-50}`, http.StatusUnprocessableEntity},
		{"zero amount", `{"date":"2025-07-14","amount":0}`, http.StatusUnprocessableEntity},
		{"not json", `date=2025-07-14`, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(s, http.MethodPost, "/api/transactions", tt.body)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestListTransactionsMonthFilter(t *testing.T) {
	store := &fakeStore{
		txs: []core.Transaction{
			{ID: 1, Date: "2025-07-05", Amount: -50, Category: "Groceries"},
			{ID: 2, Date: "2025-06-20", Amount: -80, Category: "Utilities"},
		},
	}
	s := newTestServer(t, store)

	rec := doRequest(s, http.MethodGet, "/api/transactions?month=2025-07", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp map[string][]core.Transaction
	decodeBody(t, rec, &resp)
	if len(resp["transactions"]) != 1 || resp["transactions"][0].ID != 1 {
		t.Errorf("transactions = %+v, want only the July one", resp["transactions"])
	}

	if rec := doRequest(s, http.MethodGet, "/api/transactions?month=July", ""); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("bad month status = %d, want 422", rec.Code)
	}
}

func TestTogglePaidNotFound(t *testing.T) {
	store := &fakeStore{setPaidErr: core.ErrNotFound}
	s := newTestServer(t, store)
	rec := doRequest(s, http.MethodPost, "/api/transactions/7/paid", `{"value":true}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestUpdateDebtHandler(t *testing.T) {
	s := newTestServer(t, &fakeStore{})

	t.Run("valid patch", func(t *testing.T) {
		rec := doRequest(s, http.MethodPatch, "/api/debts/1", `{"balance":900}`)
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, body %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("unknown field rejected", func(t *testing.T) {
		rec := doRequest(s, http.MethodPatch, "/api/debts/1", `{"balance":900,"paid_off":true}`)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Errorf("status = %d, want 422", rec.Code)
		}
	})

	t.Run("empty patch rejected", func(t *testing.T) {
		rec := doRequest(s, http.MethodPatch, "/api/debts/1", `{}`)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Errorf("status = %d, want 422", rec.Code)
		}
	})

	t.Run("unknown debt", func(t *testing.T) {
		store := &fakeStore{updateDebtErr: core.ErrNotFound}
		s := newTestServer(t, store)
		rec := doRequest(s, http.MethodPatch, "/api/debts/42", `{"balance":900}`)
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})
}

func TestCreateGoalValidation(t *testing.T) {
	s := newTestServer(t, &fakeStore{})
	rec := doRequest(s, http.MethodPost, "/api/goals",
		`{"name":"","target_amount":0,"start_date":"2025-07-01"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", rec.Code)
	}
	rec = doRequest(s, http.MethodPost, "/api/goals",
		`{"name":"Vacation","target_amount":2500,"start_date":"2025-07-01"}`)
	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d, want 201 (body %s)", rec.Code, rec.Body.String())
	}
}

func TestWisdomTipsHandler(t *testing.T) {
	store := &fakeStore{
		tips: []core.WisdomTip{{ID: 1, Message: "Pay yourself first.", Type: "rule"}},
	}
	s := newTestServer(t, store)
	rec := doRequest(s, http.MethodGet, "/api/wisdom-tips", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	// The pinned date is mid July.
	if store.tipsSeason != "Summer" || store.tipsMonth != 7 {
		t.Errorf("queried season/month = %s/%d, want Summer/7", store.tipsSeason, store.tipsMonth)
	}
	var resp map[string][]core.WisdomTip
	decodeBody(t, rec, &resp)
	if len(resp["tips"]) != 1 {
		t.Errorf("tips = %+v, want 1 entry", resp["tips"])
	}
}

func TestPatternAlertsHandlerEmpty(t *testing.T) {
	s := newTestServer(t, &fakeStore{})
	rec := doRequest(s, http.MethodGet, "/api/pattern-alerts?months=3", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp map[string][]core.PatternAlert
	decodeBody(t, rec, &resp)
	if resp["alerts"] == nil || len(resp["alerts"]) != 0 {
		t.Errorf("alerts = %v, want present and empty", resp["alerts"])
	}
}

func TestNextPaycheckHandler(t *testing.T) {
	s := newTestServer(t, &fakeStore{})
	rec := doRequest(s, http.MethodGet, "/api/days-until-next-paycheck", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got insights.Paycheck
	decodeBody(t, rec, &got)
	// July 15th 2025 is a Tuesday; Friday is three days out.
	if got.DaysUntilNextPaycheck != 3 || got.NextPaycheckDate != "2025-07-18" {
		t.Errorf("paycheck = %+v, want 3 days to 2025-07-18", got)
	}
}

func TestSecurityHeaders(t *testing.T) {
	s := newTestServer(t, &fakeStore{})
	rec := doRequest(s, http.MethodGet, "/api/budget-health-score", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing X-Content-Type-Options header")
	}
	if rec.Header().Get("X-Frame-Options") != "DENY" {
		t.Error("missing X-Frame-Options header")
	}
}

func TestQueryMonths(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{"", 6},
		{"3", 3},
		{"48", 24},
		{"0", 6},
		{"abc", 6},
	}
	for _, tt := range tests {
		target := "/api/pattern-alerts"
		if tt.raw != "" {
			target += "?months=" + tt.raw
		}
		req := httptest.NewRequest(http.MethodGet, target, nil)
		if got := queryMonths(req); got != tt.want {
			t.Errorf("queryMonths(%q) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}
