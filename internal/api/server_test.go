package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finance-coach-backend/internal/cache"
	"finance-coach-backend/internal/coach"
	"finance-coach-backend/internal/finance"
	"finance-coach-backend/internal/models"
	"finance-coach-backend/internal/proxy"
	"finance-coach-backend/internal/store"
)

type stubCompleter struct {
	reply string
	err   error
	turns []coach.Turn
}

func (s *stubCompleter) Complete(ctx context.Context, system string, turns []coach.Turn) (string, error) {
	s.turns = turns
	return s.reply, s.err
}

type testEnv struct {
	router    *gin.Engine
	repo      *store.Memory
	completer *stubCompleter
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithCache(t, cache.New(nil, zerolog.Nop()))
}

func newTestEnvWithCache(t *testing.T, c *cache.Cache) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTeapot)
		json.NewEncoder(w).Encode(map[string]string{"upstream_path": r.URL.Path, "method": r.Method})
	}))
	t.Cleanup(upstream.Close)

	repo := store.NewMemory()
	completer := &stubCompleter{reply: "Spend less on concerts."}
	log := zerolog.Nop()

	srv := NewServer(Deps{
		Repo:  repo,
		Cache: c,
		Coach: coach.NewService(completer, repo, coach.Options{Timeout: time.Second}, log),
		Proxy: proxy.New(upstream.URL, time.Second, log),
		Log:   log,
	})
	return &testEnv{router: srv.Router(nil), repo: repo, completer: completer}
}

func (e *testEnv) do(t *testing.T, method, path, user string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set(UserIDHeader, user)
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodGet, "/health", "", nil)

	assert.Equal(t, http.StatusOK, rr.Code)
	body := decode[map[string]string](t, rr)
	assert.Equal(t, "healthy", body["status"])
	assert.NotEmpty(t, rr.Header().Get(RequestIDHeader))
}

func TestUserRoutesRequireIdentity(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/api/accounts", "/api/transactions", "/api/summary", "/api/goals", "/api/chat/history"} {
		rr := env.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rr.Code, path)
	}
}

func TestAccountsCRUD(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodPost, "/api/accounts", "alice", map[string]any{"name": "Checking", "balance": 120.5, "currency": "eur"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	created := decode[models.Account](t, rr)
	assert.Equal(t, "EUR", created.Currency)
	assert.Equal(t, "checking", created.Type)
	assert.True(t, created.Balance.Equal(dec("120.5")))

	rr = env.do(t, http.MethodGet, "/api/accounts", "alice", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[[]models.Account](t, rr), 1)

	rr = env.do(t, http.MethodGet, "/api/accounts/"+created.ID.String(), "bob", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = env.do(t, http.MethodPut, "/api/accounts/"+created.ID.String(), "alice", map[string]any{"name": "Main", "type": "Savings", "balance": "99.99"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	updated := decode[models.Account](t, rr)
	assert.Equal(t, "Main", updated.Name)
	assert.Equal(t, "savings", updated.Type)
	assert.Equal(t, "USD", updated.Currency)

	rr = env.do(t, http.MethodGet, "/api/accounts/not-a-uuid", "alice", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = env.do(t, http.MethodPost, "/api/accounts", "alice", map[string]any{"name": "X", "currency": "EURO"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = env.do(t, http.MethodDelete, "/api/accounts/"+created.ID.String(), "alice", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	rr = env.do(t, http.MethodDelete, "/api/accounts/"+created.ID.String(), "alice", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestTransactions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a, _ := env.repo.CreateAccount(ctx, models.Account{UserID: "alice", Name: "A"})
	b, _ := env.repo.CreateAccount(ctx, models.Account{UserID: "alice", Name: "B"})
	foreign, _ := env.repo.CreateAccount(ctx, models.Account{UserID: "bob", Name: "C"})

	tests := []struct {
		name string
		body map[string]any
		want int
	}{
		{"income", map[string]any{"type": "income", "amount": 50, "date": "2026-10-01", "to_account_id": a.ID}, http.StatusCreated},
		{"expense rfc3339 date", map[string]any{"type": "EXPENSE", "amount": -20, "date": "2026-10-02T15:04:05Z"}, http.StatusCreated},
		{"transfer", map[string]any{"type": "transfer", "amount": 10, "from_account_id": a.ID, "to_account_id": b.ID}, http.StatusCreated},
		{"missing type", map[string]any{"amount": 5}, http.StatusBadRequest},
		{"unknown type", map[string]any{"type": "refund", "amount": 5}, http.StatusBadRequest},
		{"zero amount", map[string]any{"type": "income", "amount": 0}, http.StatusBadRequest},
		{"bad date", map[string]any{"type": "income", "amount": 1, "date": "01/10/2026"}, http.StatusBadRequest},
		{"transfer missing side", map[string]any{"type": "transfer", "amount": 1, "from_account_id": a.ID}, http.StatusBadRequest},
		{"transfer same account", map[string]any{"type": "transfer", "amount": 1, "from_account_id": a.ID, "to_account_id": a.ID}, http.StatusBadRequest},
		{"foreign account", map[string]any{"type": "expense", "amount": 1, "from_account_id": foreign.ID}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(t, http.MethodPost, "/api/transactions", "alice", tt.body)
			assert.Equal(t, tt.want, rr.Code, rr.Body.String())
		})
	}

	rr := env.do(t, http.MethodGet, "/api/transactions", "alice", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	list := decode[[]models.Transaction](t, rr)
	assert.Len(t, list, 3)

	rr = env.do(t, http.MethodGet, "/api/transactions?limit=1", "alice", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[[]models.Transaction](t, rr), 1)

	rr = env.do(t, http.MethodGet, "/api/transactions?limit=0", "alice", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = env.do(t, http.MethodDelete, "/api/transactions/"+list[0].ID.String(), "bob", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	rr = env.do(t, http.MethodDelete, "/api/transactions/"+list[0].ID.String(), "alice", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	rr = env.do(t, http.MethodGet, "/api/transactions/"+list[0].ID.String(), "alice", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestSummary(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, _ = env.repo.CreateAccount(ctx, models.Account{UserID: "alice", Balance: dec("100"), Currency: "USD"})
	_, _ = env.repo.CreateTransaction(ctx, models.Transaction{UserID: "alice", Type: models.TransactionIncome, Amount: dec("50")})
	_, _ = env.repo.CreateTransaction(ctx, models.Transaction{UserID: "alice", Type: models.TransactionExpense, Amount: dec("-20")})

	rr := env.do(t, http.MethodGet, "/api/summary", "alice", nil)

	require.Equal(t, http.StatusOK, rr.Code)
	s := decode[finance.Snapshot](t, rr)
	assert.True(t, s.TotalIncome.Equal(dec("50")))
	assert.True(t, s.TotalExpenses.Equal(dec("20")))
	assert.True(t, s.NetBalance.Equal(dec("100")))
	assert.Equal(t, "USD", s.Currency)
}

func TestChat(t *testing.T) {
	env := newTestEnv(t)
	body := map[string]any{
		"message": "Where does my money go?",
		"context": map[string]any{
			"accounts":            []map[string]any{{"balance": 100, "currency": "USD"}},
			"recent_transactions": []map[string]any{{"type": "expense", "amount": 140, "description": "Concert Tickets"}},
		},
		"history": []map[string]any{{"role": "user", "content": "hi"}, {"role": "assistant", "content": "hello"}},
	}

	rr := env.do(t, http.MethodPost, "/api/chat", "alice", body)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "Spend less on concerts.", decode[map[string]string](t, rr)["response"])
	require.Len(t, env.completer.turns, 3)

	rr = env.do(t, http.MethodGet, "/api/chat/history", "alice", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	history := decode[[]models.ChatMessage](t, rr)
	require.Len(t, history, 2)
	assert.Equal(t, models.RoleUser, history[0].Role)
	assert.Equal(t, models.RoleAssistant, history[1].Role)

	rr = env.do(t, http.MethodDelete, "/api/chat/history", "alice", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.EqualValues(t, 2, decode[map[string]any](t, rr)["deleted"])
}

func TestChat_CalendarDayContextDates(t *testing.T) {
	env := newTestEnv(t)
	body := map[string]any{
		"message": "How did October go?",
		"context": map[string]any{
			"accounts": []map[string]any{{"balance": 100, "currency": "USD"}},
			"recent_transactions": []map[string]any{
				{"type": "income", "amount": 50, "date": "2026-10-01"},
				{"type": "expense", "amount": -20, "date": "2026-10-03"},
			},
		},
	}

	rr := env.do(t, http.MethodPost, "/api/chat", "", body)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "Spend less on concerts.", decode[map[string]string](t, rr)["response"])
}

func TestChat_AnonymousNotPersisted(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodPost, "/api/chat", "", map[string]any{"message": "hi"})

	require.Equal(t, http.StatusOK, rr.Code)
	msgs, _ := env.repo.ListChatMessages(context.Background(), "", 0)
	assert.Empty(t, msgs)
}

func TestChat_Failures(t *testing.T) {
	tests := []struct {
		name string
		body any
		err  error
	}{
		{"malformed body", `{"message": `, nil},
		{"wrong field type", `{"message": 42}`, nil},
		{"empty message", map[string]any{"message": ""}, nil},
		{"model failure", map[string]any{"message": "hi"}, errors.New("boom")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.completer.err = tt.err

			rr := env.do(t, http.MethodPost, "/api/chat", "alice", tt.body)

			assert.Equal(t, http.StatusInternalServerError, rr.Code)
			assert.JSONEq(t, `{"error":"Failed to process chat message"}`, rr.Body.String())
		})
	}
}

func TestAdvice(t *testing.T) {
	env := newTestEnv(t)
	_, _ = env.repo.CreateAccount(context.Background(), models.Account{UserID: "alice", Balance: dec("10")})

	rr := env.do(t, http.MethodPost, "/api/coach/advice", "alice", nil)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	advice := decode[coach.Advice](t, rr)
	assert.Equal(t, "Spend less on concerts.", advice.Advice)
	assert.True(t, advice.Snapshot.NetBalance.Equal(dec("10")))

	env.completer.err = errors.New("down")
	rr = env.do(t, http.MethodPost, "/api/coach/advice", "alice", nil)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestGoals(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodPost, "/api/goals", "alice", map[string]any{"name": "Bike", "target_amount": 500, "deadline": "2027-06-01"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	goal := decode[goalView](t, rr)
	assert.Equal(t, models.GoalActive, goal.Status)
	require.NotNil(t, goal.Deadline)

	rr = env.do(t, http.MethodPost, "/api/goals", "alice", map[string]any{"name": "Bad", "target_amount": 0})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	rr = env.do(t, http.MethodPost, "/api/goals", "alice", map[string]any{"name": "Bad", "target_amount": 10, "status": "paused"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	path := "/api/goals/" + goal.ID.String() + "/contributions"
	rr = env.do(t, http.MethodPost, path, "alice", map[string]any{"amount": 200, "note": "birthday"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = env.do(t, http.MethodPost, path, "alice", map[string]any{"amount": 300})
	require.Equal(t, http.StatusCreated, rr.Code)
	var res struct {
		Goal goalView `json:"goal"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	assert.Equal(t, models.GoalCompleted, res.Goal.Status)
	assert.InDelta(t, 1.0, res.Goal.Progress, 1e-9)

	rr = env.do(t, http.MethodPost, path, "alice", map[string]any{"amount": -1})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = env.do(t, http.MethodGet, path, "alice", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[[]models.GoalContribution](t, rr), 2)

	rr = env.do(t, http.MethodPut, "/api/goals/"+goal.ID.String(), "alice", map[string]any{"name": "Bike", "target_amount": 800, "current_amount": 500, "status": "cancelled"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = env.do(t, http.MethodPost, path, "alice", map[string]any{"amount": 5})
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = env.do(t, http.MethodGet, "/api/goals", "bob", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, decode[[]goalView](t, rr))

	rr = env.do(t, http.MethodDelete, "/api/goals/"+goal.ID.String(), "alice", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	rr = env.do(t, http.MethodGet, "/api/goals/"+goal.ID.String(), "alice", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestLearningContent(t *testing.T) {
	env := newTestEnv(t)
	env.repo.SeedLearning([]models.LearningContent{
		{Title: "Budgeting 101", Category: "budgeting"},
		{Title: "Index Funds", Category: "investing"},
	})

	rr := env.do(t, http.MethodGet, "/api/learning?category=investing", "alice", nil)

	require.Equal(t, http.StatusOK, rr.Code)
	items := decode[[]models.LearningContent](t, rr)
	require.Len(t, items, 1)
	assert.Equal(t, "Index Funds", items[0].Title)
}

func TestUnmatchedAPIRoutesAreProxied(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodPost, "/api/budgets/7", "", map[string]any{"amount": 1})

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"upstream_path":"/budgets/7","method":"POST"}`, rr.Body.String())

	rr = env.do(t, http.MethodGet, "/elsewhere", "", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
