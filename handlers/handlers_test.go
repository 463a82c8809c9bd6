package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crc-quiz-server/auth"
	"crc-quiz-server/cases"
	"crc-quiz-server/config"
	"crc-quiz-server/db"
	"crc-quiz-server/models"
	"crc-quiz-server/results"
	"crc-quiz-server/session"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router  *gin.Engine
	results *results.Store
}

func caseRows(n int) []models.CaseRow {
	phases := []string{"筛选期", "治疗期", "随访期"}
	rows := make([]models.CaseRow, 0, n)
	for i := 0; i < n; i++ {
		rows = append(rows, models.CaseRow{
			Case:      fmt.Sprintf("案例%d", i),
			Indicator: fmt.Sprintf("%d.%d 知情同意", i%7+1, i%3+1),
			Project:   "项目A",
			Phase:     phases[i%len(phases)],
			Issue:     fmt.Sprintf("受试者签署日期缺失%d", i),
			Solution:  "补签并注明原因",
			Result:    "已整改",
		})
	}
	return rows
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	catalog := cases.NewStaticCatalog(cases.NewTable(caseRows(30)))
	store := results.NewStore(t.TempDir())
	inactive := false
	env := &Env{
		Catalog: catalog,
		Results: store,
		Exams: &session.Service{
			Catalog:      catalog,
			Sessions:     session.NewMemoryStore(),
			Results:      store,
			DefaultCount: 10,
			RetrainCount: 10,
		},
		Users: auth.NewDirectory([]auth.User{
			{UserID: "u001", Name: "张三", CodeHash: auth.HashCode("123456")},
			{UserID: "boss", Name: "管理员", CodeHash: auth.HashCode("root"), Role: auth.RoleAdmin},
			{UserID: "gone", Name: "停用", CodeHash: auth.HashCode("x"), Active: &inactive},
		}),
		Audit: db.Nop{},
		Auth:  config.AuthConfig{JWTSigningKey: "test-key", Issuer: "crcq-test", TokenTTL: time.Hour},
	}
	return &testServer{router: NewRouter(env), results: store}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func (s *testServer) login(t *testing.T, user, code string) string {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"user_id": user, "code": code})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Token string          `json:"token"`
		User  models.Identity `json:"user"`
	}
	decode(t, w, &resp)
	require.NotEmpty(t, resp.Token)
	assert.Equal(t, user, resp.User.UserID)
	return resp.Token
}

type examResp struct {
	ID         string `json:"id"`
	Submitted  bool   `json:"submitted"`
	Unanswered []int  `json:"unanswered"`
	Questions  []struct {
		Index   int                 `json:"index"`
		Stem    string              `json:"stem"`
		Answer  string              `json:"answer"`
		Explain *models.Explanation `json:"explain"`
		Meta    struct {
			IndicatorID string `json:"indicator_id"`
		} `json:"meta"`
	} `json:"questions"`
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"cases":30`)
	assert.NotContains(t, w.Body.String(), "sessions", "memory store has no external dependency")
}

type checkedStore struct {
	*session.MemoryStore
	err error
}

func (s checkedStore) HealthCheck(context.Context) error { return s.err }

func TestHealthzReportsSessionStore(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		want     string
	}{
		{"reachable", nil, http.StatusOK, `"sessions":"ok"`},
		{"unreachable", errors.New("dial tcp: connection refused"), http.StatusServiceUnavailable, `"status":"degraded"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			catalog := cases.NewStaticCatalog(cases.NewTable(caseRows(3)))
			router := NewRouter(&Env{
				Catalog: catalog,
				Exams: &session.Service{
					Catalog:  catalog,
					Sessions: checkedStore{MemoryStore: session.NewMemoryStore(), err: tt.err},
				},
				Auth: config.AuthConfig{JWTSigningKey: "test-key", Issuer: "crcq-test", TokenTTL: time.Hour},
			})
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
			assert.Equal(t, tt.wantCode, w.Code)
			assert.Contains(t, w.Body.String(), tt.want)
		})
	}
}

func TestLogin(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, "u001", "123456")

	w := s.do(t, http.MethodGet, "/api/v1/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":"u001","name":"张三","role":"student"}`, w.Body.String())

	tests := []struct {
		name   string
		user   string
		code   string
		status int
	}{
		{"wrong-code", "u001", "000000", http.StatusUnauthorized},
		{"unknown", "nobody", "123456", http.StatusUnauthorized},
		{"inactive", "gone", "x", http.StatusUnauthorized},
		{"missing", "", "", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"user_id": tt.user, "code": tt.code})
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestLoginSetsCookie(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"user_id": "u001", "code": "123456"})
	require.Equal(t, http.StatusOK, w.Code)
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)
	assert.Equal(t, "crcq_token", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
}

func TestAPIRequiresToken(t *testing.T) {
	s := newTestServer(t)
	for _, path := range []string{"/api/v1/me", "/api/v1/exam", "/api/v1/history", "/history"} {
		w := s.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
}

func TestCasesAndAsk(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, "u001", "123456")

	w := s.do(t, http.MethodGet, "/api/v1/cases?phase=治疗期&per_page=10&page=1", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page cases.Page
	decode(t, w, &page)
	assert.Equal(t, 10, page.Total)
	assert.Equal(t, 10, page.PerPage)
	for _, it := range page.Items {
		assert.Equal(t, "治疗期", it.Row.Phase)
	}

	w = s.do(t, http.MethodGet, "/api/v1/cases/phases", token, nil)
	assert.JSONEq(t, `{"phases":["治疗期","筛选期","随访期"]}`, w.Body.String())

	w = s.do(t, http.MethodPost, "/api/v1/ask", token, gin.H{"question": "签署日期缺失3"})
	require.Equal(t, http.StatusOK, w.Code)
	var ask struct {
		Answer     string   `json:"answer"`
		References []string `json:"references"`
	}
	decode(t, w, &ask)
	assert.Contains(t, ask.Answer, "补签并注明原因")
	assert.NotEmpty(t, ask.References)

	w = s.do(t, http.MethodPost, "/api/v1/ask", token, gin.H{"question": "  "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExamFlow(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, "u001", "123456")

	w := s.do(t, http.MethodGet, "/api/v1/exam", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/exam", token, gin.H{"count": 10, "strategy": "coverage"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var ex examResp
	decode(t, w, &ex)
	require.Len(t, ex.Questions, 10)
	assert.Len(t, ex.Unanswered, 10)
	for _, q := range ex.Questions {
		assert.Empty(t, q.Answer, "answers are hidden before submission")
		assert.Nil(t, q.Explain)
	}
	assert.NotContains(t, w.Body.String(), `"why_right"`)

	for _, q := range ex.Questions[:9] {
		w = s.do(t, http.MethodPut, fmt.Sprintf("/api/v1/exam/answers/%d", q.Index), token, gin.H{"answer": "a"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}
	w = s.do(t, http.MethodPut, "/api/v1/exam/answers/3", token, gin.H{"answer": "Z"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = s.do(t, http.MethodPut, "/api/v1/exam/answers/99", token, gin.H{"answer": "A"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = s.do(t, http.MethodPut, "/api/v1/exam/answers/x", token, gin.H{"answer": "A"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/exam/submit", token, nil)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var rejected struct {
		Unanswered []int `json:"unanswered"`
	}
	decode(t, w, &rejected)
	assert.Equal(t, []int{10}, rejected.Unanswered)

	history, err := s.results.History("u001")
	require.NoError(t, err)
	assert.Empty(t, history, "a rejected submission persists nothing")

	w = s.do(t, http.MethodPut, "/api/v1/exam/answers/10", token, gin.H{"answer": "B"})
	require.Equal(t, http.StatusOK, w.Code)
	w = s.do(t, http.MethodPost, "/api/v1/exam/submit", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var outcome struct {
		Record     models.ResultRecord `json:"record"`
		Points     int                 `json:"points"`
		Paragraphs []string            `json:"paragraphs"`
		Detail     []models.RunEntry   `json:"detail"`
	}
	decode(t, w, &outcome)
	assert.Equal(t, 10, outcome.Record.Total)
	assert.Equal(t, results.ModeFast, outcome.Record.Mode)
	assert.Equal(t, outcome.Record.Score*5, outcome.Points)
	assert.Len(t, outcome.Detail, 10)
	assert.Contains(t, outcome.Paragraphs[0], "总评")

	w = s.do(t, http.MethodPost, "/api/v1/exam/submit", token, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/exam", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &ex)
	assert.True(t, ex.Submitted)
	for _, q := range ex.Questions {
		assert.NotEmpty(t, q.Answer)
		assert.NotNil(t, q.Explain)
	}

	w = s.do(t, http.MethodGet, "/api/v1/history", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var hist struct {
		Records []struct {
			RunID  string `json:"run_id"`
			Points int    `json:"points"`
		} `json:"records"`
	}
	decode(t, w, &hist)
	require.Len(t, hist.Records, 1)
	assert.Equal(t, outcome.Record.RunID, hist.Records[0].RunID)
	assert.Equal(t, outcome.Points, hist.Records[0].Points)

	w = s.do(t, http.MethodGet, "/api/v1/history/"+outcome.Record.RunID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"detail"`)

	w = s.do(t, http.MethodGet, "/history/"+outcome.Record.RunID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "逐题回顾")
	assert.Contains(t, w.Body.String(), "总评")

	w = s.do(t, http.MethodGet, "/history", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/history/"+outcome.Record.RunID)
}

func TestHistoryUnavailable(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, "u001", "123456")

	w := s.do(t, http.MethodGet, "/api/v1/history/20200101_000000", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"history unavailable for this entry"}`, w.Body.String())

	w = s.do(t, http.MethodGet, "/history/20200101_000000", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "history unavailable for this entry")

	w = s.do(t, http.MethodGet, "/api/v1/history", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"records":[]}`, w.Body.String())
}

func TestRetrain(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, "u001", "123456")

	w := s.do(t, http.MethodPost, "/api/v1/exam/retrain", token, gin.H{"indicator_id": "2.2"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var ex examResp
	decode(t, w, &ex)
	require.NotEmpty(t, ex.Questions)
	assert.LessOrEqual(t, len(ex.Questions), 10)
	for _, q := range ex.Questions {
		assert.Equal(t, "2.2", q.Meta.IndicatorID)
	}

	w = s.do(t, http.MethodPost, "/api/v1/exam/retrain", token, gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogoutClearsExam(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, "u001", "123456")

	w := s.do(t, http.MethodPost, "/api/v1/exam", token, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	w = s.do(t, http.MethodPost, "/api/v1/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = s.do(t, http.MethodGet, "/api/v1/exam", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminRoutes(t *testing.T) {
	s := newTestServer(t)
	student := s.login(t, "u001", "123456")
	admin := s.login(t, "boss", "root")

	w := s.do(t, http.MethodGet, "/admin/events", student, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodGet, "/admin/events", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"events":[]}`, w.Body.String())

	w = s.do(t, http.MethodPost, "/admin/cases/reload", admin, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code, "a static catalog has no workbook to reload")

	_, err := s.results.Save("u001", []models.RunEntry{{Index: 1, YourAnswer: "A", Correct: "A"}})
	require.NoError(t, err)
	w = s.do(t, http.MethodPost, "/admin/results/rebuild", admin, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"rebuilt":{"u001":1},"failed":{}}`, w.Body.String())
}
