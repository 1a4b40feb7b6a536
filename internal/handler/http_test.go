package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/score-tracker/internal/auth"
	"github.com/score-tracker/internal/config"
	"github.com/score-tracker/internal/domain"
	"github.com/score-tracker/internal/memory"
	"github.com/score-tracker/internal/service"
	"github.com/score-tracker/internal/store"
	"github.com/score-tracker/internal/testutil"
	"github.com/score-tracker/internal/websocket"
)

var testOrigins = []string{"http://localhost:5173"}

type brokenStore struct {
	store.Store
}

func (brokenStore) FindByName(ctx context.Context, playerName string) (*domain.PlayerRecord, error) {
	return nil, errors.New("socket closed")
}

func (brokenStore) Ping(ctx context.Context) error {
	return errors.New("socket closed")
}

func newRouter(t *testing.T, st store.Store) http.Handler {
	t.Helper()
	logger := testutil.NopLogger()
	svc := service.NewScoreService(st, auth.NewHasher(bcrypt.MinCost), &config.LeaderboardConfig{Limit: 10}, logger)
	hub := websocket.NewHub(testOrigins, logger)
	return NewHandler(svc, hub, testOrigins, logger).Router()
}

func do(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func signupBody(name string, score int64, timeTaken float64) string {
	return fmt.Sprintf(`{"playerName":%q,"password":"secret","score":%d,"timeTaken":%g}`, name, score, timeTaken)
}

func TestSignupAndShowScore(t *testing.T) {
	router := newRouter(t, memory.New())

	rec := do(t, router, http.MethodPost, "/scores/signup/", signupBody("alice", 100, 12.5))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "User registered successfully", decodeBody(t, rec)["message"])

	rec = do(t, router, http.MethodGet, "/scores/show_score/alice", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]interface{}{
		"playerName": "alice",
		"score":      float64(100),
		"timeTaken":  12.5,
	}, decodeBody(t, rec))
}

func TestSignupDuplicate(t *testing.T) {
	router := newRouter(t, memory.New())
	require.Equal(t, http.StatusOK, do(t, router, http.MethodPost, "/scores/signup/", signupBody("alice", 1, 1)).Code)

	rec := do(t, router, http.MethodPost, "/scores/signup/", signupBody("alice", 2, 2))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Player name already exists.", decodeBody(t, rec)["detail"])
}

func TestSignupWithoutTrailingSlash(t *testing.T) {
	router := newRouter(t, memory.New())
	rec := do(t, router, http.MethodPost, "/scores/signup", signupBody("alice", 1, 1))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestShowScoreNotFound(t *testing.T) {
	router := newRouter(t, memory.New())

	rec := do(t, router, http.MethodGet, "/scores/show_score/ghost", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Player not found.", decodeBody(t, rec)["detail"])
}

func TestUpdateScore(t *testing.T) {
	router := newRouter(t, memory.New())

	rec := do(t, router, http.MethodPut, "/scores/update_user_score/", `{"playerName":"ghost","password":"x","score":1,"timeTaken":1}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	require.Equal(t, http.StatusOK, do(t, router, http.MethodPost, "/scores/signup/", signupBody("alice", 100, 12.5)).Code)

	rec = do(t, router, http.MethodPut, "/scores/update_user_score/", `{"playerName":"alice","password":"x","score":40,"timeTaken":3.25}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "User score updated successfully", decodeBody(t, rec)["message"])

	body := decodeBody(t, do(t, router, http.MethodGet, "/scores/show_score/alice", ""))
	assert.Equal(t, float64(40), body["score"])
	assert.Equal(t, 3.25, body["timeTaken"])
}

func TestMalformedBody(t *testing.T) {
	router := newRouter(t, memory.New())

	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/scores/signup/"},
		{http.MethodPost, "/scores/login/"},
		{http.MethodPut, "/scores/update_user_score/"},
	} {
		rec := do(t, router, tc.method, tc.path, `{"playerName":`)
		assert.Equal(t, http.StatusBadRequest, rec.Code, tc.path)
		assert.NotEmpty(t, decodeBody(t, rec)["detail"], tc.path)
	}
}

func TestSignupMissingPassword(t *testing.T) {
	router := newRouter(t, memory.New())

	rec := do(t, router, http.MethodPost, "/scores/signup/", `{"playerName":"alice"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogin(t *testing.T) {
	router := newRouter(t, memory.New())
	require.Equal(t, http.StatusOK, do(t, router, http.MethodPost, "/scores/signup/", signupBody("alice", 1, 1)).Code)

	rec := do(t, router, http.MethodPost, "/scores/login/", `{"playerName":"alice","password":"secret"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome, alice!", decodeBody(t, rec)["message"])

	rec = do(t, router, http.MethodPost, "/scores/login/", `{"playerName":"alice","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid password.", decodeBody(t, rec)["detail"])

	rec = do(t, router, http.MethodPost, "/scores/login/", `{"playerName":"bob","password":"secret"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSignupAndLoginWithLongPassword(t *testing.T) {
	router := newRouter(t, memory.New())
	password := strings.Repeat("p", 80)

	rec := do(t, router, http.MethodPost, "/scores/signup/", fmt.Sprintf(`{"playerName":"alice","password":%q,"score":1,"timeTaken":1}`, password))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "User registered successfully", decodeBody(t, rec)["message"])

	rec = do(t, router, http.MethodPost, "/scores/login/", fmt.Sprintf(`{"playerName":"alice","password":%q}`, password))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, router, http.MethodPost, "/scores/login/", fmt.Sprintf(`{"playerName":"alice","password":%q}`, password[:79]))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginLegacyPlaintextRecord(t *testing.T) {
	st := memory.New()
	require.NoError(t, st.Insert(context.Background(), &domain.PlayerRecord{PlayerName: "alice", PasswordHash: "pw"}))
	router := newRouter(t, st)

	for _, password := range []string{"pw", "wrong"} {
		rec := do(t, router, http.MethodPost, "/scores/login/", fmt.Sprintf(`{"playerName":"alice","password":%q}`, password))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, password)
		assert.Equal(t, "Invalid password.", decodeBody(t, rec)["detail"], password)
	}
}

func TestUpdateScoreEmptyPlayerName(t *testing.T) {
	router := newRouter(t, memory.New())

	rec := do(t, router, http.MethodPut, "/scores/update_user_score/", `{"playerName":"","password":"x","score":1,"timeTaken":1}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Player not found.", decodeBody(t, rec)["detail"])
}

func TestDeleteScore(t *testing.T) {
	router := newRouter(t, memory.New())
	require.Equal(t, http.StatusOK, do(t, router, http.MethodPost, "/scores/signup/", signupBody("alice", 1, 1)).Code)

	rec := do(t, router, http.MethodDelete, "/scores/delete_user_score/alice", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "User deleted successfully", decodeBody(t, rec)["message"])

	assert.Equal(t, http.StatusNotFound, do(t, router, http.MethodGet, "/scores/show_score/alice", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, router, http.MethodDelete, "/scores/delete_user_score/alice", "").Code)
}

func TestLeaderboard(t *testing.T) {
	router := newRouter(t, memory.New())

	rec := do(t, router, http.MethodGet, "/scores/leaderboard", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	for i := 0; i < 12; i++ {
		require.Equal(t, http.StatusOK, do(t, router, http.MethodPost, "/scores/signup/", signupBody(fmt.Sprintf("p%02d", i), int64(i), float64(i))).Code)
	}

	rec = do(t, router, http.MethodGet, "/scores/leaderboard", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var entries []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 10)
	assert.Equal(t, "p11", entries[0]["playerName"])
	assert.NotEmpty(t, entries[0]["id"])
	assert.NotContains(t, entries[0], "password")
	for i := 1; i < len(entries); i++ {
		assert.GreaterOrEqual(t, entries[i-1]["score"].(float64), entries[i]["score"].(float64))
	}
}

func TestStoreFailureIsInternalError(t *testing.T) {
	router := newRouter(t, brokenStore{})

	rec := do(t, router, http.MethodGet, "/scores/show_score/alice", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal server error", decodeBody(t, rec)["detail"])
}

func TestHealthAndReady(t *testing.T) {
	router := newRouter(t, memory.New())
	assert.Equal(t, http.StatusOK, do(t, router, http.MethodGet, "/health", "").Code)
	assert.Equal(t, http.StatusOK, do(t, router, http.MethodGet, "/ready", "").Code)

	broken := newRouter(t, brokenStore{})
	assert.Equal(t, http.StatusServiceUnavailable, do(t, broken, http.MethodGet, "/ready", "").Code)
}

func TestWebSocketStats(t *testing.T) {
	router := newRouter(t, memory.New())

	rec := do(t, router, http.MethodGet, "/ws/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(0), decodeBody(t, rec)["total_connections"])
}

func TestCORS(t *testing.T) {
	router := newRouter(t, memory.New())

	req := httptest.NewRequest(http.MethodOptions, "/scores/signup/", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/scores/signup/", nil)
	req.Header.Set("Origin", "http://evil.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/scores/leaderboard", nil)
	req.Header.Set("Origin", "http://evil.example.com")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
