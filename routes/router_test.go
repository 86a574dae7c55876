package routes_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/compoundhabits/habits/config"
	"github.com/compoundhabits/habits/controllers"
	"github.com/compoundhabits/habits/middleware"
	"github.com/compoundhabits/habits/models"
	"github.com/compoundhabits/habits/routes"
	"github.com/compoundhabits/habits/store"
	"github.com/compoundhabits/habits/testutil"
	"github.com/compoundhabits/habits/utils"
)

const secret = "test-secret"

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type app struct {
	t       *testing.T
	handler http.Handler
	store   *store.Store
	now     time.Time
}

func newApp(t *testing.T, providers map[string]*controllers.OAuthProvider) *app {
	t.Helper()
	a := &app{t: t, now: time.Date(2024, time.March, 1, 9, 0, 0, 0, time.Local)}
	db := testutil.NewDB(t)
	clock := func() time.Time { return a.now }
	a.store = store.New(db, store.WithClock(clock))
	a.handler = routes.SetupRouter(routes.Deps{
		Config: config.AppConfig{
			JWTSecret:          secret,
			SessionTTLHours:    1,
			RateLimitPerMinute: 10000,
			AllowedOrigins:     []string{"*"},
			GinMode:            "test",
			StatsCacheTTLSecs:  60,
		},
		DB:        db,
		Providers: providers,
		Now:       clock,
	})
	return a
}

func (a *app) login(subject string) string {
	a.t.Helper()
	u, err := a.store.EnsureUser(context.Background(), store.Identity{Provider: "google", Subject: subject, Email: subject + "@example.com"})
	require.NoError(a.t, err)
	token, _, err := utils.NewTokenManager(secret, time.Hour).GenerateToken(u)
	require.NoError(a.t, err)
	return token
}

func (a *app) do(method, path, token string, body interface{}) (int, envelope) {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.handler.ServeHTTP(w, req)

	var env envelope
	require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

type snapshot struct {
	ID          uint    `json:"id"`
	Name        string  `json:"name"`
	Unit        *string `json:"unit"`
	TodayTotal  float64 `json:"today_total"`
	TodayCount  int64   `json:"today_count"`
	LatestValue float64 `json:"latest_value"`
}

func TestHealth(t *testing.T) {
	a := newApp(t, nil)
	status, env := a.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":"ok"}`, string(env.Data))

	status, env = a.do(http.MethodGet, "/api/v1/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, 40400, env.Code)
}

func TestHabitLifecycle(t *testing.T) {
	a := newApp(t, nil)
	token := a.login("alice")

	status, env := a.do(http.MethodPost, "/api/v1/habits", token, map[string]interface{}{
		"name": "<b>Pushups</b>", "unit": "reps", "default_value": 10,
	})
	require.Equal(t, http.StatusCreated, status, env.Message)
	created := decode[snapshot](t, env.Data)
	assert.Equal(t, "Pushups", created.Name)
	assert.Equal(t, 10.0, created.LatestValue)
	base := "/api/v1/habits/" + itoa(created.ID)

	// Day 1: default value then an explicit one.
	status, env = a.do(http.MethodPost, base+"/entries", token, nil)
	require.Equal(t, http.StatusOK, status, env.Message)
	status, env = a.do(http.MethodPost, base+"/entries", token, map[string]float64{"value": 5})
	require.Equal(t, http.StatusOK, status)
	snap := decode[snapshot](t, env.Data)
	assert.Equal(t, 15.0, snap.TodayTotal)
	assert.Equal(t, int64(2), snap.TodayCount)
	assert.Equal(t, 5.0, snap.LatestValue)

	// Day 3.
	a.now = a.now.AddDate(0, 0, 2)
	_, _ = a.do(http.MethodPost, base+"/entries", token, map[string]float64{"value": 20})

	status, env = a.do(http.MethodGet, base+"/series/average?days=2", token, nil)
	require.Equal(t, http.StatusOK, status)
	line := decode[struct {
		Dates  []string  `json:"dates"`
		Values []float64 `json:"values"`
		YLabel string    `json:"y_label"`
	}](t, env.Data)
	assert.Equal(t, []string{"2024-03-01", "2024-03-02", "2024-03-03"}, line.Dates)
	assert.Equal(t, []float64{7.5, 0, 20}, line.Values)
	assert.Equal(t, "Average reps", line.YLabel)

	status, env = a.do(http.MethodGet, "/api/v1/heatmap", token, nil)
	require.Equal(t, http.StatusOK, status)
	hm := decode[struct {
		Habits   []string    `json:"habits"`
		Dates    []string    `json:"dates"`
		Sums     [][]float64 `json:"sums"`
		Counts   [][]int64   `json:"counts"`
		MaxCount int64       `json:"max_count"`
	}](t, env.Data)
	assert.Equal(t, []string{"Pushups"}, hm.Habits)
	require.Len(t, hm.Dates, 31)
	assert.Equal(t, 15.0, hm.Sums[0][28])
	assert.Equal(t, 20.0, hm.Sums[0][30])
	assert.Equal(t, int64(2), hm.MaxCount)

	// Undo the last entry.
	status, env = a.do(http.MethodDelete, base+"/entries/last", token, nil)
	require.Equal(t, http.StatusOK, status)
	snap = decode[snapshot](t, env.Data)
	assert.Zero(t, snap.TodayCount)
	assert.Equal(t, 5.0, snap.LatestValue)

	status, env = a.do(http.MethodGet, "/api/v1/plots", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(env.Data), base+"/series/count")

	status, _ = a.do(http.MethodDelete, base, token, nil)
	assert.Equal(t, http.StatusOK, status)
	status, env = a.do(http.MethodGet, base, token, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, 40401, env.Code)

	status, env = a.do(http.MethodGet, "/api/v1/habits", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[]`, string(env.Data))
}

func TestTenantIsolation(t *testing.T) {
	a := newApp(t, nil)
	alice := a.login("alice")
	bob := a.login("bob")

	_, env := a.do(http.MethodPost, "/api/v1/habits", alice, map[string]string{"name": "Read"})
	h := decode[snapshot](t, env.Data)
	base := "/api/v1/habits/" + itoa(h.ID)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, base},
		{http.MethodPost, base + "/entries"},
		{http.MethodDelete, base + "/entries/last"},
		{http.MethodGet, base + "/series/sum"},
		{http.MethodDelete, base},
	} {
		status, env := a.do(tc.method, tc.path, bob, nil)
		assert.Equal(t, http.StatusNotFound, status, tc.method+" "+tc.path)
		assert.Equal(t, 40401, env.Code)
	}

	_, env = a.do(http.MethodGet, "/api/v1/habits", bob, nil)
	assert.JSONEq(t, `[]`, string(env.Data))
	status, _ := a.do(http.MethodGet, base, alice, nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestBadRequests(t *testing.T) {
	a := newApp(t, nil)
	token := a.login("alice")
	_, env := a.do(http.MethodPost, "/api/v1/habits", token, map[string]string{"name": "Run"})
	base := "/api/v1/habits/" + itoa(decode[snapshot](t, env.Data).ID)

	cases := []struct {
		name   string
		method string
		path   string
		body   interface{}
		code   int
	}{
		{"empty name", http.MethodPost, "/api/v1/habits", map[string]string{"name": "<i></i>"}, 40011},
		{"zero default", http.MethodPost, "/api/v1/habits", map[string]interface{}{"name": "x", "default_value": 0}, 40011},
		{"bad id", http.MethodGet, "/api/v1/habits/abc", nil, 40010},
		{"bad kind", http.MethodGet, base + "/series/median", nil, 40012},
		{"bad days", http.MethodGet, base + "/series/sum?days=-1", nil, 40013},
		{"too many days", http.MethodGet, base + "/series/sum?days=5000", nil, 40013},
		{"bad value", http.MethodPost, base + "/entries", map[string]string{"value": "ten"}, 40020},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, env := a.do(tc.method, tc.path, token, tc.body)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.Equal(t, tc.code, env.Code)
		})
	}

	status, env := a.do(http.MethodGet, "/api/v1/habits", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, 40101, env.Code)
}

type fakeProvider struct {
	srv      *httptest.Server
	verified bool
}

func newFakeGoogle(t *testing.T) *fakeProvider {
	f := &fakeProvider{verified: true}
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer at" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"sub": "g-123", "email": "carol@example.com", "email_verified": f.verified, "name": "Carol",
		})
	})
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeProvider) provider() map[string]*controllers.OAuthProvider {
	return map[string]*controllers.OAuthProvider{"google": {
		Name: "google",
		Config: &oauth2.Config{
			ClientID:     "client",
			ClientSecret: "shh",
			RedirectURL:  "http://localhost/api/v1/auth/oauth/google/callback",
			Endpoint:     oauth2.Endpoint{AuthURL: f.srv.URL + "/auth", TokenURL: f.srv.URL + "/token"},
		},
		UserURL: f.srv.URL + "/userinfo",
	}}
}

func TestOAuthLoginFlow(t *testing.T) {
	fake := newFakeGoogle(t)
	a := newApp(t, fake.provider())

	status, env := a.do(http.MethodGet, "/api/v1/auth/oauth/github/login", "", nil)
	assert.Equal(t, http.StatusBadRequest, status, "github is not configured")
	assert.Equal(t, 40004, env.Code)

	status, env = a.do(http.MethodGet, "/api/v1/auth/oauth/google/login", "", nil)
	require.Equal(t, http.StatusOK, status)
	start := decode[struct {
		URL   string `json:"authorization_url"`
		State string `json:"state"`
	}](t, env.Data)
	assert.Contains(t, start.URL, "state="+start.State)

	callback := "/api/v1/auth/oauth/google/callback?code=xyz&state=" + url.QueryEscape(start.State)
	req := httptest.NewRequest(http.MethodGet, callback, nil)
	w := httptest.NewRecorder()
	a.handler.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var cookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == middleware.SessionCookie {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)

	var body envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	login := decode[struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	}](t, body.Data)
	assert.Equal(t, cookie.Value, login.Token)
	assert.Equal(t, "carol@example.com", login.User.Email)
	assert.NotContains(t, string(body.Data), "g-123", "subject is not exposed")

	// The state is single use.
	status, env = a.do(http.MethodGet, callback, "", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, 40006, env.Code)

	// The cookie alone authenticates.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.AddCookie(cookie)
	w = httptest.NewRecorder()
	a.handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	status, _ = a.do(http.MethodPost, "/api/v1/auth/logout", login.Token, nil)
	assert.Equal(t, http.StatusOK, status)
	status, env = a.do(http.MethodGet, "/api/v1/auth/me", login.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, 40104, env.Code)
}

func TestOAuthRequiresVerifiedEmail(t *testing.T) {
	fake := newFakeGoogle(t)
	fake.verified = false
	a := newApp(t, fake.provider())

	_, env := a.do(http.MethodGet, "/api/v1/auth/oauth/google/login", "", nil)
	state := decode[struct {
		State string `json:"state"`
	}](t, env.Data).State

	status, env := a.do(http.MethodGet, "/api/v1/auth/oauth/google/callback?code=xyz&state="+url.QueryEscape(state), "", nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, 40301, env.Code)

	_, err := a.store.GetUser(context.Background(), 1)
	assert.ErrorIs(t, err, store.ErrNotFound, "no account is created")
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
