package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pghttp "github.com/dropDatabas3/passguard/internal/http"
	"github.com/dropDatabas3/passguard/internal/policy"
	"github.com/dropDatabas3/passguard/internal/store"
)

type fakeStore struct {
	roles map[string]store.Overrides
	err   error
}

func (f *fakeStore) RoleOverrides(_ context.Context, role string) (store.Overrides, bool, error) {
	if f.err != nil {
		return store.Overrides{}, false, f.err
	}
	o, ok := f.roles[role]
	return o, ok, nil
}

func (f *fakeStore) Ping(context.Context) error { return f.err }
func (f *fakeStore) Close() error               { return nil }

func newServer(t *testing.T, base policy.Config, st store.Store, reportAll bool, adminKey string) *httptest.Server {
	t.Helper()
	router := pghttp.NewRouter(pghttp.RouterConfig{
		Handler:           pghttp.NewHandler(base, st, reportAll),
		AdminAPIKey:       adminKey,
		MetricsRegisterer: prometheus.NewRegistry(),
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

type checkResp struct {
	Decision   string `json:"decision"`
	Violations []struct {
		Kind     string `json:"kind"`
		Message  string `json:"message"`
		Actual   int    `json:"actual"`
		Required int    `json:"required"`
	} `json:"violations"`
}

func postCheck(t *testing.T, srv *httptest.Server, body string) (int, checkResp) {
	t.Helper()
	resp, err := http.Post(srv.URL+"/v1/check", "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out checkResp
	if resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp.StatusCode, out
}

func basePolicy(min int) policy.Config {
	return policy.Config{
		MinLength:      min,
		RequireUpper:   true,
		RequireLower:   true,
		RequireDigit:   true,
		RequireSpecial: true,
		RejectUsername: true,
	}
}

func TestCheck_Accept(t *testing.T) {
	srv := newServer(t, basePolicy(8), store.None{}, true, "")
	code, out := postCheck(t, srv, `{"username":"sp_ok","password":"Abc12345!"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "accept", out.Decision)
	assert.Empty(t, out.Violations)
}

func TestCheck_RejectReportsAll(t *testing.T) {
	srv := newServer(t, basePolicy(8), store.None{}, true, "")
	code, out := postCheck(t, srv, `{"username":"ab","password":"ab"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "reject", out.Decision)

	var kinds []string
	for _, v := range out.Violations {
		kinds = append(kinds, v.Kind)
		assert.NotEmpty(t, v.Message)
	}
	assert.Equal(t, []string{"too_short", "missing_upper", "missing_digit", "missing_special", "contains_username"}, kinds)
	assert.Equal(t, 2, out.Violations[0].Actual)
	assert.Equal(t, 8, out.Violations[0].Required)
}

func TestCheck_FirstOnlyReporting(t *testing.T) {
	srv := newServer(t, basePolicy(8), store.None{}, false, "")
	code, out := postCheck(t, srv, `{"username":"ab","password":"ab"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "reject", out.Decision)
	require.Len(t, out.Violations, 1)
	assert.Equal(t, "too_short", out.Violations[0].Kind)
}

func TestCheck_NullPasswordIsAccepted(t *testing.T) {
	// Password-clear operations carry an explicit null and bypass the rules.
	srv := newServer(t, basePolicy(64), store.None{}, true, "")
	code, out := postCheck(t, srv, `{"username":"alice","password":null}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "accept", out.Decision)
	assert.Empty(t, out.Violations)
}

func TestCheck_LogOnlyWarns(t *testing.T) {
	base := basePolicy(8)
	base.LogOnly = true
	srv := newServer(t, base, store.None{}, true, "")
	code, out := postCheck(t, srv, `{"username":"sp_noupper","password":"abc12345!"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "warn", out.Decision)
	require.Len(t, out.Violations, 1)
	assert.Equal(t, "missing_upper", out.Violations[0].Kind)
}

func TestCheck_RoleOverrideApplies(t *testing.T) {
	six := 6
	st := &fakeStore{roles: map[string]store.Overrides{
		"app_ro": {MinLength: &six},
	}}
	srv := newServer(t, basePolicy(12), st, true, "")

	// Under the default policy this would be too_short; the role override
	// relaxes min_length to 6.
	code, out := postCheck(t, srv, `{"username":"bob","password":"Ab1!xyz","role":"app_ro"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "accept", out.Decision)
}

func TestCheck_RoleDefaultsToUsername(t *testing.T) {
	logOnly := true
	st := &fakeStore{roles: map[string]store.Overrides{
		"carol": {LogOnly: &logOnly},
	}}
	srv := newServer(t, basePolicy(12), st, true, "")

	code, out := postCheck(t, srv, `{"username":"carol","password":"short"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "warn", out.Decision, "username should be used as role when role is omitted")
}

func TestCheck_StoreFailureFallsBackToDefaults(t *testing.T) {
	st := &fakeStore{err: context.DeadlineExceeded}
	srv := newServer(t, basePolicy(8), st, true, "")

	code, out := postCheck(t, srv, `{"username":"sp_ok","password":"Abc12345!","role":"any"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "accept", out.Decision, "store outage must not block credential changes")
}

func TestCheck_MalformedBody(t *testing.T) {
	srv := newServer(t, basePolicy(8), store.None{}, true, "")
	code, _ := postCheck(t, srv, `{"username":`)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestPolicy_EffectiveAndGuarded(t *testing.T) {
	six := 6
	st := &fakeStore{roles: map[string]store.Overrides{"app_ro": {MinLength: &six}}}
	srv := newServer(t, basePolicy(12), st, true, "sekret")

	// Without the key.
	resp, err := http.Get(srv.URL + "/v1/policy?role=app_ro")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// With the key.
	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/v1/policy?role=app_ro", nil)
	req.Header.Set("X-Admin-API-Key", "sekret")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Overridden bool `json:"overridden"`
		MinLength  int  `json:"min_length"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.True(t, out.Overridden)
	assert.Equal(t, 6, out.MinLength)
}

func TestHealthAndReadiness(t *testing.T) {
	srv := newServer(t, basePolicy(8), store.None{}, true, "")
	for _, path := range []string{"/healthz", "/readyz"} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}

	down := newServer(t, basePolicy(8), &fakeStore{err: context.DeadlineExceeded}, true, "")
	resp, err := http.Get(down.URL + "/readyz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestRequestIDPropagates(t *testing.T) {
	srv := newServer(t, basePolicy(8), store.None{}, true, "")
	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/healthz", nil)
	req.Header.Set("X-Request-ID", "rid-123")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "rid-123", resp.Header.Get("X-Request-ID"))
}
