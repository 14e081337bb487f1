package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gamestore-dxp/apiserver/config"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() config.Config {
	return config.Config{
		APIPrefix:     "/api",
		CORSOrigins:   []string{"http://localhost:5173"},
		AuthRateLimit: 2,
		Auth: config.AuthConfig{
			JWTSecret:  "test-secret",
			TokenTTL:   time.Hour,
			BcryptCost: 4,
		},
	}
}

func serve(t *testing.T, cfg config.Config, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	logger, _ := test.NewNullLogger()
	router := NewRouter(cfg, logger, Repositories{}, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	rec := serve(t, testConfig(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	serve(t, testConfig(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	rec := serve(t, testConfig(), httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `gamestore_http_requests_total{method="GET",route="/healthz",status="200"}`)
}

func TestMetricsCountRecoveredPanics(t *testing.T) {
	logger, _ := test.NewNullLogger()
	router := NewRouter(testConfig(), logger, Repositories{}, nil)
	router.Get("/panics", func(http.ResponseWriter, *http.Request) {
		panic("handler failed")
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/panics", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `gamestore_http_requests_total{method="GET",route="/panics",status="500"}`)
}

func TestRoutesAreMountedUnderPrefix(t *testing.T) {
	cfg := testConfig()

	rec := serve(t, cfg, httptest.NewRequest(http.MethodGet, "/api/auth/profile", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(t, cfg, httptest.NewRequest(http.MethodGet, "/auth/profile", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCORSPreflightAllowsConfiguredOrigin(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/api/reviews/game-1", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Authorization")

	rec := serve(t, testConfig(), req)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}
