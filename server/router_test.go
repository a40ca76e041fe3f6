package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"social-dashboard/infrastructure/cache"
	"social-dashboard/infrastructure/metrics"
	httpHandler "social-dashboard/interfaces/http"
	"social-dashboard/interfaces/middleware"
	"social-dashboard/usecase"
)

func TestInitiateRouter(t *testing.T) {
	const secret = "router-secret"
	collector := metrics.NewCollector()
	limiter := usecase.NewRateLimiter(cache.NewMemoryRateLimit(), nil, nil, collector)
	router := InitiateRouter(Handlers{
		RateLimit:  httpHandler.NewRateLimitHandler(limiter),
		Metrics:    collector.Handler(),
		Instrument: collector.Middleware(),
	}, secret)

	token, err := middleware.IssueToken("u1", secret, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name   string
		method string
		path   string
		auth   string
		origin string
		status int
	}{
		{name: "health is public", method: http.MethodGet, path: "/healthz", status: http.StatusOK},
		{name: "api needs a token", method: http.MethodGet, path: "/api/rate-limits/email", status: http.StatusUnauthorized},
		{name: "api with token", method: http.MethodGet, path: "/api/rate-limits/email", auth: "Bearer " + token, status: http.StatusOK},
		{name: "unregistered handler", method: http.MethodGet, path: "/api/alerts", auth: "Bearer " + token, status: http.StatusNotFound},
		{name: "metrics", method: http.MethodGet, path: "/metrics", status: http.StatusOK},
		{name: "preflight", method: http.MethodOptions, path: "/api/rate-limits/email", origin: "http://localhost:4200", status: http.StatusNoContent},
		{name: "preflight from unknown origin", method: http.MethodOptions, path: "/api/rate-limits/email", origin: "https://evil.example", status: http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.auth != "" {
				req.Header.Set("Authorization", tt.auth)
			}
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
				req.Header.Set("Access-Control-Request-Method", http.MethodGet)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
		})
	}

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Contains(t, w.Body.String(), `social_dashboard_http_requests_total{endpoint="/api/rate-limits/:category"`)
}
