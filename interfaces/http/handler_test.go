package http_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"social-dashboard/domain/model"
	"social-dashboard/infrastructure/cache"
	"social-dashboard/infrastructure/clients"
	"social-dashboard/infrastructure/clock"
	"social-dashboard/infrastructure/persistence"
	httpHandler "social-dashboard/interfaces/http"
	"social-dashboard/usecase"
)

var t0 = time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

type mockAlertUsecase struct {
	mock.Mock
}

func (m *mockAlertUsecase) GetConfig(ctx context.Context, userID string) (*model.AlertConfig, error) {
	args := m.Called(ctx, userID)
	cfg, _ := args.Get(0).(*model.AlertConfig)
	return cfg, args.Error(1)
}

func (m *mockAlertUsecase) UpdateConfig(ctx context.Context, cfg *model.AlertConfig) (*model.AlertConfig, error) {
	args := m.Called(ctx, cfg)
	out, _ := args.Get(0).(*model.AlertConfig)
	return out, args.Error(1)
}

func (m *mockAlertUsecase) EvaluateSnapshot(ctx context.Context, userID string, snapshot model.MetricSnapshot) []*model.MonitoringAlert {
	args := m.Called(ctx, userID, snapshot)
	out, _ := args.Get(0).([]*model.MonitoringAlert)
	return out
}

func (m *mockAlertUsecase) EvaluateFailures(ctx context.Context, userID string, count int64, windowStart, windowEnd time.Time) *model.MonitoringAlert {
	args := m.Called(ctx, userID, count, windowStart, windowEnd)
	out, _ := args.Get(0).(*model.MonitoringAlert)
	return out
}

func (m *mockAlertUsecase) GetAlert(ctx context.Context, id string) (*model.MonitoringAlert, error) {
	args := m.Called(ctx, id)
	out, _ := args.Get(0).(*model.MonitoringAlert)
	return out, args.Error(1)
}

func (m *mockAlertUsecase) ListAlerts(ctx context.Context, userID string, status *model.AlertStatus, since *time.Time) ([]*model.MonitoringAlert, error) {
	args := m.Called(ctx, userID, status, since)
	out, _ := args.Get(0).([]*model.MonitoringAlert)
	return out, args.Error(1)
}

func (m *mockAlertUsecase) ResolveAlert(ctx context.Context, id string) (*model.MonitoringAlert, error) {
	args := m.Called(ctx, id)
	out, _ := args.Get(0).(*model.MonitoringAlert)
	return out, args.Error(1)
}

type nopNotifier struct{}

func (nopNotifier) SendEmail(context.Context, string, string, string, map[string]interface{}) error {
	return nil
}

func (nopNotifier) PostWebhook(context.Context, string, interface{}) error { return nil }

type stubClient struct {
	err error
}

func (s stubClient) Upload(context.Context, string, string) (string, error) { return "m1", nil }

func (s stubClient) Publish(context.Context, string, []string) (model.PostResult, error) {
	if s.err != nil {
		return model.PostResult{}, s.err
	}
	return model.PostResult{ExternalRef: "ext-1"}, nil
}

// newEngine stands in for the auth middleware with an X-User header.
func newEngine(register func(r *gin.RouterGroup)) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	api := r.Group("/api")
	api.Use(func(c *gin.Context) {
		if u := c.GetHeader("X-User"); u != "" {
			c.Set("user_id", u)
		}
	})
	register(api)
	return r
}

func do(r http.Handler, method, path, user, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("X-User", user)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func alertRouter(uc usecase.IAlertUsecase) *gin.Engine {
	h := httpHandler.NewAlertHandler(uc)
	return newEngine(func(api *gin.RouterGroup) {
		api.GET("/alerts/config", h.GetConfig)
		api.PUT("/alerts/config", h.UpdateConfig)
		api.GET("/alerts", h.List)
		api.POST("/alerts/:id/resolve", h.Resolve)
	})
}

func TestAlertHandler_Config(t *testing.T) {
	uc := new(mockAlertUsecase)
	r := alertRouter(uc)
	def := model.DefaultAlertConfig("u1")
	uc.On("GetConfig", mock.Anything, "u1").Return(&def, nil)

	w := do(r, http.MethodGet, "/api/alerts/config", "u1", "")
	require.Equal(t, http.StatusOK, w.Code)
	var got model.AlertConfig
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "u1", got.UserID)

	w = do(r, http.MethodGet, "/api/alerts/config", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, http.MethodPut, "/api/alerts/config", "u1", "{")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	uc.On("UpdateConfig", mock.Anything, mock.MatchedBy(func(c *model.AlertConfig) bool {
		return c.UserID == "u1" && c.CooldownMinutes == -1
	})).Return(nil, model.ErrInvalidAlertConfig)
	w = do(r, http.MethodPut, "/api/alerts/config", "u1", `{"userId":"someone-else","cooldownMinutes":-1}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	uc.AssertExpectations(t)
}

func TestAlertHandler_List(t *testing.T) {
	uc := new(mockAlertUsecase)
	r := alertRouter(uc)
	active := model.AlertStatusActive
	since := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	uc.On("ListAlerts", mock.Anything, "u1", &active, &since).Return([]*model.MonitoringAlert{{ID: "a1", UserID: "u1"}}, nil)
	uc.On("ListAlerts", mock.Anything, "u2", (*model.AlertStatus)(nil), (*time.Time)(nil)).Return(nil, nil)

	tests := []struct {
		name   string
		user   string
		query  string
		status int
		count  int
	}{
		{name: "filters", user: "u1", query: "?status=active&since=2024-03-01T00:00:00Z", status: http.StatusOK, count: 1},
		{name: "empty list", user: "u2", status: http.StatusOK, count: 0},
		{name: "bad status", user: "u1", query: "?status=open", status: http.StatusBadRequest},
		{name: "bad since", user: "u1", query: "?since=yesterday", status: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, http.MethodGet, "/api/alerts"+tt.query, tt.user, "")
			require.Equal(t, tt.status, w.Code)
			if tt.status != http.StatusOK {
				return
			}
			var body struct {
				Data []model.MonitoringAlert `json:"data"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.NotNil(t, body.Data)
			assert.Len(t, body.Data, tt.count)
		})
	}
}

func TestAlertHandler_Resolve(t *testing.T) {
	uc := new(mockAlertUsecase)
	r := alertRouter(uc)
	uc.On("GetAlert", mock.Anything, "a1").Return(&model.MonitoringAlert{ID: "a1", UserID: "u1", Status: model.AlertStatusActive}, nil)
	uc.On("GetAlert", mock.Anything, "missing").Return(nil, model.ErrAlertNotFound)
	uc.On("ResolveAlert", mock.Anything, "a1").Return(&model.MonitoringAlert{ID: "a1", UserID: "u1", Status: model.AlertStatusResolved}, nil).Once()

	w := do(r, http.MethodPost, "/api/alerts/a1/resolve", "u2", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(r, http.MethodPost, "/api/alerts/missing/resolve", "u1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(r, http.MethodPost, "/api/alerts/a1/resolve", "u1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"resolved"`)
	uc.AssertNumberOfCalls(t, "ResolveAlert", 1)
}

func TestRateLimitHandler(t *testing.T) {
	clk := clock.NewFake(t0)
	limiter := usecase.NewRateLimiter(cache.NewMemoryRateLimit(), nil, clk, nil)
	h := httpHandler.NewRateLimitHandler(limiter)
	r := newEngine(func(api *gin.RouterGroup) {
		api.GET("/rate-limits/:category", h.Status)
		api.DELETE("/rate-limits/:category", h.Clear)
	})
	ctx := context.Background()
	for i := 0; i < 10; i++ {
		limiter.IsLimited(ctx, "u1", model.RateLimitAlert)
	}

	w := do(r, http.MethodGet, "/api/rate-limits/alert", "u1", "")
	require.Equal(t, http.StatusOK, w.Code)
	var status model.RateLimitStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.True(t, status.IsLimited)
	assert.Equal(t, 0, status.Remaining)

	w = do(r, http.MethodGet, "/api/rate-limits/sms", "u1", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodDelete, "/api/rate-limits/alert", "u1", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.False(t, limiter.IsLimited(ctx, "u1", model.RateLimitAlert))
}

func TestReportHandler(t *testing.T) {
	clk := clock.NewFake(t0)
	store := persistence.NewMemoryStore()
	generator := usecase.NewReportGenerator(persistence.NewMemoryDeliveryEventRepository(), persistence.NewAlertRepository(store), clk)
	reports := usecase.NewReportUsecase(persistence.NewMemoryReportScheduleRepository(), generator, nopNotifier{}, clk, nil)
	t.Cleanup(reports.Stop)
	h := httpHandler.NewReportHandler(reports)
	r := newEngine(func(api *gin.RouterGroup) {
		api.GET("/reports/schedules", h.List)
		api.POST("/reports/schedules", h.Create)
		api.PUT("/reports/schedules/:id", h.Update)
		api.DELETE("/reports/schedules/:id", h.Delete)
	})

	body := `{"frequency":"daily","time":"10:00","format":"csv","recipients":["ops@example.com"],"enabled":true}`
	w := do(r, http.MethodPost, "/api/reports/schedules", "u1", body)
	require.Equal(t, http.StatusCreated, w.Code)
	var created model.ReportSchedule
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "u1", created.UserID)
	assert.Equal(t, t0.Add(time.Hour), created.NextRun)

	w = do(r, http.MethodPost, "/api/reports/schedules", "u1", `{"frequency":"weekly","time":"10:00","format":"csv","recipients":["ops@example.com"]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodGet, "/api/reports/schedules", "u1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), created.ID)

	w = do(r, http.MethodPut, "/api/reports/schedules/"+created.ID, "u2", body)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(r, http.MethodPut, "/api/reports/schedules/"+created.ID, "u1", strings.Replace(body, "10:00", "08:30", 1))
	require.Equal(t, http.StatusOK, w.Code)
	var updated model.ReportSchedule
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, time.Date(2024, 3, 5, 8, 30, 0, 0, time.UTC), updated.NextRun)

	w = do(r, http.MethodDelete, "/api/reports/schedules/"+created.ID, "u2", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = do(r, http.MethodDelete, "/api/reports/schedules/"+created.ID, "u1", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = do(r, http.MethodDelete, "/api/reports/schedules/"+created.ID, "u1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestNotificationHandler(t *testing.T) {
	clk := clock.NewFake(t0)
	repo := persistence.NewNotificationRepository(persistence.NewMemoryStore())
	limiter := usecase.NewRateLimiter(cache.NewMemoryRateLimit(), nil, clk, nil)
	notifications := usecase.NewNotificationUsecase(repo, nopNotifier{}, limiter, clk, nil, "")
	h := httpHandler.NewNotificationHandler(notifications)
	r := newEngine(func(api *gin.RouterGroup) {
		api.GET("/notifications/preferences", h.GetPreference)
		api.PUT("/notifications/preferences", h.UpdatePreference)
	})

	w := do(r, http.MethodGet, "/api/notifications/preferences", "u1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"frequency":"immediate"`)

	w = do(r, http.MethodPut, "/api/notifications/preferences", "u1", `{"email":"u1@example.com","frequency":"weekly"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPut, "/api/notifications/preferences", "u1", `{"email":"u1@example.com","frequency":"daily"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodGet, "/api/notifications/preferences", "u1", "")
	var pref model.NotificationPreference
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pref))
	assert.Equal(t, model.NotifyDaily, pref.Frequency)
	assert.Equal(t, "u1@example.com", pref.Email)
}

func TestPostHandler_Publish(t *testing.T) {
	clk := clock.NewFake(t0)
	registry := clients.NewRegistry()
	registry.Register(model.PlatformTwitter, stubClient{})
	registry.Register(model.PlatformFacebook, stubClient{err: &model.PlatformError{Message: "invalid token", StatusCode: 400}})
	retry := usecase.NewRetryOrchestrator(nil, nil, nil, clk, nil)
	h := httpHandler.NewPostHandler(usecase.NewPublishUsecase(registry, retry, nil, clk, nil))
	r := newEngine(func(api *gin.RouterGroup) {
		api.POST("/posts/publish", h.Publish)
	})

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{name: "all succeed", body: `{"content":"hi","platforms":["twitter"]}`, status: http.StatusOK},
		{name: "partial failure", body: `{"content":"hi","platforms":["twitter","facebook"]}`, status: http.StatusMultiStatus},
		{name: "all fail", body: `{"content":"hi","platforms":["facebook"]}`, status: http.StatusBadGateway},
		{name: "no platforms field", body: `{"content":"hi"}`, status: http.StatusBadRequest},
		{name: "empty post", body: `{"platforms":["twitter"]}`, status: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, http.MethodPost, "/api/posts/publish", "u1", tt.body)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestMonitoringHandler(t *testing.T) {
	clk := clock.NewFake(t0)
	store := persistence.NewMemoryStore()
	configs := persistence.NewAlertConfigRepository(store)
	limiter := usecase.NewRateLimiter(cache.NewMemoryRateLimit(), nil, clk, nil)
	alerts := usecase.NewAlertUsecase(configs, persistence.NewAlertRepository(store), limiter, usecase.AlertChannels{}, clk, nil)
	monitor := usecase.NewMonitorUsecase(persistence.NewMemoryDeliveryEventRepository(), configs, alerts, clk, usecase.DefaultMonitorWindows)
	h := httpHandler.NewMonitoringHandler(monitor)
	r := newEngine(func(api *gin.RouterGroup) {
		api.POST("/monitoring/sample", h.Sample)
		api.POST("/monitoring/events", h.RecordEvent)
	})

	w := do(r, http.MethodPost, "/api/monitoring/events", "u1", `{"kind":"exploded"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	for i := 0; i < 4; i++ {
		w = do(r, http.MethodPost, "/api/monitoring/events", "u1", `{"kind":"sent"}`)
		require.Equal(t, http.StatusAccepted, w.Code)
	}
	w = do(r, http.MethodPost, "/api/monitoring/events", "u1", `{"kind":"delivered","responseTimeMs":120}`)
	require.Equal(t, http.StatusAccepted, w.Code)

	w = do(r, http.MethodPost, "/api/monitoring/sample", "u1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"type":"delivery_rate"`)

	w = do(r, http.MethodPost, "/api/monitoring/sample", "u2", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":[]}`, w.Body.String())
}
