package usecase_test

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"social-dashboard/domain/model"
	"social-dashboard/infrastructure/clock"
	"social-dashboard/infrastructure/persistence"
	"social-dashboard/usecase"
)

func seededGenerator(t *testing.T) (usecase.IReportGenerator, time.Time, time.Time) {
	t.Helper()
	ctx := context.Background()
	events := persistence.NewMemoryDeliveryEventRepository()
	alerts := persistence.NewAlertRepository(persistence.NewMemoryStore())
	from, to := t0.Add(-24*time.Hour), t0
	fb, li := model.PlatformFacebook, model.PlatformLinkedIn

	add := func(p *model.Platform, kind model.DeliveryEventKind, n int) {
		for i := 0; i < n; i++ {
			require.NoError(t, events.Record(ctx, &model.DeliveryEvent{UserID: "u1", Platform: p, Kind: kind, OccurredAt: from.Add(time.Hour)}))
		}
	}
	add(&fb, model.DeliverySent, 4)
	add(&fb, model.DeliveryDelivered, 4)
	add(&li, model.DeliverySent, 2)
	add(&li, model.DeliveryDelivered, 1)

	seedAlert := func(id string, ts time.Time) {
		require.NoError(t, alerts.Create(ctx, &model.MonitoringAlert{
			ID: id, UserID: "u1", Type: model.AlertDeliveryRate, Value: 50, Threshold: 95,
			Status: model.AlertStatusActive, Timestamp: ts, Platform: &li,
		}))
	}
	seedAlert("in-window", from.Add(2*time.Hour))
	seedAlert("before", from.Add(-time.Hour))
	seedAlert("after", to.Add(time.Minute))

	return usecase.NewReportGenerator(events, alerts, clock.NewFake(t0)), from, to
}

func fullSchedule(format model.ReportFormat) *model.ReportSchedule {
	return &model.ReportSchedule{
		ID: "s1", UserID: "u1", Frequency: model.ReportDaily, Time: "10:00", Format: format,
		IncludeMetrics: true, IncludeAlerts: true, IncludePlatformData: true,
	}
}

func TestReportGenerator_CSV(t *testing.T) {
	g, from, to := seededGenerator(t)
	report, err := g.Generate(context.Background(), fullSchedule(model.ReportFormatCSV), from, to)
	require.NoError(t, err)

	rows, err := csv.NewReader(strings.NewReader(string(report.Content))).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"section", "platform", "name", "value", "timestamp"}, rows[0])
	// 5 metric rows, 5 per platform, one alert
	require.Len(t, rows, 1+5+10+1)
	assert.Equal(t, []string{"metrics", "all", "sent", "6", to.Format(time.RFC3339)}, rows[1])
	assert.Equal(t, "83.33", rows[2][3])
	assert.Equal(t, "facebook", rows[6][1])
	assert.Equal(t, "linkedin", rows[11][1])
	assert.Equal(t, []string{"alert", "linkedin", "delivery_rate", "50.00", from.Add(2 * time.Hour).Format(time.RFC3339)}, rows[16])
}

func TestReportGenerator_JSON(t *testing.T) {
	g, from, to := seededGenerator(t)
	s := fullSchedule(model.ReportFormatJSON)
	s.IncludePlatformData = false
	report, err := g.Generate(context.Background(), s, from, to)
	require.NoError(t, err)

	var decoded model.Report
	require.NoError(t, json.Unmarshal(report.Content, &decoded))
	assert.Equal(t, "s1", decoded.ScheduleID)
	require.NotNil(t, decoded.Metrics)
	assert.Equal(t, int64(6), decoded.Metrics.Sent)
	assert.Empty(t, decoded.Platforms)
	require.Len(t, decoded.Alerts, 1)
	assert.Equal(t, "in-window", decoded.Alerts[0].ID)
	assert.Equal(t, t0, decoded.GeneratedAt)
}

func TestReportGenerator_OnlyRequestedSections(t *testing.T) {
	g, from, to := seededGenerator(t)
	s := &model.ReportSchedule{ID: "s2", UserID: "u1", Format: model.ReportFormatCSV}
	report, err := g.Generate(context.Background(), s, from, to)
	require.NoError(t, err)
	assert.Equal(t, "section,platform,name,value,timestamp\n", string(report.Content))
}
