package usecase

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"social-dashboard/domain/model"
	"social-dashboard/domain/repository"
	"social-dashboard/infrastructure/clock"
)

type IReportGenerator interface {
	// Generate builds and renders the schedule's report over [from, to].
	Generate(ctx context.Context, schedule *model.ReportSchedule, from, to time.Time) (*model.Report, error)
}

type reportGenerator struct {
	events repository.IDeliveryEvent
	alerts repository.IAlert
	clock  clock.Clock
}

func NewReportGenerator(events repository.IDeliveryEvent, alerts repository.IAlert, clk clock.Clock) IReportGenerator {
	if clk == nil {
		clk = clock.New()
	}
	return &reportGenerator{events: events, alerts: alerts, clock: clk}
}

func (g *reportGenerator) Generate(ctx context.Context, s *model.ReportSchedule, from, to time.Time) (*model.Report, error) {
	report := &model.Report{
		ScheduleID:  s.ID,
		UserID:      s.UserID,
		PeriodStart: from,
		PeriodEnd:   to,
		Format:      s.Format,
		GeneratedAt: g.clock.Now(),
	}

	if s.IncludeMetrics {
		counts, err := g.events.Aggregate(ctx, s.UserID, nil, from, to)
		if err != nil {
			return nil, fmt.Errorf("aggregate metrics: %w", err)
		}
		snap := counts.Snapshot(nil, from, to)
		report.Metrics = &snap
	}

	if s.IncludePlatformData {
		platforms, err := g.events.Platforms(ctx, s.UserID, from)
		if err != nil {
			return nil, fmt.Errorf("list platforms: %w", err)
		}
		report.Platforms = make(map[model.Platform]model.MetricSnapshot, len(platforms))
		for _, p := range platforms {
			p := p
			counts, err := g.events.Aggregate(ctx, s.UserID, &p, from, to)
			if err != nil {
				return nil, fmt.Errorf("aggregate %s metrics: %w", p, err)
			}
			report.Platforms[p] = counts.Snapshot(&p, from, to)
		}
	}

	if s.IncludeAlerts {
		alerts, err := g.alerts.List(ctx, s.UserID, nil, &from)
		if err != nil {
			return nil, fmt.Errorf("list alerts: %w", err)
		}
		for _, a := range alerts {
			if !a.Timestamp.After(to) {
				report.Alerts = append(report.Alerts, *a)
			}
		}
	}

	content, err := renderReport(report)
	if err != nil {
		return nil, err
	}
	report.Content = content
	return report, nil
}

func renderReport(r *model.Report) ([]byte, error) {
	switch r.Format {
	case model.ReportFormatJSON:
		return json.MarshalIndent(r, "", "  ")
	case model.ReportFormatCSV:
		return renderCSV(r)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", model.ErrInvalidSchedule, r.Format)
	}
}

func renderCSV(r *model.Report) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	rows := [][]string{{"section", "platform", "name", "value", "timestamp"}}

	if r.Metrics != nil {
		rows = append(rows, snapshotRows("metrics", "all", *r.Metrics)...)
	}
	platforms := make([]string, 0, len(r.Platforms))
	for p := range r.Platforms {
		platforms = append(platforms, string(p))
	}
	sort.Strings(platforms)
	for _, p := range platforms {
		rows = append(rows, snapshotRows("platform", p, r.Platforms[model.Platform(p)])...)
	}
	for _, a := range r.Alerts {
		platform := "all"
		if a.Platform != nil {
			platform = string(*a.Platform)
		}
		rows = append(rows, []string{"alert", platform, string(a.Type), formatFloat(a.Value), a.Timestamp.Format(time.RFC3339)})
	}

	if err := w.WriteAll(rows); err != nil {
		return nil, fmt.Errorf("render csv report: %w", err)
	}
	return buf.Bytes(), nil
}

func snapshotRows(section, platform string, s model.MetricSnapshot) [][]string {
	ts := s.WindowEnd.Format(time.RFC3339)
	return [][]string{
		{section, platform, "sent", strconv.FormatInt(s.Sent, 10), ts},
		{section, platform, "deliveryRate", formatFloat(s.DeliveryRate), ts},
		{section, platform, "openRate", formatFloat(s.OpenRate), ts},
		{section, platform, "clickRate", formatFloat(s.ClickRate), ts},
		{section, platform, "responseTimeMs", formatFloat(s.ResponseTimeMs), ts},
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
