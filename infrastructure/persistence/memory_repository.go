package persistence

import (
	"context"
	"sort"
	"sync"
	"time"

	"social-dashboard/domain/model"
	"social-dashboard/domain/repository"
)

// memoryDeliveryEvents backs local runs and tests when Postgres is unavailable.
type memoryDeliveryEvents struct {
	mu     sync.RWMutex
	seq    int64
	events []model.DeliveryEvent
}

func NewMemoryDeliveryEventRepository() repository.IDeliveryEvent {
	return &memoryDeliveryEvents{}
}

func (m *memoryDeliveryEvents) Record(_ context.Context, e *model.DeliveryEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	e.ID = m.seq
	m.events = append(m.events, *e)
	return nil
}

func (m *memoryDeliveryEvents) Aggregate(_ context.Context, userID string, platform *model.Platform, from, to time.Time) (model.DeliveryCounts, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var c model.DeliveryCounts
	var total time.Duration
	var timed int64
	for _, e := range m.events {
		if e.UserID != userID || e.OccurredAt.Before(from) || e.OccurredAt.After(to) {
			continue
		}
		if platform != nil && (e.Platform == nil || *e.Platform != *platform) {
			continue
		}
		switch e.Kind {
		case model.DeliverySent:
			c.Sent++
		case model.DeliveryDelivered:
			c.Delivered++
			if e.ResponseTime > 0 {
				total += e.ResponseTime
				timed++
			}
		case model.DeliveryOpened:
			c.Opened++
		case model.DeliveryClicked:
			c.Clicked++
		case model.DeliveryBounced:
			c.Bounced++
		case model.DeliveryFailed:
			c.Failed++
		}
	}
	if timed > 0 {
		c.AvgResponseTime = total / time.Duration(timed)
	}
	return c, nil
}

func (m *memoryDeliveryEvents) CountKind(_ context.Context, userID string, kind model.DeliveryEventKind, since time.Time) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var n int64
	for _, e := range m.events {
		if e.UserID == userID && e.Kind == kind && !e.OccurredAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (m *memoryDeliveryEvents) Platforms(_ context.Context, userID string, since time.Time) ([]model.Platform, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := map[model.Platform]struct{}{}
	var out []model.Platform
	for _, e := range m.events {
		if e.UserID != userID || e.Platform == nil || e.OccurredAt.Before(since) {
			continue
		}
		if _, ok := seen[*e.Platform]; !ok {
			seen[*e.Platform] = struct{}{}
			out = append(out, *e.Platform)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

type memoryRetryLog struct {
	mu      sync.Mutex
	seq     int64
	entries []model.RetryAttemptLog
}

func NewMemoryRetryLogRepository() repository.IRetryLog {
	return &memoryRetryLog{}
}

func (m *memoryRetryLog) Append(_ context.Context, e *model.RetryAttemptLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	e.ID = m.seq
	m.entries = append(m.entries, *e)
	return nil
}

func (m *memoryRetryLog) ListByJob(_ context.Context, jobID string) ([]*model.RetryAttemptLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.RetryAttemptLog
	for i := range m.entries {
		if m.entries[i].JobID == jobID {
			e := m.entries[i]
			out = append(out, &e)
		}
	}
	return out, nil
}

type memoryReportSchedules struct {
	mu        sync.RWMutex
	schedules map[string]model.ReportSchedule
}

func NewMemoryReportScheduleRepository() repository.IReportSchedule {
	return &memoryReportSchedules{schedules: make(map[string]model.ReportSchedule)}
}

func (m *memoryReportSchedules) Save(_ context.Context, s *model.ReportSchedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	cp.Recipients = append([]string(nil), s.Recipients...)
	m.schedules[s.ID] = cp
	return nil
}

func (m *memoryReportSchedules) GetByID(_ context.Context, id string) (*model.ReportSchedule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.schedules[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	s.Recipients = append([]string(nil), s.Recipients...)
	return &s, nil
}

func (m *memoryReportSchedules) list(keep func(model.ReportSchedule) bool) []*model.ReportSchedule {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*model.ReportSchedule, 0)
	for _, s := range m.schedules {
		s := s
		if keep(s) {
			s.Recipients = append([]string(nil), s.Recipients...)
			out = append(out, &s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *memoryReportSchedules) ListByUser(_ context.Context, userID string) ([]*model.ReportSchedule, error) {
	return m.list(func(s model.ReportSchedule) bool { return s.UserID == userID }), nil
}

func (m *memoryReportSchedules) ListEnabled(_ context.Context) ([]*model.ReportSchedule, error) {
	return m.list(func(s model.ReportSchedule) bool { return s.Enabled }), nil
}

func (m *memoryReportSchedules) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.schedules[id]; !ok {
		return model.ErrNotFound
	}
	delete(m.schedules, id)
	return nil
}
