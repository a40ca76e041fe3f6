package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"social-dashboard/domain/model"
	"social-dashboard/domain/repository"
	"social-dashboard/infrastructure/clock"
	"social-dashboard/infrastructure/logger"
)

const reportEmailTemplate = "scheduled-report"

// ParseClock parses "HH:mm".
func ParseClock(s string) (hour, minute int, err error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 || len(parts[0]) != 2 || len(parts[1]) != 2 {
		return 0, 0, fmt.Errorf("%w: time %q must be HH:mm", model.ErrInvalidSchedule, s)
	}
	hour, herr := strconv.Atoi(parts[0])
	minute, merr := strconv.Atoi(parts[1])
	if herr != nil || merr != nil || hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("%w: time %q must be HH:mm", model.ErrInvalidSchedule, s)
	}
	return hour, minute, nil
}

// ValidateSchedule reports field errors as model.ErrInvalidSchedule.
func ValidateSchedule(s *model.ReportSchedule) error {
	if s == nil || s.UserID == "" {
		return fmt.Errorf("%w: user id required", model.ErrInvalidSchedule)
	}
	if _, _, err := ParseClock(s.Time); err != nil {
		return err
	}
	switch s.Frequency {
	case model.ReportDaily:
	case model.ReportWeekly:
		if s.DayOfWeek == nil || *s.DayOfWeek < 0 || *s.DayOfWeek > 6 {
			return fmt.Errorf("%w: weekly schedule needs dayOfWeek 0-6", model.ErrInvalidSchedule)
		}
	case model.ReportMonthly:
		if s.DayOfMonth == nil || *s.DayOfMonth < 1 || *s.DayOfMonth > 31 {
			return fmt.Errorf("%w: monthly schedule needs dayOfMonth 1-31", model.ErrInvalidSchedule)
		}
	default:
		return fmt.Errorf("%w: unknown frequency %q", model.ErrInvalidSchedule, s.Frequency)
	}
	switch s.Format {
	case model.ReportFormatCSV, model.ReportFormatJSON:
	default:
		return fmt.Errorf("%w: unknown format %q", model.ErrInvalidSchedule, s.Format)
	}
	if len(s.Recipients) == 0 {
		return fmt.Errorf("%w: at least one recipient required", model.ErrInvalidSchedule)
	}
	for _, r := range s.Recipients {
		if _, err := mail.ParseAddress(r); err != nil {
			return fmt.Errorf("%w: recipient %q: %v", model.ErrInvalidSchedule, r, err)
		}
	}
	return nil
}

// ComputeNextRun returns the first run strictly after now. Monthly schedules whose
// dayOfMonth does not exist in a month run on that month's last day.
func ComputeNextRun(s *model.ReportSchedule, now time.Time) (time.Time, error) {
	hour, minute, err := ParseClock(s.Time)
	if err != nil {
		return time.Time{}, err
	}
	loc := now.Location()
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, loc)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}

	switch s.Frequency {
	case model.ReportDaily:
	case model.ReportWeekly:
		if s.DayOfWeek == nil {
			return time.Time{}, fmt.Errorf("%w: weekly schedule needs dayOfWeek", model.ErrInvalidSchedule)
		}
		for int(next.Weekday()) != *s.DayOfWeek {
			next = next.AddDate(0, 0, 1)
		}
	case model.ReportMonthly:
		if s.DayOfMonth == nil {
			return time.Time{}, fmt.Errorf("%w: monthly schedule needs dayOfMonth", model.ErrInvalidSchedule)
		}
		next = onDayClamped(next.Year(), next.Month(), *s.DayOfMonth, hour, minute, loc)
		if !next.After(now) {
			next = onDayClamped(next.Year(), next.Month()+1, *s.DayOfMonth, hour, minute, loc)
		}
	default:
		return time.Time{}, fmt.Errorf("%w: unknown frequency %q", model.ErrInvalidSchedule, s.Frequency)
	}
	return next, nil
}

func onDayClamped(year int, month time.Month, day, hour, minute int, loc *time.Location) time.Time {
	first := time.Date(year, month, 1, hour, minute, 0, 0, loc)
	last := first.AddDate(0, 1, -1).Day()
	if day > last {
		day = last
	}
	return first.AddDate(0, 0, day-1)
}

// reportPeriodStart is the lookback matching the frequency.
func reportPeriodStart(f model.ReportFrequency, end time.Time) time.Time {
	switch f {
	case model.ReportWeekly:
		return end.AddDate(0, 0, -7)
	case model.ReportMonthly:
		return end.AddDate(0, -1, 0)
	default:
		return end.AddDate(0, 0, -1)
	}
}

type IReportUsecase interface {
	// Upsert validates, recomputes NextRun, persists and re-arms the schedule.
	Upsert(ctx context.Context, schedule *model.ReportSchedule) (*model.ReportSchedule, error)
	Get(ctx context.Context, id string) (*model.ReportSchedule, error)
	List(ctx context.Context, userID string) ([]*model.ReportSchedule, error)
	// Disable cancels the timer and keeps LastRun/NextRun.
	Disable(ctx context.Context, id string) (*model.ReportSchedule, error)
	Delete(ctx context.Context, id string) error
	// Start arms every enabled persisted schedule.
	Start(ctx context.Context) error
	Stop()
}

type armedTimer struct {
	timer clock.Timer
	gen   uint64
}

type reportUsecase struct {
	repo      repository.IReportSchedule
	generator IReportGenerator
	notifier  Notifier
	clock     clock.Clock
	metrics   Metrics
	newID     IDGenerator

	mu     sync.Mutex
	timers map[string]armedTimer
	gen    uint64
	ctx    context.Context
	cancel context.CancelFunc
}

func NewReportUsecase(repo repository.IReportSchedule, generator IReportGenerator, notifier Notifier, clk clock.Clock, metrics Metrics) IReportUsecase {
	if clk == nil {
		clk = clock.New()
	}
	if metrics == nil {
		metrics = NopMetrics{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &reportUsecase{
		repo:      repo,
		generator: generator,
		notifier:  notifier,
		clock:     clk,
		metrics:   metrics,
		newID:     uuid.NewString,
		timers:    make(map[string]armedTimer),
		ctx:       ctx,
		cancel:    cancel,
	}
}

func (u *reportUsecase) Upsert(ctx context.Context, s *model.ReportSchedule) (*model.ReportSchedule, error) {
	if err := ValidateSchedule(s); err != nil {
		return nil, err
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	if s.ID == "" {
		s.ID = u.newID()
	} else {
		existing, err := u.repo.GetByID(ctx, s.ID)
		switch {
		case errors.Is(err, model.ErrNotFound):
		case err != nil:
			return nil, err
		default:
			if existing.UserID != s.UserID {
				return nil, model.ErrScheduleNotFound
			}
			s.LastRun = existing.LastRun
			s.CreatedAt = existing.CreatedAt
		}
	}
	next, err := ComputeNextRun(s, u.clock.Now())
	if err != nil {
		return nil, err
	}
	s.NextRun = next
	if err := u.repo.Save(ctx, s); err != nil {
		return nil, fmt.Errorf("save report schedule: %w", err)
	}
	if s.Enabled {
		u.armLocked(s)
	} else {
		u.disarmLocked(s.ID)
	}
	return s, nil
}

func (u *reportUsecase) Get(ctx context.Context, id string) (*model.ReportSchedule, error) {
	s, err := u.repo.GetByID(ctx, id)
	if errors.Is(err, model.ErrNotFound) {
		return nil, model.ErrScheduleNotFound
	}
	return s, err
}

func (u *reportUsecase) List(ctx context.Context, userID string) ([]*model.ReportSchedule, error) {
	return u.repo.ListByUser(ctx, userID)
}

func (u *reportUsecase) Disable(ctx context.Context, id string) (*model.ReportSchedule, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	s, err := u.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	u.disarmLocked(id)
	if !s.Enabled {
		return s, nil
	}
	s.Enabled = false
	if err := u.repo.Save(ctx, s); err != nil {
		return nil, fmt.Errorf("disable report schedule: %w", err)
	}
	return s, nil
}

func (u *reportUsecase) Delete(ctx context.Context, id string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.disarmLocked(id)
	err := u.repo.Delete(ctx, id)
	if errors.Is(err, model.ErrNotFound) {
		return model.ErrScheduleNotFound
	}
	return err
}

func (u *reportUsecase) Start(ctx context.Context) error {
	schedules, err := u.repo.ListEnabled(ctx)
	if err != nil {
		return fmt.Errorf("load report schedules: %w", err)
	}
	u.mu.Lock()
	for _, s := range schedules {
		u.armLocked(s)
	}
	u.mu.Unlock()
	logger.GetLogger().WithField("schedules", len(schedules)).Info("report scheduler started")
	return nil
}

func (u *reportUsecase) Stop() {
	u.mu.Lock()
	defer u.mu.Unlock()
	for id, t := range u.timers {
		t.timer.Stop()
		delete(u.timers, id)
	}
	u.cancel()
}

// armLocked replaces any pending timer of the schedule. The generation guards
// against a replaced timer that already fired. u.mu must be held.
func (u *reportUsecase) armLocked(s *model.ReportSchedule) {
	if old, ok := u.timers[s.ID]; ok {
		old.timer.Stop()
	}
	u.gen++
	gen := u.gen
	id := s.ID
	delay := s.NextRun.Sub(u.clock.Now())
	if delay < 0 {
		delay = 0
	}
	u.timers[id] = armedTimer{gen: gen, timer: u.clock.AfterFunc(delay, func() { u.fire(id, gen) })}
}

func (u *reportUsecase) disarmLocked(id string) {
	if t, ok := u.timers[id]; ok {
		t.timer.Stop()
		delete(u.timers, id)
	}
}

func (u *reportUsecase) currentLocked(id string, gen uint64) bool {
	t, ok := u.timers[id]
	return ok && t.gen == gen
}

// fire runs the report outside u.mu. Everything that reads or writes the
// schedule happens under u.mu, so a change made meanwhile is never overwritten.
func (u *reportUsecase) fire(id string, gen uint64) {
	ctx := u.ctx
	log := logger.GetLogger().WithField("schedule_id", id)

	u.mu.Lock()
	if !u.currentLocked(id, gen) {
		u.mu.Unlock()
		return
	}
	s, err := u.repo.GetByID(ctx, id)
	if err != nil || !s.Enabled {
		if err != nil {
			log.WithField("error", err).Warn("scheduled report skipped: schedule unavailable")
		}
		u.disarmLocked(id)
		u.mu.Unlock()
		return
	}
	u.mu.Unlock()

	now := u.clock.Now()
	runErr := u.run(ctx, s, now)
	u.metrics.ReportRun(string(s.Frequency), runErr == nil)
	if runErr != nil {
		log.WithField("error", runErr).Warn("scheduled report failed")
	}

	u.mu.Lock()
	defer u.mu.Unlock()
	// changed while the report ran
	if !u.currentLocked(id, gen) {
		return
	}
	s.LastRun = &now
	next, err := ComputeNextRun(s, now)
	if err != nil {
		log.WithField("error", err).Error("report schedule can no longer be computed")
		u.disarmLocked(id)
		return
	}
	s.NextRun = next
	if err := u.repo.Save(ctx, s); err != nil {
		log.WithField("error", err).Warn("failed to persist report run")
	}
	if ctx.Err() != nil {
		return
	}
	u.armLocked(s)
}

func (u *reportUsecase) run(ctx context.Context, s *model.ReportSchedule, now time.Time) error {
	from := reportPeriodStart(s.Frequency, now)
	report, err := u.generator.Generate(ctx, s, from, now)
	if err != nil {
		return fmt.Errorf("generate report: %w", err)
	}
	subject := fmt.Sprintf("Your %s report (%s - %s)", s.Frequency, from.Format("2006-01-02"), now.Format("2006-01-02"))
	data := map[string]interface{}{
		"report":   report,
		"format":   string(report.Format),
		"filename": fmt.Sprintf("report-%s.%s", now.Format("20060102"), report.Format),
		"content":  string(report.Content),
	}
	var errs []error
	for _, to := range s.Recipients {
		if err := u.notifier.SendEmail(ctx, to, subject, reportEmailTemplate, data); err != nil {
			errs = append(errs, fmt.Errorf("send report to %s: %w", to, err))
		}
	}
	return errors.Join(errs...)
}
