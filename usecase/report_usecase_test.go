package usecase_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"social-dashboard/domain/model"
	"social-dashboard/domain/repository"
	"social-dashboard/infrastructure/clock"
	"social-dashboard/infrastructure/persistence"
	"social-dashboard/usecase"
)

func intPtr(v int) *int { return &v }

func at(year int, month time.Month, day, hour, minute int) time.Time {
	return time.Date(year, month, day, hour, minute, 0, 0, time.UTC)
}

func TestComputeNextRun(t *testing.T) {
	monday := at(2024, 3, 4, 10, 0)
	tests := []struct {
		name     string
		schedule model.ReportSchedule
		now      time.Time
		want     time.Time
	}{
		{name: "daily later today", schedule: model.ReportSchedule{Frequency: model.ReportDaily, Time: "11:00"}, now: monday, want: at(2024, 3, 4, 11, 0)},
		{name: "daily already past", schedule: model.ReportSchedule{Frequency: model.ReportDaily, Time: "09:00"}, now: monday, want: at(2024, 3, 5, 9, 0)},
		{name: "daily exactly now", schedule: model.ReportSchedule{Frequency: model.ReportDaily, Time: "10:00"}, now: monday, want: at(2024, 3, 5, 10, 0)},
		{name: "weekly wednesday from monday", schedule: model.ReportSchedule{Frequency: model.ReportWeekly, DayOfWeek: intPtr(3), Time: "09:00"}, now: monday, want: at(2024, 3, 6, 9, 0)},
		{name: "weekly same day later", schedule: model.ReportSchedule{Frequency: model.ReportWeekly, DayOfWeek: intPtr(1), Time: "11:00"}, now: monday, want: at(2024, 3, 4, 11, 0)},
		{name: "weekly same day past", schedule: model.ReportSchedule{Frequency: model.ReportWeekly, DayOfWeek: intPtr(1), Time: "09:00"}, now: monday, want: at(2024, 3, 11, 9, 0)},
		{name: "weekly sunday", schedule: model.ReportSchedule{Frequency: model.ReportWeekly, DayOfWeek: intPtr(0), Time: "08:30"}, now: monday, want: at(2024, 3, 10, 8, 30)},
		{name: "monthly later today", schedule: model.ReportSchedule{Frequency: model.ReportMonthly, DayOfMonth: intPtr(4), Time: "11:00"}, now: monday, want: at(2024, 3, 4, 11, 0)},
		{name: "monthly past rolls to next month", schedule: model.ReportSchedule{Frequency: model.ReportMonthly, DayOfMonth: intPtr(4), Time: "09:00"}, now: monday, want: at(2024, 4, 4, 9, 0)},
		{name: "monthly 31 in a 30 day month", schedule: model.ReportSchedule{Frequency: model.ReportMonthly, DayOfMonth: intPtr(31), Time: "09:00"}, now: at(2024, 4, 10, 12, 0), want: at(2024, 4, 30, 9, 0)},
		{name: "monthly 31 in leap february", schedule: model.ReportSchedule{Frequency: model.ReportMonthly, DayOfMonth: intPtr(31), Time: "09:00"}, now: at(2024, 2, 10, 12, 0), want: at(2024, 2, 29, 9, 0)},
		{name: "monthly 30 in february", schedule: model.ReportSchedule{Frequency: model.ReportMonthly, DayOfMonth: intPtr(30), Time: "09:00"}, now: at(2023, 2, 1, 0, 0), want: at(2023, 2, 28, 9, 0)},
		{name: "monthly across year end", schedule: model.ReportSchedule{Frequency: model.ReportMonthly, DayOfMonth: intPtr(15), Time: "09:00"}, now: at(2024, 12, 20, 0, 0), want: at(2025, 1, 15, 9, 0)},
		{name: "monthly on last day after month end", schedule: model.ReportSchedule{Frequency: model.ReportMonthly, DayOfMonth: intPtr(31), Time: "09:00"}, now: at(2024, 4, 30, 10, 0), want: at(2024, 5, 31, 9, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := usecase.ComputeNextRun(&tt.schedule, tt.now)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.True(t, got.After(tt.now))
		})
	}
}

func validSchedule() *model.ReportSchedule {
	return &model.ReportSchedule{
		UserID:         "u1",
		Frequency:      model.ReportDaily,
		Time:           "11:00",
		Format:         model.ReportFormatCSV,
		Recipients:     []string{"team@example.com"},
		IncludeMetrics: true,
		Enabled:        true,
	}
}

func TestValidateSchedule(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*model.ReportSchedule)
		valid  bool
	}{
		{name: "valid", mutate: func(s *model.ReportSchedule) {}, valid: true},
		{name: "bad time", mutate: func(s *model.ReportSchedule) { s.Time = "9:00" }},
		{name: "hour out of range", mutate: func(s *model.ReportSchedule) { s.Time = "24:00" }},
		{name: "weekly without day", mutate: func(s *model.ReportSchedule) { s.Frequency = model.ReportWeekly }},
		{name: "weekly day 7", mutate: func(s *model.ReportSchedule) { s.Frequency = model.ReportWeekly; s.DayOfWeek = intPtr(7) }},
		{name: "monthly day 0", mutate: func(s *model.ReportSchedule) { s.Frequency = model.ReportMonthly; s.DayOfMonth = intPtr(0) }},
		{name: "monthly day 31", mutate: func(s *model.ReportSchedule) { s.Frequency = model.ReportMonthly; s.DayOfMonth = intPtr(31) }, valid: true},
		{name: "unknown frequency", mutate: func(s *model.ReportSchedule) { s.Frequency = "yearly" }},
		{name: "unknown format", mutate: func(s *model.ReportSchedule) { s.Format = "pdf" }},
		{name: "no recipients", mutate: func(s *model.ReportSchedule) { s.Recipients = nil }},
		{name: "bad recipient", mutate: func(s *model.ReportSchedule) { s.Recipients = []string{"nobody"} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSchedule()
			tt.mutate(s)
			err := usecase.ValidateSchedule(s)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, model.ErrInvalidSchedule)
			}
		})
	}
}

type schedulerFixture struct {
	clock    *clock.Fake
	repo     repository.IReportSchedule
	notifier *fakeNotifier
	reports  usecase.IReportUsecase
}

func newSchedulerFixture(t *testing.T) *schedulerFixture {
	return newSchedulerFixtureWithRepo(t, persistence.NewMemoryReportScheduleRepository())
}

func newSchedulerFixtureWithRepo(t *testing.T, repo repository.IReportSchedule) *schedulerFixture {
	f := &schedulerFixture{
		clock:    clock.NewFake(t0),
		repo:     repo,
		notifier: &fakeNotifier{},
	}
	store := persistence.NewMemoryStore()
	generator := usecase.NewReportGenerator(persistence.NewMemoryDeliveryEventRepository(), persistence.NewAlertRepository(store), f.clock)
	f.reports = usecase.NewReportUsecase(f.repo, generator, f.notifier, f.clock, nil)
	t.Cleanup(f.reports.Stop)
	return f
}

func TestScheduler_UpsertArmsAndFires(t *testing.T) {
	f := newSchedulerFixture(t)
	ctx := context.Background()

	s, err := f.reports.Upsert(ctx, validSchedule())
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, t0.Add(time.Hour), s.NextRun)
	assert.Equal(t, 1, f.clock.Pending())

	f.clock.Advance(59 * time.Minute)
	assert.Empty(t, f.notifier.Emails())

	f.clock.Advance(time.Minute)
	emails := f.notifier.Emails()
	require.Len(t, emails, 1)
	assert.Equal(t, "team@example.com", emails[0].To)
	assert.Equal(t, "scheduled-report", emails[0].Template)
	assert.Equal(t, "csv", emails[0].Data["format"])
	assert.Contains(t, emails[0].Data["content"], "section,platform,name,value,timestamp")

	stored, err := f.reports.Get(ctx, s.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastRun)
	assert.Equal(t, t0.Add(time.Hour), *stored.LastRun)
	assert.Equal(t, t0.Add(25*time.Hour), stored.NextRun)
	assert.Equal(t, 1, f.clock.Pending())

	f.clock.Advance(24 * time.Hour)
	assert.Len(t, f.notifier.Emails(), 2)
}

func TestScheduler_EditReplacesTimer(t *testing.T) {
	f := newSchedulerFixture(t)
	ctx := context.Background()

	s, err := f.reports.Upsert(ctx, validSchedule())
	require.NoError(t, err)

	edit := validSchedule()
	edit.ID = s.ID
	edit.Time = "12:00"
	edited, err := f.reports.Upsert(ctx, edit)
	require.NoError(t, err)
	assert.Equal(t, t0.Add(2*time.Hour), edited.NextRun)
	assert.Equal(t, 1, f.clock.Pending())

	f.clock.Advance(time.Hour)
	assert.Empty(t, f.notifier.Emails())

	f.clock.Advance(time.Hour)
	assert.Len(t, f.notifier.Emails(), 1)
}

func TestScheduler_EditKeepsHistory(t *testing.T) {
	f := newSchedulerFixture(t)
	ctx := context.Background()

	s, err := f.reports.Upsert(ctx, validSchedule())
	require.NoError(t, err)
	f.clock.Advance(time.Hour)

	edit := validSchedule()
	edit.ID = s.ID
	edit.Format = model.ReportFormatJSON
	edited, err := f.reports.Upsert(ctx, edit)
	require.NoError(t, err)
	require.NotNil(t, edited.LastRun)
	assert.Equal(t, t0.Add(time.Hour), *edited.LastRun)

	other := validSchedule()
	other.ID = s.ID
	other.UserID = "intruder"
	_, err = f.reports.Upsert(ctx, other)
	assert.ErrorIs(t, err, model.ErrScheduleNotFound)
}

func TestScheduler_DisableKeepsRunTimes(t *testing.T) {
	f := newSchedulerFixture(t)
	ctx := context.Background()

	s, err := f.reports.Upsert(ctx, validSchedule())
	require.NoError(t, err)
	f.clock.Advance(time.Hour)
	require.Len(t, f.notifier.Emails(), 1)

	disabled, err := f.reports.Disable(ctx, s.ID)
	require.NoError(t, err)
	assert.False(t, disabled.Enabled)
	require.NotNil(t, disabled.LastRun)
	assert.Equal(t, t0.Add(time.Hour), *disabled.LastRun)
	assert.Equal(t, t0.Add(25*time.Hour), disabled.NextRun)
	assert.Zero(t, f.clock.Pending())

	f.clock.Advance(48 * time.Hour)
	assert.Len(t, f.notifier.Emails(), 1)

	_, err = f.reports.Disable(ctx, "missing")
	assert.ErrorIs(t, err, model.ErrScheduleNotFound)
}

func TestScheduler_UpsertDisabledDoesNotArm(t *testing.T) {
	f := newSchedulerFixture(t)
	s := validSchedule()
	s.Enabled = false
	_, err := f.reports.Upsert(context.Background(), s)
	require.NoError(t, err)
	assert.Zero(t, f.clock.Pending())
}

func TestScheduler_StartArmsPersistedSchedules(t *testing.T) {
	f := newSchedulerFixture(t)
	ctx := context.Background()

	overdue := validSchedule()
	overdue.ID = "overdue"
	overdue.NextRun = t0.Add(-time.Minute)
	require.NoError(t, f.repo.Save(ctx, overdue))
	off := validSchedule()
	off.ID = "off"
	off.Enabled = false
	require.NoError(t, f.repo.Save(ctx, off))

	require.NoError(t, f.reports.Start(ctx))
	assert.Equal(t, 1, f.clock.Pending())

	f.clock.Advance(0)
	assert.Len(t, f.notifier.Emails(), 1)

	stored, err := f.reports.Get(ctx, "overdue")
	require.NoError(t, err)
	assert.Equal(t, t0.Add(time.Hour), stored.NextRun)
}

func TestScheduler_DeleteAndStop(t *testing.T) {
	f := newSchedulerFixture(t)
	ctx := context.Background()

	a, err := f.reports.Upsert(ctx, validSchedule())
	require.NoError(t, err)
	_, err = f.reports.Upsert(ctx, validSchedule())
	require.NoError(t, err)
	assert.Equal(t, 2, f.clock.Pending())

	require.NoError(t, f.reports.Delete(ctx, a.ID))
	assert.Equal(t, 1, f.clock.Pending())
	assert.ErrorIs(t, f.reports.Delete(ctx, a.ID), model.ErrScheduleNotFound)
	_, err = f.reports.Get(ctx, a.ID)
	assert.ErrorIs(t, err, model.ErrScheduleNotFound)

	f.reports.Stop()
	assert.Zero(t, f.clock.Pending())

	list, err := f.reports.List(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

// heldScheduleRepository holds the first Save after hold is set until release is closed.
type heldScheduleRepository struct {
	repository.IReportSchedule
	hold    atomic.Bool
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (r *heldScheduleRepository) Save(ctx context.Context, s *model.ReportSchedule) error {
	if r.hold.Load() {
		r.once.Do(func() {
			close(r.entered)
			<-r.release
		})
	}
	return r.IReportSchedule.Save(ctx, s)
}

func TestScheduler_ChangeDuringRunIsNotOverwritten(t *testing.T) {
	tests := []struct {
		name   string
		change func(ctx context.Context, reports usecase.IReportUsecase, id string) error
		verify func(t *testing.T, reports usecase.IReportUsecase, id string)
	}{
		{
			name: "disable",
			change: func(ctx context.Context, reports usecase.IReportUsecase, id string) error {
				_, err := reports.Disable(ctx, id)
				return err
			},
			verify: func(t *testing.T, reports usecase.IReportUsecase, id string) {
				stored, err := reports.Get(context.Background(), id)
				require.NoError(t, err)
				assert.False(t, stored.Enabled)
				require.NotNil(t, stored.LastRun)
			},
		},
		{
			name: "delete",
			change: func(ctx context.Context, reports usecase.IReportUsecase, id string) error {
				return reports.Delete(ctx, id)
			},
			verify: func(t *testing.T, reports usecase.IReportUsecase, id string) {
				_, err := reports.Get(context.Background(), id)
				assert.ErrorIs(t, err, model.ErrScheduleNotFound)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &heldScheduleRepository{
				IReportSchedule: persistence.NewMemoryReportScheduleRepository(),
				entered:         make(chan struct{}),
				release:         make(chan struct{}),
			}
			f := newSchedulerFixtureWithRepo(t, repo)
			ctx := context.Background()

			s, err := f.reports.Upsert(ctx, validSchedule())
			require.NoError(t, err)
			repo.hold.Store(true)

			fired := make(chan struct{})
			go func() {
				defer close(fired)
				f.clock.Advance(time.Hour)
			}()
			select {
			case <-repo.entered:
			case <-time.After(time.Second):
				t.Fatal("report run was never persisted")
			}

			changed := make(chan error, 1)
			go func() { changed <- tt.change(ctx, f.reports, s.ID) }()
			select {
			case err := <-changed:
				t.Fatalf("change finished while the run was being persisted: %v", err)
			case <-time.After(50 * time.Millisecond):
			}

			close(repo.release)
			select {
			case err := <-changed:
				require.NoError(t, err)
			case <-time.After(time.Second):
				t.Fatal("change never finished")
			}
			<-fired

			tt.verify(t, f.reports, s.ID)
			assert.Equal(t, 0, f.clock.Pending())
			assert.Len(t, f.notifier.Emails(), 1)
		})
	}
}
