package model

import "time"

type ReportFrequency string

const (
	ReportDaily   ReportFrequency = "daily"
	ReportWeekly  ReportFrequency = "weekly"
	ReportMonthly ReportFrequency = "monthly"
)

type ReportFormat string

const (
	ReportFormatCSV  ReportFormat = "csv"
	ReportFormatJSON ReportFormat = "json"
)

// ReportSchedule is a recurring report job. NextRun is recomputed on every fire and edit.
type ReportSchedule struct {
	ID                  string          `json:"id" gorm:"primaryKey;size:64"`
	UserID              string          `json:"userId" gorm:"index;size:128;not null"`
	Frequency           ReportFrequency `json:"frequency" gorm:"size:16;not null"`
	DayOfWeek           *int            `json:"dayOfWeek,omitempty"`
	DayOfMonth          *int            `json:"dayOfMonth,omitempty"`
	Time                string          `json:"time" gorm:"size:5;not null"`
	Format              ReportFormat    `json:"format" gorm:"size:8;not null"`
	Recipients          []string        `json:"recipients" gorm:"serializer:json"`
	IncludeMetrics      bool            `json:"includeMetrics"`
	IncludeAlerts       bool            `json:"includeAlerts"`
	IncludePlatformData bool            `json:"includePlatformData"`
	Enabled             bool            `json:"enabled"`
	LastRun             *time.Time      `json:"lastRun,omitempty"`
	NextRun             time.Time       `json:"nextRun" gorm:"index"`
	CreatedAt           time.Time       `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt           time.Time       `json:"updatedAt" gorm:"autoUpdateTime"`
}

func (ReportSchedule) TableName() string { return "report_schedules" }

// Report is the rendered output of one schedule run
type Report struct {
	ScheduleID  string                      `json:"scheduleId"`
	UserID      string                      `json:"userId"`
	PeriodStart time.Time                   `json:"periodStart"`
	PeriodEnd   time.Time                   `json:"periodEnd"`
	Metrics     *MetricSnapshot             `json:"metrics,omitempty"`
	Alerts      []MonitoringAlert           `json:"alerts,omitempty"`
	Platforms   map[Platform]MetricSnapshot `json:"platforms,omitempty"`
	Format      ReportFormat                `json:"format"`
	Content     []byte                      `json:"-"`
	GeneratedAt time.Time                   `json:"generatedAt"`
}
