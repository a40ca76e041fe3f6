package model

import "time"

type AlertType string

const (
	AlertDeliveryRate AlertType = "delivery_rate"
	AlertOpenRate     AlertType = "open_rate"
	AlertClickRate    AlertType = "click_rate"
	AlertFailureCount AlertType = "failure_count"
	AlertResponseTime AlertType = "response_time"
)

type AlertStatus string

const (
	AlertStatusActive   AlertStatus = "active"
	AlertStatusResolved AlertStatus = "resolved"
)

type AlertSeverity string

const (
	AlertSeverityWarning  AlertSeverity = "warning"
	AlertSeverityCritical AlertSeverity = "critical"
)

// AlertSeverities lists every severity, lowest first.
func AlertSeverities() []AlertSeverity {
	return []AlertSeverity{AlertSeverityWarning, AlertSeverityCritical}
}

// AlertThresholds are percentages for the rates, a count for failures and milliseconds for response time.
type AlertThresholds struct {
	DeliveryRate float64 `json:"deliveryRate" bson:"deliveryRate"`
	OpenRate     float64 `json:"openRate" bson:"openRate"`
	ClickRate    float64 `json:"clickRate" bson:"clickRate"`
	FailureCount int     `json:"failureCount" bson:"failureCount"`
	ResponseTime float64 `json:"responseTime" bson:"responseTime"`
}

type NotificationChannels struct {
	Email     bool   `json:"email" bson:"email"`
	Dashboard bool   `json:"dashboard" bson:"dashboard"`
	SlackURL  string `json:"slackUrl,omitempty" bson:"slackUrl,omitempty"`
}

// AlertConfig is the per-user alerting configuration
type AlertConfig struct {
	UserID               string               `json:"userId" bson:"userId"`
	Enabled              bool                 `json:"enabled" bson:"enabled"`
	Thresholds           AlertThresholds      `json:"thresholds" bson:"thresholds"`
	NotificationChannels NotificationChannels `json:"notificationChannels" bson:"notificationChannels"`
	CooldownMinutes      int                  `json:"cooldownMinutes" bson:"cooldownMinutes"`
	UpdatedAt            time.Time            `json:"updatedAt" bson:"updatedAt"`
}

// DefaultAlertConfig is what a user gets on first access.
func DefaultAlertConfig(userID string) AlertConfig {
	return AlertConfig{
		UserID:  userID,
		Enabled: true,
		Thresholds: AlertThresholds{
			DeliveryRate: 95,
			OpenRate:     15,
			ClickRate:    2,
			FailureCount: 10,
			ResponseTime: 5000,
		},
		NotificationChannels: NotificationChannels{Email: true, Dashboard: true},
		CooldownMinutes:      30,
	}
}

// MonitoringAlert is a persisted threshold breach. active -> resolved is terminal.
type MonitoringAlert struct {
	ID         string                 `json:"id" bson:"id"`
	UserID     string                 `json:"userId" bson:"userId"`
	Type       AlertType              `json:"type" bson:"type"`
	Severity   AlertSeverity          `json:"severity" bson:"severity"`
	Metric     string                 `json:"metric" bson:"metric"`
	Value      float64                `json:"value" bson:"value"`
	Threshold  float64                `json:"threshold" bson:"threshold"`
	Timestamp  time.Time              `json:"timestamp" bson:"timestamp"`
	Status     AlertStatus            `json:"status" bson:"status"`
	ResolvedAt *time.Time             `json:"resolvedAt,omitempty" bson:"resolvedAt,omitempty"`
	Platform   *Platform              `json:"platform,omitempty" bson:"platform,omitempty"`
	Details    map[string]interface{} `json:"details,omitempty" bson:"details,omitempty"`
}
