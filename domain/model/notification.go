package model

import "time"

type NotificationFrequency string

const (
	NotifyImmediate NotificationFrequency = "immediate"
	NotifyHourly    NotificationFrequency = "hourly"
	NotifyDaily     NotificationFrequency = "daily"
)

// NotificationPreference controls whether alerts are mailed one by one or batched into a digest.
type NotificationPreference struct {
	UserID    string                `json:"userId" bson:"userId"`
	Email     string                `json:"email" bson:"email"`
	Frequency NotificationFrequency `json:"frequency" bson:"frequency"`
	UpdatedAt time.Time             `json:"updatedAt" bson:"updatedAt"`
}

// QueuedNotification is an alert waiting for the next digest of its frequency.
type QueuedNotification struct {
	ID        string                `json:"id" bson:"id"`
	UserID    string                `json:"userId" bson:"userId"`
	AlertID   string                `json:"alertId" bson:"alertId"`
	Subject   string                `json:"subject" bson:"subject"`
	Body      string                `json:"body" bson:"body"`
	Frequency NotificationFrequency `json:"frequency" bson:"frequency"`
	CreatedAt time.Time             `json:"createdAt" bson:"createdAt"`
	SentAt    *time.Time            `json:"sentAt,omitempty" bson:"sentAt,omitempty"`
}
