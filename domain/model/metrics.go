package model

import "time"

// DeliveryEventKind is the lifecycle step of an outbound email or publish.
type DeliveryEventKind string

const (
	DeliverySent      DeliveryEventKind = "sent"
	DeliveryDelivered DeliveryEventKind = "delivered"
	DeliveryOpened    DeliveryEventKind = "opened"
	DeliveryClicked   DeliveryEventKind = "clicked"
	DeliveryBounced   DeliveryEventKind = "bounced"
	DeliveryFailed    DeliveryEventKind = "failed"
)

func (k DeliveryEventKind) Valid() bool {
	switch k {
	case DeliverySent, DeliveryDelivered, DeliveryOpened, DeliveryClicked, DeliveryBounced, DeliveryFailed:
		return true
	}
	return false
}

type DeliveryEvent struct {
	ID           int64             `json:"id"`
	UserID       string            `json:"user_id"`
	Platform     *Platform         `json:"platform,omitempty"`
	Kind         DeliveryEventKind `json:"kind"`
	ResponseTime time.Duration     `json:"response_time"`
	OccurredAt   time.Time         `json:"occurred_at"`
}

// DeliveryCounts aggregates events over a window.
type DeliveryCounts struct {
	Sent            int64         `json:"sent"`
	Delivered       int64         `json:"delivered"`
	Opened          int64         `json:"opened"`
	Clicked         int64         `json:"clicked"`
	Bounced         int64         `json:"bounced"`
	Failed          int64         `json:"failed"`
	AvgResponseTime time.Duration `json:"avg_response_time"`
}

// MetricSnapshot is the set of rates (percent) the alert engine compares to thresholds.
// Delivered and Opened are the denominators of OpenRate and ClickRate; a rate whose
// denominator is zero has no data.
type MetricSnapshot struct {
	Platform       *Platform `json:"platform,omitempty"`
	Sent           int64     `json:"sent"`
	Delivered      int64     `json:"delivered"`
	Opened         int64     `json:"opened"`
	DeliveryRate   float64   `json:"deliveryRate"`
	OpenRate       float64   `json:"openRate"`
	ClickRate      float64   `json:"clickRate"`
	ResponseTimeMs float64   `json:"responseTimeMs"`
	WindowStart    time.Time `json:"windowStart"`
	WindowEnd      time.Time `json:"windowEnd"`
}

// Snapshot turns raw counts into rates. A rate is zero when its denominator is.
func (c DeliveryCounts) Snapshot(platform *Platform, from, to time.Time) MetricSnapshot {
	s := MetricSnapshot{Platform: platform, Sent: c.Sent, Delivered: c.Delivered, Opened: c.Opened, WindowStart: from, WindowEnd: to}
	s.ResponseTimeMs = float64(c.AvgResponseTime) / float64(time.Millisecond)
	if c.Sent == 0 {
		return s
	}
	s.DeliveryRate = float64(c.Delivered) / float64(c.Sent) * 100
	if c.Delivered > 0 {
		s.OpenRate = float64(c.Opened) / float64(c.Delivered) * 100
	}
	if c.Opened > 0 {
		s.ClickRate = float64(c.Clicked) / float64(c.Opened) * 100
	}
	return s
}
