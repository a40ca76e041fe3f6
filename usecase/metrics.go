package usecase

// Metrics receives counters from the reliability core. The prometheus collector in
// infrastructure/metrics implements it; tests and optional wiring use NopMetrics.
type Metrics interface {
	RetryAttempt(platform string, outcome string)
	RateLimitDecision(category string, limited bool)
	AlertRaised(alertType string)
	AlertSuppressed(alertType string, reason string)
	NotificationSent(channel string, success bool)
	ReportRun(frequency string, success bool)
	PublishOutcome(platform string, success bool)
}

type NopMetrics struct{}

func (NopMetrics) RetryAttempt(string, string)    {}
func (NopMetrics) RateLimitDecision(string, bool) {}
func (NopMetrics) AlertRaised(string)             {}
func (NopMetrics) AlertSuppressed(string, string) {}
func (NopMetrics) NotificationSent(string, bool)  {}
func (NopMetrics) ReportRun(string, bool)         {}
func (NopMetrics) PublishOutcome(string, bool)    {}
