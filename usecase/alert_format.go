package usecase

import (
	"fmt"
	"strings"

	"social-dashboard/domain/model"
)

const alertEmailTemplate = "alert-notification"

type severityStyle struct {
	Color  string
	Prefix string
}

// severityStyleOf holds the style of every model.AlertSeverity.
func severityStyleOf(s model.AlertSeverity) (severityStyle, bool) {
	switch s {
	case model.AlertSeverityWarning:
		return severityStyle{Color: "#f2c744", Prefix: "[WARNING]"}, true
	case model.AlertSeverityCritical:
		return severityStyle{Color: "#d00000", Prefix: "[CRITICAL]"}, true
	}
	return severityStyle{}, false
}

// styleFor renders unknown severities, such as ones read back from old documents, as warnings.
func styleFor(s model.AlertSeverity) severityStyle {
	if st, ok := severityStyleOf(s); ok {
		return st
	}
	st, _ := severityStyleOf(model.AlertSeverityWarning)
	return st
}

var alertTitles = map[model.AlertType]string{
	model.AlertDeliveryRate: "Delivery rate below threshold",
	model.AlertOpenRate:     "Open rate below threshold",
	model.AlertClickRate:    "Click rate below threshold",
	model.AlertFailureCount: "Failed deliveries above threshold",
	model.AlertResponseTime: "Response time above threshold",
}

func alertTitle(t model.AlertType) string {
	if title, ok := alertTitles[t]; ok {
		return title
	}
	return strings.ReplaceAll(string(t), "_", " ")
}

func alertSubject(a *model.MonitoringAlert) string {
	subject := styleFor(a.Severity).Prefix + " " + alertTitle(a.Type)
	if a.Platform != nil {
		subject += " on " + string(*a.Platform)
	}
	return subject
}

func alertBody(a *model.MonitoringAlert) string {
	return fmt.Sprintf("%s is %s (threshold %s)", a.Metric, formatMetric(a.Type, a.Value), formatMetric(a.Type, a.Threshold))
}

func formatMetric(t model.AlertType, v float64) string {
	switch t {
	case model.AlertFailureCount:
		return fmt.Sprintf("%.0f", v)
	case model.AlertResponseTime:
		return fmt.Sprintf("%.0fms", v)
	default:
		return fmt.Sprintf("%.2f%%", v)
	}
}

type SlackMessage struct {
	Text        string            `json:"text"`
	Attachments []SlackAttachment `json:"attachments"`
}

type SlackAttachment struct {
	Color     string       `json:"color"`
	Title     string       `json:"title"`
	Text      string       `json:"text"`
	Fields    []SlackField `json:"fields"`
	Timestamp int64        `json:"ts"`
}

type SlackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

func slackMessage(a *model.MonitoringAlert) SlackMessage {
	platform := "all"
	if a.Platform != nil {
		platform = string(*a.Platform)
	}
	return SlackMessage{
		Text: alertSubject(a),
		Attachments: []SlackAttachment{{
			Color: styleFor(a.Severity).Color,
			Title: alertTitle(a.Type),
			Text:  alertBody(a),
			Fields: []SlackField{
				{Title: "Value", Value: formatMetric(a.Type, a.Value), Short: true},
				{Title: "Threshold", Value: formatMetric(a.Type, a.Threshold), Short: true},
				{Title: "Platform", Value: platform, Short: true},
				{Title: "Severity", Value: string(a.Severity), Short: true},
			},
			Timestamp: a.Timestamp.Unix(),
		}},
	}
}

// severityOf escalates to critical at double the threshold, or half of it for rates.
func severityOf(t model.AlertType, value, threshold float64) model.AlertSeverity {
	switch t {
	case model.AlertFailureCount, model.AlertResponseTime:
		if threshold > 0 && value >= 2*threshold {
			return model.AlertSeverityCritical
		}
	default:
		if value <= threshold/2 {
			return model.AlertSeverityCritical
		}
	}
	return model.AlertSeverityWarning
}
