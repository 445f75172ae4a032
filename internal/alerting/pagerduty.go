package alerting

import (
	"context"
	"fmt"

	"MarketWatch/internal/domain/models"
	"MarketWatch/pkg/http"
	"MarketWatch/pkg/logger"
)

const pagerdutyEventsURL = "https://events.pagerduty.com/v2/enqueue"

type pagerdutyEvent struct {
	RoutingKey  string           `json:"routing_key"`
	EventAction string           `json:"event_action"`
	DedupKey    string           `json:"dedup_key"`
	Payload     pagerdutyPayload `json:"payload"`
}

type pagerdutyPayload struct {
	Summary       string         `json:"summary"`
	Source        string         `json:"source"`
	Severity      string         `json:"severity"`
	CustomDetails map[string]any `json:"custom_details"`
}

// PagerDutyChannel triggers Events API v2 incidents for high and
// critical alerts. Lower severities are deliberately not paged and
// count as delivered.
type PagerDutyChannel struct {
	integrationKey string
	eventsURL      string
	client         *http.Client
	log            *logger.Logger
}

// NewPagerDutyChannel creates the PagerDuty channel.
func NewPagerDutyChannel(log *logger.Logger, client *http.Client, integrationKey string) *PagerDutyChannel {
	if log == nil {
		log = logger.Nop()
	}
	if client == nil {
		client = http.NewClient()
	}
	return &PagerDutyChannel{
		integrationKey: integrationKey,
		eventsURL:      pagerdutyEventsURL,
		client:         client,
		log:            log,
	}
}

func (p *PagerDutyChannel) Name() string { return "pagerduty" }

func (p *PagerDutyChannel) Deliver(ctx context.Context, alert *models.Alert) bool {
	if p.integrationKey == "" {
		p.log.Warn("pagerduty integration key not configured, skipping pagerduty alert")
		return false
	}

	if alert.Severity != models.SeverityHigh && alert.Severity != models.SeverityCritical {
		return true
	}

	details := map[string]any{
		"message":   alert.Message,
		"type":      string(alert.Type),
		"timestamp": alert.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
	}
	for k, v := range alert.Metadata {
		details[k] = v
	}

	event := pagerdutyEvent{
		RoutingKey:  p.integrationKey,
		EventAction: "trigger",
		DedupKey:    fmt.Sprintf("%s_%s", alert.Type, alert.Severity),
		Payload: pagerdutyPayload{
			Summary:       alert.Title,
			Source:        "MarketWatch",
			Severity:      string(alert.Severity),
			CustomDetails: details,
		},
	}

	err := p.client.SendAndParse(ctx, &http.RequestOptions{
		Method:  http.MethodPost,
		URL:     p.eventsURL,
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    event,
	}, nil)
	if err != nil {
		p.log.Error("pagerduty alert failed", logger.Error(err))
		return false
	}

	p.log.Info("pagerduty alert sent")
	return true
}
