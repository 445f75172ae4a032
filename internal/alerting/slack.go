package alerting

import (
	"context"
	"strings"

	"MarketWatch/internal/domain/models"
	"MarketWatch/pkg/http"
	"MarketWatch/pkg/logger"
)

var slackColors = map[models.AlertSeverity]string{
	models.SeverityLow:      "#36a64f",
	models.SeverityMedium:   "#ffaa00",
	models.SeverityHigh:     "#ff6600",
	models.SeverityCritical: "#ff0000",
}

type slackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

type slackAttachment struct {
	Color  string       `json:"color"`
	Title  string       `json:"title"`
	Text   string       `json:"text"`
	Fields []slackField `json:"fields"`
	Footer string       `json:"footer"`
	TS     int64        `json:"ts"`
}

type slackPayload struct {
	Attachments []slackAttachment `json:"attachments"`
}

// SlackChannel posts alerts to an incoming webhook.
type SlackChannel struct {
	webhookURL string
	client     *http.Client
	log        *logger.Logger
}

// NewSlackChannel creates the Slack webhook channel.
func NewSlackChannel(log *logger.Logger, client *http.Client, webhookURL string) *SlackChannel {
	if log == nil {
		log = logger.Nop()
	}
	if client == nil {
		client = http.NewClient()
	}
	return &SlackChannel{webhookURL: webhookURL, client: client, log: log}
}

func (s *SlackChannel) Name() string { return "slack" }

func (s *SlackChannel) Deliver(ctx context.Context, alert *models.Alert) bool {
	if s.webhookURL == "" {
		s.log.Warn("slack webhook not configured, skipping slack alert")
		return false
	}

	color, ok := slackColors[alert.Severity]
	if !ok {
		color = slackColors[models.SeverityLow]
	}

	fields := []slackField{
		{Title: "Type", Value: string(alert.Type), Short: true},
		{Title: "Severity", Value: strings.ToUpper(string(alert.Severity)), Short: true},
		{Title: "Timestamp", Value: alert.Timestamp.UTC().Format("2006-01-02 15:04:05 UTC"), Short: true},
	}
	for _, k := range sortedKeys(alert.Metadata) {
		fields = append(fields, slackField{
			Title: metadataTitle(k),
			Value: metadataValue(alert.Metadata[k]),
			Short: true,
		})
	}

	payload := slackPayload{Attachments: []slackAttachment{{
		Color:  color,
		Title:  alert.Title,
		Text:   alert.Message,
		Fields: fields,
		Footer: "MarketWatch Monitoring",
		TS:     alert.Timestamp.Unix(),
	}}}

	err := s.client.SendAndParse(ctx, &http.RequestOptions{
		Method: http.MethodPost,
		URL:    s.webhookURL,
		Body:   payload,
	}, nil)
	if err != nil {
		s.log.Error("slack alert failed", logger.Error(err))
		return false
	}

	s.log.Info("slack alert sent")
	return true
}
