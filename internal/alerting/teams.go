package alerting

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"MarketWatch/internal/domain/models"
	"MarketWatch/pkg/http"
	"MarketWatch/pkg/logger"
)

var teamsColors = map[models.AlertSeverity]string{
	models.SeverityLow:      "00ff00",
	models.SeverityMedium:   "ffaa00",
	models.SeverityHigh:     "ff6600",
	models.SeverityCritical: "ff0000",
}

type teamsFact struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type teamsSection struct {
	ActivityTitle    string      `json:"activityTitle"`
	ActivitySubtitle string      `json:"activitySubtitle"`
	Text             string      `json:"text"`
	Facts            []teamsFact `json:"facts"`
}

type teamsPayload struct {
	Type       string         `json:"@type"`
	Context    string         `json:"@context"`
	ThemeColor string         `json:"themeColor"`
	Summary    string         `json:"summary"`
	Sections   []teamsSection `json:"sections"`
}

// TeamsChannel posts MessageCard alerts to a Microsoft Teams webhook.
type TeamsChannel struct {
	webhookURL string
	client     *http.Client
	log        *logger.Logger
}

// NewTeamsChannel creates the Teams webhook channel.
func NewTeamsChannel(log *logger.Logger, client *http.Client, webhookURL string) *TeamsChannel {
	if log == nil {
		log = logger.Nop()
	}
	if client == nil {
		client = http.NewClient()
	}
	return &TeamsChannel{webhookURL: webhookURL, client: client, log: log}
}

func (t *TeamsChannel) Name() string { return "teams" }

func (t *TeamsChannel) Deliver(ctx context.Context, alert *models.Alert) bool {
	if t.webhookURL == "" {
		t.log.Warn("teams webhook not configured, skipping teams alert")
		return false
	}

	color, ok := teamsColors[alert.Severity]
	if !ok {
		color = teamsColors[models.SeverityLow]
	}

	facts := []teamsFact{
		{Name: "Timestamp", Value: alert.Timestamp.UTC().Format("2006-01-02 15:04:05 UTC")},
	}
	for _, k := range sortedKeys(alert.Metadata) {
		facts = append(facts, teamsFact{Name: metadataTitle(k), Value: metadataValue(alert.Metadata[k])})
	}

	payload := teamsPayload{
		Type:       "MessageCard",
		Context:    "http://schema.org/extensions",
		ThemeColor: color,
		Summary:    alert.Title,
		Sections: []teamsSection{{
			ActivityTitle: alert.Title,
			ActivitySubtitle: fmt.Sprintf("Type: %s | Severity: %s",
				alert.Type, strings.ToUpper(string(alert.Severity))),
			Text:  alert.Message,
			Facts: facts,
		}},
	}

	err := t.client.SendAndParse(ctx, &http.RequestOptions{
		Method: http.MethodPost,
		URL:    t.webhookURL,
		Body:   payload,
	}, nil)
	if err != nil {
		t.log.Error("teams alert failed", logger.Error(err))
		return false
	}

	t.log.Info("teams alert sent")
	return true
}

// metadataTitle turns a snake_case metadata key into a display title.
func metadataTitle(key string) string {
	words := strings.Split(key, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

func metadataValue(v any) string {
	return fmt.Sprintf("%v", v)
}
