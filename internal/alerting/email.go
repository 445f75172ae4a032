package alerting

import (
	"context"
	"fmt"
	"net/smtp"
	"sort"
	"strings"

	"MarketWatch/internal/domain/models"
	"MarketWatch/pkg/logger"
)

// EmailConfig configures the SMTP channel.
type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string

	// DefaultRecipients per severity, used when the alert itself does
	// not carry recipients.
	DefaultRecipients map[models.AlertSeverity][]string
}

// EmailChannel delivers alerts over SMTP with STARTTLS.
type EmailChannel struct {
	cfg EmailConfig
	log *logger.Logger

	// send is swappable for tests.
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewEmailChannel creates the SMTP channel.
func NewEmailChannel(log *logger.Logger, cfg EmailConfig) *EmailChannel {
	if log == nil {
		log = logger.Nop()
	}
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	return &EmailChannel{cfg: cfg, log: log, send: smtp.SendMail}
}

func (e *EmailChannel) Name() string { return "email" }

func (e *EmailChannel) Deliver(_ context.Context, alert *models.Alert) bool {
	if e.cfg.Username == "" || e.cfg.Password == "" {
		e.log.Warn("smtp credentials not configured, skipping email alert")
		return false
	}

	recipients := alert.Recipients
	if len(recipients) == 0 {
		recipients = e.cfg.DefaultRecipients[alert.Severity]
	}
	if len(recipients) == 0 {
		e.log.Warn("no recipients configured for severity",
			logger.String("severity", string(alert.Severity)))
		return false
	}

	msg := e.buildMessage(alert, recipients)
	addr := fmt.Sprintf("%s:%d", e.cfg.Host, e.cfg.Port)
	auth := smtp.PlainAuth("", e.cfg.Username, e.cfg.Password, e.cfg.Host)

	if err := e.send(addr, auth, e.cfg.From, recipients, msg); err != nil {
		e.log.Error("email alert failed", logger.Error(err))
		return false
	}

	e.log.Info("email alert sent", logger.Int("recipients", len(recipients)))
	return true
}

func (e *EmailChannel) buildMessage(alert *models.Alert, recipients []string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", e.cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(recipients, ", "))
	fmt.Fprintf(&b, "Subject: [%s] %s\r\n", strings.ToUpper(string(alert.Severity)), alert.Title)
	b.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")

	fmt.Fprintf(&b, "Alert Type: %s\r\n", alert.Type)
	fmt.Fprintf(&b, "Severity: %s\r\n", strings.ToUpper(string(alert.Severity)))
	fmt.Fprintf(&b, "Timestamp: %s\r\n\r\n", alert.Timestamp.Format("2006-01-02T15:04:05Z07:00"))
	b.WriteString(alert.Message)
	b.WriteString("\r\n")

	if len(alert.Metadata) > 0 {
		b.WriteString("\r\nMetadata:\r\n")
		for _, k := range sortedKeys(alert.Metadata) {
			fmt.Fprintf(&b, "  %s: %v\r\n", k, alert.Metadata[k])
		}
	}
	return []byte(b.String())
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
