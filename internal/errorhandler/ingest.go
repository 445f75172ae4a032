package errorhandler

import (
	"context"
	"encoding/json"
	"errors"

	"MarketWatch/internal/domain/models"
	pkgkafka "MarketWatch/pkg/kafka"
)

// KafkaErrorHandler consumes error reports published by external
// pipeline jobs and feeds them into the tracker. Jobs that cannot link
// the tracker in-process report failures through this topic instead.
type KafkaErrorHandler struct {
	topic string
	errs  *Handler
}

func NewKafkaErrorHandler(topic string, errs *Handler) *KafkaErrorHandler {
	return &KafkaErrorHandler{topic: topic, errs: errs}
}

func (h *KafkaErrorHandler) Topic() string { return h.topic }

// incoming message schema: {message, component, operation, request_id, severity, category, metadata}
func (h *KafkaErrorHandler) Handle(ctx context.Context, b []byte) error {
	var m struct {
		Message   string         `json:"message"`
		Component string         `json:"component"`
		Operation string         `json:"operation"`
		RequestID string         `json:"request_id"`
		Severity  string         `json:"severity"`
		Category  string         `json:"category"`
		Metadata  map[string]any `json:"metadata"`
	}
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	if m.Message == "" {
		return errors.New("error report without message")
	}

	ectx := models.ErrorContext{
		Component: m.Component,
		Operation: m.Operation,
		RequestID: m.RequestID,
		Metadata:  m.Metadata,
	}
	if ectx.Component == "" {
		ectx.Component = "external"
	}

	// Reports carry free-form strings; only recognized enum values
	// override the classifier.
	var opts []HandleOption
	if s, ok := parseSeverity(m.Severity); ok {
		opts = append(opts, WithSeverity(s))
	}
	if c, ok := parseCategory(m.Category); ok {
		opts = append(opts, WithCategory(c))
	}

	h.errs.Handle(errors.New(m.Message), ectx, opts...)
	return nil
}

func parseSeverity(s string) (models.ErrorSeverity, bool) {
	switch sev := models.ErrorSeverity(s); sev {
	case models.ErrorLow, models.ErrorMedium, models.ErrorHigh, models.ErrorCritical:
		return sev, true
	}
	return "", false
}

func parseCategory(s string) (models.ErrorCategory, bool) {
	switch cat := models.ErrorCategory(s); cat {
	case models.CategorySystem, models.CategoryDataQuality, models.CategoryNetwork,
		models.CategoryDatabase, models.CategoryAuthentication, models.CategoryAuthorization,
		models.CategoryConfiguration, models.CategoryBusinessLogic,
		models.CategoryExternalService, models.CategoryPerformance:
		return cat, true
	}
	return "", false
}

var _ pkgkafka.MessageHandler = (*KafkaErrorHandler)(nil)
