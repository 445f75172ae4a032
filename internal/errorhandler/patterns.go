package errorhandler

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"MarketWatch/internal/domain/models"
)

// patternKey builds the aggregation key for a record.
func patternKey(category models.ErrorCategory, errorType string) string {
	return string(category) + "_" + errorType
}

// loadPatterns reads the persisted pattern file. A missing file is not
// an error; it simply yields an empty map.
func loadPatterns(path string) (map[string]*models.ErrorPattern, error) {
	patterns := make(map[string]*models.ErrorPattern)
	if path == "" {
		return patterns, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return patterns, nil
		}
		return patterns, fmt.Errorf("read patterns: %w", err)
	}
	if err := json.Unmarshal(b, &patterns); err != nil {
		return make(map[string]*models.ErrorPattern), fmt.Errorf("parse patterns: %w", err)
	}
	return patterns, nil
}

// savePatterns writes the pattern map atomically (write + rename).
func savePatterns(path string, patterns map[string]*models.ErrorPattern) error {
	if path == "" {
		return nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("patterns dir: %w", err)
		}
	}
	b, err := json.MarshalIndent(patterns, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal patterns: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("write patterns: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename patterns: %w", err)
	}
	return nil
}
