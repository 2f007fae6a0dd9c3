package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ExportFileName is the suggested download name for exported configs
const ExportFileName = "lockscreenr-config.json"

// ErrInvalidConfigFile is returned when an imported document is unusable
var ErrInvalidConfigFile = errors.New("invalid or corrupted configuration file")

// requiredImportKeys must be present (and non-empty) in every imported document
var requiredImportKeys = []string{"device", "os", "notifications"}

var validate = validator.New()

// ExportJSON serializes the full config with two-space indentation.
// Key order follows the struct declaration so exports are stable.
func ExportJSON(cfg LockScreenConfig) ([]byte, error) {
	data, err := json.MarshalIndent(cfg.Clone(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}

// ImportJSON parses an exported document. Device, os and notifications must be
// present, and a background that is given must match its backgroundType;
// everything else is trusted as-is.
func ImportJSON(data []byte) (LockScreenConfig, error) {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return LockScreenConfig{}, fmt.Errorf("%w: %v", ErrInvalidConfigFile, err)
	}

	var missing []string
	for _, key := range requiredImportKeys {
		if raw, ok := keys[key]; !ok || emptyJSON(raw) {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return LockScreenConfig{}, fmt.Errorf("%w: missing %s", ErrInvalidConfigFile, strings.Join(missing, ", "))
	}

	var cfg LockScreenConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return LockScreenConfig{}, fmt.Errorf("%w: %v", ErrInvalidConfigFile, err)
	}

	_, hasBackground := keys["background"]
	_, hasType := keys["backgroundType"]
	if hasBackground || hasType {
		if err := CheckBackground(cfg.BackgroundType, cfg.Background); err != nil {
			return LockScreenConfig{}, fmt.Errorf("%w: %v", ErrInvalidConfigFile, err)
		}
	}
	return cfg.Clone(), nil
}

// ImportJSONStrict is ImportJSON followed by full structural validation
func ImportJSONStrict(data []byte) (LockScreenConfig, error) {
	cfg, err := ImportJSON(data)
	if err != nil {
		return LockScreenConfig{}, err
	}
	if err := Validate(cfg); err != nil {
		return LockScreenConfig{}, fmt.Errorf("%w: %v", ErrInvalidConfigFile, err)
	}
	return cfg, nil
}

// Validate checks every field of cfg, the background invariant and id uniqueness
func Validate(cfg LockScreenConfig) error {
	if err := validate.Struct(cfg); err != nil {
		var ves validator.ValidationErrors
		if errors.As(err, &ves) {
			fe := ves[0]
			return fmt.Errorf("%s failed validation for tag '%s'", fieldPath(fe), fe.Tag())
		}
		return err
	}
	if err := CheckBackground(cfg.BackgroundType, cfg.Background); err != nil {
		return err
	}
	seen := make(map[string]bool)
	for _, n := range cfg.Notifications {
		if seen[n.ID] {
			return fmt.Errorf("duplicate notification id %q", n.ID)
		}
		seen[n.ID] = true
	}
	seen = make(map[string]bool)
	for _, h := range cfg.Hotspots {
		if seen[h.ID] {
			return fmt.Errorf("duplicate hotspot id %q", h.ID)
		}
		seen[h.ID] = true
	}
	return nil
}

// fieldPath turns LockScreenConfig.StatusBar.Battery into statusBar.battery
func fieldPath(fe validator.FieldError) string {
	parts := strings.Split(fe.StructNamespace(), ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	for i, part := range parts {
		if part == "" {
			continue
		}
		parts[i] = strings.ToLower(part[:1]) + part[1:]
	}
	return strings.Join(parts, ".")
}

// emptyJSON mirrors a truthiness check: null, false, 0 and "" count as absent
func emptyJSON(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	switch string(trimmed) {
	case "", "null", "false", "0", `""`:
		return true
	}
	return false
}
