package models

import "time"

// ConfigEvent is published whenever a session's config changes
type ConfigEvent struct {
	Type      string           `json:"type"`
	SessionID string           `json:"session_id"`
	Revision  uint64           `json:"revision"`
	Config    LockScreenConfig `json:"config"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// ConfigEventType is the Type of every ConfigEvent
const ConfigEventType = "config_changed"
