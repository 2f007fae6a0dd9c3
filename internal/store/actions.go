package store

import (
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/koios/lockscreenr/pkg/models"
)

// Env carries what reducers need besides the config itself
type Env struct {
	IDs *models.IDGenerator
	Now func() time.Time
}

// Action is one mutation of the config. Apply works on a private copy; if it
// returns an error the copy is discarded.
type Action interface {
	Name() string
	Apply(cfg *models.LockScreenConfig, env Env) error
}

var validate = validator.New()

// ReplaceConfig swaps the whole config (preset load, import)
type ReplaceConfig struct {
	Config models.LockScreenConfig
	Source string
}

func (a ReplaceConfig) Name() string { return "replace_config" }

func (a ReplaceConfig) Apply(cfg *models.LockScreenConfig, _ Env) error {
	*cfg = a.Config.Clone()
	return nil
}

// SetDevice patches the device frame
type SetDevice struct{ Device models.DeviceType }

func (a SetDevice) Name() string { return "set_device" }

func (a SetDevice) Apply(cfg *models.LockScreenConfig, _ Env) error {
	if !a.Device.Valid() {
		return invalid("device", "unknown device %q", a.Device)
	}
	cfg.Device = a.Device
	return nil
}

// SetOS patches the OS style
type SetOS struct{ OS models.OSType }

func (a SetOS) Name() string { return "set_os" }

func (a SetOS) Apply(cfg *models.LockScreenConfig, _ Env) error {
	if !a.OS.Valid() {
		return invalid("os", "unknown os %q", a.OS)
	}
	cfg.OS = a.OS
	return nil
}

// SetBackgroundColor sets a color background and its type together
type SetBackgroundColor struct{ Color string }

func (a SetBackgroundColor) Name() string { return "set_background_color" }

func (a SetBackgroundColor) Apply(cfg *models.LockScreenConfig, _ Env) error {
	if err := models.CheckBackground(models.BackgroundColor, a.Color); err != nil {
		return invalid("background", "%v", err)
	}
	cfg.Background = a.Color
	cfg.BackgroundType = models.BackgroundColor
	return nil
}

// SetBackgroundImage sets an image data URI background and its type together
type SetBackgroundImage struct{ URI string }

func (a SetBackgroundImage) Name() string { return "set_background_image" }

func (a SetBackgroundImage) Apply(cfg *models.LockScreenConfig, _ Env) error {
	if err := models.CheckBackground(models.BackgroundImage, a.URI); err != nil {
		return invalid("background", "%v", err)
	}
	cfg.Background = a.URI
	cfg.BackgroundType = models.BackgroundImage
	return nil
}

// SetFont patches the clock font family
type SetFont struct{ Font string }

func (a SetFont) Name() string { return "set_font" }

func (a SetFont) Apply(cfg *models.LockScreenConfig, _ Env) error {
	if strings.TrimSpace(a.Font) == "" {
		return invalid("font", "font is required")
	}
	cfg.Font = a.Font
	return nil
}

// SetWifi patches the wifi indicator
type SetWifi struct{ Level models.SignalLevel }

func (a SetWifi) Name() string { return "set_wifi" }

func (a SetWifi) Apply(cfg *models.LockScreenConfig, _ Env) error {
	if !a.Level.Valid() {
		return invalid("statusBar.wifi", "unknown level %q", a.Level)
	}
	cfg.StatusBar.Wifi = a.Level
	return nil
}

// SetSignal patches the cellular indicator
type SetSignal struct{ Level models.SignalLevel }

func (a SetSignal) Name() string { return "set_signal" }

func (a SetSignal) Apply(cfg *models.LockScreenConfig, _ Env) error {
	if !a.Level.Valid() {
		return invalid("statusBar.signal", "unknown level %q", a.Level)
	}
	cfg.StatusBar.Signal = a.Level
	return nil
}

// SetBattery patches the battery percentage
type SetBattery struct{ Level int }

func (a SetBattery) Name() string { return "set_battery" }

func (a SetBattery) Apply(cfg *models.LockScreenConfig, _ Env) error {
	if a.Level < 0 || a.Level > 100 {
		return invalid("statusBar.battery", "battery must be between 0 and 100")
	}
	cfg.StatusBar.Battery = a.Level
	return nil
}

// SetPrivacyBlur toggles message blurring
type SetPrivacyBlur struct{ Enabled bool }

func (a SetPrivacyBlur) Name() string { return "set_privacy_blur" }

func (a SetPrivacyBlur) Apply(cfg *models.LockScreenConfig, _ Env) error {
	cfg.PrivacyBlur = a.Enabled
	return nil
}

// SetPasscodeEnabled toggles the passcode overlay
type SetPasscodeEnabled struct{ Enabled bool }

func (a SetPasscodeEnabled) Name() string { return "set_passcode_enabled" }

func (a SetPasscodeEnabled) Apply(cfg *models.LockScreenConfig, _ Env) error {
	cfg.Passcode.Enabled = a.Enabled
	return nil
}

// SetPasscodeValue changes the 4-digit passcode
type SetPasscodeValue struct {
	Value string `validate:"len=4,numeric"`
}

func (a SetPasscodeValue) Name() string { return "set_passcode_value" }

func (a SetPasscodeValue) Apply(cfg *models.LockScreenConfig, _ Env) error {
	if err := validate.Struct(a); err != nil {
		return invalid("passcode.value", "passcode must be exactly 4 digits")
	}
	cfg.Passcode.Value = a.Value
	return nil
}

// NotificationDraft is the user-supplied part of a notification
type NotificationDraft struct {
	Icon      string `json:"icon"`
	IconColor string `json:"iconColor"`
	AppName   string `json:"appName" validate:"required"`
	Title     string `json:"title"`
	Message   string `json:"message" validate:"required"`
}

// DefaultDraftIcon and DefaultDraftColor fill in blank draft fields
const (
	DefaultDraftIcon  = "MessageSquare"
	DefaultDraftColor = "bg-blue-500"
)

// AddNotification appends a notification with a fresh id and display time
type AddNotification struct{ Draft NotificationDraft }

func (a AddNotification) Name() string { return "add_notification" }

func (a AddNotification) Apply(cfg *models.LockScreenConfig, env Env) error {
	if err := validate.Struct(a.Draft); err != nil {
		return invalid("notification", "App Name and Message are required.")
	}

	icon := a.Draft.Icon
	if icon == "" {
		icon = DefaultDraftIcon
	}
	color := a.Draft.IconColor
	if color == "" {
		color = DefaultDraftColor
	}

	cfg.Notifications = append(cfg.Notifications, models.Notification{
		ID:        env.IDs.NextUnique(cfg.HasNotification),
		Icon:      icon,
		IconColor: color,
		AppName:   a.Draft.AppName,
		Title:     a.Draft.Title,
		Message:   a.Draft.Message,
		Time:      env.Now().Format("3:04 PM"),
	})
	return nil
}

// RemoveNotification drops the notification with ID; unknown ids are a no-op
type RemoveNotification struct{ ID string }

func (a RemoveNotification) Name() string { return "remove_notification" }

func (a RemoveNotification) Apply(cfg *models.LockScreenConfig, _ Env) error {
	kept := cfg.Notifications[:0]
	for _, n := range cfg.Notifications {
		if n.ID != a.ID {
			kept = append(kept, n)
		}
	}
	cfg.Notifications = kept
	return nil
}

// AddHotspot appends a point given in percent of the preview surface
type AddHotspot struct{ X, Y float64 }

func (a AddHotspot) Name() string { return "add_hotspot" }

func (a AddHotspot) Apply(cfg *models.LockScreenConfig, env Env) error {
	if !inPercentRange(a.X) || !inPercentRange(a.Y) {
		return invalid("hotspot", "coordinates must be within 0-100")
	}
	cfg.Hotspots = append(cfg.Hotspots, models.Hotspot{
		ID: env.IDs.NextUnique(cfg.HasHotspot),
		X:  a.X,
		Y:  a.Y,
	})
	return nil
}

func inPercentRange(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 100
}

// ClearHotspots removes every hotspot
type ClearHotspots struct{}

func (a ClearHotspots) Name() string { return "clear_hotspots" }

func (a ClearHotspots) Apply(cfg *models.LockScreenConfig, _ Env) error {
	cfg.Hotspots = []models.Hotspot{}
	return nil
}

// SetHeatmap stores a generated heatmap overlay
type SetHeatmap struct{ URI string }

func (a SetHeatmap) Name() string { return "set_heatmap" }

func (a SetHeatmap) Apply(cfg *models.LockScreenConfig, _ Env) error {
	if !models.IsImageDataURI(a.URI) {
		return invalid("heatmapOverlay", "heatmap must be an image data URI")
	}
	uri := a.URI
	cfg.HeatmapOverlay = &uri
	return nil
}

// ClearHeatmap removes the heatmap overlay
type ClearHeatmap struct{}

func (a ClearHeatmap) Name() string { return "clear_heatmap" }

func (a ClearHeatmap) Apply(cfg *models.LockScreenConfig, _ Env) error {
	cfg.HeatmapOverlay = nil
	return nil
}

// Batch applies several actions as one change. Any rejected member discards
// the whole batch.
type Batch struct{ Actions []Action }

func (a Batch) Name() string {
	names := make([]string, len(a.Actions))
	for i, action := range a.Actions {
		names[i] = action.Name()
	}
	return "batch(" + strings.Join(names, ",") + ")"
}

func (a Batch) Apply(cfg *models.LockScreenConfig, env Env) error {
	for _, action := range a.Actions {
		if err := action.Apply(cfg, env); err != nil {
			return err
		}
	}
	return nil
}

func replaces(action Action) bool {
	switch a := action.(type) {
	case ReplaceConfig:
		return true
	case Batch:
		for _, member := range a.Actions {
			if replaces(member) {
				return true
			}
		}
	}
	return false
}
