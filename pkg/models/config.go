package models

import "fmt"

// DeviceType is the simulated hardware frame
type DeviceType string

const (
	DeviceIPhone DeviceType = "iphone"
	DevicePixel  DeviceType = "pixel"
	DeviceTablet DeviceType = "tablet"
	DeviceWatch  DeviceType = "watch"
)

// OSType selects the lock screen styling
type OSType string

const (
	OSiOS     OSType = "ios"
	OSAndroid OSType = "android"
	OSWearOS  OSType = "wearos"
)

// BackgroundType discriminates what Background holds
type BackgroundType string

const (
	BackgroundImage BackgroundType = "image"
	BackgroundColor BackgroundType = "color"
)

// SignalLevel is used for both the wifi and cellular indicators
type SignalLevel string

const (
	SignalHidden SignalLevel = "hidden"
	SignalFull   SignalLevel = "full"
	SignalMedium SignalLevel = "medium"
	SignalLow    SignalLevel = "low"
)

// Devices lists the supported device types in display order
var Devices = []DeviceType{DeviceIPhone, DevicePixel, DeviceTablet, DeviceWatch}

// OSTypes lists the supported OS styles in display order
var OSTypes = []OSType{OSiOS, OSAndroid, OSWearOS}

// Valid reports whether d is a known device type
func (d DeviceType) Valid() bool {
	for _, known := range Devices {
		if d == known {
			return true
		}
	}
	return false
}

// Valid reports whether o is a known OS style
func (o OSType) Valid() bool {
	for _, known := range OSTypes {
		if o == known {
			return true
		}
	}
	return false
}

// Valid reports whether l is a known signal level
func (l SignalLevel) Valid() bool {
	switch l {
	case SignalHidden, SignalFull, SignalMedium, SignalLow:
		return true
	}
	return false
}

// StatusBar holds the indicator settings shown at the top of the screen
type StatusBar struct {
	Wifi    SignalLevel `json:"wifi" yaml:"wifi" validate:"oneof=hidden full medium low"`
	Signal  SignalLevel `json:"signal" yaml:"signal" validate:"oneof=hidden full medium low"`
	Battery int         `json:"battery" yaml:"battery" validate:"min=0,max=100"`
}

// Notification is a single entry in the lock screen notification list.
// Time is a display string, not a timestamp.
type Notification struct {
	ID        string `json:"id" yaml:"id" validate:"required"`
	Icon      string `json:"icon" yaml:"icon"`
	IconColor string `json:"iconColor" yaml:"iconColor"`
	AppName   string `json:"appName" yaml:"appName" validate:"required"`
	Title     string `json:"title" yaml:"title"`
	Message   string `json:"message" yaml:"message" validate:"required"`
	Time      string `json:"time" yaml:"time"`
}

// Hotspot is a recorded point of interest in percent of the preview surface
type Hotspot struct {
	ID string  `json:"id" yaml:"id" validate:"required"`
	X  float64 `json:"x" yaml:"x" validate:"min=0,max=100"`
	Y  float64 `json:"y" yaml:"y" validate:"min=0,max=100"`
}

// Passcode configures the passcode overlay
type Passcode struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Value   string `json:"value" yaml:"value" validate:"len=4,numeric"`
}

// LockScreenConfig is the whole simulator state. It is replaced wholesale on
// preset load or import and otherwise patched one field at a time.
type LockScreenConfig struct {
	Device         DeviceType     `json:"device" yaml:"device" validate:"oneof=iphone pixel tablet watch"`
	OS             OSType         `json:"os" yaml:"os" validate:"oneof=ios android wearos"`
	Background     string         `json:"background" yaml:"background" validate:"required"`
	BackgroundType BackgroundType `json:"backgroundType" yaml:"backgroundType" validate:"oneof=image color"`
	Font           string         `json:"font" yaml:"font"`
	StatusBar      StatusBar      `json:"statusBar" yaml:"statusBar"`
	Notifications  []Notification `json:"notifications" yaml:"notifications" validate:"dive"`
	Hotspots       []Hotspot      `json:"hotspots" yaml:"hotspots" validate:"dive"`
	PrivacyBlur    bool           `json:"privacyBlur" yaml:"privacyBlur"`
	Passcode       Passcode       `json:"passcode" yaml:"passcode"`
	HeatmapOverlay *string        `json:"heatmapOverlay" yaml:"heatmapOverlay"`
}

// Clone returns a deep copy so callers never share list storage with the store
func (c LockScreenConfig) Clone() LockScreenConfig {
	out := c
	out.Notifications = append([]Notification{}, c.Notifications...)
	out.Hotspots = append([]Hotspot{}, c.Hotspots...)
	if c.HeatmapOverlay != nil {
		overlay := *c.HeatmapOverlay
		out.HeatmapOverlay = &overlay
	}
	return out
}

// HasNotification reports whether a notification with id is present
func (c LockScreenConfig) HasNotification(id string) bool {
	for _, n := range c.Notifications {
		if n.ID == id {
			return true
		}
	}
	return false
}

// HasHotspot reports whether a hotspot with id is present
func (c LockScreenConfig) HasHotspot(id string) bool {
	for _, h := range c.Hotspots {
		if h.ID == id {
			return true
		}
	}
	return false
}

// Heatmap returns the overlay URI or "" when none is set
func (c LockScreenConfig) Heatmap() string {
	if c.HeatmapOverlay == nil {
		return ""
	}
	return *c.HeatmapOverlay
}

// String is used in log lines
func (c LockScreenConfig) String() string {
	return fmt.Sprintf("%s/%s bg=%s notifications=%d hotspots=%d",
		c.Device, c.OS, c.BackgroundType, len(c.Notifications), len(c.Hotspots))
}
