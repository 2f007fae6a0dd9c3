// Package render projects a LockScreenConfig into a view tree and renders it
// as HTML. Projection is pure: the same config, lock state and instant always
// produce the same View.
package render

import (
	"strconv"
	"time"

	"github.com/koios/lockscreenr/internal/icons"
	"github.com/koios/lockscreenr/internal/passcode"
	"github.com/koios/lockscreenr/pkg/models"
)

// HeatmapOpacity is applied to the heatmap layer
const HeatmapOpacity = 0.7

// Layout names the OS-specific arrangement of a component
type Layout string

const (
	LayoutIOS     Layout = "ios"
	LayoutAndroid Layout = "android"
	LayoutStacked Layout = "stacked"
)

// View is the whole projected tree, ordered back to front
type View struct {
	Frame         Frame              `json:"frame"`
	OS            models.OSType      `json:"os"`
	Background    Background         `json:"background"`
	Heatmap       *Overlay           `json:"heatmap,omitempty"`
	StatusBar     *StatusBar         `json:"statusBar,omitempty"`
	Clock         Clock              `json:"clock"`
	Notifications []NotificationView `json:"notifications"`
	LockGlyph     *icons.Visual      `json:"lockGlyph,omitempty"`
	HomeIndicator bool               `json:"homeIndicator"`
	Hotspots      []Marker           `json:"hotspots"`
	Passcode      *PasscodeOverlay   `json:"passcode,omitempty"`
}

// Background is either a solid color or an image
type Background struct {
	Kind  models.BackgroundType `json:"kind"`
	Color string                `json:"color,omitempty"`
	Image string                `json:"image,omitempty"`
}

// Overlay is a translucent full-bleed image
type Overlay struct {
	Src     string  `json:"src"`
	Opacity float64 `json:"opacity"`
}

// StatusBar is nil for WearOS
type StatusBar struct {
	Layout     Layout        `json:"layout"`
	Time       string        `json:"time,omitempty"`
	Signal     *icons.Visual `json:"signal,omitempty"`
	Wifi       *icons.Visual `json:"wifi,omitempty"`
	Battery    icons.Visual  `json:"battery"`
	LowBattery bool          `json:"lowBattery"`
	Percentage string        `json:"percentage,omitempty"`
}

// Clock holds the preformatted clock strings for one layout
type Clock struct {
	Layout Layout `json:"layout"`
	Font   string `json:"font"`
	Date   string `json:"date"`
	Time   string `json:"time,omitempty"`
	Hour   string `json:"hour,omitempty"`
	Minute string `json:"minute,omitempty"`
}

// NotificationView is one row of the notification list
type NotificationView struct {
	ID      string       `json:"id"`
	Layout  Layout       `json:"layout"`
	Icon    icons.Visual `json:"icon"`
	AppName string       `json:"appName"`
	Title   string       `json:"title,omitempty"`
	Message string       `json:"message"`
	Time    string       `json:"time"`
	Blurred bool         `json:"blurred"`
}

// Marker positions a hotspot dot in percent of the surface
type Marker struct {
	ID   string  `json:"id"`
	Left float64 `json:"left"`
	Top  float64 `json:"top"`
}

// PasscodeOverlay occludes everything beneath it while locked
type PasscodeOverlay struct {
	Prompt  string   `json:"prompt"`
	Dots    []bool   `json:"dots"`
	Shaking bool     `json:"shaking"`
	Keys    []string `json:"keys"`
}

// Keypad lists the keypad buttons in grid order; "" is an empty cell
var Keypad = []string{"1", "2", "3", "4", "5", "6", "7", "8", "9", "", "0", "Delete"}

// Build projects cfg into a View. lock is the passcode state of the session;
// the overlay is shown only while the passcode is enabled and the lock is Locked.
func Build(cfg models.LockScreenConfig, lock passcode.State, now time.Time) View {
	v := View{
		Frame:         DeviceFrame(cfg.Device),
		OS:            cfg.OS,
		Background:    buildBackground(cfg),
		StatusBar:     buildStatusBar(cfg, now),
		Clock:         buildClock(cfg, now),
		Notifications: make([]NotificationView, 0, len(cfg.Notifications)),
		HomeIndicator: cfg.OS == models.OSiOS,
		Hotspots:      make([]Marker, 0, len(cfg.Hotspots)),
	}

	if overlay := cfg.Heatmap(); overlay != "" {
		v.Heatmap = &Overlay{Src: overlay, Opacity: HeatmapOpacity}
	}

	layout := LayoutIOS
	if cfg.OS == models.OSAndroid {
		layout = LayoutAndroid
	}
	for _, n := range cfg.Notifications {
		v.Notifications = append(v.Notifications, NotificationView{
			ID:      n.ID,
			Layout:  layout,
			Icon:    icons.Resolve(n.Icon, n.IconColor),
			AppName: n.AppName,
			Title:   n.Title,
			Message: n.Message,
			Time:    n.Time,
			Blurred: cfg.PrivacyBlur,
		})
	}

	if cfg.OS != models.OSAndroid {
		glyph := icons.Resolve("Lock", "")
		v.LockGlyph = &glyph
	}

	for _, h := range cfg.Hotspots {
		v.Hotspots = append(v.Hotspots, Marker{ID: h.ID, Left: h.X, Top: h.Y})
	}

	if cfg.Passcode.Enabled && lock.Locked {
		dots := make([]bool, passcode.Length)
		for i := range dots {
			dots[i] = i < lock.Entered
		}
		v.Passcode = &PasscodeOverlay{
			Prompt:  "Enter Passcode",
			Dots:    dots,
			Shaking: lock.Shaking,
			Keys:    Keypad,
		}
	}

	return v
}

func buildBackground(cfg models.LockScreenConfig) Background {
	if cfg.BackgroundType == models.BackgroundImage {
		return Background{Kind: models.BackgroundImage, Image: cfg.Background}
	}
	return Background{Kind: models.BackgroundColor, Color: cfg.Background}
}

func buildStatusBar(cfg models.LockScreenConfig, now time.Time) *StatusBar {
	if cfg.OS == models.OSWearOS {
		return nil
	}

	glyph, low := icons.BatteryGlyph(cfg.StatusBar.Battery)
	bar := &StatusBar{
		Layout:     LayoutIOS,
		Signal:     indicator(cfg.StatusBar.Signal, "Signal"),
		Wifi:       indicator(cfg.StatusBar.Wifi, "Wifi"),
		Battery:    icons.Resolve(glyph, ""),
		LowBattery: low,
	}

	if cfg.OS == models.OSAndroid {
		bar.Layout = LayoutAndroid
		bar.Percentage = strconv.Itoa(cfg.StatusBar.Battery) + "%"
	} else {
		bar.Time = now.Format("3:04 PM")
	}
	return bar
}

func indicator(level models.SignalLevel, glyph string) *icons.Visual {
	if level == models.SignalHidden {
		return nil
	}
	v := icons.Resolve(glyph, "")
	return &v
}

func buildClock(cfg models.LockScreenConfig, now time.Time) Clock {
	if cfg.OS == models.OSAndroid || cfg.OS == models.OSWearOS {
		return Clock{
			Layout: LayoutStacked,
			Font:   cfg.Font,
			Date:   now.Format("Mon, Jan 2"),
			Hour:   now.Format("3"),
			Minute: now.Format("04"),
		}
	}
	return Clock{
		Layout: LayoutIOS,
		Font:   cfg.Font,
		Date:   now.Format("Monday, January 2"),
		Time:   now.Format("3:04"),
	}
}
