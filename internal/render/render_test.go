package render

import (
	"bytes"
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/koios/lockscreenr/internal/passcode"
	"github.com/koios/lockscreenr/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 10, 19, 9, 41, 0, 0, time.UTC)

func testConfig(os models.OSType) models.LockScreenConfig {
	return models.LockScreenConfig{
		Device:         models.DeviceIPhone,
		OS:             os,
		Background:     "#1a1a1a",
		BackgroundType: models.BackgroundColor,
		Font:           "Inter, sans-serif",
		StatusBar:      models.StatusBar{Wifi: models.SignalFull, Signal: models.SignalHidden, Battery: 8},
		Notifications: []models.Notification{
			{ID: "1", Icon: "Mail", IconColor: "bg-blue-600", AppName: "Gmail", Title: "Meeting", Message: "Starts soon", Time: "9:30 AM"},
			{ID: "2", Icon: "NotAGlyph", AppName: "Other", Message: "Hello", Time: "9:31 AM"},
		},
		Hotspots: []models.Hotspot{{ID: "h1", X: 25, Y: 75}},
		Passcode: models.Passcode{Value: "1234"},
	}
}

func TestDeviceFrame(t *testing.T) {
	tests := []struct {
		device models.DeviceType
		want   Frame
	}{
		{models.DeviceIPhone, Frame{Device: models.DeviceIPhone, Width: 390, Height: 844, Radius: 40, Scale: 0.7, Border: 12}},
		{models.DevicePixel, Frame{Device: models.DevicePixel, Width: 412, Height: 915, Radius: 28, Scale: 0.7, Border: 12}},
		{models.DeviceTablet, Frame{Device: models.DeviceTablet, Width: 768, Height: 1024, Radius: 18, Scale: 0.6, Border: 12}},
		{models.DeviceWatch, Frame{Device: models.DeviceWatch, Width: 324, Height: 394, Radius: 40, Scale: 0.8, Border: 10}},
	}

	for _, tt := range tests {
		t.Run(string(tt.device), func(t *testing.T) {
			assert.Equal(t, tt.want, DeviceFrame(tt.device))
		})
	}

	assert.Equal(t, models.DeviceIPhone, DeviceFrame("toaster").Device)
	assert.InDelta(t, 259.2, DeviceFrame(models.DeviceWatch).ScaledWidth(), 0.001)
}

func TestBuild_StatusBar(t *testing.T) {
	t.Run("ios shows time and icons", func(t *testing.T) {
		v := Build(testConfig(models.OSiOS), passcode.State{}, testNow)
		require.NotNil(t, v.StatusBar)
		assert.Equal(t, LayoutIOS, v.StatusBar.Layout)
		assert.Equal(t, "9:41 AM", v.StatusBar.Time)
		assert.Nil(t, v.StatusBar.Signal)
		assert.NotNil(t, v.StatusBar.Wifi)
		assert.Equal(t, "BatteryWarning", v.StatusBar.Battery.Glyph)
		assert.True(t, v.StatusBar.LowBattery)
		assert.Empty(t, v.StatusBar.Percentage)
	})

	t.Run("android shows percentage", func(t *testing.T) {
		cfg := testConfig(models.OSAndroid)
		cfg.StatusBar.Battery = 80
		v := Build(cfg, passcode.State{}, testNow)
		require.NotNil(t, v.StatusBar)
		assert.Equal(t, LayoutAndroid, v.StatusBar.Layout)
		assert.Empty(t, v.StatusBar.Time)
		assert.Equal(t, "80%", v.StatusBar.Percentage)
		assert.Equal(t, "BatteryFull", v.StatusBar.Battery.Glyph)
	})

	t.Run("wearos has none", func(t *testing.T) {
		v := Build(testConfig(models.OSWearOS), passcode.State{}, testNow)
		assert.Nil(t, v.StatusBar)
	})
}

func TestBuild_Clock(t *testing.T) {
	ios := Build(testConfig(models.OSiOS), passcode.State{}, testNow).Clock
	assert.Equal(t, LayoutIOS, ios.Layout)
	assert.Equal(t, "Monday, October 19", ios.Date)
	assert.Equal(t, "9:41", ios.Time)

	for _, os := range []models.OSType{models.OSAndroid, models.OSWearOS} {
		c := Build(testConfig(os), passcode.State{}, testNow).Clock
		assert.Equal(t, LayoutStacked, c.Layout)
		assert.Equal(t, "9", c.Hour)
		assert.Equal(t, "41", c.Minute)
		assert.Equal(t, "Mon, Oct 19", c.Date)
	}
}

func TestBuild_Notifications(t *testing.T) {
	cfg := testConfig(models.OSAndroid)
	cfg.PrivacyBlur = true
	v := Build(cfg, passcode.State{}, testNow)

	require.Len(t, v.Notifications, 2)
	first := v.Notifications[0]
	assert.Equal(t, LayoutAndroid, first.Layout)
	assert.True(t, first.Blurred)
	assert.Equal(t, "Mail", first.Icon.Glyph)
	assert.Equal(t, "bg-blue-600", first.Icon.Color)

	fallback := v.Notifications[1]
	assert.Equal(t, "AppWindow", fallback.Icon.Glyph)
	assert.Equal(t, "bg-gray-500", fallback.Icon.Color)

	cfg.PrivacyBlur = false
	cfg.OS = models.OSiOS
	v = Build(cfg, passcode.State{}, testNow)
	assert.Equal(t, LayoutIOS, v.Notifications[0].Layout)
	assert.False(t, v.Notifications[0].Blurred)
}

func TestBuild_Chrome(t *testing.T) {
	ios := Build(testConfig(models.OSiOS), passcode.State{}, testNow)
	assert.NotNil(t, ios.LockGlyph)
	assert.True(t, ios.HomeIndicator)

	android := Build(testConfig(models.OSAndroid), passcode.State{}, testNow)
	assert.Nil(t, android.LockGlyph)
	assert.False(t, android.HomeIndicator)

	wear := Build(testConfig(models.OSWearOS), passcode.State{}, testNow)
	assert.NotNil(t, wear.LockGlyph)
	assert.False(t, wear.HomeIndicator)
}

func TestBuild_Layers(t *testing.T) {
	cfg := testConfig(models.OSiOS)
	v := Build(cfg, passcode.State{}, testNow)
	assert.Nil(t, v.Heatmap)
	assert.Equal(t, Background{Kind: models.BackgroundColor, Color: "#1a1a1a"}, v.Background)
	assert.Equal(t, []Marker{{ID: "h1", Left: 25, Top: 75}}, v.Hotspots)

	overlay := "data:image/png;base64,AAAA"
	cfg.HeatmapOverlay = &overlay
	cfg.Background = "data:image/png;base64,BBBB"
	cfg.BackgroundType = models.BackgroundImage
	v = Build(cfg, passcode.State{}, testNow)
	require.NotNil(t, v.Heatmap)
	assert.Equal(t, HeatmapOpacity, v.Heatmap.Opacity)
	assert.Equal(t, "data:image/png;base64,BBBB", v.Background.Image)
}

func TestBuild_Passcode(t *testing.T) {
	cfg := testConfig(models.OSiOS)

	v := Build(cfg, passcode.State{Locked: true}, testNow)
	assert.Nil(t, v.Passcode, "disabled passcode never shows the overlay")

	cfg.Passcode.Enabled = true
	v = Build(cfg, passcode.State{Locked: true, Entered: 2, Shaking: true}, testNow)
	require.NotNil(t, v.Passcode)
	assert.Equal(t, []bool{true, true, false, false}, v.Passcode.Dots)
	assert.True(t, v.Passcode.Shaking)
	assert.Len(t, v.Passcode.Keys, 12)

	v = Build(cfg, passcode.State{Locked: false}, testNow)
	assert.Nil(t, v.Passcode)
}

func TestBuild_IsPure(t *testing.T) {
	cfg := testConfig(models.OSiOS)
	before := cfg.Clone()
	a := Build(cfg, passcode.State{}, testNow)
	b := Build(cfg, passcode.State{}, testNow)
	assert.Equal(t, a, b)
	assert.Equal(t, before, cfg)
}

func TestHTML(t *testing.T) {
	cfg := testConfig(models.OSiOS)
	cfg.Notifications[0].Message = "<script>alert(1)</script>"
	cfg.PrivacyBlur = true
	cfg.Passcode.Enabled = true

	var buf bytes.Buffer
	err := HTML(&buf, Page{Base: "/sessions/abc", View: Build(cfg, passcode.State{Locked: true}, testNow)})
	require.NoError(t, err)

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "<!DOCTYPE html>"))
	assert.Contains(t, out, "Gmail")
	assert.Contains(t, out, "Enter Passcode")
	assert.Contains(t, out, "blurred")
	assert.Contains(t, out, "/sessions/abc/notifications/1")
	assert.Contains(t, out, "background-color:#1a1a1a")
	assert.Contains(t, out, "left:25.00%")
	assert.NotContains(t, out, "<script>alert(1)</script>")
	assert.Contains(t, out, "EventSource")
}

func TestHTML_StaticPage(t *testing.T) {
	cfg := testConfig(models.OSAndroid)
	cfg.Background = "data:image/png;base64,iVBORw0KGgo="
	cfg.BackgroundType = models.BackgroundImage

	var buf bytes.Buffer
	require.NoError(t, HTML(&buf, Page{View: Build(cfg, passcode.State{}, testNow)}))

	out := buf.String()
	assert.NotContains(t, out, "EventSource")
	assert.NotContains(t, out, "data-url")
	assert.Contains(t, out, "url(data:image/png;base64,iVBORw0KGgo=)")
	assert.Contains(t, out, "<span>8%</span>")
}

func TestFragment(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Fragment(&buf, Page{View: Build(testConfig(models.OSiOS), passcode.State{}, testNow)}))
	assert.NotContains(t, buf.String(), "<html")
	assert.Contains(t, buf.String(), `class="device os-ios"`)
}

func TestStyleHelpers(t *testing.T) {
	assert.Equal(t, "font-family:Inter, sans-serif", string(fontStyle("Inter, sans-serif")))
	assert.Equal(t, "font-family:sans-serif", string(fontStyle("{};<>")))
	assert.Equal(t, "background-color:#000000", string(backgroundStyle(Background{Kind: models.BackgroundColor, Color: "red;x:y"})))
	assert.Empty(t, string(imageURL("javascript:alert(1)")))
	assert.Empty(t, string(imageURL(`data:image/png;base64,AA")`)))
}

func TestHotspotFromClick(t *testing.T) {
	x, y, err := HotspotFromClick(50, 150, 200, 300)
	require.NoError(t, err)
	assert.InDelta(t, 25, x, 1e-9)
	assert.InDelta(t, 50, y, 1e-9)

	x, y, err = HotspotFromClick(200, 0, 200, 300)
	require.NoError(t, err)
	assert.Equal(t, 100.0, x)
	assert.Equal(t, 0.0, y)

	for _, tc := range [][4]float64{
		{10, 10, 0, 100},
		{10, 10, 100, -1},
		{-1, 10, 100, 100},
		{10, 101, 100, 100},
	} {
		_, _, err := HotspotFromClick(tc[0], tc[1], tc[2], tc[3])
		assert.ErrorIs(t, err, ErrInvalidSurface, "%v", tc)
	}
}

func TestTicker(t *testing.T) {
	var ticks int32
	ticker := NewTicker(5*time.Millisecond, func(time.Time) { atomic.AddInt32(&ticks, 1) })

	ticker.Start(context.Background())
	ticker.Start(context.Background())
	assert.True(t, ticker.Running())

	require.Eventually(t, func() bool { return atomic.LoadInt32(&ticks) >= 3 }, time.Second, time.Millisecond)

	ticker.Stop()
	assert.False(t, ticker.Running())
	stopped := atomic.LoadInt32(&ticks)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, stopped, atomic.LoadInt32(&ticks))

	ticker.Stop()
}

func TestTicker_StopsWithContext(t *testing.T) {
	var ticks int32
	ctx, cancel := context.WithCancel(context.Background())
	ticker := NewTicker(5*time.Millisecond, func(time.Time) { atomic.AddInt32(&ticks, 1) })
	ticker.Start(ctx)
	cancel()
	ticker.Stop()

	stopped := atomic.LoadInt32(&ticks)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, stopped, atomic.LoadInt32(&ticks))
}
