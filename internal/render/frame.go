package render

import "github.com/koios/lockscreenr/pkg/models"

// Frame is the simulated hardware outline. Width and Height are device pixels
// before Scale is applied.
type Frame struct {
	Device models.DeviceType `json:"device"`
	Width  int               `json:"width"`
	Height int               `json:"height"`
	Radius int               `json:"radius"`
	Scale  float64           `json:"scale"`
	Border int               `json:"border"`
}

// ScaledWidth is the on-screen width of the frame
func (f Frame) ScaledWidth() float64 { return float64(f.Width) * f.Scale }

// ScaledHeight is the on-screen height of the frame
func (f Frame) ScaledHeight() float64 { return float64(f.Height) * f.Scale }

var frames = map[models.DeviceType]Frame{
	models.DeviceIPhone: {Device: models.DeviceIPhone, Width: 390, Height: 844, Radius: 40, Scale: 0.7, Border: 12},
	models.DevicePixel:  {Device: models.DevicePixel, Width: 412, Height: 915, Radius: 28, Scale: 0.7, Border: 12},
	models.DeviceTablet: {Device: models.DeviceTablet, Width: 768, Height: 1024, Radius: 18, Scale: 0.6, Border: 12},
	models.DeviceWatch:  {Device: models.DeviceWatch, Width: 324, Height: 394, Radius: 40, Scale: 0.8, Border: 10},
}

// DeviceFrame returns the frame for device. Unknown devices get the iPhone frame.
func DeviceFrame(device models.DeviceType) Frame {
	if f, ok := frames[device]; ok {
		return f
	}
	return frames[models.DeviceIPhone]
}
