package dashboard

import (
	"fmt"
	"image/color"
	"math"
)

// MaxForceG is the force at which the gradient reaches full red.
const MaxForceG = 500.0

func clamp(v, lo, hi float64) float64 {
	return max(lo, min(hi, v))
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// ForceColor maps a force in grams onto a green -> yellow -> red gradient
// over 0..MaxForceG. NaN is treated as zero force.
func ForceColor(forceG float64) color.RGBA {
	if math.IsNaN(forceG) {
		forceG = 0
	}
	t := clamp(forceG/MaxForceG, 0, 1)
	var r, g float64
	if t < 0.5 {
		k := t / 0.5
		r = lerp(0, 255, k)
		g = lerp(180, 200, k)
	} else {
		k := (t - 0.5) / 0.5
		r = lerp(255, 230, k)
		g = lerp(200, 0, k)
	}
	return color.RGBA{R: uint8(r), G: uint8(g), B: 0, A: 0xff}
}

// Hex renders c as #rrggbb.
func Hex(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// ForceHex is Hex(ForceColor(forceG)).
func ForceHex(forceG float64) string {
	return Hex(ForceColor(forceG))
}

// Axis line colours for the time-series views, x, y then z.
var axisColors = [3]color.RGBA{
	{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff},
	{R: 0xff, G: 0x7f, B: 0x0e, A: 0xff},
	{R: 0x2c, G: 0xa0, B: 0x2c, A: 0xff},
}
