package types

import (
	"image/color"
	"math"
)

// NormalizeHue maps an arbitrary finite hue value onto [0, 360) degrees.
// Negative values wrap backwards: NormalizeHue(-1) == 359.
func NormalizeHue(hue float64) float64 {
	return math.Mod(math.Mod(hue, 360.0)+360.0, 360.0)
}

// HueToRGBA converts a hue (degrees, normalized internally) to an opaque
// color at full saturation and value.
func HueToRGBA(hue float64) color.RGBA {
	h := NormalizeHue(hue)

	// HSV to RGB with S = V = 1: chroma is 1, so the conversion reduces to
	// picking the sector and the intermediate component x.
	x := 1.0 - math.Abs(math.Mod(h/60.0, 2.0)-1.0)

	var r, g, b float64
	switch {
	case h < 60:
		r, g, b = 1, x, 0
	case h < 120:
		r, g, b = x, 1, 0
	case h < 180:
		r, g, b = 0, 1, x
	case h < 240:
		r, g, b = 0, x, 1
	case h < 300:
		r, g, b = x, 0, 1
	default:
		r, g, b = 1, 0, x
	}

	return color.RGBA{
		R: uint8(math.Round(r * 255)),
		G: uint8(math.Round(g * 255)),
		B: uint8(math.Round(b * 255)),
		A: 255,
	}
}

// TextColorForBackground picks black or white text for readability against
// the given background, using the perceived-luma darkness heuristic.
func TextColorForBackground(background color.RGBA) color.RGBA {
	darkness := 1 - (0.299*float64(background.R)+
		0.587*float64(background.G)+
		0.114*float64(background.B))/255

	if darkness < 0.5 {
		return color.RGBA{A: 255} // black
	}
	return color.RGBA{R: 255, G: 255, B: 255, A: 255} // white
}

// SortableColorKey returns a stable ordering key for a color so that a
// cluster's wedge colors render in the same order on every recompute.
func SortableColorKey(c color.RGBA) uint32 {
	return uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B)
}
