package writer

import (
	"image/color"
	"math"
)

// SegmentationPalette returns the 256-entry palette used for segmentation PNGs. Index 0 is black;
// the remaining hues are spread by the golden angle so neighbouring indices contrast.
func SegmentationPalette() color.Palette {
	p := make(color.Palette, 256)
	p[0] = color.RGBA{A: 255}
	for i := 1; i < len(p); i++ {
		hue := math.Mod(float64(i)*0.618033988749895, 1)
		p[i] = hsv(hue, 0.65+0.35*float64(i%2), 0.95)
	}
	return p
}

func hsv(h, s, v float64) color.RGBA {
	i := math.Floor(h * 6)
	f := h*6 - i
	p, q, t := v*(1-s), v*(1-f*s), v*(1-(1-f)*s)
	var r, g, b float64
	switch int(i) % 6 {
	case 0:
		r, g, b = v, t, p
	case 1:
		r, g, b = q, v, p
	case 2:
		r, g, b = p, v, t
	case 3:
		r, g, b = p, q, v
	case 4:
		r, g, b = t, p, v
	default:
		r, g, b = v, p, q
	}
	return color.RGBA{R: uint8(r * 255), G: uint8(g * 255), B: uint8(b * 255), A: 255}
}
