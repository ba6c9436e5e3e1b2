// Package display computes the aspect-preserving display rectangle for a
// frame and the bidirectional mapping between display pixels and normalized
// media coordinates. The display rectangle is the sole basis for painting the
// texture and interpreting pointer positions; the area outside it is the
// letterbox/pillarbox.
package display

// Rect is an on-screen rectangle in display pixels.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Fit returns the media frame scaled by min(W/w, H/h) and centered inside
// the available area.
func Fit(availW, availH, mediaW, mediaH float64) Rect {
	if mediaW <= 0 || mediaH <= 0 {
		return Fallback(availW)
	}
	scale := availW / mediaW
	if s := availH / mediaH; s < scale {
		scale = s
	}
	w := mediaW * scale
	h := mediaH * scale
	return Rect{
		X: (availW - w) / 2,
		Y: (availH - h) / 2,
		W: w,
		H: h,
	}
}

// Fallback returns the 16:9 layout rectangle used when no media is loaded.
func Fallback(availW float64) Rect {
	return Rect{X: 0, Y: 0, W: availW, H: availW * 0.5625}
}

// ToNorm maps a display-pixel point to normalized media coordinates.
func (r Rect) ToNorm(px, py float64) (nx, ny float64) {
	return (px - r.X) / r.W, (py - r.Y) / r.H
}

// FromNorm maps normalized media coordinates back to display pixels.
func (r Rect) FromNorm(nx, ny float64) (px, py float64) {
	return nx*r.W + r.X, ny*r.H + r.Y
}

// Contains reports whether the display-pixel point lies inside the rectangle.
func (r Rect) Contains(px, py float64) bool {
	return px >= r.X && px <= r.X+r.W && py >= r.Y && py <= r.Y+r.H
}
