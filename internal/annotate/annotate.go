// Package annotate holds the range/crop annotation model. Crops are kept in
// normalized media coordinates (fractions of the intrinsic frame, origin
// top-left) so they survive window resizes and letterboxing. All invariants
// are enforced at mutation: times stay inside [0, duration], rect components
// stay inside [0, 1], and the list is never empty.
package annotate

import "math"

// Rect is a crop rectangle in normalized media coordinates.
type Rect struct {
	MinX float64 `json:"min_x"`
	MinY float64 `json:"min_y"`
	MaxX float64 `json:"max_x"`
	MaxY float64 `json:"max_y"`
}

// RectFromPoints returns the clamped bounding rectangle of two normalized
// points, in either drag direction.
func RectFromPoints(x1, y1, x2, y2 float64) Rect {
	r := Rect{
		MinX: math.Min(x1, x2),
		MinY: math.Min(y1, y2),
		MaxX: math.Max(x1, x2),
		MaxY: math.Max(y1, y2),
	}
	return r.Clamped()
}

// Clamped returns the rectangle with every component clamped to [0, 1] and
// min/max ordered.
func (r Rect) Clamped() Rect {
	minX := clamp01(math.Min(r.MinX, r.MaxX))
	minY := clamp01(math.Min(r.MinY, r.MaxY))
	maxX := clamp01(math.Max(r.MinX, r.MaxX))
	maxY := clamp01(math.Max(r.MinY, r.MaxY))
	return Rect{MinX: minX, MinY: minY, MaxX: maxX, MaxY: maxY}
}

func (r Rect) Width() float64  { return r.MaxX - r.MinX }
func (r Rect) Height() float64 { return r.MaxY - r.MinY }

func clamp01(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}

func clamp(v, lo, hi float64) float64 {
	if hi < lo {
		hi = lo
	}
	return math.Min(hi, math.Max(lo, v))
}

// Range is the unit of export: a time interval of the media plus an optional
// crop and a free-text note. For still images both times are zero and the
// range carries only the crop.
type Range struct {
	Start float64 `json:"start_time"`
	End   float64 `json:"end_time"`
	Crop  *Rect   `json:"crop,omitempty"`
	Note  string  `json:"note"`
}

// List is a non-empty ordered sequence of ranges with a current-range cursor.
// The zero value is not usable; construct with NewList.
type List struct {
	ranges   []Range
	current  int
	duration float64
}

// NewList returns a list holding a single default range spanning the whole
// media, carrying the given note.
func NewList(duration float64, note string) *List {
	if duration < 0 {
		duration = 0
	}
	return &List{
		ranges:   []Range{{Start: 0, End: duration, Note: note}},
		duration: duration,
	}
}

// Reset replaces all ranges with a single default range for newly loaded
// media. Crops never carry over between files.
func (l *List) Reset(duration float64, note string) {
	if duration < 0 {
		duration = 0
	}
	l.duration = duration
	l.ranges = []Range{{Start: 0, End: duration, Note: note}}
	l.current = 0
}

// Add appends a range starting at the given time and ending at the media
// duration, and selects it. On an image this yields {0, 0}.
func (l *List) Add(startTime float64) {
	l.ranges = append(l.ranges, Range{
		Start: clamp(startTime, 0, l.duration),
		End:   l.duration,
	})
	l.current = len(l.ranges) - 1
}

// Remove deletes the range at index i. If the list becomes empty a single
// default range is re-inserted; the cursor is clamped into [0, len).
func (l *List) Remove(i int) {
	if i < 0 || i >= len(l.ranges) {
		return
	}
	l.ranges = append(l.ranges[:i], l.ranges[i+1:]...)
	if len(l.ranges) == 0 {
		l.ranges = []Range{{Start: 0, End: l.duration}}
	}
	if l.current > len(l.ranges)-1 {
		l.current = len(l.ranges) - 1
	}
	if l.current < 0 {
		l.current = 0
	}
}

// Select moves the cursor to index i if it exists.
func (l *List) Select(i int) {
	if i >= 0 && i < len(l.ranges) {
		l.current = i
	}
}

// SetStart writes the current range's start time, clamped into [0, end].
func (l *List) SetStart(t float64) {
	r := &l.ranges[l.current]
	r.Start = clamp(t, 0, r.End)
}

// SetEnd writes the current range's end time, clamped into [start, duration].
func (l *List) SetEnd(t float64) {
	r := &l.ranges[l.current]
	r.End = clamp(t, r.Start, l.duration)
}

// SetCrop stores the clamped rectangle on the current range.
func (l *List) SetCrop(r Rect) {
	c := r.Clamped()
	l.ranges[l.current].Crop = &c
}

// ClearCrop removes the current range's crop.
func (l *List) ClearCrop() {
	l.ranges[l.current].Crop = nil
}

// SetNote replaces the current range's note.
func (l *List) SetNote(note string) {
	l.ranges[l.current].Note = note
}

// Current returns the range under the cursor.
func (l *List) Current() Range {
	return l.ranges[l.current]
}

// CurrentIndex returns the cursor position.
func (l *List) CurrentIndex() int {
	return l.current
}

// Len returns the number of ranges.
func (l *List) Len() int {
	return len(l.ranges)
}

// Duration returns the media duration the list was reset with.
func (l *List) Duration() float64 {
	return l.duration
}

// Ranges returns a by-value copy of the list, safe to hand to a worker.
func (l *List) Ranges() []Range {
	out := make([]Range, len(l.ranges))
	copy(out, l.ranges)
	for i := range out {
		if out[i].Crop != nil {
			c := *out[i].Crop
			out[i].Crop = &c
		}
	}
	return out
}
