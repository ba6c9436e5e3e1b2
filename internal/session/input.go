package session

import (
	"context"
	"strconv"

	"github.com/viddatatrain/traincrop/internal/annotate"
	"github.com/viddatatrain/traincrop/internal/display"
)

// Key names accepted by HandleKey.
const (
	KeySpace = "space"
	KeyIn    = "i"
	KeyOut   = "o"
	KeyRange = "r"
	KeyLeft  = "left"
	KeyRight = "right"
)

// SetNoteFocus records whether the note editor has keyboard focus. While
// focused, shortcut keys are swallowed so typing never drives playback.
func (s *Session) SetNoteFocus(focused bool) {
	s.mu.Lock()
	s.noteFocused = focused
	s.mu.Unlock()
}

// HandleKey applies a playback shortcut. Shortcuts are inert while a still
// image is loaded or the note editor is focused.
func (s *Session) HandleKey(ctx context.Context, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.src == nil || s.isImage || s.noteFocused {
		return
	}

	switch key {
	case KeySpace:
		s.player.PausePlay()
	case KeyIn:
		s.annotations.SetStart(s.player.CurrentTime())
	case KeyOut:
		s.annotations.SetEnd(s.player.CurrentTime())
	case KeyRange:
		r := s.annotations.Current()
		s.player.PlayUntil(r.Start, r.End)
		s.refreshFrame(ctx)
	case KeyLeft:
		s.player.PrevFrame()
		s.refreshFrame(ctx)
	case KeyRight:
		s.player.NextFrame()
		s.refreshFrame(ctx)
	}
}

// displayRectLocked computes where the media is drawn inside an available
// area, matching what the front-end renders.
func (s *Session) displayRectLocked(availW, availH float64) display.Rect {
	if s.src == nil {
		return display.Fallback(availW)
	}
	w, h := s.src.IntrinsicSize()
	return display.Fit(availW, availH, float64(w), float64(h))
}

// DragStart anchors a crop drag at a point in available-area coordinates.
// Points outside the drawn media are ignored.
func (s *Session) DragStart(x, y, availW, availH float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.src == nil {
		return
	}
	rect := s.displayRectLocked(availW, availH)
	if !rect.Contains(x, y) {
		return
	}
	nx, ny := rect.ToNorm(x, y)
	s.dragAnchor = &normPoint{x: nx, y: ny}
}

// DragMove updates the current range's crop to the rectangle spanned by the
// anchor and the given point. A move without an anchor does nothing, so a
// bare click never creates a crop.
func (s *Session) DragMove(x, y, availW, availH float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dragAnchor == nil || s.src == nil {
		return
	}
	rect := s.displayRectLocked(availW, availH)
	nx, ny := rect.ToNorm(x, y)
	crop := annotate.RectFromPoints(s.dragAnchor.x, s.dragAnchor.y, nx, ny)
	s.annotations.SetCrop(crop)
}

// DragEnd releases the crop anchor.
func (s *Session) DragEnd() {
	s.mu.Lock()
	s.dragAnchor = nil
	s.mu.Unlock()
}

// SetTime scrubs playback to t seconds and refreshes the frame.
func (s *Session) SetTime(ctx context.Context, t float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.src == nil || s.isImage {
		return
	}
	s.player.SetTime(t)
	s.refreshFrame(ctx)
}

// SetFrameText jumps to a frame number typed as text. Unparseable input is
// ignored.
func (s *Session) SetFrameText(ctx context.Context, text string) {
	n, err := strconv.Atoi(text)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.src == nil || s.isImage {
		return
	}
	s.player.SetFrameNumber(n)
	s.refreshFrame(ctx)
}

// AddRange appends a new range starting at the current time and selects it.
func (s *Session) AddRange() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.src == nil {
		return
	}
	s.annotations.Add(s.player.CurrentTime())
}

// RemoveRange deletes the range at index i. The list never becomes empty.
func (s *Session) RemoveRange(i int) {
	s.mu.Lock()
	s.annotations.Remove(i)
	s.mu.Unlock()
}

// SelectRange makes the range at index i current.
func (s *Session) SelectRange(i int) {
	s.mu.Lock()
	s.annotations.Select(i)
	s.mu.Unlock()
}

// SetRangeStart pins the current range's start to the playback time.
func (s *Session) SetRangeStart() {
	s.mu.Lock()
	if s.src != nil {
		s.annotations.SetStart(s.player.CurrentTime())
	}
	s.mu.Unlock()
}

// SetRangeEnd pins the current range's end to the playback time.
func (s *Session) SetRangeEnd() {
	s.mu.Lock()
	if s.src != nil {
		s.annotations.SetEnd(s.player.CurrentTime())
	}
	s.mu.Unlock()
}

// ClearCrop removes the crop from the current range.
func (s *Session) ClearCrop() {
	s.mu.Lock()
	s.annotations.ClearCrop()
	s.mu.Unlock()
}

// SetNote replaces the note on the current range.
func (s *Session) SetNote(note string) {
	s.mu.Lock()
	s.annotations.SetNote(note)
	s.mu.Unlock()
}

// PlayRange plays the current range from its start to its end.
func (s *Session) PlayRange(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.src == nil || s.isImage {
		return
	}
	r := s.annotations.Current()
	s.player.PlayUntil(r.Start, r.End)
	s.refreshFrame(ctx)
}

// PausePlay toggles playback.
func (s *Session) PausePlay() {
	s.mu.Lock()
	if s.src != nil && !s.isImage && !s.noteFocused {
		s.player.PausePlay()
	}
	s.mu.Unlock()
}

// StepFrame moves one frame backward or forward.
func (s *Session) StepFrame(ctx context.Context, delta int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.src == nil || s.isImage {
		return
	}
	if delta < 0 {
		s.player.PrevFrame()
	} else {
		s.player.NextFrame()
	}
	s.refreshFrame(ctx)
}
