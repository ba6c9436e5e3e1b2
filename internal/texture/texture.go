// Package texture converts decoded RGB frames into the display texture the
// front-end paints. One named slot is reused for every upload so only a
// single texture is ever retained; a failed conversion leaves the previous
// texture in place.
package texture

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"sync"

	"github.com/viddatatrain/traincrop/internal/media"
)

// SlotName identifies the single texture slot to the front-end.
const SlotName = "video-frame"

// Texture is a display-ready encoded frame.
type Texture struct {
	Name    string
	Width   int
	Height  int
	PNG     []byte
	Version uint64
}

// Slot holds the current texture. Safe for concurrent use.
type Slot struct {
	mu      sync.RWMutex
	current *Texture
	version uint64
}

func NewSlot() *Slot {
	return &Slot{}
}

// Upload converts an interleaved-RGB frame and replaces the slot's texture.
// On any error the previous texture is kept.
func (s *Slot) Upload(f *media.Frame) error {
	if f == nil || f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("texture: empty frame")
	}
	if len(f.Pix) < f.Width*f.Height*3 {
		return fmt.Errorf("texture: frame buffer %d bytes, need %d", len(f.Pix), f.Width*f.Height*3)
	}

	img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	si := 0
	for y := 0; y < f.Height; y++ {
		di := y * img.Stride
		for x := 0; x < f.Width; x++ {
			img.Pix[di] = f.Pix[si]
			img.Pix[di+1] = f.Pix[si+1]
			img.Pix[di+2] = f.Pix[si+2]
			img.Pix[di+3] = 0xff
			si += 3
			di += 4
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("texture: encode: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.version++
	s.current = &Texture{
		Name:    SlotName,
		Width:   f.Width,
		Height:  f.Height,
		PNG:     buf.Bytes(),
		Version: s.version,
	}
	return nil
}

// Current returns the latest texture, or nil when nothing has been uploaded.
func (s *Slot) Current() *Texture {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Clear drops the texture, e.g. when a new file fails to load a first frame.
func (s *Slot) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
}
