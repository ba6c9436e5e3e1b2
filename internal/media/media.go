// Package media abstracts a loaded video or still image behind a uniform
// contract: read the frame at time t and report the intrinsic size. Video
// frames are decoded by an external ffmpeg process; still images are decoded
// in-process. The time-to-frame-index mapping floor(t * native_fps) is the
// authoritative frame identity, not codec-level seek accuracy.
package media

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
)

var (
	// ErrDecode reports a frame that could not be decoded. Callers skip
	// the texture update and keep the previous frame on screen.
	ErrDecode = errors.New("media: decode failure")
	// ErrOutOfRange reports a requested time outside the media's extent.
	ErrOutOfRange = errors.New("media: time out of range")
)

// Frame is a decoded frame: interleaved 8-bit R,G,B rows, no padding.
type Frame struct {
	Width  int
	Height int
	Pix    []byte
}

// Source is the uniform read contract over videos and still images.
type Source interface {
	// IntrinsicSize returns the media's pixel dimensions.
	IntrinsicSize() (w, h int)
	// ReadFrameAt decodes the frame at time t in seconds. Images ignore t.
	ReadFrameAt(ctx context.Context, t float64) (*Frame, error)
	// NativeFPS is the media's own frame rate; 1 for images.
	NativeFPS() float64
	// Duration is the media length in seconds; 0 for images.
	Duration() float64
	// IsImage reports whether the source is a still image.
	IsImage() bool
	// Close releases decoder resources.
	Close() error
}

var videoExtensions = map[string]bool{
	".mp4":  true,
	".mkv":  true,
	".avi":  true,
	".mov":  true,
	".webm": true,
}

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
	".webp": true,
}

// IsMediaFile reports whether the filename carries a supported video or
// image extension (case-insensitive).
func IsMediaFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return videoExtensions[ext] || imageExtensions[ext]
}

// IsImageFile reports whether the filename carries a supported still-image
// extension (case-insensitive).
func IsImageFile(name string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(name))]
}
