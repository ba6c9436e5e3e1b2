package media

import (
	"context"
	"fmt"
	"image"
	"os"

	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// ImageSource holds a decoded still image. It satisfies the same contract as
// a video: the frame read ignores t, the frame rate is 1 and the duration 0,
// so a range on an image degenerates to a bare crop.
type ImageSource struct {
	width  int
	height int
	pix    []byte // RGB24
}

// OpenImage decodes a still image file into RGB pixels.
func OpenImage(path string) (*ImageSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecode, path, err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	pix := make([]byte, w*h*3)
	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			pix[i] = byte(r >> 8)
			pix[i+1] = byte(g >> 8)
			pix[i+2] = byte(b >> 8)
			i += 3
		}
	}

	return &ImageSource{width: w, height: h, pix: pix}, nil
}

func (s *ImageSource) IntrinsicSize() (int, int) { return s.width, s.height }
func (s *ImageSource) NativeFPS() float64        { return 1 }
func (s *ImageSource) Duration() float64         { return 0 }
func (s *ImageSource) IsImage() bool             { return true }
func (s *ImageSource) Close() error              { return nil }

func (s *ImageSource) ReadFrameAt(ctx context.Context, t float64) (*Frame, error) {
	return &Frame{Width: s.width, Height: s.height, Pix: s.pix}, nil
}
