package export

import (
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/viddatatrain/traincrop/internal/annotate"
)

// OutBase returns the per-range output path without extension. The _range{i}
// suffix is used only when the list holds more than one range.
func OutBase(outputDir, stem string, i, total int) string {
	if total > 1 {
		return filepath.Join(outputDir, fmt.Sprintf("%s_range%d", stem, i))
	}
	return filepath.Join(outputDir, stem)
}

// OutputExt returns the output extension: mp4 for re-encoded video, the
// input's own extension for images.
func OutputExt(snap Snapshot) string {
	if snap.IsImage {
		return strings.ToLower(strings.TrimPrefix(filepath.Ext(snap.InputPath), "."))
	}
	return "mp4"
}

// PixelCrop converts a normalized crop to pixel space against the intrinsic
// dimensions. Width and height are rounded down to even values because some
// encoders reject odd dimensions.
func PixelCrop(c annotate.Rect, width, height int) (cw, ch, cx, cy int) {
	w := float64(width)
	h := float64(height)
	cw = int(math.Abs(c.MaxX-c.MinX)*w) &^ 1
	ch = int(math.Abs(c.MaxY-c.MinY)*h) &^ 1
	cx = int(math.Min(c.MinX, c.MaxX) * w)
	cy = int(math.Min(c.MinY, c.MaxY) * h)
	return cw, ch, cx, cy
}

// BuildArgs assembles the ffmpeg argument vector for one range. For videos
// the seek flags precede -i and the output is re-encoded H.264 at the
// canonical training-data rate; images keep their format and gain no timing
// or codec flags.
func BuildArgs(snap Snapshot, rg annotate.Range, outPath string) []string {
	args := []string{"-y"}

	if !snap.IsImage {
		args = append(args,
			"-ss", formatSeconds(rg.Start),
			"-to", formatSeconds(rg.End),
		)
	}

	args = append(args, "-i", snap.InputPath)

	var filters []string
	if !snap.IsImage {
		filters = append(filters, fmt.Sprintf("fps=%d", TargetFPS))
	}
	if rg.Crop != nil {
		cw, ch, cx, cy := PixelCrop(*rg.Crop, snap.Width, snap.Height)
		filters = append(filters, fmt.Sprintf("crop=%d:%d:%d:%d", cw, ch, cx, cy))
	}
	if len(filters) > 0 {
		args = append(args, "-vf", strings.Join(filters, ","))
	}

	if !snap.IsImage {
		args = append(args, "-c:v", "libx264", "-preset", "ultrafast")
	}

	return append(args, outPath)
}

func formatSeconds(t float64) string {
	return strconv.FormatFloat(t, 'f', -1, 64)
}
