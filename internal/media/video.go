package media

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"math"
	"os/exec"
	"strconv"
	"time"
)

const maxStderrBytes = 8 * 1024 // 8 KB tail of stderr kept for diagnostics

// FFmpeg locates the external ffmpeg/ffprobe binaries and opens video
// sources backed by them.
type FFmpeg struct {
	ffmpeg       string
	ffprobe      string
	probeTimeout time.Duration
	frameTimeout time.Duration
	logger       *slog.Logger
}

// FFmpegConfig configures binary resolution and per-call deadlines.
type FFmpegConfig struct {
	FFmpegPath   string // binary name or path; empty = "ffmpeg" on PATH
	FFprobePath  string // binary name or path; empty = "ffprobe" on PATH
	ProbeTimeout time.Duration
	FrameTimeout time.Duration
	Logger       *slog.Logger
}

// NewFFmpeg resolves both binaries on the process path.
func NewFFmpeg(cfg FFmpegConfig) (*FFmpeg, error) {
	ffmpeg, err := resolveBinary(cfg.FFmpegPath, "ffmpeg")
	if err != nil {
		return nil, err
	}
	ffprobe, err := resolveBinary(cfg.FFprobePath, "ffprobe")
	if err != nil {
		return nil, err
	}

	probeTimeout := cfg.ProbeTimeout
	if probeTimeout <= 0 {
		probeTimeout = 15 * time.Second
	}
	frameTimeout := cfg.FrameTimeout
	if frameTimeout <= 0 {
		frameTimeout = 15 * time.Second
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("ffmpeg decoder initialised", "ffmpeg", ffmpeg, "ffprobe", ffprobe)
	}

	return &FFmpeg{
		ffmpeg:       ffmpeg,
		ffprobe:      ffprobe,
		probeTimeout: probeTimeout,
		frameTimeout: frameTimeout,
		logger:       cfg.Logger,
	}, nil
}

// Path returns the resolved ffmpeg binary path, shared with the exporter.
func (d *FFmpeg) Path() string {
	return d.ffmpeg
}

func resolveBinary(preferred, fallback string) (string, error) {
	name := preferred
	if name == "" {
		name = fallback
	}
	p, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("cannot locate %s: %w", name, err)
	}
	return p, nil
}

// VideoSource reads individual frames from a video file via ffmpeg.
type VideoSource struct {
	decoder *FFmpeg
	path    string
	width   int
	height  int
	fps     float64
	frames  int64
}

// OpenVideo probes the file and returns a frame-addressable source.
func (d *FFmpeg) OpenVideo(ctx context.Context, path string) (*VideoSource, error) {
	info, err := d.probe(ctx, path)
	if err != nil {
		return nil, err
	}
	return &VideoSource{
		decoder: d,
		path:    path,
		width:   info.Width,
		height:  info.Height,
		fps:     info.FPS,
		frames:  info.FrameCount,
	}, nil
}

func (v *VideoSource) IntrinsicSize() (int, int) { return v.width, v.height }
func (v *VideoSource) NativeFPS() float64        { return v.fps }
func (v *VideoSource) IsImage() bool             { return false }
func (v *VideoSource) Close() error              { return nil }

func (v *VideoSource) Duration() float64 {
	return float64(v.frames) / v.fps
}

// ReadFrameAt decodes the single frame identified by floor(t * fps). The
// request is clamped to the media's frame range.
func (v *VideoSource) ReadFrameAt(ctx context.Context, t float64) (*Frame, error) {
	idx := int64(math.Floor(t * v.fps))
	if idx < 0 {
		idx = 0
	}
	if v.frames > 0 && idx > v.frames-1 {
		idx = v.frames - 1
	}
	seek := float64(idx) / v.fps

	ctx, cancel := context.WithTimeout(ctx, v.decoder.frameTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, v.decoder.ffmpeg,
		"-v", "error",
		"-ss", strconv.FormatFloat(seek, 'f', 6, 64),
		"-i", v.path,
		"-frames:v", "1",
		"-f", "rawvideo",
		"-pix_fmt", "rgb24",
		"pipe:1",
	)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &limitedWriter{w: &stderr, limit: maxStderrBytes}

	if err := cmd.Run(); err != nil {
		if v.decoder.logger != nil {
			v.decoder.logger.Warn("frame decode failed",
				"frame", idx,
				"error", err,
				"stderr_tail", stderr.String(),
			)
		}
		return nil, fmt.Errorf("%w: frame %d: %v", ErrDecode, idx, err)
	}

	want := v.width * v.height * 3
	if stdout.Len() < want {
		// ffmpeg exits zero but emits nothing when the seek lands past
		// the last packet.
		return nil, fmt.Errorf("%w: frame %d: short read %d of %d bytes", ErrDecode, idx, stdout.Len(), want)
	}

	return &Frame{
		Width:  v.width,
		Height: v.height,
		Pix:    stdout.Bytes()[:want],
	}, nil
}

// limitedWriter is an io.Writer that keeps only the last `limit` bytes.
type limitedWriter struct {
	w     *bytes.Buffer
	limit int
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)
	lw.w.Write(p)
	if lw.w.Len() > lw.limit {
		// Keep only the tail
		b := lw.w.Bytes()
		lw.w.Reset()
		lw.w.Write(b[len(b)-lw.limit:])
	}
	return n, nil
}
