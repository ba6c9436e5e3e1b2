package media

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// DefaultFPS is assumed when the container does not report a frame rate.
const DefaultFPS = 30.0

// ffprobeOutput mirrors the JSON emitted by `ffprobe -print_format json`.
type ffprobeOutput struct {
	Format  ffprobeFormat   `json:"format"`
	Streams []ffprobeStream `json:"streams"`
}

type ffprobeFormat struct {
	Duration string `json:"duration"`
}

type ffprobeStream struct {
	CodecType    string `json:"codec_type"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	RFrameRate   string `json:"r_frame_rate"`
	AvgFrameRate string `json:"avg_frame_rate"`
	NbFrames     string `json:"nb_frames"`
	Duration     string `json:"duration"`
}

// ProbeResult holds the stream metadata the player and exporter need.
type ProbeResult struct {
	Width      int
	Height     int
	FPS        float64
	FrameCount int64
	// Duration is derived as FrameCount / FPS so the timeline and the
	// frame counter agree.
	Duration float64
}

func (d *FFmpeg) probe(ctx context.Context, path string) (*ProbeResult, error) {
	ctx, cancel := context.WithTimeout(ctx, d.probeTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, d.ffprobe,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)

	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe %s: %w", path, err)
	}

	var parsed ffprobeOutput
	if err := json.Unmarshal(out, &parsed); err != nil {
		return nil, fmt.Errorf("cannot parse ffprobe JSON for %s: %w", path, err)
	}

	return resultFromProbe(&parsed)
}

func resultFromProbe(parsed *ffprobeOutput) (*ProbeResult, error) {
	var video *ffprobeStream
	for i := range parsed.Streams {
		if parsed.Streams[i].CodecType == "video" {
			video = &parsed.Streams[i]
			break
		}
	}
	if video == nil {
		return nil, fmt.Errorf("no video stream found")
	}
	if video.Width <= 0 || video.Height <= 0 {
		return nil, fmt.Errorf("video stream reports no dimensions")
	}

	fps := parseFrameRate(video.RFrameRate)
	if fps <= 0 {
		fps = parseFrameRate(video.AvgFrameRate)
	}
	if fps <= 0 {
		fps = DefaultFPS
	}

	frames, _ := strconv.ParseInt(video.NbFrames, 10, 64)
	if frames <= 0 {
		// Containers like webm omit nb_frames; derive it from the
		// reported duration instead.
		seconds := parseSeconds(video.Duration)
		if seconds <= 0 {
			seconds = parseSeconds(parsed.Format.Duration)
		}
		frames = int64(seconds * fps)
	}
	if frames < 0 {
		frames = 0
	}

	return &ProbeResult{
		Width:      video.Width,
		Height:     video.Height,
		FPS:        fps,
		FrameCount: frames,
		Duration:   float64(frames) / fps,
	}, nil
}

// parseFrameRate parses ffprobe's rational rate notation, e.g. "30000/1001".
func parseFrameRate(s string) float64 {
	if s == "" || s == "0/0" {
		return 0
	}
	num, den, found := strings.Cut(s, "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	if !found {
		return n
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0
	}
	return n / d
}

func parseSeconds(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
