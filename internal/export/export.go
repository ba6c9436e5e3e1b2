// Package export walks the annotation list and launches one ffmpeg
// transcode per range on a background worker. The worker operates on a
// by-value snapshot of the annotations and media dimensions; its only
// back-channels to the UI are the atomic exporting gate and the
// mutex-protected error cell.
package export

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/viddatatrain/traincrop/internal/annotate"
)

// TargetFPS is the canonical output frame rate for exported video fragments.
const TargetFPS = 16

// Snapshot is the by-value input an export worker owns. It never aliases
// live session state.
type Snapshot struct {
	InputPath string
	OutputDir string
	IsImage   bool
	// Width and Height are the media's intrinsic pixel dimensions,
	// captured at export start for the crop math.
	Width  int
	Height int
	Ranges []annotate.Range
}

// Runner serialises export jobs behind an atomic gate: one worker at a time,
// started by compare-and-set, released on every worker exit path.
type Runner struct {
	ffmpegPath string
	logger     *slog.Logger

	exporting atomic.Bool

	mu      sync.Mutex
	lastErr string
}

func NewRunner(ffmpegPath string, logger *slog.Logger) *Runner {
	return &Runner{ffmpegPath: ffmpegPath, logger: logger}
}

// Exporting reports whether a worker is alive.
func (r *Runner) Exporting() bool {
	return r.exporting.Load()
}

// LastError returns the error recorded by the most recent worker, or "".
func (r *Runner) LastError() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastErr
}

func (r *Runner) setError(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastErr = msg
}

// Start takes the exporting gate and launches the worker. It returns false
// without doing anything when an export is already running.
func (r *Runner) Start(snap Snapshot) bool {
	if !r.exporting.CompareAndSwap(false, true) {
		return false
	}
	r.setError("")

	jobID := uuid.NewString()[:8]
	logger := r.logger.With("export_id", jobID)
	logger.Info("export started",
		"input", snap.InputPath,
		"output_dir", snap.OutputDir,
		"ranges", len(snap.Ranges),
		"is_image", snap.IsImage,
	)

	go r.run(logger, snap)
	return true
}

func (r *Runner) run(logger *slog.Logger, snap Snapshot) {
	defer r.exporting.Store(false)
	defer func() {
		if p := recover(); p != nil {
			logger.Error("export worker panic", "panic", p)
			r.setError(fmt.Sprintf("export worker panic: %v", p))
		}
	}()

	stem := strings.TrimSuffix(filepath.Base(snap.InputPath), filepath.Ext(snap.InputPath))

	for i, rg := range snap.Ranges {
		outBase := OutBase(snap.OutputDir, stem, i, len(snap.Ranges))

		if rg.Note != "" {
			// Best-effort sidecar; a failed note never blocks the media.
			if err := os.WriteFile(outBase+".txt", []byte(rg.Note), 0644); err != nil {
				logger.Warn("sidecar note write failed", "path", outBase+".txt", "error", err)
			}
		}

		outPath := outBase + "." + OutputExt(snap)
		args := BuildArgs(snap, rg, outPath)

		logger.Info("exporting range", "range", i, "output", outPath)
		start := time.Now()

		cmd := exec.Command(r.ffmpegPath, args...)
		err := cmd.Run()
		if err != nil {
			if exitErr, ok := err.(*exec.ExitError); ok {
				msg := fmt.Sprintf("ffmpeg failed on range %d with exit code %d", i, exitErr.ExitCode())
				logger.Warn("export range failed", "range", i, "exit_code", exitErr.ExitCode())
				r.setError(msg)
			} else {
				msg := fmt.Sprintf("failed to start ffmpeg: %v", err)
				logger.Error("cannot start ffmpeg", "error", err)
				r.setError(msg)
			}
			// Remaining ranges are not attempted.
			return
		}

		logger.Info("range exported", "range", i, "duration_ms", time.Since(start).Milliseconds())
	}

	logger.Info("export finished", "ranges", len(snap.Ranges))
}
