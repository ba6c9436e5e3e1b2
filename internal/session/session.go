// Package session owns the annotation workbench state: the loaded media
// source, the playback engine, the annotation list, the display texture and
// the export hand-off. All mutation happens through its methods under one
// lock; the export worker only ever receives by-value snapshots.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/viddatatrain/traincrop/internal/annotate"
	"github.com/viddatatrain/traincrop/internal/export"
	"github.com/viddatatrain/traincrop/internal/media"
	"github.com/viddatatrain/traincrop/internal/player"
	"github.com/viddatatrain/traincrop/internal/prefs"
	"github.com/viddatatrain/traincrop/internal/texture"
	"github.com/viddatatrain/traincrop/internal/watcher"
)

var (
	ErrNoSelection   = errors.New("session: no file selected")
	ErrNoOutputDir   = errors.New("session: no output directory set")
	ErrExportRunning = errors.New("session: an export is already running")
)

// MediaOpener loads media files into sources.
type MediaOpener interface {
	OpenVideo(ctx context.Context, path string) (media.Source, error)
	OpenImage(path string) (media.Source, error)
}

// Exporter runs export jobs behind an atomic gate.
type Exporter interface {
	Start(snap export.Snapshot) bool
	Exporting() bool
	LastError() string
}

// Config wires the session's collaborators. Store and Watcher may be nil.
type Config struct {
	Opener   MediaOpener
	Exporter Exporter
	Store    prefs.Store
	Watcher  watcher.Watcher
	Logger   *slog.Logger
}

// FileInfo describes one entry of the input directory listing.
type FileInfo struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	IsImage bool   `json:"is_image"`
}

// Session is the single mutable workbench. Safe for concurrent use.
type Session struct {
	mu sync.Mutex

	opener   MediaOpener
	exporter Exporter
	store    prefs.Store
	watch    watcher.Watcher
	logger   *slog.Logger

	inputDir  string
	outputDir string
	files     []FileInfo
	listErr   string // dir_read failures, surfaced in state
	selected  int    // index into files, -1 when nothing is loaded

	src     media.Source
	isImage bool

	player      *player.Player
	annotations *annotate.List
	slot        *texture.Slot

	dragAnchor  *normPoint
	noteFocused bool
}

type normPoint struct {
	x, y float64
}

func New(cfg Config) *Session {
	s := &Session{
		opener:      cfg.Opener,
		exporter:    cfg.Exporter,
		store:       cfg.Store,
		watch:       cfg.Watcher,
		logger:      cfg.Logger,
		selected:    -1,
		player:      player.New(),
		annotations: annotate.NewList(0, ""),
		slot:        texture.NewSlot(),
	}
	if s.watch != nil {
		s.watch.OnChange(func(path string, ev watcher.EventType) {
			s.onDirChange()
		})
	}
	return s
}

// NewOpener adapts the ffmpeg decoder to the MediaOpener contract.
func NewOpener(dec *media.FFmpeg) MediaOpener {
	return ffmpegOpener{dec: dec}
}

type ffmpegOpener struct {
	dec *media.FFmpeg
}

func (o ffmpegOpener) OpenVideo(ctx context.Context, path string) (media.Source, error) {
	return o.dec.OpenVideo(ctx, path)
}

func (o ffmpegOpener) OpenImage(path string) (media.Source, error) {
	return media.OpenImage(path)
}

// Texture returns the current display texture, or nil.
func (s *Session) Texture() *texture.Texture {
	return s.slot.Current()
}

// Tick advances playback by elapsed wall-clock seconds and refreshes the
// visible frame while playing. Images never play.
func (s *Session) Tick(ctx context.Context, elapsed float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isImage {
		return
	}
	if s.player.Tick(elapsed) {
		s.refreshFrame(ctx)
	}
}

// refreshFrame reads the frame at the current time and uploads it. A failed
// read or upload keeps the previous texture; the tick simply skips ahead.
func (s *Session) refreshFrame(ctx context.Context) {
	if s.src == nil {
		return
	}
	frame, err := s.src.ReadFrameAt(ctx, s.player.CurrentTime())
	if err != nil {
		s.logger.Debug("frame read skipped", "time", s.player.CurrentTime(), "error", err)
		return
	}
	if err := s.slot.Upload(frame); err != nil {
		s.logger.Warn("texture upload failed", "error", err)
	}
}

// Export snapshots the annotations and media dimensions and hands them to
// the export worker. It is a no-op error when preconditions are unmet or a
// worker is already running.
func (s *Session) Export() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.selected < 0 || s.src == nil {
		return ErrNoSelection
	}
	if s.outputDir == "" {
		return ErrNoOutputDir
	}

	w, h := s.src.IntrinsicSize()
	snap := export.Snapshot{
		InputPath: s.files[s.selected].Path,
		OutputDir: s.outputDir,
		IsImage:   s.isImage,
		Width:     w,
		Height:    h,
		Ranges:    s.annotations.Ranges(),
	}

	if !s.exporter.Start(snap) {
		return ErrExportRunning
	}
	return nil
}
