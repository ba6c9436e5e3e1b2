package session

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/viddatatrain/traincrop/internal/annotate"
	"github.com/viddatatrain/traincrop/internal/export"
	"github.com/viddatatrain/traincrop/internal/media"
	"github.com/viddatatrain/traincrop/internal/prefs"
)

// SetInputDir points the session at a media directory and enumerates it.
// An unreadable directory yields an empty listing and is reported through
// the session state rather than failing the call.
func (s *Session) SetInputDir(ctx context.Context, dir string) {
	s.mu.Lock()
	s.inputDir = dir
	s.refreshFilesLocked()
	count := len(s.files)
	s.mu.Unlock()

	s.persistPref(ctx, prefs.KeyInputDir, dir)

	if s.watch != nil {
		if err := s.watch.Watch(ctx, dir); err != nil {
			s.logger.Warn("input directory watch failed", "dir", dir, "error", err)
		}
	}

	s.logger.Info("input directory set", "dir", dir, "files", count)
}

// SetOutputDir validates and sets the export destination.
func (s *Session) SetOutputDir(ctx context.Context, dir string) error {
	if err := export.ValidateOutputDir(dir); err != nil {
		return err
	}
	s.mu.Lock()
	s.outputDir = dir
	s.mu.Unlock()

	s.persistPref(ctx, prefs.KeyOutputDir, dir)
	s.logger.Info("output directory set", "dir", dir)
	return nil
}

func (s *Session) persistPref(ctx context.Context, key, value string) {
	if s.store == nil {
		return
	}
	if err := s.store.Set(ctx, key, value); err != nil {
		s.logger.Warn("preference not persisted", "key", key, "error", err)
	}
}

// RefreshFiles re-enumerates the input directory. The current selection is
// kept when its path survives the refresh.
func (s *Session) RefreshFiles() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshFilesLocked()
}

func (s *Session) onDirChange() {
	s.RefreshFiles()
}

func (s *Session) refreshFilesLocked() {
	var selectedPath string
	if s.selected >= 0 && s.selected < len(s.files) {
		selectedPath = s.files[s.selected].Path
	}

	s.files = nil
	s.listErr = ""
	s.selected = -1

	if s.inputDir == "" {
		return
	}

	entries, err := os.ReadDir(s.inputDir)
	if err != nil {
		s.listErr = err.Error()
		return
	}

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !media.IsMediaFile(name) {
			continue
		}
		s.files = append(s.files, FileInfo{
			Name:    name,
			Path:    filepath.Join(s.inputDir, name),
			IsImage: media.IsImageFile(name),
		})
	}
	sort.Slice(s.files, func(i, j int) bool { return s.files[i].Name < s.files[j].Name })

	for i, f := range s.files {
		if f.Path == selectedPath {
			s.selected = i
			break
		}
	}
}

// Files returns the current directory listing.
func (s *Session) Files() []FileInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]FileInfo, len(s.files))
	copy(out, s.files)
	return out
}

// SelectFile loads the file at the given listing index. A file that fails to
// open is logged and skipped, leaving the previous media in place.
func (s *Session) SelectFile(ctx context.Context, idx int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if idx < 0 || idx >= len(s.files) {
		return
	}
	f := s.files[idx]

	var (
		src media.Source
		err error
	)
	if f.IsImage {
		src, err = s.opener.OpenImage(f.Path)
	} else {
		src, err = s.opener.OpenVideo(ctx, f.Path)
	}
	if err != nil {
		s.logger.Warn("media open failed", "path", f.Path, "error", err)
		return
	}

	if s.src != nil {
		s.src.Close()
	}
	s.src = src
	s.isImage = src.IsImage()
	s.selected = idx
	s.dragAnchor = nil

	s.player.SetMedia(src.NativeFPS(), src.Duration())
	s.annotations = annotate.NewList(src.Duration(), sidecarNote(f.Path))

	s.logger.Info("file selected", "name", f.Name, "image", s.isImage)
	s.refreshFrame(ctx)
}

// sidecarNote reads the note stored next to a media file, if any.
func sidecarNote(mediaPath string) string {
	ext := filepath.Ext(mediaPath)
	notePath := strings.TrimSuffix(mediaPath, ext) + ".txt"
	data, err := os.ReadFile(notePath)
	if err != nil {
		return ""
	}
	return string(data)
}
