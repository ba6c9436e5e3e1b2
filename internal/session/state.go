package session

import (
	"math"
	"strconv"

	"github.com/viddatatrain/traincrop/internal/annotate"
	"github.com/viddatatrain/traincrop/internal/export"
)

// RangeView is one annotated range as presented to the front-end, with its
// frame span at native speed and the frame count a 16 fps export would keep.
type RangeView struct {
	Index        int            `json:"index"`
	Start        float64        `json:"start_time"`
	End          float64        `json:"end_time"`
	Crop         *annotate.Rect `json:"crop,omitempty"`
	Note         string         `json:"note"`
	StartFrame   int            `json:"start_frame"`
	EndFrame     int            `json:"end_frame"`
	TargetFrames int            `json:"target_frames"`
	Selected     bool           `json:"selected"`
}

// State is a point-in-time snapshot of the whole workbench.
type State struct {
	InputDir    string     `json:"input_dir"`
	OutputDir   string     `json:"output_dir"`
	Files       []FileInfo `json:"files"`
	ListError   string     `json:"list_error,omitempty"`
	SelectedIdx int        `json:"selected_idx"`

	IsImage     bool    `json:"is_image"`
	MediaWidth  int     `json:"media_width"`
	MediaHeight int     `json:"media_height"`
	CurrentTime float64 `json:"current_time"`
	Duration    float64 `json:"duration"`
	NativeFPS   float64 `json:"native_fps"`
	FrameText   string  `json:"frame_text"`
	// Target16Frame is the frame index the current time maps to at the
	// 16 fps export rate.
	Target16Frame int    `json:"target_16fps_frame"`
	PlayMode      string `json:"play_mode"`

	Ranges      []RangeView `json:"ranges"`
	CurrentIdx  int         `json:"current_range_idx"`
	NoteFocused bool        `json:"note_focused"`

	TextureVersion uint64 `json:"texture_version"`

	Exporting       bool   `json:"exporting"`
	LastExportError string `json:"last_export_error,omitempty"`
}

// State assembles the snapshot served to the front-end.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := State{
		InputDir:      s.inputDir,
		OutputDir:     s.outputDir,
		Files:         append([]FileInfo(nil), s.files...),
		ListError:     s.listErr,
		SelectedIdx:   s.selected,
		IsImage:       s.isImage,
		CurrentTime:   s.player.CurrentTime(),
		Duration:      s.player.Duration(),
		NativeFPS:     s.player.NativeFPS(),
		FrameText:     strconv.Itoa(s.player.FrameNumber()),
		Target16Frame: int(s.player.CurrentTime() * export.TargetFPS),
		PlayMode:      s.player.Mode().String(),
		CurrentIdx:    s.annotations.CurrentIndex(),
		NoteFocused:   s.noteFocused,
		Exporting:     s.exporter.Exporting(),
	}
	st.LastExportError = s.exporter.LastError()

	if s.src != nil {
		st.MediaWidth, st.MediaHeight = s.src.IntrinsicSize()
	}
	if t := s.slot.Current(); t != nil {
		st.TextureVersion = t.Version
	}

	fps := s.player.NativeFPS()
	ranges := s.annotations.Ranges()
	st.Ranges = make([]RangeView, len(ranges))
	for i, r := range ranges {
		rv := RangeView{
			Index:    i,
			Start:    r.Start,
			End:      r.End,
			Note:     r.Note,
			Selected: i == st.CurrentIdx,
		}
		if r.Crop != nil {
			c := *r.Crop
			rv.Crop = &c
		}
		rv.StartFrame = int(r.Start * fps)
		rv.EndFrame = int(r.End * fps)
		span := r.End - r.Start
		if span > 0 {
			rv.TargetFrames = int(math.Ceil(span * export.TargetFPS))
		}
		st.Ranges[i] = rv
	}
	return st
}
