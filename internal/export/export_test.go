package export

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/viddatatrain/traincrop/internal/annotate"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBuildArgs_VideoNoCrop(t *testing.T) {
	snap := Snapshot{InputPath: "clip.mp4", Width: 1920, Height: 1080}
	rg := annotate.Range{Start: 0, End: 5}

	got := BuildArgs(snap, rg, "out/clip.mp4")
	want := []string{
		"-y", "-ss", "0", "-to", "5", "-i", "clip.mp4",
		"-vf", "fps=16",
		"-c:v", "libx264", "-preset", "ultrafast",
		"out/clip.mp4",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("BuildArgs = %v, want %v", got, want)
	}
}

func TestBuildArgs_VideoWithCrop(t *testing.T) {
	snap := Snapshot{InputPath: "clip.mp4", Width: 1920, Height: 1080}
	rg := annotate.Range{
		Start: 1.5,
		End:   4,
		Crop:  &annotate.Rect{MinX: 0.25, MinY: 0.10, MaxX: 0.75, MaxY: 0.90},
	}

	got := BuildArgs(snap, rg, "out/clip.mp4")
	want := []string{
		"-y", "-ss", "1.5", "-to", "4", "-i", "clip.mp4",
		"-vf", "fps=16,crop=960:864:480:108",
		"-c:v", "libx264", "-preset", "ultrafast",
		"out/clip.mp4",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("BuildArgs = %v, want %v", got, want)
	}
}

func TestBuildArgs_Image(t *testing.T) {
	snap := Snapshot{InputPath: "pic.png", IsImage: true, Width: 800, Height: 600}
	rg := annotate.Range{Crop: &annotate.Rect{MinX: 0, MinY: 0, MaxX: 0.5, MaxY: 0.5}}

	got := BuildArgs(snap, rg, "out/pic.png")
	want := []string{"-y", "-i", "pic.png", "-vf", "crop=400:300:0:0", "out/pic.png"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("BuildArgs = %v, want %v", got, want)
	}
}

func TestBuildArgs_ImageNoCropHasNoFilter(t *testing.T) {
	snap := Snapshot{InputPath: "pic.jpg", IsImage: true, Width: 800, Height: 600}
	got := BuildArgs(snap, annotate.Range{}, "out/pic.jpg")
	want := []string{"-y", "-i", "pic.jpg", "out/pic.jpg"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("BuildArgs = %v, want %v", got, want)
	}
}

func TestPixelCrop(t *testing.T) {
	tests := []struct {
		name           string
		crop           annotate.Rect
		w, h           int
		cw, ch, cx, cy int
	}{
		{
			name: "even result",
			crop: annotate.Rect{MinX: 0.25, MinY: 0.10, MaxX: 0.75, MaxY: 0.90},
			w:    1920, h: 1080,
			cw: 960, ch: 864, cx: 480, cy: 108,
		},
		{
			name: "odd width rounds down to even",
			crop: annotate.Rect{MinX: 0, MinY: 0, MaxX: 1, MaxY: 1},
			w:    1281, h: 720,
			cw: 1280, ch: 720, cx: 0, cy: 0,
		},
		{
			name: "half image",
			crop: annotate.Rect{MinX: 0, MinY: 0, MaxX: 0.5, MaxY: 0.5},
			w:    800, h: 600,
			cw: 400, ch: 300, cx: 0, cy: 0,
		},
		{
			name: "swapped corners still positive",
			crop: annotate.Rect{MinX: 0.75, MinY: 0.90, MaxX: 0.25, MaxY: 0.10},
			w:    1920, h: 1080,
			cw: 960, ch: 864, cx: 480, cy: 108,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cw, ch, cx, cy := PixelCrop(tt.crop, tt.w, tt.h)
			if cw != tt.cw || ch != tt.ch || cx != tt.cx || cy != tt.cy {
				t.Errorf("PixelCrop = %d:%d:%d:%d, want %d:%d:%d:%d",
					cw, ch, cx, cy, tt.cw, tt.ch, tt.cx, tt.cy)
			}
			if cw%2 != 0 || ch%2 != 0 {
				t.Errorf("crop dimensions %dx%d not even", cw, ch)
			}
		})
	}
}

func TestOutBase(t *testing.T) {
	if got := OutBase("out", "clip", 0, 1); got != filepath.Join("out", "clip") {
		t.Errorf("single range OutBase = %q", got)
	}
	if got := OutBase("out", "clip", 1, 3); got != filepath.Join("out", "clip_range1") {
		t.Errorf("multi range OutBase = %q", got)
	}
}

func TestOutputExt(t *testing.T) {
	if got := OutputExt(Snapshot{InputPath: "a/b/clip.MKV"}); got != "mp4" {
		t.Errorf("video ext = %q, want mp4", got)
	}
	if got := OutputExt(Snapshot{InputPath: "a/b/pic.PNG", IsImage: true}); got != "png" {
		t.Errorf("image ext = %q, want png", got)
	}
}

// fakeFFmpeg writes a script that logs its argv, one invocation per line,
// and exits non-zero when the output path matches failOn.
func fakeFFmpeg(t *testing.T, failOn string) (bin, logPath string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake transcoder script requires a POSIX shell")
	}
	dir := t.TempDir()
	bin = filepath.Join(dir, "ffmpeg")
	logPath = filepath.Join(dir, "invocations.log")

	script := "#!/bin/sh\necho \"$@\" >> " + logPath + "\n"
	if failOn != "" {
		script += "case \"$*\" in *" + failOn + "*) exit 3;; esac\n"
	}
	script += "exit 0\n"

	if err := os.WriteFile(bin, []byte(script), 0755); err != nil {
		t.Fatalf("write fake ffmpeg: %v", err)
	}
	return bin, logPath
}

func waitForIdle(t *testing.T, r *Runner) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for r.Exporting() {
		if time.Now().After(deadline) {
			t.Fatal("export worker did not finish")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func invocations(t *testing.T, logPath string) []string {
	t.Helper()
	data, err := os.ReadFile(logPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		t.Fatalf("read invocation log: %v", err)
	}
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

func TestRunner_SingleRangeNamingAndSidecar(t *testing.T) {
	bin, logPath := fakeFFmpeg(t, "")
	outDir := t.TempDir()

	r := NewRunner(bin, testLogger())
	ok := r.Start(Snapshot{
		InputPath: "/media/foo.mp4",
		OutputDir: outDir,
		Width:     1920,
		Height:    1080,
		Ranges:    []annotate.Range{{Start: 0, End: 5, Note: "abc"}},
	})
	if !ok {
		t.Fatal("Start returned false on idle runner")
	}
	waitForIdle(t, r)

	if r.LastError() != "" {
		t.Fatalf("LastError() = %q, want empty", r.LastError())
	}

	calls := invocations(t, logPath)
	if len(calls) != 1 {
		t.Fatalf("ffmpeg invoked %d times, want 1", len(calls))
	}
	wantOut := filepath.Join(outDir, "foo.mp4")
	if !strings.HasSuffix(calls[0], wantOut) {
		t.Errorf("invocation %q does not end with %q", calls[0], wantOut)
	}
	if strings.Contains(calls[0], "_range") {
		t.Errorf("single range invocation %q carries a _range suffix", calls[0])
	}

	note, err := os.ReadFile(filepath.Join(outDir, "foo.txt"))
	if err != nil {
		t.Fatalf("sidecar not written: %v", err)
	}
	if string(note) != "abc" {
		t.Errorf("sidecar = %q, want %q", note, "abc")
	}
}

func TestRunner_EmptyNoteWritesNoSidecar(t *testing.T) {
	bin, _ := fakeFFmpeg(t, "")
	outDir := t.TempDir()

	r := NewRunner(bin, testLogger())
	r.Start(Snapshot{
		InputPath: "/media/clip.mp4",
		OutputDir: outDir,
		Width:     1920, Height: 1080,
		Ranges: []annotate.Range{{Start: 0, End: 5}},
	})
	waitForIdle(t, r)

	if _, err := os.Stat(filepath.Join(outDir, "clip.txt")); !os.IsNotExist(err) {
		t.Error("sidecar written for empty note")
	}
}

func TestRunner_FailFastRecordsRangeIndex(t *testing.T) {
	bin, logPath := fakeFFmpeg(t, "_range1")
	outDir := t.TempDir()

	r := NewRunner(bin, testLogger())
	r.Start(Snapshot{
		InputPath: "/media/clip.mp4",
		OutputDir: outDir,
		Width:     1920, Height: 1080,
		Ranges: []annotate.Range{
			{Start: 0, End: 1},
			{Start: 2, End: 3},
			{Start: 4, End: 5},
		},
	})
	waitForIdle(t, r)

	calls := invocations(t, logPath)
	if len(calls) != 2 {
		t.Fatalf("ffmpeg invoked %d times, want 2 (third range must not be attempted)", len(calls))
	}

	errMsg := r.LastError()
	if !strings.Contains(errMsg, "range 1") {
		t.Errorf("LastError() = %q, want mention of range 1", errMsg)
	}
	if !strings.Contains(errMsg, "exit code 3") {
		t.Errorf("LastError() = %q, want exit code 3", errMsg)
	}
	if r.Exporting() {
		t.Error("exporting gate still held after failure")
	}
}

func TestRunner_SpawnFailure(t *testing.T) {
	r := NewRunner(filepath.Join(t.TempDir(), "missing-ffmpeg"), testLogger())
	r.Start(Snapshot{
		InputPath: "/media/clip.mp4",
		OutputDir: t.TempDir(),
		Width:     1920, Height: 1080,
		Ranges: []annotate.Range{{Start: 0, End: 1}},
	})
	waitForIdle(t, r)

	if !strings.Contains(r.LastError(), "failed to start ffmpeg") {
		t.Errorf("LastError() = %q, want spawn failure message", r.LastError())
	}
}

func TestRunner_GateRejectsConcurrentStart(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("fake transcoder script requires a POSIX shell")
	}
	dir := t.TempDir()
	bin := filepath.Join(dir, "ffmpeg")
	// Block long enough for the second Start to observe the gate.
	if err := os.WriteFile(bin, []byte("#!/bin/sh\nsleep 0.4\nexit 0\n"), 0755); err != nil {
		t.Fatalf("write fake ffmpeg: %v", err)
	}

	r := NewRunner(bin, testLogger())
	snap := Snapshot{
		InputPath: "/media/clip.mp4",
		OutputDir: t.TempDir(),
		Width:     1920, Height: 1080,
		Ranges: []annotate.Range{{Start: 0, End: 1}},
	}

	if !r.Start(snap) {
		t.Fatal("first Start returned false")
	}
	if r.Start(snap) {
		t.Error("second Start succeeded while a worker is alive")
	}
	if !r.Exporting() {
		t.Error("Exporting() = false while worker is alive")
	}
	waitForIdle(t, r)

	if !r.Start(snap) {
		t.Error("Start returned false after previous worker exited")
	}
	waitForIdle(t, r)
}

func TestRunner_MultiRangeNaming(t *testing.T) {
	bin, logPath := fakeFFmpeg(t, "")
	outDir := t.TempDir()

	r := NewRunner(bin, testLogger())
	r.Start(Snapshot{
		InputPath: "/media/clip.mp4",
		OutputDir: outDir,
		Width:     1281, Height: 720,
		Ranges: []annotate.Range{
			{Start: 0, End: 1},
			{Start: 2, End: 3, Crop: &annotate.Rect{MinX: 0, MinY: 0, MaxX: 1, MaxY: 1}},
		},
	})
	waitForIdle(t, r)

	calls := invocations(t, logPath)
	if len(calls) != 2 {
		t.Fatalf("ffmpeg invoked %d times, want 2", len(calls))
	}
	if !strings.HasSuffix(calls[0], filepath.Join(outDir, "clip_range0.mp4")) {
		t.Errorf("first invocation %q lacks clip_range0.mp4", calls[0])
	}
	if !strings.HasSuffix(calls[1], filepath.Join(outDir, "clip_range1.mp4")) {
		t.Errorf("second invocation %q lacks clip_range1.mp4", calls[1])
	}
	// Odd 1281-wide intrinsic frame must crop to even 1280.
	if !strings.Contains(calls[1], "crop=1280:720:0:0") {
		t.Errorf("second invocation %q lacks even-rounded crop", calls[1])
	}
}

func TestValidateOutputDir(t *testing.T) {
	dir := t.TempDir()

	if err := ValidateOutputDir(dir); err != nil {
		t.Errorf("valid dir rejected: %v", err)
	}
	if err := ValidateOutputDir(""); err == nil {
		t.Error("empty dir accepted")
	}
	if err := ValidateOutputDir(filepath.Join(dir, "..", "x")); err == nil {
		t.Error("traversal accepted")
	}
	if err := ValidateOutputDir(filepath.Join(dir, "missing")); err == nil {
		t.Error("nonexistent dir accepted")
	}

	file := filepath.Join(dir, "f.txt")
	os.WriteFile(file, []byte("x"), 0644)
	if err := ValidateOutputDir(file); err == nil {
		t.Error("plain file accepted as dir")
	}
}
