// Package ui provides the system tray presence: export status at a glance
// and a quit entry.
package ui

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/getlantern/systray"

	"github.com/viddatatrain/traincrop/internal/session"
)

type Tray struct {
	session *session.Session
	logger  *slog.Logger

	statusItem *systray.MenuItem
	fileItem   *systray.MenuItem
	errorItem  *systray.MenuItem

	mu sync.Mutex

	onQuit func()
	stop   chan struct{}
}

type TrayConfig struct {
	Session *session.Session
	Logger  *slog.Logger
	OnQuit  func()
}

func NewTray(cfg TrayConfig) *Tray {
	return &Tray{
		session: cfg.Session,
		logger:  cfg.Logger,
		onQuit:  cfg.OnQuit,
		stop:    make(chan struct{}),
	}
}

func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

func (t *Tray) onReady() {
	systray.SetIcon(iconBytes)
	systray.SetTitle("VidDataTrainCrop")
	systray.SetTooltip("VidDataTrainCrop")

	t.statusItem = systray.AddMenuItem("Status: Idle", "Current export status")
	t.statusItem.Disable()

	t.fileItem = systray.AddMenuItem("No file loaded", "Selected media file")
	t.fileItem.Disable()

	t.errorItem = systray.AddMenuItem("", "Last export error")
	t.errorItem.Disable()
	t.errorItem.Hide()

	systray.AddSeparator()

	quitItem := systray.AddMenuItem("Quit", "Quit VidDataTrainCrop")

	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				t.refresh()
			case <-quitItem.ClickedCh:
				t.logger.Info("quit requested from tray")
				if t.onQuit != nil {
					t.onQuit()
				}
				systray.Quit()
				return
			case <-t.stop:
				systray.Quit()
				return
			}
		}
	}()

	t.logger.Info("system tray ready")
}

func (t *Tray) onExit() {
	t.logger.Info("system tray exiting")
}

// refresh mirrors the session's export state into the menu.
func (t *Tray) refresh() {
	t.mu.Lock()
	defer t.mu.Unlock()

	st := t.session.State()

	if st.Exporting {
		t.statusItem.SetTitle("Status: Exporting")
	} else {
		t.statusItem.SetTitle("Status: Idle")
	}

	if st.SelectedIdx >= 0 && st.SelectedIdx < len(st.Files) {
		t.fileItem.SetTitle(st.Files[st.SelectedIdx].Name)
	} else {
		t.fileItem.SetTitle("No file loaded")
	}

	if st.LastExportError != "" {
		t.errorItem.SetTitle(fmt.Sprintf("Error: %s", st.LastExportError))
		t.errorItem.Show()
	} else {
		t.errorItem.Hide()
	}
}

func (t *Tray) Quit() {
	close(t.stop)
}
