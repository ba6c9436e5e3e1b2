package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/viddatatrain/traincrop/internal/session"
)

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))

	r.Get("/health", healthHandler(cfg))

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Store, cfg.Logger))

		r.Get("/status", statusHandler(cfg))
		r.Get("/session", getSessionHandler(cfg))
		r.Put("/session/input-dir", setInputDirHandler(cfg))
		r.Put("/session/output-dir", setOutputDirHandler(cfg))
		r.Post("/session/select", selectFileHandler(cfg))
		r.Post("/session/key", keyHandler(cfg))
		r.Post("/session/note-focus", noteFocusHandler(cfg))
		r.Post("/session/drag", dragHandler(cfg))
		r.Put("/session/time", setTimeHandler(cfg))
		r.Put("/session/frame-number", setFrameHandler(cfg))

		r.Post("/ranges", addRangeHandler(cfg))
		r.Delete("/ranges/{idx}", removeRangeHandler(cfg))
		r.Post("/ranges/{idx}/select", selectRangeHandler(cfg))
		r.Post("/ranges/current/start", setRangeStartHandler(cfg))
		r.Post("/ranges/current/end", setRangeEndHandler(cfg))
		r.Post("/ranges/current/play", playRangeHandler(cfg))
		r.Delete("/ranges/current/crop", clearCropHandler(cfg))
		r.Put("/ranges/current/note", setNoteHandler(cfg))

		r.Post("/export", exportHandler(cfg))
		r.Get("/frame", frameHandler(cfg))
	})

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uptime := int64(time.Since(cfg.StartTime).Seconds())
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			Version: cfg.Version,
			UptimeS: uptime,
		})
	}
}

func statusHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st := cfg.Session.State()

		state := "idle"
		if st.Exporting {
			state = "exporting"
		} else if st.LastExportError != "" {
			state = "error"
		}

		WriteJSON(w, http.StatusOK, StatusResponse{
			State:       state,
			LastError:   st.LastExportError,
			FilesCount:  len(st.Files),
			SelectedIdx: st.SelectedIdx,
			Exporting:   st.Exporting,
		})
	}
}

func getSessionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, cfg.Session.State())
	}
}

// writeState responds with the post-mutation session snapshot so the
// front-end can repaint without a second round-trip.
func writeState(w http.ResponseWriter, cfg ServerConfig) {
	WriteJSON(w, http.StatusOK, cfg.Session.State())
}

func setInputDirHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SetDirRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if req.Path == "" {
			WriteError(w, http.StatusBadRequest, "path is required", "BAD_REQUEST")
			return
		}

		cfg.Session.SetInputDir(r.Context(), req.Path)
		writeState(w, cfg)
	}
}

func setOutputDirHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SetDirRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if req.Path == "" {
			WriteError(w, http.StatusBadRequest, "path is required", "BAD_REQUEST")
			return
		}

		if err := cfg.Session.SetOutputDir(r.Context(), req.Path); err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}
		writeState(w, cfg)
	}
}

func selectFileHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SelectFileRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		cfg.Session.SelectFile(r.Context(), req.Index)
		writeState(w, cfg)
	}
}

func keyHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req KeyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		cfg.Session.HandleKey(r.Context(), req.Key)
		writeState(w, cfg)
	}
}

func noteFocusHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req NoteFocusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		cfg.Session.SetNoteFocus(req.Focused)
		writeState(w, cfg)
	}
}

func dragHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req DragRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		switch req.Phase {
		case "start":
			cfg.Session.DragStart(req.X, req.Y, req.AvailW, req.AvailH)
		case "move":
			cfg.Session.DragMove(req.X, req.Y, req.AvailW, req.AvailH)
		case "end":
			cfg.Session.DragEnd()
		default:
			WriteError(w, http.StatusBadRequest, "phase must be start, move or end", "BAD_REQUEST")
			return
		}
		writeState(w, cfg)
	}
}

func setTimeHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SetTimeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		cfg.Session.SetTime(r.Context(), req.Seconds)
		writeState(w, cfg)
	}
}

func setFrameHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SetFrameRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		cfg.Session.SetFrameText(r.Context(), req.Text)
		writeState(w, cfg)
	}
}

func addRangeHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfg.Session.AddRange()
		writeState(w, cfg)
	}
}

func rangeIndex(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "idx")
	idx, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid range index %q", raw)
	}
	return idx, nil
}

func removeRangeHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		idx, err := rangeIndex(r)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}

		cfg.Session.RemoveRange(idx)
		writeState(w, cfg)
	}
}

func selectRangeHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		idx, err := rangeIndex(r)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}

		cfg.Session.SelectRange(idx)
		writeState(w, cfg)
	}
}

func setRangeStartHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfg.Session.SetRangeStart()
		writeState(w, cfg)
	}
}

func setRangeEndHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfg.Session.SetRangeEnd()
		writeState(w, cfg)
	}
}

func playRangeHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfg.Session.PlayRange(r.Context())
		writeState(w, cfg)
	}
}

func clearCropHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfg.Session.ClearCrop()
		writeState(w, cfg)
	}
}

func setNoteHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SetNoteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		cfg.Session.SetNote(req.Note)
		writeState(w, cfg)
	}
}

func exportHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := cfg.Session.Export()
		switch {
		case err == nil:
			WriteJSON(w, http.StatusAccepted, ExportResponse{Started: true})
		case errors.Is(err, session.ErrExportRunning):
			WriteError(w, http.StatusConflict, err.Error(), "EXPORT_RUNNING")
		case errors.Is(err, session.ErrNoSelection), errors.Is(err, session.ErrNoOutputDir):
			WriteError(w, http.StatusPreconditionFailed, err.Error(), "PRECONDITION_FAILED")
		default:
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
		}
	}
}

// frameHandler serves the current frame as PNG. The texture version doubles
// as an ETag so a polling front-end only transfers changed frames.
func frameHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tex := cfg.Session.Texture()
		if tex == nil {
			WriteError(w, http.StatusNotFound, "no frame available", "NOT_FOUND")
			return
		}

		etag := fmt.Sprintf("%q", strconv.FormatUint(tex.Version, 10))
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("ETag", etag)
		w.Header().Set("Content-Length", strconv.Itoa(len(tex.PNG)))
		w.WriteHeader(http.StatusOK)
		w.Write(tex.PNG)
	}
}
