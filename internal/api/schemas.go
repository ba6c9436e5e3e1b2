package api

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	UptimeS int64  `json:"uptime_s"`
}

type StatusResponse struct {
	State       string `json:"state"`
	LastError   string `json:"last_error,omitempty"`
	FilesCount  int    `json:"files_count"`
	SelectedIdx int    `json:"selected_idx"`
	Exporting   bool   `json:"exporting"`
}

type SetDirRequest struct {
	Path string `json:"path"`
}

type SelectFileRequest struct {
	Index int `json:"index"`
}

type KeyRequest struct {
	Key string `json:"key"`
}

type NoteFocusRequest struct {
	Focused bool `json:"focused"`
}

// DragRequest carries one phase of a crop drag in available-area pixels.
// Phase is "start", "move" or "end".
type DragRequest struct {
	Phase  string  `json:"phase"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	AvailW float64 `json:"avail_w"`
	AvailH float64 `json:"avail_h"`
}

type SetTimeRequest struct {
	Seconds float64 `json:"seconds"`
}

type SetFrameRequest struct {
	Text string `json:"text"`
}

type SetNoteRequest struct {
	Note string `json:"note"`
}

type ExportResponse struct {
	Started bool `json:"started"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}
