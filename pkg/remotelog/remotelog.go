// Package remotelog serves the two endpoints browser clients use for
// remote logging: a flag telling them whether to ship logs, and a sink that
// writes shipped lines to the server log.
package remotelog

import (
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/tendant/loginapp/pkg/errors"
	"github.com/tendant/loginapp/pkg/utils"
)

// maxMessageLen caps a single client log line.
const maxMessageLen = 4096

type FlagResponse struct {
	RemoteLog bool `json:"remote_log"`
}

// Entry is one client log line.
type Entry struct {
	Level   string `json:"level"`
	Message string `json:"message"`
	Source  string `json:"source,omitempty"`
}

type Handle struct {
	enabled bool
	logger  *slog.Logger
}

func NewHandle(enabled bool, logger *slog.Logger) *Handle {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handle{enabled: enabled, logger: logger.With("component", "client")}
}

// (GET /getremotelog)
func (h *Handle) GetRemoteLog(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, FlagResponse{RemoteLog: h.enabled})
}

// PostLog writes a client log line. Lines are dropped when remote logging
// is disabled.
// (POST /log)
func (h *Handle) PostLog(w http.ResponseWriter, r *http.Request) {
	if !h.enabled {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	var entry Entry
	if err := render.DecodeJSON(r.Body, &entry); err != nil {
		slog.Error("Failed decoding client log entry", "err", err)
		renderError(w, r, errors.InvalidInput("body", "expected a JSON log entry"))
		return
	}
	if strings.TrimSpace(entry.Message) == "" {
		renderError(w, r, errors.InvalidInput("message", "must not be empty"))
		return
	}
	entry.Message = truncate(entry.Message, maxMessageLen)

	h.logger.Log(r.Context(), ParseLevel(entry.Level), entry.Message,
		"source", entry.Source,
		"ip", utils.ClientIP(r),
	)
	w.WriteHeader(http.StatusNoContent)
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// ParseLevel maps a client level name to a slog level. Unknown names log
// at info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func renderError(w http.ResponseWriter, r *http.Request, err error) {
	code := errors.GetCode(err)
	render.Status(r, errors.MapErrorCodeToHTTPStatus(code))
	render.JSON(w, r, map[string]string{"code": string(code), "message": err.Error()})
}

func Routes(r chi.Router, h *Handle) {
	r.Get("/getremotelog", h.GetRemoteLog)
	r.Post("/log", h.PostLog)
}
