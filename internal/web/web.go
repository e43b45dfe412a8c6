// Package web serves the JSON API and the embedded list UI.
package web

import (
	"context"
	"crypto/subtle"
	"embed"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"evcount/internal/config"
	"evcount/internal/events"
	"evcount/internal/i18n"
	appLog "evcount/internal/log"
	"evcount/internal/notify"
	"evcount/internal/reminder"
	"evcount/internal/view"
)

// maxBodySize bounds JSON and import payloads.
const maxBodySize = 5 << 20

//go:embed all:static
var embeddedStatic embed.FS

// ReminderLister exposes the armed reminders.
type ReminderLister interface {
	Armed() []reminder.Armed
}

// Deps are the collaborators a Server needs.
type Deps struct {
	Config    *config.Config
	Events    *events.Manager
	Sort      *view.SortSetting
	Gate      *notify.Gate
	Reminders ReminderLister
	Phrases   i18n.Phrases

	// PreviewPath is the capture output served at /preview.png.
	PreviewPath string
	// OnPermissionChange runs after the permission is set through the API.
	OnPermissionChange func()
	// Now defaults to time.Now.
	Now func() time.Time
}

// Server provides the HTTP API and static UI.
type Server struct {
	Deps
	mux   *http.ServeMux
	shell *shellCache
}

func NewServer(d Deps) *Server {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Config == nil {
		d.Config = config.DefaultConfig()
	}
	s := &Server{
		Deps:  d,
		mux:   http.NewServeMux(),
		shell: newShellCache(embeddedStatic, "static", shellURLs),
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.Config.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

func (s *Server) basicAuthEnabled() bool {
	if s.Config.BasicAuth == nil {
		return false
	}
	return s.Config.BasicAuth.Username != "" && s.Config.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.Config.BasicAuth.Username
	password := s.Config.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}
		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="evcount", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// ListenAndServe runs the server until ctx is cancelled, then shuts it down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.Config.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.Config.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)

	s.mux.HandleFunc("GET /api/events", s.handleListEvents)
	s.mux.HandleFunc("POST /api/events", s.handleCreateEvent)
	s.mux.HandleFunc("GET /api/events/{id}", s.handleGetEvent)
	s.mux.HandleFunc("PUT /api/events/{id}", s.handleUpdateEvent)
	s.mux.HandleFunc("DELETE /api/events/{id}", s.handleDeleteEvent)

	s.mux.HandleFunc("GET /api/categories", s.handleListCategories)
	s.mux.HandleFunc("POST /api/categories", s.handleAddCategory)
	s.mux.HandleFunc("DELETE /api/categories/{name}", s.handleDeleteCategory)

	s.mux.HandleFunc("GET /api/settings/sort", s.handleGetSort)
	s.mux.HandleFunc("PUT /api/settings/sort", s.handlePutSort)

	s.mux.HandleFunc("GET /api/notifications/permission", s.handleGetPermission)
	s.mux.HandleFunc("PUT /api/notifications/permission", s.handlePutPermission)
	s.mux.HandleFunc("GET /api/reminders", s.handleReminders)

	s.mux.HandleFunc("GET /api/export", s.handleExportJSON)
	s.mux.HandleFunc("GET /api/export.ics", s.handleExportICS)
	s.mux.HandleFunc("POST /api/import", s.handleStageImport)
	s.mux.HandleFunc("POST /api/import/{token}/confirm", s.handleConfirmImport)
	s.mux.HandleFunc("DELETE /api/import/{token}", s.handleDiscardImport)

	s.mux.HandleFunc("POST /api/holidays", s.handleHolidays)

	s.mux.HandleFunc("GET /preview.png", s.handlePreview)
	s.mux.Handle("GET /", s.staticHandler())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handlePreview serves the last captured PNG.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	if s.PreviewPath == "" {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, s.PreviewPath)
}

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}

// writeDomainError maps manager errors onto status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, events.ErrInvalidEvent), errors.Is(err, events.ErrInvalidImport):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, events.ErrNotFound), errors.Is(err, events.ErrUnknownCategory),
		errors.Is(err, events.ErrNoStagedImport):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, events.ErrProtectedCategory):
		writeError(w, http.StatusConflict, err.Error())
	default:
		appLog.Error("request failed", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
