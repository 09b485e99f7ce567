// Package server provides the local HTTP control API used by profile
// editors.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"github.com/HopIT-Hub/macrokey/internal/app"
	"github.com/HopIT-Hub/macrokey/internal/autostart"
	"github.com/HopIT-Hub/macrokey/internal/config"
	"github.com/HopIT-Hub/macrokey/internal/logging"
)

// Server serves the control API on localhost.
type Server struct {
	httpServer *http.Server
	listener   net.Listener
	app        *app.App
	settings   *config.Settings
	version    string
	log        *log.Logger

	// DeviceState reports the injection target state for /status.
	DeviceState func() string
	// SetAutoStart registers or removes start on login.
	SetAutoStart func(enabled bool) error
}

// New creates a control server.
func New(a *app.App, settings *config.Settings, version string) *Server {
	return &Server{
		app:      a,
		settings: settings,
		version:  version,
		log:      logging.For("server"),
		SetAutoStart: func(enabled bool) error {
			return autostart.Set(enabled, "run")
		},
	}
}

// Handler returns the API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /settings", s.handleSettings)
	mux.HandleFunc("GET /actions", s.handleActions)
	mux.HandleFunc("GET /keys/{id}", s.handleKey)

	mux.HandleFunc("POST /script", s.handleScript)
	mux.HandleFunc("POST /tray", s.handleTray)
	mux.HandleFunc("POST /autostart", s.handleAutoStart)

	mux.HandleFunc("GET /profiles", s.handleGetProfiles)
	mux.HandleFunc("PUT /profiles", s.handlePutProfiles)
	mux.HandleFunc("POST /profiles", s.handleAddProfile)
	mux.HandleFunc("POST /profiles/save", s.handleSave)
	mux.HandleFunc("POST /profiles/{id}/activate", s.handleActivateProfile)
	mux.HandleFunc("POST /subprofiles/{id}/activate", s.handleActivateSubProfile)
	mux.HandleFunc("POST /subprofiles/{id}/commit", s.handleCommit)

	mux.HandleFunc("GET /live", s.handleLive)
	mux.HandleFunc("POST /live/bindings", s.handleAddBinding)
	mux.HandleFunc("PUT /live/bindings/{index}", s.handleUpdateBinding)
	mux.HandleFunc("DELETE /live/bindings/{index}", s.handleRemoveBinding)
	mux.HandleFunc("POST /live/bindings/{index}/test", s.handleTestBinding)

	return mux
}

// Start begins serving on addr, a random localhost port when addr is empty.
// Returns the URL of the API.
func (s *Server) Start(addr string) (string, error) {
	if addr == "" {
		addr = "127.0.0.1:0"
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("listen: %w", err)
	}
	s.listener = ln

	s.httpServer = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("serve", "err", err)
		}
	}()

	url := s.URL()
	s.log.Info("control API available", "url", url)
	return url, nil
}

// Run starts the server and stops it when ctx is done.
func (s *Server) Run(ctx context.Context, addr string) error {
	if _, err := s.Start(addr); err != nil {
		return err
	}
	<-ctx.Done()
	s.Stop()
	return nil
}

// Stop shuts down the HTTP server.
func (s *Server) Stop() {
	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = s.httpServer.Shutdown(ctx)
	}
}

// URL returns the server's URL, or empty string if not started.
func (s *Server) URL() string {
	if s.listener == nil {
		return ""
	}
	return fmt.Sprintf("http://%s", s.listener.Addr().String())
}
