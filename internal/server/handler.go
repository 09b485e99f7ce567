package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/HopIT-Hub/macrokey/internal/action"
	"github.com/HopIT-Hub/macrokey/internal/app"
	"github.com/HopIT-Hub/macrokey/internal/errdef"
	"github.com/HopIT-Hub/macrokey/internal/keycombo"
	"github.com/HopIT-Hub/macrokey/internal/profile"
)

// maxBody caps request bodies; a full profile document is well below it.
const maxBody = 4 << 20

// statusResponse is the JSON response for GET /status.
type statusResponse struct {
	profile.Notification
	Device    string `json:"device,omitempty"`
	Version   string `json:"version"`
	AutoStart bool   `json:"auto_start"`
	// Held is set while the profile file is left unwritten after it failed
	// to load.
	Held bool `json:"profile_file_held,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		Notification: s.app.Snapshot(),
		Version:      s.version,
		AutoStart:    s.settings.GetAutoStart(),
		Held:         s.app.Held(),
	}
	if s.DeviceState != nil {
		resp.Device = s.DeviceState()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	data, err := s.settings.JSON()
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

func (s *Server) handleActions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, action.Catalog())
}

// handleKey canonicalises an identifier, as editors do when recording keys.
func (s *Server) handleKey(w http.ResponseWriter, r *http.Request) {
	c, err := keycombo.Parse(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": c.String(), "mouse": c.Mouse()})
}

type toggleRequest struct {
	Enabled bool `json:"enabled"`
}

func (s *Server) handleScript(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if !s.decode(w, r, &req) {
		return
	}
	s.app.SetScriptActive(req.Enabled)
	writeJSON(w, http.StatusOK, s.app.Snapshot())
}

func (s *Server) handleTray(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if !s.decode(w, r, &req) {
		return
	}
	s.app.SetTrayVisible(req.Enabled)
	writeJSON(w, http.StatusOK, s.app.Snapshot())
}

type autoStartResponse struct {
	AutoStart bool `json:"auto_start"`
}

func (s *Server) handleAutoStart(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.SetAutoStart(req.Enabled); err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.settings.SetAutoStart(req.Enabled); err != nil {
		s.writeError(w, err)
		return
	}
	s.log.Info("auto-start", "enabled", req.Enabled)
	writeJSON(w, http.StatusOK, autoStartResponse{AutoStart: req.Enabled})
}

func (s *Server) handleGetProfiles(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.app.Export())
}

// handlePutProfiles replaces the whole document.
func (s *Server) handlePutProfiles(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
	if err != nil {
		s.writeError(w, errdef.Wrap(errdef.CodeValidation, err, "read body"))
		return
	}
	if err := s.app.ReplaceConfig(r.Context(), data); err != nil && !applied(err) {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.app.Export())
}

// handleSave writes the profile document, overwriting a file that failed
// to load.
func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	if err := s.app.Save(); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.app.Snapshot())
}

type addProfileRequest struct {
	Title string `json:"title"`
}

type idResponse struct {
	ID int `json:"id"`
}

func (s *Server) handleAddProfile(w http.ResponseWriter, r *http.Request) {
	var req addProfileRequest
	if !s.decode(w, r, &req) {
		return
	}
	id, err := s.app.AddMainProfile(req.Title)
	if err != nil && !applied(err) {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, idResponse{ID: id})
}

func (s *Server) handleActivateProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathInt(w, r, "id")
	if !ok {
		return
	}
	s.respond(w, s.app.ActivateMainProfile(r.Context(), id))
}

func (s *Server) handleActivateSubProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathInt(w, r, "id")
	if !ok {
		return
	}
	s.respond(w, s.app.ActivateSubProfile(r.Context(), id))
}

func (s *Server) handleCommit(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathInt(w, r, "id")
	if !ok {
		return
	}
	s.respond(w, s.app.CommitLive(id))
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, profile.ExportSubProfile(s.app.Live()))
}

func (s *Server) handleAddBinding(w http.ResponseWriter, r *http.Request) {
	var req profile.BindingFile
	if !s.decode(w, r, &req) {
		return
	}
	i, err := s.app.AddBinding(r.Context(), req.Binding())
	if err != nil && !applied(err) {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, idResponse{ID: i})
}

func (s *Server) handleUpdateBinding(w http.ResponseWriter, r *http.Request) {
	i, ok := s.pathInt(w, r, "index")
	if !ok {
		return
	}
	var req profile.BindingFile
	if !s.decode(w, r, &req) {
		return
	}
	s.respond(w, s.app.UpdateBinding(r.Context(), i, req.Binding()))
}

func (s *Server) handleRemoveBinding(w http.ResponseWriter, r *http.Request) {
	i, ok := s.pathInt(w, r, "index")
	if !ok {
		return
	}
	s.respond(w, s.app.RemoveBinding(r.Context(), i))
}

// handleTestBinding runs a binding once and waits for it to finish.
func (s *Server) handleTestBinding(w http.ResponseWriter, r *http.Request) {
	i, ok := s.pathInt(w, r, "index")
	if !ok {
		return
	}
	if err := s.app.TestBinding(r.Context(), i); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// applied reports whether a state change went through despite err.
func applied(err error) bool {
	var ae *app.ApplyError
	return errors.As(err, &ae)
}

// respond writes the notification after a state change, or the error when
// the change was rejected.
func (s *Server) respond(w http.ResponseWriter, err error) {
	if err != nil && !applied(err) {
		s.writeError(w, err)
		return
	}
	if err != nil {
		s.log.Warn("state changed with problems", "err", err)
	}
	writeJSON(w, http.StatusOK, s.app.Snapshot())
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(v); err != nil {
		s.writeError(w, errdef.Wrap(errdef.CodeValidation, err, "invalid JSON"))
		return false
	}
	return true
}

func (s *Server) pathInt(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	n, err := strconv.Atoi(r.PathValue(name))
	if err != nil {
		s.writeError(w, errdef.Wrap(errdef.CodeValidation, err, "bad %s", name))
		return 0, false
	}
	return n, true
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := errdef.CodeOf(err)
	status := http.StatusInternalServerError
	switch code {
	case errdef.CodeValidation:
		status = http.StatusBadRequest
	case errdef.CodeNotFound:
		status = http.StatusNotFound
	case errdef.CodeExternal:
		status = http.StatusBadGateway
	}
	if status == http.StatusInternalServerError {
		s.log.Error("request failed", "err", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), Code: string(code)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
