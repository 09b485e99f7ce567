package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/HopIT-Hub/macrokey/internal/action"
	"github.com/HopIT-Hub/macrokey/internal/action/mocks"
	"github.com/HopIT-Hub/macrokey/internal/app"
	"github.com/HopIT-Hub/macrokey/internal/config"
	"github.com/HopIT-Hub/macrokey/internal/dispatch"
	"github.com/HopIT-Hub/macrokey/internal/profile"
)

type fixture struct {
	srv       *httptest.Server
	app       *app.App
	inj       *mocks.MockInjector
	autoStart []bool
}

func setup(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	settings := config.DefaultSettings(filepath.Join(dir, "settings.json"))

	inj := mocks.NewMockInjector(t)
	store := profile.NewStore(nil)
	p := dispatch.New(store, nil, inj)
	t.Cleanup(p.Close)
	a := app.New(store, p, config.FileStore{Path: filepath.Join(dir, "profiles.json")})
	require.NoError(t, a.Load(context.Background()))

	f := &fixture{app: a, inj: inj}
	s := New(a, settings, "1.2.3")
	s.DeviceState = func() string { return "connected" }
	s.SetAutoStart = func(enabled bool) error {
		f.autoStart = append(f.autoStart, enabled)
		return nil
	}
	f.srv = httptest.NewServer(s.Handler())
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req, err := http.NewRequest(method, f.srv.URL+path, &buf)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	if resp.StatusCode != http.StatusNoContent {
		_ = json.NewDecoder(resp.Body).Decode(&out)
	}
	return resp, out
}

func TestStatus(t *testing.T) {
	f := setup(t)
	resp, out := f.do(t, http.MethodGet, "/status", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "1.2.3", out["version"])
	assert.Equal(t, "connected", out["device"])
	assert.Equal(t, false, out["scriptActive"])
	assert.Equal(t, true, out["trayVisible"])
	assert.Equal(t, float64(0), out["activeSubProfile"])
}

func TestScriptAndTrayToggles(t *testing.T) {
	f := setup(t)
	resp, out := f.do(t, http.MethodPost, "/script", toggleRequest{Enabled: true})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, out["scriptActive"])

	_, out = f.do(t, http.MethodPost, "/tray", toggleRequest{Enabled: false})
	assert.Equal(t, false, out["trayVisible"])

	resp, out = f.do(t, http.MethodPost, "/script", "{")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "validation", out["code"])
}

func TestAutoStart(t *testing.T) {
	f := setup(t)
	resp, out := f.do(t, http.MethodPost, "/autostart", toggleRequest{Enabled: true})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, out["auto_start"])
	assert.Equal(t, []bool{true}, f.autoStart)
}

func TestBindingLifecycle(t *testing.T) {
	f := setup(t)
	id := int(action.KindEnterText)
	body := profile.BindingFile{
		Name:      "greet",
		KeyActive: "Shift_Alt_KeyG",
		Action: profile.ActionFile{ID: &id, Params: []action.Parameter{
			{Name: "Text", Key: action.KeyText, Type: action.TypeText, Value: action.Text("hello")},
		}},
	}

	resp, out := f.do(t, http.MethodPost, "/live/bindings", body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, float64(0), out["id"])

	_, out = f.do(t, http.MethodGet, "/live", nil)
	acts := out["keybdActions"].([]any)
	require.Len(t, acts, 1)
	assert.Equal(t, "Alt_Shift_KeyG", acts[0].(map[string]any)["keyActive"])

	f.app.SetScriptActive(true)
	f.inj.On("Text", mock.Anything, "hello").Return(nil).Once()
	resp, _ = f.do(t, http.MethodPost, "/live/bindings/0/test", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	body.KeyActive = "Hyper_KeyG"
	resp, _ = f.do(t, http.MethodPut, "/live/bindings/0", body)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = f.do(t, http.MethodDelete, "/live/bindings/5", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = f.do(t, http.MethodDelete, "/live/bindings/x", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp, _ = f.do(t, http.MethodDelete, "/live/bindings/0", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, f.app.Live().Bindings)
}

func TestProfiles(t *testing.T) {
	f := setup(t)

	resp, out := f.do(t, http.MethodPost, "/profiles", addProfileRequest{Title: "Work"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, float64(1), out["id"])

	resp, _ = f.do(t, http.MethodPost, "/profiles/1/activate", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, out = f.do(t, http.MethodPost, "/subprofiles/6/activate", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(6), out["activeSubProfile"])
	assert.Equal(t, "variant6", out["main"].(map[string]any)["title"])

	resp, _ = f.do(t, http.MethodPost, "/subprofiles/12/activate", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = f.do(t, http.MethodPost, "/subprofiles/3/commit", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	_, out = f.do(t, http.MethodGet, "/profiles", nil)
	assert.Equal(t, float64(1), out["activeMainProfile"])
	assert.Len(t, out["mainProfiles"], 2)
}

func TestReplaceProfiles(t *testing.T) {
	f := setup(t)
	doc := `{"activeMainProfile":0,"mainProfiles":[{"activeSubProfile":1,"title":"Imported","id":0,
		"main":{"title":"variant1","id":1,"keybdActions":[]},"subVariants":[]}]}`

	resp, out := f.do(t, http.MethodPut, "/profiles", doc)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	mps := out["mainProfiles"].([]any)
	assert.Equal(t, "Imported", mps[0].(map[string]any)["title"])
	assert.Len(t, mps[0].(map[string]any)["subVariants"], profile.SubProfileCount)

	resp, _ = f.do(t, http.MethodPut, "/profiles", "nope")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, 1, f.app.Snapshot().ActiveSubProfile)
}

func TestCatalogAndKeys(t *testing.T) {
	f := setup(t)

	resp, err := http.Get(f.srv.URL + "/actions")
	require.NoError(t, err)
	defer resp.Body.Close()
	var defs []action.Definition
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&defs))
	assert.Len(t, defs, 4)

	_, out := f.do(t, http.MethodGet, "/keys/Shift_Control_LeftButton", nil)
	assert.Equal(t, "Control_Shift_LeftButton", out["id"])
	assert.Equal(t, true, out["mouse"])

	_, out = f.do(t, http.MethodGet, "/settings", nil)
	assert.Equal(t, "hook", out["capture"])
}

func TestAppliedDistinguishesRejections(t *testing.T) {
	assert.True(t, applied(&app.ApplyError{Err: errors.New("save")}))
	assert.False(t, applied(errors.New("plain")))
}

func TestSaveOverwritesUnreadableFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profiles.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"mainProfiles":true}`), 0o644))

	store := profile.NewStore(nil)
	p := dispatch.New(store, nil, mocks.NewMockInjector(t))
	t.Cleanup(p.Close)
	a := app.New(store, p, config.FileStore{Path: path})
	require.Error(t, a.Load(context.Background()))

	f := &fixture{app: a}
	f.srv = httptest.NewServer(New(a, config.DefaultSettings(filepath.Join(dir, "settings.json")), "1").Handler())
	t.Cleanup(f.srv.Close)

	_, out := f.do(t, http.MethodGet, "/status", nil)
	assert.Equal(t, true, out["profile_file_held"])

	resp, _ := f.do(t, http.MethodPost, "/profiles", addProfileRequest{Title: "Work"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{"mainProfiles":true}`, string(data))

	resp, _ = f.do(t, http.MethodPost, "/profiles/save", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_, out = f.do(t, http.MethodGet, "/status", nil)
	assert.NotContains(t, out, "profile_file_held")
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	_, err = profile.ParseFile(data)
	assert.NoError(t, err)
}
