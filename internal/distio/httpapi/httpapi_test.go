package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lighty-launcher/distserver/internal/config"
	"github.com/lighty-launcher/distserver/internal/distio/contentcache"
	"github.com/lighty-launcher/distserver/internal/distio/manifeststore"
	"github.com/lighty-launcher/distserver/internal/distio/orchestrator"
	"github.com/lighty-launcher/distserver/internal/distio/scanner"
	"github.com/lighty-launcher/distserver/internal/distio/storageadapter"
)

func writeTestFile(t *testing.T, path string, size int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i % 251)
	}
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func setupTestServer(t *testing.T, cfg *config.Config) (*Handlers, *orchestrator.Orchestrator) {
	t.Helper()
	storage := storageadapter.NewLocal(cfg.Server.BaseURL)
	sc := scanner.New(storage, nil)
	store := manifeststore.New()
	cache := contentcache.New(0)
	orch := orchestrator.New(sc, store, storage, cache, nil, nil, nil)
	orch.UpdateSnapshot(orchestrator.SnapshotFromConfig(cfg))
	require.NoError(t, orch.ScanAllInitial(context.Background()))
	// drain lifecycle events so they don't leak into later assertions
	for range cfg.EnabledProfiles() {
		select {
		case <-orch.Events():
		default:
		}
	}

	h := newHandlers(Static(cfg), store, cache, orch)
	return h, orch
}

func TestServeFile_SmallFileIsCachedAfterFirstRead(t *testing.T) {
	base := t.TempDir()
	writeTestFile(t, filepath.Join(base, "survival", "mods", "foo.jar"), 10)

	cfg := &config.Config{
		Server:  config.ServerConfig{BaseURL: "http://h", BasePath: base, StreamingThresholdMB: 100},
		Servers: []config.ProfileConfig{{Name: "survival", Enabled: true, EnableMods: true}},
	}
	h, _ := setupTestServer(t, cfg)

	req := httptest.NewRequest(http.MethodGet, "/survival/mods/foo.jar", nil)
	req = mux.SetURLVars(req, map[string]string{"name": "survival", "rest": "mods/foo.jar"})
	rec := httptest.NewRecorder()
	h.ServeFile(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	cached, hit := h.cache.Get(contentcache.Key("survival", "mods/foo.jar"))
	assert.True(t, hit)
	assert.NotEmpty(t, cached.Sha1)
}

func TestServeFile_AboveStreamingThresholdIsNotCached(t *testing.T) {
	base := t.TempDir()
	const sizeMB = 2
	writeTestFile(t, filepath.Join(base, "survival", "mods", "big.jar"), sizeMB*1024*1024)

	cfg := &config.Config{
		Server:  config.ServerConfig{BaseURL: "http://h", BasePath: base, StreamingThresholdMB: 1},
		Servers: []config.ProfileConfig{{Name: "survival", Enabled: true, EnableMods: true}},
	}
	h, _ := setupTestServer(t, cfg)

	req := httptest.NewRequest(http.MethodGet, "/survival/mods/big.jar", nil)
	req = mux.SetURLVars(req, map[string]string{"name": "survival", "rest": "mods/big.jar"})
	rec := httptest.NewRecorder()
	h.ServeFile(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	_, hit := h.cache.Get(contentcache.Key("survival", "mods/big.jar"))
	assert.False(t, hit)
}

func TestServeFile_PathTraversalRejectedBeforeDiskAccess(t *testing.T) {
	base := t.TempDir()
	cfg := &config.Config{
		Server:  config.ServerConfig{BaseURL: "http://h", BasePath: base, StreamingThresholdMB: 100},
		Servers: []config.ProfileConfig{{Name: "survival", Enabled: true, EnableMods: true}},
	}
	h, _ := setupTestServer(t, cfg)

	req := httptest.NewRequest(http.MethodGet, "/survival/../etc/passwd", nil)
	req = mux.SetURLVars(req, map[string]string{"name": "survival", "rest": "../etc/passwd"})
	rec := httptest.NewRecorder()
	h.ServeFile(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_PATH")
}

func TestManifest_UnknownProfileReturnsAvailableServers(t *testing.T) {
	cfg := &config.Config{
		Server:  config.ServerConfig{BaseURL: "http://h", BasePath: t.TempDir(), StreamingThresholdMB: 100},
		Servers: []config.ProfileConfig{{Name: "survival", Enabled: true}},
	}
	h, _ := setupTestServer(t, cfg)

	req := httptest.NewRequest(http.MethodGet, "/ghost.json", nil)
	req = mux.SetURLVars(req, map[string]string{"name": "ghost"})
	rec := httptest.NewRecorder()
	h.Manifest(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "survival")
}

func TestRescan_TriggersForceRescan(t *testing.T) {
	base := t.TempDir()
	writeTestFile(t, filepath.Join(base, "survival", "mods", "foo.jar"), 10)
	cfg := &config.Config{
		Server:  config.ServerConfig{BaseURL: "http://h", BasePath: base, StreamingThresholdMB: 100},
		Servers: []config.ProfileConfig{{Name: "survival", Enabled: true, EnableMods: true}},
	}
	h, orch := setupTestServer(t, cfg)

	writeTestFile(t, filepath.Join(base, "survival", "mods", "bar.jar"), 20)
	req := httptest.NewRequest(http.MethodPost, "/rescan/survival", nil)
	req = mux.SetURLVars(req, map[string]string{"name": "survival"})
	rec := httptest.NewRecorder()
	h.Rescan(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	ev := <-orch.Events()
	assert.Equal(t, orchestrator.EventCacheUpdated, ev.Type)
}
