package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gorilla/mux"

	"github.com/lighty-launcher/distserver/internal/config"
	"github.com/lighty-launcher/distserver/internal/distio/apierrors"
	"github.com/lighty-launcher/distserver/internal/distio/contentcache"
	"github.com/lighty-launcher/distserver/internal/distio/hashutil"
	"github.com/lighty-launcher/distserver/internal/distio/manifeststore"
	"github.com/lighty-launcher/distserver/internal/distio/orchestrator"
	"github.com/lighty-launcher/distserver/internal/distio/pathvalidate"
)

type profileListEntry struct {
	Name             string `json:"name"`
	Loader           string `json:"loader"`
	MinecraftVersion string `json:"minecraft_version"`
	URL              string `json:"url"`
	LastUpdate       string `json:"last_update"`
}

// configSource is the live, atomically-swappable configuration the handlers
// read on every request — so a hot-reload takes effect without restarting
// the HTTP server.
type configSource interface {
	Current() *config.Config
}

// staticConfigSource adapts a fixed *config.Config for callers (tests,
// simple deployments) that never hot-reload.
type staticConfigSource struct{ cfg *config.Config }

func (s staticConfigSource) Current() *config.Config { return s.cfg }

// Handlers implements the four HTTP routes against live store/cache/config
// state.
type Handlers struct {
	cfgSource configSource
	store     *manifeststore.Store
	cache     *contentcache.Cache
	orch      *orchestrator.Orchestrator
}

func newHandlers(cfgSource configSource, store *manifeststore.Store, cache *contentcache.Cache, orch *orchestrator.Orchestrator) *Handlers {
	return &Handlers{cfgSource: cfgSource, store: store, cache: cache, orch: orch}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ListProfiles handles GET /.
func (h *Handlers) ListProfiles(w http.ResponseWriter, r *http.Request) {
	cfg := h.cfgSource.Current()
	entries := make([]profileListEntry, 0, len(cfg.EnabledProfiles()))
	for _, p := range cfg.EnabledProfiles() {
		entries = append(entries, profileListEntry{
			Name:             p.Name,
			Loader:           p.Loader,
			MinecraftVersion: p.MCVersion,
			URL:              cfg.Server.BaseURL + "/" + p.Name + ".json",
			LastUpdate:       h.store.LastUpdated(p.Name),
		})
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *Handlers) findEnabledProfile(name string) (config.ProfileConfig, []string, bool) {
	cfg := h.cfgSource.Current()
	enabled := cfg.EnabledProfiles()
	names := make([]string, 0, len(enabled))
	for _, p := range enabled {
		names = append(names, p.Name)
		if p.Name == name {
			return p, names, true
		}
	}
	return config.ProfileConfig{}, names, false
}

// Manifest handles GET /{name}.json.
func (h *Handlers) Manifest(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	_, available, ok := h.findEnabledProfile(name)
	if !ok {
		apierrors.Write(w, apierrors.ServerNotFound(name, available))
		return
	}

	m := h.store.Get(name)
	if m == nil {
		apierrors.Write(w, apierrors.NotFound("manifest not yet available for profile "+name))
		return
	}
	writeJSON(w, http.StatusOK, m.ToJSON())
}

// ServeFile handles GET /{name}/{rest...}.
func (h *Handlers) ServeFile(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	name := vars["name"]
	rest := vars["rest"]

	for _, segment := range strings.Split(rest, "/") {
		if err := pathvalidate.Component(segment); err != nil {
			apierrors.Write(w, apierrors.InvalidPath(err.Error()))
			return
		}
	}

	cfg := h.cfgSource.Current()
	_, available, ok := h.findEnabledProfile(name)
	if !ok {
		apierrors.Write(w, apierrors.ServerNotFound(name, available))
		return
	}

	m := h.store.Get(name)
	if m == nil {
		apierrors.Write(w, apierrors.NotFound("profile has no manifest yet"))
		return
	}

	requestURL := cfg.Server.BaseURL + "/" + name + "/" + rest
	localPath, ok := m.URLToPath(requestURL)
	if !ok {
		apierrors.Write(w, apierrors.NotFound("no such file: "+rest))
		return
	}

	diskPath := filepath.Join(cfg.Server.BasePath, name, localPath)
	h.serveFromDisk(w, r.Context(), diskPath, contentcache.Key(name, localPath), cfg.Server.StreamingThresholdMB)
}

func (h *Handlers) serveFromDisk(w http.ResponseWriter, _ context.Context, diskPath, cacheKey string, streamingThresholdMB int64) {
	if h.cache != nil {
		if cached, hit := h.cache.Get(cacheKey); hit {
			w.Header().Set("Content-Type", cached.MIME)
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(cached.Bytes)
			return
		}
	}

	info, err := os.Stat(diskPath)
	if err != nil {
		apierrors.Write(w, apierrors.NotFound("file not found on disk"))
		return
	}

	mime := contentcache.DetectMIME(diskPath)
	thresholdBytes := streamingThresholdMB * 1024 * 1024

	f, err := os.Open(diskPath)
	if err != nil {
		apierrors.Write(w, apierrors.IOError(err.Error()))
		return
	}
	defer f.Close()

	if thresholdBytes > 0 && info.Size() > thresholdBytes {
		w.Header().Set("Content-Type", mime)
		w.WriteHeader(http.StatusOK)
		_, _ = io.Copy(w, f)
		return
	}

	data, err := io.ReadAll(f)
	if err != nil {
		apierrors.Write(w, apierrors.IOError(err.Error()))
		return
	}
	if h.cache != nil {
		h.cache.Set(cacheKey, contentcache.CachedFile{Bytes: data, Sha1: hashutil.HashBytes(data), Size: int64(len(data)), MIME: mime})
	}
	w.Header().Set("Content-Type", mime)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

type rescanResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Rescan handles POST /rescan/{name}.
func (h *Handlers) Rescan(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	_, available, ok := h.findEnabledProfile(name)
	if !ok {
		apierrors.Write(w, apierrors.ServerNotFound(name, available))
		return
	}

	if err := h.orch.ForceRescan(r.Context(), name); err != nil {
		apierrors.Write(w, apierrors.Internal(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, rescanResponse{Status: "success", Message: "rescan triggered for " + name})
}
