// Package reload watches the configuration file and, on change, re-parses
// it, diffs the profile list against the running Orchestrator, and swaps
// state in atomically: pause, diff, swap, rebuild the path index, resume,
// force-rescan whatever changed.
package reload

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/lighty-launcher/distserver/internal/config"
	"github.com/lighty-launcher/distserver/internal/distio/orchestrator"
	"github.com/lighty-launcher/distserver/internal/distio/pathindex"
)

// Controller watches configPath and applies changes to an Orchestrator and
// a path Index in lockstep.
type Controller struct {
	configPath string
	debounce   time.Duration

	orch      *orchestrator.Orchestrator
	pathIndex *pathindex.Index
	logger    *slog.Logger

	current atomic.Pointer[config.Config]
}

// New builds a Controller around an already-loaded initial config. Callers
// must call orch.UpdateSnapshot and pathIndex.Rebuild for initial themselves
// before Watch starts — the Controller only handles subsequent changes.
func New(initial *config.Config, orch *orchestrator.Orchestrator, pathIndex *pathindex.Index, logger *slog.Logger) *Controller {
	path := os.Getenv(config.EnvConfigPath)
	if path == "" {
		path = config.DefaultConfigPath
	}

	c := &Controller{
		configPath: path,
		debounce:   time.Duration(initial.HotReload.Config.DebounceMS) * time.Millisecond,
		orch:       orch,
		pathIndex:  pathIndex,
		logger:     logger,
	}
	if c.debounce <= 0 {
		c.debounce = 500 * time.Millisecond
	}
	c.current.Store(initial)
	return c
}

// Current returns the most recently applied configuration.
func (c *Controller) Current() *config.Config {
	return c.current.Load()
}

// Watch blocks watching the config file's containing directory (fsnotify
// does not reliably watch single files across editors that replace-by-
// rename) until ctx is cancelled. Disabled entirely if HotReload.Config is
// not enabled.
func (c *Controller) Watch(ctx context.Context) error {
	if !c.current.Load().HotReload.Config.Enabled {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	dir := filepath.Dir(c.configPath)
	if err := watcher.Add(dir); err != nil {
		if c.logger != nil {
			c.logger.Warn("config hot-reload watch failed, reload disabled", "dir", dir, "error", err)
		}
		return nil
	}

	var debounceTimer *time.Timer
	fire := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return ctx.Err()

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != filepath.Clean(c.configPath) {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(c.debounce, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			if c.logger != nil {
				c.logger.Warn("config watcher error", "error", err)
			}

		case <-fire:
			c.reload(ctx)
		}
	}
}

// reload implements the seven-step apply sequence: load, diff, pause, swap,
// rebuild index, resume, force-rescan changed profiles.
func (c *Controller) reload(ctx context.Context) {
	next, err := config.Load(c.configPath)
	if err != nil {
		if c.logger != nil {
			c.logger.Warn("config reload failed, keeping previous configuration", "error", err)
		}
		return
	}

	prev := c.current.Load()
	added, modified := diffProfiles(prev.EnabledProfiles(), next.EnabledProfiles())

	c.orch.Pause()
	c.current.Store(next)
	c.orch.UpdateSnapshot(orchestrator.SnapshotFromConfig(next))

	dirsByProfile := make(map[string]string, len(next.EnabledProfiles()))
	for _, p := range next.EnabledProfiles() {
		dirsByProfile[p.Name] = filepath.Join(next.Server.BasePath, p.Name)
	}
	c.pathIndex.Rebuild(dirsByProfile)

	c.orch.Resume()

	for _, name := range added {
		if dirErr := ensureProfileStructure(next.Server.BasePath, name); dirErr != nil && c.logger != nil {
			c.logger.Warn("failed to create directory structure for new profile", "profile", name, "error", dirErr)
		}
	}

	changed := append(append([]string{}, added...), modified...)
	for _, name := range changed {
		if rescanErr := c.orch.ForceRescan(ctx, name); rescanErr != nil && c.logger != nil {
			c.logger.Warn("post-reload rescan failed", "profile", name, "error", rescanErr)
		}
	}

	if c.logger != nil {
		c.logger.Info("configuration reloaded", "added", len(added), "modified", len(modified))
	}
}

// ensureProfileStructure creates the full on-disk tree a newly-added profile
// needs — root, client/, libraries/, mods/, natives/{windows,linux,macos}/,
// assets/ — unconditionally, regardless of which kinds the profile enables,
// so later toggling a kind on doesn't also require a manual mkdir. Existing
// directories are left untouched.
func ensureProfileStructure(basePath, profile string) error {
	root := filepath.Join(basePath, profile)
	dirs := []string{
		root,
		filepath.Join(root, "client"),
		filepath.Join(root, "libraries"),
		filepath.Join(root, "mods"),
		filepath.Join(root, "natives"),
		filepath.Join(root, "natives", "windows"),
		filepath.Join(root, "natives", "linux"),
		filepath.Join(root, "natives", "macos"),
		filepath.Join(root, "assets"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}

// diffProfiles returns the names newly present and the names present in
// both but with materially different settings, per ProfileConfig.Equal.
func diffProfiles(oldProfiles, newProfiles []config.ProfileConfig) (added, modified []string) {
	oldByName := make(map[string]config.ProfileConfig, len(oldProfiles))
	for _, p := range oldProfiles {
		oldByName[p.Name] = p
	}
	for _, np := range newProfiles {
		op, existed := oldByName[np.Name]
		if !existed {
			added = append(added, np.Name)
			continue
		}
		if !op.Equal(np) {
			modified = append(modified, np.Name)
		}
	}
	return added, modified
}
