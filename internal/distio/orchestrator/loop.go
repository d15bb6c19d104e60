package orchestrator

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// RunLoop runs either the ticker-driven or watcher-driven rescan loop,
// selecting by the active snapshot's IsEventMode, until ctx is cancelled.
func (o *Orchestrator) RunLoop(ctx context.Context) error {
	snap := o.CurrentSnapshot()
	if snap.IsEventMode() {
		return o.runEventLoop(ctx)
	}
	return o.runIntervalLoop(ctx)
}

// runIntervalLoop rescans every enabled profile, one at a time, on a fixed
// tick — serialized deliberately so one profile's scan never races another's
// commit to the same manifest store.
func (o *Orchestrator) runIntervalLoop(ctx context.Context) error {
	snap := o.CurrentSnapshot()
	interval := snap.RescanInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if o.Paused() {
				continue
			}
			o.rescanAllSerial(ctx)
		}
	}
}

func (o *Orchestrator) rescanAllSerial(ctx context.Context) {
	snap := o.CurrentSnapshot()
	for _, p := range snap.Profiles {
		if ctx.Err() != nil {
			return
		}
		o.rescanProfile(ctx, p, snap, false)
	}
}

// runEventLoop watches the base directory tree for changes and rescans the
// owning profile after a debounce window. fsnotify's recursive coverage is
// unreliable under heavy bursts of file activity (the same caveat the
// upstream Prometheus config-reloader documents), so a burst of events for
// one profile collapses into a single rescan via the debounce timer rather
// than relying on exactly-once delivery per file.
func (o *Orchestrator) runEventLoop(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	snap := o.CurrentSnapshot()
	watched := make(map[string]bool)
	for _, p := range snap.Profiles {
		dir := snap.BasePath + "/" + p.Name
		if err := addTreeWatch(watcher, dir, watched); err != nil {
			if o.logger != nil {
				o.logger.Warn("event watch failed, profile will not auto-rescan", "profile", p.Name, "dir", dir, "error", err)
			}
			continue
		}
	}

	debounce := time.Duration(snap.FileDebounceMS) * time.Millisecond
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}

	pending := make(map[string]*time.Timer)
	fire := make(chan string, 64)
	defer func() {
		for _, t := range pending {
			t.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			profile := o.profileForPath(ev.Name)
			if profile == "" || o.Paused() {
				continue
			}
			// A new kind subdirectory (mods/, natives/<os>/, ...) only
			// starts receiving events once it's added itself — fsnotify
			// has no recursive mode, so pick up anything created under an
			// already-watched directory.
			if ev.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if !watched[ev.Name] {
						_ = addTreeWatch(watcher, ev.Name, watched)
					}
				}
			}
			if t, exists := pending[profile]; exists {
				t.Stop()
			}
			pending[profile] = time.AfterFunc(debounce, func() {
				fire <- profile
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			if o.logger != nil {
				o.logger.Warn("watcher error", "error", err)
			}

		case profile := <-fire:
			delete(pending, profile)
			if o.Paused() {
				continue
			}
			_ = o.ForceRescan(ctx, profile)
		}
	}
}

// addTreeWatch adds root and every directory beneath it to watcher.
// fsnotify has no recursive mode, so a profile directory's kind
// subdirectories (client/, libraries/, mods/, natives/<os>/, assets/) each
// need their own explicit watch; watched records every directory added so
// later Create events for nested subdirectories aren't re-walked twice.
func addTreeWatch(watcher *fsnotify.Watcher, root string, watched map[string]bool) error {
	if _, err := os.Stat(root); err != nil {
		return err
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if watched[path] {
			return nil
		}
		if err := watcher.Add(path); err != nil {
			return err
		}
		watched[path] = true
		return nil
	})
}

// profileForPath maps a changed filesystem path to the profile that owns
// it by longest-prefix match against the active snapshot's profile dirs.
func (o *Orchestrator) profileForPath(path string) string {
	snap := o.CurrentSnapshot()
	best := ""
	bestLen := -1
	for _, p := range snap.Profiles {
		dir := snap.BasePath + "/" + p.Name
		if len(dir) > bestLen && len(path) >= len(dir) && path[:len(dir)] == dir {
			best = p.Name
			bestLen = len(dir)
		}
	}
	return best
}
