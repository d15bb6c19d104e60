// Package orchestrator drives scans (interval or watcher-event), applies
// diffs to manifests, triggers remote sync and CDN purge, and emits
// lifecycle events — the component that turns filesystem state into a
// coherent, continuously-converging manifest store.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/lighty-launcher/distserver/internal/config"
	"github.com/lighty-launcher/distserver/internal/distio/cdnpurge"
	"github.com/lighty-launcher/distserver/internal/distio/contentcache"
	"github.com/lighty-launcher/distserver/internal/distio/diffengine"
	"github.com/lighty-launcher/distserver/internal/distio/manifest"
	"github.com/lighty-launcher/distserver/internal/distio/manifeststore"
	"github.com/lighty-launcher/distserver/internal/distio/metrics"
	"github.com/lighty-launcher/distserver/internal/distio/pathindex"
	"github.com/lighty-launcher/distserver/internal/distio/scanner"
	"github.com/lighty-launcher/distserver/internal/distio/storageadapter"
	"golang.org/x/sync/errgroup"
)

// EventType names a lifecycle event the Orchestrator emits after each
// rescan decision.
type EventType string

const (
	EventCacheNew       EventType = "CacheNew"
	EventCacheUpdated   EventType = "CacheUpdated"
	EventCacheUnchanged EventType = "CacheUnchanged"
)

// Event is one lifecycle notification.
type Event struct {
	Type    EventType
	Profile string
	Changes string // "N added, M modified, K removed", only set for CacheUpdated
}

// Snapshot is the immutable subset of configuration a rescan pass needs,
// taken under a read-lock and then used without holding any lock across
// I/O — per the spec's config-swap discipline.
type Snapshot struct {
	Profiles        []config.ProfileConfig
	BasePath        string
	HashConcurrency int
	BufferSize      int
	RescanInterval  time.Duration
	FileDebounceMS  int
}

// SnapshotFromConfig builds a Snapshot from the live Config — the one place
// the rest of the system reaches across the config/orchestrator boundary.
func SnapshotFromConfig(cfg *config.Config) Snapshot {
	return Snapshot{
		Profiles:        cfg.EnabledProfiles(),
		BasePath:        cfg.Server.BasePath,
		HashConcurrency: cfg.Server.HashConcurrency,
		BufferSize:      cfg.Server.ChecksumBufferSize,
		RescanInterval:  cfg.Server.RescanInterval,
		FileDebounceMS:  cfg.HotReload.Files.DebounceMS,
	}
}

func (s Snapshot) profileByName(name string) (config.ProfileConfig, bool) {
	for _, p := range s.Profiles {
		if p.Name == name {
			return p, true
		}
	}
	return config.ProfileConfig{}, false
}

// IsEventMode reports whether RescanInterval == 0, selecting the
// watcher-driven loop over the ticker-driven one.
func (s Snapshot) IsEventMode() bool {
	return s.RescanInterval == 0
}

// Orchestrator is the Rescan Orchestrator.
type Orchestrator struct {
	scanner   *scanner.Scanner
	store     *manifeststore.Store
	storage   storageadapter.Adapter
	cache     *contentcache.Cache
	cdn       cdnpurge.Client // nil disables CDN purge
	pathIndex *pathindex.Index

	snapshot atomic.Pointer[Snapshot]
	paused   atomic.Bool

	events chan Event
	logger *slog.Logger
}

// New builds an Orchestrator. cdn may be nil to disable CDN purge entirely.
func New(sc *scanner.Scanner, store *manifeststore.Store, storage storageadapter.Adapter, cache *contentcache.Cache, cdn cdnpurge.Client, pathIndex *pathindex.Index, logger *slog.Logger) *Orchestrator {
	o := &Orchestrator{
		scanner:   sc,
		store:     store,
		storage:   storage,
		cache:     cache,
		cdn:       cdn,
		pathIndex: pathIndex,
		events:    make(chan Event, 64),
		logger:    logger,
	}
	return o
}

// Events exposes the lifecycle event stream for subscribers (logging,
// future websocket fan-out, tests).
func (o *Orchestrator) Events() <-chan Event {
	return o.events
}

func (o *Orchestrator) emit(ev Event) {
	select {
	case o.events <- ev:
	default:
		if o.logger != nil {
			o.logger.Warn("event channel full, dropping lifecycle event", "type", ev.Type, "profile", ev.Profile)
		}
	}
}

// UpdateSnapshot atomically swaps the configuration snapshot future scans
// read. Used both at startup and by the Config Hot-Reload Controller.
func (o *Orchestrator) UpdateSnapshot(s Snapshot) {
	o.snapshot.Store(&s)
}

// CurrentSnapshot returns the active snapshot, or a zero Snapshot if none
// has been set yet.
func (o *Orchestrator) CurrentSnapshot() Snapshot {
	p := o.snapshot.Load()
	if p == nil {
		return Snapshot{}
	}
	return *p
}

// Pause prevents the next interval tick or watcher-debounce drain from
// starting a new scan. It never waits for an in-flight scan to finish.
func (o *Orchestrator) Pause() {
	o.paused.Store(true)
}

// Resume clears the pause flag.
func (o *Orchestrator) Resume() {
	o.paused.Store(false)
}

// Paused reports the current pause state.
func (o *Orchestrator) Paused() bool {
	return o.paused.Load()
}

// ScanAllInitial scans every enabled profile in parallel — the one place
// the Orchestrator intentionally fans out, since there is no previous
// manifest yet to serialize against.
func (o *Orchestrator) ScanAllInitial(ctx context.Context) error {
	snap := o.CurrentSnapshot()
	g, gctx := errgroup.WithContext(ctx)
	for _, p := range snap.Profiles {
		p := p
		g.Go(func() error {
			o.rescanProfile(gctx, p, snap, true)
			return nil
		})
	}
	return g.Wait()
}

// ForceRescan scans one profile immediately, ignoring the pause flag — used
// by the hot-reload controller and the admin rescan route.
func (o *Orchestrator) ForceRescan(ctx context.Context, profileName string) error {
	snap := o.CurrentSnapshot()
	profile, ok := snap.profileByName(profileName)
	if !ok {
		return fmt.Errorf("orchestrator: unknown profile %q", profileName)
	}
	isFirst := o.store.Get(profileName) == nil
	o.rescanProfile(ctx, profile, snap, isFirst)
	return nil
}

// rescanProfile implements the ten-step rescan procedure. A true isFirstHint
// forces first-manifest handling (CacheNew, no unchanged short-circuit);
// with a false hint the profile counts as first only when store.Get == nil.
func (o *Orchestrator) rescanProfile(ctx context.Context, profile config.ProfileConfig, snap Snapshot, isFirstHint bool) {
	opts := scanner.Options{
		BasePath:        snap.BasePath,
		HashConcurrency: snap.HashConcurrency,
		BufferSize:      snap.BufferSize,
	}

	scanStart := time.Now()
	client, libraries, mods, natives, assets, err := o.scanner.Scan(ctx, profile, opts)
	metrics.ObserveScanDuration(profile.Name, time.Since(scanStart))
	isFirst := o.store.Get(profile.Name) == nil || isFirstHint

	if err != nil {
		// Directory missing: synthesize an empty manifest so the profile is
		// still advertised, per the spec's empty-profile handling.
		o.commitEmptyManifest(profile)
		return
	}

	scratch := manifest.New(profile.Name, manifest.StaticMetadata{})
	scratch.SetEntries(client, libraries, mods, natives, assets)
	newEntries := scratch.Entries()

	prev := o.store.Get(profile.Name)
	var oldEntries []manifest.FileEntry
	if prev != nil {
		oldEntries = prev.Entries()
	}

	diff := diffengine.Compute(profile.Name, oldEntries, newEntries)

	if !isFirst && diff.IsEmpty() {
		metrics.IncRescan(profile.Name, "unchanged")
		o.emit(Event{Type: EventCacheUnchanged, Profile: profile.Name})
		return
	}

	if o.storage.IsRemote() {
		o.syncRemote(ctx, snap.BasePath+"/"+profile.Name, diff)
	}

	// The scan already produced the complete current entry set, so the new
	// manifest's URL index is rebuilt from those entries directly rather than
	// patched incrementally — ApplyURLPatch exists for callers that only have
	// a diff and an old index to mutate, which isn't the case here.
	m := manifest.New(profile.Name, staticMetadataFrom(profile))
	m.SetEntries(client, libraries, mods, natives, assets)
	m.BuildURLIndex()

	o.store.Commit(profile.Name, m)
	metrics.SetManifestEntries(profile.Name, len(m.Entries()))

	if o.cdn != nil {
		urls := changedURLs(diff)
		if len(urls) > 0 {
			if purgeErr := o.cdn.Purge(ctx, urls); purgeErr != nil {
				metrics.IncCDNPurge("failure")
				if o.logger != nil {
					o.logger.Warn("cdn purge failed", "profile", profile.Name, "error", purgeErr)
				}
			} else {
				metrics.IncCDNPurge("success")
			}
		}
	}

	if isFirst {
		metrics.IncRescan(profile.Name, "new")
		o.emit(Event{Type: EventCacheNew, Profile: profile.Name})
	} else {
		added, modified, removed := diff.Counts()
		metrics.IncRescan(profile.Name, "updated")
		o.emit(Event{
			Type:    EventCacheUpdated,
			Profile: profile.Name,
			Changes: fmt.Sprintf("%d added, %d modified, %d removed", added, modified, removed),
		})
	}
}

func (o *Orchestrator) commitEmptyManifest(profile config.ProfileConfig) {
	m := manifest.New(profile.Name, staticMetadataFrom(profile))
	m.BuildURLIndex()
	o.store.Commit(profile.Name, m)
	metrics.SetManifestEntries(profile.Name, 0)
	metrics.IncRescan(profile.Name, "new")
	o.emit(Event{Type: EventCacheNew, Profile: profile.Name})
}

func staticMetadataFrom(p config.ProfileConfig) manifest.StaticMetadata {
	return manifest.StaticMetadata{
		MainClass:   p.MainClass,
		JavaVersion: p.JavaVersion,
		GameArgs:    p.GameArgs,
		JVMArgs:     p.JVMArgs,
		Loader:      p.Loader,
		LoaderVer:   p.LoaderVersion,
		MCVersion:   p.MCVersion,
	}
}

func changedURLs(diff diffengine.FileDiff) []string {
	var urls []string
	for _, c := range diff.Added {
		if c.URL != "" {
			urls = append(urls, c.URL)
		}
	}
	for _, c := range diff.Modified {
		if c.URL != "" {
			urls = append(urls, c.URL)
		}
	}
	return urls
}

// syncRemote uploads added+modified and deletes removed, all in parallel,
// bounded by the same hash-concurrency semaphore the scan itself used.
// Failures are logged and do not abort the commit — the remote store may
// lag the manifest (accepted eventual-consistency tradeoff).
func (o *Orchestrator) syncRemote(ctx context.Context, profileDir string, diff diffengine.FileDiff) {
	snap := o.CurrentSnapshot()
	limit := snap.HashConcurrency
	if limit <= 0 {
		limit = 100
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for _, c := range append(append([]diffengine.FileChange{}, diff.Added...), diff.Modified...) {
		c := c
		g.Go(func() error {
			localPath := profileDir + "/" + c.LocalPath
			if _, err := o.storage.Upload(gctx, localPath, c.RemoteKey); err != nil && o.logger != nil {
				o.logger.Warn("remote upload failed", "key", c.RemoteKey, "error", err)
			}
			return nil
		})
	}
	for _, c := range diff.Removed {
		c := c
		g.Go(func() error {
			if err := o.storage.Delete(gctx, c.RemoteKey); err != nil && o.logger != nil {
				o.logger.Warn("remote delete failed", "key", c.RemoteKey, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()
}
