package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lighty-launcher/distserver/internal/config"
	"github.com/lighty-launcher/distserver/internal/distio/manifeststore"
	"github.com/lighty-launcher/distserver/internal/distio/scanner"
	"github.com/lighty-launcher/distserver/internal/distio/storageadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRunEventLoop_DetectsChangeInKindSubdirectory exercises a real
// fsnotify.Watcher end to end: a profile root is watched, and a file dropped
// into its mods/ subdirectory (not the root itself) must still trigger a
// rescan. fsnotify has no recursive mode, so this only passes if the watch
// setup walks into kind subdirectories rather than Add-ing just the root.
func TestRunEventLoop_DetectsChangeInKindSubdirectory(t *testing.T) {
	base := t.TempDir()
	writeFile(t, filepath.Join(base, "survival", "mods", "foo.jar"), "hello")

	profile := config.ProfileConfig{Name: "survival", Enabled: true, EnableMods: true}
	o := newTestOrchestrator(t, base, []config.ProfileConfig{profile})

	require.NoError(t, o.ScanAllInitial(context.Background()))
	<-o.Events() // drain initial CacheNew

	o.UpdateSnapshot(Snapshot{
		Profiles:        []config.ProfileConfig{profile},
		BasePath:        base,
		HashConcurrency: 4,
		FileDebounceMS:  20,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	loopErr := make(chan error, 1)
	go func() { loopErr <- o.runEventLoop(ctx) }()

	// Give the watcher time to walk the tree and register.
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(base, "survival", "mods", "bar.jar"), []byte("world"), 0o644))

	select {
	case ev := <-o.Events():
		assert.Equal(t, "survival", ev.Profile)
		assert.Equal(t, EventCacheUpdated, ev.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for rescan triggered by a change inside a kind subdirectory")
	}

	cancel()
	<-loopErr
}

// TestRunEventLoop_WatchesNewlyCreatedSubdirectory verifies that a
// subdirectory created after the watch starts (e.g. natives/<os>/ appearing
// for the first time) is picked up dynamically rather than requiring a
// process restart.
func TestRunEventLoop_WatchesNewlyCreatedSubdirectory(t *testing.T) {
	base := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(base, "survival"), 0o755))

	profile := config.ProfileConfig{Name: "survival", Enabled: true, EnableNatives: true}
	o := newTestOrchestrator(t, base, []config.ProfileConfig{profile})
	o.UpdateSnapshot(Snapshot{
		Profiles:        []config.ProfileConfig{profile},
		BasePath:        base,
		HashConcurrency: 4,
		FileDebounceMS:  20,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	loopErr := make(chan error, 1)
	go func() { loopErr <- o.runEventLoop(ctx) }()

	time.Sleep(50 * time.Millisecond)

	nativesDir := filepath.Join(base, "survival", "natives", "linux")
	require.NoError(t, os.MkdirAll(nativesDir, 0o755))
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(nativesDir, "libfoo.so"), []byte("native"), 0o644))

	select {
	case ev := <-o.Events():
		assert.Equal(t, "survival", ev.Profile)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for rescan triggered by a change inside a newly-created subdirectory")
	}

	cancel()
	<-loopErr
}
