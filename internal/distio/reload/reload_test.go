package reload

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lighty-launcher/distserver/internal/config"
	"github.com/lighty-launcher/distserver/internal/distio/manifeststore"
	"github.com/lighty-launcher/distserver/internal/distio/orchestrator"
	"github.com/lighty-launcher/distserver/internal/distio/pathindex"
	"github.com/lighty-launcher/distserver/internal/distio/scanner"
	"github.com/lighty-launcher/distserver/internal/distio/storageadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, path, toml string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(toml), 0o644))
}

func baseToml(basePath, profiles string) string {
	return `
[server]
base_path = "` + basePath + `"

[hot-reload.config]
enabled = true
debounce_ms = 30
` + profiles
}

func newTestController(t *testing.T, initial *config.Config) (*Controller, *orchestrator.Orchestrator, *pathindex.Index) {
	t.Helper()
	storage := storageadapter.NewLocal("http://h/u")
	sc := scanner.New(storage, nil)
	store := manifeststore.New()
	idx := pathindex.New(nil)
	orch := orchestrator.New(sc, store, storage, nil, nil, idx, nil)
	orch.UpdateSnapshot(orchestrator.SnapshotFromConfig(initial))
	ctrl := New(initial, orch, idx, nil)
	return ctrl, orch, idx
}

func TestDiffProfiles_AddedAndModified(t *testing.T) {
	old := []config.ProfileConfig{
		{Name: "survival", Enabled: true, EnableMods: true},
		{Name: "creative", Enabled: true, EnableMods: true},
	}
	next := []config.ProfileConfig{
		{Name: "survival", Enabled: true, EnableMods: false}, // modified
		{Name: "creative", Enabled: true, EnableMods: true},  // unchanged
		{Name: "hardcore", Enabled: true},                    // added
	}

	added, modified := diffProfiles(old, next)
	assert.Equal(t, []string{"hardcore"}, added)
	assert.Equal(t, []string{"survival"}, modified)
}

func TestEnsureProfileStructure_CreatesFullTree(t *testing.T) {
	base := t.TempDir()
	require.NoError(t, ensureProfileStructure(base, "creative"))

	for _, sub := range []string{"client", "libraries", "mods", "natives/windows", "natives/linux", "natives/macos", "assets"} {
		info, err := os.Stat(filepath.Join(base, "creative", filepath.FromSlash(sub)))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}

	// Idempotent: an already-bootstrapped profile is left alone, not an error.
	require.NoError(t, ensureProfileStructure(base, "creative"))
}

func TestReload_DebounceCollapsesBurstIntoOneReload(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.toml")
	require.NoError(t, os.Setenv(config.EnvConfigPath, configPath))
	defer os.Unsetenv(config.EnvConfigPath)

	dataDir := filepath.Join(dir, "data")
	writeConfig(t, configPath, baseToml(dataDir, `
[[servers]]
name = "survival"
enabled = true
enable_mods = true
`))
	require.NoError(t, os.MkdirAll(filepath.Join(dataDir, "survival", "mods"), 0o755))

	initial, err := config.Load(configPath)
	require.NoError(t, err)

	ctrl, orch, idx := newTestController(t, initial)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- ctrl.Watch(ctx) }()

	// Burst of rapid rewrites within the debounce window should collapse to
	// a single reload. "creative" is new to the config and its directory
	// tree does not exist yet — the Controller must create it itself.
	for i := 0; i < 5; i++ {
		writeConfig(t, configPath, baseToml(dataDir, `
[[servers]]
name = "survival"
enabled = true
enable_mods = true

[[servers]]
name = "creative"
enabled = true
enable_mods = true
`))
		time.Sleep(5 * time.Millisecond)
	}

	time.Sleep(150 * time.Millisecond)
	cancel()
	<-done

	cfg := ctrl.Current()
	require.Len(t, cfg.EnabledProfiles(), 2)

	ev := <-orch.Events()
	assert.Equal(t, "creative", ev.Profile)
	assert.Equal(t, orchestrator.EventCacheNew, ev.Type)

	_, ok := idx.Lookup(filepath.Join(dataDir, "creative"))
	assert.True(t, ok)

	for _, sub := range []string{"client", "libraries", "mods", "natives/windows", "natives/linux", "natives/macos", "assets"} {
		info, statErr := os.Stat(filepath.Join(dataDir, "creative", filepath.FromSlash(sub)))
		require.NoError(t, statErr, "expected reload to bootstrap %s", sub)
		assert.True(t, info.IsDir())
	}
}
