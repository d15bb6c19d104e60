package diffengine

import (
	"testing"

	"github.com/lighty-launcher/distserver/internal/distio/manifest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompute_FirstScanAllAdded(t *testing.T) {
	entries := []manifest.FileEntry{
		{Kind: manifest.KindMod, Name: "foo.jar", RelativePath: "foo.jar", ContentHash: "a1b2"},
	}
	diff := Compute("survival", nil, entries)
	assert.Len(t, diff.Added, 1)
	assert.Empty(t, diff.Modified)
	assert.Empty(t, diff.Removed)
}

func TestCompute_ModifyInPlace(t *testing.T) {
	old := []manifest.FileEntry{
		{Kind: manifest.KindMod, Name: "foo.jar", RelativePath: "foo.jar", ContentHash: "a1b2"},
	}
	updated := []manifest.FileEntry{
		{Kind: manifest.KindMod, Name: "foo.jar", RelativePath: "foo.jar", ContentHash: "c3d4"},
	}
	diff := Compute("survival", old, updated)
	assert.Empty(t, diff.Added)
	assert.Len(t, diff.Modified, 1)
	assert.Empty(t, diff.Removed)
	added, modified, removed := diff.Counts()
	assert.Equal(t, 0, added)
	assert.Equal(t, 1, modified)
	assert.Equal(t, 0, removed)
}

func TestCompute_RemoveAndAdd_NoRenameDetection(t *testing.T) {
	old := []manifest.FileEntry{
		{Kind: manifest.KindMod, Name: "foo.jar", RelativePath: "foo.jar", ContentHash: "a1b2"},
	}
	updated := []manifest.FileEntry{
		{Kind: manifest.KindMod, Name: "bar.jar", RelativePath: "bar.jar", ContentHash: "e5f6"},
	}
	diff := Compute("survival", old, updated)
	assert.Len(t, diff.Added, 1)
	assert.Equal(t, "bar.jar", diff.Added[0].LocalPath[len("mods/"):])
	assert.Empty(t, diff.Modified)
	assert.Len(t, diff.Removed, 1)
}

func TestCompute_NoChange_IsEmpty(t *testing.T) {
	entries := []manifest.FileEntry{
		{Kind: manifest.KindMod, Name: "foo.jar", RelativePath: "foo.jar", ContentHash: "a1b2"},
	}
	diff := Compute("survival", entries, entries)
	assert.True(t, diff.IsEmpty())
}

func TestCompute_ClientRemoteKeyHasNoKindPrefix(t *testing.T) {
	entries := []manifest.FileEntry{
		{Kind: manifest.KindClient, Name: "client", RelativePath: "alpha.jar", ContentHash: "a1b2"},
	}
	diff := Compute("survival", nil, entries)
	require.Len(t, diff.Added, 1)
	assert.Equal(t, "survival/alpha.jar", diff.Added[0].RemoteKey)
	assert.Equal(t, "client/alpha.jar", diff.Added[0].LocalPath)
}

func TestApplyToIndex(t *testing.T) {
	idx := map[string]string{"http://h/foo": "mods/foo.jar"}
	diff := FileDiff{
		Added:   []FileChange{{URL: "http://h/bar", LocalPath: "mods/bar.jar"}},
		Removed: []FileChange{{URL: "http://h/foo", LocalPath: "mods/foo.jar"}},
	}
	ApplyToIndex(idx, diff)
	assert.Equal(t, map[string]string{"http://h/bar": "mods/bar.jar"}, idx)
}

// DiffCompleteness checks property #2: applying diff(A,B) to a fresh copy of
// A's URL index yields B's URL index exactly.
func TestDiffCompleteness_Property(t *testing.T) {
	a := []manifest.FileEntry{
		{Kind: manifest.KindMod, Name: "foo.jar", RelativePath: "foo.jar", ContentHash: "a1b2", PublicURL: "http://h/foo"},
		{Kind: manifest.KindMod, Name: "keep.jar", RelativePath: "keep.jar", ContentHash: "k1", PublicURL: "http://h/keep"},
	}
	b := []manifest.FileEntry{
		{Kind: manifest.KindMod, Name: "keep.jar", RelativePath: "keep.jar", ContentHash: "k1", PublicURL: "http://h/keep"},
		{Kind: manifest.KindMod, Name: "bar.jar", RelativePath: "bar.jar", ContentHash: "c3d4", PublicURL: "http://h/bar"},
	}

	aIndex := map[string]string{}
	for _, e := range a {
		aIndex[e.PublicURL] = e.Kind.KindPrefix() + "/" + e.RelativePath
	}
	bIndex := map[string]string{}
	for _, e := range b {
		bIndex[e.PublicURL] = e.Kind.KindPrefix() + "/" + e.RelativePath
	}

	diff := Compute("survival", a, b)
	ApplyToIndex(aIndex, diff)
	assert.Equal(t, bIndex, aIndex)
}
