package pathindex

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLookup_LongestPrefixWins(t *testing.T) {
	idx := New(map[string]string{
		"parent": "/a/b",
		"child":  "/a/b/c",
	})

	profile, ok := idx.Lookup("/a/b/c/x")
	assert.True(t, ok)
	assert.Equal(t, "child", profile)
}

func TestLookup_DisjointSetAnyOrder(t *testing.T) {
	idx := New(map[string]string{
		"survival": "/data/survival",
		"creative": "/data/creative",
	})

	profile, ok := idx.Lookup("/data/creative/mods/foo.jar")
	assert.True(t, ok)
	assert.Equal(t, "creative", profile)
}

func TestLookup_NoMatch(t *testing.T) {
	idx := New(map[string]string{"survival": "/data/survival"})
	_, ok := idx.Lookup("/other/path")
	assert.False(t, ok)
}

func TestRebuild_ReplacesContents(t *testing.T) {
	idx := New(map[string]string{"survival": "/data/survival"})
	idx.Rebuild(map[string]string{"creative": "/data/creative"})

	_, ok := idx.Lookup("/data/survival/mods/foo.jar")
	assert.False(t, ok)
	profile, ok := idx.Lookup("/data/creative/mods/foo.jar")
	assert.True(t, ok)
	assert.Equal(t, "creative", profile)
}
