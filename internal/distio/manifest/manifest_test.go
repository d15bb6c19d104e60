package manifest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildURLIndex_MatchesEntries(t *testing.T) {
	m := New("survival", StaticMetadata{MainClass: "net.minecraft.Main"})
	m.SetEntries(nil, nil, []FileEntry{
		{Kind: KindMod, Name: "foo.jar", RelativePath: "foo.jar", ContentHash: "a1b2", Size: 123, PublicURL: "http://h/u/survival/mods/foo.jar"},
	}, nil, nil)
	m.BuildURLIndex()

	idx := m.URLIndexSnapshot()
	assert.Equal(t, map[string]string{
		"http://h/u/survival/mods/foo.jar": "mods/foo.jar",
	}, idx)
}

func TestApplyURLPatch_AddModifyRemove(t *testing.T) {
	m := New("survival", StaticMetadata{})
	m.SetEntries(nil, nil, []FileEntry{
		{Kind: KindMod, Name: "foo.jar", RelativePath: "foo.jar", PublicURL: "http://h/foo"},
	}, nil, nil)
	m.BuildURLIndex()

	m.ApplyURLPatch(
		[]URLPatchEntry{{URL: "http://h/bar", LocalPath: "mods/bar.jar"}},
		nil,
		[]URLPatchEntry{{URL: "http://h/foo", LocalPath: "mods/foo.jar"}},
	)

	idx := m.URLIndexSnapshot()
	assert.Equal(t, map[string]string{"http://h/bar": "mods/bar.jar"}, idx)
}

func TestToJSON_OmitsNullFieldsAndUsesHashKeyForAssets(t *testing.T) {
	m := New("survival", StaticMetadata{MainClass: "net.minecraft.Main", JavaVersion: 17})
	m.SetEntries(nil, nil, nil, nil, []FileEntry{
		{Kind: KindAsset, RelativePath: "icons/icon.png", ContentHash: "e5f6", Size: 10, PublicURL: "http://h/icon.png"},
	})

	doc := m.ToJSON()
	assert.Equal(t, "net.minecraft.Main", doc.MainClass.MainClass)
	assert.Equal(t, 17, doc.JavaVersion.MajorVersion)
	assert.Len(t, doc.Assets, 1)
	assert.Equal(t, "e5f6", doc.Assets[0].Hash)
	assert.NotNil(t, doc.Assets[0].Size)
	assert.Nil(t, doc.Client)
	assert.Nil(t, doc.Natives)
}
