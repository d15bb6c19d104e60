// Package diffengine computes per-kind added/modified/removed sets between
// two manifest snapshots, keyed by stable entry identity.
package diffengine

import "github.com/lighty-launcher/distserver/internal/distio/manifest"

// FileChange is one entry's worth of diff output.
type FileChange struct {
	Kind        manifest.Kind
	RemoteKey   string // profile-prefixed key used by the Storage Adapter
	LocalPath   string // disk-relative: {kind_prefix}/{subpath}
	URL         string
	ContentHash string
}

// FileDiff is the three-way partition produced for one profile's rescan.
type FileDiff struct {
	Added    []FileChange
	Modified []FileChange
	Removed  []FileChange
}

// IsEmpty reports whether the diff carries no changes at all — the
// orchestrator's CacheUnchanged short-circuit.
func (d FileDiff) IsEmpty() bool {
	return len(d.Added) == 0 && len(d.Modified) == 0 && len(d.Removed) == 0
}

// Counts returns the sizes of the three sets; the orchestrator formats them
// as "N added, M modified, K removed" in CacheUpdated lifecycle events.
func (d FileDiff) Counts() (added, modified, removed int) {
	return len(d.Added), len(d.Modified), len(d.Removed)
}

func toChange(profile string, e manifest.FileEntry) FileChange {
	prefix := e.Kind.KindPrefix()
	// The client jar's remote object key has no kind prefix ({profile}/{file}),
	// unlike every other kind and unlike its on-disk LocalPath.
	remoteKey := profile + "/" + prefix + "/" + e.RelativePath
	if e.Kind == manifest.KindClient {
		remoteKey = profile + "/" + e.RelativePath
	}
	return FileChange{
		Kind:        e.Kind,
		RemoteKey:   remoteKey,
		LocalPath:   prefix + "/" + e.RelativePath,
		URL:         e.PublicURL,
		ContentHash: e.ContentHash,
	}
}

// Compute builds the diff between oldEntries and newEntries for profile.
// When oldEntries is nil (no previous manifest — first scan), every current
// entry is reported as added; see spec: this seeds the URL index via a full
// rebuild rather than via Apply.
func Compute(profile string, oldEntries, newEntries []manifest.FileEntry) FileDiff {
	oldByID := make(map[string]manifest.FileEntry, len(oldEntries))
	for _, e := range oldEntries {
		oldByID[e.Identity()] = e
	}
	newByID := make(map[string]manifest.FileEntry, len(newEntries))
	for _, e := range newEntries {
		newByID[e.Identity()] = e
	}

	var diff FileDiff
	for id, ne := range newByID {
		oe, existed := oldByID[id]
		switch {
		case !existed:
			diff.Added = append(diff.Added, toChange(profile, ne))
		case oe.ContentHash != ne.ContentHash:
			diff.Modified = append(diff.Modified, toChange(profile, ne))
		}
	}
	for id, oe := range oldByID {
		if _, stillPresent := newByID[id]; !stillPresent {
			diff.Removed = append(diff.Removed, toChange(profile, oe))
		}
	}
	return diff
}

// ApplyToIndex mutates a url→kind-prefixed-path index in place to reflect
// diff: inserts added/modified URLs, erases removed URLs. Entries with an
// empty URL are skipped (storage adapter produced no public URL for them).
func ApplyToIndex(index map[string]string, diff FileDiff) {
	for _, c := range diff.Added {
		if c.URL != "" {
			index[c.URL] = c.LocalPath
		}
	}
	for _, c := range diff.Modified {
		if c.URL != "" {
			index[c.URL] = c.LocalPath
		}
	}
	for _, c := range diff.Removed {
		if c.URL != "" {
			delete(index, c.URL)
		}
	}
}
