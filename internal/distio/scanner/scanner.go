// Package scanner walks one profile's on-disk subtrees and produces typed
// manifest entries: content hash, size, and public URL per file.
package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/lighty-launcher/distserver/internal/config"
	"github.com/lighty-launcher/distserver/internal/distio/hashutil"
	"github.com/lighty-launcher/distserver/internal/distio/manifest"
	"github.com/lighty-launcher/distserver/internal/distio/storageadapter"
	"golang.org/x/sync/errgroup"
)

// Options configures one scan pass.
type Options struct {
	BasePath         string // {base_path}/{profile}/...
	HashConcurrency  int    // semaphore size, default 100
	BufferSize       int    // hasher chunk size, default 8192
}

// ErrProfileDirMissing is returned when the profile's root directory does
// not exist — the one case the Orchestrator treats as scanner-level
// failure rather than a silently-dropped per-file error.
type ErrProfileDirMissing struct {
	Profile string
	Path    string
}

func (e *ErrProfileDirMissing) Error() string {
	return fmt.Sprintf("scanner: profile %q directory %q does not exist", e.Profile, e.Path)
}

// Scanner walks profile subtrees through a Storage Adapter to resolve
// public URLs for each hashed file.
type Scanner struct {
	storage storageadapter.Adapter
	logger  *slog.Logger
}

// New builds a Scanner backed by the given Storage Adapter.
func New(storage storageadapter.Adapter, logger *slog.Logger) *Scanner {
	return &Scanner{storage: storage, logger: logger}
}

// Scan walks every enabled subtree of profile and returns the resulting
// entries split by kind. Per-file hash/URL failures are logged and dropped
// (partial success); only a missing profile root directory fails the whole
// scan.
func (s *Scanner) Scan(ctx context.Context, profile config.ProfileConfig, opts Options) (client *manifest.FileEntry, libraries, mods, natives, assets []manifest.FileEntry, err error) {
	profileRoot := filepath.Join(opts.BasePath, profile.Name)
	if info, statErr := os.Stat(profileRoot); statErr != nil || !info.IsDir() {
		return nil, nil, nil, nil, nil, &ErrProfileDirMissing{Profile: profile.Name, Path: profileRoot}
	}

	if profile.EnableClient {
		client = s.scanClient(ctx, profile, profileRoot, opts)
	}
	if profile.EnableLibs {
		libraries = s.scanJarTree(ctx, profile, profileRoot, "libraries", manifest.KindLibrary, opts)
	}
	if profile.EnableMods {
		mods = s.scanJarTree(ctx, profile, profileRoot, "mods", manifest.KindMod, opts)
	}
	if profile.EnableNatives {
		natives = s.scanNatives(ctx, profile, profileRoot, opts)
	}
	if profile.EnableAssets {
		assets = s.scanAllFiles(ctx, profile, profileRoot, "assets", manifest.KindAsset, opts)
	}

	return client, libraries, mods, natives, assets, nil
}

// ScanSilent is a variant of Scan in which a missing directory produces a
// logged warning and an empty result instead of an error. The Rescan
// Orchestrator calls Scan and synthesizes an empty manifest on its error.
func (s *Scanner) ScanSilent(ctx context.Context, profile config.ProfileConfig, opts Options) (client *manifest.FileEntry, libraries, mods, natives, assets []manifest.FileEntry) {
	client, libraries, mods, natives, assets, err := s.Scan(ctx, profile, opts)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("scan failed, treating as empty", "profile", profile.Name, "error", err)
		}
		return nil, nil, nil, nil, nil
	}
	return client, libraries, mods, natives, assets
}

func listJars(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".jar") {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	return out
}

// scanClient picks the lexicographically smallest .jar for stability
// (the walker's natural order is not deterministic across platforms).
func (s *Scanner) scanClient(ctx context.Context, profile config.ProfileConfig, profileRoot string, opts Options) *manifest.FileEntry {
	clientDir := filepath.Join(profileRoot, "client")
	jars := listJars(clientDir)
	if len(jars) == 0 {
		return nil
	}
	sort.Strings(jars)
	path := jars[0]

	entry, err := s.hashAndResolve(ctx, profile, path, manifest.KindClient, "client", filepath.Base(path), opts)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("client hash failed", "profile", profile.Name, "path", path, "error", err)
		}
		return nil
	}
	entry.Name = "client"
	return entry
}

func (s *Scanner) scanJarTree(ctx context.Context, profile config.ProfileConfig, profileRoot, subdir string, kind manifest.Kind, opts Options) []manifest.FileEntry {
	return s.scanTree(ctx, profile, profileRoot, subdir, kind, opts, func(name string) bool {
		return strings.HasSuffix(name, ".jar")
	})
}

func (s *Scanner) scanAllFiles(ctx context.Context, profile config.ProfileConfig, profileRoot, subdir string, kind manifest.Kind, opts Options) []manifest.FileEntry {
	return s.scanTree(ctx, profile, profileRoot, subdir, kind, opts, func(string) bool { return true })
}

func (s *Scanner) scanNatives(ctx context.Context, profile config.ProfileConfig, profileRoot string, opts Options) []manifest.FileEntry {
	var all []manifest.FileEntry
	for _, osName := range []manifest.OS{manifest.OSWindows, manifest.OSLinux, manifest.OSMacOS} {
		subdir := filepath.Join("natives", string(osName))
		entries := s.scanTree(ctx, profile, profileRoot, subdir, manifest.KindNative, opts, func(string) bool { return true })
		for i := range entries {
			entries[i].NativeOS = osName
			entries[i].RelativePath = string(osName) + "/" + entries[i].RelativePath
		}
		all = append(all, entries...)
	}
	return all
}

func (s *Scanner) scanTree(ctx context.Context, profile config.ProfileConfig, profileRoot, subdir string, kind manifest.Kind, opts Options, include func(name string) bool) []manifest.FileEntry {
	root := filepath.Join(profileRoot, subdir)
	var paths []string
	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || d == nil || d.IsDir() {
			return nil
		}
		if include(d.Name()) {
			paths = append(paths, path)
		}
		return nil
	})
	if len(paths) == 0 {
		return nil
	}

	concurrency := opts.HashConcurrency
	if concurrency <= 0 {
		concurrency = 100
	}

	results := make([]*manifest.FileEntry, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			rel, relErr := filepath.Rel(root, path)
			if relErr != nil {
				return nil //nolint:nilerr // per-file failures are swallowed, not fatal
			}
			rel = filepath.ToSlash(rel)

			entry, hashErr := s.hashAndResolve(gctx, profile, path, kind, subdir, rel, opts)
			if hashErr != nil {
				if s.logger != nil {
					s.logger.Warn("scan entry failed, dropping", "profile", profile.Name, "path", path, "error", hashErr)
				}
				return nil
			}
			if kind == manifest.KindLibrary {
				entry.MavenCoordinate = mavenCoordinate(rel)
			}
			if kind == manifest.KindMod || kind == manifest.KindNative {
				entry.Name = filepath.Base(rel)
			}
			results[i] = entry
			return nil
		})
	}
	_ = g.Wait() // per-file errors already swallowed inside each goroutine

	out := make([]manifest.FileEntry, 0, len(results))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out
}

func (s *Scanner) hashAndResolve(ctx context.Context, profile config.ProfileConfig, absPath string, kind manifest.Kind, kindPrefix, relPath string, opts Options) (*manifest.FileEntry, error) {
	sum, size, err := hashutil.HashFile(absPath, opts.BufferSize)
	if err != nil {
		return nil, err
	}

	// The scan only resolves the URL a file WOULD have; it never uploads.
	// Uploading belongs to the Rescan Orchestrator, which does it once per
	// added/modified file from the diff rather than once per scanned file.
	// The client jar sits directly under the profile (no kind prefix) —
	// every other kind keeps its subdirectory in the remote key.
	remoteKey := profile.Name + "/" + relPath
	if kind != manifest.KindClient {
		remoteKey = profile.Name + "/" + kindPrefix + "/" + relPath
	}
	url := s.storage.GetURL(remoteKey)

	return &manifest.FileEntry{
		Kind:         kind,
		RelativePath: relPath,
		Size:         size,
		ContentHash:  sum,
		PublicURL:    url,
	}, nil
}

// mavenCoordinate derives "group:artifact:version" from the last three path
// components of a library's relative path, joining the remaining prefix
// with "." for the group.
func mavenCoordinate(relPath string) string {
	parts := strings.Split(relPath, "/")
	if len(parts) < 3 {
		return ""
	}
	version := parts[len(parts)-2]
	artifact := parts[len(parts)-3]
	group := strings.Join(parts[:len(parts)-3], ".")
	if group == "" {
		return artifact + ":" + version
	}
	return group + ":" + artifact + ":" + version
}
