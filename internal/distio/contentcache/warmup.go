package contentcache

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/lighty-launcher/distserver/internal/config"
	"github.com/lighty-launcher/distserver/internal/distio/hashutil"
	"golang.org/x/sync/errgroup"
)

// DetectMIME maps a file extension to a MIME type, falling back to
// application/octet-stream for anything unrecognized.
func DetectMIME(path string) string {
	if t := mime.TypeByExtension(filepath.Ext(path)); t != "" {
		return t
	}
	return "application/octet-stream"
}

func shouldWarm(name string) bool {
	return strings.HasSuffix(name, ".jar") || strings.HasSuffix(name, ".json")
}

// Warmup walks every enabled profile's directory tree under basePath and
// loads .jar/.json files plus everything under assets/ into cache, using a
// bounded worker pool for parallel reads. A profile whose directory fails to
// read is skipped; Warmup succeeds as long as at least one profile produced
// any entries (or there were no enabled profiles at all).
func Warmup(ctx context.Context, cache *Cache, basePath string, profiles []config.ProfileConfig, workerCount int, logger *slog.Logger) error {
	if workerCount <= 0 {
		workerCount = 8
	}

	var loadedAny bool
	for _, p := range profiles {
		n, err := warmupProfile(ctx, cache, basePath, p, workerCount)
		if err != nil {
			if logger != nil {
				logger.Warn("cache warmup failed for profile", "profile", p.Name, "error", err)
			}
			continue
		}
		if n > 0 {
			loadedAny = true
		}
		if logger != nil {
			logger.Info("cache warmup complete for profile", "profile", p.Name, "files", n)
		}
	}

	if len(profiles) > 0 && !loadedAny {
		if logger != nil {
			logger.Warn("cache warmup loaded no files across any profile")
		}
		return fmt.Errorf("contentcache: warmup loaded no files across %d profile(s)", len(profiles))
	}
	return nil
}

func warmupProfile(ctx context.Context, cache *Cache, basePath string, profile config.ProfileConfig, workerCount int) (int, error) {
	root := filepath.Join(basePath, profile.Name)
	if _, err := os.Stat(root); err != nil {
		return 0, err
	}

	var paths []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil || d == nil || d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if shouldWarm(d.Name()) || strings.HasPrefix(rel, "assets/") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workerCount)
	var loaded atomic.Int64

	for _, path := range paths {
		path := path
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			data, readErr := os.ReadFile(path)
			if readErr != nil {
				return nil
			}
			rel, _ := filepath.Rel(root, path)
			cache.Set(Key(profile.Name, filepath.ToSlash(rel)), CachedFile{
				Bytes: data,
				Sha1:  hashutil.HashBytes(data),
				Size:  int64(len(data)),
				MIME:  DetectMIME(path),
			})
			loaded.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	return int(loaded.Load()), nil
}
