package ingest

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
)

// DirStats summarizes a directory scan.
type DirStats struct {
	Scanned uint32
	Matched uint32
	Skipped uint32
	Failed  uint32
}

// Discover walks an intake folder and returns the documents waiting in it,
// in lexical order. Archive folders are never entered; hidden entries are
// skipped when skipHidden is set.
func Discover(root string, skipHidden bool) ([]string, DirStats, error) {
	var stats DirStats
	if strings.TrimSpace(root) == "" {
		return nil, stats, errors.New("root path is required")
	}

	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			stats.Failed++
			return nil
		}
		if path == root {
			return nil
		}
		stats.Scanned++
		if d.IsDir() {
			if IsProcessedDir(path) || (skipHidden && IsHidden(path)) {
				stats.Skipped++
				return filepath.SkipDir
			}
			return nil
		}
		if skipHidden && IsHidden(path) {
			stats.Skipped++
			return nil
		}
		if !d.Type().IsRegular() || !AllowedExt(filepath.Ext(path)) {
			stats.Skipped++
			return nil
		}
		stats.Matched++
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return paths, stats, fmt.Errorf("walk: %w", err)
	}
	return paths, stats, nil
}
