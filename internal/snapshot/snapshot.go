// Package snapshot keeps extracted box scores in a JSON file between the
// extract and import steps.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/albapepper/courtside-data/internal/provider"
)

// Load returns the box scores stored at path. A missing file is an empty
// snapshot; an unreadable or unparsable one is logged and treated as empty
// so an extraction run can start over.
func Load(path string, logger *slog.Logger) []provider.BoxScore {
	if logger == nil {
		logger = slog.Default()
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return []provider.BoxScore{}
	}
	if err != nil {
		logger.Warn("snapshot unreadable, starting empty", "path", path, "error", err)
		return []provider.BoxScore{}
	}

	var games []provider.BoxScore
	if err := json.Unmarshal(data, &games); err != nil {
		logger.Warn("snapshot unparsable, starting empty", "path", path, "error", err)
		return []provider.BoxScore{}
	}
	if games == nil {
		games = []provider.BoxScore{}
	}
	return games
}

// IDs returns the game ids present in games.
func IDs(games []provider.BoxScore) map[string]bool {
	ids := make(map[string]bool, len(games))
	for _, g := range games {
		ids[g.SourceGameID] = true
	}
	return ids
}

// Append merges games into the snapshot at path and rewrites it. A game id
// already in the file keeps its stored entry. The file is ordered by game
// date and replaced atomically. It returns the number of games added.
func Append(path string, games []provider.BoxScore, logger *slog.Logger) (int, error) {
	existing := Load(path, logger)
	known := IDs(existing)

	merged := existing
	added := 0
	for _, g := range games {
		if known[g.SourceGameID] {
			continue
		}
		known[g.SourceGameID] = true
		merged = append(merged, g)
		added++
	}
	sort.SliceStable(merged, func(i, j int) bool { return merged[i].Date.Before(merged[j].Date) })

	data, err := json.MarshalIndent(merged, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("encode snapshot: %w", err)
	}
	if err := writeAtomic(path, data); err != nil {
		return 0, err
	}
	return added, nil
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}
