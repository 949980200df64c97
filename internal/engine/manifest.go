package engine

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/natefinch/atomic"
	"github.com/zeebo/xxh3"
)

const manifestFileName = "manifest.json"

// ManifestStats is the diagnostics snapshot persisted alongside a store.
// It is never consulted by Open, Get, Set, or Remove — only by
// ReadManifestStats and the CLI's "stats" subcommand — and is disposable: a
// missing, unreadable, or checksum-failing manifest simply means the caller
// falls back to a live scan. A manifest whose checksum matches is used as
// is, even if the store has changed since it was written.
type ManifestStats struct {
	Generations []uint64 `json:"generations"`
	Active      uint64   `json:"active"`
	Keys        int      `json:"keys"`
	Checksum    string   `json:"checksum"`
}

func checksumPayload(generations []uint64, keys int) string {
	sorted := append([]uint64(nil), generations...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	parts := make([]string, len(sorted))
	for i, g := range sorted {
		parts[i] = strconv.FormatUint(g, 10)
	}
	return strings.Join(parts, ",") + "|" + strconv.Itoa(keys)
}

func checksum(generations []uint64, keys int) string {
	sum := xxh3.HashString(checksumPayload(generations, keys))
	return fmt.Sprintf("%016x", sum)
}

// writeManifest atomically persists the current generation list, active
// generation, and key count to manifest.json so kvs stats can answer
// without a full replay. Store calls this both from Open (the replayed
// index) and Close (the index as left by this session's Set/Remove calls),
// so a manifest read between two CLI invocations is never older than the
// last one to exit cleanly. A failure here never fails the calling
// operation — it only logs, since the manifest is a cache, not a source of
// truth.
func writeManifest(dir string, generations []uint64, active uint64, keys int) {
	m := ManifestStats{
		Generations: generations,
		Active:      active,
		Keys:        keys,
		Checksum:    checksum(generations, keys),
	}

	data, err := json.Marshal(m)
	if err != nil {
		slog.Warn("engine: failed to marshal manifest", "error", err)
		return
	}

	path := filepath.Join(dir, manifestFileName)
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		slog.Warn("engine: failed to write manifest", "path", path, "error", err)
	}
}

// ReadManifestStats reads and validates manifest.json in dir. It returns
// ok=false if the file is missing, unreadable, malformed, or its checksum no
// longer matches its own content — any of which means the caller should fall
// back to opening the store and counting live.
func ReadManifestStats(dir string) (ManifestStats, bool) {
	data, err := os.ReadFile(filepath.Join(dir, manifestFileName))
	if err != nil {
		return ManifestStats{}, false
	}

	var m ManifestStats
	if err := json.Unmarshal(data, &m); err != nil {
		return ManifestStats{}, false
	}

	if checksum(m.Generations, m.Keys) != m.Checksum {
		return ManifestStats{}, false
	}
	return m, true
}
