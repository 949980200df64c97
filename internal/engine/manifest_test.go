package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lukeojones/kvs/internal/config"
)

func TestManifestWrittenOnOpen(t *testing.T) {
	dir := t.TempDir()

	st, err := Open(dir, config.Default())
	require.NoError(t, err)
	defer st.Close()

	require.NoError(t, st.Set("a", "1"))

	_, err = os.Stat(filepath.Join(dir, manifestFileName))
	require.NoError(t, err, "manifest.json should exist after open")
}

func TestManifestDisabledByConfig(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.ManifestChecksum = "none"

	st, err := Open(dir, cfg)
	require.NoError(t, err)
	defer st.Close()

	_, err = os.Stat(filepath.Join(dir, manifestFileName))
	require.True(t, os.IsNotExist(err))
}

func TestReadManifestStatsReflectsOpenTimeSnapshot(t *testing.T) {
	dir := t.TempDir()

	first, err := Open(dir, config.Default())
	require.NoError(t, err)
	require.NoError(t, first.Set("a", "1"))
	require.NoError(t, first.Close())

	// The manifest written by the second Open reflects the index replayed
	// from the first generation (1 key), not any writes made after.
	second, err := Open(dir, config.Default())
	require.NoError(t, err)
	require.NoError(t, second.Set("b", "2"))
	defer second.Close()

	m, ok := ReadManifestStats(dir)
	require.True(t, ok)
	require.EqualValues(t, 1, m.Keys)
}

func TestManifestRefreshedOnClose(t *testing.T) {
	dir := t.TempDir()

	// Simulates two separate CLI invocations: each opens, makes one write,
	// and closes, the way "kvs set a ...; kvs set b ..." would.
	first, err := Open(dir, config.Default())
	require.NoError(t, err)
	require.NoError(t, first.Set("a", "1"))
	require.NoError(t, first.Close())

	m, ok := ReadManifestStats(dir)
	require.True(t, ok)
	require.EqualValues(t, 1, m.Keys, "manifest should reflect the write made before Close, not just the open-time replay")

	second, err := Open(dir, config.Default())
	require.NoError(t, err)
	require.NoError(t, second.Set("b", "2"))
	require.NoError(t, second.Close())

	m, ok = ReadManifestStats(dir)
	require.True(t, ok)
	require.EqualValues(t, 2, m.Keys)
}

func TestReadManifestStatsDetectsTamper(t *testing.T) {
	dir := t.TempDir()
	st, err := Open(dir, config.Default())
	require.NoError(t, err)
	require.NoError(t, st.Close())

	path := filepath.Join(dir, manifestFileName)
	require.NoError(t, os.WriteFile(path, []byte(`{"generations":[1],"active":1,"keys":999,"checksum":"deadbeef"}`), 0o644))

	_, ok := ReadManifestStats(dir)
	require.False(t, ok, "a tampered manifest must fail its own checksum")
}

func TestReadManifestStatsMissing(t *testing.T) {
	_, ok := ReadManifestStats(t.TempDir())
	require.False(t, ok)
}
