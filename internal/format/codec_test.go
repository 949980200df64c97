package format

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestEncodeSetShape(t *testing.T) {
	data, err := EncodeSet("key", "value")
	require.NoError(t, err)

	require.True(t, strings.HasSuffix(string(data), "\n"), "encoded record must be newline-terminated")
	require.True(t, strings.HasPrefix(string(data), "{"), "encoded record must start with '{'")
	require.Contains(t, string(data), `"Set"`)
}

func TestEncodeRemoveShape(t *testing.T) {
	data, err := EncodeRemove("key")
	require.NoError(t, err)
	require.Contains(t, string(data), `"Remove"`)
	require.NotContains(t, string(data), `"Set"`)
}

func TestEncodeDeterministic(t *testing.T) {
	a, err := EncodeSet("k", "v")
	require.NoError(t, err)
	b, err := EncodeSet("k", "v")
	require.NoError(t, err)
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("encoding is not deterministic (-first +second):\n%s", diff)
	}
}

func TestDecodeRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		data []byte
	}{
		{"set with trailing newline", mustEncodeSet(t, "a", "1")},
		{"set without trailing newline", trimNL(mustEncodeSet(t, "a", "1"))},
		{"remove with trailing newline", mustEncodeRemove(t, "a")},
		{"remove without trailing newline", trimNL(mustEncodeRemove(t, "a"))},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, err := Decode(tc.data)
			require.NoError(t, err)
			require.True(t, rec.IsSet() != rec.IsRemove(), "exactly one of Set/Remove must be populated")
		})
	}
}

func TestDecodeSetValues(t *testing.T) {
	rec, err := Decode(mustEncodeSet(t, "café", "☕ value"))
	require.NoError(t, err)
	require.True(t, rec.IsSet())
	require.Equal(t, "café", rec.Set.Key)
	require.Equal(t, "☕ value", rec.Set.Value)
}

func TestDecodeRemoveValues(t *testing.T) {
	rec, err := Decode(mustEncodeRemove(t, "gone"))
	require.NoError(t, err)
	require.True(t, rec.IsRemove())
	require.Equal(t, "gone", rec.Remove.Key)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	cases := [][]byte{
		[]byte(""),
		[]byte("\n"),
		[]byte("not json\n"),
		[]byte(`{"Other":{"key":"k"}}` + "\n"),
		[]byte(`{}` + "\n"),
		[]byte(`{"Set":{"key":"a","value":"1"},"Remove":{"key":"a"}}` + "\n"),
	}

	for _, data := range cases {
		if _, err := Decode(data); err == nil {
			t.Errorf("Decode(%q) should have failed", data)
		}
	}
}

func mustEncodeSet(t *testing.T, key, value string) []byte {
	t.Helper()
	data, err := EncodeSet(key, value)
	require.NoError(t, err)
	return data
}

func mustEncodeRemove(t *testing.T, key string) []byte {
	t.Helper()
	data, err := EncodeRemove(key)
	require.NoError(t, err)
	return data
}

func trimNL(data []byte) []byte {
	return []byte(strings.TrimSuffix(string(data), "\n"))
}
