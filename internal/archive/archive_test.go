package archive

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/agbru/memprof/internal/errors"
	"github.com/agbru/memprof/internal/metrics"
)

func history(n int) []metrics.Snapshot {
	start := time.Date(2026, 3, 14, 9, 26, 53, 589793000, time.UTC)
	out := make([]metrics.Snapshot, n)
	for i := range out {
		out[i] = metrics.Snapshot{
			Timestamp:    start.Add(time.Duration(i) * 1500 * time.Millisecond),
			TotalMemory:  16 << 30,
			UsedMemory:   uint64(4<<30 + i*(3<<20)),
			FreeMemory:   uint64(12<<30 - i*(3<<20)),
			ResidentSize: uint64(200<<20 + i*4096),
			VirtualSize:  1 << 40,
			PageIns:      uint64(i * 7),
			PageOuts:     uint64(i * 2),
			PageFaults:   uint64(1000 + i*33),
		}
	}
	return out
}

func requireSameHistory(t *testing.T, want, got []metrics.Snapshot) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		assert.True(t, want[i].Timestamp.Equal(got[i].Timestamp), "timestamp %d", i)
		assert.Equal(t, time.UTC, got[i].Timestamp.Location())
		w, g := want[i], got[i]
		w.Timestamp, g.Timestamp = time.Time{}, time.Time{}
		assert.Equal(t, w, g, "snapshot %d", i)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Parallel()
	for _, name := range []string{"history.json", "history.yaml", "history.yml", "noext"} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			path := filepath.Join(t.TempDir(), name)
			snaps := history(25)

			written, err := Save(context.Background(), path, "session-1", snaps)
			require.NoError(t, err)
			assert.Equal(t, 25, written.Count)

			doc, err := Load(context.Background(), path)
			require.NoError(t, err)
			assert.Equal(t, SchemaVersion, doc.SchemaVersion)
			assert.Equal(t, "session-1", doc.SessionID)
			assert.Equal(t, written.Checksum, doc.Checksum)
			requireSameHistory(t, snaps, doc.Snapshots())
		})
	}
}

func TestEmptyHistoryRoundTrip(t *testing.T) {
	t.Parallel()
	for _, name := range []string{"empty.json", "empty.yaml"} {
		path := filepath.Join(t.TempDir(), name)
		_, err := Save(context.Background(), path, "s", nil)
		require.NoError(t, err)

		doc, err := Load(context.Background(), path)
		require.NoError(t, err, name)
		assert.Empty(t, doc.Snapshots(), name)
		assert.Zero(t, doc.Count)
	}
}

func TestExtremeCountersSurvive(t *testing.T) {
	t.Parallel()
	snap := metrics.Snapshot{
		Timestamp:   time.Unix(0, 1).UTC(),
		TotalMemory: ^uint64(0),
		UsedMemory:  1<<63 + 1,
		PageFaults:  ^uint64(0) - 1,
	}
	for _, name := range []string{"max.json", "max.yaml"} {
		path := filepath.Join(t.TempDir(), name)
		_, err := Save(context.Background(), path, "s", []metrics.Snapshot{snap})
		require.NoError(t, err)
		doc, err := Load(context.Background(), path)
		require.NoError(t, err)
		requireSameHistory(t, []metrics.Snapshot{snap}, doc.Snapshots())
	}
}

func TestTimestampRange(t *testing.T) {
	t.Parallel()

	t.Run("edges round trip", func(t *testing.T) {
		snaps := history(2)
		snaps[0].Timestamp = MinTimestamp
		snaps[1].Timestamp = MaxTimestamp
		path := filepath.Join(t.TempDir(), "edges.json")
		_, err := Save(context.Background(), path, "s", snaps)
		require.NoError(t, err)

		doc, err := Load(context.Background(), path)
		require.NoError(t, err)
		requireSameHistory(t, snaps, doc.Snapshots())
	})

	for name, ts := range map[string]time.Time{
		"zero time":   {},
		"before 1678": MinTimestamp.Add(-time.Nanosecond),
		"after 2262":  MaxTimestamp.Add(time.Nanosecond),
	} {
		t.Run(name, func(t *testing.T) {
			snaps := history(3)
			snaps[1].Timestamp = ts
			_, err := NewDocument("s", snaps, time.Now())
			require.Error(t, err)

			path := filepath.Join(t.TempDir(), "out.json")
			_, err = Save(context.Background(), path, "s", snaps)
			var archiveErr apperrors.ArchiveError
			require.ErrorAs(t, err, &archiveErr)
			assert.NoFileExists(t, path)
		})
	}
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "out.json")
	_, err := Save(context.Background(), path, "s", history(3))
	require.NoError(t, err)
	_, err = Save(context.Background(), path, "s", history(5))
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp-")
	}
	doc, err := Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 5, doc.Count)
}

func TestLoadRejectsTampering(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "tampered.json")
	_, err := Save(context.Background(), path, "s", history(4))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc Document
	require.NoError(t, json.Unmarshal(data, &doc))
	doc.Records[2].UsedMemory++
	data, err = json.Marshal(doc)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	_, err = Load(context.Background(), path)
	var archErr apperrors.ArchiveError
	require.ErrorAs(t, err, &archErr)
	assert.Equal(t, "import", archErr.Op)
	assert.Contains(t, err.Error(), "checksum mismatch")
	assert.Equal(t, apperrors.ExitErrorArchive, apperrors.ExitCodeFor(err))
}

func TestLoadErrors(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
		return path
	}

	tests := []struct {
		name string
		path string
		want string
	}{
		{"missing file", filepath.Join(dir, "absent.json"), "no such file"},
		{"malformed json", write("bad.json", `{"schema_version": 1, "snapshots": [`), "malformed"},
		{"no version", write("nover.json", `{"snapshots": []}`), "missing schema_version"},
		{"future version", write("v2.json", `{"schema_version": 2, "snapshots": []}`), "unsupported schema version 2"},
		{"count mismatch", write("count.json", `{"schema_version": 1, "count": 3, "snapshots": []}`), "count mismatch"},
		{"bad yaml", write("bad.yaml", "schema_version: [1\n"), "parsing yaml"},
		{"yaml version", write("v9.yaml", "schema_version: 9\nsnapshots: []\n"), "unsupported schema version 9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(context.Background(), tt.path)
			var archErr apperrors.ArchiveError
			require.ErrorAs(t, err, &archErr)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadSizeCap(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "huge.json")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, f.Truncate(MaxFileSize+1))
	require.NoError(t, f.Close())

	_, err = Load(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "maximum size")
}

func TestCanceledContext(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	path := filepath.Join(t.TempDir(), "x.json")

	_, err := Save(ctx, path, "s", history(2))
	assert.ErrorIs(t, err, context.Canceled)
	_, err = Load(ctx, path)
	assert.ErrorIs(t, err, context.Canceled)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestFormatFor(t *testing.T) {
	t.Parallel()
	tests := map[string]Format{
		"a.json": FormatJSON,
		"a.YAML": FormatYAML,
		"a.yml":  FormatYAML,
		"a":      FormatJSON,
		"a.txt":  FormatJSON,
	}
	for path, want := range tests {
		if got := FormatFor(path); got != want {
			t.Errorf("FormatFor(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestChecksumIgnoresNilVersusEmpty(t *testing.T) {
	t.Parallel()
	a, err := Checksum(nil)
	require.NoError(t, err)
	b, err := Checksum([]Record{})
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, 16)
}

func TestEncodeDecodeProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("decode(encode(doc)) reproduces the history", prop.ForAll(
		func(used []uint64, yamlFormat bool) bool {
			snaps := make([]metrics.Snapshot, len(used))
			for i, u := range used {
				snaps[i] = metrics.Snapshot{
					Timestamp:   time.Unix(1_700_000_000+int64(i), int64(i)*1000).UTC(),
					UsedMemory:  u,
					TotalMemory: u | 1<<40,
				}
			}
			format := FormatJSON
			if yamlFormat {
				format = FormatYAML
			}
			doc, err := NewDocument("p", snaps, time.Now())
			if err != nil {
				return false
			}
			data, err := Encode(doc, format)
			if err != nil {
				return false
			}
			back, err := Decode(data, format)
			if err != nil {
				return false
			}
			got := back.Snapshots()
			if len(got) != len(snaps) {
				return false
			}
			for i := range snaps {
				if !got[i].Timestamp.Equal(snaps[i].Timestamp) || got[i].UsedMemory != snaps[i].UsedMemory ||
					got[i].TotalMemory != snaps[i].TotalMemory {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.UInt64()),
		gen.Bool(),
	))

	properties.TestingRun(t)
}

func TestEncodedJSONShape(t *testing.T) {
	t.Parallel()
	doc, err := NewDocument("abc", history(1), time.Date(2026, 1, 2, 3, 4, 5, 0, time.FixedZone("X", 3600)))
	require.NoError(t, err)
	data, err := Encode(doc, FormatJSON)
	require.NoError(t, err)
	text := string(data)
	for _, key := range []string{`"schema_version": 1`, `"session_id": "abc"`, `"snapshots"`, `"timestamp_ns"`, `"page_faults"`} {
		assert.True(t, strings.Contains(text, key), "missing %s", key)
	}
	assert.Contains(t, text, "2026-01-02T02:04:05Z")
}
