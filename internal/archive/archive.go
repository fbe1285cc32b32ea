// Package archive encodes captured snapshot history as a single versioned
// document and decodes it back losslessly.
//
// Documents are JSON by default and YAML when the path ends in .yaml or .yml.
// Writes go to a temporary file that is renamed into place while an advisory
// lock on "<path>.lock" is held, so concurrent exporters never interleave.
package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/tidwall/gjson"
	"github.com/zeebo/xxh3"
	"gopkg.in/yaml.v3"

	apperrors "github.com/agbru/memprof/internal/errors"
	"github.com/agbru/memprof/internal/metrics"
)

// SchemaVersion is the document layout version written by Save.
const SchemaVersion = 1

// MaxFileSize is the largest document Load accepts (64 MiB).
const MaxFileSize = 64 * 1024 * 1024

// lockRetryDelay is the polling period while waiting for the lock file.
const lockRetryDelay = 20 * time.Millisecond

// Format is a document encoding.
type Format string

// Supported encodings.
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFor picks the encoding from the file extension.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Archivable timestamps are those Unix nanoseconds can hold, roughly the
// years 1678 to 2262.
var (
	MinTimestamp = time.Unix(0, math.MinInt64).UTC()
	MaxTimestamp = time.Unix(0, math.MaxInt64).UTC()
)

// Record is the serialized form of one snapshot. Timestamps are stored as
// Unix nanoseconds so that they survive any encoding unchanged.
type Record struct {
	TimestampNS  int64  `json:"timestamp_ns" yaml:"timestamp_ns"`
	TotalMemory  uint64 `json:"total_memory" yaml:"total_memory"`
	UsedMemory   uint64 `json:"used_memory" yaml:"used_memory"`
	FreeMemory   uint64 `json:"free_memory" yaml:"free_memory"`
	ResidentSize uint64 `json:"resident_size" yaml:"resident_size"`
	VirtualSize  uint64 `json:"virtual_size" yaml:"virtual_size"`
	PageIns      uint64 `json:"page_ins" yaml:"page_ins"`
	PageOuts     uint64 `json:"page_outs" yaml:"page_outs"`
	PageFaults   uint64 `json:"page_faults" yaml:"page_faults"`
}

// RecordOf converts a snapshot to its serialized form. The timestamp must lie
// within [MinTimestamp, MaxTimestamp]; NewDocument enforces this.
func RecordOf(s metrics.Snapshot) Record {
	return Record{
		TimestampNS:  s.Timestamp.UnixNano(),
		TotalMemory:  s.TotalMemory,
		UsedMemory:   s.UsedMemory,
		FreeMemory:   s.FreeMemory,
		ResidentSize: s.ResidentSize,
		VirtualSize:  s.VirtualSize,
		PageIns:      s.PageIns,
		PageOuts:     s.PageOuts,
		PageFaults:   s.PageFaults,
	}
}

// Snapshot converts the record back to a snapshot with a UTC timestamp.
func (r Record) Snapshot() metrics.Snapshot {
	return metrics.Snapshot{
		Timestamp:    time.Unix(0, r.TimestampNS).UTC(),
		TotalMemory:  r.TotalMemory,
		UsedMemory:   r.UsedMemory,
		FreeMemory:   r.FreeMemory,
		ResidentSize: r.ResidentSize,
		VirtualSize:  r.VirtualSize,
		PageIns:      r.PageIns,
		PageOuts:     r.PageOuts,
		PageFaults:   r.PageFaults,
	}
}

// Document is the exported history.
type Document struct {
	SchemaVersion int       `json:"schema_version" yaml:"schema_version"`
	SessionID     string    `json:"session_id" yaml:"session_id"`
	ExportedAt    time.Time `json:"exported_at" yaml:"exported_at"`
	Count         int       `json:"count" yaml:"count"`
	// Checksum is the hex xxh3-64 digest of the compact JSON encoding of Records.
	Checksum string   `json:"checksum" yaml:"checksum"`
	Records  []Record `json:"snapshots" yaml:"snapshots"`
}

// NewDocument builds a document for snaps, oldest first. Snapshots stamped
// outside [MinTimestamp, MaxTimestamp] are rejected.
func NewDocument(sessionID string, snaps []metrics.Snapshot, exportedAt time.Time) (Document, error) {
	records := make([]Record, len(snaps))
	for i, s := range snaps {
		if s.Timestamp.Before(MinTimestamp) || s.Timestamp.After(MaxTimestamp) {
			return Document{}, fmt.Errorf("snapshot %d: timestamp %s outside the archivable range", i, s.Timestamp.Format(time.RFC3339))
		}
		records[i] = RecordOf(s)
	}
	sum, err := Checksum(records)
	if err != nil {
		return Document{}, err
	}
	return Document{
		SchemaVersion: SchemaVersion,
		SessionID:     sessionID,
		ExportedAt:    exportedAt.UTC(),
		Count:         len(records),
		Checksum:      sum,
		Records:       records,
	}, nil
}

// Snapshots returns the document's history, oldest first.
func (d Document) Snapshots() []metrics.Snapshot {
	out := make([]metrics.Snapshot, len(d.Records))
	for i, r := range d.Records {
		out[i] = r.Snapshot()
	}
	return out
}

// Verify checks the schema version, the record count and the checksum.
func (d Document) Verify() error {
	if d.SchemaVersion != SchemaVersion {
		return fmt.Errorf("unsupported schema version %d (want %d)", d.SchemaVersion, SchemaVersion)
	}
	if d.Count != len(d.Records) {
		return fmt.Errorf("count mismatch: header says %d, found %d snapshots", d.Count, len(d.Records))
	}
	sum, err := Checksum(d.Records)
	if err != nil {
		return err
	}
	if sum != d.Checksum {
		return fmt.Errorf("checksum mismatch: header %q, computed %q", d.Checksum, sum)
	}
	return nil
}

// Checksum digests the compact JSON encoding of records.
func Checksum(records []Record) (string, error) {
	if records == nil {
		records = []Record{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%016x", xxh3.Hash(data)), nil
}

// Encode renders the document in the given format.
func Encode(doc Document, format Format) ([]byte, error) {
	if doc.Records == nil {
		doc.Records = []Record{}
	}
	if format == FormatYAML {
		return yaml.Marshal(doc)
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// Decode parses and verifies a document. JSON headers are inspected before
// the full decode so that documents from another schema fail fast.
func Decode(data []byte, format Format) (Document, error) {
	var doc Document
	if format == FormatYAML {
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return Document{}, fmt.Errorf("parsing yaml: %w", err)
		}
	} else {
		if !gjson.ValidBytes(data) {
			return Document{}, errors.New("malformed json document")
		}
		version := gjson.GetBytes(data, "schema_version")
		if !version.Exists() {
			return Document{}, errors.New("missing schema_version")
		}
		if version.Int() != SchemaVersion {
			return Document{}, fmt.Errorf("unsupported schema version %d (want %d)", version.Int(), SchemaVersion)
		}
		if err := json.Unmarshal(data, &doc); err != nil {
			return Document{}, fmt.Errorf("parsing json: %w", err)
		}
	}
	if err := doc.Verify(); err != nil {
		return Document{}, err
	}
	return doc, nil
}

// Save writes snaps to path and returns the written document.
//
// Returns:
//   - error: an ArchiveError wrapping the failure, or the context error.
func Save(ctx context.Context, path, sessionID string, snaps []metrics.Snapshot) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	fail := func(err error) (Document, error) {
		return Document{}, apperrors.ArchiveError{Path: path, Op: "export", Cause: err}
	}

	doc, err := NewDocument(sessionID, snaps, time.Now())
	if err != nil {
		return fail(err)
	}
	data, err := Encode(doc, FormatFor(path))
	if err != nil {
		return fail(err)
	}

	lock := flock.New(path + ".lock")
	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		if apperrors.IsContextError(err) {
			return Document{}, err
		}
		return fail(fmt.Errorf("acquiring lock: %w", err))
	}
	if !locked {
		return fail(errors.New("lock not acquired"))
	}
	defer func() { _ = lock.Unlock() }()

	if err := writeAtomic(path, data); err != nil {
		return fail(err)
	}
	return doc, nil
}

// writeAtomic writes data next to path and renames it into place.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return err
	}
	return nil
}

// Load reads and verifies the document at path.
//
// Returns:
//   - error: an ArchiveError wrapping the failure, or the context error.
func Load(ctx context.Context, path string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	fail := func(err error) (Document, error) {
		return Document{}, apperrors.ArchiveError{Path: path, Op: "import", Cause: err}
	}

	info, err := os.Stat(path)
	if err != nil {
		return fail(err)
	}
	if info.Size() > MaxFileSize {
		return fail(fmt.Errorf("file exceeds maximum size (%d bytes)", MaxFileSize))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fail(err)
	}
	doc, err := Decode(data, FormatFor(path))
	if err != nil {
		return fail(err)
	}
	return doc, nil
}
