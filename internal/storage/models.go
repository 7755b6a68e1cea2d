package storage

import (
	"encoding/json"
	"time"
)

// Bucket names for the history database
const (
	HistoryBucket = "history"
	MetaBucket    = "meta"
)

// Meta keys
const (
	SchemaVersionKey = "schema"
)

// CurrentSchemaVersion is written to the meta bucket on open
const CurrentSchemaVersion = 1

// DefaultMaxDetailSize caps the stored command output per record (16KB)
const DefaultMaxDetailSize = 16 * 1024

// HistoryKind is the operation a history record describes
type HistoryKind string

const (
	KindInstall HistoryKind = "install"
	KindExport  HistoryKind = "export"
	KindImport  HistoryKind = "import"
)

// HistoryRecord is one executed operation stored in the history bucket
type HistoryRecord struct {
	ID        string      `json:"id"` // ULID, also the bucket key
	Kind      HistoryKind `json:"kind"`
	Command   string      `json:"command,omitempty"`
	PackageID string      `json:"package_id,omitempty"`
	Status    string      `json:"status"`
	Detail    string      `json:"detail,omitempty"`
	Created   time.Time   `json:"created"`
}

// MarshalBinary implements encoding.BinaryMarshaler for BBolt storage
func (h *HistoryRecord) MarshalBinary() ([]byte, error) {
	return json.Marshal(h)
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler for BBolt storage
func (h *HistoryRecord) UnmarshalBinary(data []byte) error {
	return json.Unmarshal(data, h)
}

// HistoryFilter selects history records
type HistoryFilter struct {
	Kind  HistoryKind
	Limit int
}

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 1000
)

// Validate clamps Limit into [1, 1000], defaulting to 50.
func (f *HistoryFilter) Validate() {
	if f.Limit <= 0 {
		f.Limit = defaultHistoryLimit
	}
	if f.Limit > maxHistoryLimit {
		f.Limit = maxHistoryLimit
	}
}

// Matches reports whether record passes the filter
func (f *HistoryFilter) Matches(record *HistoryRecord) bool {
	return f.Kind == "" || record.Kind == f.Kind
}
