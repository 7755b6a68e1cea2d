// Package storage persists the install, export and import history in a bbolt database.
package storage

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.etcd.io/bbolt"
	"go.uber.org/zap"
)

// ErrClosed is returned by operations on a closed manager
var ErrClosed = errors.New("history database is closed")

// Manager provides history storage operations
type Manager struct {
	db      *BoltDB
	mu      sync.RWMutex
	logger  *zap.SugaredLogger
	now     func() time.Time
	entropy io.Reader
}

// NewManager opens the history database in dataDir
func NewManager(dataDir string, logger *zap.SugaredLogger) (*Manager, error) {
	db, err := NewBoltDB(dataDir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create bolt database: %w", err)
	}

	return &Manager{
		db:      db,
		logger:  logger,
		now:     time.Now,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}, nil
}

// Close closes the storage manager
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.db == nil {
		return nil
	}
	err := m.db.Close()
	m.db = nil
	return err
}

// GetDB returns the underlying BBolt database, or nil once closed
func (m *Manager) GetDB() *bbolt.DB {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.db != nil {
		return m.db.db
	}
	return nil
}

// Append stores record under a new ULID key. ID and Created are filled in
// when empty; Detail is truncated to DefaultMaxDetailSize.
func (m *Manager) Append(record *HistoryRecord) error {
	if record == nil {
		return fmt.Errorf("history record cannot be nil")
	}
	if record.Kind == "" {
		return fmt.Errorf("history record kind cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.db == nil {
		return ErrClosed
	}

	if record.Created.IsZero() {
		record.Created = m.now().UTC()
	}
	if record.ID == "" {
		id, err := ulid.New(ulid.Timestamp(record.Created), m.entropy)
		if err != nil {
			return fmt.Errorf("failed to generate history id: %w", err)
		}
		record.ID = id.String()
	}
	record.Detail = truncateDetail(record.Detail, DefaultMaxDetailSize)

	return m.db.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(HistoryBucket))
		if bucket == nil {
			return fmt.Errorf("history bucket not found")
		}

		data, err := record.MarshalBinary()
		if err != nil {
			return fmt.Errorf("failed to marshal history record: %w", err)
		}
		if err := bucket.Put([]byte(record.ID), data); err != nil {
			return fmt.Errorf("failed to store history record: %w", err)
		}
		return nil
	})
}

// Get returns the record with the given id, or nil when absent
func (m *Manager) Get(id string) (*HistoryRecord, error) {
	if id == "" {
		return nil, fmt.Errorf("history id cannot be empty")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.db == nil {
		return nil, ErrClosed
	}

	var record *HistoryRecord
	err := m.db.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(HistoryBucket)).Get([]byte(id))
		if data == nil {
			return nil
		}
		record = &HistoryRecord{}
		return record.UnmarshalBinary(data)
	})
	return record, err
}

// List returns records matching filter, newest first
func (m *Manager) List(filter HistoryFilter) ([]*HistoryRecord, error) {
	filter.Validate()

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.db == nil {
		return nil, ErrClosed
	}

	records := make([]*HistoryRecord, 0)
	err := m.db.db.View(func(tx *bbolt.Tx) error {
		cursor := tx.Bucket([]byte(HistoryBucket)).Cursor()
		for k, v := cursor.Last(); k != nil && len(records) < filter.Limit; k, v = cursor.Prev() {
			record := &HistoryRecord{}
			if err := record.UnmarshalBinary(v); err != nil {
				m.logger.Warnw("Failed to unmarshal history record",
					"key", string(k),
					"error", err)
				continue
			}
			if filter.Matches(record) {
				records = append(records, record)
			}
		}
		return nil
	})
	return records, err
}

// Count returns the number of stored records
func (m *Manager) Count() (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.db == nil {
		return 0, ErrClosed
	}

	var n int
	err := m.db.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket([]byte(HistoryBucket)).Stats().KeyN
		return nil
	})
	return n, err
}

// Prune keeps the newest keep records and deletes the rest, returning how many were removed
func (m *Manager) Prune(keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.db == nil {
		return 0, ErrClosed
	}

	var removed int
	err := m.db.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(HistoryBucket))
		var stale [][]byte
		seen := 0
		cursor := bucket.Cursor()
		for k, _ := cursor.Last(); k != nil; k, _ = cursor.Prev() {
			seen++
			if seen > keep {
				stale = append(stale, append([]byte(nil), k...))
			}
		}
		for _, k := range stale {
			if err := bucket.Delete(k); err != nil {
				return fmt.Errorf("failed to delete history record: %w", err)
			}
		}
		removed = len(stale)
		return nil
	})
	if err == nil && removed > 0 {
		m.logger.Debugw("Pruned history", "removed", removed, "kept", keep)
	}
	return removed, err
}

// Backup writes a consistent copy of the database to destPath
func (m *Manager) Backup(destPath string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.db == nil {
		return ErrClosed
	}
	return m.db.Backup(destPath)
}

// GetSchemaVersion returns the current schema version
func (m *Manager) GetSchemaVersion() (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.db == nil {
		return 0, ErrClosed
	}
	return m.db.GetSchemaVersion()
}

// truncateDetail caps s at maxSize bytes, marking the cut.
func truncateDetail(s string, maxSize int) string {
	if maxSize <= 0 {
		maxSize = DefaultMaxDetailSize
	}
	if len(s) <= maxSize {
		return s
	}
	return s[:maxSize] + "...[truncated]"
}
