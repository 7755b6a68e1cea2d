package storage

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(t.TempDir(), zap.NewNop().Sugar())
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestManager_AppendAssignsIDAndCreated(t *testing.T) {
	m := newTestManager(t)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return fixed }

	record := &HistoryRecord{Kind: KindInstall, Command: "winget install --id VideoLAN.VLC -e", Status: "success"}
	require.NoError(t, m.Append(record))

	id, err := ulid.Parse(record.ID)
	require.NoError(t, err)
	assert.Equal(t, ulid.Timestamp(fixed), id.Time())
	assert.Equal(t, fixed, record.Created)

	got, err := m.Get(record.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, record.Command, got.Command)
	assert.Equal(t, KindInstall, got.Kind)
}

func TestManager_AppendValidation(t *testing.T) {
	m := newTestManager(t)

	assert.Error(t, m.Append(nil))
	assert.Error(t, m.Append(&HistoryRecord{Status: "success"}))
}

func TestManager_ListNewestFirst(t *testing.T) {
	m := newTestManager(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, pkg := range []string{"a", "b", "c", "d"} {
		require.NoError(t, m.Append(&HistoryRecord{
			Kind:      KindInstall,
			PackageID: pkg,
			Status:    "success",
			Created:   base.Add(time.Duration(i) * time.Minute),
		}))
	}

	records, err := m.List(HistoryFilter{Limit: 3})
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "d", records[0].PackageID)
	assert.Equal(t, "c", records[1].PackageID)
	assert.Equal(t, "b", records[2].PackageID)
}

func TestManager_ListSameMillisecondKeepsInsertOrder(t *testing.T) {
	m := newTestManager(t)
	fixed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return fixed }

	for _, pkg := range []string{"first", "second", "third"} {
		require.NoError(t, m.Append(&HistoryRecord{Kind: KindInstall, PackageID: pkg, Status: "success"}))
	}

	records, err := m.List(HistoryFilter{})
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "third", records[0].PackageID)
	assert.Equal(t, "first", records[2].PackageID)
}

func TestManager_ListFiltersByKind(t *testing.T) {
	m := newTestManager(t)

	require.NoError(t, m.Append(&HistoryRecord{Kind: KindInstall, Status: "success"}))
	require.NoError(t, m.Append(&HistoryRecord{Kind: KindExport, Status: "success"}))
	require.NoError(t, m.Append(&HistoryRecord{Kind: KindImport, Status: "failure"}))

	records, err := m.List(HistoryFilter{Kind: KindExport})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, KindExport, records[0].Kind)
}

func TestManager_EmptyListIsNotNil(t *testing.T) {
	m := newTestManager(t)

	records, err := m.List(HistoryFilter{})
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestManager_DetailTruncated(t *testing.T) {
	m := newTestManager(t)

	record := &HistoryRecord{Kind: KindInstall, Status: "failure", Detail: strings.Repeat("x", DefaultMaxDetailSize+10)}
	require.NoError(t, m.Append(record))

	got, err := m.Get(record.ID)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(got.Detail, "...[truncated]"))
	assert.Len(t, got.Detail, DefaultMaxDetailSize+len("...[truncated]"))
}

func TestManager_Prune(t *testing.T) {
	m := newTestManager(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, m.Append(&HistoryRecord{
			Kind:    KindInstall,
			Status:  "success",
			Created: base.Add(time.Duration(i) * time.Second),
		}))
	}

	removed, err := m.Prune(2)
	require.NoError(t, err)
	assert.Equal(t, 3, removed)

	n, err := m.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	records, err := m.List(HistoryFilter{})
	require.NoError(t, err)
	assert.Equal(t, base.Add(4*time.Second), records[0].Created)
}

func TestManager_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	m, err := NewManager(dir, zap.NewNop().Sugar())
	require.NoError(t, err)
	require.NoError(t, m.Append(&HistoryRecord{Kind: KindImport, Status: "success", Detail: "3 installed"}))
	require.NoError(t, m.Close())

	m, err = NewManager(dir, zap.NewNop().Sugar())
	require.NoError(t, err)
	defer m.Close()

	records, err := m.List(HistoryFilter{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "3 installed", records[0].Detail)

	version, err := m.GetSchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, uint64(CurrentSchemaVersion), version)
}

func TestManager_ClosedReturnsErrClosed(t *testing.T) {
	m, err := NewManager(t.TempDir(), zap.NewNop().Sugar())
	require.NoError(t, err)
	require.NoError(t, m.Close())
	require.NoError(t, m.Close())

	assert.ErrorIs(t, m.Append(&HistoryRecord{Kind: KindInstall}), ErrClosed)
	_, err = m.List(HistoryFilter{})
	assert.ErrorIs(t, err, ErrClosed)
	assert.Nil(t, m.GetDB())
}

func TestManager_Backup(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.Append(&HistoryRecord{Kind: KindExport, Status: "success"}))

	dest := filepath.Join(t.TempDir(), "backup.db")
	require.NoError(t, m.Backup(dest))
	assert.FileExists(t, dest)
}

func TestHistoryFilter_Validate(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, 50},
		{-1, 50},
		{10, 10},
		{5000, 1000},
	}
	for _, tt := range tests {
		f := HistoryFilter{Limit: tt.in}
		f.Validate()
		assert.Equal(t, tt.want, f.Limit)
	}
}
