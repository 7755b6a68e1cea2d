package server

import (
	"github.com/softfinder/softfinder-go/internal/observability"
	"github.com/softfinder/softfinder-go/internal/storage"
)

// meteredHistory counts history operations before delegating to the store.
type meteredHistory struct {
	store *storage.Manager
	obs   *observability.Manager
}

func (h *meteredHistory) Append(record *storage.HistoryRecord) error {
	err := h.store.Append(record)
	h.obs.RecordHistoryOperation("append", err)
	return err
}

func (h *meteredHistory) List(filter storage.HistoryFilter) ([]*storage.HistoryRecord, error) {
	records, err := h.store.List(filter)
	h.obs.RecordHistoryOperation("list", err)
	return records, err
}
