package store

import (
	"fmt"

	"github.com/peetj/btc-tracker/internal/model"
)

// StorageError wraps any failure of the underlying persistence layer.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("store %s: %v", e.Op, e.Err) }
func (e *StorageError) Unwrap() error { return e.Err }

// Stats is the read-only debug view over the store contents.
type Stats struct {
	Count          int   `json:"count"`
	FirstTimestamp int64 `json:"firstTimestamp"`
	LastTimestamp  int64 `json:"lastTimestamp"`
}

// Store is durable key-value persistence for fetched daily records, keyed
// by timestamp. PutAll is atomic: subsequent reads see all of the batch or
// none of it.
type Store interface {
	Put(rec model.DailyRecord) error
	PutAll(recs []model.DailyRecord) error
	GetAll() ([]model.DailyRecord, error)
	Clear() error
	Stats() (Stats, error)
}
