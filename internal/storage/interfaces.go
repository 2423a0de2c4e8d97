// Package storage provides the persistence interfaces for the Waymark memory
// map. The store owns MemoryRecord and MediaAsset rows with cascade-delete
// ownership; the Handle type gates exclusive close-and-reopen access for the
// restore flow.
package storage

import (
	"context"

	"github.com/scrypster/waymark/pkg/types"
)

// MemoryStore provides CRUD over memory records and their media assets.
type MemoryStore interface {
	// SaveMemory inserts or updates a record. A record with ID 0 is inserted
	// and assigned a fresh auto-increment id (returned); a record with a
	// non-zero ID is updated in place.
	SaveMemory(ctx context.Context, record *types.MemoryRecord) (int64, error)

	// GetMemory retrieves a record by id. Returns ErrNotFound if absent.
	GetMemory(ctx context.Context, id int64) (*types.MemoryRecord, error)

	// ListMemories returns all records, ordered by start date ascending.
	ListMemories(ctx context.Context) ([]types.MemoryRecord, error)

	// DeleteMemory removes a record. Its media assets are cascade-deleted.
	// Returns ErrNotFound if the record doesn't exist.
	DeleteMemory(ctx context.Context, id int64) error

	// ReplaceMedia deletes the existing media assets of a record and inserts
	// the given set. Used by the save/edit flow, which always re-submits the
	// full current selection.
	ReplaceMedia(ctx context.Context, memoryID int64, assets []types.MediaAsset) error

	// ListMedia returns the media assets of one record, ordered by capture time.
	ListMedia(ctx context.Context, memoryID int64) ([]types.MediaAsset, error)

	// ListAllMedia returns every media asset row, across all records.
	ListAllMedia(ctx context.Context) ([]types.MediaAsset, error)

	// UpdateMediaAssets rewrites the device id and URI of the given assets.
	// Used by restore reconciliation to re-link media to local files.
	UpdateMediaAssets(ctx context.Context, assets []types.MediaAsset) error

	// Checkpoint forces a full WAL checkpoint so pending writes are flushed
	// into the primary database file before it is snapshotted.
	Checkpoint(ctx context.Context) error

	// Path returns the primary database file path, or "" for in-memory stores.
	Path() string

	// Close releases the underlying database connection.
	Close() error
}
