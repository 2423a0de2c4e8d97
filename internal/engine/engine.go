// Package engine is the orchestration layer behind the map UI. It wires
// storage, clustering and marker rendering together and keeps the backup
// service informed about data mutations.
package engine

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/scrypster/waymark/internal/media"
	"github.com/scrypster/waymark/internal/storage"
	"github.com/scrypster/waymark/pkg/types"
)

// MutationNotifier receives a fire-and-forget signal whenever memory data
// changes. The backup service implements it to schedule automatic backups.
type MutationNotifier interface {
	NotifyMutation()
}

// MediaSelection is one media file picked for a memory.
type MediaSelection struct {
	// Path is the local file path of the selected media.
	Path string

	// DateTaken is the capture time, zero when unknown.
	DateTaken time.Time
}

// DeletedMemory carries everything needed to undo a delete.
type DeletedMemory struct {
	Record types.MemoryRecord
	Media  []types.MediaAsset
}

// MapEngine coordinates memory CRUD with media fingerprinting and mutation
// notifications.
type MapEngine struct {
	handle   *storage.Handle
	notifier MutationNotifier
	deviceID string
}

// NewMapEngine creates the engine. notifier may be nil when automatic
// backups are disabled.
func NewMapEngine(handle *storage.Handle, notifier MutationNotifier, deviceID string) (*MapEngine, error) {
	if handle == nil {
		return nil, fmt.Errorf("engine: storage handle is required")
	}
	return &MapEngine{
		handle:   handle,
		notifier: notifier,
		deviceID: deviceID,
	}, nil
}

func (e *MapEngine) store() (storage.MemoryStore, error) {
	store := e.handle.Store()
	if store == nil {
		return nil, storage.ErrClosed
	}
	return store, nil
}

func (e *MapEngine) notifyMutation() {
	if e.notifier != nil {
		e.notifier.NotifyMutation()
	}
}

// SaveMemory validates and persists a record together with its media
// selection, fingerprinting each file so it can be re-linked after a restore.
// The full selection replaces any previously attached media. All-day records
// are normalized to span their full calendar days before saving.
func (e *MapEngine) SaveMemory(ctx context.Context, record types.MemoryRecord, selection []MediaSelection) (int64, error) {
	if err := record.Validate(); err != nil {
		return 0, err
	}
	record = record.NormalizeAllDay()

	store, err := e.store()
	if err != nil {
		return 0, err
	}

	assets, err := e.fingerprint(selection)
	if err != nil {
		return 0, err
	}

	id, err := store.SaveMemory(ctx, &record)
	if err != nil {
		return 0, err
	}
	for i := range assets {
		assets[i].MemoryID = id
	}
	if err := store.ReplaceMedia(ctx, id, assets); err != nil {
		return 0, err
	}

	e.notifyMutation()
	return id, nil
}

// fingerprint turns picked files into media asset rows. Non-media files are
// rejected; a file that disappears between picking and saving is skipped
// with a log line rather than failing the whole save.
func (e *MapEngine) fingerprint(selection []MediaSelection) ([]types.MediaAsset, error) {
	assets := make([]types.MediaAsset, 0, len(selection))
	for _, sel := range selection {
		kind, ok := media.KindForPath(sel.Path)
		if !ok {
			return nil, fmt.Errorf("engine: %s is not a supported media file", sel.Path)
		}

		info, err := os.Stat(sel.Path)
		if err != nil {
			log.Printf("engine: skipping unreadable media %s: %v", sel.Path, err)
			continue
		}
		signature, err := media.FileSignature(sel.Path)
		if err != nil {
			log.Printf("engine: skipping unreadable media %s: %v", sel.Path, err)
			continue
		}

		dateTaken := sel.DateTaken
		if dateTaken.IsZero() {
			dateTaken = info.ModTime()
		}
		assets = append(assets, types.MediaAsset{
			URI:       sel.Path,
			DeviceID:  e.deviceID,
			Kind:      kind,
			Signature: signature,
			FileSize:  info.Size(),
			DateTaken: dateTaken.UnixMilli(),
		})
	}
	return assets, nil
}

// GetMemory retrieves one record with its media.
func (e *MapEngine) GetMemory(ctx context.Context, id int64) (*types.MemoryRecord, []types.MediaAsset, error) {
	store, err := e.store()
	if err != nil {
		return nil, nil, err
	}
	record, err := store.GetMemory(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	assets, err := store.ListMedia(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return record, assets, nil
}

// DeleteMemory removes a record and returns a snapshot for undo.
func (e *MapEngine) DeleteMemory(ctx context.Context, id int64) (*DeletedMemory, error) {
	store, err := e.store()
	if err != nil {
		return nil, err
	}

	record, err := store.GetMemory(ctx, id)
	if err != nil {
		return nil, err
	}
	assets, err := store.ListMedia(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := store.DeleteMemory(ctx, id); err != nil {
		return nil, err
	}

	e.notifyMutation()
	return &DeletedMemory{Record: *record, Media: assets}, nil
}

// UndoDelete reinserts a deleted memory and its media under a fresh id,
// which it returns.
func (e *MapEngine) UndoDelete(ctx context.Context, deleted *DeletedMemory) (int64, error) {
	if deleted == nil {
		return 0, fmt.Errorf("engine: nothing to undo")
	}
	store, err := e.store()
	if err != nil {
		return 0, err
	}

	record := deleted.Record
	record.ID = 0
	id, err := store.SaveMemory(ctx, &record)
	if err != nil {
		return 0, err
	}

	assets := make([]types.MediaAsset, len(deleted.Media))
	copy(assets, deleted.Media)
	for i := range assets {
		assets[i].ID = 0
		assets[i].MemoryID = id
	}
	if err := store.ReplaceMedia(ctx, id, assets); err != nil {
		return 0, err
	}

	e.notifyMutation()
	return id, nil
}
