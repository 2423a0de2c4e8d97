package sqlite

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/scrypster/waymark/internal/storage"
	"github.com/scrypster/waymark/pkg/types"
)

// newTestStore creates an in-memory store. Open applies the full embedded
// schema, so no additional DDL is required in tests.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testRecord(title string) *types.MemoryRecord {
	start := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	return &types.MemoryRecord{
		Title:     title,
		Latitude:  47.4979,
		Longitude: 19.0402,
		PlaceName: "Budapest",
		Address:   "Hungary",
		StartDate: start,
		EndDate:   start.Add(2 * time.Hour),
		MarkerHue: 120,
	}
}

func TestSaveAssignsIDAndRoundTrips(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec := testRecord("First trip")
	rec.Description = "A long weekend"

	id, err := store.SaveMemory(ctx, rec)
	if err != nil {
		t.Fatalf("SaveMemory() failed: %v", err)
	}
	if id == 0 {
		t.Fatal("SaveMemory() returned id 0 for an insert")
	}
	if rec.ID != id {
		t.Errorf("SaveMemory() did not write id back: got %d, want %d", rec.ID, id)
	}

	got, err := store.GetMemory(ctx, id)
	if err != nil {
		t.Fatalf("GetMemory() failed: %v", err)
	}
	if got.Title != rec.Title || got.Description != rec.Description {
		t.Errorf("round trip mismatch: got %+v", got)
	}
	if !got.StartDate.Equal(rec.StartDate) || !got.EndDate.Equal(rec.EndDate) {
		t.Errorf("date round trip mismatch: got %v-%v, want %v-%v",
			got.StartDate, got.EndDate, rec.StartDate, rec.EndDate)
	}
	if got.MarkerHue != rec.MarkerHue {
		t.Errorf("MarkerHue: got %v, want %v", got.MarkerHue, rec.MarkerHue)
	}
}

func TestSaveUpdatesInPlace(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec := testRecord("Before")
	id, err := store.SaveMemory(ctx, rec)
	if err != nil {
		t.Fatalf("SaveMemory() failed: %v", err)
	}

	rec.Title = "After"
	rec.MarkerHue = 240
	if _, err := store.SaveMemory(ctx, rec); err != nil {
		t.Fatalf("SaveMemory() update failed: %v", err)
	}

	got, err := store.GetMemory(ctx, id)
	if err != nil {
		t.Fatalf("GetMemory() failed: %v", err)
	}
	if got.Title != "After" || got.MarkerHue != 240 {
		t.Errorf("update not applied: got %+v", got)
	}

	all, err := store.ListMemories(ctx)
	if err != nil {
		t.Fatalf("ListMemories() failed: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("update created a new row: have %d rows", len(all))
	}
}

func TestSaveValidation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec := testRecord("")
	if _, err := store.SaveMemory(ctx, rec); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("SaveMemory() with empty title: got %v, want ErrInvalidInput", err)
	}

	missing := testRecord("Ghost")
	missing.ID = 9999
	if _, err := store.SaveMemory(ctx, missing); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("SaveMemory() update of missing row: got %v, want ErrNotFound", err)
	}
}

func TestDeleteCascadesToMedia(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec := testRecord("With media")
	id, err := store.SaveMemory(ctx, rec)
	if err != nil {
		t.Fatalf("SaveMemory() failed: %v", err)
	}

	assets := []types.MediaAsset{
		{URI: "file:///a.jpg", DeviceID: "dev-1", Kind: types.MediaImage, Signature: "10_aa", FileSize: 10},
		{URI: "file:///b.mp4", DeviceID: "dev-1", Kind: types.MediaVideo, Signature: "20_bb", FileSize: 20},
	}
	if err := store.ReplaceMedia(ctx, id, assets); err != nil {
		t.Fatalf("ReplaceMedia() failed: %v", err)
	}

	media, err := store.ListMedia(ctx, id)
	if err != nil {
		t.Fatalf("ListMedia() failed: %v", err)
	}
	if len(media) != 2 {
		t.Fatalf("ListMedia(): got %d assets, want 2", len(media))
	}

	if err := store.DeleteMemory(ctx, id); err != nil {
		t.Fatalf("DeleteMemory() failed: %v", err)
	}

	orphans, err := store.ListAllMedia(ctx)
	if err != nil {
		t.Fatalf("ListAllMedia() failed: %v", err)
	}
	if len(orphans) != 0 {
		t.Errorf("cascade delete left %d orphaned media rows", len(orphans))
	}

	if err := store.DeleteMemory(ctx, id); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("DeleteMemory() of missing row: got %v, want ErrNotFound", err)
	}
}

func TestReplaceMediaSwapsSet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.SaveMemory(ctx, testRecord("Edited"))
	if err != nil {
		t.Fatalf("SaveMemory() failed: %v", err)
	}

	first := []types.MediaAsset{
		{URI: "file:///old.jpg", DeviceID: "dev-1", Kind: types.MediaImage, Signature: "1_x", FileSize: 1},
	}
	if err := store.ReplaceMedia(ctx, id, first); err != nil {
		t.Fatalf("ReplaceMedia() failed: %v", err)
	}

	second := []types.MediaAsset{
		{URI: "file:///new1.jpg", DeviceID: "dev-1", Kind: types.MediaImage, Signature: "2_y", FileSize: 2},
		{URI: "file:///new2.jpg", DeviceID: "dev-1", Kind: types.MediaImage, Signature: "3_z", FileSize: 3},
	}
	if err := store.ReplaceMedia(ctx, id, second); err != nil {
		t.Fatalf("ReplaceMedia() failed: %v", err)
	}

	media, err := store.ListMedia(ctx, id)
	if err != nil {
		t.Fatalf("ListMedia() failed: %v", err)
	}
	if len(media) != 2 {
		t.Fatalf("ReplaceMedia() did not swap: got %d assets, want 2", len(media))
	}
	for _, a := range media {
		if a.URI == "file:///old.jpg" {
			t.Error("ReplaceMedia() kept a stale asset")
		}
	}
}

func TestUpdateMediaAssets(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.SaveMemory(ctx, testRecord("Relink"))
	if err != nil {
		t.Fatalf("SaveMemory() failed: %v", err)
	}
	assets := []types.MediaAsset{
		{URI: "content://other-device/1", DeviceID: "dev-old", Kind: types.MediaImage, Signature: "5_s", FileSize: 5},
	}
	if err := store.ReplaceMedia(ctx, id, assets); err != nil {
		t.Fatalf("ReplaceMedia() failed: %v", err)
	}

	assets[0].DeviceID = "dev-new"
	assets[0].URI = "file:///local/photo.jpg"
	if err := store.UpdateMediaAssets(ctx, assets); err != nil {
		t.Fatalf("UpdateMediaAssets() failed: %v", err)
	}

	media, err := store.ListMedia(ctx, id)
	if err != nil {
		t.Fatalf("ListMedia() failed: %v", err)
	}
	if media[0].DeviceID != "dev-new" || media[0].URI != "file:///local/photo.jpg" {
		t.Errorf("UpdateMediaAssets() not applied: got %+v", media[0])
	}
	if media[0].Signature != "5_s" {
		t.Errorf("UpdateMediaAssets() must not touch the signature: got %q", media[0].Signature)
	}
}

func TestCheckpointFlushesWAL(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "waymark.db")

	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	if _, err := store.SaveMemory(ctx, testRecord("Checkpointed")); err != nil {
		t.Fatalf("SaveMemory() failed: %v", err)
	}

	if err := store.Checkpoint(ctx); err != nil {
		t.Fatalf("Checkpoint() failed: %v", err)
	}

	// After a FULL checkpoint the primary file must hold the row on its own.
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("database file missing after checkpoint: %v", err)
	}
	if info.Size() == 0 {
		t.Error("database file empty after checkpoint")
	}
}

func TestHandleCloseForRestoreAndReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "waymark.db")

	handle, err := storage.NewHandle(func() (storage.MemoryStore, error) {
		return Open(path)
	})
	if err != nil {
		t.Fatalf("NewHandle() failed: %v", err)
	}
	defer handle.Close()

	ctx := context.Background()
	if _, err := handle.Store().SaveMemory(ctx, testRecord("Survives reopen")); err != nil {
		t.Fatalf("SaveMemory() failed: %v", err)
	}

	if err := handle.CloseForRestore(); err != nil {
		t.Fatalf("CloseForRestore() failed: %v", err)
	}
	if handle.Store() != nil {
		t.Fatal("Store() must be nil while quiesced")
	}

	if err := handle.Reopen(); err != nil {
		t.Fatalf("Reopen() failed: %v", err)
	}
	records, err := handle.Store().ListMemories(ctx)
	if err != nil {
		t.Fatalf("ListMemories() after reopen failed: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("reopened store lost data: got %d records, want 1", len(records))
	}
}
