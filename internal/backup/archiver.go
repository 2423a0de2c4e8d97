package backup

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"
)

// BackupNow snapshots the database into a zip archive and uploads it to the
// remote drive. It returns the remote archive name. The local staging file
// is removed on every path, success or failure.
func (s *Service) BackupNow(ctx context.Context, automatic bool) (string, error) {
	if !s.busy.TryLock() {
		return "", ErrBusy
	}
	defer s.busy.Unlock()

	store := s.handle.Store()
	if store == nil {
		return "", fmt.Errorf("backup: storage is closed")
	}
	dbPath := store.Path()
	if dbPath == "" {
		return "", fmt.Errorf("backup: store has no database file")
	}

	// Flush pending WAL frames into the main file first. A failed
	// checkpoint is not fatal: the WAL and SHM side files ride along in
	// the archive, so the snapshot stays consistent either way.
	s.progress("checkpointing")
	if err := store.Checkpoint(ctx); err != nil {
		log.Printf("backup: checkpoint before snapshot failed: %v", err)
	}

	info, err := os.Stat(dbPath)
	if err != nil {
		return "", fmt.Errorf("backup: database not found: %w", err)
	}

	now := time.Now()
	name := ArchiveName(now, automatic)
	meta := newMetadata(now, info.Size(), automatic)

	if err := os.MkdirAll(s.config.WorkDir, 0o755); err != nil {
		return "", fmt.Errorf("backup: failed to create work dir: %w", err)
	}
	stagePath := filepath.Join(s.config.WorkDir, name)
	defer os.Remove(stagePath)

	s.progress("archiving")
	if err := stageArchive(stagePath, dbPath, meta); err != nil {
		return "", err
	}

	if err := s.drive.EnsureFolder(ctx, RemoteFolder); err != nil {
		return "", fmt.Errorf("backup: remote folder unavailable: %w", err)
	}

	f, err := os.Open(stagePath)
	if err != nil {
		return "", fmt.Errorf("backup: failed to reopen staged archive: %w", err)
	}
	defer f.Close()

	s.progress("uploading")
	if err := s.drive.Upload(ctx, RemoteFolder, name, f); err != nil {
		return "", fmt.Errorf("backup: upload failed: %w", err)
	}
	s.progress("done")
	return name, nil
}

func stageArchive(stagePath, dbPath string, meta Metadata) error {
	f, err := os.Create(stagePath)
	if err != nil {
		return fmt.Errorf("backup: failed to stage archive: %w", err)
	}

	if err := writeArchive(f, dbPath, meta); err != nil {
		f.Close()
		return fmt.Errorf("backup: failed to write archive: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("backup: failed to stage archive: %w", err)
	}
	return nil
}
