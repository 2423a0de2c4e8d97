package backup

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
)

// RestoreResult summarizes one completed restore.
type RestoreResult struct {
	Metadata Metadata

	// Relinked is the number of media assets re-pointed at local files.
	Relinked int

	// Unresolved is the number of assets needing re-linking for which no
	// local match was found. They keep their stale URIs.
	Unresolved int
}

// Restore downloads the named archive, swaps the database files underneath a
// quiesced store, reopens it and reconciles media references against the
// local media index.
//
// The store is closed only after the archive has been downloaded and
// validated, so an invalid or unreachable backup leaves the live database
// untouched.
func (s *Service) Restore(ctx context.Context, name string) (*RestoreResult, error) {
	if !s.busy.TryLock() {
		return nil, ErrBusy
	}
	defer s.busy.Unlock()

	store := s.handle.Store()
	if store == nil {
		return nil, fmt.Errorf("backup: storage is closed")
	}
	dbPath := store.Path()
	if dbPath == "" {
		return nil, fmt.Errorf("backup: store has no database file")
	}

	if err := os.MkdirAll(s.config.WorkDir, 0o755); err != nil {
		return nil, fmt.Errorf("backup: failed to create work dir: %w", err)
	}
	stageDir, err := os.MkdirTemp(s.config.WorkDir, "restore-*")
	if err != nil {
		return nil, fmt.Errorf("backup: failed to create staging dir: %w", err)
	}
	defer os.RemoveAll(stageDir)

	archivePath := filepath.Join(stageDir, name)
	s.progress("downloading")
	if err := s.download(ctx, name, archivePath); err != nil {
		return nil, err
	}

	extractDir := filepath.Join(stageDir, "extracted")
	s.progress("extracting")
	meta, err := extractArchive(archivePath, extractDir)
	if err != nil {
		return nil, err
	}

	s.progress("swapping database")
	if err := s.handle.CloseForRestore(); err != nil {
		return nil, err
	}
	swapErr := swapDatabaseFiles(extractDir, dbPath)
	if err := s.handle.Reopen(); err != nil {
		return nil, err
	}
	if swapErr != nil {
		return nil, swapErr
	}

	s.progress("re-linking media")
	relinked, unresolved, err := s.reconcileMedia(ctx)
	if err != nil {
		// The database itself restored fine; report the reconcile
		// failure without undoing the restore.
		log.Printf("backup: media reconciliation failed: %v", err)
	}

	s.progress("done")
	return &RestoreResult{
		Metadata:   *meta,
		Relinked:   relinked,
		Unresolved: unresolved,
	}, nil
}

func (s *Service) download(ctx context.Context, name, dest string) error {
	rc, err := s.drive.Download(ctx, RemoteFolder, name)
	if err != nil {
		return fmt.Errorf("backup: download of %s failed: %w", name, err)
	}
	defer rc.Close()

	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("backup: failed to stage download: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, rc); err != nil {
		return fmt.Errorf("backup: download of %s failed: %w", name, err)
	}
	return nil
}

// swapDatabaseFiles moves the extracted database over the live one. Side
// files present in the archive replace their local counterparts; side files
// absent from the archive are deleted locally so a stale WAL can't replay
// old frames over the restored database.
func swapDatabaseFiles(extractDir, dbPath string) error {
	if err := copyFile(filepath.Join(extractDir, memberDatabase), dbPath); err != nil {
		return fmt.Errorf("backup: failed to replace database: %w", err)
	}

	for member, sidePath := range map[string]string{
		memberWAL: dbPath + "-wal",
		memberSHM: dbPath + "-shm",
	} {
		extracted := filepath.Join(extractDir, member)
		if _, err := os.Stat(extracted); err == nil {
			if err := copyFile(extracted, sidePath); err != nil {
				return fmt.Errorf("backup: failed to replace %s: %w", member, err)
			}
			continue
		}
		if err := os.Remove(sidePath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("backup: failed to remove stale %s: %w", member, err)
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
