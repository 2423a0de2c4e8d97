package backup

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// writeArchive writes the backup zip to w. The database file is required;
// the WAL and SHM side files are included only when present on disk.
func writeArchive(w io.Writer, dbPath string, meta Metadata) error {
	zw := zip.NewWriter(w)

	if err := addFileMember(zw, memberDatabase, dbPath); err != nil {
		return err
	}
	for member, path := range map[string]string{
		memberWAL: dbPath + "-wal",
		memberSHM: dbPath + "-shm",
	} {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := addFileMember(zw, member, path); err != nil {
			return err
		}
	}

	mw, err := zw.Create(memberMetadata)
	if err != nil {
		return fmt.Errorf("failed to add %s: %w", memberMetadata, err)
	}
	enc := json.NewEncoder(mw)
	if err := enc.Encode(meta); err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finalize archive: %w", err)
	}
	return nil
}

func addFileMember(zw *zip.Writer, member, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	w, err := zw.Create(member)
	if err != nil {
		return fmt.Errorf("failed to add %s: %w", member, err)
	}
	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to write %s: %w", member, err)
	}
	return nil
}

// extractArchive unpacks the zip at archivePath into destDir and returns the
// parsed metadata. Entries whose names would escape destDir are skipped and
// logged, never written. An archive without a metadata member is rejected as
// invalid.
func extractArchive(archivePath, destDir string) (*Metadata, error) {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBackup, err)
	}
	defer zr.Close()

	var meta *Metadata
	for _, entry := range zr.File {
		target, ok := safeJoin(destDir, entry.Name)
		if !ok {
			log.Printf("backup: skipping archive entry with unsafe path %q", entry.Name)
			continue
		}
		if entry.FileInfo().IsDir() {
			continue
		}

		if err := extractMember(entry, target); err != nil {
			return nil, err
		}

		if entry.Name == memberMetadata {
			m, err := readMetadata(target)
			if err != nil {
				return nil, err
			}
			meta = m
		}
	}

	if meta == nil {
		return nil, fmt.Errorf("%w: missing %s", ErrInvalidBackup, memberMetadata)
	}
	if _, err := os.Stat(filepath.Join(destDir, memberDatabase)); err != nil {
		return nil, fmt.Errorf("%w: missing %s", ErrInvalidBackup, memberDatabase)
	}
	return meta, nil
}

// safeJoin resolves an archive entry name under dir, rejecting absolute
// paths and any name that traverses outside dir.
func safeJoin(dir, name string) (string, bool) {
	if name == "" || filepath.IsAbs(name) || strings.HasPrefix(name, "/") {
		return "", false
	}
	target := filepath.Join(dir, filepath.FromSlash(name))
	if target != dir && !strings.HasPrefix(target, dir+string(os.PathSeparator)) {
		return "", false
	}
	return target, true
}

func extractMember(entry *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("failed to extract %s: %w", entry.Name, err)
	}

	r, err := entry.Open()
	if err != nil {
		return fmt.Errorf("failed to extract %s: %w", entry.Name, err)
	}
	defer r.Close()

	f, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("failed to extract %s: %w", entry.Name, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return fmt.Errorf("failed to extract %s: %w", entry.Name, err)
	}
	return nil
}

func readMetadata(path string) (*Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: unreadable metadata: %v", ErrInvalidBackup, err)
	}
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("%w: malformed metadata: %v", ErrInvalidBackup, err)
	}
	return &meta, nil
}
