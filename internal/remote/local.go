package remote

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// DirDrive stores files under a root directory on a mounted filesystem,
// one subdirectory per folder. It backs the common case of a synced drive
// mount (USB disk, network share, cloud sync folder).
type DirDrive struct {
	root string
}

// NewDirDrive returns a drive rooted at the given directory. The root itself
// is created lazily by EnsureFolder.
func NewDirDrive(root string) *DirDrive {
	return &DirDrive{root: root}
}

func (d *DirDrive) folderPath(folder string) string {
	return filepath.Join(d.root, folder)
}

func (d *DirDrive) EnsureFolder(ctx context.Context, folder string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(d.folderPath(folder), 0o755); err != nil {
		return fmt.Errorf("failed to create folder %s: %w", folder, err)
	}
	return nil
}

func (d *DirDrive) List(ctx context.Context, folder string) ([]File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(d.folderPath(folder))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list folder %s: %w", folder, err)
	}

	var files []File
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, File{
			Name:     entry.Name(),
			Size:     info.Size(),
			Modified: info.ModTime(),
		})
	}
	return files, nil
}

func (d *DirDrive) Upload(ctx context.Context, folder, name string, r io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// Write to a temp file first so a partial upload never replaces a good
	// archive.
	dir := d.folderPath(folder)
	tmp, err := os.CreateTemp(dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to stage upload of %s: %w", name, err)
	}
	tmpPath := tmp.Name()

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to upload %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to upload %s: %w", name, err)
	}
	if err := os.Rename(tmpPath, filepath.Join(dir, name)); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to finalize upload of %s: %w", name, err)
	}
	return nil
}

func (d *DirDrive) Download(ctx context.Context, folder, name string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(d.folderPath(folder), name))
	if os.IsNotExist(err) {
		return nil, ErrFileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", name, err)
	}
	return f, nil
}

func (d *DirDrive) Delete(ctx context.Context, folder, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := os.Remove(filepath.Join(d.folderPath(folder), name))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete %s: %w", name, err)
	}
	return nil
}
