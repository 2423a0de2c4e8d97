// Package remote abstracts the off-device drive that receives backup
// archives. The backup layer talks only to the Drive interface; concrete
// implementations cover a local mirror directory and a circuit-broken wrapper
// for flaky transports.
package remote

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrFileNotFound is returned when a named file does not exist in the folder.
var ErrFileNotFound = errors.New("remote: file not found")

// File describes one stored object inside a drive folder.
type File struct {
	Name     string
	Size     int64
	Modified time.Time
}

// Drive is the minimal surface the backup layer needs from remote storage.
// All methods take a folder name; implementations create folders on demand
// via EnsureFolder and treat them as flat namespaces.
type Drive interface {
	// EnsureFolder creates the folder if it does not exist yet.
	EnsureFolder(ctx context.Context, folder string) error

	// List returns the files currently in the folder, in unspecified order.
	// A missing folder lists as empty rather than failing.
	List(ctx context.Context, folder string) ([]File, error)

	// Upload streams r into folder/name, replacing any existing file.
	Upload(ctx context.Context, folder, name string, r io.Reader) error

	// Download opens folder/name for reading. The caller closes the reader.
	Download(ctx context.Context, folder, name string) (io.ReadCloser, error)

	// Delete removes folder/name. Deleting a missing file is not an error.
	Delete(ctx context.Context, folder, name string) error
}
