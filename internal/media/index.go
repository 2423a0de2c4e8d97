package media

import (
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Candidate is a local media file that may match a restored asset.
type Candidate struct {
	// URI is the file locator (a plain path for directory-based indexes).
	URI string

	// Signature is the content fingerprint of the file.
	Signature string

	// FileSize is the file size in bytes.
	FileSize int64
}

// Index maintains a byte-size index over the media files in a set of
// directories. Byte size is a cheap pre-filter: restore reconciliation first
// narrows candidates by exact size and only then pays for signature
// computation. The pre-filter can produce false candidates (two unrelated
// files of identical size), so it is never treated as an exhaustive match.
type Index struct {
	dirs []string

	mu    sync.RWMutex
	sizes map[int64][]string // size -> paths
	paths map[string]int64   // path -> indexed size

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewIndex creates an index over the given media directories.
func NewIndex(dirs []string) *Index {
	return &Index{
		dirs:  dirs,
		sizes: make(map[int64][]string),
		paths: make(map[string]int64),
	}
}

// Scan walks the media directories and rebuilds the size index. Unreadable
// entries are logged and skipped; a missing directory is not an error.
func (ix *Index) Scan() error {
	sizes := make(map[int64][]string)
	paths := make(map[string]int64)

	for _, dir := range ix.dirs {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				log.Printf("media: skipping %s: %v", path, err)
				return nil
			}
			if d.IsDir() {
				return nil
			}
			if _, ok := KindForPath(path); !ok {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				log.Printf("media: failed to stat %s: %v", path, err)
				return nil
			}
			sizes[info.Size()] = append(sizes[info.Size()], path)
			paths[path] = info.Size()
			return nil
		})
		if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("media: failed to scan %s: %w", dir, err)
		}
	}

	ix.mu.Lock()
	ix.sizes = sizes
	ix.paths = paths
	ix.mu.Unlock()
	return nil
}

// Watch starts an fsnotify watcher that keeps the index fresh as media
// files appear, change, or disappear. Call Stop to clean up.
func (ix *Index) Watch() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("media: failed to create watcher: %w", err)
	}
	for _, dir := range ix.dirs {
		if err := w.Add(dir); err != nil {
			log.Printf("media: not watching %s: %v", dir, err)
		}
	}
	ix.watcher = w
	ix.done = make(chan struct{})

	go ix.loop()
	return nil
}

// Stop shuts down the watcher, if one was started.
func (ix *Index) Stop() {
	if ix.watcher != nil {
		_ = ix.watcher.Close()
		<-ix.done
	}
}

func (ix *Index) loop() {
	defer close(ix.done)
	for {
		select {
		case event, ok := <-ix.watcher.Events:
			if !ok {
				return
			}
			ix.handleEvent(event)
		case err, ok := <-ix.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("media: watcher error: %v", err)
		}
	}
}

func (ix *Index) handleEvent(event fsnotify.Event) {
	if _, ok := KindForPath(event.Name); !ok {
		return
	}

	switch {
	case event.Op.Has(fsnotify.Remove) || event.Op.Has(fsnotify.Rename):
		ix.forget(event.Name)
	case event.Op.Has(fsnotify.Create) || event.Op.Has(fsnotify.Write):
		info, err := os.Stat(event.Name)
		if err != nil {
			ix.forget(event.Name)
			return
		}
		ix.remember(event.Name, info.Size())
	}
}

func (ix *Index) forget(path string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	size, ok := ix.paths[path]
	if !ok {
		return
	}
	delete(ix.paths, path)

	entries := ix.sizes[size]
	for i, p := range entries {
		if p == path {
			ix.sizes[size] = append(entries[:i], entries[i+1:]...)
			break
		}
	}
	if len(ix.sizes[size]) == 0 {
		delete(ix.sizes, size)
	}
}

func (ix *Index) remember(path string, size int64) {
	ix.forget(path) // drop a stale entry under the old size, if any

	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.paths[path] = size
	ix.sizes[size] = append(ix.sizes[size], path)
}

// QueryBySizes returns candidates for the given byte sizes, with signatures
// computed on demand. Files that fail to hash (deleted meanwhile, permission
// lost) are logged and skipped; the query proceeds with degraded completeness.
func (ix *Index) QueryBySizes(sizes []int64) []Candidate {
	wanted := make(map[int64]bool, len(sizes))
	for _, s := range sizes {
		wanted[s] = true
	}

	ix.mu.RLock()
	var paths []string
	for size := range wanted {
		paths = append(paths, ix.sizes[size]...)
	}
	ix.mu.RUnlock()

	var candidates []Candidate
	for _, path := range paths {
		sig, err := FileSignature(path)
		if err != nil {
			log.Printf("media: failed to hash %s: %v", path, err)
			continue
		}
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		candidates = append(candidates, Candidate{URI: path, Signature: sig, FileSize: info.Size()})
	}
	return candidates
}
