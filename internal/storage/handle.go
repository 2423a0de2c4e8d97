package storage

import (
	"fmt"
	"sync"
)

// Handle owns the single process-wide open store. It replaces a hidden
// singleton with an explicit value constructed once at startup and passed to
// whichever component needs it. The restore flow uses CloseForRestore and
// Reopen to guarantee no live connection outlives the database files it was
// opened against while they are being replaced on disk.
type Handle struct {
	open func() (MemoryStore, error)

	mu    sync.Mutex
	store MemoryStore
}

// NewHandle creates a handle around an opener function and opens the store.
func NewHandle(open func() (MemoryStore, error)) (*Handle, error) {
	store, err := open()
	if err != nil {
		return nil, fmt.Errorf("storage: failed to open store: %w", err)
	}
	return &Handle{open: open, store: store}, nil
}

// Store returns the currently open store, or nil while a restore has the
// storage quiesced.
func (h *Handle) Store() MemoryStore {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.store
}

// CloseForRestore closes the open store and leaves the handle empty so that
// the database files can be replaced. Callers must pair it with Reopen.
func (h *Handle) CloseForRestore() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.store == nil {
		return nil
	}
	err := h.store.Close()
	h.store = nil
	if err != nil {
		return fmt.Errorf("storage: failed to close store for restore: %w", err)
	}
	return nil
}

// Reopen opens a fresh store against the (possibly replaced) database files.
// It is a no-op when the store is already open.
func (h *Handle) Reopen() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.store != nil {
		return nil
	}
	store, err := h.open()
	if err != nil {
		return fmt.Errorf("storage: failed to reopen store: %w", err)
	}
	h.store = store
	return nil
}

// Close closes the store if it is open.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.store == nil {
		return nil
	}
	err := h.store.Close()
	h.store = nil
	return err
}
