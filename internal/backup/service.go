package backup

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/scrypster/waymark/internal/media"
	"github.com/scrypster/waymark/internal/remote"
	"github.com/scrypster/waymark/internal/storage"
)

// ProgressFunc receives coarse stage updates while a backup or restore
// runs, for surfacing in a UI. Calls happen on the operation's goroutine.
type ProgressFunc func(stage string)

// Config holds backup service configuration.
type Config struct {
	// WorkDir is a local scratch directory for staging archives.
	WorkDir string

	// DeviceID is this installation's identity, recorded on media rows and
	// compared during restore reconciliation.
	DeviceID string

	// AutoInterval is the minimum spacing between automatic backups
	// triggered by data mutations. Default: 6 hours.
	AutoInterval time.Duration

	// OnProgress, when set, receives stage updates during backup and
	// restore.
	OnProgress ProgressFunc
}

// Service coordinates backup and restore against one storage handle. At most
// one backup or restore runs at a time; concurrent requests fail fast with
// ErrBusy rather than queueing behind a long upload.
type Service struct {
	handle *storage.Handle
	drive  remote.Drive
	index  *media.Index
	config Config

	// busy is locked with TryLock so a second operation is rejected,
	// not serialized.
	busy sync.Mutex

	limiter *rate.Limiter
	notify  chan struct{}

	startMu  sync.Mutex
	started  bool
	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}
}

// NewService creates the backup service. Call Start to enable automatic
// backups; BackupNow and Restore work without it.
func NewService(handle *storage.Handle, drive remote.Drive, index *media.Index, config Config) *Service {
	if config.AutoInterval <= 0 {
		config.AutoInterval = 6 * time.Hour
	}
	return &Service{
		handle: handle,
		drive:  drive,
		index:  index,
		config: config,

		// One automatic backup per interval, with one burst slot so the
		// first mutation after startup backs up immediately.
		limiter: rate.NewLimiter(rate.Every(config.AutoInterval), 1),
		notify:  make(chan struct{}, 1),
		stopCh:  make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// NotifyMutation signals that data changed and an automatic backup may be
// due. It never blocks; coalescing multiple rapid mutations into one pending
// signal is the point.
func (s *Service) NotifyMutation() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Start runs the automatic backup worker until Stop is called or ctx ends.
// Calling Start more than once is a no-op.
func (s *Service) Start(ctx context.Context) {
	s.startMu.Lock()
	defer s.startMu.Unlock()
	if s.started {
		return
	}
	s.started = true
	go s.run(ctx)
}

// Stop shuts down the automatic backup worker and waits for it to exit.
// Safe to call when Start was never used.
func (s *Service) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })

	s.startMu.Lock()
	started := s.started
	s.startMu.Unlock()
	if started {
		<-s.done
	}
}

func (s *Service) progress(stage string) {
	if s.config.OnProgress != nil {
		s.config.OnProgress(stage)
	}
}

func (s *Service) run(ctx context.Context) {
	defer close(s.done)
	log.Printf("backup: automatic backup worker started (interval %v)", s.config.AutoInterval)

	backup := func() {
		name, err := s.BackupNow(ctx, true)
		if err != nil {
			log.Printf("backup: automatic backup failed: %v", err)
			return
		}
		log.Printf("backup: automatic backup uploaded as %s", name)
	}

	// A mutation inside the throttle window arms a deferred backup at the
	// window's edge instead of being dropped, so the last write of a burst
	// is always captured eventually.
	var pending <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-s.notify:
			if pending != nil {
				// The armed backup will cover this mutation too.
				continue
			}
			if delay := s.limiter.Reserve().Delay(); delay > 0 {
				pending = time.After(delay)
				continue
			}
			backup()
		case <-pending:
			pending = nil
			backup()
		}
	}
}

// ListRemote returns the backup archives currently on the drive, newest
// first by name (the timestamped naming scheme sorts chronologically).
func (s *Service) ListRemote(ctx context.Context) ([]remote.File, error) {
	files, err := s.drive.List(ctx, RemoteFolder)
	if err != nil {
		return nil, err
	}
	var archives []remote.File
	for _, f := range files {
		if IsArchiveName(f.Name) {
			archives = append(archives, f)
		}
	}
	sort.Slice(archives, func(i, j int) bool {
		return archiveSortKey(archives[i].Name) > archiveSortKey(archives[j].Name)
	})
	return archives, nil
}

// DeleteRemote removes one archive from the drive.
func (s *Service) DeleteRemote(ctx context.Context, name string) error {
	return s.drive.Delete(ctx, RemoteFolder, name)
}
