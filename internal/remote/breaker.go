package remote

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/sony/gobreaker"
)

// ErrDriveUnavailable is returned while the circuit is open and calls are
// rejected without touching the underlying drive.
var ErrDriveUnavailable = errors.New("remote: drive unavailable")

// BreakerConfig tunes the circuit around a drive.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive failures required to trip
	// the circuit. Default: 3.
	MaxFailures uint32

	// Timeout is how long the circuit stays open before probing again.
	// Default: 30 seconds.
	Timeout time.Duration

	// HalfOpenMaxRequests is the number of probe requests allowed while
	// half-open. Default: 2.
	HalfOpenMaxRequests uint32
}

// BreakerDrive wraps another Drive with a circuit breaker so a dead mount or
// unreachable share fails fast instead of stalling every backup attempt.
type BreakerDrive struct {
	inner   Drive
	breaker *gobreaker.CircuitBreaker
}

// NewBreakerDrive wraps inner with default breaker settings.
func NewBreakerDrive(inner Drive) *BreakerDrive {
	return NewBreakerDriveWithConfig(inner, BreakerConfig{
		MaxFailures:         3,
		Timeout:             30 * time.Second,
		HalfOpenMaxRequests: 2,
	})
}

// NewBreakerDriveWithConfig wraps inner with custom breaker settings.
func NewBreakerDriveWithConfig(inner Drive, config BreakerConfig) *BreakerDrive {
	if config.MaxFailures == 0 {
		config.MaxFailures = 3
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.HalfOpenMaxRequests == 0 {
		config.HalfOpenMaxRequests = 2
	}

	settings := gobreaker.Settings{
		Name:        "RemoteDrive",
		MaxRequests: config.HalfOpenMaxRequests,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= config.MaxFailures
		},
	}

	return &BreakerDrive{
		inner:   inner,
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

func (b *BreakerDrive) execute(fn func() (interface{}, error)) (interface{}, error) {
	result, err := b.breaker.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, ErrDriveUnavailable
	}
	return result, err
}

func (b *BreakerDrive) EnsureFolder(ctx context.Context, folder string) error {
	_, err := b.execute(func() (interface{}, error) {
		return nil, b.inner.EnsureFolder(ctx, folder)
	})
	return err
}

func (b *BreakerDrive) List(ctx context.Context, folder string) ([]File, error) {
	result, err := b.execute(func() (interface{}, error) {
		return b.inner.List(ctx, folder)
	})
	if err != nil {
		return nil, err
	}
	files, _ := result.([]File)
	return files, nil
}

func (b *BreakerDrive) Upload(ctx context.Context, folder, name string, r io.Reader) error {
	_, err := b.execute(func() (interface{}, error) {
		return nil, b.inner.Upload(ctx, folder, name, r)
	})
	return err
}

func (b *BreakerDrive) Download(ctx context.Context, folder, name string) (io.ReadCloser, error) {
	result, err := b.execute(func() (interface{}, error) {
		rc, err := b.inner.Download(ctx, folder, name)
		// A missing file is an answer from a healthy drive, not a
		// transport failure, so it must not trip the circuit.
		if errors.Is(err, ErrFileNotFound) {
			return nil, nil
		}
		return rc, err
	})
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, ErrFileNotFound
	}
	return result.(io.ReadCloser), nil
}

func (b *BreakerDrive) Delete(ctx context.Context, folder, name string) error {
	_, err := b.execute(func() (interface{}, error) {
		return nil, b.inner.Delete(ctx, folder, name)
	})
	return err
}
