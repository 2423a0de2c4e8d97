// Package media computes content-addressed signatures for media files and
// maintains a local media index used to re-link restored assets to files on
// the current device.
package media

import (
	"crypto/md5"
	"fmt"
	"io"
	"os"
)

const (
	// signatureBlockSize is the window hashed at each end of the file.
	signatureBlockSize = 4096

	// smallFileLimit is the size at or below which the whole file is hashed
	// sequentially, avoiding skip edge cases on small files.
	smallFileLimit = 2 * signatureBlockSize
)

// ComputeSignature fingerprints a media stream as "{sizeBytes}_{hexDigest}".
//
// The digest covers the first 4KB and, for files over 8KB, the last 4KB; the
// middle is skipped. Two files with identical size and identical head/tail
// windows therefore collide silently. That is an accepted tradeoff for cheap
// hashing of large videos; the signature only needs to be stable, not
// collision resistant, so an MD5-class digest is sufficient.
//
// Any read failure, including a skip that advances a different byte count
// than requested, returns ("", err). Callers handle absence explicitly.
func ComputeSignature(r io.Reader, size int64) (string, error) {
	digest := md5.New()
	buf := make([]byte, signatureBlockSize)

	n, err := io.ReadFull(r, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", fmt.Errorf("media: failed to read head block: %w", err)
	}
	digest.Write(buf[:n])

	if size <= smallFileLimit {
		// Small file: hash the remainder sequentially.
		if _, err := io.Copy(digest, r); err != nil {
			return "", fmt.Errorf("media: failed to read remainder: %w", err)
		}
	} else {
		remaining := size - int64(n)
		skip := remaining - signatureBlockSize
		if skip > 0 {
			skipped, err := io.CopyN(io.Discard, r, skip)
			if err != nil {
				return "", fmt.Errorf("media: failed to skip to tail block: %w", err)
			}
			if skipped != skip {
				return "", fmt.Errorf("media: short skip: advanced %d of %d bytes", skipped, skip)
			}
		}
		if _, err := io.Copy(digest, r); err != nil {
			return "", fmt.Errorf("media: failed to read tail block: %w", err)
		}
	}

	return fmt.Sprintf("%d_%x", size, digest.Sum(nil)), nil
}

// FileSignature computes the signature of a file on disk.
func FileSignature(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("media: failed to stat %s: %w", path, err)
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("media: failed to open %s: %w", path, err)
	}
	defer f.Close()

	return ComputeSignature(f, info.Size())
}
