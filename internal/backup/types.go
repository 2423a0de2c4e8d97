// Package backup packages the live database into zip archives on a remote
// drive and restores from them, re-linking media files afterwards so a
// restored library works on a different device.
package backup

import (
	"errors"
	"strings"
	"time"
)

// Archive member names. The database file is stored under a fixed name so a
// restore works regardless of the source device's local path.
const (
	memberDatabase = "database.sqlite"
	memberWAL      = "database.sqlite-wal"
	memberSHM      = "database.sqlite-shm"
	memberMetadata = "metadata.json"
)

// Remote layout.
const (
	// RemoteFolder is the drive folder that holds all backup archives.
	RemoteFolder = "Waymark Backups"

	automaticPrefix = "Waymark_Automatic_Backup_"
	manualPrefix    = "Waymark_Manual_Backup_"

	archiveTimeLayout = "20060102_150405"
)

// metadataVersion is the current archive format version.
const metadataVersion = 1

// ErrInvalidBackup is returned for archives missing required members.
var ErrInvalidBackup = errors.New("backup: invalid archive")

// ErrBusy is returned when a backup or restore is already in progress.
var ErrBusy = errors.New("backup: operation already in progress")

// Metadata is the manifest stored alongside the database in every archive.
// Field names are part of the archive format and must not change.
type Metadata struct {
	// Timestamp is the creation time in milliseconds since the Unix epoch.
	Timestamp int64 `json:"timestamp"`

	// Date is the same instant formatted for human inspection.
	Date string `json:"date"`

	// DBSize is the size in bytes of the database file at archive time.
	DBSize int64 `json:"dbSize"`

	// Version is the archive format version.
	Version int `json:"version"`

	// IsAutomatic records whether the backup was scheduled or user-initiated.
	IsAutomatic bool `json:"isAutomatic"`
}

const metadataDateLayout = "2006-01-02 15:04:05"

func newMetadata(at time.Time, dbSize int64, automatic bool) Metadata {
	return Metadata{
		Timestamp:   at.UnixMilli(),
		Date:        at.Format(metadataDateLayout),
		DBSize:      dbSize,
		Version:     metadataVersion,
		IsAutomatic: automatic,
	}
}

// ArchiveName builds the remote file name for a backup taken at the given
// time.
func ArchiveName(at time.Time, automatic bool) string {
	prefix := manualPrefix
	if automatic {
		prefix = automaticPrefix
	}
	return prefix + at.Format(archiveTimeLayout) + ".zip"
}

// IsArchiveName reports whether a remote file name looks like one of ours.
func IsArchiveName(name string) bool {
	if !strings.HasSuffix(name, ".zip") {
		return false
	}
	return strings.HasPrefix(name, automaticPrefix) || strings.HasPrefix(name, manualPrefix)
}

// archiveSortKey strips the automatic/manual prefix so archives order by
// their timestamp regardless of how they were taken.
func archiveSortKey(name string) string {
	if rest := strings.TrimPrefix(name, automaticPrefix); rest != name {
		return rest
	}
	return strings.TrimPrefix(name, manualPrefix)
}
