package backup

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/waymark/internal/media"
	"github.com/scrypster/waymark/internal/remote"
	"github.com/scrypster/waymark/internal/storage"
	"github.com/scrypster/waymark/internal/storage/sqlite"
	"github.com/scrypster/waymark/pkg/types"
)

func TestArchiveName(t *testing.T) {
	at := time.Date(2024, 3, 15, 9, 30, 45, 0, time.UTC)

	assert.Equal(t, "Waymark_Automatic_Backup_20240315_093045.zip", ArchiveName(at, true))
	assert.Equal(t, "Waymark_Manual_Backup_20240315_093045.zip", ArchiveName(at, false))
}

func TestIsArchiveName(t *testing.T) {
	assert.True(t, IsArchiveName("Waymark_Automatic_Backup_20240315_093045.zip"))
	assert.True(t, IsArchiveName("Waymark_Manual_Backup_20240315_093045.zip"))
	assert.False(t, IsArchiveName("Waymark_Manual_Backup_20240315_093045.txt"))
	assert.False(t, IsArchiveName("holiday-photos.zip"))
}

func TestMetadataFieldNames(t *testing.T) {
	at := time.Date(2024, 3, 15, 9, 30, 45, 0, time.UTC)
	data, err := json.Marshal(newMetadata(at, 4096, true))
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	for _, key := range []string{"timestamp", "date", "dbSize", "version", "isAutomatic"} {
		assert.Contains(t, raw, key)
	}
	assert.Equal(t, "2024-03-15 09:30:45", raw["date"])
	assert.EqualValues(t, 1, raw["version"])
}

func newTestHandle(t *testing.T, dir string) (*storage.Handle, string) {
	t.Helper()
	dbPath := filepath.Join(dir, "waymark.db")
	handle, err := storage.NewHandle(func() (storage.MemoryStore, error) {
		return sqlite.Open(dbPath)
	})
	require.NoError(t, err)
	t.Cleanup(func() { handle.Close() })
	return handle, dbPath
}

func newTestService(t *testing.T, drive remote.Drive, index *media.Index) (*Service, *storage.Handle) {
	t.Helper()
	handle, _ := newTestHandle(t, t.TempDir())
	svc := NewService(handle, drive, index, Config{
		WorkDir:  t.TempDir(),
		DeviceID: "device-local",
	})
	return svc, handle
}

func saveTestMemory(t *testing.T, handle *storage.Handle, title string) int64 {
	t.Helper()
	record := &types.MemoryRecord{
		Title:     title,
		Latitude:  47.4979,
		Longitude: 19.0402,
		StartDate: time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 6, 1, 18, 0, 0, 0, time.UTC),
		MarkerHue: 120,
	}
	id, err := handle.Store().SaveMemory(context.Background(), record)
	require.NoError(t, err)
	return id
}

func TestBackupNowUploadsArchive(t *testing.T) {
	ctx := context.Background()
	remoteRoot := t.TempDir()
	svc, handle := newTestService(t, remote.NewDirDrive(remoteRoot), nil)
	saveTestMemory(t, handle, "Lake weekend")

	name, err := svc.BackupNow(ctx, false)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(name, "Waymark_Manual_Backup_"))

	archivePath := filepath.Join(remoteRoot, RemoteFolder, name)
	zr, err := zip.OpenReader(archivePath)
	require.NoError(t, err)
	defer zr.Close()

	members := map[string]bool{}
	for _, f := range zr.File {
		members[f.Name] = true
	}
	assert.True(t, members[memberDatabase], "archive must contain the database")
	assert.True(t, members[memberMetadata], "archive must contain metadata")

	// Staging file must not survive a successful upload.
	entries, err := os.ReadDir(svc.config.WorkDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestBackupArchiveMetadata(t *testing.T) {
	ctx := context.Background()
	remoteRoot := t.TempDir()
	svc, handle := newTestService(t, remote.NewDirDrive(remoteRoot), nil)
	saveTestMemory(t, handle, "Lake weekend")

	name, err := svc.BackupNow(ctx, true)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(name, "Waymark_Automatic_Backup_"))

	zr, err := zip.OpenReader(filepath.Join(remoteRoot, RemoteFolder, name))
	require.NoError(t, err)
	defer zr.Close()

	var meta *Metadata
	for _, f := range zr.File {
		if f.Name != memberMetadata {
			continue
		}
		rc, err := f.Open()
		require.NoError(t, err)
		require.NoError(t, json.NewDecoder(rc).Decode(&meta))
		rc.Close()
	}
	require.NotNil(t, meta)
	assert.Equal(t, metadataVersion, meta.Version)
	assert.True(t, meta.IsAutomatic)
	assert.Greater(t, meta.DBSize, int64(0))
	assert.Greater(t, meta.Timestamp, int64(0))
}

// brokenDrive accepts folder creation but fails every upload.
type brokenDrive struct {
	remote.Drive
}

func (b brokenDrive) EnsureFolder(ctx context.Context, folder string) error { return nil }
func (b brokenDrive) Upload(ctx context.Context, folder, name string, r io.Reader) error {
	return errors.New("transport failed")
}

func TestBackupCleansUpOnUploadFailure(t *testing.T) {
	svc, handle := newTestService(t, brokenDrive{}, nil)
	saveTestMemory(t, handle, "Lake weekend")

	_, err := svc.BackupNow(context.Background(), false)
	require.Error(t, err)

	entries, err := os.ReadDir(svc.config.WorkDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "staging file must be removed after a failed upload")
}

func TestBackupReportsProgress(t *testing.T) {
	handle, _ := newTestHandle(t, t.TempDir())

	var stages []string
	svc := NewService(handle, remote.NewDirDrive(t.TempDir()), nil, Config{
		WorkDir:    t.TempDir(),
		DeviceID:   "device-local",
		OnProgress: func(stage string) { stages = append(stages, stage) },
	})
	saveTestMemory(t, handle, "Lake weekend")

	_, err := svc.BackupNow(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, []string{"checkpointing", "archiving", "uploading", "done"}, stages)
}

func TestBackupRejectedWhileBusy(t *testing.T) {
	svc, _ := newTestService(t, remote.NewDirDrive(t.TempDir()), nil)

	svc.busy.Lock()
	defer svc.busy.Unlock()

	_, err := svc.BackupNow(context.Background(), false)
	assert.ErrorIs(t, err, ErrBusy)
	_, err = svc.Restore(context.Background(), "whatever.zip")
	assert.ErrorIs(t, err, ErrBusy)
}

func writeZip(t *testing.T, path string, members map[string]string) {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range members {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func TestExtractArchiveRejectsEscapingEntries(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "evil.zip")
	writeZip(t, archive, map[string]string{
		"../escape.txt":  "pwned",
		memberDatabase:   "db-bytes",
		memberMetadata:   `{"timestamp":1,"date":"2024-01-01 00:00:00","dbSize":8,"version":1,"isAutomatic":false}`,
	})

	dest := filepath.Join(dir, "out")
	meta, err := extractArchive(archive, dest)
	require.NoError(t, err)
	assert.Equal(t, 1, meta.Version)

	_, err = os.Stat(filepath.Join(dir, "escape.txt"))
	assert.True(t, os.IsNotExist(err), "escaping entry must not be written")
	_, err = os.Stat(filepath.Join(dest, memberDatabase))
	assert.NoError(t, err)
}

func TestExtractArchiveRequiresMetadata(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "no-meta.zip")
	writeZip(t, archive, map[string]string{memberDatabase: "db-bytes"})

	_, err := extractArchive(archive, filepath.Join(dir, "out"))
	assert.ErrorIs(t, err, ErrInvalidBackup)
}

func TestExtractArchiveRequiresDatabase(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "no-db.zip")
	writeZip(t, archive, map[string]string{
		memberMetadata: `{"timestamp":1,"date":"2024-01-01 00:00:00","dbSize":8,"version":1,"isAutomatic":false}`,
	})

	_, err := extractArchive(archive, filepath.Join(dir, "out"))
	assert.ErrorIs(t, err, ErrInvalidBackup)
}

func TestRestoreRoundTripRelinksMedia(t *testing.T) {
	ctx := context.Background()
	remoteRoot := t.TempDir()
	drive := remote.NewDirDrive(remoteRoot)

	// Local media library with one photo the restored row should re-link to.
	mediaDir := t.TempDir()
	photoPath := filepath.Join(mediaDir, "sunset.jpg")
	photoBytes := bytes.Repeat([]byte("sunset"), 2048)
	require.NoError(t, os.WriteFile(photoPath, photoBytes, 0o644))
	signature, err := media.FileSignature(photoPath)
	require.NoError(t, err)

	index := media.NewIndex([]string{mediaDir})
	require.NoError(t, index.Scan())

	handle, _ := newTestHandle(t, t.TempDir())
	svc := NewService(handle, drive, index, Config{
		WorkDir:  t.TempDir(),
		DeviceID: "device-local",
	})

	id := saveTestMemory(t, handle, "Sunset hike")
	info, err := os.Stat(photoPath)
	require.NoError(t, err)
	require.NoError(t, handle.Store().ReplaceMedia(ctx, id, []types.MediaAsset{{
		MemoryID:  id,
		URI:       "content://media/external/1234",
		DeviceID:  "device-old-phone",
		Kind:      types.MediaImage,
		Signature: signature,
		FileSize:  info.Size(),
		DateTaken: time.Date(2024, 6, 1, 19, 0, 0, 0, time.UTC).UnixMilli(),
	}}))

	name, err := svc.BackupNow(ctx, false)
	require.NoError(t, err)

	// Lose the record locally, then restore.
	require.NoError(t, handle.Store().DeleteMemory(ctx, id))

	result, err := svc.Restore(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Relinked)
	assert.Equal(t, 0, result.Unresolved)

	restored, err := handle.Store().GetMemory(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Sunset hike", restored.Title)

	assets, err := handle.Store().ListMedia(ctx, id)
	require.NoError(t, err)
	require.Len(t, assets, 1)
	assert.Equal(t, photoPath, assets[0].URI)
	assert.Equal(t, "device-local", assets[0].DeviceID)
}

func TestRestoreUnmatchedMediaStaysStale(t *testing.T) {
	ctx := context.Background()
	drive := remote.NewDirDrive(t.TempDir())

	index := media.NewIndex([]string{t.TempDir()})
	require.NoError(t, index.Scan())

	handle, _ := newTestHandle(t, t.TempDir())
	svc := NewService(handle, drive, index, Config{
		WorkDir:  t.TempDir(),
		DeviceID: "device-local",
	})

	id := saveTestMemory(t, handle, "Sunset hike")
	staleURI := "content://media/external/9999"
	require.NoError(t, handle.Store().ReplaceMedia(ctx, id, []types.MediaAsset{{
		MemoryID:  id,
		URI:       staleURI,
		DeviceID:  "device-old-phone",
		Kind:      types.MediaImage,
		Signature: "12345_deadbeef",
		FileSize:  12345,
		DateTaken: time.Date(2024, 6, 1, 19, 0, 0, 0, time.UTC).UnixMilli(),
	}}))

	name, err := svc.BackupNow(ctx, false)
	require.NoError(t, err)

	result, err := svc.Restore(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Relinked)
	assert.Equal(t, 1, result.Unresolved)

	assets, err := handle.Store().ListMedia(ctx, id)
	require.NoError(t, err)
	require.Len(t, assets, 1)
	assert.Equal(t, staleURI, assets[0].URI, "unmatched asset keeps its stale reference")
}

func TestRestoreInvalidArchiveLeavesDatabaseUntouched(t *testing.T) {
	ctx := context.Background()
	remoteRoot := t.TempDir()
	drive := remote.NewDirDrive(remoteRoot)
	svc, handle := newTestService(t, drive, nil)

	id := saveTestMemory(t, handle, "Keep me")

	// An archive with no metadata member is rejected before the store is
	// ever closed.
	require.NoError(t, drive.EnsureFolder(ctx, RemoteFolder))
	bad := filepath.Join(remoteRoot, RemoteFolder, "Waymark_Manual_Backup_20240101_000000.zip")
	writeZip(t, bad, map[string]string{memberDatabase: "not-a-database"})

	_, err := svc.Restore(ctx, "Waymark_Manual_Backup_20240101_000000.zip")
	require.ErrorIs(t, err, ErrInvalidBackup)

	record, err := handle.Store().GetMemory(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Keep me", record.Title)
}

func TestListRemoteFiltersAndSorts(t *testing.T) {
	ctx := context.Background()
	drive := remote.NewDirDrive(t.TempDir())
	svc, _ := newTestService(t, drive, nil)

	require.NoError(t, drive.EnsureFolder(ctx, RemoteFolder))
	for _, name := range []string{
		"Waymark_Manual_Backup_20240101_000000.zip",
		"Waymark_Automatic_Backup_20240301_000000.zip",
		"Waymark_Manual_Backup_20240401_000000.zip",
		"notes.txt",
	} {
		require.NoError(t, drive.Upload(ctx, RemoteFolder, name, strings.NewReader("x")))
	}

	archives, err := svc.ListRemote(ctx)
	require.NoError(t, err)
	require.Len(t, archives, 3)

	// Newest first by timestamp, regardless of the automatic/manual prefix.
	assert.Equal(t, "Waymark_Manual_Backup_20240401_000000.zip", archives[0].Name)
	assert.Equal(t, "Waymark_Automatic_Backup_20240301_000000.zip", archives[1].Name)
	assert.Equal(t, "Waymark_Manual_Backup_20240101_000000.zip", archives[2].Name)
}

func waitForStage(t *testing.T, stages <-chan string, want string) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case stage := <-stages:
			if stage == want {
				return
			}
		case <-deadline:
			t.Fatalf("stage %q never reported", want)
		}
	}
}

func TestThrottledMutationStillBackedUp(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handle, _ := newTestHandle(t, t.TempDir())
	stages := make(chan string, 64)
	svc := NewService(handle, remote.NewDirDrive(t.TempDir()), nil, Config{
		WorkDir:      t.TempDir(),
		DeviceID:     "device-local",
		AutoInterval: 300 * time.Millisecond,
		OnProgress:   func(stage string) { stages <- stage },
	})
	saveTestMemory(t, handle, "Lake weekend")

	svc.Start(ctx)
	defer svc.Stop()

	svc.NotifyMutation()
	waitForStage(t, stages, "done")

	// A mutation inside the throttle window must still produce a backup
	// once the window opens, not be dropped.
	svc.NotifyMutation()
	waitForStage(t, stages, "done")
}

func TestStopWithoutStartReturns(t *testing.T) {
	svc, _ := newTestService(t, remote.NewDirDrive(t.TempDir()), nil)

	finished := make(chan struct{})
	go func() {
		svc.Stop()
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop blocked with no running worker")
	}
}

// cutoffDrive serves uploads normally but every download dies mid-stream.
type cutoffDrive struct {
	remote.Drive
}

type cutoffReader struct{}

func (cutoffReader) Read(p []byte) (int, error) { return 0, errors.New("connection reset") }

func (d cutoffDrive) Download(ctx context.Context, folder, name string) (io.ReadCloser, error) {
	return io.NopCloser(io.MultiReader(strings.NewReader("PK"), cutoffReader{})), nil
}

func TestRestoreDownloadFailureLeavesDatabaseUntouched(t *testing.T) {
	ctx := context.Background()
	handle, _ := newTestHandle(t, t.TempDir())
	svc := NewService(handle, cutoffDrive{remote.NewDirDrive(t.TempDir())}, nil, Config{
		WorkDir:  t.TempDir(),
		DeviceID: "device-local",
	})

	id := saveTestMemory(t, handle, "Keep me")
	name, err := svc.BackupNow(ctx, false)
	require.NoError(t, err)

	_, err = svc.Restore(ctx, name)
	require.Error(t, err)

	record, err := handle.Store().GetMemory(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Keep me", record.Title)
}

func TestNotifyMutationTriggersAutomaticBackup(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	remoteRoot := t.TempDir()
	svc, handle := newTestService(t, remote.NewDirDrive(remoteRoot), nil)
	saveTestMemory(t, handle, "Lake weekend")

	svc.Start(ctx)
	defer svc.Stop()

	svc.NotifyMutation()

	deadline := time.After(5 * time.Second)
	for {
		files, err := os.ReadDir(filepath.Join(remoteRoot, RemoteFolder))
		if err == nil && len(files) == 1 {
			assert.True(t, strings.HasPrefix(files[0].Name(), "Waymark_Automatic_Backup_"))
			return
		}
		select {
		case <-deadline:
			t.Fatal("automatic backup did not appear on the drive")
		case <-time.After(20 * time.Millisecond):
		}
	}
}
