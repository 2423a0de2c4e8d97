// Command waymark-backup manages backup archives of the memory database:
// one-shot and automatic backups to the remote drive, listing, restore and
// deletion.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/scrypster/waymark/internal/backup"
	"github.com/scrypster/waymark/internal/config"
	"github.com/scrypster/waymark/internal/media"
	"github.com/scrypster/waymark/internal/remote"
	"github.com/scrypster/waymark/internal/storage"
	"github.com/scrypster/waymark/internal/storage/sqlite"
)

var (
	configPath = flag.String("config", "", "Path to YAML config file (optional, env vars apply on top)")
	dataPath   = flag.String("data", "", "Data directory (overrides config)")
	remoteRoot = flag.String("remote", "", "Remote drive mount point (overrides config)")
	backupNow  = flag.Bool("backup", false, "Create a manual backup and exit")
	listCmd    = flag.Bool("list", false, "List archives on the remote drive and exit")
	restoreCmd = flag.String("restore", "", "Restore from the named archive and exit")
	deleteCmd  = flag.String("delete", "", "Delete the named archive from the remote drive and exit")
	watch      = flag.Bool("watch", false, "Run the automatic backup worker until interrupted")
)

func main() {
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *dataPath != "" {
		cfg.Storage.DataPath = *dataPath
		cfg.Backup.WorkDir = filepath.Join(*dataPath, "backup-staging")
	}
	if *remoteRoot != "" {
		cfg.Remote.Root = *remoteRoot
	}

	svc, handle, err := buildService(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer handle.Close()

	ctx := context.Background()

	switch {
	case *backupNow:
		name, err := svc.BackupNow(ctx, false)
		if err != nil {
			log.Fatalf("Backup failed: %v", err)
		}
		fmt.Printf("Backup uploaded as %s\n", name)

	case *listCmd:
		archives, err := svc.ListRemote(ctx)
		if err != nil {
			log.Fatalf("Failed to list archives: %v", err)
		}
		if len(archives) == 0 {
			fmt.Println("No backups found")
			return
		}
		for _, f := range archives {
			fmt.Printf("%s\t%d bytes\n", f.Name, f.Size)
		}

	case *restoreCmd != "":
		result, err := svc.Restore(ctx, *restoreCmd)
		if err != nil {
			log.Fatalf("Restore failed: %v", err)
		}
		fmt.Printf("Restored backup from %s\n", result.Metadata.Date)
		fmt.Printf("Media re-linked: %d, unresolved: %d\n", result.Relinked, result.Unresolved)

	case *deleteCmd != "":
		if err := svc.DeleteRemote(ctx, *deleteCmd); err != nil {
			log.Fatalf("Failed to delete archive: %v", err)
		}
		fmt.Printf("Deleted %s\n", *deleteCmd)

	case *watch:
		runWorker(ctx, svc)

	default:
		flag.Usage()
		os.Exit(2)
	}
}

func buildService(cfg *config.Config) (*backup.Service, *storage.Handle, error) {
	if err := os.MkdirAll(cfg.Storage.DataPath, 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(cfg.Storage.DataPath, "waymark.db")
	handle, err := storage.NewHandle(func() (storage.MemoryStore, error) {
		return sqlite.Open(dbPath)
	})
	if err != nil {
		return nil, nil, err
	}

	deviceID, err := media.InstallationID(filepath.Join(cfg.Storage.DataPath, "device-id"))
	if err != nil {
		handle.Close()
		return nil, nil, err
	}

	index := media.NewIndex(cfg.Media.Dirs)
	if err := index.Scan(); err != nil {
		log.Printf("Media index scan failed: %v", err)
	}

	drive := remote.NewBreakerDriveWithConfig(remote.NewDirDrive(cfg.Remote.Root), remote.BreakerConfig{
		MaxFailures: uint32(cfg.Remote.BreakerMaxFailures),
		Timeout:     cfg.Remote.BreakerTimeout,
	})

	svc := backup.NewService(handle, drive, index, backup.Config{
		WorkDir:      cfg.Backup.WorkDir,
		DeviceID:     deviceID,
		AutoInterval: cfg.Backup.AutoInterval,
	})
	return svc, handle, nil
}

func runWorker(ctx context.Context, svc *backup.Service) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	svc.Start(ctx)
	defer svc.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Printf("Received %v, shutting down", sig)
}
