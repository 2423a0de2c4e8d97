// Package sqlite implements storage.MemoryStore on a single SQLite database
// file using the CGO-free modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/scrypster/waymark/internal/storage"
	"github.com/scrypster/waymark/pkg/types"
)

// dateLayout stores zoned timestamps as text. RFC3339 keeps the UTC offset,
// which is all the date-range filter needs to recover the record's own
// calendar date.
const dateLayout = time.RFC3339Nano

// Store implements storage.MemoryStore using SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (or creates) the Waymark database at path, configures WAL mode,
// and applies the embedded schema. Use ":memory:" for tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to open database: %w", err)
	}

	// SQLite only supports one concurrent writer. A single open connection
	// serialises writes and avoids SQLITE_BUSY under concurrent load, while
	// WAL mode lets readers proceed without blocking the writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite: failed to apply %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: failed to create schema: %w", err)
	}

	storePath := path
	if path == ":memory:" {
		storePath = ""
	}
	return &Store{db: db, path: storePath}, nil
}

// SaveMemory inserts (ID == 0) or updates (ID != 0) a record.
func (s *Store) SaveMemory(ctx context.Context, record *types.MemoryRecord) (int64, error) {
	if record == nil {
		return 0, storage.ErrInvalidInput
	}
	if err := record.Validate(); err != nil {
		return 0, fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
	}

	if record.ID == 0 {
		res, err := s.db.ExecContext(ctx, `
			INSERT INTO memories (
				title, description, latitude, longitude,
				place_name, address, start_date, end_date, is_all_day, marker_hue
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			record.Title, nullable(record.Description),
			record.Latitude, record.Longitude,
			nullable(record.PlaceName), nullable(record.Address),
			record.StartDate.Format(dateLayout), record.EndDate.Format(dateLayout),
			record.AllDay, record.MarkerHue,
		)
		if err != nil {
			return 0, fmt.Errorf("sqlite: failed to insert memory: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return 0, fmt.Errorf("sqlite: failed to read inserted id: %w", err)
		}
		record.ID = id
		return id, nil
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE memories SET
			title = ?, description = ?, latitude = ?, longitude = ?,
			place_name = ?, address = ?, start_date = ?, end_date = ?,
			is_all_day = ?, marker_hue = ?
		WHERE id = ?`,
		record.Title, nullable(record.Description),
		record.Latitude, record.Longitude,
		nullable(record.PlaceName), nullable(record.Address),
		record.StartDate.Format(dateLayout), record.EndDate.Format(dateLayout),
		record.AllDay, record.MarkerHue,
		record.ID,
	)
	if err != nil {
		return 0, fmt.Errorf("sqlite: failed to update memory: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return 0, storage.ErrNotFound
	}
	return record.ID, nil
}

// GetMemory retrieves a record by id.
func (s *Store) GetMemory(ctx context.Context, id int64) (*types.MemoryRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, description, latitude, longitude,
		       place_name, address, start_date, end_date, is_all_day, marker_hue
		FROM memories WHERE id = ?`, id)

	record, err := scanMemory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to get memory: %w", err)
	}
	return record, nil
}

// ListMemories returns all records ordered by start date.
func (s *Store) ListMemories(ctx context.Context) ([]types.MemoryRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, description, latitude, longitude,
		       place_name, address, start_date, end_date, is_all_day, marker_hue
		FROM memories ORDER BY start_date ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to list memories: %w", err)
	}
	defer rows.Close()

	var records []types.MemoryRecord
	for rows.Next() {
		record, err := scanMemory(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan memory: %w", err)
		}
		records = append(records, *record)
	}
	return records, rows.Err()
}

// DeleteMemory removes a record; its media rows go with it via the cascade.
func (s *Store) DeleteMemory(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM memories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: failed to delete memory: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ReplaceMedia swaps a record's media set for the given one in a transaction.
func (s *Store) ReplaceMedia(ctx context.Context, memoryID int64, assets []types.MediaAsset) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM media_assets WHERE memory_id = ?`, memoryID); err != nil {
		return fmt.Errorf("sqlite: failed to clear media: %w", err)
	}

	for i := range assets {
		asset := &assets[i]
		if !types.IsValidMediaKind(asset.Kind) {
			return fmt.Errorf("%w: invalid media kind %q", storage.ErrInvalidInput, asset.Kind)
		}
		res, err := tx.ExecContext(ctx, `
			INSERT INTO media_assets (memory_id, uri, device_id, kind, signature, file_size, date_taken)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			memoryID, asset.URI, asset.DeviceID, string(asset.Kind),
			asset.Signature, asset.FileSize, asset.DateTaken,
		)
		if err != nil {
			return fmt.Errorf("sqlite: failed to insert media asset: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("sqlite: failed to read inserted media id: %w", err)
		}
		asset.ID = id
		asset.MemoryID = memoryID
	}

	return tx.Commit()
}

// ListMedia returns the media assets of one record.
func (s *Store) ListMedia(ctx context.Context, memoryID int64) ([]types.MediaAsset, error) {
	return s.queryMedia(ctx, `
		SELECT id, memory_id, uri, device_id, kind, signature, file_size, date_taken
		FROM media_assets WHERE memory_id = ? ORDER BY date_taken ASC, id ASC`, memoryID)
}

// ListAllMedia returns every media asset row.
func (s *Store) ListAllMedia(ctx context.Context) ([]types.MediaAsset, error) {
	return s.queryMedia(ctx, `
		SELECT id, memory_id, uri, device_id, kind, signature, file_size, date_taken
		FROM media_assets ORDER BY id ASC`)
}

// UpdateMediaAssets rewrites device id and URI for the given assets.
func (s *Store) UpdateMediaAssets(ctx context.Context, assets []types.MediaAsset) error {
	if len(assets) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, asset := range assets {
		if _, err := tx.ExecContext(ctx, `
			UPDATE media_assets SET device_id = ?, uri = ? WHERE id = ?`,
			asset.DeviceID, asset.URI, asset.ID,
		); err != nil {
			return fmt.Errorf("sqlite: failed to update media asset %d: %w", asset.ID, err)
		}
	}

	return tx.Commit()
}

// Checkpoint flushes all pending WAL writes into the primary database file.
func (s *Store) Checkpoint(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `PRAGMA wal_checkpoint(FULL)`); err != nil {
		return fmt.Errorf("sqlite: wal checkpoint failed: %w", err)
	}
	return nil
}

// Path returns the database file path, "" for in-memory stores.
func (s *Store) Path() string { return s.path }

// Close releases the database connection.
func (s *Store) Close() error { return s.db.Close() }

// WALPath returns the write-ahead-log side file path for a database file.
func WALPath(dbPath string) string { return dbPath + "-wal" }

// SHMPath returns the shared-memory side file path for a database file.
func SHMPath(dbPath string) string { return dbPath + "-shm" }

func (s *Store) queryMedia(ctx context.Context, query string, args ...any) ([]types.MediaAsset, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to query media: %w", err)
	}
	defer rows.Close()

	var assets []types.MediaAsset
	for rows.Next() {
		var a types.MediaAsset
		var kind string
		if err := rows.Scan(&a.ID, &a.MemoryID, &a.URI, &a.DeviceID, &kind,
			&a.Signature, &a.FileSize, &a.DateTaken); err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan media asset: %w", err)
		}
		a.Kind = types.MediaKind(kind)
		assets = append(assets, a)
	}
	return assets, rows.Err()
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanMemory(row scanner) (*types.MemoryRecord, error) {
	var (
		record               types.MemoryRecord
		description          sql.NullString
		placeName, address   sql.NullString
		startDate, endDate   string
	)

	if err := row.Scan(&record.ID, &record.Title, &description,
		&record.Latitude, &record.Longitude, &placeName, &address,
		&startDate, &endDate, &record.AllDay, &record.MarkerHue); err != nil {
		return nil, err
	}

	record.Description = description.String
	record.PlaceName = placeName.String
	record.Address = address.String

	var err error
	if record.StartDate, err = time.Parse(dateLayout, startDate); err != nil {
		return nil, fmt.Errorf("invalid start_date %q: %w", startDate, err)
	}
	if record.EndDate, err = time.Parse(dateLayout, endDate); err != nil {
		return nil, fmt.Errorf("invalid end_date %q: %w", endDate, err)
	}
	return &record, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
