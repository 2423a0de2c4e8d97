package sqlite

// Schema is the embedded DDL for the Waymark database. Applied with
// CREATE IF NOT EXISTS semantics on every open, so opening a restored
// database file is a no-op schema-wise.
const Schema = `
CREATE TABLE IF NOT EXISTS memories (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    title       TEXT NOT NULL,
    description TEXT,
    latitude    REAL NOT NULL,
    longitude   REAL NOT NULL,
    place_name  TEXT,
    address     TEXT,
    start_date  TEXT NOT NULL,
    end_date    TEXT NOT NULL,
    is_all_day  INTEGER NOT NULL DEFAULT 0,
    marker_hue  REAL NOT NULL DEFAULT 0.0
);

CREATE TABLE IF NOT EXISTS media_assets (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    memory_id  INTEGER NOT NULL REFERENCES memories(id) ON DELETE CASCADE,
    uri        TEXT NOT NULL,
    device_id  TEXT NOT NULL,
    kind       TEXT NOT NULL CHECK (kind IN ('image', 'video')),
    signature  TEXT NOT NULL,
    file_size  INTEGER NOT NULL,
    date_taken INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_media_assets_memory_id ON media_assets(memory_id);
CREATE INDEX IF NOT EXISTS idx_media_assets_date_taken ON media_assets(date_taken);
`
