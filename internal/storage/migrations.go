package storage

import "fmt"

// schemaVersion is tracked via PRAGMA user_version, exactly as
// original_source/src/memoire-db/src/migrations.rs does. A fresh database
// starts at 0 and is brought forward one migration at a time.
const schemaVersion = 1

func (s *Store) migrate() error {
	var current int64
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&current); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	if current >= schemaVersion {
		return nil
	}

	if current < 1 {
		if err := s.migrateV1(); err != nil {
			return fmt.Errorf("migrate v1: %w", err)
		}
	}

	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return fmt.Errorf("set schema version: %w", err)
	}
	return nil
}

// migrateV1 lays down the initial schema: the five content tables, two
// FTS5 external-content indexes, their sync triggers, and lookup indexes.
// Ported table-for-table from
// original_source/src/memoire-db/src/migrations.rs::migrate_v1, with
// frame_hash added to frames from schema.rs::Frame (the original's v1
// migration predates that field; this module has no prior version to stay
// compatible with, so the column is folded into the one migration it has).
// Two UNIQUE constraints are stricter than the original migration:
// (video_chunk_id, offset_index) on frames and frame_id on ocr_text, both
// invariants the original only upheld by construction in recorder.rs.
func (s *Store) migrateV1() error {
	const stmt = `
CREATE TABLE IF NOT EXISTS video_chunks (
	id INTEGER PRIMARY KEY,
	file_path TEXT NOT NULL,
	device_name TEXT NOT NULL,
	created_at TEXT DEFAULT (datetime('now')),
	width INTEGER,
	height INTEGER
);

CREATE TABLE IF NOT EXISTS frames (
	id INTEGER PRIMARY KEY,
	video_chunk_id INTEGER NOT NULL,
	offset_index INTEGER NOT NULL,
	timestamp TEXT NOT NULL,
	app_name TEXT,
	window_name TEXT,
	browser_url TEXT,
	focused INTEGER DEFAULT 0,
	frame_hash INTEGER,
	FOREIGN KEY (video_chunk_id) REFERENCES video_chunks(id),
	UNIQUE (video_chunk_id, offset_index)
);

CREATE TABLE IF NOT EXISTS ocr_text (
	id INTEGER PRIMARY KEY,
	frame_id INTEGER NOT NULL UNIQUE,
	text TEXT NOT NULL,
	text_json TEXT,
	confidence REAL,
	FOREIGN KEY (frame_id) REFERENCES frames(id)
);

CREATE TABLE IF NOT EXISTS audio_chunks (
	id INTEGER PRIMARY KEY,
	file_path TEXT NOT NULL,
	device_name TEXT,
	is_input_device INTEGER,
	timestamp TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS audio_transcriptions (
	id INTEGER PRIMARY KEY,
	audio_chunk_id INTEGER NOT NULL,
	transcription TEXT NOT NULL,
	timestamp TEXT NOT NULL,
	speaker_id INTEGER,
	start_time REAL,
	end_time REAL,
	FOREIGN KEY (audio_chunk_id) REFERENCES audio_chunks(id)
);

CREATE VIRTUAL TABLE IF NOT EXISTS ocr_text_fts USING fts5(
	text,
	content='ocr_text',
	content_rowid='id'
);

CREATE VIRTUAL TABLE IF NOT EXISTS audio_fts USING fts5(
	transcription,
	content='audio_transcriptions',
	content_rowid='id'
);

CREATE INDEX IF NOT EXISTS idx_frames_timestamp ON frames(timestamp);
CREATE INDEX IF NOT EXISTS idx_frames_video_chunk ON frames(video_chunk_id);
CREATE INDEX IF NOT EXISTS idx_ocr_frame ON ocr_text(frame_id);
CREATE INDEX IF NOT EXISTS idx_audio_timestamp ON audio_transcriptions(timestamp);
CREATE INDEX IF NOT EXISTS idx_audio_chunk ON audio_transcriptions(audio_chunk_id);

CREATE TRIGGER IF NOT EXISTS ocr_text_ai AFTER INSERT ON ocr_text BEGIN
	INSERT INTO ocr_text_fts(rowid, text) VALUES (new.id, new.text);
END;

CREATE TRIGGER IF NOT EXISTS ocr_text_ad AFTER DELETE ON ocr_text BEGIN
	INSERT INTO ocr_text_fts(ocr_text_fts, rowid, text) VALUES('delete', old.id, old.text);
END;

CREATE TRIGGER IF NOT EXISTS ocr_text_au AFTER UPDATE ON ocr_text BEGIN
	INSERT INTO ocr_text_fts(ocr_text_fts, rowid, text) VALUES('delete', old.id, old.text);
	INSERT INTO ocr_text_fts(rowid, text) VALUES (new.id, new.text);
END;

CREATE TRIGGER IF NOT EXISTS audio_fts_ai AFTER INSERT ON audio_transcriptions BEGIN
	INSERT INTO audio_fts(rowid, transcription) VALUES (new.id, new.transcription);
END;

CREATE TRIGGER IF NOT EXISTS audio_fts_ad AFTER DELETE ON audio_transcriptions BEGIN
	INSERT INTO audio_fts(audio_fts, rowid, transcription) VALUES('delete', old.id, old.transcription);
END;

CREATE TRIGGER IF NOT EXISTS audio_fts_au AFTER UPDATE ON audio_transcriptions BEGIN
	INSERT INTO audio_fts(audio_fts, rowid, transcription) VALUES('delete', old.id, old.transcription);
	INSERT INTO audio_fts(rowid, transcription) VALUES (new.id, new.transcription);
END;
`
	_, err := s.db.Exec(stmt)
	return err
}
