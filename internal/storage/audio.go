package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

func scanAudioChunk(row interface {
	Scan(dest ...any) error
}) (AudioChunk, error) {
	var c AudioChunk
	var ts string
	if err := row.Scan(&c.ID, &c.FilePath, &c.DeviceName, &c.IsInputDevice, &ts); err != nil {
		return AudioChunk{}, err
	}
	t, err := parseTimestamp(ts)
	if err != nil {
		return AudioChunk{}, err
	}
	c.Timestamp = t
	return c, nil
}

// GetAudioChunk looks up one audio chunk by id.
func (s *Store) GetAudioChunk(ctx context.Context, id int64) (AudioChunk, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, file_path, device_name, is_input_device, timestamp FROM audio_chunks WHERE id = ?`, id)
	c, err := scanAudioChunk(row)
	if err == sql.ErrNoRows {
		return AudioChunk{}, ErrNotFound
	}
	if err != nil {
		return AudioChunk{}, fmt.Errorf("storage: get audio chunk: %w", err)
	}
	return c, nil
}

// GetAudioChunksWithoutTranscription is the ASR indexer's work queue.
func (s *Store) GetAudioChunksWithoutTranscription(ctx context.Context, limit int64) ([]AudioChunk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.id, a.file_path, a.device_name, a.is_input_device, a.timestamp
		FROM audio_chunks a
		WHERE NOT EXISTS (SELECT 1 FROM audio_transcriptions t WHERE t.audio_chunk_id = a.id)
		ORDER BY a.timestamp ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("storage: audio chunks without transcription: %w", err)
	}
	defer rows.Close()

	var out []AudioChunk
	for rows.Next() {
		c, err := scanAudioChunk(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: scan audio chunk: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// InsertAudioTranscription records a transcription segment for an audio
// chunk. Multiple segments per chunk are expected — one per
// transcription segment — ordered by StartTime when read back.
func (s *Store) InsertAudioTranscription(ctx context.Context, t NewAudioTranscription) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO audio_transcriptions (audio_chunk_id, transcription, timestamp, speaker_id, start_time, end_time)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		t.AudioChunkID, t.Text, formatTimestamp(t.Timestamp), t.SpeakerID, t.StartTime, t.EndTime,
	)
	if err != nil {
		return 0, fmt.Errorf("storage: insert audio transcription: %w", err)
	}
	return res.LastInsertId()
}

// InsertAudioTranscriptionsBatch inserts one audio_transcriptions row per
// segment in a single transaction, the ASR indexer's per-chunk write path,
// the audio analogue of InsertOcrTextBatch.
func (s *Store) InsertAudioTranscriptionsBatch(ctx context.Context, segments []NewAudioTranscription) ([]int64, error) {
	if len(segments) == 0 {
		return nil, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("storage: begin audio transcription batch: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO audio_transcriptions (audio_chunk_id, transcription, timestamp, speaker_id, start_time, end_time)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("storage: prepare audio transcription batch: %w", err)
	}
	defer stmt.Close()

	ids := make([]int64, 0, len(segments))
	for _, seg := range segments {
		res, err := stmt.ExecContext(ctx,
			seg.AudioChunkID, seg.Text, formatTimestamp(seg.Timestamp), seg.SpeakerID, seg.StartTime, seg.EndTime)
		if err != nil {
			return nil, fmt.Errorf("storage: insert audio transcription in batch: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("storage: audio transcription batch last insert id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("storage: commit audio transcription batch: %w", err)
	}
	return ids, nil
}

// GetTranscriptionsForChunk lists segments for one audio chunk ordered by
// start time.
func (s *Store) GetTranscriptionsForChunk(ctx context.Context, audioChunkID int64) ([]AudioTranscription, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, audio_chunk_id, transcription, timestamp, speaker_id, start_time, end_time
		FROM audio_transcriptions
		WHERE audio_chunk_id = ?
		ORDER BY start_time ASC`, audioChunkID)
	if err != nil {
		return nil, fmt.Errorf("storage: transcriptions for chunk: %w", err)
	}
	defer rows.Close()

	var out []AudioTranscription
	for rows.Next() {
		t, err := scanAudioTranscription(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: scan transcription: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanAudioTranscription(row interface {
	Scan(dest ...any) error
}) (AudioTranscription, error) {
	var t AudioTranscription
	var ts string
	if err := row.Scan(&t.ID, &t.AudioChunkID, &t.Text, &ts, &t.SpeakerID, &t.StartTime, &t.EndTime); err != nil {
		return AudioTranscription{}, err
	}
	parsed, err := parseTimestamp(ts)
	if err != nil {
		return AudioTranscription{}, err
	}
	t.Timestamp = parsed
	return t, nil
}

// GetAudioStats is the audio-indexer analogue of GetOcrStats.
func (s *Store) GetAudioStats(ctx context.Context) (AudioStats, error) {
	var stats AudioStats

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audio_chunks`).Scan(&stats.TotalChunks); err != nil {
		return AudioStats{}, fmt.Errorf("storage: count audio chunks: %w", err)
	}
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT audio_chunk_id) FROM audio_transcriptions`).Scan(&stats.ChunksTranscribed); err != nil {
		return AudioStats{}, fmt.Errorf("storage: count transcribed chunks: %w", err)
	}
	stats.PendingChunks = stats.TotalChunks - stats.ChunksTranscribed

	var firstN, lastN *string
	row := s.db.QueryRowContext(ctx, `SELECT MIN(timestamp), MAX(timestamp) FROM audio_transcriptions`)
	if err := row.Scan(&firstN, &lastN); err != nil {
		return AudioStats{}, fmt.Errorf("storage: audio time span: %w", err)
	}

	if firstN != nil && lastN != nil && stats.ChunksTranscribed > 1 {
		t0, err := parseTimestamp(*firstN)
		if err != nil {
			return AudioStats{}, err
		}
		t1, err := parseTimestamp(*lastN)
		if err != nil {
			return AudioStats{}, err
		}
		stats.LastUpdated = t1
		span := t1.Sub(t0).Seconds()
		if span > 0 {
			stats.ProcessingRate = float64(stats.ChunksTranscribed) / span
		}
	} else {
		stats.LastUpdated = time.Now().UTC()
	}

	return stats, nil
}
