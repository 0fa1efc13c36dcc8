package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// SearchOcr runs an FTS5 MATCH query against ocr_text_fts and returns
// BM25-ranked (ocr, frame) pairs, grounded on queries.rs::search_ocr. The
// ftsQuery string is expected to already be sanitized by the caller
// (internal/search); this layer only knows SQL, not query syntax.
func (s *Store) SearchOcr(ctx context.Context, ftsQuery string, limit, offset int64) ([]SearchOcrResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT o.id, o.frame_id, o.text, o.text_json, o.confidence,
		       f.id, f.video_chunk_id, f.offset_index, f.timestamp, f.app_name,
		       f.window_name, f.browser_url, f.focused, f.frame_hash
		FROM ocr_text o
		JOIN ocr_text_fts fts ON o.id = fts.rowid
		JOIN frames f ON o.frame_id = f.id
		WHERE ocr_text_fts MATCH ?
		ORDER BY rank
		LIMIT ? OFFSET ?`, ftsQuery, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("storage: search ocr: %w", err)
	}
	defer rows.Close()

	var out []SearchOcrResult
	for rows.Next() {
		var r SearchOcrResult
		var ts string
		var focused int64
		var textJSON sql.NullString
		var confidence sql.NullFloat64

		if err := rows.Scan(&r.Ocr.ID, &r.Ocr.FrameID, &r.Ocr.Text, &textJSON, &confidence,
			&r.Frame.ID, &r.Frame.VideoChunkID, &r.Frame.OffsetIndex, &ts, &r.Frame.AppName,
			&r.Frame.WindowName, &r.Frame.BrowserURL, &focused, &r.Frame.FrameHash); err != nil {
			return nil, fmt.Errorf("storage: scan ocr search result: %w", err)
		}

		t, err := parseTimestamp(ts)
		if err != nil {
			return nil, err
		}
		r.Frame.Timestamp = t
		r.Frame.Focused = focused != 0
		if textJSON.Valid {
			r.Ocr.TextJSON = &textJSON.String
		}
		if confidence.Valid {
			r.Ocr.Confidence = &confidence.Float64
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// CountOcrMatches runs the same MATCH predicate as SearchOcr without the
// LIMIT/OFFSET, the parallel COUNT query spec.md §4.9 pairs with each page
// of results so a caller can report a total alongside a page.
func (s *Store) CountOcrMatches(ctx context.Context, ftsQuery string) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM ocr_text_fts WHERE ocr_text_fts MATCH ?`, ftsQuery).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("storage: count ocr matches: %w", err)
	}
	return count, nil
}

// CountAudioMatches is the transcription analogue of CountOcrMatches.
func (s *Store) CountAudioMatches(ctx context.Context, ftsQuery string) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM audio_fts WHERE audio_fts MATCH ?`, ftsQuery).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("storage: count audio matches: %w", err)
	}
	return count, nil
}

// SearchAudio is the transcription analogue of SearchOcr.
func (s *Store) SearchAudio(ctx context.Context, ftsQuery string, limit, offset int64) ([]SearchAudioResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.audio_chunk_id, t.transcription, t.timestamp, t.speaker_id, t.start_time, t.end_time,
		       a.id, a.file_path, a.device_name, a.is_input_device, a.timestamp
		FROM audio_transcriptions t
		JOIN audio_fts fts ON t.id = fts.rowid
		JOIN audio_chunks a ON t.audio_chunk_id = a.id
		WHERE audio_fts MATCH ?
		ORDER BY rank
		LIMIT ? OFFSET ?`, ftsQuery, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("storage: search audio: %w", err)
	}
	defer rows.Close()

	var out []SearchAudioResult
	for rows.Next() {
		var r SearchAudioResult
		var tTs, aTs string

		if err := rows.Scan(&r.Transcription.ID, &r.Transcription.AudioChunkID, &r.Transcription.Text, &tTs,
			&r.Transcription.SpeakerID, &r.Transcription.StartTime, &r.Transcription.EndTime,
			&r.Chunk.ID, &r.Chunk.FilePath, &r.Chunk.DeviceName, &r.Chunk.IsInputDevice, &aTs); err != nil {
			return nil, fmt.Errorf("storage: scan audio search result: %w", err)
		}

		tt, err := parseTimestamp(tTs)
		if err != nil {
			return nil, err
		}
		r.Transcription.Timestamp = tt

		at, err := parseTimestamp(aTs)
		if err != nil {
			return nil, err
		}
		r.Chunk.Timestamp = at

		out = append(out, r)
	}
	return out, rows.Err()
}
