package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const frameColumns = `id, video_chunk_id, offset_index, timestamp, app_name, window_name, browser_url, focused, frame_hash`

func scanFrame(row interface {
	Scan(dest ...any) error
}) (Frame, error) {
	var f Frame
	var ts string
	var focused int64
	if err := row.Scan(&f.ID, &f.VideoChunkID, &f.OffsetIndex, &ts,
		&f.AppName, &f.WindowName, &f.BrowserURL, &focused, &f.FrameHash); err != nil {
		return Frame{}, err
	}
	t, err := parseTimestamp(ts)
	if err != nil {
		return Frame{}, err
	}
	f.Timestamp = t
	f.Focused = focused != 0
	return f, nil
}

// InsertFrame records one captured frame and returns its row id, grounded
// on queries.rs::insert_frame.
func (s *Store) InsertFrame(ctx context.Context, f NewFrame) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO frames (video_chunk_id, offset_index, timestamp, app_name, window_name, browser_url, focused, frame_hash)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		f.VideoChunkID, f.OffsetIndex, formatTimestamp(f.Timestamp),
		f.AppName, f.WindowName, f.BrowserURL, boolToInt(f.Focused), f.FrameHash,
	)
	if err != nil {
		return 0, fmt.Errorf("storage: insert frame: %w", err)
	}
	return res.LastInsertId()
}

// InsertFramesBatch inserts many frames in a single transaction, grounded
// on queries.rs::insert_frames_batch — the recorder's buffered write path
// so a burst of captured frames costs one fsync instead of one per row.
func (s *Store) InsertFramesBatch(ctx context.Context, frames []NewFrame) ([]int64, error) {
	if len(frames) == 0 {
		return nil, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("storage: begin frame batch: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO frames (video_chunk_id, offset_index, timestamp, app_name, window_name, browser_url, focused, frame_hash)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("storage: prepare frame batch: %w", err)
	}
	defer stmt.Close()

	ids := make([]int64, 0, len(frames))
	for _, f := range frames {
		res, err := stmt.ExecContext(ctx,
			f.VideoChunkID, f.OffsetIndex, formatTimestamp(f.Timestamp),
			f.AppName, f.WindowName, f.BrowserURL, boolToInt(f.Focused), f.FrameHash,
		)
		if err != nil {
			return nil, fmt.Errorf("storage: insert frame in batch: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("storage: frame batch last insert id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("storage: commit frame batch: %w", err)
	}
	return ids, nil
}

// GetFrame looks up a single frame by id.
func (s *Store) GetFrame(ctx context.Context, id int64) (Frame, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+frameColumns+` FROM frames WHERE id = ?`, id)
	f, err := scanFrame(row)
	if err == sql.ErrNoRows {
		return Frame{}, ErrNotFound
	}
	if err != nil {
		return Frame{}, fmt.Errorf("storage: get frame: %w", err)
	}
	return f, nil
}

// GetFrameWithOcr fetches a frame together with its OCR row, if one has
// landed yet.
func (s *Store) GetFrameWithOcr(ctx context.Context, id int64) (FrameWithOcr, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT f.id, f.video_chunk_id, f.offset_index, f.timestamp, f.app_name,
		       f.window_name, f.browser_url, f.focused, f.frame_hash,
		       o.id, o.text, o.text_json, o.confidence
		FROM frames f
		LEFT JOIN ocr_text o ON o.frame_id = f.id
		WHERE f.id = ?`, id)

	var fw FrameWithOcr
	var ts string
	var focused int64
	var ocrID sql.NullInt64
	var ocrText, ocrTextJSON sql.NullString
	var ocrConfidence sql.NullFloat64

	err := row.Scan(&fw.ID, &fw.VideoChunkID, &fw.OffsetIndex, &ts, &fw.AppName,
		&fw.WindowName, &fw.BrowserURL, &focused, &fw.FrameHash,
		&ocrID, &ocrText, &ocrTextJSON, &ocrConfidence)
	if err == sql.ErrNoRows {
		return FrameWithOcr{}, ErrNotFound
	}
	if err != nil {
		return FrameWithOcr{}, fmt.Errorf("storage: get frame with ocr: %w", err)
	}

	t, err := parseTimestamp(ts)
	if err != nil {
		return FrameWithOcr{}, err
	}
	fw.Timestamp = t
	fw.Focused = focused != 0

	if ocrID.Valid {
		fw.Ocr = &OcrRecord{ID: ocrID.Int64, FrameID: fw.ID, Text: ocrText.String}
		if ocrTextJSON.Valid {
			fw.Ocr.TextJSON = &ocrTextJSON.String
		}
		if ocrConfidence.Valid {
			fw.Ocr.Confidence = &ocrConfidence.Float64
		}
	}
	return fw, nil
}

// GetFramesWithoutOcr returns the oldest frames that have no ocr_text row
// yet, the OCR indexer's work queue.
func (s *Store) GetFramesWithoutOcr(ctx context.Context, limit int64) ([]Frame, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+frameColumns+`
		FROM frames f
		WHERE NOT EXISTS (SELECT 1 FROM ocr_text o WHERE o.frame_id = f.id)
		ORDER BY f.timestamp ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("storage: frames without ocr: %w", err)
	}
	defer rows.Close()

	var out []Frame
	for rows.Next() {
		f, err := scanFrame(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: scan frame: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// GetFramesInRange lists frames whose timestamp falls in [start, end],
// newest first, grounded on queries.rs::get_frames_in_range.
func (s *Store) GetFramesInRange(ctx context.Context, start, end time.Time, limit, offset int64) ([]Frame, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+frameColumns+`
		FROM frames
		WHERE timestamp >= ? AND timestamp <= ?
		ORDER BY timestamp DESC
		LIMIT ? OFFSET ?`, formatTimestamp(start), formatTimestamp(end), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("storage: frames in range: %w", err)
	}
	defer rows.Close()

	var out []Frame
	for rows.Next() {
		f, err := scanFrame(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: scan frame: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// GetFramesWithOcrInRange is the OCR-joined variant used by the MCP search
// tool's time-bounded browsing path.
func (s *Store) GetFramesWithOcrInRange(ctx context.Context, start, end time.Time, limit, offset int64) ([]FrameWithOcr, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT f.id, f.video_chunk_id, f.offset_index, f.timestamp, f.app_name,
		       f.window_name, f.browser_url, f.focused, f.frame_hash,
		       o.id, o.text, o.text_json, o.confidence
		FROM frames f
		LEFT JOIN ocr_text o ON o.frame_id = f.id
		WHERE f.timestamp >= ? AND f.timestamp <= ?
		ORDER BY f.timestamp DESC
		LIMIT ? OFFSET ?`, formatTimestamp(start), formatTimestamp(end), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("storage: frames with ocr in range: %w", err)
	}
	defer rows.Close()

	var out []FrameWithOcr
	for rows.Next() {
		var fw FrameWithOcr
		var ts string
		var focused int64
		var ocrID sql.NullInt64
		var ocrText, ocrTextJSON sql.NullString
		var ocrConfidence sql.NullFloat64

		if err := rows.Scan(&fw.ID, &fw.VideoChunkID, &fw.OffsetIndex, &ts, &fw.AppName,
			&fw.WindowName, &fw.BrowserURL, &focused, &fw.FrameHash,
			&ocrID, &ocrText, &ocrTextJSON, &ocrConfidence); err != nil {
			return nil, fmt.Errorf("storage: scan frame with ocr: %w", err)
		}

		t, err := parseTimestamp(ts)
		if err != nil {
			return nil, err
		}
		fw.Timestamp = t
		fw.Focused = focused != 0

		if ocrID.Valid {
			fw.Ocr = &OcrRecord{ID: ocrID.Int64, FrameID: fw.ID, Text: ocrText.String}
			if ocrTextJSON.Valid {
				fw.Ocr.TextJSON = &ocrTextJSON.String
			}
			if ocrConfidence.Valid {
				fw.Ocr.Confidence = &ocrConfidence.Float64
			}
		}
		out = append(out, fw)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
