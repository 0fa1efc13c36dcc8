package storage

import (
	"context"
	"fmt"
	"time"
)

// InsertOcrText records the OCR result for one frame; the ocr_text_ai
// trigger installed in migrateV1 keeps ocr_text_fts in sync in the same
// transaction, so a reader never observes a row missing from the index.
// Grounded on queries.rs::insert_ocr_text.
func (s *Store) InsertOcrText(ctx context.Context, ocr NewOcrRecord) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO ocr_text (frame_id, text, text_json, confidence) VALUES (?, ?, ?, ?)`,
		ocr.FrameID, ocr.Text, ocr.TextJSON, ocr.Confidence,
	)
	if err != nil {
		return 0, fmt.Errorf("storage: insert ocr text: %w", err)
	}
	return res.LastInsertId()
}

// InsertOcrTextBatch inserts one ocr_text row per record in a single
// transaction, the OCR indexer's per-iteration write path (spec.md §4.8
// step 5) so a batch of up to 30 frames costs one commit instead of 30.
func (s *Store) InsertOcrTextBatch(ctx context.Context, records []NewOcrRecord) ([]int64, error) {
	if len(records) == 0 {
		return nil, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("storage: begin ocr batch: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO ocr_text (frame_id, text, text_json, confidence) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("storage: prepare ocr batch: %w", err)
	}
	defer stmt.Close()

	ids := make([]int64, 0, len(records))
	for _, r := range records {
		res, err := stmt.ExecContext(ctx, r.FrameID, r.Text, r.TextJSON, r.Confidence)
		if err != nil {
			return nil, fmt.Errorf("storage: insert ocr text in batch: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("storage: ocr batch last insert id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("storage: commit ocr batch: %w", err)
	}
	return ids, nil
}

// GetOcrStats summarizes indexing progress for the status monitor and
// logging, the Go analogue of schema.rs::OcrStats. ProcessingRate is
// derived here from the oldest-to-newest span of already-indexed frames
// rather than tracked as a running counter, since nothing upstream of
// storage currently threads a rate sample through.
func (s *Store) GetOcrStats(ctx context.Context) (OcrStats, error) {
	var stats OcrStats

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM frames`).Scan(&stats.TotalFrames); err != nil {
		return OcrStats{}, fmt.Errorf("storage: count frames: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ocr_text`).Scan(&stats.FramesWithOcr); err != nil {
		return OcrStats{}, fmt.Errorf("storage: count ocr rows: %w", err)
	}
	stats.PendingFrames = stats.TotalFrames - stats.FramesWithOcr

	var first, last string
	var firstOK, lastOK bool
	row := s.db.QueryRowContext(ctx, `
		SELECT MIN(f.timestamp), MAX(f.timestamp)
		FROM ocr_text o JOIN frames f ON f.id = o.frame_id`)
	var firstN, lastN *string
	if err := row.Scan(&firstN, &lastN); err != nil {
		return OcrStats{}, fmt.Errorf("storage: ocr time span: %w", err)
	}
	if firstN != nil {
		first, firstOK = *firstN, true
	}
	if lastN != nil {
		last, lastOK = *lastN, true
	}

	if firstOK && lastOK && stats.FramesWithOcr > 1 {
		t0, err := parseTimestamp(first)
		if err != nil {
			return OcrStats{}, err
		}
		t1, err := parseTimestamp(last)
		if err != nil {
			return OcrStats{}, err
		}
		stats.LastUpdated = t1
		span := t1.Sub(t0).Seconds()
		if span > 0 {
			stats.ProcessingRate = float64(stats.FramesWithOcr) / span
		}
	} else {
		stats.LastUpdated = time.Now().UTC()
	}

	return stats, nil
}
