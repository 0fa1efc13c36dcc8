package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// InsertVideoChunk records a newly-opened video chunk and returns its row
// id, grounded on queries.rs::insert_video_chunk.
func (s *Store) InsertVideoChunk(ctx context.Context, chunk NewVideoChunk) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO video_chunks (file_path, device_name, width, height) VALUES (?, ?, ?, ?)`,
		chunk.FilePath, chunk.DeviceName, chunk.Width, chunk.Height,
	)
	if err != nil {
		return 0, fmt.Errorf("storage: insert video chunk: %w", err)
	}
	return res.LastInsertId()
}

// InsertAudioChunk records a newly-opened audio chunk.
func (s *Store) InsertAudioChunk(ctx context.Context, chunk NewAudioChunk) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO audio_chunks (file_path, device_name, is_input_device) VALUES (?, ?, ?)`,
		chunk.FilePath, chunk.DeviceName, chunk.IsInputDevice,
	)
	if err != nil {
		return 0, fmt.Errorf("storage: insert audio chunk: %w", err)
	}
	return res.LastInsertId()
}

func scanVideoChunk(row interface {
	Scan(dest ...any) error
}) (VideoChunk, error) {
	var c VideoChunk
	var createdAt string
	if err := row.Scan(&c.ID, &c.FilePath, &c.DeviceName, &createdAt, &c.Width, &c.Height); err != nil {
		return VideoChunk{}, err
	}
	t, err := parseTimestamp(createdAt)
	if err != nil {
		return VideoChunk{}, err
	}
	c.CreatedAt = t
	return c, nil
}

// GetVideoChunk looks up one video chunk by id.
func (s *Store) GetVideoChunk(ctx context.Context, id int64) (VideoChunk, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, file_path, device_name, created_at, width, height FROM video_chunks WHERE id = ?`, id)
	c, err := scanVideoChunk(row)
	if err == sql.ErrNoRows {
		return VideoChunk{}, ErrNotFound
	}
	if err != nil {
		return VideoChunk{}, fmt.Errorf("storage: get video chunk: %w", err)
	}
	return c, nil
}

// GetLatestVideoChunk returns the most recently created video chunk, if any.
func (s *Store) GetLatestVideoChunk(ctx context.Context) (VideoChunk, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, file_path, device_name, created_at, width, height
		 FROM video_chunks ORDER BY id DESC LIMIT 1`)
	c, err := scanVideoChunk(row)
	if err == sql.ErrNoRows {
		return VideoChunk{}, ErrNotFound
	}
	if err != nil {
		return VideoChunk{}, fmt.Errorf("storage: get latest video chunk: %w", err)
	}
	return c, nil
}

// GetChunksPaginated lists video chunks newest-first.
func (s *Store) GetChunksPaginated(ctx context.Context, limit, offset int64) ([]VideoChunk, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, file_path, device_name, created_at, width, height
		 FROM video_chunks ORDER BY id DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("storage: list video chunks: %w", err)
	}
	defer rows.Close()

	var out []VideoChunk
	for rows.Next() {
		c, err := scanVideoChunk(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: scan video chunk: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetChunksWithFrameCounts is the supplemental aggregate view from
// schema.rs::ChunkWithFrameCount, used by the status monitor to show how
// many frames landed in each chunk.
func (s *Store) GetChunksWithFrameCounts(ctx context.Context, limit, offset int64) ([]ChunkWithFrameCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT v.id, v.file_path, v.device_name, v.created_at, v.width, v.height,
		       COUNT(f.id) AS frame_count
		FROM video_chunks v
		LEFT JOIN frames f ON f.video_chunk_id = v.id
		GROUP BY v.id
		ORDER BY v.id DESC
		LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("storage: list chunks with frame counts: %w", err)
	}
	defer rows.Close()

	var out []ChunkWithFrameCount
	for rows.Next() {
		var c ChunkWithFrameCount
		var createdAt string
		if err := rows.Scan(&c.ID, &c.FilePath, &c.DeviceName, &createdAt, &c.Width, &c.Height, &c.FrameCount); err != nil {
			return nil, fmt.Errorf("storage: scan chunk with frame count: %w", err)
		}
		t, err := parseTimestamp(createdAt)
		if err != nil {
			return nil, err
		}
		c.CreatedAt = t
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetMonitorSummaries is the supplemental per-device aggregate from
// schema.rs::MonitorSummary.
func (s *Store) GetMonitorSummaries(ctx context.Context) ([]MonitorSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT v.device_name,
		       COUNT(DISTINCT v.id) AS total_chunks,
		       COUNT(f.id) AS total_frames,
		       MAX(f.timestamp) AS latest_capture
		FROM video_chunks v
		LEFT JOIN frames f ON f.video_chunk_id = v.id
		GROUP BY v.device_name
		ORDER BY v.device_name`)
	if err != nil {
		return nil, fmt.Errorf("storage: monitor summaries: %w", err)
	}
	defer rows.Close()

	var out []MonitorSummary
	for rows.Next() {
		var m MonitorSummary
		var latest sql.NullString
		if err := rows.Scan(&m.DeviceName, &m.TotalChunks, &m.TotalFrames, &latest); err != nil {
			return nil, fmt.Errorf("storage: scan monitor summary: %w", err)
		}
		if latest.Valid {
			t, err := parseTimestamp(latest.String)
			if err != nil {
				return nil, err
			}
			m.LatestCapture = &t
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
