package store

import (
	"bytes"
	"compress/gzip"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"time"

	"tripkit/pkg/db"
	"tripkit/pkg/model"
)

// Store defines the repository interface.
// It composes all sub-interfaces for full store access.
// Consumers should depend on specific sub-interfaces when possible.
type Store interface {
	CheckpointStore
	CatalogStore
	ImageStore
	CacheStore
	StateStore

	// Close closes the store connection.
	Close() error
}

// SQLiteStore implements Store.
type SQLiteStore struct {
	db *db.DB
}

// NewSQLiteStore creates a new store.
func NewSQLiteStore(db *db.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Checkpoints ---

func (s *SQLiteStore) SaveCheckpoint(ctx context.Context, cp *model.Checkpoint) error {
	createdAt := cp.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	// Compressed snapshots keep checkpoint history cheap even for long sessions.
	snapshot := cp.Snapshot
	if compressed, err := compress(snapshot); err == nil {
		snapshot = compressed
	}

	query := `INSERT OR REPLACE INTO checkpoints (session_id, seq, state, snapshot, created_at) VALUES (?, ?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, query, cp.SessionID, cp.Seq, cp.State, snapshot, createdAt); err != nil {
		return err
	}

	upsert := `INSERT INTO sessions (session_id, state, seq, created_at, updated_at)
	           VALUES (?, ?, ?, ?, ?)
	           ON CONFLICT(session_id) DO UPDATE SET
	           state=excluded.state,
	           seq=excluded.seq,
	           updated_at=excluded.updated_at`
	_, err := s.db.ExecContext(ctx, upsert, cp.SessionID, cp.State, cp.Seq, createdAt, time.Now())
	return err
}

func (s *SQLiteStore) GetLatestCheckpoint(ctx context.Context, sessionID string) (*model.Checkpoint, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT session_id, seq, state, snapshot, created_at FROM checkpoints
		 WHERE session_id = ? ORDER BY seq DESC LIMIT 1`, sessionID)
	return scanCheckpoint(row)
}

func scanCheckpoint(row *sql.Row) (*model.Checkpoint, error) {
	var cp model.Checkpoint
	err := row.Scan(&cp.SessionID, &cp.Seq, &cp.State, &cp.Snapshot, &cp.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, err
	}
	if isGzip(cp.Snapshot) {
		if decompressed, err := decompress(cp.Snapshot); err == nil {
			cp.Snapshot = decompressed
		}
	}
	return &cp, nil
}

func (s *SQLiteStore) ListSessionIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT session_id FROM sessions ORDER BY updated_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLiteStore) DeleteSession(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM checkpoints WHERE session_id = ?", sessionID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE session_id = ?", sessionID)
	return err
}

// --- Catalog ---

func (s *SQLiteStore) GetDestination(ctx context.Context, id string) (*model.Destination, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, locality, country, description, photogenic, safety, tags, vibes, created_at
		 FROM destinations WHERE id = ?`, id)

	var d model.Destination
	var tagsJSON, vibesJSON sql.NullString
	err := row.Scan(&d.ID, &d.Name, &d.Locality, &d.Country, &d.Description,
		&d.Photogenic, &d.Safety, &tagsJSON, &vibesJSON, &d.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, err
	}
	if tagsJSON.Valid && tagsJSON.String != "" {
		_ = json.Unmarshal([]byte(tagsJSON.String), &d.Tags)
	}
	if vibesJSON.Valid && vibesJSON.String != "" {
		_ = json.Unmarshal([]byte(vibesJSON.String), &d.Vibes)
	}
	return &d, nil
}

func (s *SQLiteStore) SaveDestination(ctx context.Context, d *model.Destination) error {
	tagsJSON, _ := json.Marshal(d.Tags)
	vibesJSON, _ := json.Marshal(d.Vibes)
	createdAt := d.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	query := `INSERT OR REPLACE INTO destinations (
		id, name, locality, country, description, photogenic, safety, tags, vibes, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		d.ID, d.Name, d.Locality, d.Country, d.Description,
		d.Photogenic, d.Safety, string(tagsJSON), string(vibesJSON), createdAt,
	)
	return err
}

func (s *SQLiteStore) ListDestinations(ctx context.Context, limit int) ([]*model.Destination, error) {
	query := `SELECT id, name, locality, country, description, photogenic, safety, tags, vibes, created_at
	          FROM destinations ORDER BY photogenic DESC, id`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*model.Destination
	for rows.Next() {
		var d model.Destination
		var tagsJSON, vibesJSON sql.NullString
		err := rows.Scan(&d.ID, &d.Name, &d.Locality, &d.Country, &d.Description,
			&d.Photogenic, &d.Safety, &tagsJSON, &vibesJSON, &d.CreatedAt)
		if err != nil {
			return nil, err
		}
		if tagsJSON.Valid && tagsJSON.String != "" {
			_ = json.Unmarshal([]byte(tagsJSON.String), &d.Tags)
		}
		if vibesJSON.Valid && vibesJSON.String != "" {
			_ = json.Unmarshal([]byte(vibesJSON.String), &d.Vibes)
		}
		results = append(results, &d)
	}
	return results, rows.Err()
}

func (s *SQLiteStore) CountDestinations(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT count(*) FROM destinations").Scan(&count)
	return count, err
}

func (s *SQLiteStore) GetSpots(ctx context.Context, destinationID string) ([]*model.HiddenSpot, error) {
	query := `SELECT id, destination_id, name, lat, lon, photo_tips, crowd, best_visit_time,
	                 authenticity, photogenic, accessibility, safety
	          FROM hidden_spots WHERE destination_id = ? ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, destinationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*model.HiddenSpot
	for rows.Next() {
		var sp model.HiddenSpot
		var tipsJSON sql.NullString
		var crowd string
		err := rows.Scan(&sp.ID, &sp.DestinationID, &sp.Name, &sp.Lat, &sp.Lon,
			&tipsJSON, &crowd, &sp.BestVisitTime,
			&sp.Authenticity, &sp.Photogenic, &sp.Accessibility, &sp.Safety)
		if err != nil {
			return nil, err
		}
		if tipsJSON.Valid && tipsJSON.String != "" {
			_ = json.Unmarshal([]byte(tipsJSON.String), &sp.PhotoTips)
		}
		sp.Crowd = model.CrowdLevel(crowd)
		results = append(results, &sp)
	}
	return results, rows.Err()
}

func (s *SQLiteStore) SaveSpot(ctx context.Context, sp *model.HiddenSpot) error {
	tipsJSON, _ := json.Marshal(sp.PhotoTips)

	query := `INSERT OR REPLACE INTO hidden_spots (
		id, destination_id, name, lat, lon, photo_tips, crowd, best_visit_time,
		authenticity, photogenic, accessibility, safety
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		sp.ID, sp.DestinationID, sp.Name, sp.Lat, sp.Lon,
		string(tipsJSON), string(sp.Crowd), sp.BestVisitTime,
		sp.Authenticity, sp.Photogenic, sp.Accessibility, sp.Safety,
	)
	return err
}

// --- Images ---

func (s *SQLiteStore) SaveImage(ctx context.Context, img *model.GeneratedImage) error {
	failuresJSON, _ := json.Marshal(img.Failures)
	createdAt := img.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	query := `INSERT OR REPLACE INTO images (
		id, session_id, spot_id, prompt, revised_prompt, asset_ref, width, height, attempts, failures, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		img.ID, img.SessionID, img.SpotID, img.Prompt, img.RevisedPrompt,
		img.AssetRef, img.Width, img.Height, img.Attempts, string(failuresJSON), createdAt,
	)
	return err
}

func (s *SQLiteStore) GetImage(ctx context.Context, id string) (*model.GeneratedImage, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, session_id, spot_id, prompt, revised_prompt, asset_ref, width, height, attempts, failures, created_at
		 FROM images WHERE id = ?`, id)

	var img model.GeneratedImage
	var failuresJSON sql.NullString
	err := row.Scan(&img.ID, &img.SessionID, &img.SpotID, &img.Prompt, &img.RevisedPrompt,
		&img.AssetRef, &img.Width, &img.Height, &img.Attempts, &failuresJSON, &img.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if failuresJSON.Valid && failuresJSON.String != "" {
		_ = json.Unmarshal([]byte(failuresJSON.String), &img.Failures)
	}
	return &img, nil
}

func (s *SQLiteStore) GetSessionImages(ctx context.Context, sessionID string) ([]*model.GeneratedImage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, spot_id, prompt, revised_prompt, asset_ref, width, height, attempts, failures, created_at
		 FROM images WHERE session_id = ? ORDER BY created_at`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*model.GeneratedImage
	for rows.Next() {
		var img model.GeneratedImage
		var failuresJSON sql.NullString
		err := rows.Scan(&img.ID, &img.SessionID, &img.SpotID, &img.Prompt, &img.RevisedPrompt,
			&img.AssetRef, &img.Width, &img.Height, &img.Attempts, &failuresJSON, &img.CreatedAt)
		if err != nil {
			return nil, err
		}
		if failuresJSON.Valid && failuresJSON.String != "" {
			_ = json.Unmarshal([]byte(failuresJSON.String), &img.Failures)
		}
		results = append(results, &img)
	}
	return results, rows.Err()
}

// --- Cache ---

// Get implements cache.Cacher interface.
func (s *SQLiteStore) Get(key string) ([]byte, bool) {
	return s.GetCache(context.Background(), key)
}

// Set implements cache.Cacher interface.
func (s *SQLiteStore) Set(key string, val []byte) error {
	return s.SetCache(context.Background(), key, val)
}

func (s *SQLiteStore) GetCache(ctx context.Context, key string) ([]byte, bool) {
	var val []byte
	err := s.db.QueryRowContext(ctx, "SELECT value FROM cache WHERE key = ?", key).Scan(&val)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false
	}
	if err != nil {
		return nil, false
	}

	// Transparent Decompression
	if isGzip(val) {
		decompressed, err := decompress(val)
		if err == nil {
			return decompressed, true
		}
		// If decompression fails, maybe it's not actually gzipped or corrupted.
		// Return raw as fallback.
	}

	return val, true
}

func isGzip(data []byte) bool {
	return len(data) > 2 && data[0] == 0x1f && data[1] == 0x8b
}

// --- Compression Pooling ---

var (
	// Pool for gzip writers to reuse flate state
	gzipWriterPool = sync.Pool{
		New: func() interface{} {
			return gzip.NewWriter(io.Discard)
		},
	}
	// Pool for generic byte buffers
	bufferPool = sync.Pool{
		New: func() interface{} {
			return new(bytes.Buffer)
		},
	}
)

func compress(data []byte) ([]byte, error) {
	// Get Buffer
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer bufferPool.Put(buf)

	// Get Writer
	w := gzipWriterPool.Get().(*gzip.Writer)
	defer gzipWriterPool.Put(w)

	// Reset Writer to write to our buffer
	w.Reset(buf)

	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	// Must copy because buf is returned to pool
	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}

func decompress(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func (s *SQLiteStore) SetCache(ctx context.Context, key string, val []byte) error {
	// Transparent Compression
	compressed, err := compress(val)
	if err == nil {
		val = compressed
	}

	query := `INSERT OR REPLACE INTO cache (key, value, created_at) VALUES (?, ?, ?)`
	_, err = s.db.ExecContext(ctx, query, key, val, time.Now())
	return err
}

// --- State ---

func (s *SQLiteStore) GetState(ctx context.Context, key string) (string, bool) {
	var val string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM persistent_state WHERE key = ?", key).Scan(&val)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false
	}
	return val, true
}

func (s *SQLiteStore) SetState(ctx context.Context, key, val string) error {
	query := `INSERT OR REPLACE INTO persistent_state (key, value, created_at) VALUES (?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query, key, val, time.Now())
	return err
}
