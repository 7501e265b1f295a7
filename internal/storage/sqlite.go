package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite benefits from single writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStore creates a new SQLite store instance
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Apply migrations
	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Session operations

func (s *SQLiteStore) CreateSession(ctx context.Context, session *Session) error {
	query := `
		INSERT INTO sessions (id, name, created_at, updated_at)
		VALUES (?, ?, ?, ?)
	`
	now := time.Now()
	_, err := s.db.ExecContext(ctx, query, session.ID, session.Name, now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("session %s: %w", session.ID, ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create session: %w", err)
	}
	session.CreatedAt = now
	session.UpdatedAt = now
	return nil
}

func (s *SQLiteStore) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	query := `
		SELECT id, name, created_at, updated_at
		FROM sessions
		WHERE id = ?
	`
	var session Session
	err := s.db.QueryRowContext(ctx, query, sessionID).Scan(
		&session.ID, &session.Name, &session.CreatedAt, &session.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *SQLiteStore) ListSessions(ctx context.Context) ([]*Session, error) {
	query := `
		SELECT id, name, created_at, updated_at
		FROM sessions
		ORDER BY created_at
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var sessions []*Session
	for rows.Next() {
		var session Session
		if err := rows.Scan(&session.ID, &session.Name, &session.CreatedAt, &session.UpdatedAt); err != nil {
			return nil, err
		}
		sessions = append(sessions, &session)
	}
	return sessions, rows.Err()
}

func (s *SQLiteStore) TouchSession(ctx context.Context, sessionID string) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE sessions SET updated_at = ? WHERE id = ?", time.Now(), sessionID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) DeleteSession(ctx context.Context, sessionID string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", sessionID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// File operations

func (s *SQLiteStore) UpsertFile(ctx context.Context, file *File) error {
	query := `
		INSERT INTO files (id, session_id, filename, size_bytes, chunk_count, indexed_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			filename = excluded.filename,
			size_bytes = excluded.size_bytes,
			chunk_count = excluded.chunk_count,
			indexed_at = excluded.indexed_at,
			updated_at = excluded.updated_at
	`
	now := time.Now()
	if file.IndexedAt.IsZero() {
		file.IndexedAt = now
	}
	_, err := s.db.ExecContext(ctx, query,
		file.ID, file.SessionID, file.Filename, file.SizeBytes,
		file.ChunkCount, file.IndexedAt, now, now)
	if err != nil {
		return fmt.Errorf("failed to upsert file: %w", err)
	}
	file.UpdatedAt = now
	return nil
}

func (s *SQLiteStore) GetFile(ctx context.Context, sessionID, fileID string) (*File, error) {
	query := `
		SELECT id, session_id, filename, size_bytes, chunk_count, indexed_at, created_at, updated_at
		FROM files
		WHERE session_id = ? AND id = ?
	`
	var file File
	err := s.db.QueryRowContext(ctx, query, sessionID, fileID).Scan(
		&file.ID, &file.SessionID, &file.Filename, &file.SizeBytes,
		&file.ChunkCount, &file.IndexedAt, &file.CreatedAt, &file.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &file, nil
}

func (s *SQLiteStore) ListFiles(ctx context.Context, sessionID string) ([]*File, error) {
	query := `
		SELECT id, session_id, filename, size_bytes, chunk_count, indexed_at, created_at, updated_at
		FROM files
		WHERE session_id = ?
		ORDER BY indexed_at
	`
	rows, err := s.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var files []*File
	for rows.Next() {
		var file File
		if err := rows.Scan(
			&file.ID, &file.SessionID, &file.Filename, &file.SizeBytes,
			&file.ChunkCount, &file.IndexedAt, &file.CreatedAt, &file.UpdatedAt,
		); err != nil {
			return nil, err
		}
		files = append(files, &file)
	}
	return files, rows.Err()
}

func (s *SQLiteStore) DeleteFilesBySession(ctx context.Context, sessionID string) (int, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM files WHERE session_id = ?", sessionID)
	if err != nil {
		return 0, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

// Embedding cache operations

func (s *SQLiteStore) GetEmbedding(ctx context.Context, hash string) ([]float32, bool, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT vector FROM embedding_cache WHERE hash = ?", hash).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	vector, err := deserializeVector(blob)
	if err != nil {
		return nil, false, fmt.Errorf("embedding %s: %w", hash, err)
	}
	return vector, true, nil
}

func (s *SQLiteStore) PutEmbedding(ctx context.Context, hash string, vector []float32) error {
	query := `
		INSERT INTO embedding_cache (hash, dimension, vector, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(hash) DO NOTHING
	`
	_, err := s.db.ExecContext(ctx, query, hash, len(vector), serializeVector(vector), time.Now())
	if err != nil {
		return fmt.Errorf("failed to store embedding: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ClearEmbeddings(ctx context.Context) (int, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM embedding_cache")
	if err != nil {
		return 0, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

func (s *SQLiteStore) CountEmbeddings(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM embedding_cache").Scan(&count)
	return count, err
}

// isUniqueViolation reports whether err is a primary-key or unique
// constraint failure. Matched on message text so both drivers are
// covered.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "constraint failed")
}
