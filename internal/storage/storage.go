package storage

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when trying to create a duplicate entity
	ErrAlreadyExists = errors.New("already exists")
)

// Store defines the interface for the session registry and the durable
// embedding cache tier.
type Store interface {
	// Session operations
	CreateSession(ctx context.Context, session *Session) error
	GetSession(ctx context.Context, sessionID string) (*Session, error)
	ListSessions(ctx context.Context) ([]*Session, error)
	TouchSession(ctx context.Context, sessionID string) error
	DeleteSession(ctx context.Context, sessionID string) error

	// File operations
	UpsertFile(ctx context.Context, file *File) error
	GetFile(ctx context.Context, sessionID, fileID string) (*File, error)
	ListFiles(ctx context.Context, sessionID string) ([]*File, error)
	DeleteFilesBySession(ctx context.Context, sessionID string) (int, error)

	// Embedding cache operations
	GetEmbedding(ctx context.Context, hash string) ([]float32, bool, error)
	PutEmbedding(ctx context.Context, hash string, vector []float32) error
	ClearEmbeddings(ctx context.Context) (int, error)
	CountEmbeddings(ctx context.Context) (int, error)

	// Database operations
	Close() error
}

// Session represents a chat session with its own document index
type Session struct {
	ID        string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// File represents a document indexed into a session
type File struct {
	ID         string
	SessionID  string
	Filename   string
	SizeBytes  int64
	ChunkCount int
	IndexedAt  time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// serializeVector encodes a float32 vector as a little-endian blob
func serializeVector(vector []float32) []byte {
	buf := make([]byte, 4*len(vector))
	for i, v := range vector {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// deserializeVector decodes a little-endian blob back into a vector
func deserializeVector(blob []byte) ([]float32, error) {
	if len(blob)%4 != 0 {
		return nil, fmt.Errorf("vector blob length %d is not a multiple of 4", len(blob))
	}
	vector := make([]float32, len(blob)/4)
	for i := range vector {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return vector, nil
}
