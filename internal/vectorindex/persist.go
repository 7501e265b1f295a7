package vectorindex

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"docchat/pkg/types"
)

const (
	// VectorsFile and RecordsFile are the two co-located files that
	// make up one persisted session index. Both must exist together or
	// neither.
	VectorsFile = "vectors.bin"
	RecordsFile = "records.json"

	// vectorsMagic identifies the binary vector file format.
	vectorsMagic = uint32(0x44435631) // "DCV1"
)

// Save atomically persists the index under dir. Both files are written
// to temporaries first; only after both writes succeed are they renamed
// into place. On any failure the temporaries are removed, the previous
// persisted state is left untouched, and ErrPersistence is returned.
func (ix *Index) Save(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: creating %s: %v", types.ErrPersistence, dir, err)
	}

	tmpVectors, err := writeTempVectors(dir, ix.dim, ix.vectors)
	if err != nil {
		return fmt.Errorf("%w: %v", types.ErrPersistence, err)
	}

	tmpRecords, err := writeTempRecords(dir, ix.records)
	if err != nil {
		_ = os.Remove(tmpVectors)
		return fmt.Errorf("%w: %v", types.ErrPersistence, err)
	}

	if err := os.Rename(tmpVectors, filepath.Join(dir, VectorsFile)); err != nil {
		_ = os.Remove(tmpVectors)
		_ = os.Remove(tmpRecords)
		return fmt.Errorf("%w: committing vectors: %v", types.ErrPersistence, err)
	}
	if err := os.Rename(tmpRecords, filepath.Join(dir, RecordsFile)); err != nil {
		_ = os.Remove(tmpRecords)
		return fmt.Errorf("%w: committing records: %v", types.ErrPersistence, err)
	}

	return nil
}

// Load reads a persisted index from dir. Both files missing is the
// recoverable no-index state (ErrNoIndex); exactly one present is a
// partial-write artifact (ErrCorruptIndex). The persisted dimension
// must match dim.
func Load(dir string, dim int) (*Index, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("%w: dimension must be positive, got %d", types.ErrDimensionMismatch, dim)
	}

	vectorsPath := filepath.Join(dir, VectorsFile)
	recordsPath := filepath.Join(dir, RecordsFile)

	_, vecErr := os.Stat(vectorsPath)
	_, recErr := os.Stat(recordsPath)
	vecMissing := errors.Is(vecErr, os.ErrNotExist)
	recMissing := errors.Is(recErr, os.ErrNotExist)

	switch {
	case vecMissing && recMissing:
		return nil, types.ErrNoIndex
	case vecMissing != recMissing:
		return nil, fmt.Errorf("%w: only one of %s/%s present in %s",
			types.ErrCorruptIndex, VectorsFile, RecordsFile, dir)
	case vecErr != nil:
		return nil, fmt.Errorf("%w: %v", types.ErrCorruptIndex, vecErr)
	case recErr != nil:
		return nil, fmt.Errorf("%w: %v", types.ErrCorruptIndex, recErr)
	}

	vectors, fileDim, err := readVectors(vectorsPath)
	if err != nil {
		return nil, err
	}
	if fileDim != dim {
		return nil, fmt.Errorf("%w: persisted dimension %d, engine dimension %d", types.ErrDimensionMismatch, fileDim, dim)
	}

	records, err := readRecords(recordsPath)
	if err != nil {
		return nil, err
	}

	if len(records) != len(vectors) {
		return nil, fmt.Errorf("%w: %d vectors but %d records", types.ErrCorruptIndex, len(vectors), len(records))
	}

	return &Index{dim: dim, vectors: vectors, records: records}, nil
}

// writeTempVectors writes the binary vector file to a temporary and
// returns its path. Layout: magic, dimension, count (uint32 LE), then
// count*dimension float32 values.
func writeTempVectors(dir string, dim int, vectors [][]float32) (string, error) {
	f, err := os.CreateTemp(dir, VectorsFile+".tmp-")
	if err != nil {
		return "", fmt.Errorf("creating temp vectors file: %w", err)
	}

	if err := writeVectorData(f, dim, vectors); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("closing temp vectors file: %w", err)
	}
	return f.Name(), nil
}

func writeVectorData(w io.Writer, dim int, vectors [][]float32) error {
	header := []uint32{vectorsMagic, uint32(dim), uint32(len(vectors))}
	if err := binary.Write(w, binary.LittleEndian, header); err != nil {
		return fmt.Errorf("writing vector header: %w", err)
	}
	for _, vec := range vectors {
		if err := binary.Write(w, binary.LittleEndian, vec); err != nil {
			return fmt.Errorf("writing vector data: %w", err)
		}
	}
	return nil
}

func writeTempRecords(dir string, records []types.IndexRecord) (string, error) {
	data, err := json.Marshal(records)
	if err != nil {
		return "", fmt.Errorf("encoding records: %w", err)
	}

	f, err := os.CreateTemp(dir, RecordsFile+".tmp-")
	if err != nil {
		return "", fmt.Errorf("creating temp records file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("writing records: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("closing temp records file: %w", err)
	}
	return f.Name(), nil
}

func readVectors(path string) ([][]float32, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", types.ErrCorruptIndex, err)
	}
	defer func() { _ = f.Close() }()

	var header [3]uint32
	if err := binary.Read(f, binary.LittleEndian, &header); err != nil {
		return nil, 0, fmt.Errorf("%w: reading vector header: %v", types.ErrCorruptIndex, err)
	}
	if header[0] != vectorsMagic {
		return nil, 0, fmt.Errorf("%w: bad magic %#x in %s", types.ErrCorruptIndex, header[0], path)
	}

	dim := int(header[1])
	count := int(header[2])
	if dim <= 0 {
		return nil, 0, fmt.Errorf("%w: invalid dimension %d in %s", types.ErrCorruptIndex, dim, path)
	}

	// Validate the declared count against the actual file size before
	// allocating anything, so a corrupt header cannot force a huge
	// allocation.
	info, err := f.Stat()
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", types.ErrCorruptIndex, err)
	}
	headerBytes := int64(len(header)) * 4
	want := headerBytes + int64(count)*int64(dim)*4
	if info.Size() != want {
		return nil, 0, fmt.Errorf("%w: %s is %d bytes, header declares %d vectors of dimension %d (%d bytes)",
			types.ErrCorruptIndex, path, info.Size(), count, dim, want)
	}

	vectors := make([][]float32, count)
	for i := range vectors {
		vec := make([]float32, dim)
		if err := binary.Read(f, binary.LittleEndian, vec); err != nil {
			return nil, 0, fmt.Errorf("%w: reading vector %d: %v", types.ErrCorruptIndex, i, err)
		}
		vectors[i] = vec
	}

	return vectors, dim, nil
}

func readRecords(path string) ([]types.IndexRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrCorruptIndex, err)
	}

	var records []types.IndexRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: decoding records: %v", types.ErrCorruptIndex, err)
	}
	return records, nil
}
