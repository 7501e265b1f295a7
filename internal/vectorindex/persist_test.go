package vectorindex

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docchat/pkg/types"
)

func TestSaveLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()

	ix, err := New(3)
	require.NoError(t, err)
	_, err = ix.Add([][]float32{{1, 2, 3}, {4, 5, 6}}, records("s1", 2))
	require.NoError(t, err)

	require.NoError(t, ix.Save(dir))

	loaded, err := Load(dir, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Len())
	assert.Equal(t, ix.records, loaded.records)
	assert.Equal(t, ix.vectors, loaded.vectors)
}

func TestSaveLoad_EmptyIndex(t *testing.T) {
	dir := t.TempDir()

	ix, err := New(4)
	require.NoError(t, err)
	require.NoError(t, ix.Save(dir))

	loaded, err := Load(dir, 4)
	require.NoError(t, err)
	assert.Zero(t, loaded.Len())
}

func TestLoad_NoIndex(t *testing.T) {
	_, err := Load(t.TempDir(), 4)
	assert.ErrorIs(t, err, types.ErrNoIndex)
}

func TestLoad_PartialPairIsCorrupt(t *testing.T) {
	t.Run("vectors only", func(t *testing.T) {
		dir := t.TempDir()
		ix, err := New(2)
		require.NoError(t, err)
		require.NoError(t, ix.Save(dir))
		require.NoError(t, os.Remove(filepath.Join(dir, RecordsFile)))

		_, err = Load(dir, 2)
		assert.ErrorIs(t, err, types.ErrCorruptIndex)
	})

	t.Run("records only", func(t *testing.T) {
		dir := t.TempDir()
		ix, err := New(2)
		require.NoError(t, err)
		require.NoError(t, ix.Save(dir))
		require.NoError(t, os.Remove(filepath.Join(dir, VectorsFile)))

		_, err = Load(dir, 2)
		assert.ErrorIs(t, err, types.ErrCorruptIndex)
	})
}

func TestLoad_MismatchedPairIsCorrupt(t *testing.T) {
	dir := t.TempDir()

	ix, err := New(2)
	require.NoError(t, err)
	_, err = ix.Add([][]float32{{1, 0}, {0, 1}}, records("s1", 2))
	require.NoError(t, err)
	require.NoError(t, ix.Save(dir))

	// Overwrite the record list with fewer records than vectors.
	require.NoError(t, os.WriteFile(filepath.Join(dir, RecordsFile), []byte(`[]`), 0o644))

	_, err = Load(dir, 2)
	assert.ErrorIs(t, err, types.ErrCorruptIndex)
}

func TestLoad_GarbageVectorsFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, VectorsFile), []byte("not a vector file"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, RecordsFile), []byte(`[]`), 0o644))

	_, err := Load(dir, 2)
	assert.ErrorIs(t, err, types.ErrCorruptIndex)
}

func TestLoad_CountDisagreesWithFileSize(t *testing.T) {
	t.Run("huge declared count", func(t *testing.T) {
		dir := t.TempDir()

		// The header declares two billion vectors with nothing behind
		// it. Load must reject it before allocating for the count.
		var buf bytes.Buffer
		header := []uint32{vectorsMagic, 4, 2_000_000_000}
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, header))
		require.NoError(t, os.WriteFile(filepath.Join(dir, VectorsFile), buf.Bytes(), 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, RecordsFile), []byte(`[]`), 0o644))

		_, err := Load(dir, 4)
		assert.ErrorIs(t, err, types.ErrCorruptIndex)
	})

	t.Run("truncated data", func(t *testing.T) {
		dir := t.TempDir()

		var buf bytes.Buffer
		header := []uint32{vectorsMagic, 4, 2}
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, header))
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, []float32{1, 0, 0, 0}))
		require.NoError(t, os.WriteFile(filepath.Join(dir, VectorsFile), buf.Bytes(), 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, RecordsFile), []byte(`[]`), 0o644))

		_, err := Load(dir, 4)
		assert.ErrorIs(t, err, types.ErrCorruptIndex)
	})

	t.Run("trailing data", func(t *testing.T) {
		dir := t.TempDir()

		ix, err := New(2)
		require.NoError(t, err)
		_, err = ix.Add([][]float32{{1, 0}}, records("s1", 1))
		require.NoError(t, err)
		require.NoError(t, ix.Save(dir))

		f, err := os.OpenFile(filepath.Join(dir, VectorsFile), os.O_APPEND|os.O_WRONLY, 0o644)
		require.NoError(t, err)
		_, err = f.Write([]byte{0xff})
		require.NoError(t, err)
		require.NoError(t, f.Close())

		_, err = Load(dir, 2)
		assert.ErrorIs(t, err, types.ErrCorruptIndex)
	})
}

func TestLoad_DimensionMismatch(t *testing.T) {
	dir := t.TempDir()

	ix, err := New(3)
	require.NoError(t, err)
	require.NoError(t, ix.Save(dir))

	_, err = Load(dir, 4)
	assert.ErrorIs(t, err, types.ErrDimensionMismatch)
}

func TestSave_PartialTempWriteNeverVisibleToLoad(t *testing.T) {
	// Simulates a crash between writing the temp vector file and the
	// temp record file: the orphaned temp must not affect Load.
	t.Run("with prior state", func(t *testing.T) {
		dir := t.TempDir()

		ix, err := New(2)
		require.NoError(t, err)
		_, err = ix.Add([][]float32{{1, 0}}, records("s1", 1))
		require.NoError(t, err)
		require.NoError(t, ix.Save(dir))

		_, err = writeTempVectors(dir, 2, [][]float32{{0, 1}, {1, 1}})
		require.NoError(t, err)

		loaded, err := Load(dir, 2)
		require.NoError(t, err)
		assert.Equal(t, 1, loaded.Len(), "load must report the prior valid state")
	})

	t.Run("without prior state", func(t *testing.T) {
		dir := t.TempDir()

		_, err := writeTempVectors(dir, 2, [][]float32{{0, 1}})
		require.NoError(t, err)

		_, err = Load(dir, 2)
		assert.ErrorIs(t, err, types.ErrNoIndex)
	})
}

func TestSave_RenameFailureRollsBack(t *testing.T) {
	dir := t.TempDir()

	// A non-empty directory occupying the vectors path makes the
	// commit rename fail regardless of process privileges.
	decoy := filepath.Join(dir, VectorsFile)
	require.NoError(t, os.MkdirAll(decoy, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(decoy, "x"), []byte("x"), 0o644))

	ix, err := New(2)
	require.NoError(t, err)
	_, err = ix.Add([][]float32{{1, 0}}, records("s1", 1))
	require.NoError(t, err)

	err = ix.Save(dir)
	require.ErrorIs(t, err, types.ErrPersistence)

	// No partial commit: records file absent, temp artifacts removed.
	_, statErr := os.Stat(filepath.Join(dir, RecordsFile))
	assert.True(t, os.IsNotExist(statErr))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, VectorsFile, entries[0].Name())
}

func TestSaveLoad_Overwrite(t *testing.T) {
	dir := t.TempDir()

	ix, err := New(2)
	require.NoError(t, err)
	_, err = ix.Add([][]float32{{1, 0}}, records("s1", 1))
	require.NoError(t, err)
	require.NoError(t, ix.Save(dir))

	_, err = ix.Add([][]float32{{0, 1}}, []types.IndexRecord{record("s1", "second")})
	require.NoError(t, err)
	require.NoError(t, ix.Save(dir))

	loaded, err := Load(dir, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Len())
}
