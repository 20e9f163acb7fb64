package render

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBytesToBytecode(t *testing.T) {
	code, err := bytesToBytecode([]byte{0x03, 0x02, 0x23, 0x07, 0x01, 0x00, 0x00, 0x00})
	require.NoError(t, err)
	// SPIR-V magic, little endian
	assert.Equal(t, []uint32{0x07230203, 1}, code)

	_, err = bytesToBytecode([]byte{1, 2, 3})
	assert.Error(t, err)

	_, err = bytesToBytecode(nil)
	assert.Error(t, err)
}

func TestLoadShaders(t *testing.T) {
	dir := t.TempDir()

	_, err := loadShaders(dir)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAssetLoad))

	require.NoError(t, os.WriteFile(filepath.Join(dir, vertexShaderFile), make([]byte, 16), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, fragmentShaderFile), make([]byte, 6), 0o644))

	_, err = loadShaders(dir)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAssetLoad))

	require.NoError(t, os.WriteFile(filepath.Join(dir, fragmentShaderFile), make([]byte, 8), 0o644))
	shaders, err := loadShaders(dir)
	require.NoError(t, err)
	assert.Len(t, shaders.vertex, 4)
	assert.Len(t, shaders.fragment, 2)
}
