package render

import (
	"bytes"
	"encoding/binary"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/core/v3/common"
)

var testIdentity = pipelineCacheIdentity{
	VendorID: 0x10de,
	DeviceID: 0x2204,
	UUID:     uuid.MustParse("3f2504e0-4f89-11d3-9a0c-0305e82c3301"),
}

func cacheBlob(t *testing.T, header pipelineCacheHeader, payload int) []byte {
	t.Helper()
	buf := &bytes.Buffer{}
	require.NoError(t, binary.Write(buf, common.ByteOrder, header))
	buf.Write(make([]byte, payload))
	return buf.Bytes()
}

func validHeader() pipelineCacheHeader {
	return pipelineCacheHeader{
		Length:   uint32(pipelineCacheHeaderSize),
		Version:  pipelineCacheHeaderVersionOne,
		VendorID: testIdentity.VendorID,
		DeviceID: testIdentity.DeviceID,
		UUID:     testIdentity.UUID,
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPipelineCacheHeaderSize(t *testing.T) {
	require.Equal(t, 32, pipelineCacheHeaderSize)
}

func TestValidatePipelineCache(t *testing.T) {
	assert.Empty(t, validatePipelineCache(cacheBlob(t, validHeader(), 64), testIdentity))

	tests := map[string]func(h *pipelineCacheHeader){
		"length":  func(h *pipelineCacheHeader) { h.Length = 0 },
		"version": func(h *pipelineCacheHeader) { h.Version = 7 },
		"vendor":  func(h *pipelineCacheHeader) { h.VendorID = 0x1002 },
		"device":  func(h *pipelineCacheHeader) { h.DeviceID = 1 },
		"uuid":    func(h *pipelineCacheHeader) { h.UUID = uuid.Nil },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			header := validHeader()
			mutate(&header)
			problems := validatePipelineCache(cacheBlob(t, header, 0), testIdentity)
			assert.Len(t, problems, 1)
		})
	}
}

func TestValidatePipelineCacheTruncated(t *testing.T) {
	assert.NotEmpty(t, validatePipelineCache([]byte{1, 2, 3}, testIdentity))
	assert.NotEmpty(t, validatePipelineCache(nil, testIdentity))
}

func TestLoadPipelineCacheData(t *testing.T) {
	dir := t.TempDir()
	logger := quietLogger()

	assert.Nil(t, loadPipelineCacheData(logger, "", testIdentity))
	assert.Nil(t, loadPipelineCacheData(logger, filepath.Join(dir, "missing.bin"), testIdentity))

	good := filepath.Join(dir, "good.bin")
	blob := cacheBlob(t, validHeader(), 16)
	require.NoError(t, os.WriteFile(good, blob, 0o644))
	assert.Equal(t, blob, loadPipelineCacheData(logger, good, testIdentity))

	stale := filepath.Join(dir, "stale.bin")
	header := validHeader()
	header.DeviceID++
	require.NoError(t, os.WriteFile(stale, cacheBlob(t, header, 16), 0o644))
	assert.Nil(t, loadPipelineCacheData(logger, stale, testIdentity))

	_, err := os.Stat(stale)
	assert.True(t, os.IsNotExist(err), "stale cache should be deleted")
}
