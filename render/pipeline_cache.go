package render

import (
	"bytes"
	"encoding/binary"
	"log/slog"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
)

// VK_PIPELINE_CACHE_HEADER_VERSION_ONE
const pipelineCacheHeaderVersionOne = 1

// pipelineCacheIdentity is what a cache blob must have been produced by to be
// reused.
type pipelineCacheIdentity struct {
	VendorID uint32
	DeviceID uint32
	UUID     uuid.UUID
}

// pipelineCacheHeader is the fixed prefix of a pipeline cache blob:
//
//	offset 0   header length
//	offset 4   header version
//	offset 8   vendor ID
//	offset 12  device ID
//	offset 16  pipeline cache UUID
type pipelineCacheHeader struct {
	Length   uint32
	Version  uint32
	VendorID uint32
	DeviceID uint32
	UUID     uuid.UUID
}

var pipelineCacheHeaderSize = binary.Size(pipelineCacheHeader{})

func parsePipelineCacheHeader(data []byte) (pipelineCacheHeader, error) {
	var header pipelineCacheHeader
	err := binary.Read(bytes.NewReader(data), common.ByteOrder, &header)
	if err != nil {
		return header, errors.Wrap(err, "read pipeline cache header")
	}
	return header, nil
}

// validatePipelineCache reports every reason data cannot seed a cache for the
// identified device. An empty result means the data is usable.
func validatePipelineCache(data []byte, identity pipelineCacheIdentity) []string {
	header, err := parsePipelineCacheHeader(data)
	if err != nil {
		return []string{err.Error()}
	}

	var problems []string
	if header.Length < uint32(pipelineCacheHeaderSize) || int(header.Length) > len(data) {
		problems = append(problems, errors.Newf("bad header length %#x", header.Length).Error())
	}
	if header.Version != pipelineCacheHeaderVersionOne {
		problems = append(problems, errors.Newf("unsupported header version %#x", header.Version).Error())
	}
	if header.VendorID != identity.VendorID {
		problems = append(problems, errors.Newf("vendor ID %#x, driver expects %#x", header.VendorID, identity.VendorID).Error())
	}
	if header.DeviceID != identity.DeviceID {
		problems = append(problems, errors.Newf("device ID %#x, driver expects %#x", header.DeviceID, identity.DeviceID).Error())
	}
	if header.UUID != identity.UUID {
		problems = append(problems, errors.Newf("UUID %s, driver expects %s", header.UUID, identity.UUID).Error())
	}
	return problems
}

// loadPipelineCacheData returns the cache blob stored at path if it was written
// by the same driver and device. Stale or corrupt files are deleted so the
// next run repopulates them.
func loadPipelineCacheData(logger *slog.Logger, path string, identity pipelineCacheIdentity) []byte {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		logger.Info("pipeline cache miss", "path", path)
		return nil
	} else if err != nil {
		logger.Warn("pipeline cache unreadable", "path", path, "error", err)
		return nil
	}

	problems := validatePipelineCache(data, identity)
	if len(problems) > 0 {
		logger.Info("pipeline cache rejected", "path", path, "problems", problems)
		// not important if this fails
		_ = os.Remove(path)
		return nil
	}

	logger.Info("pipeline cache hit", "path", path, "bytes", len(data))
	return data
}

func createPipelineCache(device core1_0.DeviceDriver, initialData []byte) (core1_0.PipelineCache, error) {
	cache, _, err := device.CreatePipelineCache(nil, core1_0.PipelineCacheCreateInfo{
		InitialData: initialData,
	})
	if err != nil {
		return core1_0.PipelineCache{}, errors.Wrap(err, "create pipeline cache")
	}
	return cache, nil
}

func savePipelineCache(device core1_0.DeviceDriver, cache core1_0.PipelineCache, path string) error {
	if path == "" || !cache.Initialized() {
		return nil
	}

	data, _, err := device.GetPipelineCacheData(cache)
	if err != nil {
		return errors.Wrap(err, "read pipeline cache data")
	}

	err = os.WriteFile(path, data, 0666)
	if err != nil {
		return errors.Wrapf(err, "write pipeline cache %s", path)
	}
	return nil
}
