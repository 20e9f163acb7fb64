package render

import (
	"bytes"
	"encoding/binary"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
)

// releaser runs release functions in reverse registration order. Aggregates
// that create objects one after another push the matching destroy call as
// soon as each object exists, so tearing down (or unwinding a half-built
// aggregate) is always order-correct.
type releaser struct {
	fns []func()
}

func (r *releaser) push(fn func()) {
	r.fns = append(r.fns, fn)
}

func (r *releaser) release() {
	for i := len(r.fns) - 1; i >= 0; i-- {
		r.fns[i]()
	}
	r.fns = nil
}

func (r *releaser) len() int {
	return len(r.fns)
}

// Buffer is a buffer handle with its own memory allocation.
type Buffer struct {
	Buffer core1_0.Buffer
	Memory core1_0.DeviceMemory
	Size   int

	driver core1_0.DeviceDriver
}

func (b *Buffer) Destroy() {
	if b == nil || b.driver == nil {
		return
	}
	if b.Buffer.Initialized() {
		b.driver.DestroyBuffer(b.Buffer, nil)
		b.Buffer = core1_0.Buffer{}
	}
	if b.Memory.Initialized() {
		b.driver.FreeMemory(b.Memory, nil)
		b.Memory = core1_0.DeviceMemory{}
	}
}

// Write copies the binary encoding of data into host-visible memory.
func (b *Buffer) Write(offset int, data any) error {
	return writeData(b.driver, b.Memory, offset, data)
}

// Image is an image with its memory and, once created, its view.
type Image struct {
	Image  core1_0.Image
	Memory core1_0.DeviceMemory
	View   core1_0.ImageView
	Format core1_0.Format
	Width  int
	Height int

	driver core1_0.DeviceDriver
}

// Destroy releases view, image and memory in that order.
func (i *Image) Destroy() {
	if i == nil || i.driver == nil {
		return
	}
	if i.View.Initialized() {
		i.driver.DestroyImageView(i.View, nil)
		i.View = core1_0.ImageView{}
	}
	if i.Image.Initialized() {
		i.driver.DestroyImage(i.Image, nil)
		i.Image = core1_0.Image{}
	}
	if i.Memory.Initialized() {
		i.driver.FreeMemory(i.Memory, nil)
		i.Memory = core1_0.DeviceMemory{}
	}
}

func encode(data any) ([]byte, error) {
	if b, ok := data.([]byte); ok {
		return b, nil
	}

	buf := &bytes.Buffer{}
	err := binary.Write(buf, common.ByteOrder, data)
	if err != nil {
		return nil, errors.Wrap(err, "encode buffer data")
	}
	return buf.Bytes(), nil
}

func writeData(driver core1_0.DeviceDriver, memory core1_0.DeviceMemory, offset int, data any) error {
	payload, err := encode(data)
	if err != nil {
		return err
	}

	memoryPtr, _, err := driver.MapMemory(memory, offset, len(payload), 0)
	if err != nil {
		return err
	}
	defer driver.UnmapMemory(memory)

	copy(unsafe.Slice((*byte)(memoryPtr), len(payload)), payload)
	return nil
}

func readData(driver core1_0.DeviceDriver, memory core1_0.DeviceMemory, offset, size int) ([]byte, error) {
	memoryPtr, _, err := driver.MapMemory(memory, offset, size, 0)
	if err != nil {
		return nil, err
	}
	defer driver.UnmapMemory(memory)

	out := make([]byte, size)
	copy(out, unsafe.Slice((*byte)(memoryPtr), size))
	return out, nil
}
