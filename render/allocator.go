package render

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
)

// Allocator creates memory-backed buffers and images and moves data into
// device-local memory. Everything it records runs on a one-shot command
// buffer that is waited on before returning; it is meant for load-time work.
type Allocator struct {
	device      core1_0.DeviceDriver
	memoryTypes []core1_0.MemoryType
	commandPool core1_0.CommandPool
	queue       core1_0.Queue
}

func newAllocator(device core1_0.DeviceDriver, memoryTypes []core1_0.MemoryType, commandPool core1_0.CommandPool, queue core1_0.Queue) *Allocator {
	return &Allocator{
		device:      device,
		memoryTypes: memoryTypes,
		commandPool: commandPool,
		queue:       queue,
	}
}

func findMemoryType(memoryTypes []core1_0.MemoryType, typeFilter uint32, properties core1_0.MemoryPropertyFlags) (int, error) {
	for i, memoryType := range memoryTypes {
		typeBit := uint32(1 << i)

		if (typeFilter&typeBit) != 0 && (memoryType.PropertyFlags&properties) == properties {
			return i, nil
		}
	}

	return 0, errors.Wrapf(ErrNoMemoryType, "type bits %#x, properties %s", typeFilter, properties)
}

func (a *Allocator) CreateBuffer(size int, usage core1_0.BufferUsageFlags, properties core1_0.MemoryPropertyFlags) (*Buffer, error) {
	buffer, _, err := a.device.CreateBuffer(nil, core1_0.BufferCreateInfo{
		Size:        size,
		Usage:       usage,
		SharingMode: core1_0.SharingModeExclusive,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create buffer")
	}

	out := &Buffer{Buffer: buffer, Size: size, driver: a.device}

	memRequirements := a.device.GetBufferMemoryRequirements(buffer)
	memoryTypeIndex, err := findMemoryType(a.memoryTypes, memRequirements.MemoryTypeBits, properties)
	if err != nil {
		out.Destroy()
		return nil, err
	}

	out.Memory, _, err = a.device.AllocateMemory(nil, core1_0.MemoryAllocateInfo{
		AllocationSize:  memRequirements.Size,
		MemoryTypeIndex: memoryTypeIndex,
	})
	if err != nil {
		out.Destroy()
		return nil, errors.Wrap(err, "allocate buffer memory")
	}

	_, err = a.device.BindBufferMemory(buffer, out.Memory, 0)
	if err != nil {
		out.Destroy()
		return nil, errors.Wrap(err, "bind buffer memory")
	}

	return out, nil
}

func (a *Allocator) CreateImage(width, height int, format core1_0.Format, tiling core1_0.ImageTiling, usage core1_0.ImageUsageFlags, properties core1_0.MemoryPropertyFlags) (*Image, error) {
	image, _, err := a.device.CreateImage(nil, core1_0.ImageCreateInfo{
		ImageType: core1_0.ImageType2D,
		Extent: core1_0.Extent3D{
			Width:  width,
			Height: height,
			Depth:  1,
		},
		MipLevels:     1,
		ArrayLayers:   1,
		Format:        format,
		Tiling:        tiling,
		InitialLayout: core1_0.ImageLayoutUndefined,
		Usage:         usage,
		SharingMode:   core1_0.SharingModeExclusive,
		Samples:       core1_0.Samples1,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create image")
	}

	out := &Image{Image: image, Format: format, Width: width, Height: height, driver: a.device}

	memReqs := a.device.GetImageMemoryRequirements(image)
	memoryIndex, err := findMemoryType(a.memoryTypes, memReqs.MemoryTypeBits, properties)
	if err != nil {
		out.Destroy()
		return nil, err
	}

	out.Memory, _, err = a.device.AllocateMemory(nil, core1_0.MemoryAllocateInfo{
		AllocationSize:  memReqs.Size,
		MemoryTypeIndex: memoryIndex,
	})
	if err != nil {
		out.Destroy()
		return nil, errors.Wrap(err, "allocate image memory")
	}

	_, err = a.device.BindImageMemory(image, out.Memory, 0)
	if err != nil {
		out.Destroy()
		return nil, errors.Wrap(err, "bind image memory")
	}

	return out, nil
}

// CreateImageView creates the single-level 2D view for img and stores it on img.
func (a *Allocator) CreateImageView(img *Image, aspect core1_0.ImageAspectFlags) error {
	view, err := createImageView(a.device, img.Image, img.Format, aspect)
	if err != nil {
		return err
	}
	img.View = view
	return nil
}

func createImageView(device core1_0.DeviceDriver, image core1_0.Image, format core1_0.Format, aspect core1_0.ImageAspectFlags) (core1_0.ImageView, error) {
	imageView, _, err := device.CreateImageView(nil, core1_0.ImageViewCreateInfo{
		Image:    image,
		ViewType: core1_0.ImageViewType2D,
		Format:   format,
		SubresourceRange: core1_0.ImageSubresourceRange{
			AspectMask:     aspect,
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	})
	if err != nil {
		return core1_0.ImageView{}, errors.Wrap(err, "create image view")
	}
	return imageView, nil
}

func (a *Allocator) createStagingBuffer(payload []byte) (*Buffer, error) {
	staging, err := a.CreateBuffer(len(payload), core1_0.BufferUsageTransferSrc|core1_0.BufferUsageTransferDst,
		core1_0.MemoryPropertyHostVisible|core1_0.MemoryPropertyHostCoherent)
	if err != nil {
		return nil, errors.Wrap(err, "create staging buffer")
	}

	if len(payload) > 0 {
		err = staging.Write(0, payload)
		if err != nil {
			staging.Destroy()
			return nil, err
		}
	}
	return staging, nil
}

// UploadBuffer copies data into a device-local buffer through a temporary
// host-visible staging buffer.
func (a *Allocator) UploadBuffer(data any, dst *Buffer) error {
	payload, err := encode(data)
	if err != nil {
		return err
	}
	if len(payload) > dst.Size {
		return errors.AssertionFailedf("upload of %d bytes overflows %d byte buffer", len(payload), dst.Size)
	}

	staging, err := a.createStagingBuffer(payload)
	if err != nil {
		return err
	}
	defer staging.Destroy()

	return a.CopyBuffer(staging, dst, len(payload))
}

// UploadImage copies tightly packed pixel data into an image that is
// already in the transfer destination layout.
func (a *Allocator) UploadImage(pixels []byte, dst *Image) error {
	staging, err := a.createStagingBuffer(pixels)
	if err != nil {
		return err
	}
	defer staging.Destroy()

	return a.CopyBufferToImage(staging, dst)
}

// CreateDeviceBuffer creates a device-local buffer of the given usage and
// fills it with data through staging.
func (a *Allocator) CreateDeviceBuffer(data any, usage core1_0.BufferUsageFlags) (*Buffer, error) {
	payload, err := encode(data)
	if err != nil {
		return nil, err
	}

	buffer, err := a.CreateBuffer(len(payload), usage|core1_0.BufferUsageTransferDst|core1_0.BufferUsageTransferSrc, core1_0.MemoryPropertyDeviceLocal)
	if err != nil {
		return nil, err
	}

	err = a.UploadBuffer(payload, buffer)
	if err != nil {
		buffer.Destroy()
		return nil, err
	}
	return buffer, nil
}

// DownloadBuffer reads size bytes back from a buffer created with transfer
// source usage.
func (a *Allocator) DownloadBuffer(src *Buffer, size int) ([]byte, error) {
	staging, err := a.createStagingBuffer(make([]byte, size))
	if err != nil {
		return nil, err
	}
	defer staging.Destroy()

	err = a.CopyBuffer(src, staging, size)
	if err != nil {
		return nil, err
	}

	return readData(a.device, staging.Memory, 0, size)
}

func (a *Allocator) TransitionImageLayout(image core1_0.Image, format core1_0.Format, oldLayout core1_0.ImageLayout, newLayout core1_0.ImageLayout) error {
	transition, err := lookupTransition(oldLayout, newLayout)
	if err != nil {
		return err
	}

	return a.runOnce(func(buffer core1_0.CommandBuffer) error {
		return a.device.CmdPipelineBarrier(buffer, transition.srcStage, transition.dstStage, 0, nil, nil, []core1_0.ImageMemoryBarrier{
			{
				OldLayout:           oldLayout,
				NewLayout:           newLayout,
				SrcQueueFamilyIndex: -1,
				DstQueueFamilyIndex: -1,
				Image:               image,
				SubresourceRange: core1_0.ImageSubresourceRange{
					AspectMask:     transitionAspect(format, newLayout),
					BaseMipLevel:   0,
					LevelCount:     1,
					BaseArrayLayer: 0,
					LayerCount:     1,
				},
				SrcAccessMask: transition.srcAccess,
				DstAccessMask: transition.dstAccess,
			},
		})
	})
}

func (a *Allocator) CopyBuffer(src *Buffer, dst *Buffer, size int) error {
	return a.runOnce(func(buffer core1_0.CommandBuffer) error {
		return a.device.CmdCopyBuffer(buffer, src.Buffer, dst.Buffer,
			core1_0.BufferCopy{
				SrcOffset: 0,
				DstOffset: 0,
				Size:      size,
			},
		)
	})
}

func (a *Allocator) CopyBufferToImage(src *Buffer, dst *Image) error {
	return a.runOnce(func(buffer core1_0.CommandBuffer) error {
		return a.device.CmdCopyBufferToImage(buffer, src.Buffer, dst.Image, core1_0.ImageLayoutTransferDstOptimal,
			core1_0.BufferImageCopy{
				BufferOffset:      0,
				BufferRowLength:   0,
				BufferImageHeight: 0,

				ImageSubresource: core1_0.ImageSubresourceLayers{
					AspectMask:     core1_0.ImageAspectColor,
					MipLevel:       0,
					BaseArrayLayer: 0,
					LayerCount:     1,
				},
				ImageOffset: core1_0.Offset3D{X: 0, Y: 0, Z: 0},
				ImageExtent: core1_0.Extent3D{Width: dst.Width, Height: dst.Height, Depth: 1},
			},
		)
	})
}

// runOnce records fn into a fresh primary command buffer, submits it and
// blocks until the queue is idle.
func (a *Allocator) runOnce(fn func(buffer core1_0.CommandBuffer) error) error {
	buffers, _, err := a.device.AllocateCommandBuffers(core1_0.CommandBufferAllocateInfo{
		CommandPool:        a.commandPool,
		Level:              core1_0.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	})
	if err != nil {
		return errors.Wrap(err, "allocate one-shot command buffer")
	}

	buffer := buffers[0]
	defer a.device.FreeCommandBuffers(buffer)

	_, err = a.device.BeginCommandBuffer(buffer, core1_0.CommandBufferBeginInfo{
		Flags: core1_0.CommandBufferUsageOneTimeSubmit,
	})
	if err != nil {
		return err
	}

	err = fn(buffer)
	if err != nil {
		return err
	}

	_, err = a.device.EndCommandBuffer(buffer)
	if err != nil {
		return err
	}

	_, err = a.device.QueueSubmit(a.queue, nil,
		core1_0.SubmitInfo{
			CommandBuffers: []core1_0.CommandBuffer{buffer},
		},
	)
	if err != nil {
		return errors.Wrap(err, "submit one-shot command buffer")
	}

	_, err = a.device.QueueWaitIdle(a.queue)
	return err
}
