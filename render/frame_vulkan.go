package render

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
)

// frameSlot is the synchronisation and recording state reused every
// MaxFramesInFlight frames.
type frameSlot struct {
	imageAvailable core1_0.Semaphore
	inFlight       core1_0.Fence
	commandBuffer  core1_0.CommandBuffer
}

func (r *Renderer) createFrameSlots() error {
	buffers, _, err := r.deviceDriver.AllocateCommandBuffers(core1_0.CommandBufferAllocateInfo{
		CommandPool:        r.commandPool,
		Level:              core1_0.CommandBufferLevelPrimary,
		CommandBufferCount: MaxFramesInFlight,
	})
	if err != nil {
		return errors.Wrap(err, "allocate frame command buffers")
	}
	r.release.push(func() {
		r.deviceDriver.FreeCommandBuffers(buffers...)
	})

	r.slots = make([]frameSlot, MaxFramesInFlight)
	for i := range r.slots {
		slot := &r.slots[i]
		slot.commandBuffer = buffers[i]

		slot.imageAvailable, _, err = r.deviceDriver.CreateSemaphore(nil, core1_0.SemaphoreCreateInfo{})
		if err != nil {
			return errors.Wrap(err, "create image available semaphore")
		}
		semaphore := slot.imageAvailable
		r.release.push(func() {
			r.deviceDriver.DestroySemaphore(semaphore, nil)
		})

		slot.inFlight, _, err = r.deviceDriver.CreateFence(nil, core1_0.FenceCreateInfo{
			Flags: core1_0.FenceCreateSignaled,
		})
		if err != nil {
			return errors.Wrap(err, "create in-flight fence")
		}
		fence := slot.inFlight
		r.release.push(func() {
			r.deviceDriver.DestroyFence(fence, nil)
		})
	}

	return nil
}

func (r *Renderer) waitForSlot(slot int) error {
	_, err := r.deviceDriver.WaitForFences(true, common.NoTimeout, r.slots[slot].inFlight)
	return err
}

func (r *Renderer) acquireImage(slot int) (int, PresentStatus, error) {
	imageIndex, res, err := r.swapchainExtension.AcquireNextImage(r.swapchains.current.swapchain, common.NoTimeout, &r.slots[slot].imageAvailable, nil)
	status, err := classifyPresentResult("acquire next image", res, err)
	return imageIndex, status, err
}

func (r *Renderer) imageCount() int {
	if r.swapchains == nil || r.swapchains.current == nil {
		return 0
	}
	return r.swapchains.current.imageCount()
}

func (r *Renderer) recordFrame(slot, image int, frame Frame) error {
	c := r.swapchains.current

	ubo := frame.Camera.uniformBlock(c.extent)
	err := c.uniforms[image].Write(0, &ubo)
	if err != nil {
		return errors.Wrap(err, "write uniform block")
	}

	buffer := r.slots[slot].commandBuffer
	_, err = r.deviceDriver.ResetCommandBuffer(buffer, 0)
	if err != nil {
		return errors.Wrap(err, "reset command buffer")
	}

	_, err = r.deviceDriver.BeginCommandBuffer(buffer, core1_0.CommandBufferBeginInfo{})
	if err != nil {
		return err
	}

	clearColor := r.opts.ClearColor
	err = r.deviceDriver.CmdBeginRenderPass(buffer, core1_0.SubpassContentsInline,
		core1_0.RenderPassBeginInfo{
			RenderPass:  c.renderPass,
			Framebuffer: c.framebuffers[image],
			RenderArea: core1_0.Rect2D{
				Offset: core1_0.Offset2D{X: 0, Y: 0},
				Extent: c.extent,
			},
			ClearValues: []core1_0.ClearValue{
				core1_0.ClearValueFloat{clearColor[0], clearColor[1], clearColor[2], clearColor[3]},
				core1_0.ClearValueDepthStencil{Depth: 1.0, Stencil: 0},
			},
		})
	if err != nil {
		return err
	}

	r.deviceDriver.CmdBindPipeline(buffer, core1_0.PipelineBindPointGraphics, c.pipeline)
	r.deviceDriver.CmdBindVertexBuffers(buffer, 0, []core1_0.Buffer{r.vertexBuffer.Buffer}, []int{0})
	r.deviceDriver.CmdBindIndexBuffer(buffer, r.indexBuffer.Buffer, 0, core1_0.IndexTypeUInt32)

	for i := range frame.Sprites {
		err = r.recordSprite(buffer, image, &frame.Sprites[i])
		if err != nil {
			return err
		}
	}

	r.deviceDriver.CmdEndRenderPass(buffer)

	_, err = r.deviceDriver.EndCommandBuffer(buffer)
	return err
}

func (r *Renderer) recordSprite(buffer core1_0.CommandBuffer, image int, sprite *SpriteDraw) error {
	texture, ok := r.textures.Get(sprite.Texture)
	if !ok {
		r.diag.Warn("skipping sprite with stale texture handle", "texture", sprite.Texture.String())
		return nil
	}

	set, ok := r.swapchains.current.descriptors.lookup(image, sprite.Texture.Index())
	if !ok {
		return errors.AssertionFailedf("no descriptor set for texture %s on image %d", sprite.Texture, image)
	}

	uv, err := SubregionTransform(texture.Columns, texture.Rows, sprite.Subsprite)
	if err != nil {
		return errors.Wrapf(err, "sprite on texture %s", texture.Name)
	}

	constants := newSpriteConstants(sprite.ModelMatrix(), uv)
	payload, err := encode(&constants)
	if err != nil {
		return err
	}

	r.deviceDriver.CmdBindDescriptorSets(buffer, core1_0.PipelineBindPointGraphics, r.pipelineLayout, 0, []core1_0.DescriptorSet{
		set,
	}, nil)
	r.deviceDriver.CmdPushConstants(buffer, r.pipelineLayout, core1_0.StageVertex, 0, payload)
	r.deviceDriver.CmdDrawIndexed(buffer, r.indexCount, 1, 0, 0, 0)
	return nil
}

func (r *Renderer) submitFrame(slot, image int) error {
	s := &r.slots[slot]

	_, err := r.deviceDriver.ResetFences(s.inFlight)
	if err != nil {
		return errors.Wrap(err, "reset in-flight fence")
	}

	_, err = r.deviceDriver.QueueSubmit(r.graphicsQueue, &s.inFlight,
		core1_0.SubmitInfo{
			WaitSemaphores:   []core1_0.Semaphore{s.imageAvailable},
			WaitDstStageMask: []core1_0.PipelineStageFlags{core1_0.PipelineStageColorAttachmentOutput},
			CommandBuffers:   []core1_0.CommandBuffer{s.commandBuffer},
			SignalSemaphores: []core1_0.Semaphore{r.swapchains.current.renderFinished[image]},
		},
	)
	if err != nil {
		return errors.Wrap(err, "submit frame")
	}
	return nil
}

func (r *Renderer) presentImage(slot, image int) (PresentStatus, error) {
	c := r.swapchains.current
	res, err := r.swapchainExtension.QueuePresent(r.presentQueue, khr_swapchain.PresentInfo{
		WaitSemaphores: []core1_0.Semaphore{c.renderFinished[image]},
		Swapchains:     []khr_swapchain.Swapchain{c.swapchain},
		ImageIndices:   []int{image},
	})
	return classifyPresentResult("present", res, err)
}

func (r *Renderer) recreateSwapchain() error {
	err := r.swapchains.recreate()
	if err != nil {
		return err
	}
	r.logger.Debug("swapchain recreated", "builds", r.swapchains.builds, "extent", r.swapchains.current.extent)
	return nil
}
