package render

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
)

func (r *Renderer) waitIdle() error {
	_, err := r.deviceDriver.DeviceWaitIdle()
	return err
}

func (r *Renderer) buildChain(drawableWidth, drawableHeight int) (c *chain, err error) {
	c = &chain{}
	defer func() {
		if err != nil {
			c.destroy()
			c = nil
		}
	}()

	swapchainSupport, err := r.querySwapChainSupport(r.physicalDevice)
	if err != nil {
		return c, err
	}

	surfaceFormat := chooseSwapSurfaceFormat(swapchainSupport.Formats)
	c.presentMode = chooseSwapPresentMode(swapchainSupport.PresentModes)
	c.extent = chooseSwapExtent(swapchainSupport.Capabilities, drawableWidth, drawableHeight)
	c.format = surfaceFormat.Format

	if c.extent.Width == 0 || c.extent.Height == 0 {
		return c, errors.AssertionFailedf("refusing to build a %dx%d swapchain", c.extent.Width, c.extent.Height)
	}

	sharingMode := core1_0.SharingModeExclusive
	var queueFamilyIndices []int

	indices := r.queueFamilies
	if *indices.GraphicsFamily != *indices.PresentFamily {
		sharingMode = core1_0.SharingModeConcurrent
		queueFamilyIndices = append(queueFamilyIndices, *indices.GraphicsFamily, *indices.PresentFamily)
	}

	c.swapchain, _, err = r.swapchainExtension.CreateSwapchain(nil, khr_swapchain.SwapchainCreateInfo{
		Surface: r.surface,

		MinImageCount:    chooseImageCount(swapchainSupport.Capabilities),
		ImageFormat:      surfaceFormat.Format,
		ImageColorSpace:  surfaceFormat.ColorSpace,
		ImageExtent:      c.extent,
		ImageArrayLayers: 1,
		ImageUsage:       core1_0.ImageUsageColorAttachment,

		ImageSharingMode:   sharingMode,
		QueueFamilyIndices: queueFamilyIndices,

		PreTransform:   swapchainSupport.Capabilities.CurrentTransform,
		CompositeAlpha: khr_surface.CompositeAlphaOpaque,
		PresentMode:    c.presentMode,
		Clipped:        true,
	})
	if err != nil {
		return c, errors.Wrap(err, "create swapchain")
	}
	swapchain := c.swapchain
	c.release.push(func() {
		r.swapchainExtension.DestroySwapchain(swapchain, nil)
	})

	c.images, _, err = r.swapchainExtension.GetSwapchainImages(c.swapchain)
	if err != nil {
		return c, errors.Wrap(err, "get swapchain images")
	}

	for _, image := range c.images {
		view, err := createImageView(r.deviceDriver, image, c.format, core1_0.ImageAspectColor)
		if err != nil {
			return c, err
		}
		c.release.push(func() {
			r.deviceDriver.DestroyImageView(view, nil)
		})
		c.views = append(c.views, view)

		semaphore, _, err := r.deviceDriver.CreateSemaphore(nil, core1_0.SemaphoreCreateInfo{})
		if err != nil {
			return c, errors.Wrap(err, "create render finished semaphore")
		}
		c.release.push(func() {
			r.deviceDriver.DestroySemaphore(semaphore, nil)
		})
		c.renderFinished = append(c.renderFinished, semaphore)
	}

	err = r.createDepthResources(c)
	if err != nil {
		return c, err
	}

	c.renderPass, err = createRenderPass(r.deviceDriver, c.format, c.depth.Format)
	if err != nil {
		return c, err
	}
	renderPass := c.renderPass
	c.release.push(func() {
		r.deviceDriver.DestroyRenderPass(renderPass, nil)
	})

	c.pipeline, err = createGraphicsPipeline(r.deviceDriver, pipelineConfig{
		shaders:    r.shaders,
		cache:      r.pipelineCache,
		layout:     r.pipelineLayout,
		renderPass: c.renderPass,
		extent:     c.extent,
	})
	if err != nil {
		return c, err
	}
	pipeline := c.pipeline
	c.release.push(func() {
		r.deviceDriver.DestroyPipeline(pipeline, nil)
	})

	for _, view := range c.views {
		framebuffer, _, err := r.deviceDriver.CreateFramebuffer(nil, core1_0.FramebufferCreateInfo{
			RenderPass: c.renderPass,
			Layers:     1,
			Attachments: []core1_0.ImageView{
				view,
				c.depth.View,
			},
			Width:  c.extent.Width,
			Height: c.extent.Height,
		})
		if err != nil {
			return c, errors.Wrap(err, "create framebuffer")
		}
		c.release.push(func() {
			r.deviceDriver.DestroyFramebuffer(framebuffer, nil)
		})
		c.framebuffers = append(c.framebuffers, framebuffer)
	}

	for range c.images {
		uniform, err := r.allocator.CreateBuffer(uniformBlockSize, core1_0.BufferUsageUniformBuffer,
			core1_0.MemoryPropertyHostVisible|core1_0.MemoryPropertyHostCoherent)
		if err != nil {
			return c, errors.Wrap(err, "create uniform buffer")
		}
		c.release.push(uniform.Destroy)
		c.uniforms = append(c.uniforms, uniform)
	}

	err = r.writeDescriptors(c)
	if err != nil {
		return c, err
	}
	c.release.push(func() {
		c.descriptors.destroy()
	})

	r.logger.Info("swapchain built",
		"images", len(c.images),
		"width", c.extent.Width,
		"height", c.extent.Height,
		"format", c.format,
		"presentMode", c.presentMode)
	return c, nil
}

func (r *Renderer) createDepthResources(c *chain) error {
	depthFormat, err := r.findDepthFormat()
	if err != nil {
		return err
	}

	depth, err := r.allocator.CreateImage(c.extent.Width, c.extent.Height, depthFormat,
		core1_0.ImageTilingOptimal,
		core1_0.ImageUsageDepthStencilAttachment,
		core1_0.MemoryPropertyDeviceLocal)
	if err != nil {
		return errors.Wrap(err, "create depth image")
	}
	c.release.push(depth.Destroy)
	c.depth = depth

	err = r.allocator.CreateImageView(depth, core1_0.ImageAspectDepth)
	if err != nil {
		return err
	}

	return r.allocator.TransitionImageLayout(depth.Image, depthFormat, core1_0.ImageLayoutUndefined, core1_0.ImageLayoutDepthStencilAttachmentOptimal)
}

// writeDescriptors replaces the chain's descriptor table with one matching the
// current texture set.
func (r *Renderer) writeDescriptors(c *chain) error {
	table, err := buildDescriptorTable(r.deviceDriver, descriptorSource{
		layout:   r.descriptorSetLayout,
		sampler:  r.sampler,
		uniforms: c.uniforms,
		textures: r.textures,
	})
	if err != nil {
		return err
	}

	c.descriptors.destroy()
	c.descriptors = table
	return nil
}
