package render

import (
	"github.com/cockroachdb/errors"
	"github.com/veandco/go-sdl2/sdl"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
)

type SwapChainSupportDetails struct {
	Capabilities *khr_surface.SurfaceCapabilities
	Formats      []khr_surface.SurfaceFormat
	PresentModes []khr_surface.PresentMode
}

func chooseSwapSurfaceFormat(availableFormats []khr_surface.SurfaceFormat) khr_surface.SurfaceFormat {
	for _, format := range availableFormats {
		if format.Format == core1_0.FormatB8G8R8A8SRGB && format.ColorSpace == khr_surface.ColorSpaceSRGBNonlinear {
			return format
		}
	}

	return availableFormats[0]
}

func chooseSwapPresentMode(availablePresentModes []khr_surface.PresentMode) khr_surface.PresentMode {
	for _, presentMode := range availablePresentModes {
		if presentMode == khr_surface.PresentModeMailbox {
			return presentMode
		}
	}

	return khr_surface.PresentModeFIFO
}

func chooseSwapExtent(capabilities *khr_surface.SurfaceCapabilities, drawableWidth, drawableHeight int) core1_0.Extent2D {
	if capabilities.CurrentExtent.Width != -1 {
		return capabilities.CurrentExtent
	}

	width := drawableWidth
	height := drawableHeight

	if width < capabilities.MinImageExtent.Width {
		width = capabilities.MinImageExtent.Width
	}
	if width > capabilities.MaxImageExtent.Width {
		width = capabilities.MaxImageExtent.Width
	}
	if height < capabilities.MinImageExtent.Height {
		height = capabilities.MinImageExtent.Height
	}
	if height > capabilities.MaxImageExtent.Height {
		height = capabilities.MaxImageExtent.Height
	}

	return core1_0.Extent2D{Width: width, Height: height}
}

func chooseImageCount(capabilities *khr_surface.SurfaceCapabilities) int {
	imageCount := capabilities.MinImageCount + 1
	if capabilities.MaxImageCount > 0 && capabilities.MaxImageCount < imageCount {
		imageCount = capabilities.MaxImageCount
	}
	return imageCount
}

// drawableSource reports the size of the area the swapchain presents to.
type drawableSource interface {
	DrawableSize() (width, height int)
	// WaitEvents blocks briefly for platform events and reports false once the
	// window has been asked to close.
	WaitEvents() bool
}

type sdlDrawable struct {
	window *sdl.Window
}

func (d sdlDrawable) DrawableSize() (int, int) {
	if (d.window.GetFlags() & sdl.WINDOW_MINIMIZED) != 0 {
		return 0, 0
	}
	w, h := d.window.VulkanGetDrawableSize()
	return int(w), int(h)
}

func (d sdlDrawable) WaitEvents() bool {
	event := sdl.WaitEventTimeout(16)
	if _, quit := event.(*sdl.QuitEvent); quit {
		return false
	}
	return true
}

// awaitDrawable blocks until the drawable area is non-zero.
func awaitDrawable(source drawableSource) (int, int, error) {
	for {
		w, h := source.DrawableSize()
		if w > 0 && h > 0 {
			return w, h, nil
		}
		if !source.WaitEvents() {
			return 0, 0, ErrWindowClosed
		}
	}
}

// chain is every object whose lifetime is bound to one swapchain.
type chain struct {
	swapchain    khr_swapchain.Swapchain
	images       []core1_0.Image
	views        []core1_0.ImageView
	depth        *Image
	renderPass   core1_0.RenderPass
	pipeline     core1_0.Pipeline
	framebuffers []core1_0.Framebuffer
	uniforms     []*Buffer
	// renderFinished[image] is signalled when rendering into that image ends
	renderFinished []core1_0.Semaphore

	descriptors *descriptorTable

	extent      core1_0.Extent2D
	format      core1_0.Format
	presentMode khr_surface.PresentMode

	release releaser
}

func (c *chain) imageCount() int {
	return len(c.images)
}

func (c *chain) validate() error {
	n := len(c.images)
	if n == 0 {
		return errors.AssertionFailedf("swapchain has no images")
	}
	if len(c.views) != n || len(c.framebuffers) != n || len(c.uniforms) != n {
		return errors.AssertionFailedf("swapchain of %d images has %d views, %d framebuffers, %d uniform buffers",
			n, len(c.views), len(c.framebuffers), len(c.uniforms))
	}
	if c.extent.Width == 0 || c.extent.Height == 0 {
		return errors.AssertionFailedf("swapchain extent %dx%d", c.extent.Width, c.extent.Height)
	}
	return nil
}

func (c *chain) destroy() {
	c.release.release()
	c.images = nil
	c.views = nil
	c.framebuffers = nil
	c.uniforms = nil
	c.renderFinished = nil
	c.descriptors = nil
	c.depth = nil
}

type chainFactory interface {
	waitIdle() error
	// buildChain creates a complete chain for a drawable area of the given size.
	// On error nothing it created is left alive.
	buildChain(drawableWidth, drawableHeight int) (*chain, error)
}

// swapchainManager owns the current chain and replaces it as a whole.
type swapchainManager struct {
	factory  chainFactory
	drawable drawableSource
	current  *chain
	builds   int
}

func (m *swapchainManager) recreate() error {
	w, h, err := awaitDrawable(m.drawable)
	if err != nil {
		return err
	}

	err = m.factory.waitIdle()
	if err != nil {
		return errors.Wrap(err, "wait for device idle before swapchain recreation")
	}

	m.destroy()

	next, err := m.factory.buildChain(w, h)
	if err != nil {
		return errors.Wrap(err, "build swapchain")
	}

	err = next.validate()
	if err != nil {
		next.destroy()
		return err
	}

	m.current = next
	m.builds++
	return nil
}

func (m *swapchainManager) destroy() {
	if m.current != nil {
		m.current.destroy()
		m.current = nil
	}
}
