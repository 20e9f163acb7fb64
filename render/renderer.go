// Package render draws textured sprites with Vulkan.
//
// A Renderer owns the device, the swapchain and everything downstream of them.
// Its methods must be called from the thread that created the window.
package render

import (
	"image"
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/veandco/go-sdl2/sdl"
	"github.com/vkngwrapper/core/v3"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/ext_debug_utils"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
	"github.com/vkngwrapper/sprites/diag"
)

type Options struct {
	AppName    string
	Validation bool
	// ShaderDir holds sprite.vert.spv and sprite.frag.spv.
	ShaderDir string
	// PipelineCachePath is where pipeline cache data is kept between runs.
	// Empty disables the on-disk cache.
	PipelineCachePath string
	ClearColor        [4]float32
	MaxTextures       int
	MaxSprites        int

	Logger      *slog.Logger
	Diagnostics *diag.Sink
}

func (o *Options) setDefaults() {
	if o.AppName == "" {
		o.AppName = "sprites"
	}
	if o.ShaderDir == "" {
		o.ShaderDir = "shaders"
	}
	if o.MaxTextures <= 0 {
		o.MaxTextures = 100
	}
	if o.MaxSprites <= 0 {
		o.MaxSprites = 1024
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Diagnostics == nil {
		o.Diagnostics = diag.NewSink(o.Logger)
	}
}

type Renderer struct {
	window *sdl.Window
	opts   Options
	logger *slog.Logger
	diag   *diag.Sink

	globalDriver   core1_0.GlobalDriver
	instanceDriver core1_0.CoreInstanceDriver
	deviceDriver   core1_0.CoreDeviceDriver

	debugDriver        ext_debug_utils.ExtensionDriver
	debugMessenger     ext_debug_utils.DebugUtilsMessenger
	surfaceExtension   khr_surface.ExtensionDriver
	surface            khr_surface.Surface
	swapchainExtension khr_swapchain.ExtensionDriver

	physicalDevice core1_0.PhysicalDevice
	properties     *core1_0.PhysicalDeviceProperties
	queueFamilies  QueueFamilyIndices
	graphicsQueue  core1_0.Queue
	presentQueue   core1_0.Queue

	commandPool core1_0.CommandPool
	allocator   *Allocator
	textures    *TextureStore

	descriptorSetLayout core1_0.DescriptorSetLayout
	sampler             core1_0.Sampler
	pipelineLayout      core1_0.PipelineLayout
	pipelineCache       core1_0.PipelineCache
	shaders             shaderSet

	vertexBuffer *Buffer
	indexBuffer  *Buffer
	indexCount   int

	swapchains *swapchainManager
	slots      []frameSlot
	scheduler  *frameScheduler

	// device-lifetime objects, released in reverse at Shutdown
	release     releaser
	initialized bool
}

// New prepares a renderer for window. Nothing touches the GPU until
// Initialize.
func New(window *sdl.Window, opts Options) *Renderer {
	opts.setDefaults()
	return &Renderer{
		window: window,
		opts:   opts,
		logger: opts.Logger,
		diag:   opts.Diagnostics,
	}
}

// Initialize creates the device context, the initial swapchain and every
// object frames depend on. Errors are marked with ErrSetup; on error nothing
// created so far is left alive.
func (r *Renderer) Initialize() error {
	if r.initialized {
		return errors.AssertionFailedf("renderer initialized twice")
	}

	err := r.initialize()
	if err != nil {
		r.release.release()
		return err
	}

	r.initialized = true
	return nil
}

func (r *Renderer) initialize() error {
	var err error
	r.globalDriver, err = core.CreateDriverFromProcAddr(sdl.VulkanGetVkGetInstanceProcAddr())
	if err != nil {
		return setupError(err, "load Vulkan driver")
	}

	steps := []struct {
		name string
		fn   func() error
	}{
		{"create instance", r.createInstance},
		{"set up debug messenger", r.setupDebugMessenger},
		{"create surface", r.createSurface},
		{"pick physical device", r.pickPhysicalDevice},
		{"create logical device", r.createLogicalDevice},
		{"create command pool", r.createCommandPool},
		{"create resource allocator", r.createAllocator},
		{"create pipeline objects", r.createPipelineObjects},
		{"create quad mesh", r.createQuadMesh},
		{"create swapchain", r.createSwapchain},
		{"create frame slots", r.createFrameSlots},
	}

	for _, step := range steps {
		err = step.fn()
		if err != nil {
			return setupError(err, "%s", step.name)
		}
	}

	r.scheduler = newFrameScheduler(r, r.logger, MaxFramesInFlight)
	return nil
}

func (r *Renderer) createAllocator() error {
	memProperties := r.instanceDriver.GetPhysicalDeviceMemoryProperties(r.physicalDevice)
	r.allocator = newAllocator(r.deviceDriver, memProperties.MemoryTypes, r.commandPool, r.graphicsQueue)
	r.textures = newTextureStore(r.allocator, r.opts.MaxTextures)
	r.release.push(r.textures.UnloadAll)
	return nil
}

func (r *Renderer) createPipelineObjects() error {
	var err error
	r.shaders, err = loadShaders(r.opts.ShaderDir)
	if err != nil {
		return err
	}

	r.descriptorSetLayout, err = createDescriptorSetLayout(r.deviceDriver)
	if err != nil {
		return err
	}
	r.release.push(func() {
		r.deviceDriver.DestroyDescriptorSetLayout(r.descriptorSetLayout, nil)
	})

	r.sampler, err = createSampler(r.deviceDriver, r.properties.Limits.MaxSamplerAnisotropy)
	if err != nil {
		return err
	}
	r.release.push(func() {
		r.deviceDriver.DestroySampler(r.sampler, nil)
	})

	r.pipelineLayout, err = createPipelineLayout(r.deviceDriver, r.descriptorSetLayout)
	if err != nil {
		return err
	}
	r.release.push(func() {
		r.deviceDriver.DestroyPipelineLayout(r.pipelineLayout, nil)
	})

	initialData := loadPipelineCacheData(r.logger, r.opts.PipelineCachePath, r.cacheIdentity())
	r.pipelineCache, err = createPipelineCache(r.deviceDriver, initialData)
	if err != nil {
		return err
	}
	r.release.push(func() {
		r.deviceDriver.DestroyPipelineCache(r.pipelineCache, nil)
	})
	return nil
}

func (r *Renderer) createQuadMesh() error {
	quad, err := loadQuadMesh()
	if err != nil {
		return err
	}

	r.vertexBuffer, err = r.allocator.CreateDeviceBuffer(quad.vertices, core1_0.BufferUsageVertexBuffer)
	if err != nil {
		return errors.Wrap(err, "upload quad vertices")
	}
	r.release.push(r.vertexBuffer.Destroy)

	r.indexBuffer, err = r.allocator.CreateDeviceBuffer(quad.indices, core1_0.BufferUsageIndexBuffer)
	if err != nil {
		return errors.Wrap(err, "upload quad indices")
	}
	r.release.push(r.indexBuffer.Destroy)

	r.indexCount = len(quad.indices)
	return nil
}

func (r *Renderer) createSwapchain() error {
	r.swapchains = &swapchainManager{
		factory:  r,
		drawable: sdlDrawable{window: r.window},
	}

	err := r.swapchains.recreate()
	if err != nil {
		return err
	}
	r.release.push(r.swapchains.destroy)
	return nil
}

// NotifyResized raises the resize flag; the swapchain is rebuilt after the
// next present.
func (r *Renderer) NotifyResized() {
	if r.scheduler != nil {
		r.scheduler.notifyResized()
	}
}

// DrawFrame renders and presents one frame. Out of date and suboptimal
// swapchains are recreated in place and reported through the outcome, never as
// errors.
func (r *Renderer) DrawFrame(frame Frame) (FrameOutcome, error) {
	if !r.initialized {
		return FrameSkipped, errors.AssertionFailedf("draw before renderer initialization")
	}
	if len(frame.Sprites) > r.opts.MaxSprites {
		return FrameSkipped, errors.AssertionFailedf("%d sprites exceed the per-frame limit of %d", len(frame.Sprites), r.opts.MaxSprites)
	}

	err := r.refreshDescriptors()
	if err != nil {
		return FrameSkipped, err
	}

	return r.scheduler.drawFrame(frame)
}

// refreshDescriptors rewrites descriptor sets after the texture set changed.
func (r *Renderer) refreshDescriptors() error {
	current := r.swapchains.current
	if current == nil || current.descriptors.version == r.textures.version {
		return nil
	}

	err := r.waitIdle()
	if err != nil {
		return errors.Wrap(err, "wait for device idle before descriptor update")
	}
	return r.writeDescriptors(current)
}

// LoadTexture loads an image file as a columns x rows atlas.
func (r *Renderer) LoadTexture(path string, columns, rows int) (TextureHandle, error) {
	if !r.initialized {
		return TextureHandle{}, errors.AssertionFailedf("texture load before renderer initialization")
	}
	h, err := r.textures.LoadTexture(path, columns, rows)
	if err != nil {
		return h, err
	}
	r.logger.Info("texture loaded", "path", path, "handle", h)
	return h, nil
}

// LoadTextureImage uploads an in-memory image as a columns x rows atlas.
func (r *Renderer) LoadTextureImage(name string, img image.Image, columns, rows int) (TextureHandle, error) {
	if !r.initialized {
		return TextureHandle{}, errors.AssertionFailedf("texture load before renderer initialization")
	}
	return r.textures.LoadTextureImage(name, img, columns, rows)
}

func (r *Renderer) LoadTextures(requests []TextureRequest) ([]TextureHandle, error) {
	if !r.initialized {
		return nil, errors.AssertionFailedf("texture load before renderer initialization")
	}
	handles, err := r.textures.LoadTextures(requests)
	if err != nil {
		return nil, err
	}
	r.logger.Info("textures loaded", "count", len(handles))
	return handles, nil
}

// RemoveTexture waits for the device to go idle and destroys one texture.
func (r *Renderer) RemoveTexture(h TextureHandle) (bool, error) {
	if !r.initialized {
		return false, nil
	}
	err := r.waitIdle()
	if err != nil {
		return false, err
	}
	return r.textures.Remove(h), nil
}

func (r *Renderer) Textures() *TextureStore {
	return r.textures
}

func (r *Renderer) Allocator() *Allocator {
	return r.allocator
}

func (r *Renderer) Diagnostics() *diag.Sink {
	return r.diag
}

// Extent is the current swapchain size in pixels.
func (r *Renderer) Extent() core1_0.Extent2D {
	if r.swapchains == nil || r.swapchains.current == nil {
		return core1_0.Extent2D{}
	}
	return r.swapchains.current.extent
}

// Shutdown waits for the device to go idle and destroys everything in
// reverse creation order. It is safe to call more than once.
func (r *Renderer) Shutdown() error {
	if !r.initialized {
		return nil
	}
	r.initialized = false

	err := r.waitIdle()
	if err != nil {
		err = errors.Wrap(err, "wait for device idle at shutdown")
	}

	saveErr := savePipelineCache(r.deviceDriver, r.pipelineCache, r.opts.PipelineCachePath)
	if saveErr != nil {
		r.logger.Warn("pipeline cache not saved", "error", saveErr)
	}

	r.release.release()
	r.scheduler = nil
	return err
}
