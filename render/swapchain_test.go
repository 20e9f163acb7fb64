package render

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
)

type fakeDrawable struct {
	sizes  [][2]int
	waits  int
	closed bool
}

func (d *fakeDrawable) DrawableSize() (int, int) {
	size := d.sizes[0]
	if len(d.sizes) > 1 {
		d.sizes = d.sizes[1:]
	}
	return size[0], size[1]
}

func (d *fakeDrawable) WaitEvents() bool {
	d.waits++
	return !d.closed
}

type fakeChainFactory struct {
	images    int
	idleWaits int
	built     []core1_0.Extent2D
	destroyed []int
	broken    bool
	fail      error
}

func (f *fakeChainFactory) waitIdle() error {
	f.idleWaits++
	return nil
}

func (f *fakeChainFactory) buildChain(w, h int) (*chain, error) {
	if f.fail != nil {
		return nil, f.fail
	}

	id := len(f.built)
	extent := core1_0.Extent2D{Width: w, Height: h}
	f.built = append(f.built, extent)

	c := &chain{extent: extent}
	for i := 0; i < f.images; i++ {
		c.images = append(c.images, core1_0.Image{})
		c.views = append(c.views, core1_0.ImageView{})
		c.framebuffers = append(c.framebuffers, core1_0.Framebuffer{})
		if !f.broken {
			c.uniforms = append(c.uniforms, &Buffer{})
		}
	}
	c.release.push(func() {
		f.destroyed = append(f.destroyed, id)
	})
	return c, nil
}

func TestChooseSwapSurfaceFormat(t *testing.T) {
	preferred := khr_surface.SurfaceFormat{Format: core1_0.FormatB8G8R8A8SRGB, ColorSpace: khr_surface.ColorSpaceSRGBNonlinear}
	other := khr_surface.SurfaceFormat{Format: core1_0.FormatR8G8B8A8UnsignedNormalized, ColorSpace: khr_surface.ColorSpaceSRGBNonlinear}

	assert.Equal(t, preferred, chooseSwapSurfaceFormat([]khr_surface.SurfaceFormat{other, preferred}))
	assert.Equal(t, other, chooseSwapSurfaceFormat([]khr_surface.SurfaceFormat{other}))
}

func TestChooseSwapPresentMode(t *testing.T) {
	assert.Equal(t, khr_surface.PresentModeMailbox,
		chooseSwapPresentMode([]khr_surface.PresentMode{khr_surface.PresentModeFIFO, khr_surface.PresentModeMailbox}))
	assert.Equal(t, khr_surface.PresentModeFIFO,
		chooseSwapPresentMode([]khr_surface.PresentMode{khr_surface.PresentModeImmediate}))
}

func TestChooseSwapExtent(t *testing.T) {
	fixed := &khr_surface.SurfaceCapabilities{CurrentExtent: core1_0.Extent2D{Width: 640, Height: 480}}
	assert.Equal(t, core1_0.Extent2D{Width: 640, Height: 480}, chooseSwapExtent(fixed, 800, 600))

	free := &khr_surface.SurfaceCapabilities{
		CurrentExtent:  core1_0.Extent2D{Width: -1, Height: -1},
		MinImageExtent: core1_0.Extent2D{Width: 100, Height: 100},
		MaxImageExtent: core1_0.Extent2D{Width: 1000, Height: 1000},
	}
	assert.Equal(t, core1_0.Extent2D{Width: 800, Height: 600}, chooseSwapExtent(free, 800, 600))
	assert.Equal(t, core1_0.Extent2D{Width: 1000, Height: 100}, chooseSwapExtent(free, 4000, 10))
}

func TestChooseImageCount(t *testing.T) {
	assert.Equal(t, 3, chooseImageCount(&khr_surface.SurfaceCapabilities{MinImageCount: 2, MaxImageCount: 0}))
	assert.Equal(t, 3, chooseImageCount(&khr_surface.SurfaceCapabilities{MinImageCount: 2, MaxImageCount: 8}))
	assert.Equal(t, 2, chooseImageCount(&khr_surface.SurfaceCapabilities{MinImageCount: 2, MaxImageCount: 2}))
}

func TestRecreateWaitsForNonZeroDrawable(t *testing.T) {
	drawable := &fakeDrawable{sizes: [][2]int{{0, 0}, {0, 0}, {800, 0}, {800, 600}}}
	factory := &fakeChainFactory{images: 3}
	manager := &swapchainManager{factory: factory, drawable: drawable}

	require.NoError(t, manager.recreate())

	require.Len(t, factory.built, 1)
	assert.Equal(t, core1_0.Extent2D{Width: 800, Height: 600}, factory.built[0])
	assert.Equal(t, 3, drawable.waits)
	assert.Equal(t, 1, manager.builds)
	assert.Equal(t, 3, manager.current.imageCount())
}

func TestRecreateDestroysPreviousChain(t *testing.T) {
	drawable := &fakeDrawable{sizes: [][2]int{{800, 600}}}
	factory := &fakeChainFactory{images: 2}
	manager := &swapchainManager{factory: factory, drawable: drawable}

	require.NoError(t, manager.recreate())
	first := manager.current
	require.NoError(t, manager.recreate())

	assert.Equal(t, []int{0}, factory.destroyed)
	assert.Equal(t, 2, factory.idleWaits)
	assert.NotSame(t, first, manager.current)
	assert.Nil(t, first.views)
	assert.Nil(t, first.framebuffers)

	c := manager.current
	assert.Equal(t, len(c.images), len(c.views))
	assert.Equal(t, len(c.images), len(c.framebuffers))
	assert.Equal(t, len(c.images), len(c.uniforms))

	manager.destroy()
	assert.Equal(t, []int{0, 1}, factory.destroyed)
	assert.Nil(t, manager.current)
}

func TestRecreateWindowClosedWhileMinimized(t *testing.T) {
	drawable := &fakeDrawable{sizes: [][2]int{{0, 0}}, closed: true}
	factory := &fakeChainFactory{images: 2}
	manager := &swapchainManager{factory: factory, drawable: drawable}

	err := manager.recreate()
	require.ErrorIs(t, err, ErrWindowClosed)
	assert.Empty(t, factory.built)
	assert.Equal(t, 0, factory.idleWaits)
}

func TestRecreateRejectsInconsistentChain(t *testing.T) {
	drawable := &fakeDrawable{sizes: [][2]int{{800, 600}}}
	factory := &fakeChainFactory{images: 2, broken: true}
	manager := &swapchainManager{factory: factory, drawable: drawable}

	err := manager.recreate()
	require.Error(t, err)
	assert.True(t, errors.IsAssertionFailure(err))
	assert.Nil(t, manager.current)
	assert.Equal(t, []int{0}, factory.destroyed)
}

func TestRecreateBuildFailure(t *testing.T) {
	drawable := &fakeDrawable{sizes: [][2]int{{800, 600}}}
	factory := &fakeChainFactory{images: 2, fail: ErrNoMemoryType}
	manager := &swapchainManager{factory: factory, drawable: drawable}

	err := manager.recreate()
	require.ErrorIs(t, err, ErrNoMemoryType)
	assert.Nil(t, manager.current)
}
