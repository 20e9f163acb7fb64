package render

import (
	"encoding/binary"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/veandco/go-sdl2/sdl"
	"github.com/vkngwrapper/core/v3/core1_0"
)

const testShaderDir = "../shaders"

// newTestRenderer opens a hidden window and initializes a renderer on it, or
// skips when the machine has no usable display, Vulkan driver or compiled
// shaders.
func newTestRenderer(t *testing.T) *Renderer {
	t.Helper()
	if testing.Short() {
		t.Skip("GPU test skipped in short mode")
	}
	for _, name := range []string{vertexShaderFile, fragmentShaderFile} {
		if _, err := os.Stat(filepath.Join(testShaderDir, name)); err != nil {
			t.Skipf("compiled shader %s not available", name)
		}
	}

	if err := sdl.Init(sdl.INIT_VIDEO); err != nil {
		t.Skipf("SDL video unavailable: %v", err)
	}
	window, err := sdl.CreateWindow("sprites test", sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED, 320, 240,
		sdl.WINDOW_HIDDEN|sdl.WINDOW_VULKAN)
	if err != nil {
		sdl.Quit()
		t.Skipf("no Vulkan window: %v", err)
	}

	r := New(window, Options{
		ShaderDir: testShaderDir,
		Logger:    quietLogger(),
	})
	if err := r.Initialize(); err != nil {
		window.Destroy()
		sdl.Quit()
		t.Skipf("renderer unavailable: %+v", err)
	}

	t.Cleanup(func() {
		assert.NoError(t, r.Shutdown())
		window.Destroy()
		sdl.Quit()
	})
	return r
}

func TestStagingRoundTrip(t *testing.T) {
	r := newTestRenderer(t)

	values := make([]uint32, 256)
	for i := range values {
		values[i] = uint32(i * 31)
	}

	buffer, err := r.Allocator().CreateDeviceBuffer(values, core1_0.BufferUsageStorageBuffer)
	require.NoError(t, err)
	defer buffer.Destroy()

	data, err := r.Allocator().DownloadBuffer(buffer, len(values)*4)
	require.NoError(t, err)
	require.Len(t, data, len(values)*4)
	for i, want := range values {
		require.Equal(t, want, binary.LittleEndian.Uint32(data[i*4:]), "word %d", i)
	}
}

func TestHundredFrames(t *testing.T) {
	r := newTestRenderer(t)

	pixel := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	pixel.SetNRGBA(0, 0, color.NRGBA{R: 255, G: 128, B: 0, A: 255})
	texture, err := r.LoadTextureImage("pixel", pixel, 1, 1)
	require.NoError(t, err)

	sprites := []SpriteDraw{{
		Position:  mgl32.Vec2{0, 0},
		Scale:     mgl32.Vec2{1, 1},
		Texture:   texture,
		Subsprite: 0,
	}}

	before := r.Diagnostics().Count()
	presented := 0
	for n := 0; n < 100; n++ {
		outcome, err := r.DrawFrame(Frame{
			Elapsed: float64(n) / 60,
			Delta:   1.0 / 60,
			Camera:  Camera{ViewHeight: 10},
			Sprites: sprites,
		})
		require.NoError(t, err, "frame %d", n)
		if outcome == FramePresented {
			presented++
		}
	}

	assert.Positive(t, presented)
	assert.Equal(t, before, r.Diagnostics().Count(), "diagnostics reported during the run")
}

func TestTextureRemovalBetweenFrames(t *testing.T) {
	r := newTestRenderer(t)

	atlas := image.NewNRGBA(image.Rect(0, 0, 64, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 64; x++ {
			atlas.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 4), G: uint8(y * 8), B: 128, A: 255})
		}
	}
	first, err := r.LoadTextureImage("first", atlas, 4, 2)
	require.NoError(t, err)
	second, err := r.LoadTextureImage("second", atlas, 4, 2)
	require.NoError(t, err)

	frame := Frame{
		Camera: Camera{ViewHeight: 10},
		Sprites: []SpriteDraw{
			{Scale: mgl32.Vec2{1, 1}, Texture: first, Subsprite: 7},
			{Position: mgl32.Vec2{2, 0}, Scale: mgl32.Vec2{1, 1}, Texture: second, Subsprite: 3},
		},
	}
	_, err = r.DrawFrame(frame)
	require.NoError(t, err)

	removed, err := r.RemoveTexture(first)
	require.NoError(t, err)
	require.True(t, removed)

	// the stale sprite is skipped and reported, the other keeps drawing
	before := r.Diagnostics().Count()
	_, err = r.DrawFrame(frame)
	require.NoError(t, err)
	assert.Equal(t, before+1, r.Diagnostics().Count())
}
