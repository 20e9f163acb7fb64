package engine

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/veandco/go-sdl2/sdl"
	"github.com/vkngwrapper/sprites/render"
)

type fakeScene struct {
	camera  render.Camera
	sprites []render.SpriteDraw
	calls   []string
}

func (s *fakeScene) Initialize(*Engine) error {
	s.calls = append(s.calls, "initialize")
	return nil
}

func (s *fakeScene) Update(*Engine) error {
	s.calls = append(s.calls, "update")
	return nil
}

func (s *fakeScene) Shutdown(*Engine) error {
	s.calls = append(s.calls, "shutdown")
	return nil
}

func (s *fakeScene) Sprites(dst []render.SpriteDraw) []render.SpriteDraw {
	return append(dst, s.sprites...)
}

func (s *fakeScene) Camera() render.Camera {
	return s.camera
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.validate())
	assert.Equal(t, 800, cfg.Width)
	assert.Equal(t, 600, cfg.Height)
	assert.Equal(t, 100, cfg.MaxTextures)

	opts := cfg.rendererOptions()
	assert.Equal(t, cfg.ShaderDir, opts.ShaderDir)
	assert.Equal(t, cfg.MaxSprites, opts.MaxSprites)
}

func TestNewRejectsBadConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Width = 0
	_, err := New(cfg, &fakeScene{})
	require.Error(t, err)

	cfg = DefaultConfig()
	cfg.ViewHeight = -1
	_, err = New(cfg, &fakeScene{})
	require.Error(t, err)
}

func TestClassifyEvent(t *testing.T) {
	assert.True(t, classifyEvent(&sdl.QuitEvent{}).quit)

	result := classifyEvent(&sdl.WindowEvent{Event: sdl.WINDOWEVENT_RESIZED})
	assert.False(t, result.quit)
	assert.True(t, result.resized)

	result = classifyEvent(&sdl.WindowEvent{Event: sdl.WINDOWEVENT_SIZE_CHANGED})
	assert.True(t, result.resized)

	result = classifyEvent(&sdl.WindowEvent{Event: sdl.WINDOWEVENT_MINIMIZED})
	require.NotNil(t, result.minimized)
	assert.True(t, *result.minimized)
	assert.False(t, result.resized)

	result = classifyEvent(&sdl.WindowEvent{Event: sdl.WINDOWEVENT_RESTORED})
	require.NotNil(t, result.minimized)
	assert.False(t, *result.minimized)
	assert.True(t, result.resized)

	assert.Equal(t, eventResult{}, classifyEvent(&sdl.KeyboardEvent{}))
}

func TestFrameSnapshot(t *testing.T) {
	scene := &fakeScene{
		camera: render.Camera{Position: mgl32.Vec2{1, 2}},
		sprites: []render.SpriteDraw{
			{Subsprite: 2},
			{Subsprite: 112},
		},
	}
	e, err := New(DefaultConfig(), scene)
	require.NoError(t, err)

	frame := e.frame()
	assert.Equal(t, float32(10), frame.Camera.ViewHeight, "view height comes from config")
	assert.Equal(t, mgl32.Vec2{1, 2}, frame.Camera.Position)
	require.Len(t, frame.Sprites, 2)
	assert.Equal(t, 112, frame.Sprites[1].Subsprite)

	// the draw buffer is reused, not grown
	frame = e.frame()
	assert.Len(t, frame.Sprites, 2)

	scene.camera.ViewHeight = 4
	assert.Equal(t, float32(4), e.frame().Camera.ViewHeight)
}

func TestShutdownWithoutInitialize(t *testing.T) {
	scene := &fakeScene{}
	e, err := New(DefaultConfig(), scene)
	require.NoError(t, err)

	require.NoError(t, e.Shutdown())
	assert.Empty(t, scene.calls, "scene was never initialized")
}
