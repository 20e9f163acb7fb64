// Package engine runs a Scene on top of the renderer: it owns the window, the
// frame clock and input, and drives one frame per Update.
package engine

import (
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/veandco/go-sdl2/sdl"
	"github.com/vkngwrapper/sprites/diag"
	"github.com/vkngwrapper/sprites/input"
	"github.com/vkngwrapper/sprites/render"
)

// Scene is the game driven by an Engine.
type Scene interface {
	// Initialize runs once the renderer is ready, so textures can be loaded.
	Initialize(e *Engine) error
	Update(e *Engine) error
	Shutdown(e *Engine) error

	// Sprites appends this frame's draw records to dst.
	Sprites(dst []render.SpriteDraw) []render.SpriteDraw
	Camera() render.Camera
}

type Engine struct {
	cfg    Config
	logger *slog.Logger
	diag   *diag.Sink
	scene  Scene

	window   *sdl.Window
	renderer *render.Renderer
	clock    *Clock
	input    *input.Tracker

	draws []render.SpriteDraw

	sdlStarted       bool
	sceneInitialized bool
	minimized        bool
}

func New(cfg Config, scene Scene) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, errors.Wrap(err, "invalid engine config")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Engine{
		cfg:    cfg,
		logger: cfg.Logger,
		diag:   diag.NewSink(cfg.Logger),
		scene:  scene,
		clock:  NewClock(),
		input:  input.NewTracker(input.SDLKeyboard(), nil),
	}, nil
}

// Initialize opens the window, brings up the renderer and initializes the
// scene. On error everything already created is torn down again.
func (e *Engine) Initialize() error {
	err := e.initialize()
	if err != nil {
		shutdownErr := e.Shutdown()
		if shutdownErr != nil {
			err = errors.WithSecondaryError(err, shutdownErr)
		}
		return err
	}
	return nil
}

func (e *Engine) initialize() error {
	if err := sdl.Init(sdl.INIT_VIDEO); err != nil {
		return errors.Wrap(err, "init SDL video")
	}
	e.sdlStarted = true

	window, err := sdl.CreateWindow(e.cfg.Title, sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED,
		int32(e.cfg.Width), int32(e.cfg.Height), sdl.WINDOW_SHOWN|sdl.WINDOW_VULKAN|sdl.WINDOW_RESIZABLE)
	if err != nil {
		return errors.Wrap(err, "create window")
	}
	e.window = window

	opts := e.cfg.rendererOptions()
	opts.Diagnostics = e.diag
	e.renderer = render.New(window, opts)
	err = e.renderer.Initialize()
	if err != nil {
		return err
	}

	err = e.scene.Initialize(e)
	if err != nil {
		return errors.Wrap(err, "initialize scene")
	}
	e.sceneInitialized = true

	e.clock.Start()
	e.logger.Info("engine initialized", "width", e.cfg.Width, "height", e.cfg.Height)
	return nil
}

type eventResult struct {
	quit      bool
	resized   bool
	minimized *bool
}

func classifyEvent(event sdl.Event) eventResult {
	var result eventResult
	switch ev := event.(type) {
	case *sdl.QuitEvent:
		result.quit = true
	case *sdl.WindowEvent:
		switch ev.Event {
		case sdl.WINDOWEVENT_MINIMIZED:
			minimized := true
			result.minimized = &minimized
		case sdl.WINDOWEVENT_RESTORED:
			minimized := false
			result.minimized = &minimized
			result.resized = true
		case sdl.WINDOWEVENT_RESIZED, sdl.WINDOWEVENT_SIZE_CHANGED:
			result.resized = true
		}
	}
	return result
}

// pollEvents drains the event queue and reports whether the engine keeps
// running.
func (e *Engine) pollEvents() bool {
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		result := classifyEvent(event)
		if result.quit {
			return false
		}
		if result.resized {
			e.renderer.NotifyResized()
		}
		if result.minimized != nil {
			e.minimized = *result.minimized
		}
	}
	return true
}

// frame snapshots the scene for the renderer.
func (e *Engine) frame() render.Frame {
	camera := e.scene.Camera()
	if camera.ViewHeight <= 0 {
		camera.ViewHeight = e.cfg.ViewHeight
	}

	e.draws = e.scene.Sprites(e.draws[:0])
	return render.Frame{
		Elapsed: e.clock.Elapsed(),
		Delta:   e.clock.Delta(),
		Camera:  camera,
		Sprites: e.draws,
	}
}

// Update runs one frame. It returns false once the window is closed.
func (e *Engine) Update() (bool, error) {
	if !e.pollEvents() {
		return false, nil
	}

	e.clock.Tick()
	e.input.Update()

	err := e.scene.Update(e)
	if err != nil {
		return false, errors.Wrap(err, "update scene")
	}

	if e.minimized {
		return true, nil
	}

	_, err = e.renderer.DrawFrame(e.frame())
	if errors.Is(err, render.ErrWindowClosed) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "draw frame")
	}
	return true, nil
}

// Shutdown tears down the scene, the renderer and the window, in that order.
// It is safe to call after a failed Initialize.
func (e *Engine) Shutdown() error {
	var err error
	if e.sceneInitialized {
		e.sceneInitialized = false
		err = e.scene.Shutdown(e)
		if err != nil {
			err = errors.Wrap(err, "shut down scene")
		}
	}

	if e.renderer != nil {
		renderErr := e.renderer.Shutdown()
		if renderErr != nil {
			err = errors.CombineErrors(err, renderErr)
		}
		e.renderer = nil
	}

	if e.window != nil {
		e.window.Destroy()
		e.window = nil
	}
	if e.sdlStarted {
		sdl.Quit()
		e.sdlStarted = false
	}

	if count := e.diag.Count(); count > 0 {
		e.logger.Warn("diagnostics reported during run", "count", count)
	}
	return err
}

func (e *Engine) Window() *sdl.Window {
	return e.window
}

func (e *Engine) Renderer() *render.Renderer {
	return e.renderer
}

func (e *Engine) Clock() *Clock {
	return e.clock
}

func (e *Engine) Input() *input.Tracker {
	return e.input
}

func (e *Engine) Diagnostics() *diag.Sink {
	return e.diag
}

func (e *Engine) Logger() *slog.Logger {
	return e.logger
}

func (e *Engine) Config() Config {
	return e.cfg
}
