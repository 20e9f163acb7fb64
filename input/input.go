// Package input tracks the per-frame state of bound keys.
package input

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/veandco/go-sdl2/sdl"
)

// Key is a logical action, bound to a physical key.
type Key int

const (
	MoveUp Key = iota
	MoveDown
	MoveLeft
	MoveRight
)

func (k Key) String() string {
	switch k {
	case MoveUp:
		return "move up"
	case MoveDown:
		return "move down"
	case MoveLeft:
		return "move left"
	case MoveRight:
		return "move right"
	}
	return "unknown"
}

// DefaultBindings maps the movement keys onto WASD.
func DefaultBindings() map[Key]sdl.Scancode {
	return map[Key]sdl.Scancode{
		MoveUp:    sdl.SCANCODE_W,
		MoveDown:  sdl.SCANCODE_S,
		MoveLeft:  sdl.SCANCODE_A,
		MoveRight: sdl.SCANCODE_D,
	}
}

// KeyState reports whether a physical key is held right now.
type KeyState func(code sdl.Scancode) bool

// SDLKeyboard reads the SDL keyboard state. SDL only refreshes it while
// events are being pumped.
func SDLKeyboard() KeyState {
	return func(code sdl.Scancode) bool {
		state := sdl.GetKeyboardState()
		return int(code) < len(state) && state[code] != 0
	}
}

type keyState struct {
	pressed  bool
	down     bool
	released bool
}

// Tracker derives pressed, down and released edges for bound keys from one
// sample of the keyboard per Update.
type Tracker struct {
	source   KeyState
	bindings map[Key]sdl.Scancode
	keys     map[Key]keyState
}

func NewTracker(source KeyState, bindings map[Key]sdl.Scancode) *Tracker {
	if bindings == nil {
		bindings = DefaultBindings()
	}
	t := &Tracker{
		source:   source,
		bindings: bindings,
		keys:     make(map[Key]keyState, len(bindings)),
	}
	for key := range bindings {
		t.keys[key] = keyState{}
	}
	return t
}

// Bind points key at a different physical key. The key's edge state is reset.
func (t *Tracker) Bind(key Key, code sdl.Scancode) {
	t.bindings[key] = code
	t.keys[key] = keyState{}
}

func (t *Tracker) Update() {
	for key, code := range t.bindings {
		previous := t.keys[key]
		down := t.source(code)
		t.keys[key] = keyState{
			pressed:  down && !previous.down,
			down:     down,
			released: !down && previous.down,
		}
	}
}

// IsPressed reports whether key went down during the last Update.
func (t *Tracker) IsPressed(key Key) bool {
	return t.keys[key].pressed
}

func (t *Tracker) IsDown(key Key) bool {
	return t.keys[key].down
}

// IsReleased reports whether key went up during the last Update.
func (t *Tracker) IsReleased(key Key) bool {
	return t.keys[key].released
}

// Movement is the unit direction of the held movement keys, or zero.
func (t *Tracker) Movement() mgl32.Vec2 {
	var move mgl32.Vec2
	if t.IsDown(MoveUp) {
		move[1]++
	}
	if t.IsDown(MoveDown) {
		move[1]--
	}
	if t.IsDown(MoveRight) {
		move[0]++
	}
	if t.IsDown(MoveLeft) {
		move[0]--
	}
	if move.Len() == 0 {
		return move
	}
	return move.Normalize()
}
