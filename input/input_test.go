package input

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/veandco/go-sdl2/sdl"
)

type fakeKeyboard map[sdl.Scancode]bool

func (k fakeKeyboard) state(code sdl.Scancode) bool {
	return k[code]
}

func TestTrackerEdges(t *testing.T) {
	keyboard := fakeKeyboard{}
	tracker := NewTracker(keyboard.state, nil)

	tracker.Update()
	assert.False(t, tracker.IsDown(MoveUp))
	assert.False(t, tracker.IsPressed(MoveUp))
	assert.False(t, tracker.IsReleased(MoveUp))

	keyboard[sdl.SCANCODE_W] = true
	tracker.Update()
	assert.True(t, tracker.IsPressed(MoveUp))
	assert.True(t, tracker.IsDown(MoveUp))
	assert.False(t, tracker.IsReleased(MoveUp))

	tracker.Update()
	assert.False(t, tracker.IsPressed(MoveUp), "pressed lasts one update")
	assert.True(t, tracker.IsDown(MoveUp))

	keyboard[sdl.SCANCODE_W] = false
	tracker.Update()
	assert.False(t, tracker.IsDown(MoveUp))
	assert.True(t, tracker.IsReleased(MoveUp))

	tracker.Update()
	assert.False(t, tracker.IsReleased(MoveUp), "released lasts one update")
}

func TestTrackerBind(t *testing.T) {
	keyboard := fakeKeyboard{sdl.SCANCODE_UP: true}
	tracker := NewTracker(keyboard.state, nil)

	tracker.Update()
	require.False(t, tracker.IsDown(MoveUp))

	tracker.Bind(MoveUp, sdl.SCANCODE_UP)
	tracker.Update()
	assert.True(t, tracker.IsPressed(MoveUp))
}

func TestTrackerMovementIsNormalised(t *testing.T) {
	keyboard := fakeKeyboard{sdl.SCANCODE_W: true, sdl.SCANCODE_D: true}
	tracker := NewTracker(keyboard.state, nil)
	tracker.Update()

	move := tracker.Movement()
	assert.InDelta(t, 1, move.Len(), 1e-6)
	assert.InDelta(t, move.X(), move.Y(), 1e-6)
	assert.Greater(t, move.X(), float32(0))

	keyboard[sdl.SCANCODE_S] = true
	keyboard[sdl.SCANCODE_A] = true
	tracker.Update()
	assert.Equal(t, mgl32.Vec2{}, tracker.Movement(), "opposing keys cancel")
}

func TestKeyString(t *testing.T) {
	assert.Equal(t, "move left", MoveLeft.String())
	assert.Equal(t, "unknown", Key(42).String())
}
