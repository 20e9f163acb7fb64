package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeTime struct {
	now time.Duration
}

func (f *fakeTime) read() time.Duration {
	return f.now
}

func TestClockDelta(t *testing.T) {
	source := &fakeTime{now: 5 * time.Second}
	clock := newClockWith(source.read)

	assert.Zero(t, clock.Elapsed())
	assert.Zero(t, clock.Delta())

	source.now += 16 * time.Millisecond
	clock.Tick()
	assert.InDelta(t, 0.016, clock.Delta(), 1e-9)
	assert.InDelta(t, 0.016, clock.Elapsed(), 1e-9)

	source.now += 34 * time.Millisecond
	clock.Tick()
	assert.InDelta(t, 0.034, clock.Delta(), 1e-9)
	assert.InDelta(t, 0.050, clock.Elapsed(), 1e-9)

	// a tick with no time passing
	clock.Tick()
	assert.Zero(t, clock.Delta())
	assert.InDelta(t, 0.050, clock.Elapsed(), 1e-9)
}

func TestClockRestart(t *testing.T) {
	source := &fakeTime{}
	clock := newClockWith(source.read)

	source.now = time.Second
	clock.Tick()
	clock.Start()
	assert.Zero(t, clock.Elapsed())

	source.now += time.Second / 2
	clock.Tick()
	assert.InDelta(t, 0.5, clock.Elapsed(), 1e-9)
}
