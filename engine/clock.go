package engine

import (
	"time"

	"github.com/loov/hrtime"
)

// Clock measures seconds since Start and between Ticks.
type Clock struct {
	now   func() time.Duration
	start time.Duration
	last  time.Duration

	elapsed float64
	delta   float64
}

func NewClock() *Clock {
	return newClockWith(hrtime.Now)
}

func newClockWith(now func() time.Duration) *Clock {
	c := &Clock{now: now}
	c.Start()
	return c
}

func (c *Clock) Start() {
	c.start = c.now()
	c.last = c.start
	c.elapsed = 0
	c.delta = 0
}

// Tick samples the time source once for the coming frame.
func (c *Clock) Tick() {
	now := c.now()
	c.delta = (now - c.last).Seconds()
	c.elapsed = (now - c.start).Seconds()
	c.last = now
}

// Elapsed is the number of seconds from Start to the last Tick.
func (c *Clock) Elapsed() float64 {
	return c.elapsed
}

// Delta is the number of seconds between the last two Ticks.
func (c *Clock) Delta() float64 {
	return c.delta
}
