package render

import (
	"log/slog"

	"github.com/cockroachdb/errors"
)

const MaxFramesInFlight = 2

// FrameState is the position of the scheduler within one frame.
type FrameState int

const (
	FrameIdle FrameState = iota
	FrameAcquiring
	FrameRecording
	FrameSubmitted
	FramePresenting
	FrameSwapchainInvalid
)

func (s FrameState) String() string {
	switch s {
	case FrameIdle:
		return "idle"
	case FrameAcquiring:
		return "acquiring"
	case FrameRecording:
		return "recording"
	case FrameSubmitted:
		return "submitted"
	case FramePresenting:
		return "presenting"
	case FrameSwapchainInvalid:
		return "swapchain invalid"
	}
	return "unknown"
}

// FrameOutcome is what one DrawFrame call did.
type FrameOutcome int

const (
	// FramePresented means the frame was submitted and presented.
	FramePresented FrameOutcome = iota
	// FrameSkipped means the swapchain was out of date at acquire time. It was
	// recreated and nothing was submitted.
	FrameSkipped
	// FrameRecreated means the frame was presented and the swapchain was then
	// recreated.
	FrameRecreated
)

func (o FrameOutcome) String() string {
	switch o {
	case FramePresented:
		return "presented"
	case FrameSkipped:
		return "skipped"
	case FrameRecreated:
		return "recreated"
	}
	return "unknown"
}

// Frame is the per-frame input to the renderer.
type Frame struct {
	// Elapsed seconds since the clock started, and seconds since the last frame.
	Elapsed float64
	Delta   float64

	Camera  Camera
	Sprites []SpriteDraw
}

// frameBackend performs the GPU side of each scheduler step.
type frameBackend interface {
	// waitForSlot blocks until the slot's in-flight fence is signalled.
	waitForSlot(slot int) error
	acquireImage(slot int) (int, PresentStatus, error)
	imageCount() int
	recordFrame(slot, image int, frame Frame) error
	// submitFrame resets the slot's fence and submits its command buffer.
	submitFrame(slot, image int) error
	presentImage(slot, image int) (PresentStatus, error)
	recreateSwapchain() error
}

const noSlot = -1

type frameScheduler struct {
	backend frameBackend
	logger  *slog.Logger
	slots   int

	current int
	// imageGuards[image] is the slot last submitted against that image, or noSlot.
	imageGuards []int
	resized     bool
	state       FrameState
	frames      uint64
}

func newFrameScheduler(backend frameBackend, logger *slog.Logger, slots int) *frameScheduler {
	s := &frameScheduler{
		backend: backend,
		logger:  logger,
		slots:   slots,
	}
	s.resetGuards()
	return s
}

func (s *frameScheduler) resetGuards() {
	s.imageGuards = make([]int, s.backend.imageCount())
	for i := range s.imageGuards {
		s.imageGuards[i] = noSlot
	}
}

func (s *frameScheduler) enter(state FrameState) {
	s.state = state
	s.logger.Debug("frame state", "frame", s.frames, "slot", s.current, "state", state)
}

func (s *frameScheduler) notifyResized() {
	s.resized = true
}

func (s *frameScheduler) recreate() error {
	err := s.backend.recreateSwapchain()
	if err != nil {
		return err
	}
	s.resetGuards()
	return nil
}

func (s *frameScheduler) drawFrame(frame Frame) (FrameOutcome, error) {
	s.enter(FrameAcquiring)

	err := s.backend.waitForSlot(s.current)
	if err != nil {
		return FramePresented, errors.Wrapf(err, "wait for frame slot %d", s.current)
	}

	image, status, err := s.backend.acquireImage(s.current)
	if err != nil {
		return FramePresented, err
	}
	if status == PresentOutOfDate {
		s.enter(FrameSwapchainInvalid)
		err = s.recreate()
		s.enter(FrameIdle)
		return FrameSkipped, err
	}

	if image < 0 || image >= len(s.imageGuards) {
		return FramePresented, errors.AssertionFailedf("acquired image %d outside swapchain of %d images", image, len(s.imageGuards))
	}

	if guard := s.imageGuards[image]; guard != noSlot && guard != s.current {
		err = s.backend.waitForSlot(guard)
		if err != nil {
			return FramePresented, errors.Wrapf(err, "wait for frame slot %d guarding image %d", guard, image)
		}
	}
	s.imageGuards[image] = s.current

	s.enter(FrameRecording)
	err = s.backend.recordFrame(s.current, image, frame)
	if err != nil {
		return FramePresented, err
	}

	s.enter(FrameSubmitted)
	err = s.backend.submitFrame(s.current, image)
	if err != nil {
		return FramePresented, err
	}

	s.enter(FramePresenting)
	status, err = s.backend.presentImage(s.current, image)
	if err != nil {
		return FramePresented, err
	}

	s.current = (s.current + 1) % s.slots
	s.frames++

	if status != PresentOK || s.resized {
		s.logger.Debug("recreating swapchain after present", "status", status, "resized", s.resized)
		s.resized = false
		s.enter(FrameSwapchainInvalid)
		err = s.recreate()
		s.enter(FrameIdle)
		return FrameRecreated, err
	}

	s.enter(FrameIdle)
	return FramePresented, nil
}
