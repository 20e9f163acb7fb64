package render

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
)

var (
	// ErrSetup marks every error returned from Renderer.Initialize.
	ErrSetup = errors.New("renderer setup failed")

	ErrNoSuitableDevice      = errors.New("failed to find a suitable GPU")
	ErrNoMemoryType          = errors.New("failed to find any suitable memory type")
	ErrValidationUnavailable = errors.New("validation layer not available")
	ErrAssetLoad             = errors.New("failed to load asset")

	// ErrWindowClosed is returned when the window is closed while the renderer
	// is waiting for a drawable area to reappear.
	ErrWindowClosed = errors.New("window closed")
)

// PresentStatus is the outcome of an acquire or present call. Out of date and
// suboptimal are expected conditions handled by recreating the swapchain.
type PresentStatus int

const (
	PresentOK PresentStatus = iota
	PresentSuboptimal
	PresentOutOfDate
)

func (s PresentStatus) String() string {
	switch s {
	case PresentOK:
		return "ok"
	case PresentSuboptimal:
		return "suboptimal"
	case PresentOutOfDate:
		return "out of date"
	}
	return "unknown"
}

func classifyPresentResult(op string, res common.VkResult, err error) (PresentStatus, error) {
	switch res {
	case khr_swapchain.VKErrorOutOfDate:
		return PresentOutOfDate, nil
	case khr_swapchain.VKSuboptimal:
		return PresentSuboptimal, nil
	}

	if err != nil {
		return PresentOK, errors.Wrapf(err, "%s: unexpected result %s", op, res)
	}
	return PresentOK, nil
}

func setupError(err error, format string, args ...any) error {
	return errors.Mark(errors.Wrapf(err, format, args...), ErrSetup)
}
