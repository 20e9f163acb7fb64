package render

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
)

func TestClassifyPresentResult(t *testing.T) {
	status, err := classifyPresentResult("present", core1_0.VKSuccess, nil)
	require.NoError(t, err)
	require.Equal(t, PresentOK, status)

	status, err = classifyPresentResult("present", khr_swapchain.VKSuboptimal, nil)
	require.NoError(t, err)
	require.Equal(t, PresentSuboptimal, status)

	status, err = classifyPresentResult("acquire", khr_swapchain.VKErrorOutOfDate, errors.New("out of date"))
	require.NoError(t, err, "out of date is never surfaced as an error")
	require.Equal(t, PresentOutOfDate, status)

	_, err = classifyPresentResult("acquire", core1_0.VKErrorDeviceLost, errors.New("device lost"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "acquire")
}

func TestSetupErrorIsMarked(t *testing.T) {
	err := setupError(ErrNoSuitableDevice, "pick physical device")
	require.True(t, errors.Is(err, ErrSetup))
	require.True(t, errors.Is(err, ErrNoSuitableDevice))
}
