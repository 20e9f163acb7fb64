package render

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/core/v3/core1_0"
)

func TestLookupTransitionTable(t *testing.T) {
	tr, err := lookupTransition(core1_0.ImageLayoutUndefined, core1_0.ImageLayoutTransferDstOptimal)
	require.NoError(t, err)
	require.Equal(t, core1_0.AccessFlags(0), tr.srcAccess)
	require.Equal(t, core1_0.AccessTransferWrite, tr.dstAccess)
	require.Equal(t, core1_0.PipelineStageTopOfPipe, tr.srcStage)
	require.Equal(t, core1_0.PipelineStageTransfer, tr.dstStage)

	tr, err = lookupTransition(core1_0.ImageLayoutTransferDstOptimal, core1_0.ImageLayoutShaderReadOnlyOptimal)
	require.NoError(t, err)
	require.Equal(t, core1_0.AccessTransferWrite, tr.srcAccess)
	require.Equal(t, core1_0.AccessShaderRead, tr.dstAccess)
	require.Equal(t, core1_0.PipelineStageFragmentShader, tr.dstStage)

	tr, err = lookupTransition(core1_0.ImageLayoutUndefined, core1_0.ImageLayoutDepthStencilAttachmentOptimal)
	require.NoError(t, err)
	require.Equal(t, core1_0.PipelineStageEarlyFragmentTests, tr.dstStage)
	require.NotZero(t, tr.dstAccess&core1_0.AccessDepthStencilAttachmentWrite)
}

func TestLookupTransitionUnsupported(t *testing.T) {
	_, err := lookupTransition(core1_0.ImageLayoutShaderReadOnlyOptimal, core1_0.ImageLayoutTransferDstOptimal)
	require.Error(t, err)
	require.True(t, errors.IsAssertionFailure(err))
}

func TestTransitionAspect(t *testing.T) {
	require.Equal(t, core1_0.ImageAspectColor,
		transitionAspect(core1_0.FormatR8G8B8A8SRGB, core1_0.ImageLayoutTransferDstOptimal))
	require.Equal(t, core1_0.ImageAspectDepth,
		transitionAspect(core1_0.FormatD32SignedFloat, core1_0.ImageLayoutDepthStencilAttachmentOptimal))
	require.Equal(t, core1_0.ImageAspectDepth|core1_0.ImageAspectStencil,
		transitionAspect(core1_0.FormatD24UnsignedNormalizedS8UnsignedInt, core1_0.ImageLayoutDepthStencilAttachmentOptimal))
}
