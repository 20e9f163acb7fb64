package render

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/core/v3/core1_0"
)

func testMemoryTypes() []core1_0.MemoryType {
	return []core1_0.MemoryType{
		{PropertyFlags: core1_0.MemoryPropertyDeviceLocal},
		{PropertyFlags: core1_0.MemoryPropertyHostVisible},
		{PropertyFlags: core1_0.MemoryPropertyHostVisible | core1_0.MemoryPropertyHostCoherent},
		{PropertyFlags: core1_0.MemoryPropertyDeviceLocal | core1_0.MemoryPropertyHostVisible | core1_0.MemoryPropertyHostCoherent},
	}
}

func TestFindMemoryTypeSatisfiesFlags(t *testing.T) {
	types := testMemoryTypes()

	idx, err := findMemoryType(types, 0xF, core1_0.MemoryPropertyDeviceLocal)
	require.NoError(t, err)
	require.Equal(t, 0, idx)

	idx, err = findMemoryType(types, 0xF, core1_0.MemoryPropertyHostVisible|core1_0.MemoryPropertyHostCoherent)
	require.NoError(t, err)
	require.Equal(t, 2, idx)
}

func TestFindMemoryTypeHonoursTypeBits(t *testing.T) {
	types := testMemoryTypes()

	// type 2 masked out, type 3 is the only coherent candidate left
	idx, err := findMemoryType(types, 0b1010, core1_0.MemoryPropertyHostVisible|core1_0.MemoryPropertyHostCoherent)
	require.NoError(t, err)
	require.Equal(t, 3, idx)

	idx, err = findMemoryType(types, 0b1000, core1_0.MemoryPropertyDeviceLocal)
	require.NoError(t, err)
	require.Equal(t, 3, idx)
}

func TestFindMemoryTypeNoMatch(t *testing.T) {
	types := testMemoryTypes()[:2]

	_, err := findMemoryType(types, 0b11, core1_0.MemoryPropertyHostCoherent)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrNoMemoryType))

	_, err = findMemoryType(testMemoryTypes(), 0, core1_0.MemoryPropertyDeviceLocal)
	require.True(t, errors.Is(err, ErrNoMemoryType))
}
