package diag

import (
	"bytes"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSinkCountsAndLogs(t *testing.T) {
	var out bytes.Buffer
	sink := NewSink(slog.New(slog.NewTextHandler(&out, nil)))

	require.Zero(t, sink.Count())

	sink.Warn("Vulkan Warning: something odd")
	sink.Error("Vulkan Error: something broke", "code", 3)

	require.EqualValues(t, 2, sink.Count())
	assert.Contains(t, out.String(), "something odd")
	assert.Contains(t, out.String(), "code=3")
}

func TestSinkConcurrentReports(t *testing.T) {
	sink := NewSink(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				sink.Warn("msg")
			}
		}()
	}
	wg.Wait()

	require.EqualValues(t, 800, sink.Count())
}
