package avsoftdec

import (
	"go.uber.org/atomic"
)

// Statistics is a snapshot of the component counters.
type Statistics struct {
	InputBuffers   uint64
	ConfigBuffers  uint64
	InputBytes     uint64
	DecodedFrames  uint64
	NoFrameResults uint64
	OutputFrames   uint64
	OutputBytes    uint64
	EOSBuffers     uint64
}

type statistics struct {
	InputBuffers   atomic.Uint64
	ConfigBuffers  atomic.Uint64
	InputBytes     atomic.Uint64
	DecodedFrames  atomic.Uint64
	NoFrameResults atomic.Uint64
	OutputFrames   atomic.Uint64
	OutputBytes    atomic.Uint64
	EOSBuffers     atomic.Uint64
}

func (stats *statistics) Convert() Statistics {
	return Statistics{
		InputBuffers:   stats.InputBuffers.Load(),
		ConfigBuffers:  stats.ConfigBuffers.Load(),
		InputBytes:     stats.InputBytes.Load(),
		DecodedFrames:  stats.DecodedFrames.Load(),
		NoFrameResults: stats.NoFrameResults.Load(),
		OutputFrames:   stats.OutputFrames.Load(),
		OutputBytes:    stats.OutputBytes.Load(),
		EOSBuffers:     stats.EOSBuffers.Load(),
	}
}

func (c *Component) GetStats() *Statistics {
	stats := c.statistics.Convert()
	return &stats
}
