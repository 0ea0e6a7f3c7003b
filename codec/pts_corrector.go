package codec

import (
	"github.com/xaionaro-go/avsoftdec/types"
)

// ptsCorrector picks the "best effort" timestamp of a decoded picture the
// same way libavcodec does: it trusts whichever of PTS/DTS has been
// non-monotonic less often.
type ptsCorrector struct {
	numFaultyPTS uint64
	numFaultyDTS uint64
	lastPTS      types.Timestamp
	lastDTS      types.Timestamp
}

func (c *ptsCorrector) Reset() {
	*c = ptsCorrector{
		lastPTS: types.NoTimestamp,
		lastDTS: types.NoTimestamp,
	}
}

func (c *ptsCorrector) Guess(
	reorderedPTS types.Timestamp,
	dts types.Timestamp,
) types.Timestamp {
	if dts.IsSet() {
		if dts <= c.lastDTS {
			c.numFaultyDTS++
		}
		c.lastDTS = dts
	} else if reorderedPTS.IsSet() {
		c.lastDTS = reorderedPTS
	}

	if reorderedPTS.IsSet() {
		if reorderedPTS <= c.lastPTS {
			c.numFaultyPTS++
		}
		c.lastPTS = reorderedPTS
	} else if dts.IsSet() {
		c.lastPTS = dts
	}

	if (c.numFaultyPTS <= c.numFaultyDTS || !dts.IsSet()) && reorderedPTS.IsSet() {
		return reorderedPTS
	}
	return dts
}
