// timestamp.go defines the Timestamp type and the "no timestamp" sentinel.

package types

import (
	"fmt"
	"math"
)

// Timestamp is a media timestamp in the units the host uses (microseconds
// for the usual input/output ports).
type Timestamp int64

// NoTimestamp marks an absent timestamp. It has the same value as
// libav's AV_NOPTS_VALUE, so it may be passed to libav verbatim.
const NoTimestamp = Timestamp(math.MinInt64)

func (ts Timestamp) IsSet() bool {
	return ts != NoTimestamp
}

// OrZero returns the timestamp, or zero if it is not set.
func (ts Timestamp) OrZero() Timestamp {
	if !ts.IsSet() {
		return 0
	}
	return ts
}

func (ts Timestamp) String() string {
	if !ts.IsSet() {
		return "N/A"
	}
	return fmt.Sprintf("%d", int64(ts))
}
