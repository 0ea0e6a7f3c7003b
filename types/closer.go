// closer.go defines the small lifecycle interfaces shared by engines and scalers.

package types

import (
	"context"
)

type Closer interface {
	Close(context.Context) error
}

// Flusher drops any internally buffered state without releasing resources.
type Flusher interface {
	Flush(context.Context)
}
