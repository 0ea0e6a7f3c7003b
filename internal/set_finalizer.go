package internal

import (
	"context"
	"runtime"

	"github.com/xaionaro-go/avsoftdec/logger"
)

// SetFinalizerFree makes sure a libav object is freed even if the owner
// forgot to close it.
func SetFinalizerFree[T interface{ Free() }](
	ctx context.Context,
	freer T,
) {
	runtime.SetFinalizer(freer, func(freer T) {
		logger.Debugf(ctx, "freeing %T", freer)
		freer.Free()
	})
}

// ClearFinalizer undoes SetFinalizerFree when the object is freed explicitly.
func ClearFinalizer[T any](obj T) {
	runtime.SetFinalizer(obj, nil)
}
