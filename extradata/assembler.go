package extradata

import (
	"context"

	"github.com/davecgh/go-spew/spew"
	"github.com/xaionaro-go/avsoftdec/logger"
)

// Assembler accumulates the configuration buffers of a stream (e.g. a SPS
// buffer followed by a PPS buffer) into one Blob. Once the blob was
// consumed by opening the decoder it is frozen until Reset.
type Assembler struct {
	Blob Blob

	// Ignore makes Append discard the data.
	Ignore bool

	ready bool
}

func (a *Assembler) Append(
	ctx context.Context,
	b []byte,
) (_err error) {
	logger.Tracef(ctx, "Append: %d bytes", len(b))
	defer func() { logger.Tracef(ctx, "/Append: %d bytes: %v", len(b), _err) }()

	switch {
	case a.Ignore:
		logger.Infof(ctx, "got extradata, size: %d, but ignoring it", len(b))
		return nil
	case a.ready:
		logger.Warnf(ctx, "got extradata, size: %d, but the decoder was already opened with %d bytes; ignoring", len(b), a.Blob.Len())
		return nil
	}

	logger.Infof(ctx, "got extradata, size: %d", len(b))
	if logger.IsEnabled(ctx, logger.LevelDebug) {
		logger.Debugf(ctx, "extradata chunk:\n%s", spew.Sdump(b))
	}
	return a.Blob.Append(b)
}

// MarkReady freezes the blob and returns its logical data. The returned
// slice keeps the zeroed padding within its capacity, so engines reading
// past the end stay in bounds.
func (a *Assembler) MarkReady(ctx context.Context) []byte {
	data := a.Blob.Bytes()
	if !a.ready {
		a.ready = true
		logger.Infof(ctx, "extradata is ready, size: %d, kind: %s", len(data), Recognize(data))
		if len(data) > 0 && logger.IsEnabled(ctx, logger.LevelDebug) {
			logger.Debugf(ctx, "extradata:\n%s", spew.Sdump(data))
		}
	}
	if len(data) == 0 {
		return nil
	}
	return a.Blob.Padded()[:len(data)]
}

func (a *Assembler) IsReady() bool {
	return a.ready
}

// Reset drops the data and re-arms the assembler.
func (a *Assembler) Reset() {
	a.Blob.Reset()
	a.ready = false
}
