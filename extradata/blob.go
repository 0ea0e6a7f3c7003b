// Package extradata assembles the out-of-band codec configuration data
// ("extradata", e.g. SPS/PPS) delivered through dedicated input buffers.
package extradata

import (
	"errors"
	"fmt"
)

// PaddingSize is the amount of zero bytes kept beyond the logical end of
// the data: decoders may read that far ahead (AV_INPUT_BUFFER_PADDING_SIZE).
const PaddingSize = 64

// DefaultMaxSize limits the blob growth; nothing legitimate comes close.
const DefaultMaxSize = 16 << 20

var ErrOutOfMemory = errors.New("out of memory for extradata")

type Blob struct {
	buf     []byte
	size    int
	MaxSize int
}

// Append extends the logical data with b and makes sure the padding tail
// is zeroed.
func (blob *Blob) Append(b []byte) error {
	maxSize := blob.MaxSize
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	newSize := blob.size + len(b)
	if newSize > maxSize {
		return fmt.Errorf("%w: %d+%d > %d", ErrOutOfMemory, blob.size, len(b), maxSize)
	}
	blob.reserve(newSize + PaddingSize)
	copy(blob.buf[blob.size:], b)
	blob.size = newSize
	blob.zeroPadding()
	return nil
}

func (blob *Blob) reserve(n int) {
	if cap(blob.buf) >= n {
		blob.buf = blob.buf[:n]
		return
	}
	newBuf := make([]byte, n, n+n/2)
	copy(newBuf, blob.buf[:blob.size])
	blob.buf = newBuf
}

func (blob *Blob) zeroPadding() {
	pad := blob.buf[blob.size : blob.size+PaddingSize]
	for i := range pad {
		pad[i] = 0
	}
}

// Bytes returns the logical data (without the padding).
func (blob *Blob) Bytes() []byte {
	if blob.size == 0 {
		return nil
	}
	return blob.buf[:blob.size]
}

// Padded returns the logical data followed by PaddingSize zero bytes.
func (blob *Blob) Padded() []byte {
	if blob.size == 0 {
		return nil
	}
	return blob.buf[:blob.size+PaddingSize]
}

func (blob *Blob) Len() int {
	return blob.size
}

// Reset frees the data.
func (blob *Blob) Reset() {
	blob.buf = nil
	blob.size = 0
}
