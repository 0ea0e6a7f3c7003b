// pixel_format.go defines the PixelFormat type.

package types

// PixelFormat is a pixel format name as libav spells it (see `ffmpeg -pix_fmts`).
type PixelFormat string

func (pf PixelFormat) String() string {
	return string(pf)
}

const (
	PixelFormatUnknown  PixelFormat = ""
	PixelFormatYUV420P  PixelFormat = "yuv420p"
	PixelFormatYUVJ420P PixelFormat = "yuvj420p"
	PixelFormatYUV422P  PixelFormat = "yuv422p"
	PixelFormatYUVJ422P PixelFormat = "yuvj422p"
	PixelFormatYUV444P  PixelFormat = "yuv444p"
	PixelFormatYUVJ444P PixelFormat = "yuvj444p"
	PixelFormatNV12     PixelFormat = "nv12"
)
