package scaler

import (
	"context"
	"fmt"
	"image"
	"image/color"

	"github.com/anthonynsimon/bild/transform"
	"github.com/xaionaro-go/avsoftdec/codec"
	"github.com/xaionaro-go/avsoftdec/logger"
	"github.com/xaionaro-go/avsoftdec/types"
)

// GoFactory builds scalers working on Go-memory planar pictures
// (see codec.Picture.Planes) without involving libswscale.
type GoFactory struct{}

var _ Factory = GoFactory{}

func subsampleRatio(pf types.PixelFormat) (image.YCbCrSubsampleRatio, bool) {
	switch pf {
	case types.PixelFormatYUV420P, types.PixelFormatYUVJ420P:
		return image.YCbCrSubsampleRatio420, true
	case types.PixelFormatYUV422P, types.PixelFormatYUVJ422P:
		return image.YCbCrSubsampleRatio422, true
	case types.PixelFormatYUV444P, types.PixelFormatYUVJ444P:
		return image.YCbCrSubsampleRatio444, true
	}
	return 0, false
}

func (GoFactory) NewScaler(ctx context.Context, key Key) (Scaler, error) {
	ratio, ok := subsampleRatio(key.SourceFormat)
	if !ok {
		return nil, fmt.Errorf("source pixel format '%s' is not supported", key.SourceFormat)
	}
	switch key.DestinationFormat {
	case types.PixelFormatYUV420P, types.PixelFormatYUVJ420P:
	default:
		return nil, fmt.Errorf("destination pixel format '%s' is not supported", key.DestinationFormat)
	}
	if key.Source.IsZero() || key.Destination.IsZero() {
		return nil, fmt.Errorf("zero resolution in %s", key)
	}
	logger.Debugf(ctx, "new Go scaler: %s", key)
	return &Go{key: key, ratio: ratio}, nil
}

type Go struct {
	key   Key
	ratio image.YCbCrSubsampleRatio
}

var _ Scaler = (*Go)(nil)

func (s *Go) String() string {
	return fmt.Sprintf("GoScaler(%s)", s.key)
}

func (s *Go) Key() Key {
	return s.key
}

func (s *Go) Close(context.Context) error {
	return nil
}

func (s *Go) Scale(
	ctx context.Context,
	src *codec.Picture,
	dst []byte,
) (_err error) {
	logger.Tracef(ctx, "Scale")
	defer func() { logger.Tracef(ctx, "/Scale: %v", _err) }()

	if src.Resolution() != s.key.Source {
		return fmt.Errorf("the picture is %s, but the scaler expects %s", src.Resolution(), s.key.Source)
	}
	if len(src.Planes) < 3 {
		return fmt.Errorf("expected 3 planes, but got %d", len(src.Planes))
	}
	if src.Planes[1].Linesize != src.Planes[2].Linesize {
		return fmt.Errorf("chroma planes have different strides: %d != %d", src.Planes[1].Linesize, src.Planes[2].Linesize)
	}
	if need := s.key.Destination.I420BufferSize(); uint64(len(dst)) < need {
		return fmt.Errorf("the destination buffer is too small: %d < %d", len(dst), need)
	}

	if s.key.Source == s.key.Destination && s.ratio == image.YCbCrSubsampleRatio420 {
		return copyI420(src, dst)
	}

	img := &image.YCbCr{
		Y:              src.Planes[0].Data,
		Cb:             src.Planes[1].Data,
		Cr:             src.Planes[2].Data,
		YStride:        src.Planes[0].Linesize,
		CStride:        src.Planes[1].Linesize,
		SubsampleRatio: s.ratio,
		Rect:           image.Rect(0, 0, src.Width, src.Height),
	}
	if !sufficientPlanes(img) {
		return fmt.Errorf("the planes are too small for %dx%d %s", src.Width, src.Height, src.PixelFormat)
	}

	var rgba *image.RGBA
	if s.key.Source == s.key.Destination {
		rgba = image.NewRGBA(img.Rect)
		for y := 0; y < src.Height; y++ {
			for x := 0; x < src.Width; x++ {
				rgba.Set(x, y, img.At(x, y))
			}
		}
	} else {
		rgba = transform.Resize(img, int(s.key.Destination.Width), int(s.key.Destination.Height), transform.CatmullRom)
	}
	rgbaToI420(rgba, dst)
	return nil
}

func sufficientPlanes(img *image.YCbCr) bool {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	cw, ch := w, h
	switch img.SubsampleRatio {
	case image.YCbCrSubsampleRatio420:
		cw, ch = (w+1)/2, (h+1)/2
	case image.YCbCrSubsampleRatio422:
		cw = (w + 1) / 2
	}
	if img.YStride < w || img.CStride < cw {
		return false
	}
	if len(img.Y) < (h-1)*img.YStride+w {
		return false
	}
	needC := (ch-1)*img.CStride + cw
	return len(img.Cb) >= needC && len(img.Cr) >= needC
}

func copyI420(src *codec.Picture, dst []byte) error {
	w, h := src.Width, src.Height
	cw, ch := (w+1)/2, (h+1)/2
	dims := [3][2]int{{w, h}, {cw, ch}, {cw, ch}}
	offset := 0
	for idx, d := range dims {
		plane := src.Planes[idx]
		pw, ph := d[0], d[1]
		if plane.Linesize < pw || len(plane.Data) < (ph-1)*plane.Linesize+pw {
			return fmt.Errorf("plane #%d is too small", idx)
		}
		for row := 0; row < ph; row++ {
			copy(dst[offset+row*pw:offset+(row+1)*pw], plane.Data[row*plane.Linesize:])
		}
		offset += pw * ph
	}
	return nil
}

func rgbaToI420(img *image.RGBA, dst []byte) {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	cw, ch := (w+1)/2, (h+1)/2
	yPlane := dst[:w*h]
	uPlane := dst[w*h : w*h+cw*ch]
	vPlane := dst[w*h+cw*ch : w*h+2*cw*ch]

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			p := img.PixOffset(x+img.Rect.Min.X, y+img.Rect.Min.Y)
			lum, _, _ := color.RGBToYCbCr(img.Pix[p], img.Pix[p+1], img.Pix[p+2])
			yPlane[y*w+x] = lum
		}
	}

	for cy := 0; cy < ch; cy++ {
		for cx := 0; cx < cw; cx++ {
			var r, g, b, n uint32
			for dy := 0; dy < 2; dy++ {
				for dx := 0; dx < 2; dx++ {
					x, y := cx*2+dx, cy*2+dy
					if x >= w || y >= h {
						continue
					}
					p := img.PixOffset(x+img.Rect.Min.X, y+img.Rect.Min.Y)
					r += uint32(img.Pix[p])
					g += uint32(img.Pix[p+1])
					b += uint32(img.Pix[p+2])
					n++
				}
			}
			_, cb, cr := color.RGBToYCbCr(uint8((r+n/2)/n), uint8((g+n/2)/n), uint8((b+n/2)/n))
			uPlane[cy*cw+cx] = cb
			vPlane[cy*cw+cx] = cr
		}
	}
}
