package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/Eyevinn/mp4ff/avc"
	"github.com/Eyevinn/mp4ff/mp4"
	"github.com/xaionaro-go/avsoftdec/codec"
	"github.com/xaionaro-go/avsoftdec/logger"
	"github.com/xaionaro-go/avsoftdec/types"
)

// mp4Source reads H.264 samples of a progressive MP4 file without libav.
// The parameter sets are delivered as separate codec-config units and the
// samples are converted into Annex-B.
type mp4Source struct {
	path       string
	file       *os.File
	stbl       *mp4.StblBox
	avcC       *mp4.AvcCBox
	resolution types.Resolution
	timescale  uint32
	sampleNr   uint32
}

var _ source = (*mp4Source)(nil)

func openMP4Source(ctx context.Context, path string) (_ret *mp4Source, _err error) {
	logger.Tracef(ctx, "openMP4Source(ctx, '%s')", path)
	defer func() { logger.Tracef(ctx, "/openMP4Source(ctx, '%s'): %v", path, _err) }()

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open '%s': %w", path, err)
	}
	defer func() {
		if _err != nil {
			f.Close()
		}
	}()

	mp4File, err := mp4.DecodeFile(f)
	if err != nil {
		return nil, fmt.Errorf("unable to parse '%s': %w", path, err)
	}
	if mp4File.Moov == nil {
		return nil, fmt.Errorf("no moov box in '%s'; fragmented files are not supported", path)
	}

	s := &mp4Source{
		path:      path,
		file:      f,
		timescale: 1000,
		sampleNr:  1,
	}
	for _, trak := range mp4File.Moov.Traks {
		if trak.Mdia == nil || trak.Mdia.Hdlr == nil || trak.Mdia.Hdlr.HandlerType != "vide" {
			continue
		}
		if trak.Mdia.Minf == nil || trak.Mdia.Minf.Stbl == nil || trak.Mdia.Minf.Stbl.Stsd == nil {
			continue
		}
		for _, child := range trak.Mdia.Minf.Stbl.Stsd.Children {
			if entry, ok := child.(*mp4.VisualSampleEntryBox); ok && entry.AvcC != nil {
				s.avcC = entry.AvcC
				s.resolution = types.Resolution{Width: uint32(entry.Width), Height: uint32(entry.Height)}
			}
		}
		if s.avcC == nil {
			continue
		}
		s.stbl = trak.Mdia.Minf.Stbl
		if trak.Mdia.Mdhd != nil && trak.Mdia.Mdhd.Timescale != 0 {
			s.timescale = trak.Mdia.Mdhd.Timescale
		}
		break
	}
	if s.stbl == nil {
		return nil, fmt.Errorf("no H.264 video track in '%s'", path)
	}
	if s.stbl.Stsz == nil || s.stbl.Stsc == nil {
		return nil, fmt.Errorf("the sample table is incomplete in '%s'", path)
	}
	logger.Debugf(ctx, "found an H.264 track %s with %d samples", s.resolution, s.stbl.Stsz.SampleNumber)
	return s, nil
}

func (s *mp4Source) String() string {
	return fmt.Sprintf("mp4:%s", s.path)
}

func (s *mp4Source) CodecName() codec.Name {
	return "h264"
}

func (s *mp4Source) Resolution() types.Resolution {
	return s.resolution
}

func annexBNALU(nalu []byte) []byte {
	return append([]byte{0, 0, 0, 1}, nalu...)
}

func (s *mp4Source) ConfigUnits() [][]byte {
	var result [][]byte
	for _, sps := range s.avcC.SPSnalus {
		result = append(result, annexBNALU(sps))
	}
	for _, pps := range s.avcC.PPSnalus {
		result = append(result, annexBNALU(pps))
	}
	return result
}

func (s *mp4Source) ReadUnit(ctx context.Context) (*compressedUnit, error) {
	if s.sampleNr > s.stbl.Stsz.SampleNumber {
		return nil, io.EOF
	}
	sampleNr := s.sampleNr
	s.sampleNr++

	data, err := s.readSample(sampleNr)
	if err != nil {
		return nil, fmt.Errorf("unable to read sample #%d: %w", sampleNr, err)
	}

	ts := types.NoTimestamp
	if s.stbl.Stts != nil {
		decodeTime, _ := s.stbl.Stts.GetDecodeTime(sampleNr)
		ts = types.Timestamp(decodeTime * 1000000 / uint64(s.timescale))
	}
	return &compressedUnit{
		Data:      avc.ConvertSampleToByteStream(data),
		Timestamp: ts,
	}, nil
}

func (s *mp4Source) readSample(sampleNr uint32) ([]byte, error) {
	chunkNr, firstSampleInChunk, err := s.stbl.Stsc.ChunkNrFromSampleNr(int(sampleNr))
	if err != nil {
		return nil, fmt.Errorf("unable to find the chunk: %w", err)
	}

	var offset uint64
	switch {
	case s.stbl.Stco != nil:
		offset, err = s.stbl.Stco.GetOffset(chunkNr)
		if err != nil {
			return nil, fmt.Errorf("unable to get the chunk offset: %w", err)
		}
	case s.stbl.Co64 != nil:
		if chunkNr < 1 || chunkNr > len(s.stbl.Co64.ChunkOffset) {
			return nil, fmt.Errorf("chunk #%d is out of range", chunkNr)
		}
		offset = s.stbl.Co64.ChunkOffset[chunkNr-1]
	default:
		return nil, fmt.Errorf("no chunk offsets")
	}
	for nr := uint32(firstSampleInChunk); nr < sampleNr; nr++ {
		offset += uint64(s.stbl.Stsz.GetSampleSize(int(nr)))
	}

	data := make([]byte, s.stbl.Stsz.GetSampleSize(int(sampleNr)))
	if _, err := s.file.ReadAt(data, int64(offset)); err != nil {
		return nil, err
	}
	return data, nil
}

func (s *mp4Source) Close() error {
	return s.file.Close()
}
