package extradata

import (
	"encoding/binary"
	"fmt"
)

type Kind int

const (
	KindEmpty = Kind(iota)
	KindUnknown
	KindAnnexB
	KindAVCC
)

func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindUnknown:
		return "unknown"
	case KindAnnexB:
		return "annex-b"
	case KindAVCC:
		return "avcc"
	default:
		return fmt.Sprintf("unknown_kind_%d", int(k))
	}
}

// Summary is a short human-readable description of a configuration blob,
// used for logging.
type Summary struct {
	Kind     Kind
	NALUs    int
	NALTypes []uint8
}

func (s Summary) String() string {
	switch s.Kind {
	case KindAnnexB, KindAVCC:
		return fmt.Sprintf("%s (%d NAL units, types: %v)", s.Kind, s.NALUs, s.NALTypes)
	default:
		return s.Kind.String()
	}
}

// Recognize detects the layout of the configuration data. H.264 NAL unit
// types are reported; for other codecs they are still the low 5 bits of
// the first NAL byte.
func Recognize(b []byte) Summary {
	if len(b) == 0 {
		return Summary{Kind: KindEmpty}
	}
	if nalus, ok := splitAVCC(b); ok {
		return summarize(KindAVCC, nalus)
	}
	if nalus := splitAnnexB(b); len(nalus) > 0 {
		return summarize(KindAnnexB, nalus)
	}
	return Summary{Kind: KindUnknown}
}

func summarize(kind Kind, nalus [][]byte) Summary {
	s := Summary{Kind: kind, NALUs: len(nalus)}
	for _, nalu := range nalus {
		s.NALTypes = append(s.NALTypes, nalu[0]&0x1F)
	}
	return s
}

// splitAVCC parses an AVCDecoderConfigurationRecord.
func splitAVCC(b []byte) ([][]byte, bool) {
	if len(b) < 7 || b[0] != 1 || b[4]&0xFC != 0xFC {
		return nil, false
	}
	var nalus [][]byte
	offset := 5
	for list := 0; list < 2; list++ {
		if offset >= len(b) {
			return nil, false
		}
		count := int(b[offset])
		if list == 0 {
			count &= 0x1F
		}
		offset++
		for i := 0; i < count; i++ {
			if offset+2 > len(b) {
				return nil, false
			}
			l := int(binary.BigEndian.Uint16(b[offset:]))
			offset += 2
			if l == 0 || offset+l > len(b) {
				return nil, false
			}
			nalus = append(nalus, b[offset:offset+l])
			offset += l
		}
	}
	return nalus, len(nalus) > 0
}

// splitAnnexB returns the NAL units delimited by 00 00 01 / 00 00 00 01 start codes.
func splitAnnexB(b []byte) [][]byte {
	var nalus [][]byte
	start := findStartCode(b, 0)
	for start >= 0 {
		payloadStart := start + 3
		if b[start+2] == 0 {
			payloadStart++
		}
		next := findStartCode(b, payloadStart)
		end := len(b)
		if next >= 0 {
			end = next
		}
		for end > payloadStart && b[end-1] == 0 {
			end--
		}
		if end > payloadStart {
			nalus = append(nalus, b[payloadStart:end])
		}
		start = next
	}
	return nalus
}

func findStartCode(b []byte, from int) int {
	for i := from; i+3 <= len(b); i++ {
		if b[i] != 0 || b[i+1] != 0 {
			continue
		}
		if b[i+2] == 1 {
			return i
		}
		if i+4 <= len(b) && b[i+2] == 0 && b[i+3] == 1 {
			return i
		}
	}
	return -1
}
