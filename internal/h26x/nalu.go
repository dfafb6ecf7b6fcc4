// Package h26x scans Annex-B elementary streams for NAL units, classifies
// and decodes H.264/H.265 parameter sets, and derives the fields an SDP
// answer needs. See ITU-T H.264 Annex B and ITU-T H.265 Annex B.
package h26x

// NALU is a single NAL unit, stored by value. Its payload never contains a
// raw 00 00 00 / 00 00 01 start code: emulation-prevention bytes are assumed
// already present (this package does not strip them).
type NALU []byte

// Codec distinguishes the elementary stream's coding standard.
type Codec int

const (
	CodecUnknown Codec = iota
	CodecH264
	CodecH265
)

func (c Codec) String() string {
	switch c {
	case CodecH264:
		return "H264"
	case CodecH265:
		return "H265"
	default:
		return "unknown"
	}
}

// H.264 NAL unit types (low 5 bits of the first byte). See RFC 6184 section
// 5.2.
const (
	H264TypeSPS  = 7
	H264TypePPS  = 8
	H264TypeFUA  = 28
)

// H264Type returns the low 5 bits of the first NAL byte.
func (n NALU) H264Type() byte {
	return n[0] & 0x1f
}

// H.265 NAL unit types (bits 1-6 of the first byte). See RFC 7798 section
// 4.4.2.
const (
	H265TypeVPS = 32
	H265TypeSPS = 33
	H265TypePPS = 34
	H265TypeFU  = 49
)

// H265Type returns bits 1-6 of the first NAL byte.
func (n NALU) H265Type() byte {
	return (n[0] & 0x7e) >> 1
}

// IsParameterSet reports whether nalu is a parameter-set NAL (SPS/PPS for
// H.264, VPS/SPS/PPS for H.265) that shares its access unit with the
// following picture and therefore must not advance the RTP timestamp.
func (n NALU) IsParameterSet(codec Codec) bool {
	switch codec {
	case CodecH264:
		t := n.H264Type()
		return t == H264TypeSPS || t == H264TypePPS
	case CodecH265:
		t := n.H265Type()
		return t == H265TypeVPS || t == H265TypeSPS || t == H265TypePPS
	default:
		return false
	}
}
