package h26x

import (
	"io"

	errors "golang.org/x/xerrors"
)

// ParameterSet is the result of scanning a file for codec parameter sets. It
// is one of H264, H265, or Other.
type ParameterSet struct {
	Codec Codec
	VPS   NALU // H.265 only
	SPS   NALU
	PPS   NALU
}

// Locate scans src from offset 0 for an H.264 SPS+PPS pair; if that fails it
// rewinds and looks for an H.265 VPS+SPS+PPS triple. If neither completes
// within the file, it returns a ParameterSet with Codec == CodecUnknown.
func Locate(src Source) (ParameterSet, error) {
	if ps, err := locateH264(src); err == nil {
		return ps, nil
	}

	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return ParameterSet{}, errors.Errorf("h26x: rewind before H.265 scan: %w", err)
	}

	if ps, err := locateH265(src); err == nil {
		return ps, nil
	}

	return ParameterSet{Codec: CodecUnknown}, nil
}

func locateH264(src Source) (ParameterSet, error) {
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return ParameterSet{}, errors.Errorf("h26x: rewind before H.264 scan: %w", err)
	}

	it := NewIterator(src, false)
	var sps, pps NALU
	for {
		nalu, ok := it.Next()
		if !ok {
			break
		}
		switch nalu.H264Type() {
		case H264TypeSPS:
			sps = nalu
		case H264TypePPS:
			pps = nalu
		}
		if sps != nil && pps != nil {
			return ParameterSet{Codec: CodecH264, SPS: sps, PPS: pps}, nil
		}
	}
	return ParameterSet{}, errors.New("h26x: no H.264 SPS/PPS found")
}

func locateH265(src Source) (ParameterSet, error) {
	it := NewIterator(src, false)
	var vps, sps, pps NALU
	for {
		nalu, ok := it.Next()
		if !ok {
			break
		}
		switch nalu.H265Type() {
		case H265TypeVPS:
			vps = nalu
		case H265TypeSPS:
			sps = nalu
		case H265TypePPS:
			pps = nalu
		}
		if vps != nil && sps != nil && pps != nil {
			return ParameterSet{Codec: CodecH265, VPS: vps, SPS: sps, PPS: pps}, nil
		}
	}
	return ParameterSet{}, errors.New("h26x: no H.265 VPS/SPS/PPS found")
}
