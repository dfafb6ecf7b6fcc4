package h26x

import (
	errors "golang.org/x/xerrors"

	"github.com/lanikai/rtspd/internal/bitreader"
)

// SPS holds the fields of an H.264 sequence parameter set needed to build
// an SDP fmtp line and to derive the picture dimensions. See ITU-T H.264
// section 7.3.2.1.1.
type SPS struct {
	ProfileIDC         uint8
	ConstraintSetFlags uint8
	LevelIDC           uint8

	SeqParameterSetID uint32

	ChromaFormatIDC uint32

	Log2MaxFrameNumMinus4 uint32
	PicOrderCntType       uint32

	MaxNumRefFrames uint32

	PicWidthInMbsMinus1       uint32
	PicHeightInMapUnitsMinus1 uint32
	FrameMbsOnlyFlag          uint32

	FrameCropLeftOffset   uint32
	FrameCropRightOffset  uint32
	FrameCropTopOffset    uint32
	FrameCropBottomOffset uint32
}

// highProfiles lists profile_idc values that carry the chroma/bit-depth
// block and scaling-list presence flags. See ITU-T H.264 section 7.3.2.1.1.
var highProfiles = map[uint8]bool{
	44: true, 83: true, 86: true, 100: true, 110: true,
	118: true, 122: true, 128: true, 244: true,
}

// DecodeSPS decodes a raw SPS NAL unit (header byte included; it is
// skipped) into its width/height-relevant fields. It fails on bitstream
// underrun, which is unrecoverable: parsing cannot continue.
func DecodeSPS(nalu NALU) (SPS, error) {
	if len(nalu) < 2 {
		return SPS{}, errors.New("h26x: SPS NAL too short")
	}

	r := bitreader.New(nalu[1:]) // skip the 1-byte NAL header
	var s SPS
	var err error

	readU8 := func() (uint8, error) {
		v, e := r.ReadU(8)
		return uint8(v), e
	}
	readU1 := func() (uint32, error) { return r.ReadU1() }

	if s.ProfileIDC, err = readU8(); err != nil {
		return SPS{}, err
	}
	if s.ConstraintSetFlags, err = readU8(); err != nil {
		return SPS{}, err
	}
	if s.LevelIDC, err = readU8(); err != nil {
		return SPS{}, err
	}
	if s.SeqParameterSetID, err = r.ReadUE(); err != nil {
		return SPS{}, err
	}

	if highProfiles[s.ProfileIDC] {
		if s.ChromaFormatIDC, err = r.ReadUE(); err != nil {
			return SPS{}, err
		}
		if s.ChromaFormatIDC == 3 {
			if _, err = readU1(); err != nil { // separate_colour_plane_flag
				return SPS{}, err
			}
		}
		if _, err = r.ReadUE(); err != nil { // bit_depth_luma_minus8
			return SPS{}, err
		}
		if _, err = r.ReadUE(); err != nil { // bit_depth_chroma_minus8
			return SPS{}, err
		}
		if _, err = readU1(); err != nil { // qpprime_y_zero_transform_bypass_flag
			return SPS{}, err
		}
		seqScalingMatrixPresent, err2 := readU1()
		if err2 != nil {
			return SPS{}, err2
		}
		if seqScalingMatrixPresent != 0 {
			n := 8
			if s.ChromaFormatIDC == 2 {
				n = 12
			}
			// Only the presence flags are consumed; scaling list payloads
			// are not decoded, so a set presence flag makes decoding fail
			// rather than misread the fields that follow.
			for i := 0; i < n; i++ {
				present, err3 := readU1()
				if err3 != nil {
					return SPS{}, err3
				}
				if present != 0 {
					return SPS{}, errors.New("h26x: scaling list payload decoding not supported")
				}
			}
		}
	}

	if s.Log2MaxFrameNumMinus4, err = r.ReadUE(); err != nil {
		return SPS{}, err
	}
	if s.PicOrderCntType, err = r.ReadUE(); err != nil {
		return SPS{}, err
	}

	switch s.PicOrderCntType {
	case 0:
		if _, err = r.ReadUE(); err != nil { // log2_max_pic_order_cnt_lsb_minus4
			return SPS{}, err
		}
	case 1:
		if _, err = readU1(); err != nil { // delta_pic_order_always_zero_flag
			return SPS{}, err
		}
		if _, err = r.ReadSE(); err != nil { // offset_for_non_ref_pic
			return SPS{}, err
		}
		if _, err = r.ReadSE(); err != nil { // offset_for_top_to_bottom_field
			return SPS{}, err
		}
		numRefFramesInCycle, err2 := r.ReadUE()
		if err2 != nil {
			return SPS{}, err2
		}
		for i := uint32(0); i < numRefFramesInCycle; i++ {
			if _, err = r.ReadSE(); err != nil { // offset_for_ref_frame[i]
				return SPS{}, err
			}
		}
	}

	if s.MaxNumRefFrames, err = r.ReadUE(); err != nil {
		return SPS{}, err
	}
	if _, err = readU1(); err != nil { // gaps_in_frame_num_value_allowed_flag
		return SPS{}, err
	}

	if s.PicWidthInMbsMinus1, err = r.ReadUE(); err != nil {
		return SPS{}, err
	}
	if s.PicHeightInMapUnitsMinus1, err = r.ReadUE(); err != nil {
		return SPS{}, err
	}
	if s.FrameMbsOnlyFlag, err = readU1(); err != nil {
		return SPS{}, err
	}
	if s.FrameMbsOnlyFlag == 0 {
		if _, err = readU1(); err != nil { // mb_adaptive_frame_field_flag
			return SPS{}, err
		}
	}
	if _, err = readU1(); err != nil { // direct_8x8_inference_flag
		return SPS{}, err
	}

	frameCroppingFlag, err2 := readU1()
	if err2 != nil {
		return SPS{}, err2
	}
	if frameCroppingFlag != 0 {
		if s.FrameCropLeftOffset, err = r.ReadUE(); err != nil {
			return SPS{}, err
		}
		if s.FrameCropRightOffset, err = r.ReadUE(); err != nil {
			return SPS{}, err
		}
		if s.FrameCropTopOffset, err = r.ReadUE(); err != nil {
			return SPS{}, err
		}
		if s.FrameCropBottomOffset, err = r.ReadUE(); err != nil {
			return SPS{}, err
		}
	}

	// vui_parameters_present_flag is read but not decoded further; nothing
	// after it is needed for SDP or dimensions.
	if _, err = readU1(); err != nil {
		return SPS{}, err
	}

	return s, nil
}

// WidthHeight derives the coded picture dimensions in pixels from the SPS
// fields, per ITU-T H.264 section 7.4.2.1.1.
func (s SPS) WidthHeight() (width, height int) {
	width = int(s.PicWidthInMbsMinus1+1)*16 - 2*int(s.FrameCropLeftOffset+s.FrameCropRightOffset)
	height = int(2-s.FrameMbsOnlyFlag) * int(s.PicHeightInMapUnitsMinus1+1) * 16
	height -= 2 * int(s.FrameCropTopOffset+s.FrameCropBottomOffset)
	return
}
