package sdp

import (
	"fmt"

	"github.com/lanikai/rtspd/internal/h26x"
)

// BuildParams carries everything needed to compose a DESCRIBE response body
// for a single video-only RTSP session. See RFC 4566.
type BuildParams struct {
	SessionID string // 10-digit decimal, e.g. "1234567890"
	Address   string // server IP, e.g. "192.168.1.10"
	Codec       h26x.Codec
	PayloadType byte // 96
	ClockRate   uint32

	// H.264 only.
	SPS h26x.NALU
	PPS h26x.NALU

	// H.265 only.
	VPS h26x.NALU
}

// Build composes the SDP document describing a single video track, in the
// exact form the RTSP DESCRIBE handler returns as its response body:
//
//	v=0
//	o=- <session-id> 0 IN IP4 <address>
//	s=seminar
//	c=IN IP4 <address>
//	t=0 0
//	a=control:*
//	m=video 4 RTP/AVP/TCP 96
//	a=rtpmap:96 H264/90000 (or H265/90000)
//	a=fmtp:96 ...
//	a=control:track1
func Build(p BuildParams) (string, error) {
	session := Session{
		Version: 0,
		Origin: Origin{
			Username:       "-",
			SessionId:      p.SessionID,
			SessionVersion: 0,
			NetworkType:    "IN",
			AddressType:    "IP4",
			Address:        p.Address,
		},
		Name: "seminar",
		Connection: &Connection{
			NetworkType: "IN",
			AddressType: "IP4",
			Address:     p.Address,
		},
		Time:       []Time{{}},
		Attributes: []Attribute{{Key: "control", Value: "*"}},
	}

	media := Media{
		Type:   "video",
		Port:   4,
		Proto:  "RTP/AVP/TCP",
		Format: []string{fmt.Sprintf("%d", p.PayloadType)},
	}

	var encodingName, fmtpValue string
	switch p.Codec {
	case h26x.CodecH264:
		if len(p.SPS) < 4 {
			return "", fmt.Errorf("sdp: H.264 SPS too short to derive profile-level-id")
		}
		encodingName = "H264"
		profileLevelID := int(p.SPS[1])<<16 | int(p.SPS[2])<<8 | int(p.SPS[3])
		fmtp := H264FormatParameters{
			PacketizationMode: 1,
			ProfileLevelID:    profileLevelID,
			SpropParameterSets: [][]byte{
				[]byte(p.SPS), []byte(p.PPS),
			},
		}
		fmtpValue = fmt.Sprintf("%d %s", p.PayloadType, fmtp.Marshal())
	case h26x.CodecH265:
		encodingName = "H265"
		fmtp := H265FormatParameters{
			SpropVPS: []byte(p.VPS),
			SpropSPS: []byte(p.SPS),
			SpropPPS: []byte(p.PPS),
		}
		fmtpValue = fmt.Sprintf("%d %s", p.PayloadType, fmtp.Marshal())
	default:
		return "", fmt.Errorf("sdp: unsupported codec %v", p.Codec)
	}

	media.Attributes = []Attribute{
		{Key: "rtpmap", Value: fmt.Sprintf("%d %s/%d", p.PayloadType, encodingName, p.ClockRate)},
		{Key: "fmtp", Value: fmtpValue},
		{Key: "control", Value: "track1"},
	}

	session.Media = []Media{media}

	return session.String(), nil
}
