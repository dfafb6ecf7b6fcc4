package sdp

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// H264FormatParameters holds the fields of an H.264 RTP fmtp attribute this
// server emits in a DESCRIBE response. See RFC 6184 section 8.1.
type H264FormatParameters struct {
	PacketizationMode  int
	ProfileLevelID     int
	SpropParameterSets [][]byte // [sps, pps]
}

// Marshal renders the fmtp value (everything after "a=fmtp:<pt> ").
func (fmtp *H264FormatParameters) Marshal() string {
	parts := []string{
		fmt.Sprintf("packetization-mode=%d", fmtp.PacketizationMode),
		fmt.Sprintf("profile-level-id=%06x", fmtp.ProfileLevelID),
	}

	if len(fmtp.SpropParameterSets) > 0 {
		var encoded []string
		for _, ps := range fmtp.SpropParameterSets {
			encoded = append(encoded, base64.StdEncoding.EncodeToString(ps))
		}
		parts = append(parts, fmt.Sprintf("sprop-parameter-sets=%s", strings.Join(encoded, ",")))
	}

	return strings.Join(parts, "; ")
}

// H265FormatParameters holds the fields of an H.265 RTP fmtp attribute this
// server emits in a DESCRIBE response. See RFC 7798 section 7.1.
type H265FormatParameters struct {
	SpropVPS []byte
	SpropSPS []byte
	SpropPPS []byte
}

func (fmtp *H265FormatParameters) Marshal() string {
	parts := []string{
		fmt.Sprintf("sprop-vps=%s", base64.StdEncoding.EncodeToString(fmtp.SpropVPS)),
		fmt.Sprintf("sprop-sps=%s", base64.StdEncoding.EncodeToString(fmtp.SpropSPS)),
		fmt.Sprintf("sprop-pps=%s", base64.StdEncoding.EncodeToString(fmtp.SpropPPS)),
	}
	return strings.Join(parts, "; ")
}
