package rtsp

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanikai/rtspd/internal/h26x"
	"github.com/lanikai/rtspd/internal/rtp"
)

// Scenario D (spec section 8): a single-NAL RTP packet is framed as
// 0x24 0x00 <len_be16> followed by the RTP header and payload, with len
// counting only the RTP header and payload.
func TestWriteInterleavedFraming(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	conn := &Connection{conn: server, w: newWriter(server)}
	defer conn.w.close()

	nalu := h26x.NALU(append([]byte{0x67}, make([]byte, 20)...)) // 21-byte SPS-shaped NAL
	pkt := rtp.Packet{
		Header: rtp.Header{Marker: true, PayloadType: 96, SequenceNumber: 0, Timestamp: 0, SSRC: rtpSSRC},
		Payload: nalu,
	}

	done := make(chan error, 1)
	go func() { done <- conn.writeInterleaved(pkt) }()

	frame := make([]byte, 4+rtp.HeaderSize+len(nalu))
	_, err := client.Read(frame[:4])
	require.NoError(t, err)

	assert.Equal(t, byte(0x24), frame[0])
	assert.Equal(t, byte(0x00), frame[1])
	length := int(frame[2])<<8 | int(frame[3])
	assert.Equal(t, rtp.HeaderSize+len(nalu), length)

	_, err = client.Read(frame[4:])
	require.NoError(t, err)
	require.NoError(t, <-done)

	assert.Equal(t, pkt.Marshal(), frame[4:])
}
