package rtp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanikai/rtspd/internal/h26x"
)

func TestPacketizeH264SingleNAL(t *testing.T) {
	p := NewPacketizer(h26x.CodecH264, 0x00BC614E, 96, 90000, 25)

	nalu := h26x.NALU(append([]byte{0x65}, make([]byte, 100)...)) // IDR slice
	packets, err := p.Packetize(nalu)
	require.NoError(t, err)
	require.Len(t, packets, 1)

	assert.True(t, packets[0].Header.Marker)
	assert.EqualValues(t, 0, packets[0].Header.SequenceNumber)
	assert.EqualValues(t, 0, packets[0].Header.Timestamp)
	assert.Equal(t, []byte(nalu), packets[0].Payload)

	// A second, non-parameter-set NAL advances the timestamp and the
	// sequence number.
	packets2, err := p.Packetize(nalu)
	require.NoError(t, err)
	require.Len(t, packets2, 1)
	assert.EqualValues(t, 1, packets2[0].Header.SequenceNumber)
	assert.EqualValues(t, 90000/25, packets2[0].Header.Timestamp)
}

func TestPacketizeH264ParameterSetHoldsTimestamp(t *testing.T) {
	p := NewPacketizer(h26x.CodecH264, 0x00BC614E, 96, 90000, 25)

	sps := h26x.NALU{0x67, 0x42, 0x00, 0x1e}
	pps := h26x.NALU{0x68, 0xce, 0x3c, 0x80}
	idr := h26x.NALU(append([]byte{0x65}, make([]byte, 10)...))

	ps1, err := p.Packetize(sps)
	require.NoError(t, err)
	ps2, err := p.Packetize(pps)
	require.NoError(t, err)
	ps3, err := p.Packetize(idr)
	require.NoError(t, err)

	// Sequence numbers always advance...
	assert.EqualValues(t, 0, ps1[0].Header.SequenceNumber)
	assert.EqualValues(t, 1, ps2[0].Header.SequenceNumber)
	assert.EqualValues(t, 2, ps3[0].Header.SequenceNumber)

	// ...but the timestamp only advances once the IDR (non-parameter-set)
	// NAL has been packetized.
	assert.EqualValues(t, 0, ps1[0].Header.Timestamp)
	assert.EqualValues(t, 0, ps2[0].Header.Timestamp)
	assert.EqualValues(t, 0, ps3[0].Header.Timestamp)
}

func TestPacketizeH264Fragmentation(t *testing.T) {
	p := NewPacketizer(h26x.CodecH264, 0x00BC614E, 96, 90000, 25)

	nalu := h26x.NALU(append([]byte{0x65}, make([]byte, 2*MaxSingleNALSize+100)...))
	for i := range nalu {
		nalu[i] = byte(i)
	}
	packets, err := p.Packetize(nalu)
	require.NoError(t, err)
	require.Greater(t, len(packets), 1)

	var reassembled []byte
	for i, pkt := range packets {
		indicator := pkt.Payload[0]
		header := pkt.Payload[1]
		assert.Equal(t, byte(h264TypeFUA), indicator&0x1f)
		assert.Equal(t, nalu[0]&0x1f, header&0x1f)

		start := header&0x80 != 0
		end := header&0x40 != 0
		if i == 0 {
			assert.True(t, start, "first fragment must set the start bit")
			assert.False(t, pkt.Header.Marker)
		} else {
			assert.False(t, start)
		}
		if i == len(packets)-1 {
			assert.True(t, end, "last fragment must set the end bit")
			assert.True(t, pkt.Header.Marker)
		} else {
			assert.False(t, end)
			assert.False(t, pkt.Header.Marker)
		}
		reassembled = append(reassembled, pkt.Payload[2:]...)

		// Sequence numbers are strictly increasing.
		assert.EqualValues(t, i, pkt.Header.SequenceNumber)
	}

	// Invariant: total reassembled payload equals |nalu| - nal_header_size.
	assert.Equal(t, len(nalu)-1, len(reassembled))
	assert.Equal(t, []byte(nalu[1:]), reassembled)

	// The timestamp advances exactly once for the whole fragmented NAL.
	assert.EqualValues(t, 90000/25, p.timestamp)
	for _, pkt := range packets {
		assert.EqualValues(t, 0, pkt.Header.Timestamp)
	}
}

func TestPacketizeH264FragmentationSmallRemainderFolded(t *testing.T) {
	p := NewPacketizer(h26x.CodecH264, 0x00BC614E, 96, 90000, 25)

	// n = 2*MaxSingleNALSize + 1: remainder after header-skip accounting is
	// exactly the NAL header size, so no trailing fragment is emitted; the
	// E bit is retroactively set on the last full fragment instead.
	nalu := h26x.NALU(make([]byte, 2*MaxSingleNALSize+1))
	nalu[0] = 0x65

	packets, err := p.Packetize(nalu)
	require.NoError(t, err)
	require.Len(t, packets, 2)

	last := packets[len(packets)-1]
	assert.True(t, last.Payload[1]&0x40 != 0)
	assert.True(t, last.Header.Marker)
}

func TestPacketizeH265Fragmentation(t *testing.T) {
	p := NewPacketizer(h26x.CodecH265, 0x00BC614E, 96, 90000, 25)

	header := []byte{0x02, 0x01} // arbitrary H.265 NAL header (non-parameter-set type)
	nalu := h26x.NALU(append(append([]byte{}, header...), make([]byte, 2*MaxSingleNALSize+100)...))
	packets, err := p.Packetize(nalu)
	require.NoError(t, err)
	require.Greater(t, len(packets), 1)

	first := packets[0].Payload
	assert.Equal(t, byte(h265TypeFU), (first[0]>>1)&0x3f)
	assert.True(t, first[2]&0x80 != 0, "first fragment sets start bit in FU header")

	last := packets[len(packets)-1].Payload
	assert.True(t, last[2]&0x40 != 0, "last fragment sets end bit in FU header")
	assert.True(t, packets[len(packets)-1].Header.Marker)

	var reassembled []byte
	for _, pkt := range packets {
		reassembled = append(reassembled, pkt.Payload[3:]...)
	}
	assert.Equal(t, len(nalu)-2, len(reassembled))
}

func TestPacketizeH265ParameterSetSingleNALHoldsTimestamp(t *testing.T) {
	p := NewPacketizer(h26x.CodecH265, 0x00BC614E, 96, 90000, 25)

	vps := h26x.NALU{0x40, 0x01, 0x0c}
	packets, err := p.Packetize(vps)
	require.NoError(t, err)
	require.Len(t, packets, 1)
	assert.EqualValues(t, 0, packets[0].Header.Timestamp)

	pic := h26x.NALU{0x02, 0x01, 0xaa, 0xbb}
	// The VPS did not advance the timestamp, so the picture shares it.
	packets2, err := p.Packetize(pic)
	require.NoError(t, err)
	assert.EqualValues(t, 0, packets2[0].Header.Timestamp)
}

func TestPacketizeRejectsNoCodec(t *testing.T) {
	p := NewPacketizer(h26x.CodecUnknown, 0, 96, 90000, 25)
	_, err := p.Packetize(h26x.NALU{0x65, 0x00})
	assert.Error(t, err)
}
