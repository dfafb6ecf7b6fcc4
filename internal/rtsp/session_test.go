package rtsp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanikai/rtspd/internal/h26x"
)

func newTestSession() *Session {
	ps := h26x.ParameterSet{
		Codec: h26x.CodecH264,
		SPS:   h26x.NALU{0x67, 0x42, 0x00, 0x1e},
		PPS:   h26x.NALU{0x68, 0xce, 0x3c, 0x80},
	}
	return NewSession(ps, 96, rtpSSRC, 90000, 25)
}

func TestSessionIDIsTenDigits(t *testing.T) {
	s := newTestSession()
	assert.Len(t, s.ID, 10)
	for _, r := range s.ID {
		assert.True(t, r >= '0' && r <= '9')
	}
}

func TestSessionStateTransitions(t *testing.T) {
	s := newTestSession()
	assert.Equal(t, StateInit, s.State())

	s.SetState(StateReady)
	assert.Equal(t, StateReady, s.State())

	s.Play()
	assert.Equal(t, StatePlaying, s.State())
	assert.True(t, <-s.Signal)

	s.Teardown()
	assert.Equal(t, StateClosed, s.State())
	assert.False(t, <-s.Signal)
}

func TestSessionPacketizeDelegatesToPacketizer(t *testing.T) {
	s := newTestSession()
	idr := h26x.NALU(append([]byte{0x65}, make([]byte, 10)...))

	packets, err := s.Packetize(idr)
	require.NoError(t, err)
	require.Len(t, packets, 1)
	assert.EqualValues(t, 0, packets[0].Header.SequenceNumber)

	packets2, err := s.Packetize(idr)
	require.NoError(t, err)
	assert.EqualValues(t, 1, packets2[0].Header.SequenceNumber)
	assert.EqualValues(t, 90000/25, packets2[0].Header.Timestamp)
}
