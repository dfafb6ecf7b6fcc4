package rtp

import (
	errors "golang.org/x/xerrors"

	"github.com/lanikai/rtspd/internal/h26x"
)

// MaxSingleNALSize is the largest NAL unit (header included) sent as a
// single RTP packet. Anything larger is fragmented into FU-A (H.264, RFC
// 6184 section 5.8) or FU (H.265, RFC 7798 section 4.4.3) units, each
// carrying up to this many bytes of the original NAL unit in addition to
// its own FU prefix.
const MaxSingleNALSize = 1400

const (
	h264NALUHeaderSize = 1
	h264TypeFUA        = 28
)

const (
	h265NALUHeaderSize = 2
	h265TypeFU         = 49
)

// Packetizer turns NAL units into a sequence of RTP packets for a single
// outbound video stream. It is not safe for concurrent use; the session
// controller serializes all calls through the session mutex.
type Packetizer struct {
	codec       h26x.Codec
	payloadType byte
	ssrc        uint32
	clockRate   uint32
	fps         uint32

	sequence  uint16
	timestamp uint32
}

// NewPacketizer returns a Packetizer for codec, emitting packets with the
// given SSRC and payload type at the given clock rate (Hz) and frame rate
// (frames per second, used to compute the per-frame timestamp increment).
func NewPacketizer(codec h26x.Codec, ssrc uint32, payloadType byte, clockRate, fps uint32) *Packetizer {
	return &Packetizer{
		codec:       codec,
		payloadType: payloadType,
		ssrc:        ssrc,
		clockRate:   clockRate,
		fps:         fps,
	}
}

// Packetize converts a single NAL unit into one or more RTP packets. SPS,
// PPS (H.264) and VPS, SPS, PPS (H.265) units sent in single-NAL mode do
// not advance the RTP timestamp: they share the access unit of the coded
// picture that follows them. The sequence number always advances, once per
// emitted packet.
func (p *Packetizer) Packetize(nalu h26x.NALU) ([]Packet, error) {
	switch p.codec {
	case h26x.CodecH264:
		return p.packetizeH264(nalu)
	case h26x.CodecH265:
		return p.packetizeH265(nalu)
	default:
		return nil, errors.New("rtp: packetizer has no codec configured")
	}
}

func (p *Packetizer) packetizeH264(nalu h26x.NALU) ([]Packet, error) {
	if len(nalu) < h264NALUHeaderSize {
		return nil, errors.New("rtp: NAL unit shorter than its own header")
	}
	naluByte := nalu[0]

	if len(nalu) <= MaxSingleNALSize {
		pkt := p.singlePacket(nalu)
		if nalu.IsParameterSet(h26x.CodecH264) {
			return []Packet{pkt}, nil
		}
		p.advanceTimestamp()
		return []Packet{pkt}, nil
	}

	n := len(nalu)
	pktNum := n / MaxSingleNALSize
	remain := n % MaxSingleNALSize
	pos := h264NALUHeaderSize

	var packets []Packet
	for i := 0; i < pktNum; i++ {
		indicator := (naluByte & 0xe0) | h264TypeFUA
		header := naluByte & 0x1f
		marker := false
		if i == 0 {
			header |= 0x80 // start
		} else if remain <= h264NALUHeaderSize && i == pktNum-1 {
			header |= 0x40 // end
			marker = true
		}

		// With a remainder shorter than the NAL header, the last full
		// fragment runs out of bytes before MaxSingleNALSize.
		end := pos + MaxSingleNALSize
		if end > n {
			end = n
		}
		payload := make([]byte, 0, 2+MaxSingleNALSize)
		payload = append(payload, indicator, header)
		payload = append(payload, nalu[pos:end]...)

		packets = append(packets, p.fragmentPacket(payload, marker))
		pos += MaxSingleNALSize
	}

	if remain > h264NALUHeaderSize {
		indicator := (naluByte & 0xe0) | h264TypeFUA
		header := (naluByte & 0x1f) | 0x40 // end
		payload := make([]byte, 0, 2+remain-h264NALUHeaderSize)
		payload = append(payload, indicator, header)
		payload = append(payload, nalu[pos:pos+remain-h264NALUHeaderSize]...)
		packets = append(packets, p.fragmentPacket(payload, true))
	}

	p.advanceTimestamp()
	return packets, nil
}

func (p *Packetizer) packetizeH265(nalu h26x.NALU) ([]Packet, error) {
	if len(nalu) < h265NALUHeaderSize {
		return nil, errors.New("rtp: NAL unit shorter than its own header")
	}
	naluType := nalu.H265Type()

	if len(nalu) <= MaxSingleNALSize {
		pkt := p.singlePacket(nalu)
		if nalu.IsParameterSet(h26x.CodecH265) {
			return []Packet{pkt}, nil
		}
		p.advanceTimestamp()
		return []Packet{pkt}, nil
	}

	n := len(nalu)
	pktNum := n / MaxSingleNALSize
	remain := n % MaxSingleNALSize
	pos := h265NALUHeaderSize

	// PayloadHdr replaces the original NAL type field with FU (49), per
	// RFC 7798 section 4.4.3.
	payloadHdrHi := (nalu[0] & 0x81) | h265TypeFU<<1
	payloadHdrLo := nalu[1]

	var packets []Packet
	for i := 0; i < pktNum; i++ {
		fuHeader := naluType
		marker := false
		if i == 0 {
			fuHeader |= 0x80 // start
		} else if remain <= h265NALUHeaderSize && i == pktNum-1 {
			fuHeader |= 0x40 // end
			marker = true
		}

		end := pos + MaxSingleNALSize
		if end > n {
			end = n
		}
		payload := make([]byte, 0, 3+MaxSingleNALSize)
		payload = append(payload, payloadHdrHi, payloadHdrLo, fuHeader)
		payload = append(payload, nalu[pos:end]...)

		packets = append(packets, p.fragmentPacket(payload, marker))
		pos += MaxSingleNALSize
	}

	if remain > h265NALUHeaderSize {
		fuHeader := naluType | 0x40 // end
		payload := make([]byte, 0, 3+remain-h265NALUHeaderSize)
		payload = append(payload, payloadHdrHi, payloadHdrLo, fuHeader)
		payload = append(payload, nalu[pos:pos+remain-h265NALUHeaderSize]...)
		packets = append(packets, p.fragmentPacket(payload, true))
	}

	p.advanceTimestamp()
	return packets, nil
}

func (p *Packetizer) singlePacket(nalu h26x.NALU) Packet {
	return Packet{
		Header: Header{
			Marker:         true,
			PayloadType:    p.payloadType,
			SequenceNumber: p.nextSequence(),
			Timestamp:      p.timestamp,
			SSRC:           p.ssrc,
		},
		Payload: nalu,
	}
}

func (p *Packetizer) fragmentPacket(payload []byte, marker bool) Packet {
	return Packet{
		Header: Header{
			Marker:         marker,
			PayloadType:    p.payloadType,
			SequenceNumber: p.nextSequence(),
			Timestamp:      p.timestamp,
			SSRC:           p.ssrc,
		},
		Payload: payload,
	}
}

func (p *Packetizer) nextSequence() uint16 {
	seq := p.sequence
	p.sequence++
	return seq
}

func (p *Packetizer) advanceTimestamp() {
	p.timestamp += p.clockRate / p.fps
}
