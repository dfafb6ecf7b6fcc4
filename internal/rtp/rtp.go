// Package rtp implements the RTP data packet format (RFC 3550 section 5)
// and an H.264/H.265 packetizer (RFC 6184, RFC 7798) for a single outbound
// video stream delivered over RTSP interleaved transport (RFC 2326 section
// 10.12).
package rtp

import (
	errors "golang.org/x/xerrors"

	"github.com/lanikai/rtspd/internal/packet"
)

// Fixed parameters used throughout this server. See RFC 3550 section 5.1.
const (
	// Version is the only RTP version this server speaks.
	Version = 2

	// HeaderSize is the size, in bytes, of the fixed RTP header (no CSRC
	// list, no header extension: this server never emits either).
	HeaderSize = 12
)

// Header is the fixed 12-byte RTP packet header.
//
//	 0                   1                   2                   3
//	 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//	|V=2|P|X|  CC   |M|     PT      |       sequence number        |
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//	|                           timestamp                          |
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//	|           synchronization source (SSRC) identifier           |
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
type Header struct {
	Marker         bool
	PayloadType    byte
	SequenceNumber uint16
	Timestamp      uint32
	SSRC           uint32
}

// WriteTo serializes h into w. Padding, extension, and CSRC count are
// always zero: this server never sets them.
func (h Header) WriteTo(w *packet.Writer) {
	w.WriteByte(Version << 6)
	w.WriteByte(joinByte17(h.Marker, h.PayloadType))
	w.WriteUint16(h.SequenceNumber)
	w.WriteUint32(h.Timestamp)
	w.WriteUint32(h.SSRC)
}

// ReadFrom parses a Header from r. Used by tests that round-trip packets;
// the server itself only ever writes RTP, never receives it.
func (h *Header) ReadFrom(r *packet.Reader) error {
	if err := r.CheckRemaining(HeaderSize); err != nil {
		return errors.Errorf("rtp: short header: %w", err)
	}
	first := r.ReadByte()
	version := first >> 6
	if version != Version {
		return errors.Errorf("rtp: unsupported version %d", version)
	}
	csrcCount := first & 0x0f
	h.Marker, h.PayloadType = splitByte17(r.ReadByte())
	h.SequenceNumber = r.ReadUint16()
	h.Timestamp = r.ReadUint32()
	h.SSRC = r.ReadUint32()
	if err := r.CheckRemaining(4 * int(csrcCount)); err != nil {
		return errors.Errorf("rtp: short CSRC list: %w", err)
	}
	r.Skip(4 * int(csrcCount))
	return nil
}

// Packet is a single serialized RTP packet: header plus payload.
type Packet struct {
	Header  Header
	Payload []byte
}

// Marshal serializes p as a contiguous byte slice.
func (p Packet) Marshal() []byte {
	buf := packet.NewWriterSize(HeaderSize + len(p.Payload))
	p.Header.WriteTo(buf)
	if err := buf.WriteSlice(p.Payload); err != nil {
		// Buffer was sized exactly for the payload; this cannot happen.
		panic(err)
	}
	return buf.Bytes()
}
