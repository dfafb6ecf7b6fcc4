// Package bitreader implements a forward-only bit cursor over an immutable
// byte buffer, sufficient for decoding Exp-Golomb coded fields from an H.26x
// parameter set. See ITU-T H.264 section 9.1.
package bitreader

import (
	errors "golang.org/x/xerrors"

	"github.com/lanikai/rtspd/internal/packet"
)

// Reader reads individual bits, MSB-first, out of a byte buffer. It is not
// restartable: once bits are consumed they cannot be unread.
type Reader struct {
	r        *packet.Reader
	cur      byte
	bitsLeft uint8 // bits remaining in cur, 0 means cur must be refilled
}

// New returns a bit reader over buf.
func New(buf []byte) *Reader {
	return &Reader{r: packet.NewReader(buf)}
}

// ReadU1 reads a single bit.
func (r *Reader) ReadU1() (uint32, error) {
	if r.bitsLeft == 0 {
		if err := r.r.CheckRemaining(1); err != nil {
			return 0, errors.Errorf("bitreader: underrun reading bit: %w", err)
		}
		r.cur = r.r.ReadByte()
		r.bitsLeft = 8
	}
	r.bitsLeft--
	bit := (r.cur >> r.bitsLeft) & 0x01
	return uint32(bit), nil
}

// ReadU reads n bits (1 <= n <= 32), MSB-first, and returns them as an
// unsigned integer.
func (r *Reader) ReadU(n int) (uint32, error) {
	if n < 1 || n > 32 {
		return 0, errors.Errorf("bitreader: invalid bit count %d", n)
	}
	var v uint32
	for i := 0; i < n; i++ {
		bit, err := r.ReadU1()
		if err != nil {
			return 0, err
		}
		v = v<<1 | bit
	}
	return v, nil
}

// ReadUE reads an unsigned Exp-Golomb coded value: k leading zero bits, a
// stop bit, then k more bits. Returns (1<<k | suffix) - 1.
func (r *Reader) ReadUE() (uint32, error) {
	var zeros uint
	for {
		bit, err := r.ReadU1()
		if err != nil {
			return 0, err
		}
		if bit != 0 {
			break
		}
		zeros++
		if zeros > 32 {
			return 0, errors.New("bitreader: exp-golomb prefix too long")
		}
	}
	if zeros == 0 {
		return 0, nil
	}
	suffix, err := r.ReadU(int(zeros))
	if err != nil {
		return 0, err
	}
	return (1<<zeros | suffix) - 1, nil
}

// ReadSE reads a signed Exp-Golomb coded value, mapping the underlying
// unsigned code u as: 0->0, 1->+1, 2->-1, 3->+2, 4->-2, ...
// i.e. se = (-1)^(u+1) * ceil(u/2).
func (r *Reader) ReadSE() (int32, error) {
	u, err := r.ReadUE()
	if err != nil {
		return 0, err
	}
	half := int32((u + 1) / 2)
	if u%2 == 1 {
		return half, nil
	}
	return -half, nil
}

// ByteAligned reports whether the cursor currently sits on a byte boundary.
func (r *Reader) ByteAligned() bool {
	return r.bitsLeft == 0
}
