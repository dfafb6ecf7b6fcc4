package h26x

import (
	"bytes"
	"io"

	"github.com/lanikai/rtspd/internal/logging"
)

var log = logging.DefaultLogger.WithTag("h26x")

// chunkSize is the amount read from the source file per scan attempt. 512
// KiB comfortably holds the largest NAL units produced by typical encoders
// while keeping the scanner's memory footprint bounded.
const chunkSize = 512 * 1024

// findNALU locates the first start-coded NAL unit within data and returns
// its payload (the bytes between the start code and the next start code, or
// end of data) together with the payload's offset within data. It does not
// look across chunk boundaries: if a NAL unit's end lies beyond the end of
// data, the returned slice simply runs to the end of data.
func findNALU(data []byte) (nalu []byte, offset int, ok bool) {
	start := bytes.Index(data, []byte{0x00, 0x00, 0x01})
	if start < 0 {
		return nil, 0, false
	}
	// The payload begins right after the 01 byte regardless of whether the
	// match was a 3-byte or 4-byte start code (data[start-1]==0x00 in the
	// 4-byte case is just one more leading zero, already skipped by start).
	naluStart := start + 3
	rest := data[naluStart:]
	end := len(rest)
	if next3 := bytes.Index(rest, []byte{0x00, 0x00, 0x01}); next3 >= 0 {
		end = next3
	}
	if next4 := bytes.Index(rest, []byte{0x00, 0x00, 0x00, 0x01}); next4 >= 0 && next4 < end {
		end = next4
	}
	return rest[:end], naluStart, true
}

// Source is a seekable byte source, e.g. *os.File.
type Source interface {
	io.Reader
	io.Seeker
}

// Iterator yields NAL units from an Annex-B elementary stream one at a time.
// It is finite or infinite per construction, and not restartable: a second
// pass requires constructing a new Iterator over a fresh Source.
type Iterator struct {
	src      Source
	buf      []byte
	infinite bool
	done     bool
}

// NewIterator returns a NAL unit iterator over src, starting at its current
// position. If infinite is true, the source rewinds to offset 0 at EOF
// instead of terminating the iteration.
func NewIterator(src Source, infinite bool) *Iterator {
	log.Debug("h26x: NAL iterator created (infinite=%v)", infinite)
	return &Iterator{
		src:      src,
		buf:      make([]byte, chunkSize),
		infinite: infinite,
	}
}

// Next returns the next NAL unit, or (nil, false) when the iterator is
// exhausted (finite mode only; infinite iterators never return false except
// on unrecoverable I/O error).
func (it *Iterator) Next() (NALU, bool) {
	if it.done {
		return nil, false
	}

	for {
		n, err := it.src.Read(it.buf)
		if n == 0 {
			if err == io.EOF || err == nil {
				if it.infinite {
					if _, serr := it.src.Seek(0, io.SeekStart); serr != nil {
						log.Error("h26x: rewind failed: %v", serr)
						it.done = true
						return nil, false
					}
					continue
				}
				it.done = true
				return nil, false
			}
			log.Error("h26x: read failed: %v", err)
			it.done = true
			return nil, false
		}

		data := it.buf[:n]
		nalu, off, ok := findNALU(data)
		if !ok {
			// The chunk is discarded; the next read continues after it.
			log.Warn("h26x: no start code found in %d-byte chunk, continuing", n)
			continue
		}

		log.Debug("h26x: found NAL unit of length %d", len(nalu))

		// Reposition the source to the byte immediately after the returned
		// NAL unit: we consumed n bytes but only want to have consumed the
		// bytes up to the end of the NAL's payload, which ends at
		// off+len(nalu) within data, so seek back by n - (off+len(nalu)).
		out := make([]byte, len(nalu))
		copy(out, nalu)

		delta := int64(off+len(nalu)) - int64(n)
		if _, serr := it.src.Seek(delta, io.SeekCurrent); serr != nil {
			log.Error("h26x: relative seek failed: %v", serr)
			it.done = true
			return NALU(out), false
		}

		return NALU(out), true
	}
}
