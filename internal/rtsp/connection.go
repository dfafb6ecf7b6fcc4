package rtsp

import (
	"bufio"
	"net"
	"sync"
	"time"

	"github.com/lanikai/rtspd/internal/h26x"
	"github.com/lanikai/rtspd/internal/rtp"
)

// Interleaved framing constants. See RFC 2326 section 10.12: every RTP
// packet sent on the control connection is prefixed with a magic byte, a
// channel number (always 0: this server has exactly one track), and a
// 16-bit big-endian length counting the RTP header and payload only.
const (
	interleavedMagic   = 0x24
	interleavedChannel = 0x00
)

// pollInterval is how often the streaming goroutine checks the session's
// signal channel while playing, and the crude frame pacer for 25 fps
// content (spec section 5: "a ~40 ms timeout").
const pollInterval = 40 * time.Millisecond

// Source describes where a connection's video comes from and how to
// packetize it. The server builds one for each accepted connection; the
// only resource it opens is a fresh *os.File-like reader, so NewIterator
// is a factory rather than a stored iterator.
type Source struct {
	ParameterSet h26x.ParameterSet
	PayloadType  byte
	ClockRate    uint32
	FPS          uint32

	// NewIterator returns a fresh NAL unit iterator reading from the
	// beginning of the stream's file. The streaming goroutine calls it
	// once, when the connection's first PLAY arrives.
	NewIterator func() (*h26x.Iterator, func() error, error)
}

// Connection owns one accepted TCP socket: a control goroutine that reads
// and dispatches RTSP requests, a streaming goroutine that waits for the
// play signal and then pushes RTP packets, and a dedicated writer goroutine
// that serializes everything either of them sends onto the socket (spec
// section 9's "dedicated writer task with an inbound message queue", the
// cleaner alternative to a writer mutex called out in the design notes).
type Connection struct {
	conn net.Conn
	w    *writer

	source  Source
	session *Session
	router  *Router
}

// NewConnection wraps an accepted socket with a session built from source
// and a router using creds/realm and the local/remote addressing needed for
// SDP and RTP-Info.
func NewConnection(conn net.Conn, source Source, creds Credentials, realm, sdp string) *Connection {
	session := NewSession(source.ParameterSet, source.PayloadType, rtpSSRC, source.ClockRate, source.FPS)
	auth := NewAuthenticator(creds, realm)
	router := NewRouter(auth, session, conn.LocalAddr().String(), sdp)

	return &Connection{
		conn:    conn,
		w:       newWriter(conn),
		source:  source,
		session: session,
		router:  router,
	}
}

// Serve runs the connection's control loop until the client disconnects or
// sends a fatal request (spec section 7). It spawns the streaming
// goroutine and waits for both to finish before returning.
func (c *Connection) Serve() {
	defer c.conn.Close()
	defer c.w.close()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.stream()
	}()

	c.control()

	// Unblock the streaming goroutine if it is still waiting on the
	// initial play signal (client disconnected before PLAY).
	select {
	case c.session.Signal <- false:
	default:
	}
	wg.Wait()
}

// control is the control thread: a blocking read loop over RTSP requests.
// It suspends on socket reads and exits when the read returns EOF or error.
func (c *Connection) control() {
	r := bufio.NewReader(c.conn)
	for {
		req, err := ReadRequest(r)
		if err != nil {
			log.Debug("rtsp: control read ended: %v", err)
			return
		}

		cseq, _ := req.Header("CSeq")
		log.Info("rtsp: %s (CSeq %s)", req.Method, cseq)

		resp, keepOpen := c.router.Route(req)
		if resp == nil {
			if !keepOpen {
				// Failed authentication or an unimplemented method: drop
				// the connection, per spec section 4.9 / section 7.
				return
			}
			// Request failed silently (e.g. missing CSeq): no response
			// to send, connection stays open for the next request.
			continue
		}

		if err := c.w.write(resp.Bytes()); err != nil {
			log.Warn("rtsp: control write failed: %v", err)
			return
		}
	}
}

// stream is the streaming thread: it blocks on the session's initial play
// signal, then iterates the video source's NAL units, polling the signal
// channel every pollInterval and breaking on a received false.
func (c *Connection) stream() {
	play, ok := <-c.session.Signal
	if !ok || !play {
		return
	}
	log.Info("rtsp: session %s starting stream", c.session.ID)

	it, closeSrc, err := c.source.NewIterator()
	if err != nil {
		log.Error("rtsp: failed to open video source: %v", err)
		return
	}
	defer closeSrc()

	for {
		nalu, ok := it.Next()
		if !ok {
			log.Info("rtsp: session %s source exhausted", c.session.ID)
			return
		}

		select {
		case play := <-c.session.Signal:
			if !play {
				log.Info("rtsp: session %s stopped", c.session.ID)
				return
			}
		case <-time.After(pollInterval):
		}

		packets, err := c.session.Packetize(nalu)
		if err != nil {
			log.Error("rtsp: packetize failed: %v", err)
			return
		}
		for _, pkt := range packets {
			if err := c.writeInterleaved(pkt); err != nil {
				log.Warn("rtsp: streaming write failed, stopping: %v", err)
				return
			}
		}
	}
}

// writeInterleaved frames pkt per RFC 2326 section 10.12 and enqueues it on
// the connection's writer goroutine.
func (c *Connection) writeInterleaved(pkt rtp.Packet) error {
	payload := pkt.Marshal()
	frame := make([]byte, 4+len(payload))
	frame[0] = interleavedMagic
	frame[1] = interleavedChannel
	frame[2] = byte(len(payload) >> 8)
	frame[3] = byte(len(payload))
	copy(frame[4:], payload)
	return c.w.write(frame)
}
