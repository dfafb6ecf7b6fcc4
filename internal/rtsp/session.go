package rtsp

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"sync"

	"github.com/lanikai/rtspd/internal/h26x"
	"github.com/lanikai/rtspd/internal/rtp"
)

// State is a session's position in the RTSP state machine (spec section
// 4.11):
//
//	INIT --OPTIONS--> INIT
//	INIT --DESCRIBE--> READY
//	READY --SETUP--> READY        (may repeat per track)
//	READY --PLAY--> PLAYING       (emit signal=true)
//	PLAYING --TEARDOWN--> CLOSED  (emit signal=false)
//	READY --TEARDOWN--> CLOSED
//
// PAUSE is not implemented: the router drops the connection on a PAUSE
// request. SetState does not validate transitions; DESCRIBE and SETUP move
// the session to READY from whatever state it is in.
type State int

const (
	StateInit State = iota
	StateReady
	StatePlaying
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateReady:
		return "READY"
	case StatePlaying:
		return "PLAYING"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Session is the server-side state for one RTSP client: its state-machine
// position, its video source's parameter sets, and the packetizer used to
// turn that source's NAL units into RTP packets. The session mutex guards
// every field the control and streaming goroutines share, per spec section
// 5 ("the session object... is guarded by a mutex covering every access").
type Session struct {
	ID string

	mu         sync.Mutex
	state      State
	packetizer *rtp.Packetizer

	Codec h26x.Codec
	VPS   h26x.NALU
	SPS   h26x.NALU
	PPS   h26x.NALU

	// Signal carries the play/stop instruction from the control thread
	// (PLAY sends true, TEARDOWN sends false) to the streaming thread. A
	// single slot is enough: PLAY and TEARDOWN are never sent concurrently
	// for one session, and the streaming loop drains it on every poll.
	Signal chan bool
}

// NewSession returns a new session in state INIT with a fresh 10-digit
// decimal session ID.
func NewSession(ps h26x.ParameterSet, payloadType byte, ssrc, clockRate, fps uint32) *Session {
	return &Session{
		ID:         generateSessionID(),
		state:      StateInit,
		packetizer: rtp.NewPacketizer(ps.Codec, ssrc, payloadType, clockRate, fps),
		Codec:      ps.Codec,
		VPS:        ps.VPS,
		SPS:        ps.SPS,
		PPS:        ps.PPS,
		Signal:     make(chan bool, 1),
	}
}

// generateSessionID returns a random 10-digit decimal string, matching the
// format the source generates (see media/src/session.rs Session::new).
func generateSessionID() string {
	const digits = 10
	max := new(big.Int).Exp(big.NewInt(10), big.NewInt(digits), nil)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		panic(fmt.Sprintf("rtsp: failed to generate session ID: %v", err))
	}
	return fmt.Sprintf("%0*d", digits, n)
}

// State returns the session's current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SetState transitions the session to st.
func (s *Session) SetState(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	log.Debug("rtsp: session %s %s -> %s", s.ID, s.state, st)
	s.state = st
}

// Packetize converts nalu into RTP packets using this session's packetizer,
// serialized by the session mutex (see spec section 5: "the packetizer's
// sequence_number, timestamp, and marker" are part of the guarded state).
func (s *Session) Packetize(nalu h26x.NALU) ([]rtp.Packet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.packetizer.Packetize(nalu)
}

// Play signals the streaming thread to begin sending RTP packets and moves
// the session to PLAYING.
func (s *Session) Play() {
	s.SetState(StatePlaying)
	s.Signal <- true
}

// Teardown signals the streaming thread to stop and moves the session to
// CLOSED.
func (s *Session) Teardown() {
	s.SetState(StateClosed)
	s.Signal <- false
}
