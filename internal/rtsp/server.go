package rtsp

import (
	"net"
	"os"

	errors "golang.org/x/xerrors"

	"github.com/lanikai/rtspd/internal/h26x"
	"github.com/lanikai/rtspd/internal/sdp"
)

// Config replaces the hard-coded file path and fps constant the source
// embeds in its launcher (spec section 9, "global mutable launcher
// state"): the per-deployment values live here, built once by the caller
// and passed by value into NewServer. The RTP payload type, clock rate and
// SSRC are package constants, not Config fields.
type Config struct {
	Addr     string // listen address, e.g. ":5544"
	Input    string // path to an Annex-B H.264/H.265 elementary stream
	FPS      uint32
	Loop     bool // loop the input file at EOF
	Username string
	Password string
	Realm    string
}

// Server accepts RTSP connections and serves the single video track
// described by Config.Input.
type Server struct {
	cfg Config
	ps  h26x.ParameterSet
	sdp string
}

// rtpPayloadType and rtpClockRate are fixed by spec section 6: PT 96, clock
// 90000 Hz, for both H.264 and H.265.
const (
	rtpPayloadType = 96
	rtpClockRate   = 90000
)

// NewServer locates the input file's parameter sets and precomputes its SDP
// document. It fails fast if the file has no SPS/PPS (or VPS/SPS/PPS),
// matching spec section 7 ("no SPS/PPS found -> session is Other ->
// treated as fatal session init").
func NewServer(cfg Config) (*Server, error) {
	if cfg.Realm == "" {
		cfg.Realm = Realm
	}

	f, err := os.Open(cfg.Input)
	if err != nil {
		return nil, errors.Errorf("rtsp: open input: %w", err)
	}
	defer f.Close()

	ps, err := h26x.Locate(f)
	if err != nil {
		return nil, errors.Errorf("rtsp: locate parameter sets: %w", err)
	}
	if ps.Codec == h26x.CodecUnknown {
		return nil, errors.New("rtsp: no SPS/PPS (or VPS/SPS/PPS) found in input")
	}

	doc, err := sdp.Build(sdp.BuildParams{
		SessionID:   generateSessionID(),
		Address:     "0.0.0.0",
		Codec:       ps.Codec,
		PayloadType: rtpPayloadType,
		ClockRate:   rtpClockRate,
		SPS:         ps.SPS,
		PPS:         ps.PPS,
		VPS:         ps.VPS,
	})
	if err != nil {
		return nil, errors.Errorf("rtsp: build SDP: %w", err)
	}

	return &Server{cfg: cfg, ps: ps, sdp: doc}, nil
}

// ListenAndServe binds cfg.Addr and accepts connections until listener
// error. Each accepted connection is served on its own control, streaming
// and writer goroutines; see Connection.Serve.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return errors.Errorf("rtsp: listen: %w", err)
	}
	defer ln.Close()

	log.Info("rtsp: listening on %s", s.cfg.Addr)

	for {
		conn, err := ln.Accept()
		if err != nil {
			return errors.Errorf("rtsp: accept: %w", err)
		}
		go s.serve(conn)
	}
}

func (s *Server) serve(netConn net.Conn) {
	log.Info("rtsp: connection from %s", netConn.RemoteAddr())

	source := Source{
		ParameterSet: s.ps,
		PayloadType:  rtpPayloadType,
		ClockRate:    rtpClockRate,
		FPS:          s.cfg.FPS,
		NewIterator: func() (*h26x.Iterator, func() error, error) {
			f, err := os.Open(s.cfg.Input)
			if err != nil {
				return nil, nil, err
			}
			return h26x.NewIterator(f, s.cfg.Loop), f.Close, nil
		},
	}

	creds := Credentials{Username: s.cfg.Username, Password: s.cfg.Password}
	conn := NewConnection(netConn, source, creds, s.cfg.Realm, s.sdp)
	conn.Serve()
}
