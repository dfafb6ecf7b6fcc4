package rtsp

import (
	"fmt"
)

// UserAgent is the value this server sets on every response, per spec
// section 4.9 ("all echo CSeq and set User-Agent: rtsp-server"). The source
// this server is modeled on is inconsistent here — some handlers send
// "rtsp-server", DESCRIBE alone sends "rust rtsp-server" — this server
// standardizes on the value spec.md states.
const UserAgent = "rtsp-server"

// SupportedMethods lists the methods OPTIONS advertises.
const SupportedMethods = "OPTIONS, DESCRIBE, SETUP, TEARDOWN, PLAY"

// rtpSSRC is the fixed synchronization source identifier this server
// stamps on every RTP packet and echoes in the SETUP response's Transport
// header: 0x00BC614E, 12345678 decimal (spec section 6).
const rtpSSRC = 0x00BC614E

// Router dispatches an authenticated RTSP request to the handler for its
// method, and enforces authentication for every method but OPTIONS. It
// holds one Authenticator and Session per connection: this server supports
// exactly one track on exactly one session per TCP connection.
type Router struct {
	auth    *Authenticator
	session *Session
	host    string // host:port this server is reachable at, for RTP-Info
	sdp     string // DESCRIBE response body, built once at connection setup
}

// NewRouter returns a Router serving sdp as the DESCRIBE body and host as
// the address embedded in PLAY's RTP-Info header.
func NewRouter(auth *Authenticator, session *Session, host, sdp string) *Router {
	return &Router{auth: auth, session: session, host: host, sdp: sdp}
}

// Route handles a single request and returns the response to send. resp is
// nil either when the request failed silently (keepOpen true: spec section
// 7, e.g. a request with no CSeq to echo — logged, no response sent, the
// connection stays open for the next request) or when the connection
// should be dropped outright (keepOpen false: failed authentication, an
// unimplemented or unknown method; see spec sections 4.9 and 7).
func (rt *Router) Route(req *Request) (resp *Response, keepOpen bool) {
	cseq, ok := req.Header("CSeq")
	if !ok {
		log.Warn("rtsp: %s missing CSeq, failing request silently", req.Method)
		return nil, true
	}

	if req.Method != MethodOptions {
		authz, ok := req.Header("Authorization")
		if !ok {
			log.Warn("rtsp: %s unauthenticated, challenging", req.Method)
			return NewResponse(401).
				SetHeader("CSeq", cseq).
				SetHeader("WWW-Authenticate", rt.auth.Challenge()), true
		}
		if !rt.auth.Validate(authz, string(req.Method), req.URL) {
			log.Warn("rtsp: %s failed authentication, dropping connection", req.Method)
			return nil, false
		}
	}

	switch req.Method {
	case MethodOptions:
		return rt.handleOptions(cseq), true
	case MethodDescribe:
		return rt.handleDescribe(cseq), true
	case MethodSetup:
		return rt.handleSetup(req, cseq), true
	case MethodPlay:
		return rt.handlePlay(req, cseq), true
	case MethodTeardown:
		return rt.handleTeardown(cseq), true
	case MethodAnnounce, MethodPause:
		// Unimplemented: fatal per spec section 7's error taxonomy.
		log.Error("rtsp: unimplemented method %s, dropping connection", req.Method)
		return nil, false
	default:
		log.Error("rtsp: unknown method %q, dropping connection", req.Method)
		return nil, false
	}
}

func (rt *Router) handleOptions(cseq string) *Response {
	return NewResponse(200).
		SetHeader("CSeq", cseq).
		SetHeader("User-Agent", UserAgent).
		SetHeader("Public", SupportedMethods)
}

func (rt *Router) handleDescribe(cseq string) *Response {
	rt.session.SetState(StateReady)
	resp := NewResponse(200).
		SetHeader("CSeq", cseq).
		SetHeader("User-Agent", UserAgent).
		SetHeader("Content-Type", "application/sdp")
	resp.Body = []byte(rt.sdp)
	return resp
}

func (rt *Router) handleSetup(req *Request, cseq string) *Response {
	resp := NewResponse(200).
		SetHeader("CSeq", cseq).
		SetHeader("User-Agent", UserAgent)

	sessionHeader := rt.session.ID + ";timeout=60"
	if existing, ok := req.Header("Session"); ok {
		sessionHeader = existing + ";timeout=60"
	}
	resp.SetHeader("Session", sessionHeader)

	transport, _ := req.Header("Transport")
	resp.SetHeader("Transport", fmt.Sprintf("%s;ssrc=%d", transport, rtpSSRC))

	rt.session.SetState(StateReady)
	return resp
}

func (rt *Router) handlePlay(req *Request, cseq string) *Response {
	session, _ := req.Header("Session")
	resp := NewResponse(200).
		SetHeader("CSeq", cseq).
		SetHeader("User-Agent", UserAgent).
		SetHeader("Session", session).
		SetHeader("RTP-Info", fmt.Sprintf("url=rtsp://%s/track0;seq=0;rtptime=0", rt.host)).
		SetHeader("Range", "npt=0.000-").
		SetHeader("Scale", "1.000").
		SetHeader("Cache-Control", "no-cache")

	rt.session.Play()
	return resp
}

func (rt *Router) handleTeardown(cseq string) *Response {
	resp := NewResponse(200).
		SetHeader("CSeq", cseq).
		SetHeader("User-Agent", UserAgent).
		SetHeader("Session", rt.session.ID)

	rt.session.Teardown()
	return resp
}
