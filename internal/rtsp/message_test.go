package rtsp

import (
	"bufio"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadRequestBasic(t *testing.T) {
	raw := "OPTIONS rtsp://host:5544/ RTSP/1.0\r\nCSeq: 1\r\n\r\n"
	req, err := ReadRequest(bufio.NewReader(strings.NewReader(raw)))
	require.NoError(t, err)

	assert.Equal(t, MethodOptions, req.Method)
	assert.Equal(t, "rtsp://host:5544/", req.URL)
	assert.Equal(t, "RTSP/1.0", req.Version)

	cseq, ok := req.Header("CSeq")
	require.True(t, ok)
	assert.Equal(t, "1", cseq)
}

func TestReadRequestHeaderLookupCaseInsensitive(t *testing.T) {
	raw := "DESCRIBE rtsp://host/ RTSP/1.0\r\ncseq: 2\r\nUSER-AGENT: foo\r\n\r\n"
	req, err := ReadRequest(bufio.NewReader(strings.NewReader(raw)))
	require.NoError(t, err)

	v, ok := req.Header("CSeq")
	require.True(t, ok)
	assert.Equal(t, "2", v)

	v, ok = req.Header("User-Agent")
	require.True(t, ok)
	assert.Equal(t, "foo", v)
}

func TestReadRequestWithBody(t *testing.T) {
	raw := "ANNOUNCE rtsp://host/ RTSP/1.0\r\nCSeq: 3\r\nContent-Length: 5\r\n\r\nhello"
	req, err := ReadRequest(bufio.NewReader(strings.NewReader(raw)))
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), req.Body)
}

func TestReadRequestMalformedRequestLine(t *testing.T) {
	raw := "GARBAGE\r\n\r\n"
	_, err := ReadRequest(bufio.NewReader(strings.NewReader(raw)))
	assert.Error(t, err)
}

func TestResponseBytesOptions(t *testing.T) {
	resp := NewResponse(200).
		SetHeader("CSeq", "1").
		SetHeader("User-Agent", "rtsp-server").
		SetHeader("Public", "OPTIONS, DESCRIBE, SETUP, TEARDOWN, PLAY")

	want := "RTSP/1.0 200 OK\r\n" +
		"CSeq: 1\r\n" +
		"User-Agent: rtsp-server\r\n" +
		"Public: OPTIONS, DESCRIBE, SETUP, TEARDOWN, PLAY\r\n" +
		"\r\n"
	assert.Equal(t, want, string(resp.Bytes()))
}

func TestResponseBytesInjectsContentLengthBeforeBlankLine(t *testing.T) {
	resp := NewResponse(200).
		SetHeader("CSeq", "2").
		SetHeader("Content-Type", "application/sdp")
	resp.Body = []byte("v=0\r\n")

	got := string(resp.Bytes())
	assert.Contains(t, got, "Content-Type: application/sdp\r\nContent-Length: 5\r\n\r\nv=0\r\n")
}

// Invariant 5 (spec section 8): serializing then parsing a response round
// trips its status code, headers in insertion order, and body.
func TestResponseRoundTrip(t *testing.T) {
	resp := NewResponse(200).
		SetHeader("CSeq", "4").
		SetHeader("Session", "1234567890;timeout=60").
		SetHeader("Content-Type", "application/sdp")
	resp.Body = []byte("v=0\r\no=- 1 0 IN IP4 0.0.0.0\r\n")

	parsed, err := ReadResponse(bufio.NewReader(strings.NewReader(string(resp.Bytes()))))
	require.NoError(t, err)

	assert.Equal(t, resp.StatusCode, parsed.StatusCode)
	assert.Equal(t, resp.Body, parsed.Body)

	for _, h := range resp.headers {
		v, ok := parsed.Header(h.Key)
		require.True(t, ok)
		assert.Equal(t, h.Value, v)
	}
	// Order survives too.
	require.Len(t, parsed.headers, len(resp.headers)+1) // +1 for Content-Length
	for i, h := range resp.headers {
		assert.Equal(t, h.Key, parsed.headers[i].Key)
	}
}
