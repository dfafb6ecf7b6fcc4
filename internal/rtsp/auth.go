package rtsp

import (
	"crypto/md5"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
)

// Realm is the literal realm string this server presents in Digest
// challenges and validates responses against.
const Realm = "rust rtsp-server"

// Credentials are the single configured user this server authenticates
// against. Neither Basic nor Digest support multiple users or a user
// database; both compare against these fields directly.
type Credentials struct {
	Username string
	Password string
}

// Authenticator validates the Authorization header of a non-OPTIONS
// request. See RFC 2617.
type Authenticator struct {
	creds Credentials
	realm string
	nonce string
}

// NewAuthenticator returns an Authenticator for creds with a freshly
// generated nonce. An empty realm defaults to Realm.
func NewAuthenticator(creds Credentials, realm string) *Authenticator {
	if realm == "" {
		realm = Realm
	}
	return &Authenticator{creds: creds, realm: realm, nonce: generateNonce()}
}

// Challenge returns the WWW-Authenticate header value for a 401 response,
// regenerating the nonce (nonces are single-use in this server: the next
// attempt gets a fresh one rather than a "stale=true" reattempt of the
// same value).
func (a *Authenticator) Challenge() string {
	a.nonce = generateNonce()
	return fmt.Sprintf(`Digest realm="%s", nonce="%s", algorithm="MD5"`, a.realm, a.nonce)
}

// generateNonce returns a 64-bit random value rendered as lowercase hex.
func generateNonce() string {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand.Read does not fail on any platform Go supports; panic
		// rather than silently handing out a predictable nonce.
		panic(fmt.Sprintf("rtsp: failed to generate nonce: %v", err))
	}
	return hex.EncodeToString(buf[:])
}

// Validate checks the Authorization header value of method/uri against the
// configured credentials. It recognizes both the Basic and Digest schemes
// by the header's prefix.
func (a *Authenticator) Validate(authorization, method, uri string) bool {
	switch {
	case strings.HasPrefix(authorization, "Basic "):
		return a.validateBasic(strings.TrimPrefix(authorization, "Basic "))
	case strings.HasPrefix(authorization, "Digest "):
		return a.validateDigest(strings.TrimPrefix(authorization, "Digest "), method, uri)
	default:
		return false
	}
}

func (a *Authenticator) validateBasic(encoded string) bool {
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return false
	}
	user, pass, ok := strings.Cut(string(decoded), ":")
	if !ok {
		return false
	}
	return user == a.creds.Username && pass == a.creds.Password
}

// validateDigest implements the MD5 digest defined by RFC 2617 section 3.2.2.1:
//
//	HA1 = md5(username:realm:password)
//	HA2 = md5(method:uri)
//	response = md5(HA1:nonce:HA2)
//
// No qop/cnonce/nc support: this server only ever issues "algorithm=MD5"
// challenges without a qop directive.
func (a *Authenticator) validateDigest(params, method, uri string) bool {
	fields := parseDigestParams(params)

	if fields["username"] != a.creds.Username {
		return false
	}
	if fields["nonce"] != a.nonce {
		return false
	}
	// The client echoes back the uri it requested; use that (not the
	// request line's URL) so proxies that rewrite the request line don't
	// break an otherwise-valid response.
	clientURI := fields["uri"]
	if clientURI == "" {
		clientURI = uri
	}

	ha1 := md5Hex(a.creds.Username + ":" + a.realm + ":" + a.creds.Password)
	ha2 := md5Hex(method + ":" + clientURI)
	want := md5Hex(ha1 + ":" + a.nonce + ":" + ha2)

	return strings.EqualFold(want, fields["response"])
}

func md5Hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

// parseDigestParams splits a comma-separated list of key=value pairs,
// trimming optional surrounding quotes and whitespace from each value.
func parseDigestParams(s string) map[string]string {
	out := make(map[string]string)
	for _, part := range strings.Split(s, ",") {
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		value = strings.Trim(value, `"`)
		out[key] = value
	}
	return out
}
