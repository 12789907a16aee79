// package transport contains implementations to requirements on *message syntaxes*
// defined by http related RFCs.
//
// as of 2022.06, RFCs that were to define HTTP/1.1 (RFC723x) are obsoleted by:
//
//	HTTP Semantics (RFC9110)
//	HTTP Caching (RFC9111) and
//	HTTP/1.1 (RFC9112)
//
// only the HTTP/1.1 message syntax is implemented, one request at a time per
// connection. framing of request bodies (Content-Length or chunked) is decided
// when the request is prepared, framing of response bodies follows RFC9112
// section 6.3.
//
// net/http components are reused on the "semantics" part ([net/http.Header],
// [net/textproto.Reader], etc.)

package transport
