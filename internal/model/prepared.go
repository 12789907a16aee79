package model

import (
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"

	"golang.org/x/net/http/httpguts"

	"github.com/frankli0324/go-restkit/internal/config"
	"github.com/frankli0324/go-restkit/internal/form"
	"github.com/frankli0324/go-restkit/internal/uri"
)

var (
	// ErrBodyConsumed is returned when a single-pass body is asked for twice.
	ErrBodyConsumed = errors.New("request body already consumed")
	// ErrNotReplayable is returned by Redirect when a 307/308 would need to
	// send a single-pass body again.
	ErrNotReplayable = errors.New("request body cannot be sent again")
)

type PreparedRequest struct {
	*Request

	// U carries neither credentials nor a fragment.
	U          *url.URL
	Header     Header
	HeaderHost string

	// ContentLength is -1 when the body is sent chunked or there is none.
	ContentLength int64
	Chunked       bool

	body       Body // Empty, Bytes, *Stream or Chunks
	replayable bool
	consumed   atomic.Bool
}

func (r *Request) Prepare() (*PreparedRequest, error) {
	u, err := url.Parse(r.URL)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported protocol scheme %q", u.Scheme)
	}
	req := r
	if req.Method == "" {
		cp := *r
		cp.Method = http.MethodGet
		req = &cp
	}

	headers := r.Header.Clone()
	host := ""
	cl := int64(-1)
	chunked := r.Chunked
	// user defined headers has higher priority
	for _, f := range headers {
		if !httpguts.ValidHeaderFieldName(f.Name) {
			return nil, fmt.Errorf("invalid header field name %q", f.Name)
		}
		if !httpguts.ValidHeaderFieldValue(f.Value) {
			return nil, fmt.Errorf("invalid header field value for %q", f.Name)
		}
		switch strings.ToLower(f.Name) {
		case "host":
			if host == "" {
				host = f.Value
			}
		case "content-length":
			v, err := strconv.ParseInt(strings.TrimSpace(f.Value), 10, 64)
			if err != nil || v < 0 {
				return nil, fmt.Errorf("invalid Content-Length request header %q", f.Value)
			}
			cl = v
		case "transfer-encoding":
			if strings.Contains(strings.ToLower(f.Value), "chunked") {
				chunked = true
			}
		}
	}
	headers.Del("Host")
	headers.Del("Content-Length")
	headers.Del("Transfer-Encoding")

	if err := applyCredentials(u, &headers); err != nil {
		return nil, err
	}
	u.Fragment, u.RawFragment = "", ""
	if host == "" {
		if host, err = uri.Authority(u); err != nil {
			return nil, err
		}
	}
	if host == "" {
		return nil, url.InvalidHostError("empty host")
	}

	pr := &PreparedRequest{
		Request: req, U: u,
		Header: headers, HeaderHost: host,
		ContentLength: -1, Chunked: chunked,
	}
	if err := pr.updateBody(cl); err != nil {
		return nil, err
	}
	return pr, nil
}

// applyCredentials turns user:pass@ of the URL into a Basic Authorization
// header, unless one was set explicitly, and strips them from the URL.
func applyCredentials(u *url.URL, h *Header) error {
	if u.User == nil {
		return nil
	}
	if !h.Has("Authorization") {
		pass, _ := u.User.Password()
		h.Add("Authorization", BasicAuth(u.User.Username(), pass))
	}
	u.User = nil
	return nil
}

// BasicAuth is the Authorization header value for username and password.
func BasicAuth(username, password string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(username+":"+password))
}

func methodWantsBody(m string) bool {
	return m == http.MethodPost || m == http.MethodPut || m == http.MethodPatch
}

// should only be called once at [Prepare]. declared is the Content-Length
// the caller supplied, -1 if none.
func (r *PreparedRequest) updateBody(declared int64) error {
	size := int64(-1)
	switch b := r.Request.Body.(type) {
	case nil, Empty:
		r.body, r.replayable = Empty{}, true
		if methodWantsBody(r.Method) || declared >= 0 {
			size = 0
		}
	case Bytes:
		r.body, r.replayable = b, true
		size = int64(len(b))
	case *Stream:
		if b == nil || b.R == nil {
			r.body, r.replayable = Empty{}, true
			size = 0
			break
		}
		r.body, size = b, b.Size
		if size < 0 {
			size = declared
		}
	case Chunks:
		r.body, size = b, declared
	case *Form:
		var err error
		if size, err = r.updateForm(b); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported body type: %T", r.Request.Body)
	}

	if declared != -1 && size != -1 && declared != size {
		return errors.New("conflicting value between body size and content-length request header")
	}
	if r.Chunked {
		return nil
	}
	if size < 0 {
		if _, empty := r.body.(Empty); !empty {
			r.Chunked = true
		}
		return nil
	}
	r.ContentLength = size
	return nil
}

func (r *PreparedRequest) updateForm(f *Form) (int64, error) {
	ct := r.Header.Get("Content-Type")
	mediaType, params, _ := mime.ParseMediaType(ct)
	if !f.Multipart && !f.hasFiles() && mediaType != "multipart/form-data" {
		enc := Bytes(form.URLEncode(f.pairs()))
		if ct == "" {
			r.Header.Set("Content-Type", form.URLEncodedType)
		}
		r.body, r.replayable = enc, true
		return int64(len(enc)), nil
	}

	boundary := f.Boundary
	if boundary == "" {
		boundary = params["boundary"]
	}
	m := form.NewMultipart(f.parts(), boundary)
	r.Header.Set("Content-Type", m.ContentType())

	size := m.Size()
	if size >= 0 && size < config.MaxBufferedBody {
		b, err := m.Bytes()
		if err != nil {
			return 0, fmt.Errorf("encoding multipart body: %w", err)
		}
		r.body, r.replayable = Bytes(b), true
		return int64(len(b)), nil
	}
	r.body = &Stream{R: m.Reader(), Size: size}
	return size, nil
}

// GetBody returns the body to write. Single-pass bodies are only handed
// out once.
func (r *PreparedRequest) GetBody() (Body, error) {
	if r.replayable || r.consumed.CompareAndSwap(false, true) {
		return r.body, nil
	}
	return nil, ErrBodyConsumed
}

// Replayable reports whether the body can be written again, for a retry or
// a 307/308 redirect.
func (r *PreparedRequest) Replayable() bool {
	return r.replayable
}

// Redirect prepares the request that follows a 3xx response pointing at
// location. 307 and 308 keep method and body, the others turn into a GET
// without body (a HEAD stays a HEAD).
func (r *PreparedRequest) Redirect(code int, location string) (*PreparedRequest, error) {
	next, err := r.U.Parse(location)
	if err != nil {
		return nil, fmt.Errorf("parsing redirect location %q: %w", location, err)
	}
	req := *r.Request

	nr := &PreparedRequest{
		Request: &req, U: next,
		Header:        r.Header.Clone(),
		ContentLength: r.ContentLength, Chunked: r.Chunked,
		body: r.body, replayable: r.replayable,
	}
	if code == http.StatusTemporaryRedirect || code == http.StatusPermanentRedirect {
		if !r.replayable {
			return nil, ErrNotReplayable
		}
	} else {
		if req.Method != http.MethodHead {
			req.Method = http.MethodGet
		}
		req.Body = Empty{}
		nr.body, nr.replayable = Empty{}, true
		nr.ContentLength, nr.Chunked = -1, false
		nr.Header.Del("Content-Type")
	}

	if next.Hostname() != r.U.Hostname() {
		nr.Header.Del("Authorization")
	}
	if err := applyCredentials(next, &nr.Header); err != nil {
		return nil, err
	}
	next.Fragment, next.RawFragment = "", ""
	req.URL = next.String()
	if nr.HeaderHost, err = uri.Authority(next); err != nil {
		return nil, err
	}
	return nr, nil
}

// URLString is the request URL without credentials.
func (r *PreparedRequest) URLString() string {
	return r.U.String()
}
