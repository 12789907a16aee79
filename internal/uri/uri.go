// Package uri contains the small URL helpers the client and the resource
// facade share.
package uri

import (
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/idna"
)

var defaultPorts = map[string]string{
	"http": "80", "https": "443",
}

// Join appends path segments to base with exactly one slash between each
// part, keeping a trailing slash of the last segment:
//
//	Join("http://localhost", "test/echo/") == "http://localhost/test/echo/"
func Join(base string, parts ...string) string {
	out := strings.TrimRight(base, "/")
	if len(parts) == 0 {
		return out + "/"
	}
	for i, p := range parts {
		if p == "" {
			continue
		}
		trailing := i == len(parts)-1 && strings.HasSuffix(p, "/")
		p = strings.Trim(p, "/")
		if p != "" {
			out += "/" + p
		}
		if trailing {
			out += "/"
		}
	}
	if i := strings.Index(out, "://"); i >= 0 && !strings.Contains(out[i+3:], "/") {
		out += "/"
	}
	return out
}

// AddQuery appends params to the query of rawURL. The existing query is
// kept byte for byte.
func AddQuery(rawURL string, params url.Values) (string, error) {
	if len(params) == 0 {
		return rawURL, nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	if u.RawQuery == "" {
		u.RawQuery = params.Encode()
	} else {
		u.RawQuery += "&" + params.Encode()
	}
	return u.String(), nil
}

// HostPort splits the authority of u into an ASCII host and a port, filling
// in the default port of the scheme.
func HostPort(u *url.URL) (host, port string, err error) {
	host, port = u.Hostname(), u.Port()
	if port == "" {
		port = defaultPorts[u.Scheme]
	}
	host, err = ASCIIHost(host)
	return
}

// ASCIIHost converts an internationalized host name to its punycode form.
// IP literals are returned unchanged.
func ASCIIHost(host string) (string, error) {
	if net.ParseIP(host) != nil {
		return host, nil
	}
	for i := 0; i < len(host); i++ {
		if host[i] >= 0x80 {
			return idna.Lookup.ToASCII(host)
		}
	}
	return host, nil
}

// Authority returns the value for the Host header of u.
func Authority(u *url.URL) (string, error) {
	host, err := ASCIIHost(u.Hostname())
	if err != nil {
		return "", err
	}
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	if p := u.Port(); p != "" {
		host += ":" + p
	}
	return host, nil
}
