package form

import (
	"net/url"
	"strings"
)

const URLEncodedType = "application/x-www-form-urlencoded"

type Pair struct {
	Name, Value string
}

// URLEncode joins pairs in their given order, unlike url.Values.Encode
// which sorts keys.
func URLEncode(pairs []Pair) string {
	var b strings.Builder
	for i, p := range pairs {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p.Name))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.Value))
	}
	return b.String()
}
