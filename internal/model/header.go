package model

import "strings"

type Field struct {
	Name, Value string
}

// Header is an ordered list of request header fields. Lookups ignore case,
// but names are written on the wire exactly as they were added.
type Header []Field

// H builds a Header from name/value pairs: H("Accept", "*/*", "X-A", "1").
func H(kv ...string) Header {
	h := make(Header, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		h = append(h, Field{kv[i], kv[i+1]})
	}
	return h
}

func (h Header) Get(name string) string {
	for _, f := range h {
		if strings.EqualFold(f.Name, name) {
			return f.Value
		}
	}
	return ""
}

func (h Header) Values(name string) []string {
	var vs []string
	for _, f := range h {
		if strings.EqualFold(f.Name, name) {
			vs = append(vs, f.Value)
		}
	}
	return vs
}

func (h Header) Has(name string) bool {
	for _, f := range h {
		if strings.EqualFold(f.Name, name) {
			return true
		}
	}
	return false
}

func (h *Header) Add(name, value string) {
	*h = append(*h, Field{name, value})
}

// Set replaces the first field called name in place and drops the others,
// or appends a new field.
func (h *Header) Set(name, value string) {
	out := (*h)[:0]
	found := false
	for _, f := range *h {
		if strings.EqualFold(f.Name, name) {
			if found {
				continue
			}
			found = true
			f.Value = value
		}
		out = append(out, f)
	}
	if !found {
		out = append(out, Field{name, value})
	}
	*h = out
}

func (h *Header) Del(name string) {
	out := (*h)[:0]
	for _, f := range *h {
		if !strings.EqualFold(f.Name, name) {
			out = append(out, f)
		}
	}
	*h = out
}

func (h Header) Clone() Header {
	if h == nil {
		return nil
	}
	return append(make(Header, 0, len(h)), h...)
}

// Keys lists the distinct names, first spelling wins. Together with Get and
// Set this makes *Header a propagation.TextMapCarrier.
func (h Header) Keys() []string {
	keys := make([]string, 0, len(h))
	for i, f := range h {
		if !h[:i].Has(f.Name) {
			keys = append(keys, f.Name)
		}
	}
	return keys
}
