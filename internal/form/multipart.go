// Package form encodes field mappings as multipart/form-data or
// application/x-www-form-urlencoded bodies.
package form

import (
	"bytes"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Part is one field of a multipart body. Exactly one of Value and File is
// used: File when it is non-nil.
type Part struct {
	Name        string
	Value       string
	Filename    string
	ContentType string
	File        io.Reader
	Size        int64 // length of File, < 0 if unknown
}

// Multipart lays out parts as
//
//	--<boundary>\r\n
//	Content-Disposition: form-data; name="<name>"[; filename="<filename>"]\r\n
//	[Content-Type: <type>\r\n]
//	\r\n
//	<value>\r\n
//
// followed by --<boundary>--\r\n.
type Multipart struct {
	Boundary string
	Parts    []Part
}

// NewBoundary returns a random hex token.
func NewBoundary() string {
	u := uuid.New()
	return strings.ReplaceAll(u.String(), "-", "")
}

// NewMultipart generates a boundary when none is given.
func NewMultipart(parts []Part, boundary string) *Multipart {
	if boundary == "" {
		boundary = NewBoundary()
	}
	return &Multipart{Boundary: boundary, Parts: parts}
}

func (m *Multipart) ContentType() string {
	return "multipart/form-data; boundary=" + m.Boundary
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"", "\r", "%0D", "\n", "%0A")

func (m *Multipart) header(p *Part) []byte {
	var b bytes.Buffer
	b.WriteString("--")
	b.WriteString(m.Boundary)
	b.WriteString("\r\nContent-Disposition: form-data; name=\"")
	b.WriteString(quoteEscaper.Replace(p.Name))
	b.WriteByte('"')
	if p.File != nil && p.Filename != "" {
		b.WriteString("; filename=\"")
		b.WriteString(quoteEscaper.Replace(p.Filename))
		b.WriteByte('"')
	}
	b.WriteString("\r\n")
	ct := p.ContentType
	if ct == "" && p.File != nil {
		ct = "application/octet-stream"
	}
	if ct != "" {
		b.WriteString("Content-Type: ")
		b.WriteString(ct)
		b.WriteString("\r\n")
	}
	b.WriteString("\r\n")
	return b.Bytes()
}

func (m *Multipart) trailer() string {
	return "--" + m.Boundary + "--\r\n"
}

// Size is the encoded length, or -1 when a file part has an unknown length.
func (m *Multipart) Size() int64 {
	total := int64(len(m.trailer()))
	for i := range m.Parts {
		p := &m.Parts[i]
		total += int64(len(m.header(p))) + 2
		if p.File == nil {
			total += int64(len(p.Value))
			continue
		}
		if p.Size < 0 {
			return -1
		}
		total += p.Size
	}
	return total
}

// Reader streams the encoded body. Files are read lazily, so the reader can
// only be consumed once.
func (m *Multipart) Reader() io.Reader {
	readers := make([]io.Reader, 0, len(m.Parts)*3+1)
	for i := range m.Parts {
		p := &m.Parts[i]
		readers = append(readers, bytes.NewReader(m.header(p)))
		if p.File != nil {
			r := p.File
			if p.Size >= 0 {
				r = &exactReader{r: r, n: p.Size}
			}
			readers = append(readers, r)
		} else {
			readers = append(readers, strings.NewReader(p.Value))
		}
		readers = append(readers, strings.NewReader("\r\n"))
	}
	readers = append(readers, strings.NewReader(m.trailer()))
	return io.MultiReader(readers...)
}

// Bytes encodes the whole body in memory.
func (m *Multipart) Bytes() ([]byte, error) {
	var b bytes.Buffer
	if size := m.Size(); size > 0 {
		b.Grow(int(size))
	}
	if _, err := io.Copy(&b, m.Reader()); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

// exactReader keeps an announced file length honest: the Content-Length was
// computed from it, so a short file is an error rather than a hung request.
type exactReader struct {
	r io.Reader
	n int64
}

func (e *exactReader) Read(p []byte) (int, error) {
	if e.n <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > e.n {
		p = p[:e.n]
	}
	n, err := e.r.Read(p)
	e.n -= int64(n)
	if err == io.EOF {
		if e.n > 0 {
			return n, &SizeError{Missing: e.n}
		}
		err = nil
	}
	return n, err
}

// SizeError is returned when a file part ends before its announced size.
type SizeError struct {
	Missing int64
}

func (e *SizeError) Error() string {
	return "form: file part is " + strconv.FormatInt(e.Missing, 10) + " bytes shorter than announced"
}
