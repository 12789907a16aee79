package model

import (
	"io"
	"iter"
	"os"

	"github.com/frankli0324/go-restkit/internal/form"
)

// Body is the payload of a request. It is one of Empty, Bytes, *Stream,
// Chunks or *Form; the writer dispatches on the concrete type, never on
// capabilities of the value.
type Body interface {
	isBody()
}

// Empty is a request without payload.
type Empty struct{}

// Bytes is a fixed payload. Strings convert directly: Bytes("test").
type Bytes []byte

// Stream is a file-like payload read exactly once. Size < 0 means the
// length is unknown and the body goes out chunked.
type Stream struct {
	R    io.Reader
	Size int64
}

// Chunks is a single-pass sequence of byte chunks of unknown total length.
type Chunks iter.Seq[[]byte]

func (Empty) isBody()   {}
func (Bytes) isBody()   {}
func (*Stream) isBody() {}
func (Chunks) isBody()  {}
func (*Form) isBody()   {}

// NewStream wraps r, sniffing its remaining length from Len(), or from
// Stat() and the current offset for files.
func NewStream(r io.Reader) *Stream {
	return &Stream{R: r, Size: sizeOf(r)}
}

// ChunksOf is a convenience for sending a fixed list of chunks as they are.
func ChunksOf(chunks ...[]byte) Chunks {
	return func(yield func([]byte) bool) {
		for _, c := range chunks {
			if !yield(c) {
				return
			}
		}
	}
}

func sizeOf(r io.Reader) int64 {
	switch v := r.(type) {
	case interface{ Len() int }:
		return int64(v.Len())
	case interface{ Stat() (os.FileInfo, error) }:
		fi, err := v.Stat()
		if err != nil || !fi.Mode().IsRegular() {
			return -1
		}
		size := fi.Size()
		if s, ok := r.(io.Seeker); ok {
			off, err := s.Seek(0, io.SeekCurrent)
			if err != nil {
				return -1
			}
			size -= off
		}
		return size
	}
	return -1
}

// Form is an ordered field mapping. It is sent urlencoded unless it holds a
// file or Multipart is set (or the request asks for multipart/form-data).
type Form struct {
	Fields    []FormField
	Multipart bool
	// Boundary overrides the generated multipart boundary.
	Boundary string
}

type FormField struct {
	Name   string
	Values []string
	File   *File
}

// File is a file-like form value. Name becomes the filename of the part.
type File struct {
	Name        string
	ContentType string
	R           io.Reader
	Size        int64
}

// NewFile wraps r, sniffing its length like NewStream does.
func NewFile(name string, r io.Reader) *File {
	return &File{Name: name, R: r, Size: sizeOf(r)}
}

func NewForm() *Form { return &Form{} }

// Add appends a field. Several values produce one part per value, in order.
func (f *Form) Add(name string, values ...string) *Form {
	f.Fields = append(f.Fields, FormField{Name: name, Values: values})
	return f
}

func (f *Form) AddFile(name string, file *File) *Form {
	f.Fields = append(f.Fields, FormField{Name: name, File: file})
	return f
}

func (f *Form) hasFiles() bool {
	for _, fd := range f.Fields {
		if fd.File != nil {
			return true
		}
	}
	return false
}

func (f *Form) parts() []form.Part {
	parts := make([]form.Part, 0, len(f.Fields))
	for _, fd := range f.Fields {
		if fd.File != nil {
			parts = append(parts, form.Part{
				Name: fd.Name, Filename: fd.File.Name, ContentType: fd.File.ContentType,
				File: fd.File.R, Size: fd.File.Size,
			})
			continue
		}
		for _, v := range fd.Values {
			parts = append(parts, form.Part{Name: fd.Name, Value: v})
		}
	}
	return parts
}

func (f *Form) pairs() []form.Pair {
	var pairs []form.Pair
	for _, fd := range f.Fields {
		for _, v := range fd.Values {
			pairs = append(pairs, form.Pair{Name: fd.Name, Value: v})
		}
	}
	return pairs
}
