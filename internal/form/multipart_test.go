package form_test

import (
	"bytes"
	"io"
	"mime"
	"mime/multipart"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/frankli0324/go-restkit/internal/form"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type decodedPart struct {
	Name, Filename, ContentType, Value string
}

func decode(t *testing.T, contentType string, body io.Reader) []decodedPart {
	t.Helper()
	_, params, err := mime.ParseMediaType(contentType)
	require.NoError(t, err)
	r := multipart.NewReader(body, params["boundary"])
	var out []decodedPart
	for {
		p, err := r.NextPart()
		if err == io.EOF {
			return out
		}
		require.NoError(t, err)
		b, err := io.ReadAll(p)
		require.NoError(t, err)
		out = append(out, decodedPart{
			Name: p.FormName(), Filename: p.FileName(),
			ContentType: p.Header.Get("Content-Type"), Value: string(b),
		})
	}
}

func TestMultipartLayout(t *testing.T) {
	m := form.NewMultipart([]form.Part{{Name: "a", Value: "aa"}}, "XyZ")
	b, err := m.Bytes()
	require.NoError(t, err)

	want := "--XyZ\r\n" +
		"Content-Disposition: form-data; name=\"a\"\r\n" +
		"\r\n" +
		"aa\r\n" +
		"--XyZ--\r\n"
	assert.Equal(t, want, string(b))
	assert.Equal(t, int64(len(want)), m.Size())
	assert.Equal(t, "multipart/form-data; boundary=XyZ", m.ContentType())
}

func TestMultipartRoundTrip(t *testing.T) {
	parts := []form.Part{
		{Name: "a", Value: "aa"},
		{Name: "b", Value: "bb"},
		{Name: "b", Value: "éàù@"},
		{Name: "c", Value: ""},
	}
	m := form.NewMultipart(parts, "")
	require.NotEmpty(t, m.Boundary)

	got := decode(t, m.ContentType(), m.Reader())
	want := []decodedPart{
		{Name: "a", Value: "aa"},
		{Name: "b", Value: "bb"},
		{Name: "b", Value: "éàù@"},
		{Name: "c", Value: ""},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("decoded parts mismatch (-want +got):\n%s", diff)
	}
}

func TestMultipartFileParts(t *testing.T) {
	content := strings.Repeat("0123456789abcdef", 4096) // 64 KiB
	m := form.NewMultipart([]form.Part{
		{Name: "a", Value: "aa"},
		{Name: "f", Filename: "test.txt", File: strings.NewReader(content), Size: int64(len(content))},
	}, "")

	size := m.Size()
	require.Positive(t, size)

	raw, err := io.ReadAll(iotest.OneByteReader(m.Reader()))
	require.NoError(t, err)
	assert.Equal(t, size, int64(len(raw)))

	got := decode(t, m.ContentType(), bytes.NewReader(raw))
	require.Len(t, got, 2)
	assert.Equal(t, "test.txt", got[1].Filename)
	assert.Equal(t, "application/octet-stream", got[1].ContentType)
	assert.Equal(t, content, got[1].Value)
}

func TestMultipartUnknownSize(t *testing.T) {
	m := form.NewMultipart([]form.Part{
		{Name: "f", Filename: "x", File: iotest.HalfReader(strings.NewReader("data")), Size: -1},
	}, "b")
	assert.Equal(t, int64(-1), m.Size())

	got := decode(t, m.ContentType(), m.Reader())
	require.Len(t, got, 1)
	assert.Equal(t, "data", got[0].Value)
}

func TestMultipartShortFile(t *testing.T) {
	m := form.NewMultipart([]form.Part{
		{Name: "f", Filename: "x", File: strings.NewReader("abc"), Size: 10},
	}, "b")
	_, err := io.ReadAll(m.Reader())
	var se *form.SizeError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, int64(7), se.Missing)
}

func TestMultipartEscapesNames(t *testing.T) {
	m := form.NewMultipart([]form.Part{
		{Name: `we"ird`, Filename: "a\r\nb.txt", File: strings.NewReader("x"), Size: 1},
	}, "b")
	b, err := m.Bytes()
	require.NoError(t, err)
	assert.Contains(t, string(b), `name="we\"ird"; filename="a%0D%0Ab.txt"`)
}

func TestURLEncodeKeepsOrder(t *testing.T) {
	got := form.URLEncode([]form.Pair{{Name: "b", Value: "b"}, {Name: "a", Value: "a c"}, {Name: "a", Value: "é"}})
	assert.Equal(t, "b=b&a=a+c&a=%C3%A9", got)
}
