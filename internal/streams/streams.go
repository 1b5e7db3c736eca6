package streams

import (
	"bytes"
	"io"
	"net/http"
)

// SizeUnknown is reported by streams whose total length is not known up
// front.
const SizeUnknown int64 = -1

// Stream is a lazily consumed byte source with a declared size. Uploads
// require a known size so that requests can carry an exact Content-Length;
// downloads may report SizeUnknown when the backend omits one.
type Stream interface {
	io.Reader
	io.Closer

	// Size returns the total number of bytes the stream will yield, or
	// SizeUnknown.
	Size() int64
}

// ResponseStream adapts an HTTP response body into a Stream. The body is
// consumed lazily; nothing is buffered beyond what the transport buffers.
type ResponseStream struct {
	resp *http.Response
}

// NewResponseStream wraps resp. The caller must Close the stream to
// release the underlying connection.
func NewResponseStream(resp *http.Response) *ResponseStream {
	return &ResponseStream{resp: resp}
}

func (s *ResponseStream) Read(p []byte) (int, error) {
	return s.resp.Body.Read(p)
}

func (s *ResponseStream) Close() error {
	return s.resp.Body.Close()
}

// Size returns the response Content-Length, or SizeUnknown when the
// backend did not declare one.
func (s *ResponseStream) Size() int64 {
	if s.resp.ContentLength < 0 {
		return SizeUnknown
	}
	return s.resp.ContentLength
}

type readerStream struct {
	r    io.Reader
	size int64
}

// NewReaderStream wraps an arbitrary reader with a declared size. Pass
// SizeUnknown if the length is not known.
func NewReaderStream(r io.Reader, size int64) Stream {
	return &readerStream{r: r, size: size}
}

func (s *readerStream) Read(p []byte) (int, error) { return s.r.Read(p) }

func (s *readerStream) Close() error {
	if c, ok := s.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (s *readerStream) Size() int64 { return s.size }

// NewBufferStream returns a Stream over an in-memory byte slice.
func NewBufferStream(b []byte) Stream {
	return NewReaderStream(bytes.NewReader(b), int64(len(b)))
}
