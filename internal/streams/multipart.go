package streams

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"strings"

	"github.com/google/uuid"
)

// UploadStream frames a source stream as a multipart/form-data body with a
// parent_id field and a file field. The total body length is computed up
// front from the source's declared size, so the request can carry an exact
// Content-Length without the content ever being buffered.
type UploadStream struct {
	src         Stream
	body        io.Reader
	size        int64
	boundary    string
	contentType string
}

// NewUploadStream builds the multipart body around src. It fails if src
// does not declare its size.
func NewUploadStream(src Stream, parentID, filename string) (*UploadStream, error) {
	if src.Size() < 0 {
		return nil, fmt.Errorf("multipart upload requires a stream with a known size")
	}

	boundary := uuid.NewString()

	var preamble bytes.Buffer
	w := multipart.NewWriter(&preamble)
	if err := w.SetBoundary(boundary); err != nil {
		return nil, fmt.Errorf("failed to set multipart boundary: %w", err)
	}
	if err := w.WriteField("parent_id", parentID); err != nil {
		return nil, fmt.Errorf("failed to write parent_id field: %w", err)
	}
	// CreateFormFile emits the file part headers; the content itself is
	// streamed from src between the preamble and the closing boundary.
	if _, err := w.CreateFormFile("file", filename); err != nil {
		return nil, fmt.Errorf("failed to create file field: %w", err)
	}

	epilogue := fmt.Sprintf("\r\n--%s--\r\n", boundary)

	return &UploadStream{
		src: src,
		body: io.MultiReader(
			bytes.NewReader(preamble.Bytes()),
			src,
			strings.NewReader(epilogue),
		),
		size:        int64(preamble.Len()) + src.Size() + int64(len(epilogue)),
		boundary:    boundary,
		contentType: w.FormDataContentType(),
	}, nil
}

func (u *UploadStream) Read(p []byte) (int, error) { return u.body.Read(p) }

func (u *UploadStream) Close() error { return u.src.Close() }

// Size returns the exact byte length of the framed body.
func (u *UploadStream) Size() int64 { return u.size }

// Boundary returns the generated boundary token.
func (u *UploadStream) Boundary() string { return u.boundary }

// ContentType returns the multipart/form-data content type including the
// boundary parameter.
func (u *UploadStream) ContentType() string { return u.contentType }
