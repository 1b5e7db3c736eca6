package streams

import (
	"bytes"
	"io"
	"mime/multipart"
	"strings"
	"testing"
)

// The declared size must exactly equal the byte length of the framed body
// actually transmitted, for empty, single-byte and larger streams.
func TestUploadStreamSize(t *testing.T) {
	tests := []struct {
		name    string
		content []byte
	}{
		{name: "empty", content: []byte{}},
		{name: "one byte", content: []byte("x")},
		{name: "larger", content: bytes.Repeat([]byte("abc"), 1024)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			up, err := NewUploadStream(NewBufferStream(tt.content), "0", "file.bin")
			if err != nil {
				t.Fatalf("NewUploadStream() error = %v", err)
			}
			defer up.Close()

			body, err := io.ReadAll(up)
			if err != nil {
				t.Fatalf("ReadAll() error = %v", err)
			}
			if int64(len(body)) != up.Size() {
				t.Errorf("transmitted %d bytes, declared Size() = %d", len(body), up.Size())
			}
		})
	}
}

func TestUploadStreamBody(t *testing.T) {
	content := []byte("hello world")
	up, err := NewUploadStream(NewBufferStream(content), "12345", "b.txt")
	if err != nil {
		t.Fatalf("NewUploadStream() error = %v", err)
	}
	defer up.Close()

	if up.Boundary() == "" {
		t.Fatal("Boundary() is empty")
	}
	if !strings.Contains(up.ContentType(), "multipart/form-data") {
		t.Errorf("ContentType() = %q, want multipart/form-data", up.ContentType())
	}
	if !strings.Contains(up.ContentType(), up.Boundary()) {
		t.Errorf("ContentType() = %q does not carry boundary %q", up.ContentType(), up.Boundary())
	}

	body, err := io.ReadAll(up)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}

	// The framed body must parse back as well-formed multipart/form-data.
	reader := multipart.NewReader(bytes.NewReader(body), up.Boundary())

	part, err := reader.NextPart()
	if err != nil {
		t.Fatalf("NextPart() error = %v", err)
	}
	if part.FormName() != "parent_id" {
		t.Errorf("first part = %q, want parent_id", part.FormName())
	}
	parentID, _ := io.ReadAll(part)
	if string(parentID) != "12345" {
		t.Errorf("parent_id = %q, want %q", parentID, "12345")
	}

	part, err = reader.NextPart()
	if err != nil {
		t.Fatalf("NextPart() error = %v", err)
	}
	if part.FormName() != "file" {
		t.Errorf("second part = %q, want file", part.FormName())
	}
	if part.FileName() != "b.txt" {
		t.Errorf("filename = %q, want %q", part.FileName(), "b.txt")
	}
	got, _ := io.ReadAll(part)
	if !bytes.Equal(got, content) {
		t.Errorf("file content = %q, want %q", got, content)
	}

	if _, err := reader.NextPart(); err != io.EOF {
		t.Errorf("expected EOF after file part, got %v", err)
	}
}

func TestUploadStreamUnknownSize(t *testing.T) {
	src := NewReaderStream(strings.NewReader("data"), SizeUnknown)
	if _, err := NewUploadStream(src, "0", "file.bin"); err == nil {
		t.Error("NewUploadStream() should fail for a stream without a known size")
	}
}

func TestUploadStreamFreshBoundary(t *testing.T) {
	a, err := NewUploadStream(NewBufferStream(nil), "0", "a")
	if err != nil {
		t.Fatalf("NewUploadStream() error = %v", err)
	}
	b, err := NewUploadStream(NewBufferStream(nil), "0", "b")
	if err != nil {
		t.Fatalf("NewUploadStream() error = %v", err)
	}
	if a.Boundary() == b.Boundary() {
		t.Error("boundary tokens should be freshly generated per stream")
	}
}
