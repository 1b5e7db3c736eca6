package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"github.com/remote-storage-gateway/internal/config"
	"github.com/remote-storage-gateway/internal/path"
	"github.com/remote-storage-gateway/internal/streams"
)

// BoxProvider implements the Provider interface for the Box API. Box is
// identifier-addressed: every file path embeds the opaque numeric file id
// as its first segment, and all non-listing calls address that id rather
// than the path string.
type BoxProvider struct {
	client *http.Client
	config config.BoxConfig
}

// boxItem is the raw Box representation of a file, folder or file version.
type boxItem struct {
	Type       string `json:"type"`
	ID         string `json:"id"`
	Name       string `json:"name"`
	Size       int64  `json:"size"`
	ETag       string `json:"etag"`
	SHA1       string `json:"sha1"`
	ModifiedAt string `json:"modified_at"`
	CreatedAt  string `json:"created_at"`
}

// boxEntryList is the envelope Box wraps listings, uploads and version
// enumerations in.
type boxEntryList struct {
	TotalCount int       `json:"total_count"`
	Entries    []boxItem `json:"entries"`
}

// NewBoxProvider creates a new Box provider
func NewBoxProvider(cfg config.BoxConfig) (*BoxProvider, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("box token is required")
	}
	if cfg.Folder == "" {
		return nil, fmt.Errorf("box root folder id is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = config.DefaultBoxBaseURL
	}
	if cfg.UploadBaseURL == "" {
		cfg.UploadBaseURL = config.DefaultBoxUploadBaseURL
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	cfg.UploadBaseURL = strings.TrimSuffix(cfg.UploadBaseURL, "/")

	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: cfg.Token},
	)
	client := oauth2.NewClient(context.Background(), ts)
	client.Timeout = 30 * time.Second

	return &BoxProvider{
		client: client,
		config: cfg,
	}, nil
}

// Name returns the backend name
func (b *BoxProvider) Name() string {
	return "box"
}

// Metadata returns the file record for a file path, or the immediate
// children of the configured root folder for a directory path.
func (b *BoxProvider) Metadata(ctx context.Context, rawPath string) ([]*Metadata, error) {
	p, err := path.ParseID(rawPath)
	if err != nil {
		return nil, NewError(KindInvalidPath, 0, err.Error(), "")
	}

	if p.IsDir() {
		return b.listFolder(ctx)
	}

	meta, err := b.fileMetadata(ctx, p)
	if err != nil {
		return nil, err
	}
	return []*Metadata{meta}, nil
}

// Download streams file content. A non-empty revision that differs from
// the path's own identifier selects that version.
func (b *BoxProvider) Download(ctx context.Context, rawPath, revision string) (streams.Stream, error) {
	p, err := path.ParseID(rawPath)
	if err != nil {
		return nil, NewError(KindInvalidPath, 0, err.Error(), "")
	}
	if p.IsDir() {
		return nil, NewError(KindDownload, http.StatusBadRequest, "no file specified for download", "")
	}

	contentURL := fmt.Sprintf("%s/files/%s/content", b.config.BaseURL, p.ID())
	if revision != "" && revision != p.ID() {
		contentURL += "?version=" + url.QueryEscape(revision)
	}

	resp, err := b.do(ctx, KindDownload, http.MethodGet, contentURL, nil, 0, "", http.StatusOK)
	if err != nil {
		return nil, err
	}
	return streams.NewResponseStream(resp), nil
}

// Upload creates the file if absent, otherwise updates it in place. The
// probe-then-act sequence is not transactional: a concurrent delete
// between the metadata probe and the update surfaces as an upload error.
func (b *BoxProvider) Upload(ctx context.Context, src streams.Stream, rawPath string) (*Metadata, bool, error) {
	p, err := path.ParseID(b.rootedPath(rawPath))
	if err != nil {
		return nil, false, NewError(KindInvalidPath, 0, err.Error(), "")
	}
	if p.IsDir() || p.Name() == "" {
		return nil, false, NewError(KindInvalidPath, 0, "upload requires a file path", "")
	}

	probe, err := b.fileMetadata(ctx, p)
	if err != nil {
		var pe *Error
		if errors.As(err, &pe) && pe.Kind == KindMetadata && pe.Status == http.StatusNotFound {
			meta, uerr := b.uploadCreate(ctx, src, p)
			return meta, true, uerr
		}
		// Auth failures and malformed responses are not "file absent";
		// surface them instead of creating blindly.
		return nil, false, NewError(KindUpload, StatusOf(err), fmt.Sprintf("upload probe failed: %v", err), "")
	}

	// Update against the id recorded in the probed metadata, not the
	// request path: the two differ when the backend relocated the file.
	existing, err := path.ParseID(probe.Path)
	if err != nil {
		return nil, false, NewError(KindUpload, 0, fmt.Sprintf("invalid metadata path %q: %v", probe.Path, err), "")
	}
	meta, err := b.uploadUpdate(ctx, src, p, existing.ID())
	return meta, false, err
}

// Delete confirms the target exists via a metadata probe, then removes it.
func (b *BoxProvider) Delete(ctx context.Context, rawPath string) error {
	p, err := path.ParseID(rawPath)
	if err != nil {
		return NewError(KindInvalidPath, 0, err.Error(), "")
	}
	if p.IsDir() {
		return NewError(KindInvalidPath, 0, "delete requires a file path", "")
	}

	// The probe verifies the path actually names the requested file; its
	// failure propagates unchanged.
	if _, err := b.fileMetadata(ctx, p); err != nil {
		return err
	}

	resp, err := b.do(ctx, KindDelete, http.MethodDelete,
		fmt.Sprintf("%s/files/%s", b.config.BaseURL, p.ID()),
		nil, 0, "", http.StatusNoContent)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// Revisions lists the version history. Box only enumerates prior
// (premium-gated) versions, so the current version is synthesized as
// revision 1 from a fresh metadata call and backend entries follow from
// revision 2 in backend order.
func (b *BoxProvider) Revisions(ctx context.Context, rawPath string) ([]*Revision, error) {
	p, err := path.ParseID(rawPath)
	if err != nil {
		return nil, NewError(KindInvalidPath, 0, err.Error(), "")
	}
	if p.IsDir() {
		return nil, NewError(KindRevisions, http.StatusBadRequest, "revisions require a file path", "")
	}

	resp, err := b.do(ctx, KindRevisions, http.MethodGet,
		fmt.Sprintf("%s/files/%s/versions", b.config.BaseURL, p.ID()),
		nil, 0, "", http.StatusOK)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var list boxEntryList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, NewError(KindRevisions, 0, fmt.Sprintf("failed to decode versions response: %v", err), "")
	}

	current, err := b.fileMetadata(ctx, p)
	if err != nil {
		return nil, NewError(KindRevisions, StatusOf(err), fmt.Sprintf("failed to fetch current version: %v", err), "")
	}

	revisions := []*Revision{{Index: 1, Metadata: *current}}
	for i, item := range list.Entries {
		revisions = append(revisions, &Revision{Index: i + 2, Metadata: *item.metadata()})
	}
	return revisions, nil
}

func (b *BoxProvider) fileMetadata(ctx context.Context, p *path.Path) (*Metadata, error) {
	if p.ID() == "" {
		return nil, NewError(KindInvalidPath, 0, "path has no backend identifier", "")
	}

	resp, err := b.do(ctx, KindMetadata, http.MethodGet,
		fmt.Sprintf("%s/files/%s", b.config.BaseURL, p.ID()),
		nil, 0, "", http.StatusOK)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var item boxItem
	if err := json.NewDecoder(resp.Body).Decode(&item); err != nil {
		return nil, NewError(KindMetadata, 0, fmt.Sprintf("failed to decode file metadata: %v", err), "")
	}
	if item.ID == "" {
		return nil, NewError(KindMetadata, 0, "unable to find file", "")
	}
	return item.metadata(), nil
}

func (b *BoxProvider) listFolder(ctx context.Context) ([]*Metadata, error) {
	resp, err := b.do(ctx, KindMetadata, http.MethodGet,
		fmt.Sprintf("%s/folders/%s/items", b.config.BaseURL, b.config.Folder),
		nil, 0, "", http.StatusOK)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var list boxEntryList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, NewError(KindMetadata, 0, fmt.Sprintf("failed to decode folder listing: %v", err), "")
	}

	entries := make([]*Metadata, 0, len(list.Entries))
	for _, item := range list.Entries {
		entries = append(entries, item.metadata())
	}
	return entries, nil
}

func (b *BoxProvider) uploadCreate(ctx context.Context, src streams.Stream, p *path.Path) (*Metadata, error) {
	return b.uploadMultipart(ctx, src, p,
		fmt.Sprintf("%s/files/content", b.config.UploadBaseURL))
}

func (b *BoxProvider) uploadUpdate(ctx context.Context, src streams.Stream, p *path.Path, fileID string) (*Metadata, error) {
	return b.uploadMultipart(ctx, src, p,
		fmt.Sprintf("%s/files/%s/content", b.config.UploadBaseURL, fileID))
}

func (b *BoxProvider) uploadMultipart(ctx context.Context, src streams.Stream, p *path.Path, uploadURL string) (*Metadata, error) {
	body, err := streams.NewUploadStream(src, p.ID(), p.Name())
	if err != nil {
		return nil, NewError(KindUpload, 0, err.Error(), "")
	}

	resp, err := b.do(ctx, KindUpload, http.MethodPost, uploadURL,
		body, body.Size(), body.ContentType(),
		http.StatusOK, http.StatusCreated)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var list boxEntryList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, NewError(KindUpload, 0, fmt.Sprintf("failed to decode upload response: %v", err), "")
	}
	if len(list.Entries) == 0 {
		return nil, NewError(KindUpload, 0, "upload response contained no entries", "")
	}
	return list.Entries[0].metadata(), nil
}

// rootedPath places single-segment upload paths under the configured root
// folder id so their parent identifier resolves to that folder.
func (b *BoxProvider) rootedPath(rawPath string) string {
	trimmed := strings.Trim(rawPath, "/")
	if trimmed != "" && !strings.Contains(trimmed, "/") && !strings.HasSuffix(rawPath, "/") {
		return "/" + b.config.Folder + "/" + trimmed
	}
	return rawPath
}

// do issues a single request and enforces the operation's expected status
// set. Any other status is read, logged and mapped to the operation's
// error kind. The caller owns the response body on success.
func (b *BoxProvider) do(ctx context.Context, kind ErrorKind, method, requestURL string, body io.Reader, contentLength int64, contentType string, expects ...int) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, requestURL, body)
	if err != nil {
		return nil, NewError(kind, 0, fmt.Sprintf("failed to create request: %v", err), "")
	}
	if contentLength > 0 {
		req.ContentLength = contentLength
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	logrus.Debugf("box: %s %s", method, requestURL)

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, NewError(kind, 0, fmt.Sprintf("request failed: %v", err), "")
	}

	for _, status := range expects {
		if resp.StatusCode == status {
			return resp, nil
		}
	}

	payload, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	logrus.Errorf("box: %s %s failed with status %d", method, requestURL, resp.StatusCode)
	return nil, NewError(kind, resp.StatusCode,
		fmt.Sprintf("unexpected status for %s %s", method, requestURL), string(payload))
}

// metadata normalizes a raw Box item into the canonical record. The type
// tag selects the kind; optional fields render as absent.
func (item boxItem) metadata() *Metadata {
	meta := &Metadata{
		Name: item.Name,
		ETag: item.ETag,
		Extra: map[string]string{
			"box:id":   item.ID,
			"box:type": item.Type,
		},
	}
	if item.SHA1 != "" {
		meta.Extra["box:sha1"] = item.SHA1
	}

	if item.Type == "folder" {
		meta.Kind = EntryFolder
		meta.Size = SizeUnknown
		meta.Path = "/" + item.ID + "/"
	} else {
		meta.Kind = EntryFile
		meta.Size = item.Size
		meta.Path = "/" + item.ID + "/" + item.Name
	}

	if item.ModifiedAt != "" {
		if t, err := time.Parse(time.RFC3339, item.ModifiedAt); err == nil {
			meta.Modified = t
		}
	}
	return meta
}
