package provider

import (
	"context"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/remote-storage-gateway/internal/config"
	"github.com/remote-storage-gateway/internal/path"
	"github.com/remote-storage-gateway/internal/streams"
)

// davNamespace is the WebDAV XML namespace; properties are matched by
// exact qualified name within it.
const davNamespace = "DAV:"

// OwnCloudProvider implements the Provider interface for OwnCloud's WebDAV
// endpoint. OwnCloud is path-addressed: the hierarchical path maps
// directly onto the backend URL with no identifier indirection.
type OwnCloudProvider struct {
	client *http.Client
	config config.OwnCloudConfig
	auth   string // pre-encoded Authorization header value
	davURL string
}

// davMultistatus models the PROPFIND 207 response tree.
type davMultistatus struct {
	Responses []davResponse `xml:"response"`
}

type davResponse struct {
	Href      string        `xml:"href"`
	Propstats []davPropstat `xml:"propstat"`
}

type davPropstat struct {
	Status string     `xml:"status"`
	Prop   davPropSet `xml:"prop"`
}

type davPropSet struct {
	Props []davProp `xml:",any"`
}

type davProp struct {
	XMLName xml.Name
	Value   string `xml:",chardata"`
}

// NewOwnCloudProvider creates a new OwnCloud provider
func NewOwnCloudProvider(cfg config.OwnCloudConfig) (*OwnCloudProvider, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("owncloud base URL is required")
	}
	if cfg.Username == "" {
		return nil, fmt.Errorf("owncloud username is required")
	}
	if cfg.Password == "" {
		return nil, fmt.Errorf("owncloud password is required")
	}

	// The credential header is static for the adapter's lifetime; encode
	// it once at construction.
	auth := "Basic " + base64.StdEncoding.EncodeToString(
		[]byte(cfg.Username+":"+cfg.Password))

	return &OwnCloudProvider{
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		config: cfg,
		auth:   auth,
		davURL: strings.TrimSuffix(cfg.BaseURL, "/") + "/remote.php/webdav",
	}, nil
}

// Name returns the backend name
func (o *OwnCloudProvider) Name() string {
	return "owncloud"
}

// Metadata returns the property set of a file. Folder listing is not
// supported by this backend.
func (o *OwnCloudProvider) Metadata(ctx context.Context, rawPath string) ([]*Metadata, error) {
	p, err := path.Parse(rawPath)
	if err != nil {
		return nil, NewError(KindInvalidPath, 0, err.Error(), "")
	}

	if p.IsDir() {
		return nil, NewError(KindMetadata, 0, "folder listing is not supported by the owncloud backend", "")
	}

	meta, err := o.fileMetadata(ctx, p)
	if err != nil {
		return nil, err
	}
	return []*Metadata{meta}, nil
}

// Download streams file content. OwnCloud keeps no addressable version
// history, so the revision argument is ignored.
func (o *OwnCloudProvider) Download(ctx context.Context, rawPath, revision string) (streams.Stream, error) {
	p, err := path.Parse(rawPath)
	if err != nil {
		return nil, NewError(KindInvalidPath, 0, err.Error(), "")
	}
	if !p.IsFile() {
		return nil, NewError(KindDownload, http.StatusBadRequest, "no file specified for download", "")
	}

	resp, err := o.do(ctx, KindDownload, http.MethodGet, o.davURL+p.String(), nil, 0, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return streams.NewResponseStream(resp), nil
}

// Upload PUTs the stream at the computed backend URL with no existence
// probe. The backend's PUT is overwrite-in-place and gives no
// create/update signal, so created is always reported true and the
// metadata is synthesized from the request.
func (o *OwnCloudProvider) Upload(ctx context.Context, src streams.Stream, rawPath string) (*Metadata, bool, error) {
	p, err := path.Parse(rawPath)
	if err != nil {
		return nil, false, NewError(KindInvalidPath, 0, err.Error(), "")
	}
	if p.IsDir() {
		return nil, false, NewError(KindInvalidPath, 0, "upload requires a file path", "")
	}
	if src.Size() < 0 {
		return nil, false, NewError(KindUpload, 0, "upload requires a stream with a known size", "")
	}

	resp, err := o.do(ctx, KindUpload, http.MethodPut, o.davURL+p.String(), src, src.Size(), http.StatusCreated)
	if err != nil {
		return nil, false, err
	}
	resp.Body.Close()

	return &Metadata{
		Kind: EntryFile,
		Name: p.Name(),
		Path: p.String(),
		Size: src.Size(),
	}, true, nil
}

// Delete removes the file at the computed backend URL with no existence
// probe; the backend's 404 on an absent path is unambiguous.
func (o *OwnCloudProvider) Delete(ctx context.Context, rawPath string) error {
	p, err := path.Parse(rawPath)
	if err != nil {
		return NewError(KindInvalidPath, 0, err.Error(), "")
	}

	resp, err := o.do(ctx, KindDelete, http.MethodDelete, o.davURL+p.String(), nil, 0, http.StatusNoContent)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// Revisions returns a single entry for the current version: OwnCloud
// exposes no version history over WebDAV.
func (o *OwnCloudProvider) Revisions(ctx context.Context, rawPath string) ([]*Revision, error) {
	p, err := path.Parse(rawPath)
	if err != nil {
		return nil, NewError(KindInvalidPath, 0, err.Error(), "")
	}
	if p.IsDir() {
		return nil, NewError(KindRevisions, http.StatusBadRequest, "revisions require a file path", "")
	}

	meta, err := o.fileMetadata(ctx, p)
	if err != nil {
		return nil, NewError(KindRevisions, StatusOf(err), fmt.Sprintf("failed to fetch current version: %v", err), "")
	}
	return []*Revision{{Index: 1, Metadata: *meta}}, nil
}

func (o *OwnCloudProvider) fileMetadata(ctx context.Context, p *path.Path) (*Metadata, error) {
	resp, err := o.do(ctx, KindMetadata, "PROPFIND", o.davURL+p.String(), nil, 0, http.StatusMultiStatus)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewError(KindMetadata, 0, fmt.Sprintf("failed to read propfind response: %v", err), "")
	}

	props, err := parsePropfind(data)
	if err != nil {
		return nil, NewError(KindMetadata, 0, err.Error(), "")
	}

	return davMetadata(p, props), nil
}

// parsePropfind extracts the first response's first property-status block
// into a flat map keyed by fully qualified property name.
func parsePropfind(data []byte) (map[xml.Name]string, error) {
	var tree davMultistatus
	if err := xml.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("failed to parse propfind response: %w", err)
	}
	if len(tree.Responses) == 0 || len(tree.Responses[0].Propstats) == 0 {
		return nil, fmt.Errorf("propfind response contained no property sets")
	}

	props := make(map[xml.Name]string)
	for _, prop := range tree.Responses[0].Propstats[0].Prop.Props {
		props[prop.XMLName] = prop.Value
	}
	return props, nil
}

// davMetadata normalizes a WebDAV property set into the canonical record.
// Properties are looked up by exact qualified name; missing optional
// fields render as absent.
func davMetadata(p *path.Path, props map[xml.Name]string) *Metadata {
	davName := func(local string) xml.Name {
		return xml.Name{Space: davNamespace, Local: local}
	}

	meta := &Metadata{
		Kind:  EntryFile,
		Name:  p.Name(),
		Path:  p.String(),
		Size:  SizeUnknown,
		Extra: make(map[string]string, len(props)),
	}

	if v, ok := props[davName("getcontentlength")]; ok {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			meta.Size = n
		}
	}
	if v, ok := props[davName("getlastmodified")]; ok {
		if t, err := http.ParseTime(v); err == nil {
			meta.Modified = t
		}
	}
	if v, ok := props[davName("getetag")]; ok {
		meta.ETag = strings.Trim(v, `"`)
	}
	if v, ok := props[davName("getcontenttype")]; ok {
		meta.ContentType = v
	}

	for name, value := range props {
		meta.Extra["{"+name.Space+"}"+name.Local] = value
	}
	return meta
}

// do issues a single request with the static credential header and
// enforces the operation's expected status set.
func (o *OwnCloudProvider) do(ctx context.Context, kind ErrorKind, method, requestURL string, body io.Reader, contentLength int64, expects ...int) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, requestURL, body)
	if err != nil {
		return nil, NewError(kind, 0, fmt.Sprintf("failed to create request: %v", err), "")
	}
	req.Header.Set("Authorization", o.auth)
	if body != nil {
		req.ContentLength = contentLength
	}

	logrus.Debugf("owncloud: %s %s", method, requestURL)

	resp, err := o.client.Do(req)
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
	logrus.Errorf("owncloud: %s %s failed with status %d", method, requestURL, resp.StatusCode)
	return nil, NewError(kind, resp.StatusCode,
		fmt.Sprintf("unexpected status for %s %s", method, requestURL), string(payload))
}
