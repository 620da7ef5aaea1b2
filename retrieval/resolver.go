// Package retrieval turns document locators into parsed documents. Raw bytes come from a set of
// Resolvers tried in registration order, are parsed by media type through a ParserRegistry, and
// the results are kept in a Cache that coalesces concurrent requests for the same URI.
package retrieval

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/speakeasy-api/openapi-deref/errors"
	"github.com/speakeasy-api/openapi-deref/references"
	"github.com/speakeasy-api/openapi-deref/system"
)

// MaxDocumentSize is the default ceiling on the size of a retrieved document (10 MiB).
const MaxDocumentSize int64 = 10 * 1024 * 1024

// Resource is the raw content behind a locator.
type Resource struct {
	URI       string
	Data      []byte
	MediaType string
}

// Resolver reads the raw content of the locators it claims.
type Resolver interface {
	// CanRead reports whether the resolver handles uri.
	CanRead(uri string) bool
	// Read returns the content behind uri. Failures are kinds of errors.ErrRetrieval.
	Read(ctx context.Context, uri string) (*Resource, error)
}

// FileResolver reads file paths and file:// URLs from a VirtualFS.
type FileResolver struct {
	FS      system.VirtualFS
	MaxSize int64
}

var _ Resolver = (*FileResolver)(nil)

func (r *FileResolver) CanRead(uri string) bool {
	c, err := references.Classify(uri)
	if err != nil {
		return false
	}
	if c.IsFile() {
		return true
	}
	return c.IsURL() && strings.EqualFold(c.ParsedURL.Scheme, "file")
}

func (r *FileResolver) Read(ctx context.Context, uri string) (*Resource, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.ErrRetrieval.Wrap(err)
	}

	name := references.StripFragment(uri)
	if c, err := references.Classify(name); err == nil && c.IsURL() {
		name = c.ParsedURL.Path
	}

	fsys := r.FS
	if fsys == nil {
		fsys = &system.FileSystem{}
	}

	f, err := fsys.Open(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errors.ErrRetrieval.Wrap(errors.ErrNotFound.Wrapf("file %s does not exist", name))
		}
		return nil, errors.ErrRetrieval.Wrapf("open %s: %w", name, err)
	}
	defer f.Close()

	data, err := readLimited(f, r.MaxSize)
	if err != nil {
		return nil, errors.ErrRetrieval.Wrapf("read %s: %w", name, err)
	}

	return &Resource{URI: uri, Data: data, MediaType: mediaTypeFromExtension(name)}, nil
}

// HTTPResolver reads http and https URLs.
type HTTPResolver struct {
	Client  system.Client
	MaxSize int64
}

var _ Resolver = (*HTTPResolver)(nil)

func (r *HTTPResolver) CanRead(uri string) bool {
	c, err := references.Classify(uri)
	return err == nil && c.IsHTTP()
}

func (r *HTTPResolver) Read(ctx context.Context, uri string) (*Resource, error) {
	target := references.StripFragment(uri)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, errors.ErrRetrieval.Wrapf("build request for %s: %w", target, err)
	}
	req.Header.Set("Accept", "application/json, application/yaml;q=0.9, */*;q=0.8")

	client := r.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.ErrRetrieval.Wrap(errors.ErrNetwork.Wrapf("GET %s: %w", target, err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return nil, errors.ErrRetrieval.Wrap(errors.ErrNotFound.Wrapf("GET %s: status %d", target, resp.StatusCode))
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, errors.ErrRetrieval.Wrap(errors.ErrNetwork.Wrapf("GET %s: status %d", target, resp.StatusCode))
	}

	data, err := readLimited(resp.Body, r.MaxSize)
	if err != nil {
		return nil, errors.ErrRetrieval.Wrap(errors.ErrNetwork.Wrapf("read %s: %w", target, err))
	}

	mediaType := ""
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		if mt, _, err := mime.ParseMediaType(ct); err == nil {
			mediaType = mt
		}
	}
	if mediaType == "" || mediaType == "text/plain" || mediaType == "application/octet-stream" {
		if byExt := mediaTypeFromExtension(req.URL.Path); byExt != "" {
			mediaType = byExt
		}
	}

	return &Resource{URI: uri, Data: data, MediaType: mediaType}, nil
}

func readLimited(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		limit = MaxDocumentSize
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("document exceeds maximum size of %d bytes", limit)
	}
	return data, nil
}

func mediaTypeFromExtension(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".json":
		return MediaTypeJSON
	case ".yaml", ".yml":
		return MediaTypeYAML
	default:
		return ""
	}
}

// DefaultResolvers returns the file and HTTP resolvers, in that order.
func DefaultResolvers(fsys system.VirtualFS, client system.Client) []Resolver {
	return []Resolver{
		&FileResolver{FS: fsys, MaxSize: MaxDocumentSize},
		&HTTPResolver{Client: client, MaxSize: MaxDocumentSize},
	}
}
