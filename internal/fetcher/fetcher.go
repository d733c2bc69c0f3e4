// Package fetcher opens taxonomy sources from local files, HTTP(S) and FTP,
// and decodes JSON, CSV and XLSX payloads.
package fetcher

import (
	"context"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/rotisserie/eris"
)

// Fetcher downloads a remote resource.
type Fetcher interface {
	// Download fetches the URL and returns the response body.
	Download(ctx context.Context, url string) (io.ReadCloser, error)
}

// Opener resolves a source string (path or URL) to a reader, picking the
// transport from the URL scheme.
type Opener struct {
	HTTP Fetcher
	FTP  Fetcher
}

// NewOpener creates an Opener with default HTTP and FTP fetchers.
func NewOpener(httpOpts HTTPOptions, ftpOpts FTPOptions) *Opener {
	return &Opener{
		HTTP: NewHTTPFetcher(httpOpts),
		FTP:  NewFTPFetcher(ftpOpts),
	}
}

// Scheme returns the lower-cased URL scheme of source, or "file" for plain
// paths.
func Scheme(source string) string {
	u, err := url.Parse(source)
	if err != nil || len(u.Scheme) <= 1 {
		// Single-letter schemes are Windows drive letters.
		return "file"
	}
	return strings.ToLower(u.Scheme)
}

// Open returns a reader for source. The caller must close it.
func (o *Opener) Open(ctx context.Context, source string) (io.ReadCloser, error) {
	switch scheme := Scheme(source); scheme {
	case "file":
		path := strings.TrimPrefix(source, "file://")
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrapf(err, "fetcher: open %s", path)
		}
		return f, nil
	case "http", "https":
		if o.HTTP == nil {
			return nil, eris.Errorf("fetcher: no http fetcher for %s", source)
		}
		return o.HTTP.Download(ctx, source)
	case "ftp":
		if o.FTP == nil {
			return nil, eris.Errorf("fetcher: no ftp fetcher for %s", source)
		}
		return o.FTP.Download(ctx, source)
	default:
		return nil, eris.Errorf("fetcher: unsupported scheme %q", scheme)
	}
}

// ToLocalFile makes source available as a local file, downloading remote
// sources into dir. The returned cleanup removes any temporary file.
func (o *Opener) ToLocalFile(ctx context.Context, source, dir string) (string, func(), error) {
	if Scheme(source) == "file" {
		return strings.TrimPrefix(source, "file://"), func() {}, nil
	}

	body, err := o.Open(ctx, source)
	if err != nil {
		return "", nil, err
	}
	defer body.Close() //nolint:errcheck

	ext := ""
	if u, err := url.Parse(source); err == nil {
		if i := strings.LastIndex(u.Path, "."); i >= 0 {
			ext = u.Path[i:]
		}
	}
	tmp, err := os.CreateTemp(dir, "taxonomy-*"+ext)
	if err != nil {
		return "", nil, eris.Wrap(err, "fetcher: create temp file")
	}
	cleanup := func() { _ = os.Remove(tmp.Name()) }

	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close() //nolint:errcheck
		cleanup()
		return "", nil, eris.Wrap(err, "fetcher: write temp file")
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", nil, eris.Wrap(err, "fetcher: close temp file")
	}
	return tmp.Name(), cleanup, nil
}
