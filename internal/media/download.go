// Package media acquires video files and decodes sampled frames from them.
package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"vidprint/internal/errs"
)

// IsURL reports whether source should be fetched over HTTP rather than read
// from the local filesystem.
func IsURL(source string) bool {
	u, err := url.Parse(source)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Downloader fetches remote videos into a working directory.
type Downloader struct {
	client *http.Client
	dir    string
}

func NewDownloader(dir string, timeout time.Duration) *Downloader {
	return &Downloader{
		client: &http.Client{Timeout: timeout},
		dir:    dir,
	}
}

// Fetch resolves source to a local file path. Remote sources are streamed to
// a uniquely named file under the working directory and cleanup removes it;
// local paths are returned as-is with a no-op cleanup.
func (d *Downloader) Fetch(ctx context.Context, source string) (string, func(), error) {
	if !IsURL(source) {
		if _, err := os.Stat(source); err != nil {
			return "", nil, errs.Wrap(errs.KindAcquisition, fmt.Sprintf("stat local file %s", source), err)
		}
		return source, func() {}, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return "", nil, errs.Wrap(errs.KindAcquisition, "build download request", err)
	}
	req.Header.Set("User-Agent", "vidprint/1.0")
	resp, err := d.client.Do(req)
	if err != nil {
		return "", nil, errs.Wrap(errs.KindAcquisition, fmt.Sprintf("download %s", source), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", nil, errs.New(errs.KindAcquisition, fmt.Sprintf("download %s: status %d", source, resp.StatusCode))
	}

	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return "", nil, errs.Wrap(errs.KindAcquisition, "create download dir", err)
	}

	ext := filepath.Ext(urlPath(source))
	if ext == "" {
		ext = ".mp4"
	}
	path := filepath.Join(d.dir, uuid.NewString()+ext)

	out, err := os.Create(path)
	if err != nil {
		return "", nil, errs.Wrap(errs.KindAcquisition, "create download file", err)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(path)
		return "", nil, errs.Wrap(errs.KindAcquisition, fmt.Sprintf("stream %s", source), err)
	}
	if err := out.Close(); err != nil {
		os.Remove(path)
		return "", nil, errs.Wrap(errs.KindAcquisition, "close download file", err)
	}

	return path, func() { os.Remove(path) }, nil
}

func urlPath(source string) string {
	u, err := url.Parse(source)
	if err != nil {
		return source
	}
	return u.Path
}
