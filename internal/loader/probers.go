package loader

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"prism/internal/services"
	"prism/internal/variant"
)

// FileProber confirms candidates by reading image headers from the asset
// root. URLs under baseURL map onto root; other URLs fail.
type FileProber struct {
	root    string
	baseURL string
}

// NewFileProber maps the path of baseURL onto root.
func NewFileProber(root, baseURL string) *FileProber {
	basePath := baseURL
	if u, err := url.Parse(baseURL); err == nil {
		basePath = u.Path
	}
	return &FileProber{root: root, baseURL: strings.TrimRight(basePath, "/")}
}

// Probe implements Prober.
func (p *FileProber) Probe(ctx context.Context, rawURL string) (int, int, error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}
	localPath, err := p.localPath(rawURL)
	if err != nil {
		return 0, 0, err
	}
	file, err := os.Open(localPath)
	if err != nil {
		return 0, 0, services.Wrap(services.ErrProbe, "loader", "open candidate", rawURL, err)
	}
	defer file.Close()

	_, width, height, err := variant.Dimensions(file)
	if err != nil {
		return 0, 0, services.Wrap(services.ErrProbe, "loader", "read candidate", rawURL, err)
	}
	return width, height, nil
}

func (p *FileProber) localPath(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", services.Wrap(services.ErrProbe, "loader", "parse candidate", rawURL, err)
	}
	clean := path.Clean("/" + u.Path)
	prefix := p.baseURL + "/"
	if p.baseURL == "" {
		prefix = "/"
	}
	rel, ok := strings.CutPrefix(clean, prefix)
	if !ok || rel == "" {
		return "", services.Wrap(services.ErrProbe, "loader", "map candidate", fmt.Sprintf("%s is outside %s", rawURL, prefix), nil)
	}
	return filepath.Join(p.root, filepath.FromSlash(rel)), nil
}

// HTTPProber confirms candidates with a GET and a header decode.
type HTTPProber struct {
	origin *url.URL
	client *http.Client
}

// NewHTTPProber resolves relative candidate URLs against origin. client may
// be nil.
func NewHTTPProber(origin string, client *http.Client) (*HTTPProber, error) {
	var base *url.URL
	if strings.TrimSpace(origin) != "" {
		parsed, err := url.Parse(strings.TrimSpace(origin))
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return nil, fmt.Errorf("http prober origin %q must be an absolute URL", origin)
		}
		base = parsed
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPProber{origin: base, client: client}, nil
}

// Probe implements Prober.
func (p *HTTPProber) Probe(ctx context.Context, rawURL string) (int, int, error) {
	target, err := url.Parse(rawURL)
	if err != nil {
		return 0, 0, services.Wrap(services.ErrProbe, "loader", "parse candidate", rawURL, err)
	}
	if !target.IsAbs() {
		if p.origin == nil {
			return 0, 0, services.Wrap(services.ErrProbe, "loader", "resolve candidate", rawURL+" is relative and no origin is set", nil)
		}
		target = p.origin.ResolveReference(target)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return 0, 0, services.Wrap(services.ErrProbe, "loader", "build request", rawURL, err)
	}
	req.Header.Set("Accept", "image/avif,image/webp,image/*")
	resp, err := p.client.Do(req)
	if err != nil {
		return 0, 0, services.Wrap(services.ErrProbe, "loader", "fetch candidate", rawURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, 0, services.Wrap(services.ErrProbe, "loader", "fetch candidate", fmt.Sprintf("%s returned %d", rawURL, resp.StatusCode), nil)
	}

	_, width, height, err := variant.Dimensions(resp.Body)
	if err != nil {
		return 0, 0, services.Wrap(services.ErrProbe, "loader", "decode candidate", rawURL, err)
	}
	return width, height, nil
}
