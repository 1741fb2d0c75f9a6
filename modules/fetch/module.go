// Package fetch implements the 'download' step kind: retrieving a pretrained
// weight archive from a fixed URL into the bootstrap home, with an optional
// SHA-256 integrity check.
package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/nk/detstrap/internal/config"
	"github.com/nk/detstrap/internal/ctxlog"
	"github.com/nk/detstrap/internal/fsutil"
	"github.com/nk/detstrap/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// httpClient is shared by all download executions to reuse TCP connections.
// Cancellation comes from the step context; weight archives are large, so
// no client-level timeout is set.
var httpClient = &http.Client{}

// Input defines the arguments for a download step.
type Input struct {
	URL string `hcl:"url"`
	// SHA256 is an optional hex digest the downloaded body must match.
	SHA256 string `hcl:"sha256,optional"`
}

// OnRunDownload is the handler for the 'download' step kind.
func OnRunDownload(ctx context.Context, env *registry.Env, input *Input) (*registry.Result, error) {
	logger := ctxlog.FromContext(ctx)

	base, err := urlBasename(input.URL)
	if err != nil {
		return nil, err
	}
	dest := filepath.Join(env.Home, base)

	// Resolve the conflict policy before touching the network: a skip must
	// not cost a download, and a fail must not clobber anything.
	if _, err := os.Lstat(dest); err == nil {
		switch env.OnConflict {
		case config.Skip:
			logger.Info("Destination exists, skipping download per conflict policy.", "dest", dest)
			return &registry.Result{
				Artifacts: []registry.Artifact{{Path: dest, Skipped: true}},
				Summary:   fmt.Sprintf("skipped %s (already present)", base),
			}, nil
		case config.Fail:
			return nil, fmt.Errorf("destination %s already exists", dest)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to stat destination %s: %w", dest, err)
	}

	logger.Info("Downloading archive.", "url", input.URL, "dest", dest)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, input.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create download request: %w", err)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", input.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("download of %s failed with status: %s", input.URL, resp.Status)
	}

	written, digest, _, err := fsutil.WriteFileAtomic(env.Home, base, resp.Body, env.OnConflict)
	if err != nil {
		return nil, fmt.Errorf("failed to store download %s: %w", base, err)
	}

	if want := strings.ToLower(input.SHA256); want != "" && want != digest {
		// The corrupt file must not survive the failed step.
		os.Remove(written)
		return nil, fmt.Errorf("checksum mismatch for %s: want sha256 %s, got %s", base, want, digest)
	}

	logger.Info("Download complete.", "dest", written, "sha256", digest, "bytes", resp.ContentLength)
	return &registry.Result{
		Artifacts: []registry.Artifact{{Path: written, SHA256: digest}},
		Summary:   fmt.Sprintf("downloaded %s", base),
	}, nil
}

// urlBasename extracts the destination file name from a download URL.
func urlBasename(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid download URL %q: %w", rawURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("download URL %q must be http or https", rawURL)
	}
	base := path.Base(u.Path)
	if base == "." || base == "/" || base == "" {
		return "", fmt.Errorf("download URL %q has no file name in its path", rawURL)
	}
	return base, nil
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterStep("download", &registry.RegisteredStep{
		NewInput: func() any { return new(Input) },
		Fn: func(ctx context.Context, env *registry.Env, input any) (*registry.Result, error) {
			return OnRunDownload(ctx, env, input.(*Input))
		},
	})
}
