package imagefetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/casaluz/incidents-backend/internal/platform/envutil"
	"github.com/casaluz/incidents-backend/internal/platform/logger"
)

// Fetcher retrieves evidence image bytes from the upload collaborator's
// stable URLs. The report renderer is handed the bytes and never touches
// the network itself.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

const maxImageBytes = 20 << 20

type fetcher struct {
	log        *logger.Logger
	httpClient *http.Client
}

func New(log *logger.Logger) Fetcher {
	return &fetcher{
		log: log.With("client", "ImageFetcher"),
		httpClient: &http.Client{
			Timeout: envutil.Seconds("IMAGE_FETCH_TIMEOUT_SECONDS", 20),
		},
	}
}

func (f *fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, fmt.Errorf("imagefetch: empty url")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("imagefetch: %w", err)
	}

	started := time.Now()
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("imagefetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("imagefetch: http %d fetching %s", resp.StatusCode, url)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("imagefetch: read body: %w", err)
	}
	if len(raw) > maxImageBytes {
		return nil, fmt.Errorf("imagefetch: image exceeds %d bytes", maxImageBytes)
	}

	f.log.Debug("Fetched image", "bytes", len(raw), "elapsed", time.Since(started).String())
	return raw, nil
}
