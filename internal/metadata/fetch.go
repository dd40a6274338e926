package metadata

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mmlb/packethost-packet-networking/internal/brand"
)

// maxDocumentSize bounds the metadata body read from the network.
const maxDocumentSize = 8 << 20

// Fetch retrieves a metadata document over HTTP. It performs a single
// request; callers decide whether a failure is worth retrying.
func Fetch(ctx context.Context, url string, timeout time.Duration) ([]byte, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build metadata request: %w", err)
	}
	req.Header.Set("User-Agent", brand.UserAgent())
	req.Header.Set("Accept", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch metadata from %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch metadata from %s: unexpected status %s", url, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize+1))
	if err != nil {
		return nil, fmt.Errorf("read metadata body: %w", err)
	}
	if len(body) > maxDocumentSize {
		return nil, fmt.Errorf("metadata document exceeds %d bytes", maxDocumentSize)
	}
	return body, nil
}
