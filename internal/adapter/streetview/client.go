package streetview

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const defaultImageURL = "https://maps.googleapis.com/maps/api/streetview"

// Client fetches Street View Static API images to local files.
type Client struct {
	apiKey     string
	imagesDir  string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a Street View client that saves images under
// outputDir/images.
func NewClient(apiKey, outputDir string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		apiKey:    apiKey,
		imagesDir: filepath.Join(outputDir, "images"),
		baseURL:   defaultImageURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// FetchImage downloads the street-level photo at the coordinates and returns
// the saved file's path. name seeds the filename and gets sanitized.
func (c *Client) FetchImage(ctx context.Context, lat, lon float64, name string) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("street view API key not configured")
	}

	params := url.Values{
		"size":              {"600x400"},
		"location":          {fmt.Sprintf("%f,%f", lat, lon)},
		"key":               {c.apiKey},
		"return_error_code": {"true"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("street view request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("street view error: status %d", resp.StatusCode)
	}

	if err := os.MkdirAll(c.imagesDir, 0o750); err != nil {
		return "", fmt.Errorf("create images directory: %w", err)
	}

	filename := fmt.Sprintf("%s_%s.jpg", sanitize(name), time.Now().UTC().Format("20060102_150405"))
	path := filepath.Join(c.imagesDir, filename)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create image file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("save image: %w", err)
	}

	c.logger.Debug("saved street view image", "path", path)
	return path, nil
}

// sanitize keeps alphanumerics, spaces, hyphens, and underscores so the
// filename stays portable.
func sanitize(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_':
			b.WriteRune(r)
		}
	}
	s := strings.TrimSpace(b.String())
	if s == "" {
		return "dig-site"
	}
	return s
}
