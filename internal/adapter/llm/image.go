package llm

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
)

const (
	defaultImageMIME = "image/jpeg"
	maxImageBytes    = 20 << 20
)

var dataURLPrefix = regexp.MustCompile(`^data:(image/[\w.+-]+);base64,`)

// DataURL normalises an image payload to a data URL. Payloads that already
// carry a data:image/...;base64, header keep their MIME type; bare base64 is
// labelled image/jpeg.
func DataURL(image string) string {
	image = strings.TrimSpace(image)
	if m := dataURLPrefix.FindStringSubmatch(image); m != nil {
		return "data:" + m[1] + ";base64," + image[len(m[0]):]
	}
	return "data:" + defaultImageMIME + ";base64," + image
}

// IsRemote reports whether image is an http(s) URL rather than inline data.
func IsRemote(image string) bool {
	image = strings.TrimSpace(image)
	return strings.HasPrefix(image, "http://") || strings.HasPrefix(image, "https://")
}

// ImageFetcher downloads remote images so they can be sent inline.
type ImageFetcher struct {
	client *http.Client
}

func NewImageFetcher(client *http.Client) *ImageFetcher {
	if client == nil {
		client = &http.Client{Timeout: requestTimeout}
	}
	return &ImageFetcher{client: client}
}

// Fetch returns the image at url as a data URL, using the response
// Content-Type when it names an image.
func (f *ImageFetcher) Fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build image request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch image %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch image %s: status %d", url, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return "", fmt.Errorf("read image %s: %w", url, err)
	}
	if len(data) > maxImageBytes {
		return "", fmt.Errorf("image %s exceeds %d bytes", url, maxImageBytes)
	}

	mime := defaultImageMIME
	if ct := strings.TrimSpace(strings.Split(resp.Header.Get("Content-Type"), ";")[0]); strings.HasPrefix(ct, "image/") {
		mime = ct
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}
