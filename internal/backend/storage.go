package backend

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/anle/alumnet/internal/remoteerr"
)

// AvatarBucket is the public bucket holding profile images.
const AvatarBucket = "avatars"

// Upload streams an object into bucket at objectPath and returns the object
// path, the value a record's storage-path column holds. Existing objects at
// the same path are replaced. Use PublicURL to derive a display URL.
func (c *Client) Upload(ctx context.Context, bucket, objectPath string, r io.Reader, contentType string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.WriteTimeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/storage/v1/object/%s/%s", c.baseURL, bucket, objectPath)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, r)
	if err != nil {
		return "", err
	}
	c.applyHeaders(req, false)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-upsert", "true")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", remoteerr.Normalize(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return "", remoteerr.FromResponse(resp.StatusCode, body)
	}
	return objectPath, nil
}

// PublicURL returns the unauthenticated URL for an object in a public
// bucket. No request is made; the layout is fixed by the hosted product.
func (c *Client) PublicURL(bucket, objectPath string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", c.baseURL, bucket, objectPath)
}
