package blob

import (
	"time"

	"dorkroom/internal/infra/blob/httpstore"
)

// DefaultHTTPBaseURL is the published dataset location read by the HTTP driver.
const DefaultHTTPBaseURL = httpstore.DefaultBaseURL

// NewHTTP returns a read-only blob.Store that fetches keys relative to baseURL.
func NewHTTP(baseURL string, timeout time.Duration) (Store, error) {
	return httpstore.New(baseURL, timeout)
}
