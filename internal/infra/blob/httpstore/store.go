// Package httpstore implements a read-only blob store over a static HTTP origin,
// such as the raw file host of a published dataset repository.
package httpstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"dorkroom/internal/blob/core"
)

const (
	// DefaultBaseURL is the published community dataset.
	DefaultBaseURL = "https://raw.githubusercontent.com/narrowstacks/dorkroom-static-api/main/"
	// DefaultTimeout bounds a single request.
	DefaultTimeout = 15 * time.Second

	maxBlobBytes = 64 << 20
)

// Store implements core.Store by issuing GET and HEAD requests relative to a
// base URL. Mutating operations return core.ErrReadOnly.
type Store struct {
	client *http.Client
	base   *url.URL
}

// New returns a store rooted at baseURL. An empty baseURL selects
// DefaultBaseURL; a non-positive timeout selects DefaultTimeout.
func New(baseURL string, timeout time.Duration) (*Store, error) {
	return NewWithClient(baseURL, &http.Client{Timeout: orDefault(timeout)})
}

// NewWithClient returns a store using the provided client (for testing).
func NewWithClient(baseURL string, client *http.Client) (*Store, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url %q must be http or https", baseURL)
	}
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	return &Store{client: client, base: u}, nil
}

func orDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return DefaultTimeout
	}
	return d
}

func (s *Store) Driver() core.Driver { return core.DriverHTTP }

// BaseURL returns the origin keys are resolved against.
func (s *Store) BaseURL() string { return s.base.String() }

func (s *Store) resolve(key string) (string, error) {
	if strings.TrimSpace(key) == "" || strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid key %q", key)
	}
	ref, err := url.Parse(strings.TrimPrefix(key, "/"))
	if err != nil {
		return "", fmt.Errorf("invalid key %q: %w", key, err)
	}
	return s.base.ResolveReference(ref).String(), nil
}

func (s *Store) do(ctx context.Context, method, key string) (*http.Response, error) {
	reqURL, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := s.client.Do(req) //nolint:gosec // URL built from configured base
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, reqURL, err)
	}
	switch {
	case resp.StatusCode == http.StatusOK:
		return resp, nil
	case resp.StatusCode == http.StatusNotFound:
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%w: %s", core.ErrNotFound, key)
	default:
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%s %s: unexpected status %d", method, reqURL, resp.StatusCode)
	}
}

func (s *Store) Get(ctx context.Context, key string) (core.Info, io.ReadCloser, error) {
	resp, err := s.do(ctx, http.MethodGet, key)
	if err != nil {
		return core.Info{}, nil, err
	}
	defer resp.Body.Close() //nolint:errcheck
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBlobBytes+1))
	if err != nil {
		return core.Info{}, nil, fmt.Errorf("read %s: %w", key, err)
	}
	if len(body) > maxBlobBytes {
		return core.Info{}, nil, fmt.Errorf("%s exceeds %d bytes", key, maxBlobBytes)
	}
	info := infoFrom(key, resp)
	info.Size = int64(len(body))
	return info, io.NopCloser(bytes.NewReader(body)), nil
}

func (s *Store) Head(ctx context.Context, key string) (core.Info, error) {
	resp, err := s.do(ctx, http.MethodHead, key)
	if err != nil {
		return core.Info{}, err
	}
	_ = resp.Body.Close()
	return infoFrom(key, resp), nil
}

func (s *Store) Put(context.Context, string, io.Reader, core.PutOptions) (core.Info, error) {
	return core.Info{}, core.ErrReadOnly
}

func (s *Store) Delete(context.Context, string) (bool, error) { return false, core.ErrReadOnly }

// List is unsupported: static origins expose no directory listing.
func (s *Store) List(context.Context, string) ([]core.Info, error) {
	return nil, core.ErrUnsupported
}

func infoFrom(key string, resp *http.Response) core.Info {
	info := core.Info{
		Key:         key,
		Size:        resp.ContentLength,
		ContentType: resp.Header.Get("Content-Type"),
		ETag:        strings.Trim(resp.Header.Get("ETag"), "\""),
	}
	if lm, err := http.ParseTime(resp.Header.Get("Last-Modified")); err == nil {
		info.LastModified = lm.UTC()
	}
	return info
}
