package httpstore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"dorkroom/internal/blob/core"
)

func newTestStore(t *testing.T, handler http.HandlerFunc) *Store {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	s, err := NewWithClient(srv.URL+"/dataset", srv.Client())
	if err != nil {
		t.Fatalf("NewWithClient: %v", err)
	}
	return s
}

func TestStore_GetAndHead(t *testing.T) {
	s := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/dataset/film_stocks.json" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("ETag", `"abc"`)
		_, _ = w.Write([]byte(`[]`))
	})
	ctx := context.Background()
	info, rc, err := s.Get(ctx, "film_stocks.json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	b, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(b) != "[]" || info.ETag != "abc" || info.Size != 2 {
		t.Fatalf("unexpected get result %+v %q", info, b)
	}
	if _, err := s.Head(ctx, "film_stocks.json"); err != nil {
		t.Fatalf("head: %v", err)
	}
	if _, _, err := s.Get(ctx, "developers.json"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_ServerError(t *testing.T) {
	s := newTestStore(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	_, _, err := s.Get(context.Background(), "formats.json")
	if err == nil || errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestStore_ReadOnly(t *testing.T) {
	s, err := New("", 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if s.BaseURL() != DefaultBaseURL {
		t.Fatalf("unexpected base %q", s.BaseURL())
	}
	ctx := context.Background()
	if _, err := s.Put(ctx, "x", bytes.NewReader(nil), core.PutOptions{}); !errors.Is(err, core.ErrReadOnly) {
		t.Fatalf("expected ErrReadOnly from put, got %v", err)
	}
	if _, err := s.Delete(ctx, "x"); !errors.Is(err, core.ErrReadOnly) {
		t.Fatalf("expected ErrReadOnly from delete, got %v", err)
	}
	if _, err := s.List(ctx, ""); !errors.Is(err, core.ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported from list, got %v", err)
	}
	if _, _, err := s.Get(ctx, "../etc/passwd"); err == nil {
		t.Fatalf("expected traversal key to be rejected")
	}
}

func TestNew_RejectsBadScheme(t *testing.T) {
	if _, err := New("ftp://example.com/", 0); err == nil {
		t.Fatalf("expected scheme error")
	}
}
