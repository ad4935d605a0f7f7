package blob

import (
	"bytes"
	"context"
	"errors"
	"testing"
)

func TestOpen_Drivers(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		opts Options
		want Driver
	}{
		{Options{FSRoot: t.TempDir()}, DriverFilesystem},
		{Options{Driver: DriverMemory}, DriverMemory},
		{Options{Driver: DriverHTTP, HTTPBaseURL: "https://example.com/data/"}, DriverHTTP},
		{Options{Driver: DriverS3, S3: S3Config{Bucket: "films", Region: "eu-west-1"}}, DriverS3},
	}
	for _, tc := range cases {
		store, err := Open(ctx, tc.opts)
		if err != nil {
			t.Fatalf("Open(%s): %v", tc.want, err)
		}
		if store.Driver() != tc.want {
			t.Fatalf("expected %s, got %s", tc.want, store.Driver())
		}
	}
	if _, err := Open(ctx, Options{Driver: "gcs"}); err == nil {
		t.Fatalf("expected unknown driver error")
	}
}

func TestMockS3ThroughFacade(t *testing.T) {
	ctx := context.Background()
	store := NewMockS3ForTests()
	if _, err := store.Put(ctx, "formats.json", bytes.NewReader([]byte("[]")), PutOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := store.Put(ctx, "formats.json", bytes.NewReader([]byte("[]")), PutOptions{}); !errors.Is(err, ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
}
