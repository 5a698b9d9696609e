package bucket

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestClient(srvURL string) *Client {
	return &Client{
		httpClient:    &http.Client{Timeout: time.Second},
		baseURL:       srvURL,
		apiKey:        "test-key",
		defaultBucket: "receipts",
	}
}

func TestUploadSuccess(t *testing.T) {
	t.Parallel()

	var gotMethod, gotPath, gotAuth, gotContentType, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	urlStr, err := client.Upload(context.Background(), "", "receipts/abc_123.jpg", "image/jpeg", strings.NewReader("payload"))
	if err != nil {
		t.Fatalf("Upload returned error: %v", err)
	}

	if gotMethod != http.MethodPut {
		t.Fatalf("unexpected method %s", gotMethod)
	}
	if gotPath != "/receipts/receipts/abc_123.jpg" {
		t.Fatalf("unexpected path %s", gotPath)
	}
	if gotAuth != "Bearer test-key" {
		t.Fatalf("unexpected authorization %q", gotAuth)
	}
	if gotContentType != "image/jpeg" {
		t.Fatalf("unexpected content type %q", gotContentType)
	}
	if gotBody != "payload" {
		t.Fatalf("unexpected body %q", gotBody)
	}
	if !strings.HasSuffix(urlStr, "/receipts/receipts/abc_123.jpg") {
		t.Fatalf("unexpected object url %s", urlStr)
	}
}

func TestUploadServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bucket unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	_, err := client.Upload(context.Background(), "", "x.jpg", "image/jpeg", strings.NewReader("x"))
	if err == nil {
		t.Fatal("expected error for 503 response")
	}
	if !strings.Contains(err.Error(), "bucket unavailable") {
		t.Fatalf("expected response body in error, got %v", err)
	}
}

func TestUploadRequiresObjectPath(t *testing.T) {
	t.Parallel()

	client := newTestClient("http://localhost")
	if _, err := client.Upload(context.Background(), "", "", "image/jpeg", strings.NewReader("x")); err == nil {
		t.Fatal("expected error for empty object path")
	}
}

func TestPing(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("max-keys") != "1" {
			t.Errorf("expected max-keys=1, got %s", r.URL.RawQuery)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("Ping returned error: %v", err)
	}
}
