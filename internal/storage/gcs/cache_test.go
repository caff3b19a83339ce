package gcs

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"testing"

	"cloud.google.com/go/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

type roundTripperFunc func(req *http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func respond(r *http.Request, status int, body string) *http.Response {
	return &http.Response{
		StatusCode:    status,
		Body:          io.NopCloser(strings.NewReader(body)),
		ContentLength: int64(len(body)),
		Header:        http.Header{"Content-Length": {strconv.Itoa(len(body))}},
		Request:       r,
	}
}

func newTestCache(t *testing.T, fn roundTripperFunc) *Cache {
	t.Helper()
	client, err := storage.NewClient(
		context.Background(),
		option.WithoutAuthentication(),
		option.WithHTTPClient(&http.Client{Transport: fn}),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	cache, err := New(client, Config{Bucket: "test-bucket", Prefix: "/pages/"}, zap.NewNop())
	require.NoError(t, err)
	return cache
}

func TestNewValidates(t *testing.T) {
	_, err := New(nil, Config{Bucket: "b"}, nil)
	require.Error(t, err)

	client, err := storage.NewClient(context.Background(), option.WithoutAuthentication())
	require.NoError(t, err)
	defer client.Close()
	_, err = New(client, Config{Bucket: " "}, nil)
	require.Error(t, err)
}

func TestObjectName(t *testing.T) {
	cache := newTestCache(t, func(r *http.Request) (*http.Response, error) {
		return respond(r, http.StatusNotFound, ""), nil
	})
	assert.Equal(t, "pages/example.com_a_b.html", cache.ObjectName("https://example.com/a/b"))
}

func TestGetHit(t *testing.T) {
	cache := newTestCache(t, func(r *http.Request) (*http.Response, error) {
		if r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "pages/example.com_.html") {
			return respond(r, http.StatusOK, "<html>cached</html>"), nil
		}
		return respond(r, http.StatusNotFound, ""), nil
	})

	body, ok := cache.Get(context.Background(), "https://example.com/")
	require.True(t, ok)
	assert.Equal(t, "<html>cached</html>", body)
}

func TestGetEmptyObjectIsHit(t *testing.T) {
	cache := newTestCache(t, func(r *http.Request) (*http.Response, error) {
		if r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "pages/example.com_empty.html") {
			return respond(r, http.StatusOK, ""), nil
		}
		return respond(r, http.StatusNotFound, ""), nil
	})

	body, ok := cache.Get(context.Background(), "https://example.com/empty")
	require.True(t, ok)
	assert.Empty(t, body)
}

func TestGetMissAndFailure(t *testing.T) {
	missing := newTestCache(t, func(r *http.Request) (*http.Response, error) {
		return respond(r, http.StatusNotFound, ""), nil
	})
	_, ok := missing.Get(context.Background(), "https://example.com/")
	assert.False(t, ok)

	broken := newTestCache(t, func(r *http.Request) (*http.Response, error) {
		return respond(r, http.StatusForbidden, "denied"), nil
	})
	_, ok = broken.Get(context.Background(), "https://example.com/")
	assert.False(t, ok)
}

func TestPutUploadsObject(t *testing.T) {
	var uploaded string
	cache := newTestCache(t, func(r *http.Request) (*http.Response, error) {
		assert.Contains(t, r.URL.Path, "/upload/storage/v1/b/test-bucket/o")
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		uploaded = string(body)
		return respond(r, http.StatusOK, `{"name":"pages/example.com_.html","bucket":"test-bucket"}`), nil
	})

	require.NoError(t, cache.Put(context.Background(), "https://example.com/", "<html>fresh</html>"))
	assert.Contains(t, uploaded, "<html>fresh</html>")
	assert.Contains(t, uploaded, "pages/example.com_.html")
}

func TestPutFailure(t *testing.T) {
	cache := newTestCache(t, func(r *http.Request) (*http.Response, error) {
		return respond(r, http.StatusInternalServerError, `{"error":{"code":500,"message":"boom"}}`), nil
	})
	assert.Error(t, cache.Put(context.Background(), "https://example.com/", "body"))
}
