// file: internal/adapter/relation/httpapi/client_test.go

package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"VizQuery/internal/core/domain"
	"VizQuery/internal/core/port"

	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, hits *atomic.Int64) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/data/sources/sales/data", func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"region":"East","amount":10},{"region":"West","amount":7}]}`))
	})
	mux.HandleFunc("/data/organizations/acme/projects/p1/data-sources/scoped/data", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"x":1}]}`))
	})
	mux.HandleFunc("/data/sources/empty/data", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":null}`))
	})
	mux.HandleFunc("/data/sources/gone/data", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/data/sources/secret/data", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	mux.HandleFunc("/data/sources/broken/data", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestFetch_Success(t *testing.T) {
	var hits atomic.Int64
	srv := newTestServer(t, &hits)
	c, err := New(srv.URL, 5*time.Second)
	require.NoError(t, err)

	rel, err := c.Fetch(context.Background(), domain.SourceConfig{ID: "sales"})
	require.NoError(t, err)
	require.Len(t, rel, 2)
	require.Equal(t, "East", rel[0]["region"])
	require.Equal(t, float64(10), rel[0]["amount"], "JSON 数字解码为 float64")
}

func TestFetch_DatasetCacheDeduplicates(t *testing.T) {
	var hits atomic.Int64
	srv := newTestServer(t, &hits)
	c, err := New(srv.URL, 5*time.Second)
	require.NoError(t, err)

	ctx := context.Background()
	src := domain.SourceConfig{ID: "sales"}
	_, err = c.Fetch(ctx, src)
	require.NoError(t, err)
	_, err = c.Fetch(ctx, src)
	require.NoError(t, err)
	require.Equal(t, int64(1), hits.Load(), "短 TTL 内重复取数应命中本地缓存")

	c.InvalidateDataset(src)
	_, err = c.Fetch(ctx, src)
	require.NoError(t, err)
	require.Equal(t, int64(2), hits.Load(), "失效后重新请求远端")
}

func TestFetch_ProjectScopedPath(t *testing.T) {
	var hits atomic.Int64
	srv := newTestServer(t, &hits)
	c, err := New(srv.URL, 5*time.Second)
	require.NoError(t, err)

	rel, err := c.Fetch(context.Background(), domain.SourceConfig{
		ID: "scoped", OrgID: "acme", ProjectID: "p1",
	})
	require.NoError(t, err)
	require.Len(t, rel, 1)
}

func TestFetch_ErrorMapping(t *testing.T) {
	var hits atomic.Int64
	srv := newTestServer(t, &hits)
	c, err := New(srv.URL, 5*time.Second)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = c.Fetch(ctx, domain.SourceConfig{ID: "gone"})
	require.ErrorIs(t, err, port.ErrSourceNotFound)

	_, err = c.Fetch(ctx, domain.SourceConfig{ID: "secret"})
	require.ErrorIs(t, err, port.ErrPermissionDenied)

	_, err = c.Fetch(ctx, domain.SourceConfig{ID: "broken"})
	require.ErrorIs(t, err, port.ErrRelationUnavailable)
}

func TestFetch_NullDataIsEmptyRelation(t *testing.T) {
	var hits atomic.Int64
	srv := newTestServer(t, &hits)
	c, err := New(srv.URL, 5*time.Second)
	require.NoError(t, err)

	rel, err := c.Fetch(context.Background(), domain.SourceConfig{ID: "empty"})
	require.NoError(t, err)
	require.NotNil(t, rel)
	require.Len(t, rel, 0)
}

func TestNew_Validation(t *testing.T) {
	_, err := New("", 0)
	require.Error(t, err)
}

func TestHealthCheck(t *testing.T) {
	var hits atomic.Int64
	srv := newTestServer(t, &hits)
	c, err := New(srv.URL, 5*time.Second)
	require.NoError(t, err)
	// /health 未注册返回 404，仍视为服务可达
	require.NoError(t, c.HealthCheck(context.Background()))
}
