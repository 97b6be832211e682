package api

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/ssargent/strata/pkg/kv/boltkv"
	"github.com/ssargent/strata/pkg/logger"
	"github.com/ssargent/strata/pkg/metrics"
	"github.com/ssargent/strata/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "test-key"

// setupTestServer serves a bolt-backed store holding three raw entries, two
// under key prefix 7 and one under key prefix 9.
func setupTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	env, err := boltkv.Open(filepath.Join(t.TempDir(), "strata.db"), boltkv.Options{NoSync: true})
	require.NoError(t, err)
	t.Cleanup(func() { env.Close() })

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	s := store.New(env, store.Options{Metrics: m})
	require.NoError(t, s.Update(context.Background(), func(tx *store.Tx) error {
		w := rawWriter{tx}
		w.put(t, 7, "a", 1)
		w.put(t, 7, "b", 1)
		w.put(t, 9, "c", 2)
		return nil
	}))

	server := NewServer(s, ServerConfig{APIKey: testKey}, m, logger.NewBufferLogger())
	ts := httptest.NewServer(NewRouter(server, reg))
	t.Cleanup(ts.Close)
	return ts
}

// rawWriter stores entries through a dump round trip, the only raw write
// path the store exposes.
type rawWriter struct{ tx *store.Tx }

func (w rawWriter) put(t *testing.T, prefix uint32, key string, version uint32) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "entry.dump")
	d, err := store.CreateDump(path)
	require.NoError(t, err)
	k := append(binary.BigEndian.AppendUint32(nil, prefix), key...)
	v := binary.BigEndian.AppendUint32(nil, version)
	_, err = d.Put(k, v)
	require.NoError(t, err)
	require.NoError(t, d.Close())

	r, err := store.OpenDump(path)
	require.NoError(t, err)
	defer r.Close()
	_, err = w.tx.Import(r)
	require.NoError(t, err)
}

func get(t *testing.T, ts *httptest.Server, path string, key string) (int, APIResponse) {
	t.Helper()
	req, err := http.NewRequest("GET", ts.URL+path, nil)
	require.NoError(t, err)
	if key != "" {
		req.Header.Set("X-API-Key", key)
	}
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out APIResponse
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp.StatusCode, out
}

func TestHealth(t *testing.T) {
	ts := setupTestServer(t)

	code, resp := get(t, ts, "/api/v1/health", testKey)
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, resp.Success)
	assert.Equal(t, "healthy", resp.Data.(map[string]interface{})["status"])

	code, resp = get(t, ts, "/api/v1/health", "")
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.False(t, resp.Success)
}

func TestStats(t *testing.T) {
	ts := setupTestServer(t)

	code, resp := get(t, ts, "/api/v1/stats", testKey)
	require.Equal(t, http.StatusOK, code)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, float64(3), data["entries"])
	prefixes := data["prefixes"].([]interface{})
	require.Len(t, prefixes, 2)
	assert.Equal(t, float64(7), prefixes[0].(map[string]interface{})["key_prefix"])
	assert.Equal(t, float64(2), prefixes[0].(map[string]interface{})["entries"])
}

func TestScan(t *testing.T) {
	ts := setupTestServer(t)

	prefix := hex.EncodeToString(binary.BigEndian.AppendUint32(nil, 7))
	code, resp := get(t, ts, "/api/v1/scan?prefix="+prefix, testKey)
	require.Equal(t, http.StatusOK, code)
	entries := resp.Data.([]interface{})
	require.Len(t, entries, 2)
	first := entries[0].(map[string]interface{})
	assert.Equal(t, prefix+hex.EncodeToString([]byte("a")), first["key"])
	assert.Equal(t, float64(1), first["fields_version"])

	code, resp = get(t, ts, "/api/v1/scan?limit=1", testKey)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, resp.Data.([]interface{}), 1)

	code, _ = get(t, ts, "/api/v1/scan?prefix=zz", testKey)
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = get(t, ts, "/api/v1/scan?limit=0", testKey)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestTypes(t *testing.T) {
	ts := setupTestServer(t)

	code, resp := get(t, ts, "/api/v1/types/9", testKey)
	require.Equal(t, http.StatusOK, code)
	entries := resp.Data.([]interface{})
	require.Len(t, entries, 1)
	assert.Equal(t, float64(9), entries[0].(map[string]interface{})["key_prefix"])

	code, resp = get(t, ts, "/api/v1/types/8", testKey)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, resp.Data)

	code, _ = get(t, ts, "/api/v1/types/-1", testKey)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := setupTestServer(t)
	get(t, ts, "/api/v1/stats", testKey)

	resp, err := ts.Client().Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	buf := new(bytes.Buffer)
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `strata_http_requests_total{endpoint="/api/v1/stats",method="GET",status_code="200"} 1`)
	assert.Contains(t, buf.String(), "strata_records_total 3")
}

type failingInspector struct{}

func (failingInspector) Stats(context.Context) (*store.Stats, error) {
	return nil, errors.New("disk on fire")
}

func (failingInspector) Scan(context.Context, []byte, int) ([]store.Entry, error) {
	return nil, errors.New("disk on fire")
}

func TestStoreErrors(t *testing.T) {
	s := NewServer(failingInspector{}, ServerConfig{}, nil, nil)
	ts := httptest.NewServer(NewRouter(s, prometheus.NewRegistry()))
	defer ts.Close()

	code, resp := get(t, ts, "/api/v1/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Contains(t, resp.Error, "disk on fire")

	code, _ = get(t, ts, "/api/v1/stats", "")
	assert.Equal(t, http.StatusInternalServerError, code)
}

func TestStartServerShutsDown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		errc <- StartServer(ctx, failingInspector{}, ServerConfig{Bind: "127.0.0.1", Port: 0}, nil, prometheus.NewRegistry(), nil)
	}()
	cancel()
	assert.NoError(t, <-errc)
}
