package fetch_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"marketsync/internal/endpoint"
	"marketsync/internal/fetch"
	"marketsync/internal/ratelimit"
)

func batchDescriptors(n int) []endpoint.Descriptor {
	eps := make([]endpoint.Descriptor, n)
	for i := range eps {
		name := fmt.Sprintf("ep%d", i)
		eps[i] = endpoint.Descriptor{
			Name:       name,
			Path:       "v1/" + name + "?key={api_key}",
			OutputFile: name + ".json",
		}
	}
	return eps
}

func TestFetchAll_FailureIsolation(t *testing.T) {
	t.Parallel()

	// Arrange: five endpoints; ep2 hangs past the client timeout.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/ep2" {
			time.Sleep(500 * time.Millisecond)
		}
		fmt.Fprintf(w, `{"path":%q}`, r.URL.Path)
	}))
	defer srv.Close()

	client, err := fetch.NewClient(srv.URL, "secret",
		fetch.WithTimeout(100*time.Millisecond))
	require.NoError(t, err)

	orch := &fetch.Orchestrator{
		Client: client,
		Limit:  2,
		Log:    zerolog.Nop(),
	}

	// Act: fetch the batch.
	results := orch.FetchAll(t.Context(), batchDescriptors(5))
	require.Len(t, results, 5)

	// Assert: results map back to their endpoints in input order, the slow
	// endpoint fails, and the other four still succeed.
	for i, res := range results {
		require.Equal(t, fmt.Sprintf("ep%d", i), res.Endpoint.Name)
		if i == 2 {
			require.Error(t, res.Err)
			require.Nil(t, res.Data)
			continue
		}
		require.NoErrorf(t, res.Err, "endpoint %s: %v", res.Endpoint.Name, res.Err)
		obj, ok := res.Data.(map[string]any)
		require.True(t, ok)
		require.Equal(t, "/v1/"+res.Endpoint.Name, obj["path"])
	}
}

func TestFetchAll_ConcurrencyBound(t *testing.T) {
	t.Parallel()

	var inflight, peak atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cur := inflight.Add(1)
		defer inflight.Add(-1)
		for {
			old := peak.Load()
			if cur <= old || peak.CompareAndSwap(old, cur) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		fmt.Fprint(w, "{}")
	}))
	defer srv.Close()

	client, err := fetch.NewClient(srv.URL, "secret")
	require.NoError(t, err)

	orch := &fetch.Orchestrator{
		Client: client,
		Limit:  2,
		Log:    zerolog.Nop(),
	}

	results := orch.FetchAll(t.Context(), batchDescriptors(6))
	for _, res := range results {
		require.NoError(t, res.Err)
	}
	require.LessOrEqual(t, peak.Load(), int64(2), "more than 2 requests in flight")
}

func TestFetchAll_AppliesLimiter(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var stamps []time.Time
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		stamps = append(stamps, time.Now())
		mu.Unlock()
		fmt.Fprint(w, "{}")
	}))
	defer srv.Close()

	client, err := fetch.NewClient(srv.URL, "secret")
	require.NoError(t, err)

	orch := &fetch.Orchestrator{
		Client:  client,
		Limit:   4,
		Limiter: &ratelimit.MinInterval{Interval: 30 * time.Millisecond},
		Log:     zerolog.Nop(),
	}

	start := time.Now()
	results := orch.FetchAll(t.Context(), batchDescriptors(3))
	for _, res := range results {
		require.NoError(t, res.Err)
	}
	// Three requests at a 30ms floor need at least 60ms of spacing.
	require.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond)
	require.Len(t, stamps, 3)
}
