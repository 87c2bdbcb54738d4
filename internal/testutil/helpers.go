// Package testutil holds helpers shared by HTTP-level tests.
package testutil

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/juju/clock/testclock"

	"github.com/TimurManjosov/flagship-core/internal/api"
	"github.com/TimurManjosov/flagship-core/internal/store"
)

// Epoch is the start time of the test clock returned by NewTestServer.
var Epoch = time.Date(2024, 1, 1, 0, 7, 0, 0, time.UTC)

// TestEnv bundles an API server with its in-memory job store and clock.
type TestEnv struct {
	Server *api.Server
	Store  *store.MemoryStore
	Clock  *testclock.Clock
}

// NewTestServer creates a test server backed by an in-memory store on a test clock.
func NewTestServer(t *testing.T, adminKey string) *TestEnv {
	t.Helper()
	clk := testclock.NewClock(Epoch)
	memStore := store.NewMemoryStore(clk)
	return &TestEnv{
		Server: api.NewServer(nil, memStore, adminKey, nil),
		Store:  memStore,
		Clock:  clk,
	}
}

// HTTPRequest is a helper for making test HTTP requests.
type HTTPRequest struct {
	Method  string
	Path    string
	Body    string
	Headers map[string]string
}

// Do executes the HTTP request and returns the response recorder.
func (r *HTTPRequest) Do(t *testing.T, handler http.Handler) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if r.Body != "" {
		body = bytes.NewBufferString(r.Body)
	}
	req := httptest.NewRequest(r.Method, r.Path, body)
	if r.Body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range r.Headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

// SeedJobs claims and completes n consecutive buckets of name, advancing clk by size
// after each one.
func SeedJobs(ctx context.Context, st store.JobStore, clk *testclock.Clock, name string, n int, size time.Duration) error {
	for i := 0; i < n; i++ {
		job, err := st.AcquireBucket(ctx, name, size)
		if err != nil {
			return err
		}
		if job != nil {
			patch := store.Patch{Stage: store.StageCompleted, FinishedAt: clk.Now()}
			if err := st.Update(ctx, job.Name, job.Bucket, patch); err != nil {
				return err
			}
		}
		clk.Advance(size)
	}
	return nil
}
