package nilu

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"airquality-gateway/internal/airquality"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func serve(t *testing.T, status int, body string) (*httptest.Server, <-chan *http.Request) {
	t.Helper()
	reqs := make(chan *http.Request, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case reqs <- r.Clone(context.Background()):
		default:
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, reqs
}

func TestFetch_DecodesArray(t *testing.T) {
	srv, reqs := serve(t, http.StatusOK, `[{"component":"PM10","value":12.5},{"component":"NO2","value":8.1}]`)
	c := NewClient(Options{UserAgent: "someone@example.com"}, discardLogger())

	records, err := c.Fetch(context.Background(), srv.URL+"/aq/utd?stations=Kirkeveien")
	require.NoError(t, err)

	require.Len(t, records, 2)
	assert.Equal(t, "PM10", records[0]["component"])
	assert.Equal(t, 12.5, records[0]["value"])
	assert.Equal(t, "NO2", records[1]["component"])

	req := <-reqs
	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, "/aq/utd", req.URL.Path)
	assert.Equal(t, "Kirkeveien", req.URL.Query().Get("stations"))
	assert.Equal(t, "Private use only - someone@example.com", req.Header.Get("User-Agent"))
}

func TestFetch_EmptyArray(t *testing.T) {
	srv, _ := serve(t, http.StatusOK, `[]`)
	c := NewClient(Options{UserAgent: "x"}, discardLogger())

	records, err := c.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestFetch_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "invalid json", status: http.StatusOK, body: `[{"component":`},
		{name: "html error page", status: http.StatusOK, body: `<html>maintenance</html>`},
		{name: "top level object", status: http.StatusOK, body: `{"component":"PM10","value":1}`},
		{name: "top level null", status: http.StatusOK, body: `null`},
		{name: "array of scalars", status: http.StatusOK, body: `[1,2,3]`},
		{name: "server error", status: http.StatusInternalServerError, body: `[]`},
		{name: "not found", status: http.StatusNotFound, body: `{"error":"no such station"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := serve(t, tt.status, tt.body)
			c := NewClient(Options{UserAgent: "x"}, discardLogger())

			_, err := c.Fetch(context.Background(), srv.URL)
			require.Error(t, err)
			assert.ErrorIs(t, err, airquality.ErrFetch)
		})
	}
}

func TestFetch_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(Options{UserAgent: "x"}, discardLogger())
	_, err := c.Fetch(context.Background(), url)
	require.Error(t, err)
	assert.ErrorIs(t, err, airquality.ErrFetch)
}

func TestFetch_NoRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(Options{UserAgent: "x"}, discardLogger())
	_, err := c.Fetch(context.Background(), srv.URL)
	require.ErrorIs(t, err, airquality.ErrFetch)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetch_CancelledContext(t *testing.T) {
	srv, _ := serve(t, http.StatusOK, `[]`)
	c := NewClient(Options{UserAgent: "x"}, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Fetch(ctx, srv.URL)
	assert.ErrorIs(t, err, airquality.ErrFetch)
}

func TestUserAgent(t *testing.T) {
	c := NewClient(Options{UserAgent: "ops@example.org"}, nil)
	assert.Equal(t, "Private use only - ops@example.org", c.UserAgent())
}
