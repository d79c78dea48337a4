package server

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MeKo-Tech/annotator/internal/backend"
	"github.com/MeKo-Tech/annotator/internal/testutil"
	"github.com/stretchr/testify/require"
)

// newTestServer wires a Server to a fake backend and serves its routes.
func newTestServer(t *testing.T, mutate func(*Config)) (*Server, *httptest.Server, *testutil.FakeBackend) {
	t.Helper()

	fake := testutil.NewFakeBackend(t)
	client, err := backend.NewClient(backend.Config{BaseURL: fake.URL(), Timeout: 5 * time.Second})
	require.NoError(t, err)

	cfg := Config{
		CORSOrigin:  "*",
		MaxUploadMB: 5,
		ImageDir:    t.TempDir(),
		Version:     "test",
	}
	if mutate != nil {
		mutate(&cfg)
	}

	srv, err := NewServer(cfg, client)
	require.NoError(t, err)

	mux := http.NewServeMux()
	srv.SetupRoutes(mux)
	ts := httptest.NewServer(mux)
	t.Cleanup(func() {
		_ = srv.Close()
		ts.Close()
	})
	return srv, ts, fake
}

// createMultipartRequest builds a POST with data as the multipart field.
func createMultipartRequest(t *testing.T, url, field, filename string, data []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, url, &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}
