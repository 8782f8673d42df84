package blobstore

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"cloud.google.com/go/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

// failingReader yields some data and then fails
type failingReader struct {
	data string
	read bool
}

func (r *failingReader) Read(p []byte) (int, error) {
	if r.read {
		return 0, errors.New("connection reset by peer")
	}
	r.read = true
	return copy(p, r.data), nil
}

func newTestGCSStore(t *testing.T, uploads *atomic.Int32) *GCSStore {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		uploads.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"bucket": "predictions", "name": "job-description-inputs/input_0a1b2c3d.txt"}`)
	}))
	t.Cleanup(srv.Close)

	client, err := storage.NewClient(context.Background(),
		option.WithEndpoint(srv.URL+"/storage/v1/"),
		option.WithoutAuthentication(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return &GCSStore{
		client: client,
		bucket: "predictions",
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestGCSStore_Upload(t *testing.T) {
	tests := []struct {
		name        string
		reader      func() io.Reader
		wantErr     bool
		wantUploads int32
	}{
		{
			name:        "complete input is committed",
			reader:      func() io.Reader { return strings.NewReader("backend developer") },
			wantUploads: 1,
		},
		{
			name:        "read failure abandons the upload",
			reader:      func() io.Reader { return &failingReader{data: "backend dev"} },
			wantErr:     true,
			wantUploads: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var uploads atomic.Int32
			store := newTestGCSStore(t, &uploads)

			err := store.Upload(context.Background(), "job-description-inputs/input_0a1b2c3d.txt", "text/plain", tt.reader())
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "gs://predictions/job-description-inputs/input_0a1b2c3d.txt")
			} else {
				require.NoError(t, err)
			}

			assert.Equal(t, tt.wantUploads, uploads.Load())
		})
	}
}

func TestGCSStore_URI(t *testing.T) {
	store := &GCSStore{bucket: "predictions"}
	assert.Equal(t, "gs://predictions/job-results/output_0a1b2c3d.json", store.URI("job-results/output_0a1b2c3d.json"))
}
