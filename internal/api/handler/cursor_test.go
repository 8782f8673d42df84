package handler

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/cuongbtq/job-title-predictor/internal/api/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobCursor_RoundTrip(t *testing.T) {
	createdAt := time.Date(2026, 10, 1, 12, 0, 0, 123456789, time.UTC)

	encoded := EncodeJobCursor(&storage.JobCursor{CreatedAt: createdAt, JobID: "0a1b2c3d"})
	assert.NotContains(t, encoded, "=")

	cursor, err := DecodeJobCursor(encoded)
	require.NoError(t, err)
	assert.Equal(t, "0a1b2c3d", cursor.JobID)
	assert.True(t, createdAt.Equal(cursor.CreatedAt))
}

func TestDecodeJobCursor(t *testing.T) {
	encode := func(s string) string {
		return base64.RawURLEncoding.EncodeToString([]byte(s))
	}

	tests := []struct {
		name    string
		cursor  string
		wantNil bool
		wantErr bool
	}{
		{name: "empty means first page", cursor: "", wantNil: true},
		{name: "not base64", cursor: "%%%", wantErr: true},
		{name: "missing separator", cursor: encode("12345"), wantErr: true},
		{name: "bad timestamp", cursor: encode("yesterday|0a1b2c3d"), wantErr: true},
		{name: "bad job id", cursor: encode("12345|not-a-job"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cursor, err := DecodeJobCursor(tt.cursor)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, cursor)
			}
		})
	}
}
