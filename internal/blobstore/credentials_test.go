package blobstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestLoadCredentials(t *testing.T) {
	keyring.MockInit()

	keyFile := filepath.Join(t.TempDir(), "sa.json")
	require.NoError(t, os.WriteFile(keyFile, []byte(`{"type":"service_account","source":"file"}`), 0o600))

	tests := []struct {
		name      string
		stored    string
		config    *CredentialsConfig
		want      string
		wantErr   bool
		errString string
	}{
		{
			name:   "keyring takes precedence over file",
			stored: `{"type":"service_account","source":"keyring"}`,
			config: &CredentialsConfig{
				KeyringService: "job-title-predictor",
				KeyringAccount: "storage-precedence",
				File:           keyFile,
			},
			want: `{"type":"service_account","source":"keyring"}`,
		},
		{
			name: "falls back to file when keyring entry is missing",
			config: &CredentialsConfig{
				KeyringService: "job-title-predictor",
				KeyringAccount: "storage-missing",
				File:           keyFile,
			},
			want: `{"type":"service_account","source":"file"}`,
		},
		{
			name:   "nothing configured",
			config: &CredentialsConfig{},
			want:   "",
		},
		{
			name: "unreadable file",
			config: &CredentialsConfig{
				File: filepath.Join(t.TempDir(), "missing.json"),
			},
			wantErr:   true,
			errString: "failed to read credentials file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.stored != "" {
				require.NoError(t, keyring.Set(tt.config.KeyringService, tt.config.KeyringAccount, tt.stored))
			}

			got, err := LoadCredentials(tt.config)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestStoreCredentials(t *testing.T) {
	keyring.MockInit()

	cfg := &CredentialsConfig{
		KeyringService: "job-title-predictor",
		KeyringAccount: "storage",
	}

	t.Run("stores and loads back", func(t *testing.T) {
		require.NoError(t, StoreCredentials(cfg, []byte(`{"type":"service_account"}`)))

		got, err := LoadCredentials(cfg)
		require.NoError(t, err)
		assert.Equal(t, `{"type":"service_account"}`, string(got))
	})

	t.Run("rejects empty credentials", func(t *testing.T) {
		err := StoreCredentials(cfg, []byte("  "))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "credentials are empty")
	})

	t.Run("rejects missing account", func(t *testing.T) {
		err := StoreCredentials(&CredentialsConfig{KeyringService: "job-title-predictor"}, []byte("{}"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "keyring service and account are required")
	})
}
