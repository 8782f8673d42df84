package blobstore

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/zalando/go-keyring"
)

// CredentialsConfig says where the storage service account key is kept
type CredentialsConfig struct {
	KeyringService string
	KeyringAccount string
	File           string
}

// LoadCredentials returns the service account JSON for the storage client.
// The OS keyring is consulted first, then the key file. Nil means neither
// is configured and the client falls back to Application Default Credentials.
func LoadCredentials(cfg *CredentialsConfig) ([]byte, error) {
	if strings.TrimSpace(cfg.KeyringService) != "" && strings.TrimSpace(cfg.KeyringAccount) != "" {
		secret, err := keyring.Get(cfg.KeyringService, cfg.KeyringAccount)
		switch {
		case err == nil && strings.TrimSpace(secret) != "":
			return []byte(secret), nil
		case err != nil && !errors.Is(err, keyring.ErrNotFound):
			return nil, fmt.Errorf("failed to read credentials from keyring: %w", err)
		}
	}

	if strings.TrimSpace(cfg.File) != "" {
		data, err := os.ReadFile(cfg.File)
		if err != nil {
			return nil, fmt.Errorf("failed to read credentials file: %w", err)
		}
		return data, nil
	}

	return nil, nil
}

// StoreCredentials saves a service account JSON key in the OS keyring
func StoreCredentials(cfg *CredentialsConfig, credentials []byte) error {
	if strings.TrimSpace(cfg.KeyringService) == "" || strings.TrimSpace(cfg.KeyringAccount) == "" {
		return errors.New("keyring service and account are required")
	}
	if len(strings.TrimSpace(string(credentials))) == 0 {
		return errors.New("credentials are empty")
	}
	return keyring.Set(cfg.KeyringService, cfg.KeyringAccount, string(credentials))
}
