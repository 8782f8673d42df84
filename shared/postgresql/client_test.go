package postgresql

import (
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_DSN(t *testing.T) {
	tests := []struct {
		name   string
		config Config
		want   string
	}{
		{
			name: "explicit sslmode",
			config: Config{
				Host:     "db.internal",
				Port:     5432,
				User:     "predictor",
				Password: "secret",
				Database: "predictions_db",
				SSLMode:  "require",
			},
			want: "host='db.internal' port=5432 dbname='predictions_db' sslmode='require' user='predictor' password='secret'",
		},
		{
			name: "sslmode defaults to disable",
			config: Config{
				Host:     "localhost",
				Port:     5433,
				Database: "predictions_db",
			},
			want: "host='localhost' port=5433 dbname='predictions_db' sslmode='disable'",
		},
		{
			name: "connect timeout in seconds",
			config: Config{
				Host:           "localhost",
				Port:           5432,
				Database:       "predictions_db",
				ConnectTimeout: 7 * time.Second,
			},
			want: "host='localhost' port=5432 dbname='predictions_db' sslmode='disable' connect_timeout=7",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.config.DSN())
		})
	}
}

// the quoted DSN must still parse when the password holds quotes and backslashes
func TestConfig_DSNQuotesValues(t *testing.T) {
	cfg := Config{
		Host:     "localhost",
		Port:     5432,
		User:     "predictor",
		Password: `it's a \secret pass`,
		Database: "predictions_db",
	}

	connector, err := pq.NewConnector(cfg.DSN())
	require.NoError(t, err)
	require.NotNil(t, connector)

	assert.Equal(t, `'it\'s a \\secret pass'`, quote(cfg.Password))
}
