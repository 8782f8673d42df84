package migrations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchema(t *testing.T) {
	schema, err := Schema()
	require.NoError(t, err)

	assert.Contains(t, schema, "CREATE TABLE IF NOT EXISTS prediction_jobs")
	assert.Contains(t, schema, "result          JSONB")
	assert.Contains(t, schema, "'AWAITING_RESULT'")
}
