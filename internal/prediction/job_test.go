package prediction

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewID(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		id := NewID()
		assert.Len(t, id, IDLength)
		assert.True(t, ValidID(id), "id %q should be valid", id)
		seen[id] = struct{}{}
	}

	// 1000 draws from 2^32 values collide with probability ~1e-4
	assert.GreaterOrEqual(t, len(seen), 999)
}

func TestValidID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{id: "0a1b2c3d", want: true},
		{id: "ffffffff", want: true},
		{id: "0A1B2C3D", want: false},
		{id: "0a1b2c3", want: false},
		{id: "0a1b2c3d4", want: false},
		{id: "0a1b-c3d", want: false},
		{id: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidID(tt.id))
		})
	}
}

func TestObjectNames(t *testing.T) {
	assert.Equal(t, "job-description-inputs/input_0a1b2c3d.txt", InputObjectName("job-description-inputs", "0a1b2c3d"))
	assert.Equal(t, "job-results/output_0a1b2c3d.json", OutputObjectName("job-results", "0a1b2c3d"))
	assert.Equal(t, "input_0a1b2c3d.txt", InputObjectName("", "0a1b2c3d"))
	assert.Equal(t, "nested/results/output_0a1b2c3d.json", OutputObjectName("nested/results/", "0a1b2c3d"))
}

func TestIsTerminal(t *testing.T) {
	terminal := []string{StatusSucceeded, StatusSubmissionFailed, StatusTimedOut, StatusFailed}
	for _, status := range terminal {
		assert.True(t, IsTerminal(status), status)
	}

	active := []string{StatusCreated, StatusSubmitted, StatusAwaitingResult}
	for _, status := range active {
		assert.False(t, IsTerminal(status), status)
	}
}

func TestValidStatus(t *testing.T) {
	assert.True(t, ValidStatus(StatusAwaitingResult))
	assert.True(t, ValidStatus(StatusTimedOut))
	assert.False(t, ValidStatus("PENDING"))
	assert.False(t, ValidStatus("succeeded"))
	assert.False(t, ValidStatus(""))
}
