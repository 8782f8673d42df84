package bootstrap

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cuongbtq/job-title-predictor/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewPipeline_FileBackend(t *testing.T) {
	root := t.TempDir()
	cfg := &config.Config{
		Storage: config.StorageConfig{
			Backend:      config.StorageBackendFile,
			Root:         root,
			InputPrefix:  "inputs",
			OutputPrefix: "outputs",
			StagingDir:   t.TempDir(),
		},
		Cluster: config.ClusterConfig{
			Name:      "local",
			Region:    "local",
			Project:   "local",
			ScriptURI: "file:///opt/pipeline/job_title_pipeline.py",
			Binary:    "true",
			Mode:      config.DefaultMode,
		},
	}

	pipeline, err := NewPipeline(context.Background(), cfg, discardLogger())
	require.NoError(t, err)
	defer pipeline.Close()

	job := pipeline.Dispatcher.NewJob()
	assert.True(t, strings.HasPrefix(job.InputURI, "file://"))
	assert.Equal(t, "file://"+filepath.Join(root, "inputs", "input_"+job.ID+".txt"), job.InputURI)
	assert.Equal(t, "file://"+filepath.Join(root, "outputs", "output_"+job.ID+".json"), job.OutputURI)

	require.NoError(t, pipeline.Dispatcher.SubmitJob(context.Background(), job, "Looking for a backend developer"))
}

func TestNewStore_UnknownBackend(t *testing.T) {
	_, _, err := NewStore(context.Background(), &config.StorageConfig{Backend: "s3"}, discardLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported storage backend")
}
