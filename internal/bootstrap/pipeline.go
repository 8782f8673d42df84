package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/job-title-predictor/internal/blobstore"
	"github.com/cuongbtq/job-title-predictor/internal/cluster"
	"github.com/cuongbtq/job-title-predictor/internal/config"
	"github.com/cuongbtq/job-title-predictor/internal/prediction"
)

// Pipeline is a dispatcher wired to the configured storage backend and cluster
type Pipeline struct {
	Dispatcher *prediction.Dispatcher
	close      func() error
}

// NewPipeline builds the object store, the Dataproc submitter and the dispatcher
func NewPipeline(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Pipeline, error) {
	store, closeStore, err := NewStore(ctx, &cfg.Storage, logger)
	if err != nil {
		return nil, err
	}

	submitter := cluster.NewDataprocSubmitter(&cluster.DataprocConfig{
		Binary:    cfg.Cluster.Binary,
		ScriptURI: cfg.Cluster.ScriptURI,
	}, logger)

	dispatcher := prediction.NewDispatcher(&prediction.Config{
		Logger:       logger,
		Store:        store,
		Submitter:    submitter,
		InputPrefix:  cfg.Storage.InputPrefix,
		OutputPrefix: cfg.Storage.OutputPrefix,
		StagingDir:   cfg.Storage.StagingDir,
		Cluster:      cfg.Cluster.Name,
		Region:       cfg.Cluster.Region,
		Project:      cfg.Cluster.Project,
		Mode:         cfg.Cluster.Mode,
	})

	return &Pipeline{Dispatcher: dispatcher, close: closeStore}, nil
}

// Close releases the storage client
func (p *Pipeline) Close() error {
	return p.close()
}

// NewStore opens the configured storage backend. The returned func closes it.
func NewStore(ctx context.Context, cfg *config.StorageConfig, logger *slog.Logger) (blobstore.Store, func() error, error) {
	switch cfg.Backend {
	case config.StorageBackendFile:
		store, err := blobstore.NewFileStore(cfg.Root)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Using local file storage", slog.String("root", cfg.Root))
		return store, func() error { return nil }, nil

	case config.StorageBackendGCS:
		credentials, err := blobstore.LoadCredentials(&blobstore.CredentialsConfig{
			KeyringService: cfg.Credentials.KeyringService,
			KeyringAccount: cfg.Credentials.KeyringAccount,
			File:           cfg.Credentials.File,
		})
		if err != nil {
			return nil, nil, err
		}

		store, err := blobstore.NewGCSStore(ctx, &blobstore.GCSConfig{
			Project:     cfg.Project,
			Bucket:      cfg.Bucket,
			Credentials: credentials,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil

	default:
		return nil, nil, fmt.Errorf("unsupported storage backend: %q", cfg.Backend)
	}
}
