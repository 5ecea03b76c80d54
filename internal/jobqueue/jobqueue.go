// Package jobqueue runs the River-backed queue for the pipeline's
// best-effort side writes: generated-code version snapshots and pipeline-run
// audit rows. Enqueue failures are the caller's to swallow; worker failures
// are retried by River and never affect the request that produced them.
//
// Tunable parameters live in queue_config.go.
package jobqueue

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/rs/zerolog/log"

	"github.com/appforge/internal/pipeline"
	"github.com/appforge/internal/quality"
	"github.com/appforge/internal/store"
)

// VersionSnapshotArgs captures one generated-code snapshot write together
// with the aggregate quality fields the app row should carry afterwards.
type VersionSnapshotArgs struct {
	AppID            string             `json:"app_id"`
	Code             string             `json:"code"`
	QualityScore     int                `json:"quality_score"`
	QualityBreakdown *quality.Breakdown `json:"quality_breakdown,omitempty"`
}

// Kind returns the job kind for River.
func (VersionSnapshotArgs) Kind() string { return "version_snapshot" }

// PipelineRunArgs captures one pipeline-run audit write.
type PipelineRunArgs struct {
	AppID    string               `json:"app_id"`
	Artifact pipeline.RunArtifact `json:"artifact"`
}

// Kind returns the job kind for River.
func (PipelineRunArgs) Kind() string { return "pipeline_run_audit" }

// VersionSnapshotWorker writes version snapshot rows.
type VersionSnapshotWorker struct {
	river.WorkerDefaults[VersionSnapshotArgs]
	store *store.AppStore
}

// Work persists the snapshot and refreshes the app row's aggregate
// generated-code and quality columns. A missing app means it was deleted
// after the run, so the job is dropped rather than retried.
func (w *VersionSnapshotWorker) Work(ctx context.Context, job *river.Job[VersionSnapshotArgs]) error {
	app, err := w.store.GetAppByID(ctx, job.Args.AppID)
	if errors.Is(err, store.ErrNotFound) {
		log.Debug().Str("app_id", job.Args.AppID).Msg("app gone, dropping version snapshot")
		return nil
	}
	if err != nil {
		return err
	}

	if err := w.store.InsertVersion(ctx, app.ID, job.Args.Code); err != nil {
		log.Warn().Err(err).Str("app_id", app.ID).Msg("version snapshot write failed")
		return err
	}

	var score *int
	if job.Args.QualityBreakdown != nil {
		score = &job.Args.QualityScore
	}
	if err := w.store.UpdateGeneratedFields(ctx, app.ID, job.Args.Code, score, job.Args.QualityBreakdown); err != nil {
		log.Warn().Err(err).Str("app_id", app.ID).Msg("aggregate quality update failed")
		return err
	}

	log.Debug().Str("app_id", app.ID).Msg("version snapshot written")
	return nil
}

// PipelineRunWorker writes pipeline-run audit rows.
type PipelineRunWorker struct {
	river.WorkerDefaults[PipelineRunArgs]
	store *store.AppStore
}

// Work persists the audit record.
func (w *PipelineRunWorker) Work(ctx context.Context, job *river.Job[PipelineRunArgs]) error {
	if err := w.store.InsertPipelineRun(ctx, job.Args.AppID, &job.Args.Artifact); err != nil {
		log.Warn().Err(err).Str("run_id", job.Args.Artifact.RunID).Msg("pipeline run write failed")
		return err
	}
	log.Debug().Str("run_id", job.Args.Artifact.RunID).Msg("pipeline run recorded")
	return nil
}

// JobQueue manages the River client and implements the pipeline's artifact
// queue boundary.
type JobQueue struct {
	client *river.Client[pgx.Tx]
	pool   *pgxpool.Pool
	config *QueueConfig
}

// NewJobQueue connects a queue to the database and registers the workers.
func NewJobQueue(databaseURL string, appStore *store.AppStore) (*JobQueue, error) {
	config := GetQueueConfig()

	pool, err := pgxpool.New(context.Background(), databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, &VersionSnapshotWorker{store: appStore})
	river.AddWorker(workers, &PipelineRunWorker{store: appStore})

	client, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues:  config.RiverQueueConfig(),
		Workers: workers,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create River client: %w", err)
	}

	return &JobQueue{
		client: client,
		pool:   pool,
		config: config,
	}, nil
}

// Start starts the queue workers.
func (jq *JobQueue) Start(ctx context.Context) error {
	return jq.client.Start(ctx)
}

// Stop stops the queue workers and closes the pool.
func (jq *JobQueue) Stop(ctx context.Context) error {
	err := jq.client.Stop(ctx)
	jq.pool.Close()
	return err
}

// EnqueueVersionSnapshot queues a generated-code snapshot write.
func (jq *JobQueue) EnqueueVersionSnapshot(ctx context.Context, appID, code string, qualityScore int, breakdown *quality.Breakdown) error {
	_, err := jq.client.Insert(ctx, VersionSnapshotArgs{
		AppID:            appID,
		Code:             code,
		QualityScore:     qualityScore,
		QualityBreakdown: breakdown,
	}, nil)
	if err != nil {
		return fmt.Errorf("failed to queue version snapshot: %w", err)
	}
	return nil
}

// EnqueuePipelineRun queues a pipeline-run audit write.
func (jq *JobQueue) EnqueuePipelineRun(ctx context.Context, appID string, artifact *pipeline.RunArtifact) error {
	_, err := jq.client.Insert(ctx, PipelineRunArgs{AppID: appID, Artifact: *artifact}, nil)
	if err != nil {
		return fmt.Errorf("failed to queue pipeline run audit: %w", err)
	}
	return nil
}
