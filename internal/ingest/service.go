package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hbomb79/ytmeta/internal/archive"
	"github.com/hbomb79/ytmeta/internal/dataset"
	"github.com/hbomb79/ytmeta/internal/event"
	"github.com/hbomb79/ytmeta/pkg/logger"
)

var log = logger.Get("IngestServ")

type (
	// MetricsRecorder receives measurements of the pipelines behaviour.
	MetricsRecorder interface {
		RunStarted()
		RunFinished(outcome string, records int64, d time.Duration)
		StageCompleted(stage string, d time.Duration)
		ShardCompleted(stage string, bytes int64)
		ShardRetried()
	}

	// ArtifactInfo describes a merged artifact which exists on disk.
	ArtifactInfo struct {
		Dataset dataset.Dataset
		Path    string
		Size    int64
		ModTime time.Time
	}

	// ingestService is responsible for running the ingestion pipeline
	// for a dataset, which:
	// - Lists the remote item, to ensure the dataset exists
	// - Fetches every shard of the dataset concurrently
	// - Decompresses every shard concurrently
	// - Merges the decoded shards, projecting every record, in to the artifact
	// - Removes the working directory
	// Only one run per dataset may be in progress at any one time.
	ingestService struct {
		*sync.Mutex

		config   Config
		layout   dataset.Layout
		exclude  FieldSet
		remote   RemoteStore
		eventBus event.EventDispatcher
		metrics  MetricsRecorder
		now      func() time.Time

		runs   map[uuid.UUID]*Run
		active map[string]uuid.UUID
	}
)

// New creates a new ingestion service, using the provided config for
// subsequent calls to 'Ingest'. The metrics recorder is optional.
func New(config Config, remote RemoteStore, eventBus event.EventDispatcher, metrics MetricsRecorder) (*ingestService, error) {
	if remote == nil {
		return nil, errors.New("ingestion requires a remote store")
	}
	if config.ShardCount < 1 {
		return nil, fmt.Errorf("shard count must be at least one, got %d", config.ShardCount)
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if config.RunHistory < 1 {
		config.RunHistory = DefaultRunHistory
	}

	return &ingestService{
		Mutex:    &sync.Mutex{},
		config:   config,
		layout:   config.Layout(),
		exclude:  config.ExcludeSet(),
		remote:   remote,
		eventBus: eventBus,
		metrics:  metrics,
		now:      time.Now,
		runs:     make(map[uuid.UUID]*Run),
		active:   make(map[string]uuid.UUID),
	}, nil
}

// Layout returns the dataset layout this service names datasets with.
func (service *ingestService) Layout() dataset.Layout { return service.layout }

// ResolveDataset returns the dataset for the date provided (YYYY-MM-DD). An
// empty date resolves to the configured offset from today (by default,
// yesterday).
func (service *ingestService) ResolveDataset(date string) (dataset.Dataset, error) {
	return service.layout.Resolve(date, service.now(), service.config.DateOffsetDays)
}

// Ingest runs the full pipeline for the dataset of the date provided,
// blocking until the run reaches a terminal state. The returned run
// describes the outcome, and is returned even if the run failed (in
// which case the error is the *StageError describing the failure).
//
// If a run for the same dataset is already in progress, ErrRunInProgress
// is returned and no run is started.
func (service *ingestService) Ingest(ctx context.Context, date string) (*Run, error) {
	ds, err := service.ResolveDataset(date)
	if err != nil {
		return nil, err
	}

	run, err := service.claimRun(ds)
	if err != nil {
		return nil, err
	}
	service.dispatch(event.INGEST_UPDATE, run.ID)

	log.Emit(logger.NEW, "Beginning ingestion of %s (run %s)\n", ds, run.ID)
	service.metrics.RunStarted()
	err = service.execute(ctx, run)
	service.finishRun(run, err)

	return service.GetRun(run.ID), err
}

// EnsureArtifact returns the merged artifact for the date provided, running
// the pipeline only if no artifact exists yet.
func (service *ingestService) EnsureArtifact(ctx context.Context, date string) (*ArtifactInfo, error) {
	info, err := service.Artifact(date)
	if err == nil {
		log.Emit(logger.DEBUG, "Artifact for %s already present at %s\n", info.Dataset, info.Path)
		return info, nil
	} else if !errors.Is(err, ErrArtifactNotFound) {
		return nil, err
	}

	run, err := service.Ingest(ctx, date)
	if err != nil {
		return nil, err
	}

	return service.Artifact(run.Dataset.DateString())
}

// Artifact returns information about the merged artifact for the date
// provided. If it does not exist, ErrArtifactNotFound is returned.
func (service *ingestService) Artifact(date string) (*ArtifactInfo, error) {
	ds, err := service.ResolveDataset(date)
	if err != nil {
		return nil, err
	}

	stat, err := os.Stat(ds.ArtifactPath())
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrArtifactNotFound, ds.ArtifactPath())
	} else if err != nil {
		return nil, err
	} else if !stat.Mode().IsRegular() {
		return nil, fmt.Errorf("artifact path %s is not a regular file", ds.ArtifactPath())
	}

	return &ArtifactInfo{Dataset: ds, Path: ds.ArtifactPath(), Size: stat.Size(), ModTime: stat.ModTime()}, nil
}

// GetRun returns a copy of the run with the ID provided, or nil if no
// such run exists.
func (service *ingestService) GetRun(id uuid.UUID) *Run {
	service.Lock()
	defer service.Unlock()

	if run, ok := service.runs[id]; ok {
		clone := *run
		return &clone
	}

	return nil
}

// GetAllRuns returns a copy of every run known to this service, oldest first.
func (service *ingestService) GetAllRuns() []*Run {
	service.Lock()
	defer service.Unlock()

	runs := make([]*Run, 0, len(service.runs))
	for _, run := range service.runs {
		clone := *run
		runs = append(runs, &clone)
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].Started.Before(runs[j].Started) })
	return runs
}

// execute sequences the stages of the pipeline for the run provided. The
// first stage to fail stops the run; no stage is retried as a whole.
func (service *ingestService) execute(ctx context.Context, run *Run) error {
	ds := run.Dataset

	// START: the remote item must exist before anything is written locally
	files, err := service.remote.ListFiles(ctx, ds.Identifier())
	if err != nil {
		if errors.Is(err, archive.ErrItemNotFound) {
			err = fmt.Errorf("%s: %w", RemoteUnavailableMessage(ds.DateString()), err)
		}

		return stageErr(ds.Identifier(), START, -1, ErrRemoteUnavailable, err)
	}

	fetcher := &fetcher{
		remote:  service.remote,
		workers: service.config.WorkerCount,
		retry:   service.config.Retry,
		verify:  service.config.VerifyChecksum,
		hooks: shardHooks{
			completed: service.shardCompleted(run, FETCHING),
			retried: func(int, error) {
				service.metrics.ShardRetried()
			},
		},
	}
	if err := service.stage(ctx, run, FETCHING, func(ctx context.Context) error {
		return fetcher.Fetch(ctx, ds, files)
	}); err != nil {
		return err
	}

	decompressor := &decompressor{
		workers: service.config.WorkerCount,
		hooks:   shardHooks{completed: service.shardCompleted(run, DECOMPRESSING)},
	}
	if err := service.stage(ctx, run, DECOMPRESSING, func(ctx context.Context) error {
		return decompressor.Decompress(ctx, ds)
	}); err != nil {
		return err
	}

	merger := &merger{exclude: service.exclude}
	if err := service.stage(ctx, run, MERGING, func(ctx context.Context) error {
		result, err := merger.Merge(ctx, ds)
		if err != nil {
			return err
		}

		service.updateRun(run, func(r *Run) { r.Records = result.Records })
		service.metrics.ShardCompleted(MERGING.String(), result.Bytes)
		log.Emit(logger.INFO, "Merged %d records in to %s\n", result.Records, result.Path)
		return nil
	}); err != nil {
		return err
	}

	// The artifact is final at this point, so failing to clean up is
	// reported but does not fail the run.
	service.transition(run, CLEANING)
	started := time.Now()
	if err := os.RemoveAll(ds.WorkDir()); err != nil {
		log.Emit(logger.WARNING, "Failed to remove working directory %s: %v\n", ds.WorkDir(), err)
	}
	service.metrics.StageCompleted(CLEANING.String(), time.Since(started))

	return nil
}

// stage transitions the run to the state provided and executes the
// function given. Errors which are not already a *StageError are
// wrapped in one attributed to this stage.
func (service *ingestService) stage(ctx context.Context, run *Run, state State, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return &StageError{Dataset: run.Dataset.Identifier(), Stage: state, Shard: -1, Err: err}
	}

	service.transition(run, state)
	started := time.Now()
	if err := fn(ctx); err != nil {
		var stageErr *StageError
		if errors.As(err, &stageErr) {
			return stageErr
		}

		return &StageError{Dataset: run.Dataset.Identifier(), Stage: state, Shard: -1, Err: err}
	}

	service.metrics.StageCompleted(state.String(), time.Since(started))
	return nil
}

// claimRun registers a new run for the dataset provided, failing if one
// is already in progress.
//
// Note: This function takes ownership of the mutex, and releases it when returning
func (service *ingestService) claimRun(ds dataset.Dataset) (*Run, error) {
	service.Lock()
	defer service.Unlock()

	if id, ok := service.active[ds.Identifier()]; ok {
		return nil, fmt.Errorf("%w: %s (run %s)", ErrRunInProgress, ds, id)
	}

	run := &Run{
		ID:         uuid.New(),
		Dataset:    ds,
		State:      START,
		ShardCount: ds.ShardCount(),
		Started:    service.now(),
	}
	service.runs[run.ID] = run
	service.active[ds.Identifier()] = run.ID

	return run, nil
}

// finishRun moves the run to its terminal state and releases the claim
// on its dataset.
func (service *ingestService) finishRun(run *Run, err error) {
	if err != nil {
		log.Emit(logger.ERROR, "Ingestion of %s failed: %v\n", run.Dataset, err)
		if service.config.CleanupOnFailure {
			if rmErr := os.RemoveAll(run.Dataset.WorkDir()); rmErr != nil {
				log.Emit(logger.WARNING, "Failed to remove working directory %s: %v\n", run.Dataset.WorkDir(), rmErr)
			}
		} else if _, statErr := os.Stat(run.Dataset.WorkDir()); statErr == nil {
			log.Emit(logger.INFO, "Working directory %s retained for inspection\n", run.Dataset.WorkDir())
		}
	}

	service.Lock()
	run.Finished = service.now()
	run.Error = err
	if err != nil {
		run.State = FAILED
	} else {
		run.State = DONE
	}
	delete(service.active, run.Dataset.Identifier())
	service.pruneRuns()
	snapshot := *run
	service.Unlock()

	if err == nil {
		log.Emit(logger.SUCCESS, "Ingestion of %s complete: %d records in %s\n", snapshot.Dataset, snapshot.Records, snapshot.Duration())
	}

	service.metrics.RunFinished(snapshot.State.String(), snapshot.Records, snapshot.Duration())
	service.dispatch(event.INGEST_UPDATE, run.ID)
	service.dispatch(event.INGEST_COMPLETE, run.ID)
}

// pruneRuns forgets the oldest finished runs until the run table fits
// within the configured history. Runs in progress are never removed.
//
// Note: The caller must hold the mutex
func (service *ingestService) pruneRuns() {
	excess := len(service.runs) - service.config.RunHistory
	if excess <= 0 {
		return
	}

	finished := make([]*Run, 0, len(service.runs))
	for _, run := range service.runs {
		if run.State.Terminal() {
			finished = append(finished, run)
		}
	}

	sort.Slice(finished, func(i, j int) bool { return finished[i].Started.Before(finished[j].Started) })
	for _, run := range finished[:min(excess, len(finished))] {
		delete(service.runs, run.ID)
	}
}

func (service *ingestService) transition(run *Run, state State) {
	service.updateRun(run, func(r *Run) { r.State = state })
	log.Emit(logger.INFO, "Ingestion of %s is now %s\n", run.Dataset, state)
	service.dispatch(event.INGEST_UPDATE, run.ID)
}

// shardCompleted returns a shard hook which records the completion of
// a shard in the run, and reports it as progress.
func (service *ingestService) shardCompleted(run *Run, state State) func(int, int64) {
	return func(_ int, bytes int64) {
		service.updateRun(run, func(r *Run) {
			switch state {
			case FETCHING:
				r.Fetched++
			case DECOMPRESSING:
				r.Decoded++
			}
		})

		service.metrics.ShardCompleted(state.String(), bytes)
		service.dispatch(event.INGEST_PROGRESS, run.ID)
	}
}

// updateRun applies the mutation provided to the run whilst holding the mutex.
func (service *ingestService) updateRun(run *Run, fn func(*Run)) {
	service.Lock()
	defer service.Unlock()

	fn(run)
}

func (service *ingestService) dispatch(e event.Event, id uuid.UUID) {
	if service.eventBus != nil {
		service.eventBus.Dispatch(e, id)
	}
}

type noopMetrics struct{}

func (noopMetrics) RunStarted()                              {}
func (noopMetrics) RunFinished(string, int64, time.Duration) {}
func (noopMetrics) StageCompleted(string, time.Duration)     {}
func (noopMetrics) ShardCompleted(string, int64)             {}
func (noopMetrics) ShardRetried()                            {}
