package internal

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/hbomb79/ytmeta/internal/api"
	"github.com/hbomb79/ytmeta/internal/archive"
	"github.com/hbomb79/ytmeta/internal/event"
	"github.com/hbomb79/ytmeta/internal/ingest"
	"github.com/hbomb79/ytmeta/internal/metrics"
	"github.com/hbomb79/ytmeta/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var log = logger.Get("Core")

type (
	RunnableService interface {
		Run(context.Context) error
	}

	RestGateway interface {
		RunnableService
		BroadcastRunUpdate(uuid.UUID) error
	}

	IngestService interface {
		api.Service
		Ingest(ctx context.Context, date string) (*ingest.Run, error)
		EnsureArtifact(ctx context.Context, date string) (*ingest.ArtifactInfo, error)
	}
)

// ytmetaImpl represents the top-level object for the application, and is
// responsible for initialising the services, event handling and metrics.
type ytmetaImpl struct {
	config          Config
	eventBus        event.EventCoordinator
	registry        *prometheus.Registry
	ingestService   IngestService
	restGateway     RestGateway
	activityService *activityService
}

func New(config Config) (*ytmetaImpl, error) {
	log.Emit(logger.DEBUG, "Bootstrapping services using config: %+v\n", config.Redacted())
	app := &ytmetaImpl{
		config:   config,
		eventBus: event.New(),
		registry: prometheus.NewRegistry(),
	}
	app.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	client := archive.NewClient(config.Archive)
	if serv, err := ingest.New(config.Ingest, client, app.eventBus, metrics.New(app.registry)); err == nil {
		app.ingestService = serv
	} else {
		return nil, fmt.Errorf("failed to construct ingestion service: %w", err)
	}

	app.restGateway = api.NewRestGateway(&config.RestConfig, app.ingestService, app.registry)
	app.activityService = newActivityService(app.restGateway, app.eventBus)

	return app, nil
}

// Ingest runs the ingestion pipeline once for the date provided (an empty
// date selects the configured default, yesterday), blocking until the
// run completes.
func (app *ytmetaImpl) Ingest(ctx context.Context, date string) (*ingest.Run, error) {
	return app.ingestService.Ingest(ctx, date)
}

// EnsureArtifact returns the merged artifact for the date provided, only
// running the ingestion pipeline if the artifact does not yet exist.
func (app *ytmetaImpl) EnsureArtifact(ctx context.Context, date string) (*ingest.ArtifactInfo, error) {
	return app.ingestService.EnsureArtifact(ctx, date)
}

// Serve will start the REST gateway and the activity service, which
// together allow ingestion to be triggered and observed remotely.
//
// This function will not return until the services stop. To stop them,
// the provided context must be cancelled. Errors from which a service
// cannot recover will also cause every service to stop, and the first
// such error is returned.
func (app *ytmetaImpl) Serve(parent context.Context) error {
	ctx, cancel := context.WithCancelCause(parent)
	defer cancel(nil)

	crashHandler := func(label string, err error) {
		log.Emit(logger.FATAL, "Service crash (%s)! %s\n", label, err.Error())
		cancel(fmt.Errorf("%s: %w", label, err))
	}

	wg := &sync.WaitGroup{}
	app.spawnAsyncService(ctx, wg, app.activityService, "activity-service", crashHandler)
	app.spawnAsyncService(ctx, wg, app.restGateway, "rest-gateway", crashHandler)
	log.Emit(logger.SUCCESS, "Services spawned!\n")

	wg.Wait()
	if cause := context.Cause(ctx); cause != ctx.Err() {
		return cause
	}

	return nil
}

// spawnAsyncService will run the provided service as it's own
// go-routine, ensuring that the service waitgroup is updated correctly
func (app *ytmetaImpl) spawnAsyncService(context context.Context, wg *sync.WaitGroup, service RunnableService, serviceLabel string, crashHandler func(string, error)) {
	log.Emit(logger.NEW, "Spawning %s\n", serviceLabel)
	wg.Add(1)

	go func(wg *sync.WaitGroup, label string, crash func(string, error)) {
		defer wg.Done()
		defer func() {
			if r := recover(); r != nil {
				crash(label, fmt.Errorf("panic %v", r))
			}
		}()

		if err := service.Run(context); err != nil {
			crash(label, err)
		}
	}(wg, serviceLabel, crashHandler)
}
