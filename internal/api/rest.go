package api

import (
	"context"
	"net/http"
	"sync"

	"github.com/hbomb79/ytmeta/internal/api/datasets"
	"github.com/hbomb79/ytmeta/internal/api/runs"
	"github.com/hbomb79/ytmeta/internal/http/websocket"
	"github.com/hbomb79/ytmeta/pkg/logger"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var log = logger.Get("API")

const API_PREFIX = "/api/ytmeta/v1"

type (
	RestConfig struct {
		HostAddr string `yaml:"host_address" env:"API_HOST_ADDR" env-default:"0.0.0.0:8080" validate:"required,hostname_port"`
	}

	controller interface {
		SetRoutes(*echo.Group)
	}

	// Service represents a union of all the controller service requirements
	Service interface {
		datasets.Service
		runs.Service
	}

	// The RestGateway is a thin-wrapper around the Echo HTTP router. It's sole responsbility
	// is to create the routes ytmeta exposes, and to manage ongoing web socket connections.
	RestGateway struct {
		*broadcaster
		config             *RestConfig
		ec                 *echo.Echo
		socket             *websocket.SocketHub
		datasetsController controller
		runsController     controller
	}
)

// NewRestGateway constructs the Echo router and populates it with all the
// routes defined by the various controllers. Metrics are exposed from the
// gatherer provided.
func NewRestGateway(config *RestConfig, service Service, gatherer prometheus.Gatherer) *RestGateway {
	ec := echo.New()
	ec.OnAddRouteHandler = func(host string, route echo.Route, handler echo.HandlerFunc, middleware []echo.MiddlewareFunc) {
		log.Emit(logger.DEBUG, "Registered new route %s %s\n", route.Method, route.Path)
	}
	ec.HidePort = true
	ec.HideBanner = true

	socket := websocket.New()
	gateway := &RestGateway{
		broadcaster:        newBroadcaster(socket, service),
		config:             config,
		ec:                 ec,
		socket:             socket,
		datasetsController: datasets.New(service),
		runsController:     runs.New(service),
	}
	socket.WithConnectionCallback(gateway.connectionPayload)
	socket.BindCommand(COMMAND_RUN_LIST, gateway.listRuns).BindCommand(COMMAND_RUN_GET, gateway.getRun)

	ec.Use(middleware.Logger())
	ec.Use(middleware.Recover())
	ec.Pre(middleware.AddTrailingSlash())

	ec.GET(API_PREFIX+"/activity/ws/", func(ec echo.Context) error {
		gateway.socket.UpgradeToSocket(ec.Response(), ec.Request())
		return nil
	})

	ec.GET("/metrics/", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	datasets := ec.Group(API_PREFIX + "/datasets")
	gateway.datasetsController.SetRoutes(datasets)

	runs := ec.Group(API_PREFIX + "/runs")
	gateway.runsController.SetRoutes(runs)

	return gateway
}

// ServeHTTP dispatches the request to the underlying Echo router.
func (gateway *RestGateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	gateway.ec.ServeHTTP(w, r)
}

func (gateway *RestGateway) Run(parentCtx context.Context) error {
	ctx, ctxCancel := context.WithCancelCause(parentCtx)
	wg := &sync.WaitGroup{}

	// Start echo router
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Emit(logger.INFO, "Listening on %s\n", gateway.config.HostAddr)
		if err := gateway.ec.Start(gateway.config.HostAddr); err != nil && err != http.ErrServerClosed {
			ctxCancel(err)
		}
	}()

	// Start thread to listen for context cancellation
	go func(ec *echo.Echo) {
		<-ctx.Done()
		ec.Close()
	}(gateway.ec)

	// Start websocket
	wg.Add(1)
	go func() {
		defer wg.Done()
		gateway.socket.Start(ctx)
	}()

	wg.Wait()

	// Return cancellation cause if any, otherwise nil as parent context
	// cancellation is not an error case we should report.
	if cause := context.Cause(ctx); cause != ctx.Err() {
		return cause
	}

	return nil
}
