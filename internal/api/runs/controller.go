package runs

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/hbomb79/ytmeta/internal/api/util"
	"github.com/hbomb79/ytmeta/internal/ingest"
	"github.com/labstack/echo/v4"
)

type (
	// Dto is the response used by endpoints that return
	// ingestion runs (e.g., list, get)
	Dto struct {
		Id         uuid.UUID  `json:"id"`
		Dataset    string     `json:"dataset"`
		Date       string     `json:"date"`
		State      string     `json:"state"`
		ShardCount int        `json:"shard_count"`
		Fetched    int        `json:"shards_fetched"`
		Decoded    int        `json:"shards_decoded"`
		Records    int64      `json:"records"`
		Error      *string    `json:"error"`
		Started    time.Time  `json:"started_at"`
		Finished   *time.Time `json:"finished_at"`
	}

	Service interface {
		GetAllRuns() []*ingest.Run
		GetRun(uuid.UUID) *ingest.Run
	}

	// Controller is the struct which is responsible for defining the
	// routes for this controller. Additionally, it holds the reference to
	// the service used to retrieve information about ingestion runs.
	Controller struct {
		service Service
	}
)

func New(serv Service) *Controller {
	return &Controller{service: serv}
}

// SetRoutes accepts the Echo group for the run endpoints
// and sets the routes on them.
func (controller *Controller) SetRoutes(eg *echo.Group) {
	eg.GET("/", controller.list)
	eg.GET("/:id/", controller.get)
}

// list returns all the runs - represented as DTOs - oldest first.
func (controller *Controller) list(ec echo.Context) error {
	return ec.JSON(http.StatusOK, util.ApplyConversion(controller.service.GetAllRuns(), NewDto))
}

// get uses the 'id' path param from the context and retrieves the run from the
// underlying service. If found, a DTO representing the run is returned
func (controller *Controller) get(ec echo.Context) error {
	id, err := util.ParseUUIDParam(ec, "id")
	if err != nil {
		return err
	}

	run := controller.service.GetRun(id)
	if run == nil {
		return echo.NewHTTPError(http.StatusNotFound)
	}

	return ec.JSON(http.StatusOK, NewDto(run))
}

// NewDto creates a Dto using the Run model.
func NewDto(run *ingest.Run) *Dto {
	dto := &Dto{
		Id:         run.ID,
		Dataset:    run.Dataset.Identifier(),
		Date:       run.Dataset.DateString(),
		State:      run.State.String(),
		ShardCount: run.ShardCount,
		Fetched:    run.Fetched,
		Decoded:    run.Decoded,
		Records:    run.Records,
		Started:    run.Started,
	}

	if run.Error != nil {
		message := run.Error.Error()
		dto.Error = &message
	}
	if !run.Finished.IsZero() {
		finished := run.Finished
		dto.Finished = &finished
	}

	return dto
}
