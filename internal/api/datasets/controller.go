package datasets

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/hbomb79/ytmeta/internal/api/runs"
	"github.com/hbomb79/ytmeta/internal/archive"
	"github.com/hbomb79/ytmeta/internal/dataset"
	"github.com/hbomb79/ytmeta/internal/ingest"
	"github.com/hbomb79/ytmeta/pkg/logger"
	"github.com/labstack/echo/v4"
)

const NDJSON_CONTENT_TYPE = "application/x-ndjson"

type (
	// ArtifactDto describes a merged artifact which is available
	// to be streamed from this server.
	ArtifactDto struct {
		Dataset  string    `json:"dataset"`
		Date     string    `json:"date"`
		Path     string    `json:"path"`
		Size     int64     `json:"size"`
		Modified time.Time `json:"modified_at"`
	}

	Service interface {
		Artifact(date string) (*ingest.ArtifactInfo, error)
		Ingest(ctx context.Context, date string) (*ingest.Run, error)
	}

	// Controller is the struct which is responsible for defining the
	// routes for this controller. Additionally, it holds the reference to
	// the service used to ingest datasets and locate their artifacts.
	Controller struct {
		service Service
	}
)

var controllerLogger = logger.Get("DatasetsController")

func New(serv Service) *Controller {
	return &Controller{service: serv}
}

// SetRoutes accepts the Echo group for the dataset endpoints
// and sets the routes on them.
func (controller *Controller) SetRoutes(eg *echo.Group) {
	eg.GET("/:date/", controller.get)
	eg.POST("/:date/ingest/", controller.ingest)
	eg.GET("/:date/records/", controller.records)
}

// get returns information about the merged artifact for the 'date' path param.
func (controller *Controller) get(ec echo.Context) error {
	info, err := controller.service.Artifact(ec.Param("date"))
	if err != nil {
		return artifactError(err)
	}

	return ec.JSON(http.StatusOK, NewDto(info))
}

// ingest runs the pipeline for the 'date' path param, responding once the
// run has finished. A successful run responds with the DTO of the run.
func (controller *Controller) ingest(ec echo.Context) error {
	date := ec.Param("date")
	run, err := controller.service.Ingest(ec.Request().Context(), date)
	if err == nil {
		return ec.JSON(http.StatusOK, runs.NewDto(run))
	}

	switch {
	case errors.Is(err, dataset.ErrInvalidDate):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ingest.ErrRunInProgress):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, archive.ErrItemNotFound):
		return echo.NewHTTPError(http.StatusNotFound, ingest.RemoteUnavailableMessage(date))
	case errors.Is(err, ingest.ErrRemoteUnavailable), errors.Is(err, ingest.ErrShardFetch):
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	case errors.Is(err, context.Canceled):
		controllerLogger.Emit(logger.WARNING, "Ingestion of %s abandoned by client: %v\n", date, err)
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	default:
		controllerLogger.Emit(logger.ERROR, "Ingestion of %s failed: %v\n", date, err)
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

// records streams the merged artifact for the 'date' path param as newline
// delimited JSON.
func (controller *Controller) records(ec echo.Context) error {
	info, err := controller.service.Artifact(ec.Param("date"))
	if err != nil {
		return artifactError(err)
	}

	f, err := os.Open(info.Path)
	if errors.Is(err, os.ErrNotExist) {
		return echo.NewHTTPError(http.StatusNotFound)
	} else if err != nil {
		return err
	}
	defer f.Close()

	return ec.Stream(http.StatusOK, NDJSON_CONTENT_TYPE, f)
}

func artifactError(err error) error {
	switch {
	case errors.Is(err, dataset.ErrInvalidDate):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ingest.ErrArtifactNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "no artifact exists for this date")
	default:
		return err
	}
}

// NewDto creates an ArtifactDto using the ArtifactInfo model.
func NewDto(info *ingest.ArtifactInfo) *ArtifactDto {
	return &ArtifactDto{
		Dataset:  info.Dataset.Identifier(),
		Date:     info.Dataset.DateString(),
		Path:     info.Path,
		Size:     info.Size,
		Modified: info.ModTime,
	}
}
