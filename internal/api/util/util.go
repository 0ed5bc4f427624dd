package util

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// ApplyConversion applies a converter function to each of the models
// provided to this function. The returned value is a slice which
// has been converted to the new values based on the returned value
// from the converter.
func ApplyConversion[T any, K any](models []T, converter func(T) K) []K {
	dtos := make([]K, 0, len(models))
	for _, v := range models {
		dtos = append(dtos, converter(v))
	}

	return dtos
}

// ParseUUIDParam extracts the named path parameter from the context as
// a UUID. If the parameter is not a valid UUID, a 400 HTTP error is returned.
func ParseUUIDParam(ec echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(ec.Param(name))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "ID is not a valid UUID")
	}

	return id, nil
}
