package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/nettrail/ipstory/cmd/ipstory/repository"
	"github.com/nettrail/ipstory/cmd/ipstory/service"
)

// apiResponse is the uniform envelope for every API payload: one of
// error or data is set.
type apiResponse struct {
	Error *string     `json:"error"`
	Data  interface{} `json:"data"`
}

func respondData(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, apiResponse{Data: data})
}

func respondBadRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, apiResponse{Error: &msg})
}

// respondError maps service errors onto status codes, keeping the
// envelope shape.
func respondError(c echo.Context, err error) error {
	status := http.StatusInternalServerError

	var storageErr *repository.StorageError
	switch {
	case errors.Is(err, service.ErrStoryNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrConflict):
		status = http.StatusConflict
	case errors.As(err, &storageErr):
		status = http.StatusInternalServerError
	}

	msg := err.Error()
	return c.JSON(status, apiResponse{Error: &msg})
}
