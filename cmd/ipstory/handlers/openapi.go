package handlers

import (
	_ "embed"
	"encoding/json"

	"github.com/labstack/echo/v4"
)

//go:embed openapi.json
var openAPIDocument []byte

// OpenAPIDocument serves the API description, wrapped in the standard
// response envelope like every other payload.
// GET /openapi/json
func OpenAPIDocument(c echo.Context) error {
	return respondData(c, json.RawMessage(openAPIDocument))
}
