package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAPIDocument(t *testing.T) {
	e := echo.New()
	e.GET("/openapi/json", OpenAPIDocument)

	req := httptest.NewRequest(http.MethodGet, "/openapi/json", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	// Enveloped like every other payload
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Nil(t, env.Error)

	var doc struct {
		OpenAPI string                     `json:"openapi"`
		Paths   map[string]json.RawMessage `json:"paths"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &doc))
	assert.NotEmpty(t, doc.OpenAPI)

	for _, path := range []string{
		"/api/ip/{ip}",
		"/api/ip/{ip}/entry",
		"/api/ip/{ip}/entry/update",
		"/api/ip/{ip}/entry/search",
		"/api/ip/{ip}/entry/{uuid}",
	} {
		assert.Contains(t, doc.Paths, path)
	}
}
