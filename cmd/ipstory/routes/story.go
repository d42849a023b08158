package routes

import (
	"github.com/labstack/echo/v4"
	"github.com/nettrail/ipstory/cmd/ipstory/container"
	"github.com/nettrail/ipstory/cmd/ipstory/handlers"
)

// RegisterStoryRoutes registers all address-history routes
func RegisterStoryRoutes(e *echo.Echo, c *container.Container) {
	h := handlers.NewStoryHandler(c.Stories, c.Components.Logger)

	api := e.Group("/api")
	{
		api.PUT("/ip/:ip", h.Register)                    // PUT    /api/ip/10.0.0.1
		api.POST("/ip/:ip/entry", h.AppendEntry)          // POST   /api/ip/10.0.0.1/entry
		api.POST("/ip/:ip/entry/update", h.UpdateEntry)   // POST   /api/ip/10.0.0.1/entry/update
		api.GET("/ip/:ip/entry/search", h.SearchEntries)  // GET    /api/ip/10.0.0.1/entry/search
		api.DELETE("/ip/:ip/entry/:uuid", h.DeleteEntry)  // DELETE /api/ip/10.0.0.1/entry/<uuid>
	}

	e.GET("/openapi/json", handlers.OpenAPIDocument)
}
