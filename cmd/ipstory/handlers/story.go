package handlers

import (
	"fmt"
	"net/netip"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/nettrail/ipstory/cmd/ipstory/models"
	"github.com/nettrail/ipstory/cmd/ipstory/service"
	"github.com/nettrail/ipstory/common/logger"
)

// StoryHandler handles address-history requests
type StoryHandler struct {
	stories *service.StoryService
	log     *logger.Logger
}

// NewStoryHandler creates a new story handler
func NewStoryHandler(stories *service.StoryService, log *logger.Logger) *StoryHandler {
	return &StoryHandler{
		stories: stories,
		log:     log,
	}
}

// Register registers an address, creating an empty story if none exists
// PUT /api/ip/:ip
func (h *StoryHandler) Register(c echo.Context) error {
	ip, err := netip.ParseAddr(c.Param("ip"))
	if err != nil {
		return respondBadRequest(c, fmt.Sprintf("invalid ip address: %v", err))
	}

	registered, err := h.stories.Register(c.Request().Context(), ip)
	if err != nil {
		h.log.WithIP(ip.String()).Error("failed to register address", "error", err)
		return respondError(c, err)
	}

	return respondData(c, registered.String())
}

// AppendEntry adds a new entry to an address history
// POST /api/ip/:ip/entry
func (h *StoryHandler) AppendEntry(c echo.Context) error {
	ip, err := netip.ParseAddr(c.Param("ip"))
	if err != nil {
		return respondBadRequest(c, fmt.Sprintf("invalid ip address: %v", err))
	}

	var draft models.Entry
	if err := c.Bind(&draft); err != nil {
		return respondBadRequest(c, fmt.Sprintf("invalid entry: %v", err))
	}
	if err := draft.Payload.Validate(); err != nil {
		return respondBadRequest(c, err.Error())
	}

	stored, err := h.stories.AppendEntry(c.Request().Context(), ip, draft)
	if err != nil {
		h.log.WithIP(ip.String()).Error("failed to append entry", "error", err)
		return respondError(c, err)
	}

	return respondData(c, stored)
}

// UpdateEntry replaces the entry matching the submitted identity.
// An unknown identity yields data=false, not an error.
// POST /api/ip/:ip/entry/update
func (h *StoryHandler) UpdateEntry(c echo.Context) error {
	ip, err := netip.ParseAddr(c.Param("ip"))
	if err != nil {
		return respondBadRequest(c, fmt.Sprintf("invalid ip address: %v", err))
	}

	var entry models.Entry
	if err := c.Bind(&entry); err != nil {
		return respondBadRequest(c, fmt.Sprintf("invalid entry: %v", err))
	}
	if err := entry.Payload.Validate(); err != nil {
		return respondBadRequest(c, err.Error())
	}

	matched, err := h.stories.UpdateEntry(c.Request().Context(), ip, entry)
	if err != nil {
		h.log.WithIP(ip.String()).Error("failed to update entry", "error", err)
		return respondError(c, err)
	}

	return respondData(c, matched)
}

// SearchEntries queries an address history
// GET /api/ip/:ip/entry/search?kind=&limit=&offset=&order=
func (h *StoryHandler) SearchEntries(c echo.Context) error {
	ip, err := netip.ParseAddr(c.Param("ip"))
	if err != nil {
		return respondBadRequest(c, fmt.Sprintf("invalid ip address: %v", err))
	}

	query, err := parseSearchQuery(c)
	if err != nil {
		return respondBadRequest(c, err.Error())
	}

	entries, err := h.stories.SearchEntries(c.Request().Context(), ip, query)
	if err != nil {
		h.log.WithIP(ip.String()).Error("failed to search entries", "error", err)
		return respondError(c, err)
	}

	return respondData(c, entries)
}

// DeleteEntry removes the entry matching the identity. An unknown
// identity yields data=null, not an error.
// DELETE /api/ip/:ip/entry/:uuid
func (h *StoryHandler) DeleteEntry(c echo.Context) error {
	ip, err := netip.ParseAddr(c.Param("ip"))
	if err != nil {
		return respondBadRequest(c, fmt.Sprintf("invalid ip address: %v", err))
	}

	id, err := uuid.Parse(c.Param("uuid"))
	if err != nil {
		return respondBadRequest(c, fmt.Sprintf("invalid entry uuid: %v", err))
	}

	removed, err := h.stories.DeleteEntry(c.Request().Context(), ip, &id)
	if err != nil {
		h.log.WithIP(ip.String()).Error("failed to delete entry", "error", err)
		return respondError(c, err)
	}

	if removed == nil {
		return respondData(c, nil)
	}
	return respondData(c, removed)
}

func parseSearchQuery(c echo.Context) (service.SearchQuery, error) {
	var query service.SearchQuery

	if raw := c.QueryParam("kind"); raw != "" {
		kind, err := models.ParseKind(raw)
		if err != nil {
			return service.SearchQuery{}, err
		}
		query.Kind = &kind
	}

	if raw := c.QueryParam("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return service.SearchQuery{}, fmt.Errorf("invalid limit: %q", raw)
		}
		query.Limit = &limit
	}

	if raw := c.QueryParam("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return service.SearchQuery{}, fmt.Errorf("invalid offset: %q", raw)
		}
		query.Offset = offset
	}

	if raw := c.QueryParam("order"); raw != "" {
		order, err := service.ParseOrder(raw)
		if err != nil {
			return service.SearchQuery{}, err
		}
		query.Order = order
	}

	return query, nil
}
