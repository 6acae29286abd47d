package invitengine

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// handleGetMapSettings returns the venue block for the resolved
// invitation. Public: the invitation page reads it to fill the map
// widget.
func (a *App) handleGetMapSettings(c echo.Context) error {
	slug := a.resolveSlug(c)
	if slug == "" || !a.Registry.Exists(slug) {
		return c.JSON(http.StatusNotFound, map[string]any{"success": false, "message": "invitation not found"})
	}
	cfg := a.Store.LoadConfig(slug)
	return c.JSON(http.StatusOK, map[string]any{
		"success":  true,
		"settings": cfg.MapSettings,
		"slug":     slug,
	})
}

// handleSaveMapSettings replaces the venue block wholesale. Venue name
// and address are required; everything else may be blank. Admin-gated
// at the route.
func (a *App) handleSaveMapSettings(c echo.Context) error {
	slug := a.resolveSlug(c)
	if slug == "" || !a.Registry.Exists(slug) {
		return c.JSON(http.StatusNotFound, map[string]any{"success": false, "message": "invitation not found"})
	}

	var req MapSettings
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"success": false, "message": "invalid request body"})
	}
	if strings.TrimSpace(req.VenueName) == "" {
		return c.JSON(http.StatusBadRequest, map[string]any{"success": false, "message": "venueName is required"})
	}
	if strings.TrimSpace(req.VenueAddress) == "" {
		return c.JSON(http.StatusBadRequest, map[string]any{"success": false, "message": "venueAddress is required"})
	}

	cfg := a.Store.LoadConfig(slug)
	cfg.MapSettings = req
	cfg.Meta.UpdatedAt = nowStamp()

	if err := a.Store.SaveConfig(slug, cfg); err != nil {
		return err
	}
	a.Renderer.Invalidate(slug)
	return c.JSON(http.StatusOK, map[string]any{
		"success":  true,
		"settings": cfg.MapSettings,
		"slug":     slug,
	})
}
